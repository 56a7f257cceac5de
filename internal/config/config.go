package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"revoice/internal/stage"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	WorkDir    string `toml:"work_dir"`
	LibraryDir string `toml:"library_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Workflow contains daemon timing configuration.
type Workflow struct {
	HeartbeatInterval int `toml:"heartbeat_interval"`
	HeartbeatTimeout  int `toml:"heartbeat_timeout"`
}

// Stages contains per-stage execution limits. Timeouts are keyed by stage
// name; stages without an entry fall back to default_timeout.
type Stages struct {
	DefaultTimeout int            `toml:"default_timeout"`
	Timeouts       map[string]int `toml:"timeouts"`
}

// Download contains configuration for fetching source videos.
type Download struct {
	Binary string `toml:"binary"`
	Format string `toml:"format"`
}

// Transcribe contains configuration for speech-to-text.
type Transcribe struct {
	Binary string `toml:"binary"`
	Model  string `toml:"model"`
}

// Translate contains configuration for the target localization language.
type Translate struct {
	TargetLanguage string `toml:"target_language"`
}

// LLM contains shared LLM connection settings used by the translate, enrich,
// and script stages.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Synthesize contains configuration for text-to-speech.
type Synthesize struct {
	Binary          string `toml:"binary"`
	Voice           string `toml:"voice"`
	ReferenceSample string `toml:"reference_sample"`
}

// Publish contains configuration for library placement and the optional
// record sync endpoint.
type Publish struct {
	SyncURL   string `toml:"sync_url"`
	SyncToken string `toml:"sync_token"`
}

// Inbox contains configuration for the watched drop directory.
type Inbox struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Publishes      bool   `toml:"publishes"`
	Failures       bool   `toml:"failures"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for revoice.
//
// Configuration sections by subsystem:
//   - Paths: working/library/log directories and API bind address
//   - Workflow: heartbeat cadence for in-flight stage reclamation
//   - Stages: per-stage execution timeouts
//   - Download: yt-dlp binary and format selection
//   - Transcribe: speech-to-text binary and model
//   - Translate: target localization language
//   - LLM: shared connection settings for the AI-backed stages
//   - Synthesize: text-to-speech binary, voice, optional clone sample
//   - Publish: library placement and record sync endpoint
//   - Inbox: watched drop directory for URL files
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Workflow      Workflow      `toml:"workflow"`
	Stages        Stages        `toml:"stages"`
	Download      Download      `toml:"download"`
	Transcribe    Transcribe    `toml:"transcribe"`
	Translate     Translate     `toml:"translate"`
	LLM           LLM           `toml:"llm"`
	Synthesize    Synthesize    `toml:"synthesize"`
	Publish       Publish       `toml:"publish"`
	Inbox         Inbox         `toml:"inbox"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/revoice/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("revoice.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// LibraryDir is created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Inbox.Enabled && strings.TrimSpace(c.Inbox.Dir) != "" {
		if err := os.MkdirAll(c.Inbox.Dir, 0o755); err != nil {
			return fmt.Errorf("create inbox directory %q: %w", c.Inbox.Dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		// Best-effort to avoid failing config load when storage is offline.
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// StageTimeout returns the execution timeout for the given stage.
func (c *Config) StageTimeout(name stage.Name) time.Duration {
	if seconds, ok := c.Stages.Timeouts[string(name)]; ok && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return time.Duration(c.Stages.DefaultTimeout) * time.Second
}

// HeartbeatInterval returns the cadence for in-flight stage heartbeats.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Workflow.HeartbeatInterval) * time.Second
}

// HeartbeatTimeout returns the age after which a running stage counts as
// abandoned and is reclaimed at daemon start.
func (c *Config) HeartbeatTimeout() time.Duration {
	return time.Duration(c.Workflow.HeartbeatTimeout) * time.Second
}

// FFmpegBinary returns the ffmpeg executable name used for remuxing.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// TargetLanguageName returns the English display name of the configured
// target language, falling back to the raw tag when it cannot be parsed.
func (c *Config) TargetLanguageName() string {
	tag, err := language.Parse(c.Translate.TargetLanguage)
	if err != nil {
		return c.Translate.TargetLanguage
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return c.Translate.TargetLanguage
}

// LLMConfig contains common LLM settings used across the AI-backed stages.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// GetLLM returns the shared LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
