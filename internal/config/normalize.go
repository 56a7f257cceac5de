package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"

	"revoice/internal/stage"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStages(); err != nil {
		return err
	}
	c.normalizeDownload()
	c.normalizeTranscribe()
	c.normalizeTranslate()
	c.normalizeLLM()
	c.normalizeSynthesize()
	c.normalizePublish()
	if err := c.normalizeInbox(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("REVOICE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeStages() error {
	if c.Stages.DefaultTimeout <= 0 {
		c.Stages.DefaultTimeout = defaultStageTimeout
	}
	if len(c.Stages.Timeouts) == 0 {
		return nil
	}
	normalized := make(map[string]int, len(c.Stages.Timeouts))
	for key, value := range c.Stages.Timeouts {
		name, ok := stage.ParseName(key)
		if !ok {
			return fmt.Errorf("stages.timeouts: unknown stage %q", key)
		}
		normalized[string(name)] = value
	}
	c.Stages.Timeouts = normalized
	return nil
}

func (c *Config) normalizeDownload() {
	c.Download.Binary = strings.TrimSpace(c.Download.Binary)
	if c.Download.Binary == "" {
		c.Download.Binary = defaultDownloadBinary
	}
	c.Download.Format = strings.TrimSpace(c.Download.Format)
	if c.Download.Format == "" {
		c.Download.Format = defaultDownloadFormat
	}
}

func (c *Config) normalizeTranscribe() {
	c.Transcribe.Binary = strings.TrimSpace(c.Transcribe.Binary)
	if c.Transcribe.Binary == "" {
		c.Transcribe.Binary = defaultTranscribeBinary
	}
	c.Transcribe.Model = strings.TrimSpace(c.Transcribe.Model)
	if c.Transcribe.Model == "" {
		c.Transcribe.Model = defaultTranscribeModel
	}
}

func (c *Config) normalizeTranslate() {
	c.Translate.TargetLanguage = strings.TrimSpace(c.Translate.TargetLanguage)
	if c.Translate.TargetLanguage == "" {
		if value, ok := os.LookupEnv("REVOICE_TARGET_LANG"); ok {
			c.Translate.TargetLanguage = strings.TrimSpace(value)
		}
	}
	// Store the canonical BCP 47 form so artifacts and prompts agree on
	// capitalization ("es-MX", not "es-mx").
	if tag, err := language.Parse(c.Translate.TargetLanguage); err == nil {
		c.Translate.TargetLanguage = tag.String()
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("REVOICE_LLM_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("DEEPSEEK_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeout
	}
}

func (c *Config) normalizeSynthesize() {
	c.Synthesize.Binary = strings.TrimSpace(c.Synthesize.Binary)
	if c.Synthesize.Binary == "" {
		c.Synthesize.Binary = defaultSynthesizeBinary
	}
	c.Synthesize.Voice = strings.TrimSpace(c.Synthesize.Voice)
	if c.Synthesize.Voice == "" {
		c.Synthesize.Voice = defaultSynthesizeVoice
	}
	c.Synthesize.ReferenceSample = strings.TrimSpace(c.Synthesize.ReferenceSample)
}

func (c *Config) normalizePublish() {
	c.Publish.SyncURL = strings.TrimSpace(c.Publish.SyncURL)
	c.Publish.SyncToken = strings.TrimSpace(c.Publish.SyncToken)
	if c.Publish.SyncToken == "" {
		if value, ok := os.LookupEnv("REVOICE_SYNC_TOKEN"); ok {
			c.Publish.SyncToken = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeInbox() error {
	var err error
	if strings.TrimSpace(c.Inbox.Dir) == "" {
		c.Inbox.Dir = defaultInboxDir
	}
	if c.Inbox.Dir, err = expandPath(c.Inbox.Dir); err != nil {
		return fmt.Errorf("inbox.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
