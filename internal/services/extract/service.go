package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"revoice/internal/config"
)

// Metadata is the immutable source description captured at ingest.
type Metadata struct {
	Title           string
	Description     string
	DurationSeconds float64
	ThumbnailURL    string
}

// Service fetches source videos and their metadata through yt-dlp.
type Service struct {
	binary        string
	format        string
	commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewService creates an extraction service from configuration.
func NewService(cfg *config.Config) *Service {
	return &Service{
		binary: cfg.Download.Binary,
		format: cfg.Download.Format,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	s.commandRunner = runner
}

func (s *Service) run(ctx context.Context, args ...string) ([]byte, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, s.binary, args...)
	}
	cmd := exec.CommandContext(ctx, s.binary, args...) //nolint:gosec
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", s.binary, err, strings.TrimSpace(stderr.String()))
	}
	return []byte(stdout.String()), nil
}

type probePayload struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
	Thumbnail   string  `json:"thumbnail"`
}

// Probe fetches source metadata without downloading the media.
func (s *Service) Probe(ctx context.Context, sourceURL string) (Metadata, error) {
	var meta Metadata
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return meta, fmt.Errorf("probe: source url required")
	}

	output, err := s.run(ctx, "-J", "--no-playlist", "--skip-download", sourceURL)
	if err != nil {
		return meta, fmt.Errorf("probe %s: %w", sourceURL, err)
	}
	var payload probePayload
	if err := json.Unmarshal(output, &payload); err != nil {
		return meta, fmt.Errorf("probe %s: parse metadata: %w", sourceURL, err)
	}
	meta.Title = strings.TrimSpace(payload.Title)
	meta.Description = strings.TrimSpace(payload.Description)
	meta.DurationSeconds = payload.Duration
	meta.ThumbnailURL = strings.TrimSpace(payload.Thumbnail)
	return meta, nil
}

// Download fetches the source video into destDir and returns the media path
// and its size in bytes.
func (s *Service) Download(ctx context.Context, sourceURL, destDir string) (string, int64, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return "", 0, fmt.Errorf("download: source url required")
	}
	if destDir == "" {
		return "", 0, fmt.Errorf("download: destination directory required")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("download: ensure destination: %w", err)
	}

	template := filepath.Join(destDir, "source.%(ext)s")
	args := []string{"-o", template, "--no-playlist"}
	if s.format != "" {
		args = append(args, "-f", s.format, "--merge-output-format", s.format)
	}
	args = append(args, sourceURL)
	if _, err := s.run(ctx, args...); err != nil {
		return "", 0, fmt.Errorf("download %s: %w", sourceURL, err)
	}

	path, err := locateOutput(destDir)
	if err != nil {
		return "", 0, fmt.Errorf("download %s: %w", sourceURL, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", 0, fmt.Errorf("download %s: stat output: %w", sourceURL, err)
	}
	return path, info.Size(), nil
}

// locateOutput resolves the file yt-dlp wrote; the extension depends on what
// the host actually served.
func locateOutput(destDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(destDir, "source.*"))
	if err != nil {
		return "", err
	}
	for _, match := range matches {
		if strings.HasSuffix(match, ".part") {
			continue
		}
		return match, nil
	}
	return "", fmt.Errorf("no output file in %s", destDir)
}

// CheckHealth verifies the downloader binary is available.
func (s *Service) CheckHealth(_ context.Context) error {
	if _, err := exec.LookPath(s.binary); err != nil {
		return fmt.Errorf("%s not found on PATH", s.binary)
	}
	return nil
}
