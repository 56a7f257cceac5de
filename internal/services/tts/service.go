package tts

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"revoice/internal/config"
	"revoice/internal/services"
)

// Service synthesizes narration audio through an edge-tts style subprocess.
type Service struct {
	binary          string
	voice           string
	referenceSample string
	commandRunner   func(ctx context.Context, name string, args ...string) error
}

// NewService creates a speech synthesis service from configuration.
func NewService(cfg *config.Config) *Service {
	return &Service{
		binary:          cfg.Synthesize.Binary,
		voice:           cfg.Synthesize.Voice,
		referenceSample: cfg.Synthesize.ReferenceSample,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Voice returns the configured voice name.
func (s *Service) Voice() string {
	return s.voice
}

func (s *Service) run(ctx context.Context, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, s.binary, args...)
	}
	cmd := exec.CommandContext(ctx, s.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", s.binary, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Synthesize renders the script as narration audio and returns the output
// path. A configured voice-clone reference sample that has gone missing is a
// configuration failure: retrying cannot succeed until the operator restores
// the file.
func (s *Service) Synthesize(ctx context.Context, script, destDir string) (string, error) {
	script = strings.TrimSpace(script)
	if script == "" {
		return "", fmt.Errorf("synthesize: script required")
	}
	if destDir == "" {
		return "", fmt.Errorf("synthesize: destination directory required")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("synthesize: ensure destination: %w", err)
	}

	if s.referenceSample != "" {
		if _, err := os.Stat(s.referenceSample); err != nil {
			return "", services.Wrap(services.ErrConfiguration, "synthesize", "reference sample",
				fmt.Sprintf("configured sample %s unavailable", s.referenceSample), err)
		}
	}

	outputPath := filepath.Join(destDir, "narration.mp3")
	args := []string{"--voice", s.voice, "--text", script, "--write-media", outputPath}
	if s.referenceSample != "" {
		args = append(args, "--reference-audio", s.referenceSample)
	}
	if err := s.run(ctx, args...); err != nil {
		return "", fmt.Errorf("synthesize: %w", err)
	}
	if _, err := os.Stat(outputPath); err != nil {
		return "", fmt.Errorf("synthesize: no audio produced: %w", err)
	}
	return outputPath, nil
}

// CheckHealth verifies the synthesis binary and any configured reference
// sample are available.
func (s *Service) CheckHealth(_ context.Context) error {
	if _, err := exec.LookPath(s.binary); err != nil {
		return fmt.Errorf("%s not found on PATH", s.binary)
	}
	if s.referenceSample != "" {
		if _, err := os.Stat(s.referenceSample); err != nil {
			return fmt.Errorf("reference sample %s unavailable", s.referenceSample)
		}
	}
	return nil
}
