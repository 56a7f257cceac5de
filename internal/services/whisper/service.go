package whisper

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

// Segment is one timed slice of the transcript.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is a completed transcription.
type Result struct {
	Text     string
	Language string
	Segments []Segment
}

// Service transcribes audio through a whisper-style subprocess that writes a
// JSON transcript next to its input.
type Service struct {
	binary        string
	model         string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a transcription service from configuration.
func NewService(cfg *config.Config) *Service {
	return &Service{
		binary: cfg.Transcribe.Binary,
		model:  cfg.Transcribe.Model,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
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

// Transcribe runs the transcriber against the media file and loads the JSON
// transcript it produces in outputDir.
func (s *Service) Transcribe(ctx context.Context, mediaPath, outputDir string) (Result, error) {
	var result Result
	if mediaPath == "" {
		return result, fmt.Errorf("transcribe: media path required")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(mediaPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return result, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	args := []string{
		mediaPath,
		"--model", s.model,
		"--output_format", "json",
		"--output_dir", outputDir,
	}
	if err := s.run(ctx, args...); err != nil {
		return result, fmt.Errorf("transcribe: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
	jsonPath := filepath.Join(outputDir, baseName+".json")
	loaded, err := loadTranscript(jsonPath)
	if err != nil {
		return result, fmt.Errorf("transcribe: %w", err)
	}
	return loaded, nil
}

type transcriptPayload struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

func loadTranscript(jsonPath string) (Result, error) {
	var result Result
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return result, fmt.Errorf("read transcript %s: %w", jsonPath, err)
	}
	var payload transcriptPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return result, fmt.Errorf("parse transcript %s: %w", jsonPath, err)
	}

	result.Language = strings.TrimSpace(payload.Language)
	result.Segments = payload.Segments
	result.Text = strings.TrimSpace(payload.Text)
	if result.Text == "" {
		var parts []string
		for _, seg := range payload.Segments {
			if text := strings.TrimSpace(seg.Text); text != "" {
				parts = append(parts, text)
			}
		}
		result.Text = strings.Join(parts, " ")
	}
	return result, nil
}

// CheckHealth verifies the transcriber binary is available.
func (s *Service) CheckHealth(_ context.Context) error {
	if _, err := exec.LookPath(s.binary); err != nil {
		return fmt.Errorf("%s not found on PATH", s.binary)
	}
	return nil
}
