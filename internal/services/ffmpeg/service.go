package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"revoice/internal/config"
)

// Service remuxes video with replacement audio and probes media durations.
type Service struct {
	ffmpegBinary  string
	ffprobeBinary string
	commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewService creates a remux service from configuration.
func NewService(cfg *config.Config) *Service {
	return &Service{
		ffmpegBinary:  cfg.FFmpegBinary(),
		ffprobeBinary: cfg.FFprobeBinary(),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	s.commandRunner = runner
}

func (s *Service) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return []byte(stdout.String()), nil
}

// buildMuxArgs assembles the argument list for replacing a video's audio
// track while copying the video stream untouched.
func buildMuxArgs(videoPath, audioPath, outputPath string) []string {
	return []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		outputPath,
	}
}

// Mux replaces the audio track of videoPath with audioPath, writing the
// result into destDir. The video stream is copied, never re-encoded.
func (s *Service) Mux(ctx context.Context, videoPath, audioPath, destDir string) (string, error) {
	if videoPath == "" || audioPath == "" {
		return "", fmt.Errorf("mux: video and audio paths required")
	}
	if destDir == "" {
		return "", fmt.Errorf("mux: destination directory required")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("mux: ensure destination: %w", err)
	}

	outputPath := filepath.Join(destDir, "localized"+filepath.Ext(videoPath))
	if _, err := s.run(ctx, s.ffmpegBinary, buildMuxArgs(videoPath, audioPath, outputPath)...); err != nil {
		return "", fmt.Errorf("mux: %w", err)
	}
	if _, err := os.Stat(outputPath); err != nil {
		return "", fmt.Errorf("mux: no output produced: %w", err)
	}
	return outputPath, nil
}

type probeFormat struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration returns the media duration in seconds.
func (s *Service) ProbeDuration(ctx context.Context, mediaPath string) (float64, error) {
	if mediaPath == "" {
		return 0, fmt.Errorf("probe: media path required")
	}
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		mediaPath,
	}
	output, err := s.run(ctx, s.ffprobeBinary, args...)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", mediaPath, err)
	}
	var payload probeFormat
	if err := json.Unmarshal(output, &payload); err != nil {
		return 0, fmt.Errorf("probe %s: parse output: %w", mediaPath, err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(payload.Format.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("probe %s: parse duration %q: %w", mediaPath, payload.Format.Duration, err)
	}
	return duration, nil
}

// CheckHealth verifies both ffmpeg and ffprobe are available.
func (s *Service) CheckHealth(_ context.Context) error {
	for _, binary := range []string{s.ffmpegBinary, s.ffprobeBinary} {
		if _, err := exec.LookPath(binary); err != nil {
			return fmt.Errorf("%s not found on PATH", binary)
		}
	}
	return nil
}
