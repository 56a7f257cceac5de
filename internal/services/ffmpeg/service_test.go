package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"revoice/internal/testsupport"
)

func TestMuxBuildsCopyArgsAndReturnsOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	service := NewService(cfg)

	var recorded []string
	service.WithCommandRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name != "ffmpeg" {
			t.Fatalf("expected ffmpeg invocation, got %q", name)
		}
		recorded = args
		output := args[len(args)-1]
		if err := os.WriteFile(output, []byte("muxed"), 0o644); err != nil {
			t.Fatalf("write stub output: %v", err)
		}
		return nil, nil
	})

	destDir := filepath.Join(cfg.Paths.WorkDir, "remux")
	outputPath, err := service.Mux(context.Background(), "/media/source.mp4", "/media/narration.mp3", destDir)
	if err != nil {
		t.Fatalf("Mux returned error: %v", err)
	}
	if outputPath != filepath.Join(destDir, "localized.mp4") {
		t.Fatalf("unexpected output path %q", outputPath)
	}

	joined := strings.Join(recorded, " ")
	for _, want := range []string{"-c:v copy", "-map 0:v:0", "-map 1:a:0", "-c:a aac"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("mux args missing %q: %v", want, recorded)
		}
	}
}

func TestMuxFailsWhenNoOutputProduced(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	service := NewService(cfg)
	service.WithCommandRunner(func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return nil, nil
	})

	_, err := service.Mux(context.Background(), "/media/source.mp4", "/media/narration.mp3", filepath.Join(cfg.Paths.WorkDir, "remux"))
	if err == nil {
		t.Fatal("expected error when ffmpeg produces no output")
	}
}

func TestMuxPropagatesToolFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	service := NewService(cfg)
	toolErr := errors.New("ffmpeg: exit status 1: invalid stream")
	service.WithCommandRunner(func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return nil, toolErr
	})

	_, err := service.Mux(context.Background(), "/media/source.mp4", "/media/narration.mp3", filepath.Join(cfg.Paths.WorkDir, "remux"))
	if !errors.Is(err, toolErr) {
		t.Fatalf("expected wrapped tool error, got %v", err)
	}
}

func TestProbeDurationParsesFormatSection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	service := NewService(cfg)
	service.WithCommandRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name != "ffprobe" {
			t.Fatalf("expected ffprobe invocation, got %q", name)
		}
		if args[len(args)-1] != "/media/localized.mp4" {
			t.Fatalf("unexpected probe target: %v", args)
		}
		return []byte(`{"format":{"duration":"93.417000"}}`), nil
	})

	duration, err := service.ProbeDuration(context.Background(), "/media/localized.mp4")
	if err != nil {
		t.Fatalf("ProbeDuration returned error: %v", err)
	}
	if duration < 93.41 || duration > 93.42 {
		t.Fatalf("unexpected duration %f", duration)
	}
}

func TestProbeDurationRejectsMalformedOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	service := NewService(cfg)
	service.WithCommandRunner(func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return []byte(`{"format":{}}`), nil
	})

	if _, err := service.ProbeDuration(context.Background(), "/media/localized.mp4"); err == nil {
		t.Fatal("expected error for missing duration field")
	}
}
