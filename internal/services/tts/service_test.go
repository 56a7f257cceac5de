package tts

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"revoice/internal/services"
	"revoice/internal/testsupport"
)

func TestSynthesizeWritesNarration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := NewService(cfg)
	destDir := t.TempDir()

	svc.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		if name != "edge-tts" {
			t.Errorf("binary = %s, want edge-tts", name)
		}
		joined := strings.Join(args, " ")
		if !strings.Contains(joined, "--voice en-US-AriaNeural") {
			t.Errorf("voice flag missing: %v", args)
		}
		testsupport.WriteFile(t, filepath.Join(destDir, "narration.mp3"), 64)
		return nil
	})

	path, err := svc.Synthesize(context.Background(), "hello there", destDir)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if filepath.Base(path) != "narration.mp3" {
		t.Errorf("path = %s", path)
	}
}

func TestSynthesizeMissingReferenceSampleIsConfigurationError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Synthesize.ReferenceSample = filepath.Join(t.TempDir(), "missing.wav")
	svc := NewService(cfg)
	svc.WithCommandRunner(func(context.Context, string, ...string) error {
		t.Fatal("synthesis ran despite missing reference sample")
		return nil
	})

	_, err := svc.Synthesize(context.Background(), "hello", t.TempDir())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
	if services.Retryable(err) {
		t.Error("missing reference sample classified retryable")
	}
}

func TestSynthesizeFailsWithoutOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := NewService(cfg)
	svc.WithCommandRunner(func(context.Context, string, ...string) error { return nil })

	if _, err := svc.Synthesize(context.Background(), "hello", t.TempDir()); err == nil {
		t.Fatal("expected error when synthesis produced no file")
	}
}
