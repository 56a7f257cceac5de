package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"revoice/internal/config"
	"revoice/internal/daemon"
	"revoice/internal/ingest"
	"revoice/internal/pipeline"
	"revoice/internal/services/extract"
	"revoice/internal/stage"
	"revoice/internal/testsupport"
	"revoice/internal/videostore"
)

type fixedProber struct {
	metadata extract.Metadata
}

func (p fixedProber) Probe(context.Context, string) (extract.Metadata, error) {
	return p.metadata, nil
}

type cliTestEnv struct {
	cfg    *config.Config
	store  *videostore.Store
	daemon *daemon.Daemon
	server string
}

// setupCLITestEnv isolates HOME, satisfies config validation through the
// environment, and runs a real daemon with instantly-succeeding executors.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	t.Setenv("REVOICE_LLM_API_KEY", "test-key")
	t.Setenv("REVOICE_TARGET_LANG", "es")

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	executors := make(map[stage.Name]stage.Executor, stage.Count())
	for _, name := range stage.All() {
		captured := name
		executors[captured] = stage.ExecutorFunc(func(context.Context, stage.Request) (stage.Artifact, error) {
			return instantArtifact(captured), nil
		})
	}
	ctrl := pipeline.NewControllerWithNotifier(cfg, store, nil, executors, nil)
	ingestSvc := ingest.NewServiceWithProber(cfg, store, ctrl, nil, fixedProber{metadata: extract.Metadata{Title: "Test clip", DurationSeconds: 95}})

	d, err := daemon.New(cfg, store, ctrl, ingestSvc, executors, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)

	return &cliTestEnv{
		cfg:    cfg,
		store:  store,
		daemon: d,
		server: "http://" + d.APIAddr(),
	}
}

func instantArtifact(name stage.Name) stage.Artifact {
	switch name {
	case stage.Download:
		return stage.MediaArtifact{VideoPath: "source.mp4", SizeBytes: 1}
	case stage.Transcribe:
		return stage.TranscriptArtifact{Text: "hello", Language: "en"}
	case stage.Translate:
		return stage.TranslationArtifact{Text: "hola", Language: "es"}
	case stage.Enrich:
		return stage.EnrichmentArtifact{Summary: "resumen"}
	case stage.Script:
		return stage.ScriptArtifact{Text: "guion"}
	case stage.Synthesize:
		return stage.SpeechArtifact{AudioPath: "narration.mp3"}
	case stage.Remux:
		return stage.RemuxArtifact{VideoPath: "localized.mp4"}
	default:
		return stage.PublishArtifact{LibraryPath: "library.mp4", SyncedAt: time.Now().UTC()}
	}
}

// runCLI executes the root command with captured output. server may be empty
// for commands that never touch the daemon.
func runCLI(t *testing.T, args []string, server string) (string, error) {
	t.Helper()

	if server != "" {
		args = append([]string{"--server", server}, args...)
	}
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

// writeLocalConfig persists a config file under HOME pointing the LLM check at
// a local endpoint so offline preflight never leaves the machine.
func writeLocalConfig(t *testing.T, cfg *config.Config, llmBaseURL string) {
	t.Helper()
	configPath := filepath.Join(os.Getenv("HOME"), ".config", "revoice", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	content := fmt.Sprintf(`[paths]
work_dir = %q
library_dir = %q
log_dir = %q

[llm]
base_url = %q

[translate]
target_language = "es"
`, cfg.Paths.WorkDir, cfg.Paths.LibraryDir, cfg.Paths.LogDir, llmBaseURL)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}
