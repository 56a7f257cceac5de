package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigInitWritesSample(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("second init without --overwrite should fail")
	}
	if _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("init with --overwrite: %v", err)
	}
}

func TestAddListShowRoundTrip(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"list"}, env.server)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "No videos yet")

	out, err = runCLI(t, []string{"add", "https://videos.example/clips/42", "--no-process"}, env.server)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	requireContains(t, out, "Added Test clip")
	id := extractID(t, out)

	out, err = runCLI(t, []string{"list"}, env.server)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "Test clip")
	requireContains(t, out, "queued")

	out, err = runCLI(t, []string{"show", id}, env.server)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Test clip")
	requireContains(t, out, "download")
	requireContains(t, out, "not_started")
}

func TestAddRejectsDuplicate(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := runCLI(t, []string{"add", "https://videos.example/clips/9", "--no-process"}, env.server); err != nil {
		t.Fatalf("add: %v", err)
	}
	_, err := runCLI(t, []string{"add", "https://videos.example/clips/9", "--no-process"}, env.server)
	if err == nil || !strings.Contains(err.Error(), "already added") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestProcessCompletesPipeline(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"add", "https://videos.example/clips/7", "--no-process"}, env.server)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	id := extractID(t, out)

	out, err = runCLI(t, []string{"process", id}, env.server)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	requireContains(t, out, "Dispatched: download")

	deadline := time.Now().Add(5 * time.Second)
	for {
		out, err = runCLI(t, []string{"show", id}, env.server)
		if err != nil {
			t.Fatalf("show: %v", err)
		}
		if strings.Contains(out, "localized: yes") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("pipeline did not finish, last output:\n%s", out)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestReprocessRequiresConfirmation(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := runCLI(t, []string{"reprocess", "some-id"}, env.server)
	if err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Fatalf("expected confirmation error, got %v", err)
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("REVOICE_LLM_API_KEY", "super-secret")
	t.Setenv("REVOICE_TARGET_LANG", "es")

	out, err := runCLI(t, []string{"config", "show"}, "")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "super-secret") {
		t.Fatalf("api key must be redacted:\n%s", out)
	}
	requireContains(t, out, "target_language = 'es'")
}

func TestDeleteVideo(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"add", "https://videos.example/clips/3", "--no-process"}, env.server)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	id := extractID(t, out)

	out, err = runCLI(t, []string{"delete", id}, env.server)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	requireContains(t, out, "Deleted")

	if _, err := runCLI(t, []string{"show", id}, env.server); err == nil {
		t.Fatal("show after delete should fail")
	}
}

func TestStatusReportsRunningDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"status"}, env.server)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Running")
	requireContains(t, out, "LOCALIZED")
}

func TestStatusOfflineRunsLocalChecks(t *testing.T) {
	env := setupCLITestEnv(t)

	llm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer llm.Close()
	writeLocalConfig(t, env.cfg, llm.URL)

	out, err := runCLI(t, []string{"status"}, "http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("status offline: %v", err)
	}
	requireContains(t, out, "daemon unreachable")
	requireContains(t, out, "Work directory")
}

func TestShowUnknownVideo(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := runCLI(t, []string{"show", "missing"}, env.server)
	if err == nil || !strings.Contains(err.Error(), "no video with id") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

// extractID pulls the id printed by `revoice add`.
func extractID(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "id: "); ok {
			return strings.TrimSpace(rest)
		}
	}
	t.Fatalf("no id in output:\n%s", out)
	return ""
}
