package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"revoice/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("Work directory", dir)
	if !result.Passed {
		t.Fatalf("expected writable temp dir to pass, got %+v", result)
	}

	missing := CheckDirectoryAccess("Work directory", filepath.Join(dir, "absent"))
	if missing.Passed {
		t.Fatalf("expected missing directory to fail, got %+v", missing)
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	notDir := CheckDirectoryAccess("Work directory", file)
	if notDir.Passed {
		t.Fatalf("expected plain file to fail, got %+v", notDir)
	}
}

func TestCheckLLM(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	llmCfg := cfg.GetLLM()
	llmCfg.BaseURL = server.URL

	result := CheckLLM(context.Background(), "LLM endpoint", llmCfg)
	if !result.Passed {
		t.Fatalf("expected healthy endpoint to pass, got %+v", result)
	}

	llmCfg.APIKey = ""
	noKey := CheckLLM(context.Background(), "LLM endpoint", llmCfg)
	if noKey.Passed || noKey.Detail != "API key missing" {
		t.Fatalf("expected missing key failure, got %+v", noKey)
	}
}

func TestRunAllReportsEveryConfiguredCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithInboxEnabled())
	cfg.LLM.BaseURL = server.URL
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	names := make(map[string]bool, len(results))
	for _, result := range results {
		names[result.Name] = true
	}
	for _, want := range []string{"Work directory", "Library directory", "Inbox directory", "LLM endpoint"} {
		if !names[want] {
			t.Fatalf("RunAll missing check %q: %+v", want, results)
		}
	}
	if Passed(results) {
		t.Fatal("rejected LLM credentials should fail the set")
	}
}

func TestCheckSystemDepsListsPipelineBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	statuses := CheckSystemDeps(cfg)
	if len(statuses) != 5 {
		t.Fatalf("expected 5 dependency statuses, got %d", len(statuses))
	}
	for _, status := range statuses {
		if !status.Available {
			t.Fatalf("stubbed binary %q should be available: %+v", status.Command, status)
		}
	}
}
