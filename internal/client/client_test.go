package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"revoice/internal/api"
)

func TestClientSendsBearerTokenAndDecodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		if r.URL.Path != "/api/videos" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req api.AddVideoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.SourceURL != "https://videos.example/clips/42" || !req.Process {
			t.Errorf("unexpected payload %+v", req)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(api.Video{ID: "vid-1", SourceURL: req.SourceURL})
	}))
	defer server.Close()

	c := NewWithBaseURL(server.URL, "secret")
	video, err := c.Add(context.Background(), "https://videos.example/clips/42", true)
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if video.ID != "vid-1" {
		t.Fatalf("unexpected video %+v", video)
	}
}

func TestClientMapsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"video not found: nope"}`))
	}))
	defer server.Close()

	c := NewWithBaseURL(server.URL, "")
	if _, err := c.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClientMapsConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"stage already running"}`))
	}))
	defer server.Close()

	c := NewWithBaseURL(server.URL, "")
	if _, err := c.Retry(context.Background(), "vid-1", "download"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestClientReportsUnreachableDaemon(t *testing.T) {
	c := NewWithBaseURL("http://127.0.0.1:1", "")
	if err := c.Health(context.Background()); !errors.Is(err, ErrDaemonUnavailable) {
		t.Fatalf("expected ErrDaemonUnavailable, got %v", err)
	}
}
