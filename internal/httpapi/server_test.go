package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"revoice/internal/api"
	"revoice/internal/config"
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

// instantExecutors complete every stage immediately with a minimal artifact.
func instantExecutors(workRoot string) map[stage.Name]stage.Executor {
	artifactFor := func(name stage.Name) stage.Artifact {
		switch name {
		case stage.Download:
			return stage.MediaArtifact{VideoPath: filepath.Join(workRoot, "source.mp4"), SizeBytes: 1}
		case stage.Transcribe:
			return stage.TranscriptArtifact{Text: "hello", Language: "en"}
		case stage.Translate:
			return stage.TranslationArtifact{Text: "hola", Language: "es"}
		case stage.Enrich:
			return stage.EnrichmentArtifact{Summary: "resumen"}
		case stage.Script:
			return stage.ScriptArtifact{Text: "guion"}
		case stage.Synthesize:
			return stage.SpeechArtifact{AudioPath: filepath.Join(workRoot, "narration.mp3")}
		case stage.Remux:
			return stage.RemuxArtifact{VideoPath: filepath.Join(workRoot, "localized.mp4")}
		default:
			return stage.PublishArtifact{LibraryPath: filepath.Join(workRoot, "library.mp4"), SyncedAt: time.Now().UTC()}
		}
	}
	executors := make(map[stage.Name]stage.Executor, stage.Count())
	for _, name := range stage.All() {
		captured := name
		executors[captured] = stage.ExecutorFunc(func(context.Context, stage.Request) (stage.Artifact, error) {
			return artifactFor(captured), nil
		})
	}
	return executors
}

type fixture struct {
	cfg    *config.Config
	store  *videostore.Store
	ctrl   *pipeline.Controller
	server *Server
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	ctrl := pipeline.NewControllerWithNotifier(cfg, store, nil, instantExecutors(cfg.Paths.WorkDir), nil)
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("start controller: %v", err)
	}
	t.Cleanup(ctrl.Stop)

	ingestSvc := ingest.NewServiceWithProber(cfg, store, ctrl, nil, fixedProber{metadata: extract.Metadata{Title: "Test clip"}})
	server, err := NewServer(cfg, nil, ctrl, ingestSvc, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return &fixture{cfg: cfg, store: store, ctrl: ctrl, server: server}
}

func (f *fixture) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token := f.cfg.Paths.APIToken; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(recorder, req)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var payload T
	if err := json.NewDecoder(recorder.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, recorder.Body.String())
	}
	return payload
}

func TestAddVideoCreatesAndConflictsOnDuplicate(t *testing.T) {
	f := newFixture(t)

	created := f.request(t, http.MethodPost, "/api/videos", api.AddVideoRequest{SourceURL: "https://videos.example/clips/42"})
	if created.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", created.Code, created.Body.String())
	}
	video := decodeBody[api.Video](t, created)
	if video.Title != "Test clip" || len(video.Stages) != stage.Count() {
		t.Fatalf("unexpected video payload: %+v", video)
	}

	duplicate := f.request(t, http.MethodPost, "/api/videos", api.AddVideoRequest{SourceURL: "https://videos.example/clips/42"})
	if duplicate.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", duplicate.Code)
	}
	if decodeBody[api.Video](t, duplicate).ID != video.ID {
		t.Fatal("conflict response should carry the existing video")
	}
}

func TestAddVideoRejectsBadRequests(t *testing.T) {
	f := newFixture(t)

	if code := f.request(t, http.MethodPost, "/api/videos", api.AddVideoRequest{SourceURL: "ftp://nope"}).Code; code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad scheme, got %d", code)
	}

	raw := httptest.NewRequest(http.MethodPost, "/api/videos", bytes.NewReader([]byte("{not json")))
	recorder := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(recorder, raw)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", recorder.Code)
	}
}

func TestProcessRunsPipelineToCompletion(t *testing.T) {
	f := newFixture(t)

	video := videostore.NewVideo("https://videos.example/clips/7")
	if err := f.store.Create(context.Background(), video); err != nil {
		t.Fatalf("create video: %v", err)
	}

	resp := f.request(t, http.MethodPost, "/api/videos/"+video.ID+"/process", nil)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}
	trigger := decodeBody[api.TriggerResponse](t, resp)
	if len(trigger.Dispatched) != 1 || trigger.Dispatched[0] != "download" {
		t.Fatalf("expected download dispatch, got %v", trigger.Dispatched)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		show := f.request(t, http.MethodGet, "/api/videos/"+video.ID, nil)
		if show.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", show.Code)
		}
		if decodeBody[api.Video](t, show).Localized {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("pipeline did not complete in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGetVideoNotFound(t *testing.T) {
	f := newFixture(t)
	if code := f.request(t, http.MethodGet, "/api/videos/nope", nil).Code; code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestRetryRejectsUnknownStage(t *testing.T) {
	f := newFixture(t)
	video := videostore.NewVideo("https://videos.example/clips/7")
	if err := f.store.Create(context.Background(), video); err != nil {
		t.Fatalf("create video: %v", err)
	}

	resp := f.request(t, http.MethodPost, "/api/videos/"+video.ID+"/retry", api.RetryRequest{Stage: "teleport"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown stage, got %d", resp.Code)
	}

	resp = f.request(t, http.MethodPost, "/api/videos/"+video.ID+"/retry", api.RetryRequest{Stage: "download"})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for non-failed stage, got %d", resp.Code)
	}
}

func TestListVideosNewestFirst(t *testing.T) {
	f := newFixture(t)
	first := videostore.NewVideo("https://videos.example/clips/1")
	first.CreatedAt = time.Now().Add(-time.Hour).UTC()
	second := videostore.NewVideo("https://videos.example/clips/2")
	for _, v := range []*videostore.Video{first, second} {
		if err := f.store.Create(context.Background(), v); err != nil {
			t.Fatalf("create video: %v", err)
		}
	}

	resp := f.request(t, http.MethodGet, "/api/videos", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	list := decodeBody[api.VideoListResponse](t, resp)
	if len(list.Videos) != 2 || list.Videos[0].SourceURL != "https://videos.example/clips/2" {
		t.Fatalf("unexpected list order: %+v", list.Videos)
	}
}

func TestStatusReportsStats(t *testing.T) {
	f := newFixture(t)
	resp := f.request(t, http.MethodGet, "/api/status", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	status := decodeBody[api.DaemonStatus](t, resp)
	if !status.Running || status.PID == 0 {
		t.Fatalf("unexpected status payload: %+v", status)
	}
}

func TestBearerTokenRequired(t *testing.T) {
	f := newFixture(t)
	f.cfg.Paths.APIToken = "secret"

	server, err := NewServer(f.cfg, nil, f.ctrl, nil, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", recorder.Code)
	}

	req.Header.Set("Authorization", "Bearer secret")
	recorder = httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", recorder.Code)
	}
}
