package pipeline

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"revoice/internal/config"
	"revoice/internal/logging"
	"revoice/internal/stage"
	"revoice/internal/testsupport"
	"revoice/internal/videostore"
)

// stubExecutor is a controllable stage executor. By default it succeeds
// immediately with a plausible artifact; tests can make it fail, block until
// released, or observe call counts.
type stubExecutor struct {
	name stage.Name

	mu      sync.Mutex
	calls   int
	results []result
	block   chan struct{}
	started chan struct{}
}

type result struct {
	artifact stage.Artifact
	err      error
}

func newStubExecutor(name stage.Name) *stubExecutor {
	return &stubExecutor{
		name:    name,
		started: make(chan struct{}, 16),
	}
}

func (s *stubExecutor) Execute(ctx context.Context, req stage.Request) (stage.Artifact, error) {
	s.mu.Lock()
	s.calls++
	var res result
	if len(s.results) > 0 {
		res = s.results[0]
		s.results = s.results[1:]
	} else {
		res = result{artifact: sampleArtifact(s.name, req.WorkDir)}
	}
	block := s.block
	s.mu.Unlock()

	select {
	case s.started <- struct{}{}:
	default:
	}

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return res.artifact, res.err
}

// Calls reports how many times Execute has run.
func (s *stubExecutor) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// FailNextWith queues an error result for the next execution.
func (s *stubExecutor) FailNextWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result{err: err})
}

// ReturnNext queues an artifact result for the next execution.
func (s *stubExecutor) ReturnNext(artifact stage.Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result{artifact: artifact})
}

// Hold makes executions block until Release is called.
func (s *stubExecutor) Hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.block = make(chan struct{})
}

// Release unblocks held executions.
func (s *stubExecutor) Release() {
	s.mu.Lock()
	block := s.block
	s.block = nil
	s.mu.Unlock()
	if block != nil {
		close(block)
	}
}

// WaitStarted blocks until an execution begins or the deadline passes.
func (s *stubExecutor) WaitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-s.started:
	case <-time.After(5 * time.Second):
		t.Fatalf("stage %s never started", s.name)
	}
}

func sampleArtifact(name stage.Name, workDir string) stage.Artifact {
	switch name {
	case stage.Download:
		return stage.MediaArtifact{VideoPath: filepath.Join(workDir, "source.mp4"), Format: "mp4"}
	case stage.Transcribe:
		return stage.TranscriptArtifact{Text: "source transcript", Language: "en"}
	case stage.Translate:
		return stage.TranslationArtifact{Text: "translated transcript", Language: "es"}
	case stage.Enrich:
		return stage.EnrichmentArtifact{Summary: "a short clip", Tags: []string{"clip"}}
	case stage.Script:
		return stage.ScriptArtifact{Text: "narration script"}
	case stage.Synthesize:
		return stage.SpeechArtifact{AudioPath: filepath.Join(workDir, "narration.mp3"), DurationSeconds: 3}
	case stage.Remux:
		return stage.RemuxArtifact{VideoPath: filepath.Join(workDir, "localized.mp4")}
	case stage.Publish:
		return stage.PublishArtifact{LibraryPath: filepath.Join(workDir, "library.mp4"), SyncedAt: time.Now().UTC()}
	default:
		return nil
	}
}

type harness struct {
	cfg       *config.Config
	store     *videostore.Store
	ctrl      *Controller
	executors map[stage.Name]*stubExecutor
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	stubs := make(map[stage.Name]*stubExecutor, stage.Count())
	executors := make(map[stage.Name]stage.Executor, stage.Count())
	for _, name := range stage.All() {
		stub := newStubExecutor(name)
		stubs[name] = stub
		executors[name] = stub
	}

	ctrl := NewControllerWithNotifier(cfg, store, logging.NewNop(), executors, nil)
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("controller start: %v", err)
	}
	t.Cleanup(ctrl.Stop)

	return &harness{cfg: cfg, store: store, ctrl: ctrl, executors: stubs}
}

func (h *harness) newVideo(t *testing.T) *videostore.Video {
	t.Helper()
	return testsupport.NewVideo(t, h.store, "https://clips.example/watch/v1")
}

// mutate applies a store mutation outside the controller, for test setup
// only.
func (h *harness) mutate(t *testing.T, id string, fn func(*videostore.Video) error) *videostore.Video {
	t.Helper()
	updated, err := h.store.CompareAndSwap(context.Background(), id, "", fn)
	if err != nil {
		t.Fatalf("test mutation: %v", err)
	}
	return updated
}

// markCompleted force-completes stages with sample artifacts, simulating
// prior successful runs.
func (h *harness) markCompleted(t *testing.T, id string, names ...stage.Name) {
	t.Helper()
	h.mutate(t, id, func(v *videostore.Video) error {
		for _, name := range names {
			encoded, err := stage.EncodeArtifact(sampleArtifact(name, h.cfg.Paths.WorkDir))
			if err != nil {
				return err
			}
			state := v.Stages[name]
			state.Status = stage.StatusCompleted
			state.Artifact = encoded
		}
		return nil
	})
}

func (h *harness) waitForStatus(t *testing.T, id string, name stage.Name, want stage.Status) *videostore.Video {
	t.Helper()
	var last *videostore.Video
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		v, err := h.store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("load video: %v", err)
		}
		last = v
		if v.Stages[name].Status == want {
			return v
		}
		time.Sleep(5 * time.Millisecond)
	}
	got := stage.Status("<missing>")
	if last != nil {
		got = last.Stages[name].Status
	}
	t.Fatalf("stage %s never reached %s (last status %s)", name, want, got)
	return nil
}

func (h *harness) waitForIdle(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if h.ctrl.InFlightCount() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("executions still in flight after deadline")
}
