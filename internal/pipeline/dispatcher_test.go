package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/stage"
	"revoice/internal/testsupport"
)

type sinkRecorder struct {
	mu       sync.Mutex
	outcomes []Outcome
	done     chan Outcome
}

func newSinkRecorder() *sinkRecorder {
	return &sinkRecorder{done: make(chan Outcome, 16)}
}

func (r *sinkRecorder) sink(_ context.Context, outcome Outcome) func(context.Context) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, outcome)
	r.mu.Unlock()
	r.done <- outcome
	return nil
}

func (r *sinkRecorder) wait(t *testing.T) Outcome {
	t.Helper()
	select {
	case outcome := <-r.done:
		return outcome
	case <-time.After(5 * time.Second):
		t.Fatal("no outcome reported")
		return Outcome{}
	}
}

func newTestDispatcher(t *testing.T, recorder *sinkRecorder, opts ...testsupport.ConfigOption) *Dispatcher {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	d := NewDispatcher(cfg, store, logging.NewNop(), recorder.sink)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("dispatcher start: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func TestDispatchRejectsDuplicateKey(t *testing.T) {
	recorder := newSinkRecorder()
	d := newTestDispatcher(t, recorder)

	release := make(chan struct{})
	task := func(ctx context.Context) (stage.Artifact, error) {
		select {
		case <-release:
			return stage.MediaArtifact{VideoPath: "a.mp4"}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := d.Dispatch("v1", stage.Download, "run-1", task); err != nil {
		t.Fatalf("first dispatch failed: %v", err)
	}
	if err := d.Dispatch("v1", stage.Download, "run-1", task); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("duplicate dispatch = %v, want ErrAlreadyRunning", err)
	}
	// A different stage for the same video and the same stage for a
	// different video both hold their own slots.
	if err := d.Dispatch("v1", stage.Transcribe, "run-1", task); err != nil {
		t.Fatalf("sibling stage dispatch failed: %v", err)
	}
	if err := d.Dispatch("v2", stage.Download, "run-1", task); err != nil {
		t.Fatalf("other video dispatch failed: %v", err)
	}
	if got := d.Len(); got != 3 {
		t.Errorf("in flight = %d, want 3", got)
	}
	if got := d.InFlight("v1"); len(got) != 2 || got[0] != stage.Download || got[1] != stage.Transcribe {
		t.Errorf("InFlight(v1) = %v", got)
	}

	close(release)
	for i := 0; i < 3; i++ {
		recorder.wait(t)
	}
	if got := d.Len(); got != 0 {
		t.Errorf("in flight after completion = %d, want 0", got)
	}
}

func TestDispatchReleasesSlotBeforeFollowUp(t *testing.T) {
	recorder := newSinkRecorder()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	var d *Dispatcher
	redispatched := make(chan error, 1)
	sink := func(ctx context.Context, outcome Outcome) func(context.Context) {
		recorder.sink(ctx, outcome)
		return func(context.Context) {
			redispatched <- d.Dispatch(outcome.VideoID, outcome.Stage, outcome.RunID, func(context.Context) (stage.Artifact, error) {
				return stage.MediaArtifact{VideoPath: "b.mp4"}, nil
			})
		}
	}
	d = NewDispatcher(cfg, store, logging.NewNop(), sink)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("dispatcher start: %v", err)
	}
	t.Cleanup(d.Stop)

	if err := d.Dispatch("v1", stage.Download, "run-1", func(context.Context) (stage.Artifact, error) {
		return stage.MediaArtifact{VideoPath: "a.mp4"}, nil
	}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	select {
	case err := <-redispatched:
		if err != nil {
			t.Fatalf("follow-up dispatch rejected: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("follow-up never ran")
	}
	recorder.wait(t)
	recorder.wait(t)
}

func TestDispatchAfterStopRejected(t *testing.T) {
	recorder := newSinkRecorder()
	d := newTestDispatcher(t, recorder)
	d.Stop()

	err := d.Dispatch("v1", stage.Download, "run-1", func(context.Context) (stage.Artifact, error) {
		return stage.MediaArtifact{VideoPath: "a.mp4"}, nil
	})
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("dispatch after stop = %v, want ErrStopped", err)
	}
}

func TestStageTimeoutClassifiedRetryable(t *testing.T) {
	recorder := newSinkRecorder()
	d := newTestDispatcher(t, recorder, testsupport.WithStageTimeout(string(stage.Download), 1))

	if err := d.Dispatch("v1", stage.Download, "run-1", func(ctx context.Context) (stage.Artifact, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	outcome := recorder.wait(t)
	if outcome.Err == nil {
		t.Fatal("timed-out execution reported success")
	}
	if kind := services.Classify(outcome.Err); kind != services.KindTimeout {
		t.Errorf("error kind = %s, want %s", kind, services.KindTimeout)
	}
	if !services.Retryable(outcome.Err) {
		t.Error("timeout classified as not retryable")
	}
}
