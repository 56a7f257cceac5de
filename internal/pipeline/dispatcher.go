package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"revoice/internal/config"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/stage"
	"revoice/internal/videostore"
)

// Task runs one stage execution and returns its artifact.
type Task func(ctx context.Context) (stage.Artifact, error)

// Outcome reports how one dispatched execution ended. RunID is the pipeline
// generation the execution was started for, which may no longer be current
// by the time the outcome is reported.
type Outcome struct {
	VideoID  string
	Stage    stage.Name
	RunID    string
	Artifact stage.Artifact
	Err      error
	Elapsed  time.Duration
}

// Sink receives every outcome exactly once. The returned follow-up, if any,
// runs only after the dispatcher has released the (video, stage) slot, so it
// may dispatch the same stage again.
type Sink func(ctx context.Context, outcome Outcome) func(context.Context)

type flightKey struct {
	videoID string
	name    stage.Name
}

// Dispatcher runs stage executions with per-stage timeouts and heartbeats,
// at most one at a time per (video, stage).
type Dispatcher struct {
	store             *videostore.Store
	logger            *slog.Logger
	sink              Sink
	stageTimeout      func(stage.Name) time.Duration
	heartbeatInterval time.Duration

	mu       sync.Mutex
	running  bool
	runCtx   context.Context
	cancel   context.CancelFunc
	inflight map[flightKey]struct{}
	wg       sync.WaitGroup
}

// NewDispatcher constructs a dispatcher that reports every outcome to sink.
func NewDispatcher(cfg *config.Config, store *videostore.Store, logger *slog.Logger, sink Sink) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		store:             store,
		logger:            logging.NewComponentLogger(logger, "dispatcher"),
		sink:              sink,
		stageTimeout:      cfg.StageTimeout,
		heartbeatInterval: cfg.HeartbeatInterval(),
		inflight:          make(map[flightKey]struct{}),
	}
}

// Start makes the dispatcher accept work until Stop is called. Executions
// run under a context derived from ctx.
func (d *Dispatcher) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errors.New("dispatcher already running")
	}
	d.runCtx, d.cancel = context.WithCancel(ctx)
	d.running = true
	return nil
}

// Stop cancels in-flight executions and waits for their goroutines to finish
// reporting.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	cancel := d.cancel
	d.running = false
	d.cancel = nil
	d.mu.Unlock()

	cancel()
	d.wg.Wait()
}

// Dispatch starts task for (videoID, name) under the given run identifier.
// A second dispatch for the same key while the first is still reporting is
// rejected with ErrAlreadyRunning.
func (d *Dispatcher) Dispatch(videoID string, name stage.Name, runID string, task Task) error {
	if task == nil {
		return errors.New("dispatch: nil task")
	}
	key := flightKey{videoID: videoID, name: name}

	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return ErrStopped
	}
	if _, busy := d.inflight[key]; busy {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", ErrAlreadyRunning, videoID, name)
	}
	d.inflight[key] = struct{}{}
	runCtx := d.runCtx
	d.wg.Add(1)
	d.mu.Unlock()

	go d.run(runCtx, key, runID, task)
	return nil
}

func (d *Dispatcher) run(runCtx context.Context, key flightKey, runID string, task Task) {
	defer d.wg.Done()

	released := false
	release := func() {
		if !released {
			released = true
			d.mu.Lock()
			delete(d.inflight, key)
			d.mu.Unlock()
		}
	}
	defer release()

	ctx := services.WithVideoID(runCtx, key.videoID)
	ctx = services.WithStage(ctx, string(key.name))
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, d.logger)

	timeout := d.stageTimeout(key.name)
	execCtx, cancelExec := context.WithTimeout(ctx, timeout)
	defer cancelExec()

	hbCtx, cancelHeartbeat := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go d.heartbeatLoop(hbCtx, &hbWG, key)

	started := time.Now()
	artifact, execErr := task(execCtx)
	elapsed := time.Since(started)
	cancelHeartbeat()
	hbWG.Wait()

	if execErr != nil && errors.Is(execErr, context.Canceled) && runCtx.Err() != nil {
		// Shutdown interrupted the stage. The row stays running; startup
		// reclaim returns it to not_started.
		logger.Debug("stage interrupted by shutdown", logging.Duration("elapsed", elapsed))
		return
	}
	if execErr != nil && errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		execErr = services.Wrap(services.ErrTimeout, string(key.name), "execute",
			fmt.Sprintf("stage exceeded its %s budget", timeout), execErr)
	}

	// Report on a context that survives shutdown so finished work is never
	// lost to a cancelled persist.
	reportCtx := context.WithoutCancel(ctx)
	followUp := d.sink(reportCtx, Outcome{
		VideoID:  key.videoID,
		Stage:    key.name,
		RunID:    runID,
		Artifact: artifact,
		Err:      execErr,
		Elapsed:  elapsed,
	})
	release()
	if followUp != nil {
		followUp(reportCtx)
	}
}

func (d *Dispatcher) heartbeatLoop(ctx context.Context, wg *sync.WaitGroup, key flightKey) {
	defer wg.Done()
	if d.heartbeatInterval <= 0 {
		return
	}
	ticker := time.NewTicker(d.heartbeatInterval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, d.logger)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.store.UpdateHeartbeat(ctx, key.videoID, key.name, time.Now().UTC()); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Debug("heartbeat update cancelled by shutdown")
				} else {
					logger.Warn("heartbeat update failed", logging.Error(err))
				}
			}
		}
	}
}

// InFlight lists the stages currently executing for a video in canonical
// order.
func (d *Dispatcher) InFlight(videoID string) []stage.Name {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []stage.Name
	for _, name := range stage.All() {
		if _, busy := d.inflight[flightKey{videoID: videoID, name: name}]; busy {
			out = append(out, name)
		}
	}
	return out
}

// Len reports how many executions are in flight across all videos.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inflight)
}
