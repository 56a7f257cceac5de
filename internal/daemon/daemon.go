package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"revoice/internal/config"
	"revoice/internal/httpapi"
	"revoice/internal/ingest"
	"revoice/internal/logging"
	"revoice/internal/pipeline"
	"revoice/internal/stage"
	"revoice/internal/videostore"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *videostore.Store
	controller *pipeline.Controller
	ingest     *ingest.Service
	executors  map[stage.Name]stage.Executor

	apiServer *httpapi.Server
	inbox     *inboxWatcher

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon with initialized dependencies. The executor map is
// used for collaborator health reporting; orchestration already holds its own
// reference through the controller.
func New(cfg *config.Config, store *videostore.Store, controller *pipeline.Controller, ingestSvc *ingest.Service, executors map[stage.Name]stage.Executor, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || controller == nil {
		return nil, errors.New("daemon requires config, store, and controller")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "revoiced.lock")
	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      store,
		controller: controller,
		ingest:     ingestSvc,
		executors:  executors,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}

	apiServer, err := httpapi.NewServer(cfg, logger, controller, ingestSvc, d.stageHealth)
	if err != nil {
		return nil, fmt.Errorf("configure api server: %w", err)
	}
	d.apiServer = apiServer

	if cfg.Inbox.Enabled {
		d.inbox = newInboxWatcher(cfg, ingestSvc, logger)
	}
	return d, nil
}

// Start acquires the instance lock, recovers interrupted work, and launches
// the API server and inbox watcher.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another revoice daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	// The lock guarantees no other daemon is executing stages, so every
	// running row is an interrupted execution regardless of heartbeat age.
	reclaimed, err := d.store.ReclaimStale(d.ctx, 0)
	if err != nil {
		d.releaseAfterFailedStart()
		return fmt.Errorf("reclaim interrupted stages: %w", err)
	}
	for _, entry := range reclaimed {
		d.logger.Warn("reclaimed interrupted stage",
			logging.String(logging.FieldVideoID, entry.VideoID),
			logging.String(logging.FieldStage, string(entry.Stage)),
		)
	}

	if err := d.controller.Start(d.ctx); err != nil {
		d.releaseAfterFailedStart()
		return fmt.Errorf("start pipeline controller: %w", err)
	}

	resumed, err := d.controller.ResumeAll(d.ctx)
	if err != nil {
		d.logger.Warn("resume of pending videos failed", logging.Error(err))
	} else if resumed > 0 {
		d.logger.Info("resumed pending videos", logging.Int("videos", resumed))
	}

	if err := d.apiServer.Start(d.ctx); err != nil {
		d.controller.Stop()
		d.releaseAfterFailedStart()
		return fmt.Errorf("start api server: %w", err)
	}

	if d.inbox != nil {
		if err := d.inbox.Start(d.ctx); err != nil {
			d.logger.Warn("inbox watcher failed to start", logging.Error(err))
			d.inbox = nil
		}
	}

	d.wg.Add(1)
	go d.reclaimLoop(d.ctx)

	d.running.Store(true)
	d.logger.Info("revoice daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.apiServer.Addr()),
	)
	return nil
}

func (d *Daemon) releaseAfterFailedStart() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ctx = nil
	_ = d.lock.Unlock()
}

// Stop winds down background processing and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if d.inbox != nil {
		d.inbox.Stop()
	}
	d.apiServer.Stop()
	d.controller.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("revoice daemon stopped")
}

// Close stops the daemon and releases the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon has started and not yet stopped.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// APIAddr reports the bound API address, empty before Start.
func (d *Daemon) APIAddr() string {
	return d.apiServer.Addr()
}

// reclaimLoop periodically returns running stages with expired heartbeats to
// not_started and re-advances the affected videos. This catches executions
// that die without reporting an outcome while the daemon itself keeps
// running.
func (d *Daemon) reclaimLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.HeartbeatInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		reclaimed, err := d.store.ReclaimStale(ctx, d.cfg.HeartbeatTimeout())
		if err != nil {
			d.logger.Warn("stale stage reclaim failed; stuck stages may remain", logging.Error(err))
			continue
		}
		videos := make(map[string]struct{}, len(reclaimed))
		for _, entry := range reclaimed {
			d.logger.Warn("reclaimed stage with expired heartbeat",
				logging.String(logging.FieldVideoID, entry.VideoID),
				logging.String(logging.FieldStage, string(entry.Stage)),
			)
			videos[entry.VideoID] = struct{}{}
		}
		for id := range videos {
			if _, err := d.controller.Process(ctx, id); err != nil {
				d.logger.Warn("failed to resume reclaimed video",
					logging.String(logging.FieldVideoID, id),
					logging.Error(err),
				)
			}
		}
	}
}

// stageHealth collects readiness from every executor that exposes a health
// probe.
func (d *Daemon) stageHealth(ctx context.Context) []stage.Health {
	out := make([]stage.Health, 0, len(d.executors))
	for _, name := range stage.All() {
		executor, ok := d.executors[name]
		if !ok {
			continue
		}
		checker, ok := executor.(stage.HealthChecker)
		if !ok {
			continue
		}
		out = append(out, checker.HealthCheck(ctx))
	}
	return out
}
