package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"revoice/internal/config"
	"revoice/internal/logging"
	"revoice/internal/notifications"
	"revoice/internal/stage"
	"revoice/internal/videostore"
)

// Controller owns every pipeline state transition for every video. User
// triggers (Process, Reprocess, RetryStage) and executor outcomes all pass
// through the same claim-and-dispatch path, so each stage executes at most
// once per pipeline run.
type Controller struct {
	cfg        *config.Config
	store      *videostore.Store
	logger     *slog.Logger
	notifier   notifications.Service
	executors  map[stage.Name]stage.Executor
	dispatcher *Dispatcher
	locks      *videoLocks
}

// NewController constructs a controller with notifications wired from config.
func NewController(cfg *config.Config, store *videostore.Store, logger *slog.Logger, executors map[stage.Name]stage.Executor) *Controller {
	return NewControllerWithNotifier(cfg, store, logger, executors, notifications.NewService(cfg))
}

// NewControllerWithNotifier constructs a controller with a custom notifier
// (used in tests).
func NewControllerWithNotifier(cfg *config.Config, store *videostore.Store, logger *slog.Logger, executors map[stage.Name]stage.Executor, notifier notifications.Service) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Controller{
		cfg:       cfg,
		store:     store,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		notifier:  notifier,
		executors: executors,
		locks:     newVideoLocks(),
	}
	c.dispatcher = NewDispatcher(cfg, store, logger, c.stageOutcome)
	return c
}

// Start makes the controller accept work until Stop is called.
func (c *Controller) Start(ctx context.Context) error {
	return c.dispatcher.Start(ctx)
}

// Stop cancels in-flight stage executions and waits for them to wind down.
func (c *Controller) Stop() {
	c.dispatcher.Stop()
}

// Get loads a video with its full stage map.
func (c *Controller) Get(ctx context.Context, id string) (*videostore.Video, error) {
	return c.store.GetByID(ctx, id)
}

// List returns every video, oldest first.
func (c *Controller) List(ctx context.Context) ([]*videostore.Video, error) {
	return c.store.List(ctx)
}

// Stats summarizes the library.
func (c *Controller) Stats(ctx context.Context) (videostore.HealthSummary, error) {
	return c.store.Stats(ctx)
}

// InFlight lists the stages currently executing for a video.
func (c *Controller) InFlight(id string) []stage.Name {
	return c.dispatcher.InFlight(id)
}

// InFlightCount reports how many stage executions are running across all
// videos.
func (c *Controller) InFlightCount() int {
	return c.dispatcher.Len()
}

// Delete removes a video and its scratch directory. Results still in flight
// report into a missing record and are discarded.
func (c *Controller) Delete(ctx context.Context, id string) error {
	unlock := c.locks.lock(id)
	err := c.store.Delete(ctx, id)
	unlock()
	if err != nil {
		return err
	}

	workDir := filepath.Join(c.cfg.Paths.WorkDir, id)
	if removeErr := os.RemoveAll(workDir); removeErr != nil {
		logging.WithContext(ctx, c.logger).Warn("failed to remove work directory",
			logging.String(logging.FieldVideoID, id),
			logging.Error(removeErr),
		)
	}
	return nil
}

func displayTitle(v *videostore.Video) string {
	if title := strings.TrimSpace(v.Title); title != "" {
		return title
	}
	return v.SourceURL
}
