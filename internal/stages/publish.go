package stages

import (
	"context"
	"log/slog"
	"os"
	"time"

	"revoice/internal/config"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/services/publisher"
	"revoice/internal/stage"
)

// PublishExecutor moves the localized video into the library and reports the
// placement to the optional record sync endpoint.
type PublishExecutor struct {
	cfg       *config.Config
	logger    *slog.Logger
	publisher libraryPublisher
	now       func() time.Time
}

// NewPublishExecutor constructs the publish stage executor.
func NewPublishExecutor(cfg *config.Config, logger *slog.Logger, p libraryPublisher) *PublishExecutor {
	return &PublishExecutor{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "stage-publish"),
		publisher: p,
		now:       time.Now,
	}
}

// Execute places the localized video in the library. Record sync failures do
// not fail the stage: the file is already in place, so the placement is
// logged and the artifact carries a zero SyncedAt.
func (e *PublishExecutor) Execute(ctx context.Context, req stage.Request) (stage.Artifact, error) {
	remuxed, err := requireInput[stage.RemuxArtifact](req, stage.Remux, stage.Publish)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(remuxed.VideoPath); statErr != nil {
		return nil, services.Wrap(services.ErrNotFound, "publish", "validate inputs",
			"localized video missing from work directory", statErr)
	}

	libraryPath, err := e.publisher.Place(ctx, remuxed.VideoPath, req.Video.Title, e.cfg.Translate.TargetLanguage)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "publish", "move to library",
			"library placement failed", err)
	}

	logger := logging.WithContext(ctx, e.logger)
	artifact := stage.PublishArtifact{LibraryPath: libraryPath}
	if e.publisher.SyncConfigured() {
		record := publisher.Record{
			VideoID:     req.Video.ID,
			Title:       req.Video.Title,
			Language:    e.cfg.Translate.TargetLanguage,
			LibraryPath: libraryPath,
		}
		if syncErr := e.publisher.SyncRecord(ctx, record); syncErr != nil {
			logger.Warn("record sync failed", logging.Error(syncErr))
		} else {
			artifact.SyncedAt = e.now().UTC()
		}
	}

	logger.Info("publish completed",
		logging.String("library_path", libraryPath),
		logging.Bool("synced", !artifact.SyncedAt.IsZero()),
	)
	return artifact, nil
}

// HealthCheck reports whether the library directory is writable.
func (e *PublishExecutor) HealthCheck(ctx context.Context) stage.Health {
	if err := e.publisher.CheckHealth(ctx); err != nil {
		return stage.Unhealthy("publish", err.Error())
	}
	return stage.Healthy("publish")
}
