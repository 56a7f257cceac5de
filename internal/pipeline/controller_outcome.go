package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/stage"
	"revoice/internal/videostore"
)

// stageOutcome is the single choke point every execution result passes
// through. It persists the outcome under the run identifier the execution
// was started for — results from superseded runs are discarded by the store
// — and returns the follow-up advance to run once the dispatcher has freed
// the slot.
func (c *Controller) stageOutcome(ctx context.Context, o Outcome) func(context.Context) {
	logger := logging.WithContext(ctx, c.logger).With(logging.Args(
		logging.String(logging.FieldVideoID, o.VideoID),
		logging.String(logging.FieldStage, string(o.Stage)),
		logging.String(logging.FieldRunID, o.RunID),
	)...)

	encoded := ""
	if o.Err == nil {
		encoded, o.Err = c.encodeOutcomeArtifact(o)
	}

	updated, err := c.store.CompareAndSwap(ctx, o.VideoID, o.RunID, func(v *videostore.Video) error {
		state := v.Stages[o.Stage]
		if o.Err != nil {
			state.Status = stage.StatusFailed
			state.ErrorMessage = o.Err.Error()
			state.ErrorKind = string(services.Classify(o.Err))
			state.Artifact = ""
			state.LastHeartbeat = nil
			return nil
		}
		state.Status = stage.StatusCompleted
		state.Artifact = encoded
		state.ErrorMessage = ""
		state.ErrorKind = ""
		state.LastHeartbeat = nil
		return nil
	})
	switch {
	case errors.Is(err, videostore.ErrStaleRun):
		logger.Info("discarded result from superseded run",
			logging.Bool("succeeded", o.Err == nil),
			logging.Duration("stage_duration", o.Elapsed),
		)
		// The current generation may want this stage; claim it once the
		// dispatcher has freed the slot.
		return func(followCtx context.Context) {
			if _, advErr := c.advance(followCtx, o.VideoID); advErr != nil && !errors.Is(advErr, videostore.ErrNotFound) {
				logger.Warn("advance after stale discard failed", logging.Error(advErr))
			}
		}
	case errors.Is(err, videostore.ErrNotFound):
		logger.Info("discarded result for deleted video")
		return nil
	case err != nil:
		logger.Error("failed to persist stage outcome", logging.Error(err))
		return nil
	}

	if o.Err != nil {
		c.logStageFailure(logger, o)
		c.notifyStageFailed(ctx, updated, o.Stage)
		// A failure gates only its dependents. Independent branches hold
		// their own slots and keep running; nothing new becomes eligible.
		return nil
	}

	logger.Info("stage completed",
		logging.String(logging.FieldStatus, string(stage.StatusCompleted)),
		logging.Duration("stage_duration", o.Elapsed),
	)
	if o.Stage == stage.Publish {
		c.notifyLocalized(ctx, updated)
	}

	return func(followCtx context.Context) {
		if _, advErr := c.advance(followCtx, o.VideoID); advErr != nil && !errors.Is(advErr, videostore.ErrNotFound) {
			logger.Warn("advance after completion failed", logging.Error(advErr))
		}
	}
}

// encodeOutcomeArtifact validates and serializes a successful execution's
// artifact. A missing or mismatched artifact is a stage failure, not a
// persistence error.
func (c *Controller) encodeOutcomeArtifact(o Outcome) (string, error) {
	if o.Artifact == nil {
		return "", services.Wrap(services.ErrValidation, string(o.Stage), "execute", "executor returned no artifact", nil)
	}
	if o.Artifact.Stage() != o.Stage {
		return "", services.Wrap(services.ErrValidation, string(o.Stage), "execute",
			"executor returned an artifact for stage "+string(o.Artifact.Stage()), nil)
	}
	encoded, err := stage.EncodeArtifact(o.Artifact)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, string(o.Stage), "execute", "artifact not serializable", err)
	}
	return encoded, nil
}

func (c *Controller) logStageFailure(logger *slog.Logger, o Outcome) {
	kind := services.Classify(o.Err)
	logger.Error("stage failed",
		logging.String(logging.FieldStatus, string(stage.StatusFailed)),
		logging.String(logging.FieldErrorKind, string(kind)),
		logging.Bool("retryable", kind.Retryable()),
		logging.Duration("stage_duration", o.Elapsed),
		logging.Error(o.Err),
	)
}

func (c *Controller) notifyStageFailed(ctx context.Context, v *videostore.Video, name stage.Name) {
	if c.notifier == nil {
		return
	}
	state := v.Stages[name]
	if err := c.notifier.NotifyStageFailed(ctx, displayTitle(v), string(name), state.ErrorMessage); err != nil {
		logging.WithContext(ctx, c.logger).Debug("stage failure notification failed", logging.Error(err))
	}
}

func (c *Controller) notifyLocalized(ctx context.Context, v *videostore.Video) {
	if c.notifier == nil {
		return
	}
	libraryPath := ""
	if artifact, err := stage.DecodeArtifact(stage.Publish, v.Stages[stage.Publish].Artifact); err == nil {
		if publish, ok := artifact.(stage.PublishArtifact); ok {
			libraryPath = publish.LibraryPath
		}
	}
	if err := c.notifier.NotifyVideoLocalized(ctx, displayTitle(v), libraryPath); err != nil {
		logging.WithContext(ctx, c.logger).Debug("localized notification failed", logging.Error(err))
	}
}
