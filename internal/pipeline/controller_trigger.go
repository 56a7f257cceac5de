package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/stage"
	"revoice/internal/videostore"
)

// Process resumes the pipeline for a video: every stage whose dependencies
// have all completed and that has not started this run is dispatched once.
// Completed stages are never re-executed, so calling Process on a finished
// video dispatches nothing. The call returns as soon as the claimed stages
// are handed to the dispatcher.
func (c *Controller) Process(ctx context.Context, id string) ([]stage.Name, error) {
	return c.trigger(ctx, id, func(v *videostore.Video) ([]stage.Name, error) {
		v.MarkTriggered(time.Now().UTC())
		return c.claimEligible(v), nil
	})
}

// Reprocess discards all pipeline state and starts a fresh run under a new
// run identifier, keeping the extracted metadata. Executions still in flight
// from the previous run carry the old identifier and are discarded when they
// report.
func (c *Controller) Reprocess(ctx context.Context, id string) ([]stage.Name, error) {
	return c.trigger(ctx, id, func(v *videostore.Video) ([]stage.Name, error) {
		now := time.Now().UTC()
		v.ResetForRun(uuid.NewString(), now)
		v.MarkTriggered(now)
		return c.claimEligible(v), nil
	})
}

// RetryStage re-runs a single failed stage. Only failed stages whose
// recorded failure kind is retryable qualify, and every dependency must
// still be completed; anything else is rejected before any state changes.
func (c *Controller) RetryStage(ctx context.Context, id string, name stage.Name) error {
	if !stage.Known(name) {
		return fmt.Errorf("retry: unknown stage %q", name)
	}
	_, err := c.trigger(ctx, id, func(v *videostore.Video) ([]stage.Name, error) {
		state := v.Stages[name]
		if state.Status == stage.StatusRunning {
			return nil, fmt.Errorf("%w: %s/%s", ErrAlreadyRunning, v.ID, name)
		}
		if state.Status != stage.StatusFailed {
			return nil, fmt.Errorf("%w: %s is %s", ErrStageNotFailed, name, state.Status)
		}
		if kind, ok := services.ParseKind(state.ErrorKind); ok && !kind.Retryable() {
			return nil, fmt.Errorf("%w: %s failed with %s: %s", ErrNotRetryable, name, kind, state.ErrorMessage)
		}
		for _, dep := range stage.Dependencies(name) {
			if v.Stages[dep].Status != stage.StatusCompleted {
				return nil, fmt.Errorf("%w: %s depends on %s, which is %s", ErrStaleDependency, name, dep, v.Stages[dep].Status)
			}
		}
		now := time.Now().UTC()
		c.markRunning(v, name, now)
		v.MarkTriggered(now)
		return []stage.Name{name}, nil
	})
	return err
}

// ResumeAll advances every video that has runnable stages. The daemon calls
// this once at startup, after interrupted executions have been reclaimed.
func (c *Controller) ResumeAll(ctx context.Context) (int, error) {
	videos, err := c.store.List(ctx)
	if err != nil {
		return 0, err
	}
	resumed := 0
	for _, v := range videos {
		if len(stage.NextEligible(v.StatusMap())) == 0 {
			continue
		}
		started, err := c.advance(ctx, v.ID)
		if err != nil {
			logging.WithContext(ctx, c.logger).Warn("startup resume failed",
				logging.String(logging.FieldVideoID, v.ID),
				logging.Error(err),
			)
			continue
		}
		if len(started) > 0 {
			resumed++
		}
	}
	return resumed, nil
}

// advance claims and dispatches whatever is eligible for the video's current
// generation right now. Unlike Process it does not count as a user trigger.
func (c *Controller) advance(ctx context.Context, id string) ([]stage.Name, error) {
	return c.trigger(ctx, id, func(v *videostore.Video) ([]stage.Name, error) {
		return c.claimEligible(v), nil
	})
}

// trigger applies mutate under the video's lock and then dispatches whatever
// it claimed. The lock covers only the store write; dispatching and executor
// I/O happen after it is released. Contract violations found while
// dispatching (unreadable inputs, missing executors) are persisted as stage
// failures and also surfaced to the caller.
func (c *Controller) trigger(ctx context.Context, id string, mutate func(*videostore.Video) ([]stage.Name, error)) ([]stage.Name, error) {
	var claimed []stage.Name
	unlock := c.locks.lock(id)
	updated, err := c.store.CompareAndSwap(ctx, id, "", func(v *videostore.Video) error {
		claimed = claimed[:0]
		names, err := mutate(v)
		if err != nil {
			return err
		}
		claimed = append(claimed, names...)
		return nil
	})
	unlock()
	if err != nil {
		return nil, err
	}

	return claimed, c.dispatchClaimed(ctx, updated, claimed)
}

// claimEligible flips every currently eligible stage to running and returns
// them in canonical order.
func (c *Controller) claimEligible(v *videostore.Video) []stage.Name {
	now := time.Now().UTC()
	eligible := stage.NextEligible(v.StatusMap())
	for _, name := range eligible {
		c.markRunning(v, name, now)
	}
	return eligible
}

func (c *Controller) markRunning(v *videostore.Video, name stage.Name, now time.Time) {
	state := v.Stages[name]
	state.Status = stage.StatusRunning
	state.Artifact = ""
	state.ErrorMessage = ""
	state.ErrorKind = ""
	state.LastHeartbeat = &now
}

// dispatchClaimed hands each claimed stage to the dispatcher. Start failures
// resolve immediately: unreadable inputs and missing executors fail the
// stage and the first such violation is returned, while a busy slot means a
// superseded execution is still reporting, so the claim is returned for the
// post-discard advance to pick up.
func (c *Controller) dispatchClaimed(ctx context.Context, v *videostore.Video, claimed []stage.Name) error {
	if len(claimed) == 0 {
		return nil
	}
	logger := logging.WithContext(ctx, c.logger)
	snapshot := v.Snapshot()
	runID := v.PipelineRunID

	var firstViolation error
	for _, name := range claimed {
		executor, ok := c.executors[name]
		if !ok || executor == nil {
			violation := services.Wrap(services.ErrConfiguration, string(name), "dispatch", "no executor registered", nil)
			c.failClaimed(ctx, v.ID, runID, name, violation)
			if firstViolation == nil {
				firstViolation = violation
			}
			continue
		}
		req, err := c.buildRequest(v, snapshot, name)
		if err != nil {
			c.failClaimed(ctx, v.ID, runID, name, err)
			if firstViolation == nil {
				firstViolation = err
			}
			continue
		}
		task := func(taskCtx context.Context) (stage.Artifact, error) {
			return executor.Execute(taskCtx, req)
		}
		if err := c.dispatcher.Dispatch(v.ID, name, runID, task); err != nil {
			c.unclaim(ctx, v.ID, runID, name)
			if errors.Is(err, ErrAlreadyRunning) {
				logger.Debug("stage slot busy with a superseded execution; claim returned",
					logging.String(logging.FieldVideoID, v.ID),
					logging.String(logging.FieldStage, string(name)),
				)
			} else {
				logger.Warn("dispatch rejected; claim returned",
					logging.String(logging.FieldVideoID, v.ID),
					logging.String(logging.FieldStage, string(name)),
					logging.Error(err),
				)
			}
			continue
		}
		logger.Info("stage dispatched",
			logging.String(logging.FieldVideoID, v.ID),
			logging.String(logging.FieldStage, string(name)),
			logging.String(logging.FieldRunID, runID),
		)
	}
	return firstViolation
}

// buildRequest assembles the executor's view of the video: the metadata
// snapshot, the decoded artifacts of the stage's declared dependencies, and
// the per-video scratch directory.
func (c *Controller) buildRequest(v *videostore.Video, snapshot stage.VideoSnapshot, name stage.Name) (stage.Request, error) {
	inputs := make(map[stage.Name]stage.Artifact)
	for _, dep := range stage.Dependencies(name) {
		payload := v.Stages[dep].Artifact
		if payload == "" {
			return stage.Request{}, services.Wrap(services.ErrValidation, string(name), "inputs",
				fmt.Sprintf("dependency %s completed without an artifact", dep), ErrInputMissing)
		}
		artifact, err := stage.DecodeArtifact(dep, payload)
		if err != nil {
			return stage.Request{}, services.Wrap(services.ErrValidation, string(name), "inputs",
				fmt.Sprintf("dependency %s artifact unreadable", dep), err)
		}
		inputs[dep] = artifact
	}

	workDir := filepath.Join(c.cfg.Paths.WorkDir, v.ID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return stage.Request{}, services.Wrap(services.ErrTransient, string(name), "workspace", "create work directory", err)
	}
	return stage.Request{Video: snapshot, Inputs: inputs, WorkDir: workDir}, nil
}

// failClaimed records a failure for a stage that never reached the
// dispatcher, through the same choke point executor outcomes use.
func (c *Controller) failClaimed(ctx context.Context, videoID, runID string, name stage.Name, failure error) {
	followUp := c.stageOutcome(ctx, Outcome{VideoID: videoID, Stage: name, RunID: runID, Err: failure})
	if followUp != nil {
		followUp(ctx)
	}
}

// unclaim returns a claimed stage to not_started after a dispatch rejection
// so a later advance can claim it again.
func (c *Controller) unclaim(ctx context.Context, videoID, runID string, name stage.Name) {
	unlock := c.locks.lock(videoID)
	defer unlock()
	_, err := c.store.CompareAndSwap(ctx, videoID, runID, func(v *videostore.Video) error {
		state := v.Stages[name]
		if state.Status == stage.StatusRunning {
			state.Status = stage.StatusNotStarted
			state.LastHeartbeat = nil
		}
		return nil
	})
	if err != nil && !errors.Is(err, videostore.ErrStaleRun) && !errors.Is(err, videostore.ErrNotFound) {
		logging.WithContext(ctx, c.logger).Warn("failed to return claimed stage",
			logging.String(logging.FieldVideoID, videoID),
			logging.String(logging.FieldStage, string(name)),
			logging.Error(err),
		)
	}
}
