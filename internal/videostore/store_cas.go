package videostore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"revoice/internal/stage"
)

// CompareAndSwap is the only way pipeline state changes after creation.
// It reloads the video inside a transaction, checks the pipeline run id,
// applies mutate, and writes the result back. When expectedRunID is
// non-empty and the stored run id differs, the write is rejected with
// ErrStaleRun and mutate never runs; that is how results from a
// superseded run are discarded.
//
// mutate may be invoked more than once when SQLite reports the database
// busy, each time against a freshly loaded video, so it must derive its
// changes purely from the video it is handed.
//
// Only pipeline state is written back: the run id, trigger time, and
// stage rows. Extracted metadata columns are set at Create and never
// touched again.
func (s *Store) CompareAndSwap(ctx context.Context, id, expectedRunID string, mutate func(*Video) error) (*Video, error) {
	ctx = ensureContext(ctx)
	if id == "" {
		return nil, errors.New("compare and swap: empty video id")
	}
	if mutate == nil {
		return nil, errors.New("compare and swap: nil mutation")
	}

	var updated *Video
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin swap transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		video, err := loadVideoTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if expectedRunID != "" && video.PipelineRunID != expectedRunID {
			return fmt.Errorf("%w: video %s is on run %s, caller holds %s", ErrStaleRun, id, video.PipelineRunID, expectedRunID)
		}

		if err := mutate(video); err != nil {
			return err
		}
		if err := validateStageSet(video); err != nil {
			return err
		}

		now := time.Now().UTC()
		video.UpdatedAt = now

		if _, err := tx.ExecContext(ctx, `
			UPDATE videos SET pipeline_run_id = ?, last_triggered_at = ?, updated_at = ? WHERE id = ?`,
			video.PipelineRunID,
			nullableTime(video.LastTriggeredAt),
			now.Format(time.RFC3339Nano),
			video.ID,
		); err != nil {
			return fmt.Errorf("update video %s: %w", id, err)
		}

		for _, name := range stage.All() {
			state := video.Stages[name]
			state.UpdatedAt = now
			if _, err := tx.ExecContext(ctx, `
				UPDATE video_stages SET status = ?, artifact_json = ?, error_message = ?, error_kind = ?, last_heartbeat = ?, updated_at = ?
				WHERE video_id = ? AND stage = ?`,
				string(state.Status),
				nullableString(state.Artifact),
				nullableString(state.ErrorMessage),
				nullableString(state.ErrorKind),
				nullableTime(state.LastHeartbeat),
				now.Format(time.RFC3339Nano),
				video.ID,
				string(name),
			); err != nil {
				return fmt.Errorf("update stage %s for video %s: %w", name, id, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit swap: %w", err)
		}
		updated = video
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func loadVideoTx(ctx context.Context, tx *sql.Tx, id string) (*Video, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+videoColumns+" FROM videos WHERE id = ?", id)
	video, err := scanVideoRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: video %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("load video %s: %w", id, err)
	}

	rows, err := tx.QueryContext(ctx, "SELECT "+stageColumns+" FROM video_stages WHERE video_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("load stage rows for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		stageRow, err := scanStageRow(rows)
		if err != nil {
			return nil, err
		}
		video.Stages[stageRow.name] = stageRow.state
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stage rows for %s: %w", id, err)
	}
	if err := validateStageSet(video); err != nil {
		return nil, err
	}
	return video, nil
}

// UpdateHeartbeat refreshes the liveness timestamp of a running stage.
// This bypasses CompareAndSwap on purpose: the heartbeat is advisory and
// the status guard in the WHERE clause means a heartbeat that races a
// completion simply updates nothing.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string, name stage.Name, now time.Time) error {
	ctx = ensureContext(ctx)
	_, err := s.execWithRetry(ctx, `
		UPDATE video_stages SET last_heartbeat = ? WHERE video_id = ? AND stage = ? AND status = ?`,
		now.UTC().Format(time.RFC3339Nano),
		id,
		string(name),
		string(stage.StatusRunning),
	)
	if err != nil {
		return fmt.Errorf("update heartbeat for %s/%s: %w", id, name, err)
	}
	return nil
}

// ReclaimedStage identifies one stage that ReclaimStale flipped from
// running to failed.
type ReclaimedStage struct {
	VideoID string
	Stage   stage.Name
}

// ReclaimStale returns every running stage whose heartbeat is older than
// olderThan back to not_started so a later advance can dispatch it again.
// Passing zero reclaims all running stages, which is what daemon startup
// wants: nothing can legitimately be running before the dispatcher
// exists. Time comparison happens in Go because stored timestamps are
// strings.
func (s *Store) ReclaimStale(ctx context.Context, olderThan time.Duration) ([]ReclaimedStage, error) {
	ctx = ensureContext(ctx)
	cutoff := time.Now().UTC().Add(-olderThan)

	rows, err := s.db.QueryContext(ctx, "SELECT "+stageColumns+" FROM video_stages WHERE status = ?", string(stage.StatusRunning))
	if err != nil {
		return nil, fmt.Errorf("list running stages: %w", err)
	}

	var stale []ReclaimedStage
	for rows.Next() {
		row, err := scanStageRow(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		observed := row.state.UpdatedAt
		if row.state.LastHeartbeat != nil {
			observed = *row.state.LastHeartbeat
		}
		if observed.Before(cutoff) || olderThan == 0 {
			stale = append(stale, ReclaimedStage{VideoID: row.videoID, Stage: row.name})
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate running stages: %w", err)
	}
	rows.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, item := range stale {
		if _, err := s.execWithRetry(ctx, `
			UPDATE video_stages SET status = ?, artifact_json = NULL, error_message = NULL, error_kind = NULL, last_heartbeat = NULL, updated_at = ?
			WHERE video_id = ? AND stage = ? AND status = ?`,
			string(stage.StatusNotStarted),
			now,
			item.VideoID,
			string(item.Stage),
			string(stage.StatusRunning),
		); err != nil {
			return stale, fmt.Errorf("reclaim %s/%s: %w", item.VideoID, item.Stage, err)
		}
	}
	return stale, nil
}
