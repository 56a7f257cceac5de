package videostore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"revoice/internal/stage"
)

// Create persists a new video together with one row per pipeline stage.
// The stage rows are the only place stage state ever lives, so the insert
// happens in a single transaction.
func (s *Store) Create(ctx context.Context, video *Video) error {
	ctx = ensureContext(ctx)
	if video == nil {
		return errors.New("create: nil video")
	}
	if video.ID == "" {
		return errors.New("create: video has no id")
	}
	if err := validateStageSet(video); err != nil {
		return err
	}

	now := time.Now().UTC()
	video.CreatedAt = now
	video.UpdatedAt = now

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin create transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO videos (id, source_url, title, description, duration_seconds, cover_url, pipeline_run_id, last_triggered_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			video.ID,
			video.SourceURL,
			nullableString(video.Title),
			nullableString(video.Description),
			video.DurationSeconds,
			nullableString(video.CoverURL),
			video.PipelineRunID,
			nullableTime(video.LastTriggeredAt),
			now.Format(time.RFC3339Nano),
			now.Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("insert video: %w", err)
		}

		for _, name := range stage.All() {
			state := video.Stages[name]
			state.UpdatedAt = now
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO video_stages (video_id, stage, status, artifact_json, error_message, error_kind, last_heartbeat, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				video.ID,
				string(name),
				string(state.Status),
				nullableString(state.Artifact),
				nullableString(state.ErrorMessage),
				nullableString(state.ErrorKind),
				nullableTime(state.LastHeartbeat),
				now.Format(time.RFC3339Nano),
			); err != nil {
				return fmt.Errorf("insert stage %s: %w", name, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit create: %w", err)
		}
		return nil
	})
}

// GetByID loads a video and its full stage map. A video whose stage rows
// no longer match the fixed pipeline contract is reported as corrupt
// rather than silently patched.
func (s *Store) GetByID(ctx context.Context, id string) (*Video, error) {
	ctx = ensureContext(ctx)
	if id == "" {
		return nil, errors.New("get: empty video id")
	}

	row := s.db.QueryRowContext(ctx, "SELECT "+videoColumns+" FROM videos WHERE id = ?", id)
	video, err := scanVideoRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: video %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("load video %s: %w", id, err)
	}

	if err := s.loadStages(ctx, map[string]*Video{video.ID: video}); err != nil {
		return nil, err
	}
	if err := validateStageSet(video); err != nil {
		return nil, err
	}
	return video, nil
}

// FindBySourceURL returns the video ingested from the given URL, or
// ErrNotFound. Source URLs are unique per library by construction: Add
// checks here before creating.
func (s *Store) FindBySourceURL(ctx context.Context, sourceURL string) (*Video, error) {
	ctx = ensureContext(ctx)
	if sourceURL == "" {
		return nil, errors.New("find: empty source url")
	}

	row := s.db.QueryRowContext(ctx, "SELECT "+videoColumns+" FROM videos WHERE source_url = ? ORDER BY created_at DESC LIMIT 1", sourceURL)
	video, err := scanVideoRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: source url %s", ErrNotFound, sourceURL)
		}
		return nil, fmt.Errorf("find video by source url: %w", err)
	}

	if err := s.loadStages(ctx, map[string]*Video{video.ID: video}); err != nil {
		return nil, err
	}
	if err := validateStageSet(video); err != nil {
		return nil, err
	}
	return video, nil
}

// List returns every video ordered by creation time, oldest first, with
// stage maps populated. Uses one query for videos and one for all stage
// rows instead of a per-video round trip.
func (s *Store) List(ctx context.Context) ([]*Video, error) {
	ctx = ensureContext(ctx)

	rows, err := s.db.QueryContext(ctx, "SELECT "+videoColumns+" FROM videos ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var videos []*Video
	byID := make(map[string]*Video)
	for rows.Next() {
		video, err := scanVideoRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
		byID[video.ID] = video
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	if len(videos) == 0 {
		return nil, nil
	}

	if err := s.loadStages(ctx, byID); err != nil {
		return nil, err
	}
	for _, video := range videos {
		if err := validateStageSet(video); err != nil {
			return nil, err
		}
	}
	return videos, nil
}

// loadStages fills the Stages map of every video in byID from a single
// query. Stage rows referencing videos outside byID are skipped, which
// only matters for the targeted single-video loads.
func (s *Store) loadStages(ctx context.Context, byID map[string]*Video) error {
	if len(byID) == 0 {
		return nil
	}

	ids := make([]any, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	query := "SELECT " + stageColumns + " FROM video_stages WHERE video_id IN (" + makePlaceholders(len(ids)) + ")"
	rows, err := s.db.QueryContext(ctx, query, ids...)
	if err != nil {
		return fmt.Errorf("load stage rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		row, err := scanStageRow(rows)
		if err != nil {
			return err
		}
		video, ok := byID[row.videoID]
		if !ok {
			continue
		}
		video.Stages[row.name] = row.state
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate stage rows: %w", err)
	}
	return nil
}

// Delete removes a video; the stage rows go with it via the foreign key
// cascade. Deleting an unknown id is ErrNotFound so callers can report
// typos instead of pretending success.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)
	if id == "" {
		return errors.New("delete: empty video id")
	}

	result, err := s.execWithRetry(ctx, "DELETE FROM videos WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete video %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete video %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: video %s", ErrNotFound, id)
	}
	return nil
}

// Stats summarizes the library for status displays. A video counts as
// running ahead of failed so a half-broken pipeline still shows activity.
func (s *Store) Stats(ctx context.Context) (HealthSummary, error) {
	videos, err := s.List(ctx)
	if err != nil {
		return HealthSummary{}, err
	}

	summary := HealthSummary{Total: len(videos)}
	for _, video := range videos {
		switch {
		case video.AnyRunning():
			summary.Running++
		case video.AnyFailed():
			summary.Failed++
		case video.Localized():
			summary.Localized++
		default:
			summary.Idle++
		}
	}
	return summary, nil
}
