package videostore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"revoice/internal/stage"
)

const videoColumns = "id, source_url, title, description, duration_seconds, cover_url, pipeline_run_id, last_triggered_at, created_at, updated_at"

const stageColumns = "video_id, stage, status, artifact_json, error_message, error_kind, last_heartbeat, updated_at"

func scanVideoRow(scanner interface{ Scan(dest ...any) error }) (*Video, error) {
	var (
		id            string
		sourceURL     string
		title         sql.NullString
		description   sql.NullString
		duration      sql.NullFloat64
		coverURL      sql.NullString
		runID         string
		triggeredRaw  sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourceURL,
		&title,
		&description,
		&duration,
		&coverURL,
		&runID,
		&triggeredRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	video := &Video{
		ID:              id,
		SourceURL:       sourceURL,
		Title:           title.String,
		Description:     description.String,
		DurationSeconds: duration.Float64,
		CoverURL:        coverURL.String,
		PipelineRunID:   runID,
		Stages:          make(map[stage.Name]*StageState, stage.Count()),
	}
	if triggeredRaw.Valid {
		if triggered, err := parseTimeString(triggeredRaw.String); err == nil {
			video.LastTriggeredAt = &triggered
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		video.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		video.UpdatedAt = updated
	}
	return video, nil
}

type stageRow struct {
	videoID string
	name    stage.Name
	state   *StageState
}

func scanStageRow(scanner interface{ Scan(dest ...any) error }) (stageRow, error) {
	var (
		videoID      string
		stageName    string
		statusStr    string
		artifact     sql.NullString
		errorMessage sql.NullString
		errorKind    sql.NullString
		heartbeatRaw sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&videoID,
		&stageName,
		&statusStr,
		&artifact,
		&errorMessage,
		&errorKind,
		&heartbeatRaw,
		&updatedRaw,
	); err != nil {
		return stageRow{}, err
	}

	name, ok := stage.ParseName(stageName)
	if !ok {
		return stageRow{}, fmt.Errorf("%w: unknown stage %q", ErrCorruptRecord, stageName)
	}
	status, ok := stage.ParseStatus(statusStr)
	if !ok {
		return stageRow{}, fmt.Errorf("%w: stage %s has unknown status %q", ErrCorruptRecord, name, statusStr)
	}

	state := &StageState{
		Status:       status,
		Artifact:     artifact.String,
		ErrorMessage: errorMessage.String,
		ErrorKind:    errorKind.String,
	}
	if heartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(heartbeatRaw.String); err == nil {
			state.LastHeartbeat = &heartbeat
		}
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		state.UpdatedAt = updated
	}
	return stageRow{videoID: videoID, name: name, state: state}, nil
}

// validateStageSet enforces the fixed pipeline contract on a loaded video:
// exactly one row per known stage, nothing extra, nothing missing.
func validateStageSet(video *Video) error {
	if len(video.Stages) != stage.Count() {
		for _, name := range stage.All() {
			if _, ok := video.Stages[name]; !ok {
				return fmt.Errorf("%w: video %s is missing stage %s", ErrCorruptRecord, video.ID, name)
			}
		}
		return fmt.Errorf("%w: video %s has %d stage rows, expected %d", ErrCorruptRecord, video.ID, len(video.Stages), stage.Count())
	}
	for _, name := range stage.All() {
		if _, ok := video.Stages[name]; !ok {
			return fmt.Errorf("%w: video %s is missing stage %s", ErrCorruptRecord, video.ID, name)
		}
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
