package api

import (
	"encoding/json"
	"sort"
	"time"

	"revoice/internal/stage"
	"revoice/internal/videostore"
)

// FromVideo converts a stored video to its API representation.
func FromVideo(v *videostore.Video) Video {
	if v == nil {
		return Video{}
	}

	dto := Video{
		ID:              v.ID,
		SourceURL:       v.SourceURL,
		Title:           v.Title,
		Description:     v.Description,
		DurationSeconds: v.DurationSeconds,
		CoverURL:        v.CoverURL,
		PipelineRunID:   v.PipelineRunID,
		Localized:       v.Localized(),
		Stages:          make([]StageState, 0, stage.Count()),
	}
	if v.LastTriggeredAt != nil && !v.LastTriggeredAt.IsZero() {
		dto.LastTriggeredAt = v.LastTriggeredAt.UTC().Format(dateTimeFormat)
	}
	if !v.CreatedAt.IsZero() {
		dto.CreatedAt = v.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !v.UpdatedAt.IsZero() {
		dto.UpdatedAt = v.UpdatedAt.UTC().Format(dateTimeFormat)
	}

	for _, name := range stage.All() {
		state := v.Stages[name]
		if state == nil {
			dto.Stages = append(dto.Stages, StageState{Name: string(name), Status: string(stage.StatusNotStarted)})
			continue
		}
		view := StageState{
			Name:         string(name),
			Status:       string(state.Status),
			ErrorMessage: state.ErrorMessage,
			ErrorKind:    state.ErrorKind,
		}
		if state.Artifact != "" {
			view.Artifact = json.RawMessage(state.Artifact)
		}
		if !state.UpdatedAt.IsZero() {
			view.UpdatedAt = state.UpdatedAt.UTC().Format(dateTimeFormat)
		}
		dto.Stages = append(dto.Stages, view)
	}
	return dto
}

// FromVideos converts a slice of stored videos, preserving order.
func FromVideos(videos []*videostore.Video) []Video {
	out := make([]Video, 0, len(videos))
	for _, v := range videos {
		out = append(out, FromVideo(v))
	}
	return out
}

// FromStats converts the store's health summary.
func FromStats(summary videostore.HealthSummary) LibraryStats {
	return LibraryStats{
		Total:     summary.Total,
		Idle:      summary.Idle,
		Running:   summary.Running,
		Failed:    summary.Failed,
		Localized: summary.Localized,
	}
}

// FromStageHealth converts stage health records.
func FromStageHealth(records []stage.Health) []StageHealth {
	out := make([]StageHealth, 0, len(records))
	for _, record := range records {
		out = append(out, StageHealth{Name: record.Name, Ready: record.Ready, Detail: record.Detail})
	}
	return out
}

// SortVideosNewestFirst orders videos by CreatedAt descending, breaking ties
// by ID so output stays stable.
func SortVideosNewestFirst(videos []Video) []Video {
	if len(videos) == 0 {
		return nil
	}
	sorted := make([]Video, len(videos))
	copy(sorted, videos)
	sort.Slice(sorted, func(i, j int) bool {
		ti := ParseTime(sorted[i].CreatedAt)
		tj := ParseTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})
	return sorted
}

// ParseTime parses an API timestamp, returning the zero time for empty or
// malformed values.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}
