package videostore

import (
	"time"

	"github.com/google/uuid"

	"revoice/internal/stage"
)

// Video is a localization job persisted in SQLite. The source metadata fields
// (Title, Description, DurationSeconds, CoverURL) are extracted once at ingest
// and never rewritten afterwards; only run state and stage rows change.
type Video struct {
	ID              string
	SourceURL       string
	Title           string
	Description     string
	DurationSeconds float64
	CoverURL        string
	PipelineRunID   string
	LastTriggeredAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Stages          map[stage.Name]*StageState
}

// StageState is the persisted state of one stage on one video.
type StageState struct {
	Status        stage.Status
	Artifact      string
	ErrorMessage  string
	ErrorKind     string
	LastHeartbeat *time.Time
	UpdatedAt     time.Time
}

// NewVideo constructs a fresh video with every stage untouched and a newly
// minted pipeline run identifier.
func NewVideo(sourceURL string) *Video {
	now := time.Now().UTC()
	video := &Video{
		ID:            uuid.NewString(),
		SourceURL:     sourceURL,
		PipelineRunID: uuid.NewString(),
		CreatedAt:     now,
		UpdatedAt:     now,
		Stages:        make(map[stage.Name]*StageState, stage.Count()),
	}
	for _, name := range stage.All() {
		video.Stages[name] = &StageState{Status: stage.StatusNotStarted, UpdatedAt: now}
	}
	return video
}

// Snapshot returns the read-only view handed to stage executors.
func (v *Video) Snapshot() stage.VideoSnapshot {
	return stage.VideoSnapshot{
		ID:              v.ID,
		RunID:           v.PipelineRunID,
		SourceURL:       v.SourceURL,
		Title:           v.Title,
		Description:     v.Description,
		DurationSeconds: v.DurationSeconds,
		CoverURL:        v.CoverURL,
	}
}

// StatusMap returns the per-stage statuses for eligibility evaluation.
func (v *Video) StatusMap() map[stage.Name]stage.Status {
	statuses := make(map[stage.Name]stage.Status, len(v.Stages))
	for name, state := range v.Stages {
		statuses[name] = state.Status
	}
	return statuses
}

// Stage returns the state row for a stage. Loaded videos always carry a row
// for every known stage, so a nil return means the caller holds a video that
// bypassed Load validation.
func (v *Video) Stage(name stage.Name) *StageState {
	return v.Stages[name]
}

// ResetForRun clears every stage back to untouched and installs a new run
// identifier. Extracted source metadata is deliberately preserved.
func (v *Video) ResetForRun(runID string, now time.Time) {
	v.PipelineRunID = runID
	for _, state := range v.Stages {
		state.Status = stage.StatusNotStarted
		state.Artifact = ""
		state.ErrorMessage = ""
		state.ErrorKind = ""
		state.LastHeartbeat = nil
		state.UpdatedAt = now
	}
}

// MarkTriggered records an operator-initiated pipeline trigger.
func (v *Video) MarkTriggered(now time.Time) {
	ts := now.UTC()
	v.LastTriggeredAt = &ts
}

// AnyRunning reports whether any stage is currently marked running.
func (v *Video) AnyRunning() bool {
	for _, state := range v.Stages {
		if state.Status == stage.StatusRunning {
			return true
		}
	}
	return false
}

// AnyFailed reports whether any stage is currently marked failed.
func (v *Video) AnyFailed() bool {
	for _, state := range v.Stages {
		if state.Status == stage.StatusFailed {
			return true
		}
	}
	return false
}

// Localized reports whether the pipeline has run to completion for the
// current generation.
func (v *Video) Localized() bool {
	state := v.Stages[stage.Publish]
	return state != nil && state.Status == stage.StatusCompleted
}

// HealthSummary describes aggregated video counts for diagnostic output.
type HealthSummary struct {
	Total     int
	Idle      int
	Running   int
	Failed    int
	Localized int
}

// DatabaseHealth captures diagnostic information about the video database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	TablesPresent    []string
	MissingTables    []string
	IntegrityCheck   bool
	TotalVideos      int
	Error            string
}
