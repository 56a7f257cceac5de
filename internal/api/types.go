package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Video describes a pipeline entity in a transport-friendly format. Stages
// appear in canonical pipeline order.
type Video struct {
	ID              string       `json:"id"`
	SourceURL       string       `json:"sourceUrl"`
	Title           string       `json:"title,omitempty"`
	Description     string       `json:"description,omitempty"`
	DurationSeconds float64      `json:"durationSeconds,omitempty"`
	CoverURL        string       `json:"coverUrl,omitempty"`
	PipelineRunID   string       `json:"pipelineRunId"`
	Localized       bool         `json:"localized"`
	InFlight        []string     `json:"inFlight,omitempty"`
	LastTriggeredAt string       `json:"lastTriggeredAt,omitempty"`
	CreatedAt       string       `json:"createdAt,omitempty"`
	UpdatedAt       string       `json:"updatedAt,omitempty"`
	Stages          []StageState `json:"stages"`
}

// StageState describes one stage of one video.
type StageState struct {
	Name         string          `json:"name"`
	Status       string          `json:"status"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	ErrorKind    string          `json:"errorKind,omitempty"`
	Artifact     json.RawMessage `json:"artifact,omitempty"`
	UpdatedAt    string          `json:"updatedAt,omitempty"`
}

// VideoListResponse wraps a collection of videos.
type VideoListResponse struct {
	Videos []Video `json:"videos"`
}

// AddVideoRequest is the payload for creating a video from a source URL.
type AddVideoRequest struct {
	SourceURL string `json:"sourceUrl"`
	Process   bool   `json:"process"`
}

// TriggerResponse reports which stages a trigger dispatched.
type TriggerResponse struct {
	VideoID    string   `json:"videoId"`
	Dispatched []string `json:"dispatched"`
}

// RetryRequest is the payload for retrying a failed stage.
type RetryRequest struct {
	Stage string `json:"stage"`
}

// StageHealth mirrors readiness reporting for a stage's collaborator.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// LibraryStats aggregates per-video pipeline progress counts.
type LibraryStats struct {
	Total     int `json:"total"`
	Idle      int `json:"idle"`
	Running   int `json:"running"`
	Failed    int `json:"failed"`
	Localized int `json:"localized"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running     bool          `json:"running"`
	PID         int           `json:"pid"`
	InFlight    int           `json:"inFlight"`
	Stats       LibraryStats  `json:"stats"`
	StageHealth []StageHealth `json:"stageHealth,omitempty"`
}

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}
