package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"revoice/internal/api"
)

// videoStatus condenses per-stage state into a single word for list output.
func videoStatus(v api.Video) string {
	if v.Localized {
		return "localized"
	}
	for _, st := range v.Stages {
		if st.Status == "failed" {
			return "failed: " + st.Name
		}
	}
	if len(v.InFlight) > 0 {
		return "running: " + strings.Join(v.InFlight, ",")
	}
	completed := 0
	for _, st := range v.Stages {
		if st.Status == "completed" {
			completed++
		}
	}
	if completed > 0 {
		return fmt.Sprintf("%d/%d stages", completed, len(v.Stages))
	}
	return "queued"
}

// videoTitle falls back to the source URL while metadata is still unknown.
func videoTitle(v api.Video) string {
	if title := strings.TrimSpace(v.Title); title != "" {
		return title
	}
	return v.SourceURL
}

// formatWhen renders an API timestamp as a relative age ("3 minutes ago").
func formatWhen(value string) string {
	ts := api.ParseTime(value)
	if ts.IsZero() {
		return "-"
	}
	return humanize.Time(ts)
}

// formatDuration renders a runtime in seconds as mm:ss or h:mm:ss.
func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
