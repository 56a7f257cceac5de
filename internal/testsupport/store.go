package testsupport

import (
	"context"
	"testing"

	"revoice/internal/config"
	"revoice/internal/videostore"
)

// MustOpenStore opens a videostore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *videostore.Store {
	t.Helper()

	store, err := videostore.Open(cfg)
	if err != nil {
		t.Fatalf("videostore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewVideo creates a stored video with extracted metadata for tests.
func NewVideo(t testing.TB, store *videostore.Store, sourceURL string) *videostore.Video {
	t.Helper()

	video := videostore.NewVideo(sourceURL)
	video.Title = "Test clip"
	video.DurationSeconds = 30
	if err := store.Create(context.Background(), video); err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return video
}
