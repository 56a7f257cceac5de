// Package ingest creates pipeline entities from source URLs. The HTTP add
// endpoint and the daemon's inbox watcher both funnel through this service so
// probing, deduplication, and auto-processing behave identically.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"revoice/internal/config"
	"revoice/internal/logging"
	"revoice/internal/services/extract"
	"revoice/internal/stage"
	"revoice/internal/videostore"
)

// ErrAlreadyExists indicates the source URL is already in the library.
var ErrAlreadyExists = errors.New("source url already ingested")

// prober fetches source metadata without downloading the media.
type prober interface {
	Probe(ctx context.Context, sourceURL string) (extract.Metadata, error)
}

// triggerer starts pipeline processing for a newly created video.
type triggerer interface {
	Process(ctx context.Context, id string) ([]stage.Name, error)
}

// Service ingests source URLs into the video store.
type Service struct {
	cfg        *config.Config
	store      *videostore.Store
	controller triggerer
	prober     prober
	logger     *slog.Logger
}

// NewService constructs an ingest service with the production yt-dlp prober.
func NewService(cfg *config.Config, store *videostore.Store, controller triggerer, logger *slog.Logger) *Service {
	return NewServiceWithProber(cfg, store, controller, logger, extract.NewService(cfg))
}

// NewServiceWithProber allows injecting the metadata prober (used in tests).
func NewServiceWithProber(cfg *config.Config, store *videostore.Store, controller triggerer, logger *slog.Logger, p prober) *Service {
	return &Service{
		cfg:        cfg,
		store:      store,
		controller: controller,
		prober:     p,
		logger:     logging.NewComponentLogger(logger, "ingest"),
	}
}

// Add probes the source URL, creates the video with its immutable metadata,
// and optionally kicks off processing. Re-adding a known URL returns the
// existing video together with ErrAlreadyExists so callers can report it
// without creating a duplicate.
func (s *Service) Add(ctx context.Context, sourceURL string, autoProcess bool) (*videostore.Video, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if err := validateSourceURL(sourceURL); err != nil {
		return nil, err
	}

	if existing, err := s.store.FindBySourceURL(ctx, sourceURL); err == nil {
		return existing, fmt.Errorf("%w: %s", ErrAlreadyExists, sourceURL)
	} else if !errors.Is(err, videostore.ErrNotFound) {
		return nil, fmt.Errorf("check for existing video: %w", err)
	}

	logger := logging.WithContext(ctx, s.logger)
	metadata, err := s.prober.Probe(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("probe source: %w", err)
	}

	video := videostore.NewVideo(sourceURL)
	video.Title = metadata.Title
	video.Description = metadata.Description
	video.DurationSeconds = metadata.DurationSeconds
	video.CoverURL = metadata.ThumbnailURL
	if err := s.store.Create(ctx, video); err != nil {
		return nil, fmt.Errorf("create video: %w", err)
	}

	logger.Info("video ingested",
		logging.String(logging.FieldVideoID, video.ID),
		logging.String("source_url", sourceURL),
		logging.String("title", video.Title),
	)

	if autoProcess && s.controller != nil {
		if _, err := s.controller.Process(ctx, video.ID); err != nil {
			logger.Warn("auto-process after ingest failed",
				logging.String(logging.FieldVideoID, video.ID),
				logging.Error(err),
			)
		}
	}
	return video, nil
}

func validateSourceURL(sourceURL string) error {
	if sourceURL == "" {
		return errors.New("source url required")
	}
	parsed, err := url.Parse(sourceURL)
	if err != nil {
		return fmt.Errorf("invalid source url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid source url %q: scheme must be http or https", sourceURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("invalid source url %q: missing host", sourceURL)
	}
	return nil
}
