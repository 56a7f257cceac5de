package stages

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"revoice/internal/config"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/stage"
)

// DownloadExecutor fetches the source video into the per-video work
// directory.
type DownloadExecutor struct {
	cfg     *config.Config
	logger  *slog.Logger
	fetcher mediaFetcher
}

// NewDownloadExecutor constructs the download stage executor.
func NewDownloadExecutor(cfg *config.Config, logger *slog.Logger, fetcher mediaFetcher) *DownloadExecutor {
	return &DownloadExecutor{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "stage-download"),
		fetcher: fetcher,
	}
}

// Execute downloads the source video and records its on-disk location.
func (e *DownloadExecutor) Execute(ctx context.Context, req stage.Request) (stage.Artifact, error) {
	sourceURL := strings.TrimSpace(req.Video.SourceURL)
	if sourceURL == "" {
		return nil, services.Wrap(services.ErrValidation, "download", "validate inputs",
			"video has no source URL", nil)
	}

	destDir := filepath.Join(req.WorkDir, "source")
	path, size, err := e.fetcher.Download(ctx, sourceURL, destDir)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "download", "fetch source",
			"source download failed", err)
	}

	logging.WithContext(ctx, e.logger).Info("source video downloaded",
		logging.String("path", path),
		logging.Int64("size_bytes", size),
	)
	return stage.MediaArtifact{
		VideoPath: path,
		Format:    strings.TrimPrefix(filepath.Ext(path), "."),
		SizeBytes: size,
	}, nil
}

// HealthCheck reports whether the download collaborator is usable.
func (e *DownloadExecutor) HealthCheck(ctx context.Context) stage.Health {
	if err := e.fetcher.CheckHealth(ctx); err != nil {
		return stage.Unhealthy("download", err.Error())
	}
	return stage.Healthy("download")
}
