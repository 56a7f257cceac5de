package stages

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"revoice/internal/config"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/stage"
)

// RemuxExecutor combines the original video stream with the synthesized
// narration track.
type RemuxExecutor struct {
	cfg    *config.Config
	logger *slog.Logger
	muxer  muxer
}

// NewRemuxExecutor constructs the remux stage executor.
func NewRemuxExecutor(cfg *config.Config, logger *slog.Logger, m muxer) *RemuxExecutor {
	return &RemuxExecutor{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "stage-remux"),
		muxer:  m,
	}
}

// Execute muxes the downloaded video with the synthesized audio. Both inputs
// are required; the controller only dispatches once download and synthesize
// have completed.
func (e *RemuxExecutor) Execute(ctx context.Context, req stage.Request) (stage.Artifact, error) {
	media, err := requireInput[stage.MediaArtifact](req, stage.Download, stage.Remux)
	if err != nil {
		return nil, err
	}
	speech, err := requireInput[stage.SpeechArtifact](req, stage.Synthesize, stage.Remux)
	if err != nil {
		return nil, err
	}
	for _, path := range []string{media.VideoPath, speech.AudioPath} {
		if _, statErr := os.Stat(path); statErr != nil {
			return nil, services.Wrap(services.ErrNotFound, "remux", "validate inputs",
				"stage input file missing from work directory", statErr)
		}
	}

	outputPath, err := e.muxer.Mux(ctx, media.VideoPath, speech.AudioPath, filepath.Join(req.WorkDir, "remux"))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "remux", "mux streams",
			"remux failed", err)
	}

	var size int64
	if info, statErr := os.Stat(outputPath); statErr == nil {
		size = info.Size()
	}

	logging.WithContext(ctx, e.logger).Info("remux completed",
		logging.String("video_path", outputPath),
		logging.Int64("size_bytes", size),
	)
	return stage.RemuxArtifact{VideoPath: outputPath, SizeBytes: size}, nil
}

// HealthCheck reports whether ffmpeg and ffprobe are available.
func (e *RemuxExecutor) HealthCheck(ctx context.Context) stage.Health {
	if err := e.muxer.CheckHealth(ctx); err != nil {
		return stage.Unhealthy("remux", err.Error())
	}
	return stage.Healthy("remux")
}
