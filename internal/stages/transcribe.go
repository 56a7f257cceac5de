package stages

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"revoice/internal/config"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/stage"
)

// TranscribeExecutor produces the source-language transcript from the
// downloaded media.
type TranscribeExecutor struct {
	cfg         *config.Config
	logger      *slog.Logger
	transcriber transcriber
}

// NewTranscribeExecutor constructs the transcribe stage executor.
func NewTranscribeExecutor(cfg *config.Config, logger *slog.Logger, t transcriber) *TranscribeExecutor {
	return &TranscribeExecutor{
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "stage-transcribe"),
		transcriber: t,
	}
}

// Execute transcribes the downloaded video.
func (e *TranscribeExecutor) Execute(ctx context.Context, req stage.Request) (stage.Artifact, error) {
	media, err := requireInput[stage.MediaArtifact](req, stage.Download, stage.Transcribe)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(media.VideoPath); statErr != nil {
		return nil, services.Wrap(services.ErrNotFound, "transcribe", "validate inputs",
			"downloaded media file missing from work directory", statErr)
	}

	result, err := e.transcriber.Transcribe(ctx, media.VideoPath, filepath.Join(req.WorkDir, "transcript"))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcribe", "run transcription",
			"transcription failed", err)
	}
	if strings.TrimSpace(result.Text) == "" {
		return nil, services.Wrap(services.ErrValidation, "transcribe", "inspect transcript",
			"transcription produced no speech text", nil)
	}

	segments := make([]stage.TranscriptSegment, 0, len(result.Segments))
	for _, seg := range result.Segments {
		segments = append(segments, stage.TranscriptSegment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}

	logging.WithContext(ctx, e.logger).Info("transcription completed",
		logging.String("language", result.Language),
		logging.Int("segments", len(segments)),
	)
	return stage.TranscriptArtifact{
		Text:     result.Text,
		Language: result.Language,
		Segments: segments,
	}, nil
}

// HealthCheck reports whether the transcription collaborator is usable.
func (e *TranscribeExecutor) HealthCheck(ctx context.Context) stage.Health {
	if err := e.transcriber.CheckHealth(ctx); err != nil {
		return stage.Unhealthy("transcribe", err.Error())
	}
	return stage.Healthy("transcribe")
}
