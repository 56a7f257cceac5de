package stages

import (
	"context"
	"fmt"
	"log/slog"

	"revoice/internal/config"
	"revoice/internal/services"
	"revoice/internal/services/extract"
	"revoice/internal/services/ffmpeg"
	"revoice/internal/services/llm"
	"revoice/internal/services/publisher"
	"revoice/internal/services/tts"
	"revoice/internal/services/whisper"
	"revoice/internal/stage"
)

// mediaFetcher downloads source videos.
type mediaFetcher interface {
	Download(ctx context.Context, sourceURL, destDir string) (string, int64, error)
	CheckHealth(ctx context.Context) error
}

// transcriber produces a transcript from a media file.
type transcriber interface {
	Transcribe(ctx context.Context, mediaPath, outputDir string) (whisper.Result, error)
	CheckHealth(ctx context.Context) error
}

// completer is the LLM surface shared by the translate, enrich, and script
// executors.
type completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	HealthCheck(ctx context.Context) error
}

// speechSynthesizer renders a narration script to audio.
type speechSynthesizer interface {
	Synthesize(ctx context.Context, script, destDir string) (string, error)
	Voice() string
	CheckHealth(ctx context.Context) error
}

// muxer replaces a video's audio track and probes media durations.
type muxer interface {
	Mux(ctx context.Context, videoPath, audioPath, destDir string) (string, error)
	ProbeDuration(ctx context.Context, mediaPath string) (float64, error)
	CheckHealth(ctx context.Context) error
}

// libraryPublisher moves finished videos into the library and reports them to
// the optional record sync endpoint.
type libraryPublisher interface {
	Place(ctx context.Context, sourcePath, title, language string) (string, error)
	SyncRecord(ctx context.Context, record publisher.Record) error
	SyncConfigured() bool
	CheckHealth(ctx context.Context) error
}

// NewExecutors wires the production collaborator services into one executor
// per stage, keyed for the pipeline controller.
func NewExecutors(cfg *config.Config, logger *slog.Logger) map[stage.Name]stage.Executor {
	llmClient := llm.NewClient(cfg.GetLLM())
	prober := ffmpeg.NewService(cfg)
	return map[stage.Name]stage.Executor{
		stage.Download:   NewDownloadExecutor(cfg, logger, extract.NewService(cfg)),
		stage.Transcribe: NewTranscribeExecutor(cfg, logger, whisper.NewService(cfg)),
		stage.Translate:  NewTranslateExecutor(cfg, logger, llmClient),
		stage.Enrich:     NewEnrichExecutor(cfg, logger, llmClient),
		stage.Script:     NewScriptExecutor(cfg, logger, llmClient),
		stage.Synthesize: NewSynthesizeExecutor(cfg, logger, tts.NewService(cfg), prober),
		stage.Remux:      NewRemuxExecutor(cfg, logger, prober),
		stage.Publish:    NewPublishExecutor(cfg, logger, publisher.NewService(cfg)),
	}
}

// requireInput fetches a dependency artifact, failing fast when the
// controller handed over an incomplete request.
func requireInput[T stage.Artifact](req stage.Request, dep stage.Name, current stage.Name) (T, error) {
	var zero T
	artifact, ok := req.Input(dep)
	if !ok {
		return zero, services.Wrap(services.ErrValidation, string(current), "validate inputs",
			fmt.Sprintf("missing %s artifact", dep), nil)
	}
	typed, ok := artifact.(T)
	if !ok {
		return zero, services.Wrap(services.ErrValidation, string(current), "validate inputs",
			fmt.Sprintf("unexpected artifact type %T for dependency %s", artifact, dep), nil)
	}
	return typed, nil
}
