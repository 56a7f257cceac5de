package stages

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"revoice/internal/config"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/services/llm"
	"revoice/internal/stage"
)

const translateSystemPrompt = `You are a professional translator for short social-media videos.
Translate the transcript into %s. Preserve meaning and tone; keep it natural
spoken language, not literal word-by-word translation.
Respond with a JSON object: {"text": "<translated transcript>"}.`

// TranslateExecutor renders the transcript into the target language through
// the LLM collaborator.
type TranslateExecutor struct {
	cfg    *config.Config
	logger *slog.Logger
	llm    completer
}

// NewTranslateExecutor constructs the translate stage executor.
func NewTranslateExecutor(cfg *config.Config, logger *slog.Logger, client completer) *TranslateExecutor {
	return &TranslateExecutor{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "stage-translate"),
		llm:    client,
	}
}

// Execute translates the transcript into the configured target language.
func (e *TranslateExecutor) Execute(ctx context.Context, req stage.Request) (stage.Artifact, error) {
	transcript, err := requireInput[stage.TranscriptArtifact](req, stage.Transcribe, stage.Translate)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(transcript.Text) == "" {
		return nil, services.Wrap(services.ErrValidation, "translate", "validate inputs",
			"transcript is empty", nil)
	}

	system := fmt.Sprintf(translateSystemPrompt, e.cfg.TargetLanguageName())
	content, err := e.llm.CompleteJSON(ctx, system, transcript.Text)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "translate", "llm completion",
			"translation request failed", err)
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := llm.DecodeJSON(content, &payload); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "translate", "parse response",
			"translation response was not valid JSON", err)
	}
	if strings.TrimSpace(payload.Text) == "" {
		return nil, services.Wrap(services.ErrExternalTool, "translate", "parse response",
			"translation response contained no text", nil)
	}

	logging.WithContext(ctx, e.logger).Info("translation completed",
		logging.String("target_language", e.cfg.Translate.TargetLanguage),
		logging.Int("chars", len(payload.Text)),
	)
	return stage.TranslationArtifact{
		Text:     payload.Text,
		Language: e.cfg.Translate.TargetLanguage,
	}, nil
}

// HealthCheck reports whether the LLM endpoint is reachable.
func (e *TranslateExecutor) HealthCheck(ctx context.Context) stage.Health {
	if err := e.llm.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("translate", err.Error())
	}
	return stage.Healthy("translate")
}
