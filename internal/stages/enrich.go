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

const enrichSystemPrompt = `You are an editorial assistant for a video localization pipeline.
Given a translated transcript in %s, produce a short summary (2-3 sentences,
same language) and up to 8 topical tags.
Respond with a JSON object: {"summary": "<summary>", "tags": ["tag", ...]}.`

// EnrichExecutor generates the summary and tags used by downstream script
// generation and library metadata.
type EnrichExecutor struct {
	cfg    *config.Config
	logger *slog.Logger
	llm    completer
}

// NewEnrichExecutor constructs the enrich stage executor.
func NewEnrichExecutor(cfg *config.Config, logger *slog.Logger, client completer) *EnrichExecutor {
	return &EnrichExecutor{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "stage-enrich"),
		llm:    client,
	}
}

// Execute summarizes and tags the translated transcript.
func (e *EnrichExecutor) Execute(ctx context.Context, req stage.Request) (stage.Artifact, error) {
	translation, err := requireInput[stage.TranslationArtifact](req, stage.Translate, stage.Enrich)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(translation.Text) == "" {
		return nil, services.Wrap(services.ErrValidation, "enrich", "validate inputs",
			"translation is empty", nil)
	}

	system := fmt.Sprintf(enrichSystemPrompt, e.cfg.TargetLanguageName())
	user := fmt.Sprintf("Video title: %s\n\nTranslated transcript:\n%s", req.Video.Title, translation.Text)
	content, err := e.llm.CompleteJSON(ctx, system, user)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "enrich", "llm completion",
			"enrichment request failed", err)
	}

	var payload struct {
		Summary string   `json:"summary"`
		Tags    []string `json:"tags"`
	}
	if err := llm.DecodeJSON(content, &payload); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "enrich", "parse response",
			"enrichment response was not valid JSON", err)
	}
	if strings.TrimSpace(payload.Summary) == "" {
		return nil, services.Wrap(services.ErrExternalTool, "enrich", "parse response",
			"enrichment response contained no summary", nil)
	}

	tags := make([]string, 0, len(payload.Tags))
	for _, tag := range payload.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	logging.WithContext(ctx, e.logger).Info("enrichment completed",
		logging.Int("tags", len(tags)),
	)
	return stage.EnrichmentArtifact{Summary: payload.Summary, Tags: tags}, nil
}

// HealthCheck reports whether the LLM endpoint is reachable.
func (e *EnrichExecutor) HealthCheck(ctx context.Context) stage.Health {
	if err := e.llm.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("enrich", err.Error())
	}
	return stage.Healthy("enrich")
}
