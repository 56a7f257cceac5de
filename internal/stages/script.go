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

const scriptSystemPrompt = `You are a narration writer for a video localization pipeline.
Write a voiceover script in %s for the video described below. The script must
read naturally when spoken aloud and fit the video's runtime; do not include
stage directions, markers, or speaker labels.
Respond with a JSON object: {"script": "<narration text>", "estimated_seconds": <number>}.`

// ScriptExecutor turns the enrichment summary into the narration script
// handed to speech synthesis.
type ScriptExecutor struct {
	cfg    *config.Config
	logger *slog.Logger
	llm    completer
}

// NewScriptExecutor constructs the script stage executor.
func NewScriptExecutor(cfg *config.Config, logger *slog.Logger, client completer) *ScriptExecutor {
	return &ScriptExecutor{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "stage-script"),
		llm:    client,
	}
}

// Execute generates the narration script.
func (e *ScriptExecutor) Execute(ctx context.Context, req stage.Request) (stage.Artifact, error) {
	enrichment, err := requireInput[stage.EnrichmentArtifact](req, stage.Enrich, stage.Script)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(enrichment.Summary) == "" {
		return nil, services.Wrap(services.ErrValidation, "script", "validate inputs",
			"enrichment summary is empty", nil)
	}

	system := fmt.Sprintf(scriptSystemPrompt, e.cfg.TargetLanguageName())
	user := fmt.Sprintf(
		"Video title: %s\nVideo description: %s\nRuntime seconds: %.0f\nSummary: %s\nTags: %s",
		req.Video.Title,
		req.Video.Description,
		req.Video.DurationSeconds,
		enrichment.Summary,
		strings.Join(enrichment.Tags, ", "),
	)
	content, err := e.llm.CompleteJSON(ctx, system, user)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "script", "llm completion",
			"script request failed", err)
	}

	var payload struct {
		Script           string  `json:"script"`
		EstimatedSeconds float64 `json:"estimated_seconds"`
	}
	if err := llm.DecodeJSON(content, &payload); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "script", "parse response",
			"script response was not valid JSON", err)
	}
	if strings.TrimSpace(payload.Script) == "" {
		return nil, services.Wrap(services.ErrExternalTool, "script", "parse response",
			"script response contained no narration text", nil)
	}
	if payload.EstimatedSeconds <= 0 {
		payload.EstimatedSeconds = req.Video.DurationSeconds
	}

	logging.WithContext(ctx, e.logger).Info("script generated",
		logging.Int("chars", len(payload.Script)),
		logging.Float64("estimated_seconds", payload.EstimatedSeconds),
	)
	return stage.ScriptArtifact{
		Text:             payload.Script,
		EstimatedSeconds: payload.EstimatedSeconds,
	}, nil
}

// HealthCheck reports whether the LLM endpoint is reachable.
func (e *ScriptExecutor) HealthCheck(ctx context.Context) stage.Health {
	if err := e.llm.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("script", err.Error())
	}
	return stage.Healthy("script")
}
