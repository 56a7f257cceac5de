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

// SynthesizeExecutor renders the narration script to an audio track.
type SynthesizeExecutor struct {
	cfg         *config.Config
	logger      *slog.Logger
	synthesizer speechSynthesizer
	prober      muxer
}

// NewSynthesizeExecutor constructs the synthesize stage executor. The prober
// fills in the narration duration and may be nil in tests.
func NewSynthesizeExecutor(cfg *config.Config, logger *slog.Logger, synthesizer speechSynthesizer, prober muxer) *SynthesizeExecutor {
	return &SynthesizeExecutor{
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "stage-synthesize"),
		synthesizer: synthesizer,
		prober:      prober,
	}
}

// Execute synthesizes the narration audio from the script.
func (e *SynthesizeExecutor) Execute(ctx context.Context, req stage.Request) (stage.Artifact, error) {
	script, err := requireInput[stage.ScriptArtifact](req, stage.Script, stage.Synthesize)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(script.Text) == "" {
		return nil, services.Wrap(services.ErrValidation, "synthesize", "validate inputs",
			"narration script is empty", nil)
	}

	audioPath, err := e.synthesizer.Synthesize(ctx, script.Text, filepath.Join(req.WorkDir, "speech"))
	if err != nil {
		if services.Classify(err) != services.KindTransient {
			return nil, err
		}
		return nil, services.Wrap(services.ErrExternalTool, "synthesize", "run synthesis",
			"speech synthesis failed", err)
	}

	logger := logging.WithContext(ctx, e.logger)
	duration := 0.0
	if e.prober != nil {
		probed, probeErr := e.prober.ProbeDuration(ctx, audioPath)
		if probeErr != nil {
			logger.Warn("narration duration probe failed", logging.Error(probeErr))
		} else {
			duration = probed
		}
	}

	logger.Info("speech synthesis completed",
		logging.String("audio_path", audioPath),
		logging.Float64("duration_seconds", duration),
	)
	return stage.SpeechArtifact{
		AudioPath:       audioPath,
		DurationSeconds: duration,
		Voice:           e.synthesizer.Voice(),
	}, nil
}

// HealthCheck reports whether the synthesis collaborator is usable.
func (e *SynthesizeExecutor) HealthCheck(ctx context.Context) stage.Health {
	if err := e.synthesizer.CheckHealth(ctx); err != nil {
		return stage.Unhealthy("synthesize", err.Error())
	}
	return stage.Healthy("synthesize")
}
