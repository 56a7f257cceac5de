package stage

import (
	"encoding/json"
	"fmt"
	"time"
)

// Artifact is the typed output of a completed stage. Artifacts are persisted
// as JSON and handed to dependent stages as read-only inputs.
type Artifact interface {
	// Stage names the stage that produces this artifact type.
	Stage() Name
}

// MediaArtifact records the downloaded source video.
type MediaArtifact struct {
	VideoPath string `json:"video_path"`
	Format    string `json:"format,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

func (MediaArtifact) Stage() Name { return Download }

// TranscriptSegment is a timed slice of the source-language transcript.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscriptArtifact records the source-language transcription.
type TranscriptArtifact struct {
	Text     string              `json:"text"`
	Language string              `json:"language,omitempty"`
	Segments []TranscriptSegment `json:"segments,omitempty"`
}

func (TranscriptArtifact) Stage() Name { return Transcribe }

// TranslationArtifact records the transcript translated into the target
// language.
type TranslationArtifact struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (TranslationArtifact) Stage() Name { return Translate }

// EnrichmentArtifact records supplemental context generated from the
// translation.
type EnrichmentArtifact struct {
	Summary string   `json:"summary"`
	Tags    []string `json:"tags,omitempty"`
}

func (EnrichmentArtifact) Stage() Name { return Enrich }

// ScriptArtifact records the narration script prepared for synthesis.
type ScriptArtifact struct {
	Text             string  `json:"text"`
	EstimatedSeconds float64 `json:"estimated_seconds,omitempty"`
}

func (ScriptArtifact) Stage() Name { return Script }

// SpeechArtifact records the synthesized narration track.
type SpeechArtifact struct {
	AudioPath       string  `json:"audio_path"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Voice           string  `json:"voice,omitempty"`
}

func (SpeechArtifact) Stage() Name { return Synthesize }

// RemuxArtifact records the localized video with the narration track muxed in.
type RemuxArtifact struct {
	VideoPath string `json:"video_path"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

func (RemuxArtifact) Stage() Name { return Remux }

// PublishArtifact records the final library placement.
type PublishArtifact struct {
	LibraryPath string    `json:"library_path"`
	SyncedAt    time.Time `json:"synced_at"`
}

func (PublishArtifact) Stage() Name { return Publish }

// EncodeArtifact serializes an artifact for persistence.
func EncodeArtifact(artifact Artifact) (string, error) {
	if artifact == nil {
		return "", fmt.Errorf("encode artifact: nil artifact")
	}
	data, err := json.Marshal(artifact)
	if err != nil {
		return "", fmt.Errorf("encode %s artifact: %w", artifact.Stage(), err)
	}
	return string(data), nil
}

// DecodeArtifact parses a persisted payload into the concrete artifact type
// for the given stage. Unknown stages and malformed payloads are errors, never
// silent zero values.
func DecodeArtifact(name Name, payload string) (Artifact, error) {
	if payload == "" {
		return nil, fmt.Errorf("decode %s artifact: empty payload", name)
	}
	var (
		artifact Artifact
		err      error
	)
	switch name {
	case Download:
		artifact, err = decodeInto[MediaArtifact](payload)
	case Transcribe:
		artifact, err = decodeInto[TranscriptArtifact](payload)
	case Translate:
		artifact, err = decodeInto[TranslationArtifact](payload)
	case Enrich:
		artifact, err = decodeInto[EnrichmentArtifact](payload)
	case Script:
		artifact, err = decodeInto[ScriptArtifact](payload)
	case Synthesize:
		artifact, err = decodeInto[SpeechArtifact](payload)
	case Remux:
		artifact, err = decodeInto[RemuxArtifact](payload)
	case Publish:
		artifact, err = decodeInto[PublishArtifact](payload)
	default:
		return nil, fmt.Errorf("decode artifact: unknown stage %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s artifact: %w", name, err)
	}
	return artifact, nil
}

func decodeInto[T Artifact](payload string) (Artifact, error) {
	var value T
	if err := json.Unmarshal([]byte(payload), &value); err != nil {
		return nil, err
	}
	return value, nil
}
