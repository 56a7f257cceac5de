package services_test

import (
	"errors"
	"strings"
	"testing"

	"revoice/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "remux", "mux", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"remux", "mux", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapNilMarkerDefaultsTransient(t *testing.T) {
	err := services.Wrap(nil, "translate", "complete", "no response", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want services.Kind
	}{
		{"validation", services.Wrap(services.ErrValidation, "download", "probe", "bad url", nil), services.KindValidation},
		{"configuration", services.Wrap(services.ErrConfiguration, "synthesize", "voice", "missing sample", nil), services.KindConfiguration},
		{"not found", services.Wrap(services.ErrNotFound, "publish", "library", "missing", nil), services.KindNotFound},
		{"timeout", services.Wrap(services.ErrTimeout, "transcribe", "run", "deadline", nil), services.KindTimeout},
		{"external tool", services.Wrap(services.ErrExternalTool, "remux", "ffmpeg", "exit 1", errors.New("io")), services.KindExternalTool},
		{"unknown", errors.New("mystery"), services.KindTransient},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Classify(tc.err); got != tc.want {
				t.Fatalf("Classify = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	if services.Retryable(services.Wrap(services.ErrValidation, "download", "probe", "bad url", nil)) {
		t.Fatal("validation failures must not be retryable")
	}
	if services.Retryable(services.Wrap(services.ErrConfiguration, "synthesize", "voice", "missing sample", nil)) {
		t.Fatal("configuration failures must not be retryable")
	}
	if !services.Retryable(services.Wrap(services.ErrExternalTool, "remux", "ffmpeg", "exit 1", nil)) {
		t.Fatal("external tool failures must be retryable")
	}
	if !services.Retryable(services.Wrap(services.ErrTimeout, "transcribe", "run", "deadline", nil)) {
		t.Fatal("timeouts must be retryable")
	}
}

func TestParseKind(t *testing.T) {
	kind, ok := services.ParseKind(" External_Tool ")
	if !ok || kind != services.KindExternalTool {
		t.Fatalf("ParseKind = (%q, %v), want (external_tool, true)", kind, ok)
	}
	if _, ok := services.ParseKind("fatal"); ok {
		t.Fatal("expected unknown kind to fail")
	}
}
