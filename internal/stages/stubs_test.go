package stages

import (
	"context"

	"revoice/internal/services/publisher"
	"revoice/internal/services/whisper"
	"revoice/internal/stage"
)

type stubFetcher struct {
	path string
	size int64
	err  error
	urls []string
}

func (s *stubFetcher) Download(_ context.Context, sourceURL, _ string) (string, int64, error) {
	s.urls = append(s.urls, sourceURL)
	return s.path, s.size, s.err
}

func (s *stubFetcher) CheckHealth(context.Context) error { return nil }

type stubTranscriber struct {
	result whisper.Result
	err    error
}

func (s *stubTranscriber) Transcribe(context.Context, string, string) (whisper.Result, error) {
	return s.result, s.err
}

func (s *stubTranscriber) CheckHealth(context.Context) error { return nil }

type stubCompleter struct {
	content string
	err     error
	system  string
	user    string
}

func (s *stubCompleter) CompleteJSON(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	s.system = systemPrompt
	s.user = userPrompt
	return s.content, s.err
}

func (s *stubCompleter) HealthCheck(context.Context) error { return nil }

type stubSynthesizer struct {
	audioPath string
	err       error
	voice     string
}

func (s *stubSynthesizer) Synthesize(context.Context, string, string) (string, error) {
	return s.audioPath, s.err
}

func (s *stubSynthesizer) Voice() string { return s.voice }

func (s *stubSynthesizer) CheckHealth(context.Context) error { return nil }

type stubMuxer struct {
	outputPath string
	muxErr     error
	duration   float64
	probeErr   error
}

func (s *stubMuxer) Mux(context.Context, string, string, string) (string, error) {
	return s.outputPath, s.muxErr
}

func (s *stubMuxer) ProbeDuration(context.Context, string) (float64, error) {
	return s.duration, s.probeErr
}

func (s *stubMuxer) CheckHealth(context.Context) error { return nil }

type stubPublisher struct {
	libraryPath string
	placeErr    error
	syncErr     error
	configured  bool
	record      publisher.Record
	synced      bool
}

func (s *stubPublisher) Place(context.Context, string, string, string) (string, error) {
	return s.libraryPath, s.placeErr
}

func (s *stubPublisher) SyncRecord(_ context.Context, record publisher.Record) error {
	s.synced = true
	s.record = record
	return s.syncErr
}

func (s *stubPublisher) SyncConfigured() bool { return s.configured }

func (s *stubPublisher) CheckHealth(context.Context) error { return nil }

func newRequest(workDir string, inputs ...stage.Artifact) stage.Request {
	req := stage.Request{
		Video: stage.VideoSnapshot{
			ID:              "vid-1",
			RunID:           "run-1",
			SourceURL:       "https://videos.example/clips/42",
			Title:           "Test clip",
			Description:     "A short test clip",
			DurationSeconds: 90,
		},
		Inputs:  make(map[stage.Name]stage.Artifact, len(inputs)),
		WorkDir: workDir,
	}
	for _, artifact := range inputs {
		req.Inputs[artifact.Stage()] = artifact
	}
	return req
}
