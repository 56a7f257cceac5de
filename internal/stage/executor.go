package stage

import "context"

// VideoSnapshot is the read-only view of a video handed to executors. The
// extracted source metadata never changes after ingest, so executors can rely
// on it without rereading the store.
type VideoSnapshot struct {
	ID              string
	RunID           string
	SourceURL       string
	Title           string
	Description     string
	DurationSeconds float64
	CoverURL        string
}

// Request carries everything an executor may read: the video snapshot, the
// decoded artifacts of the stage's declared dependencies, and a scratch
// directory scoped to the video.
type Request struct {
	Video   VideoSnapshot
	Inputs  map[Name]Artifact
	WorkDir string
}

// Input returns the artifact a dependency produced, if present.
func (r Request) Input(name Name) (Artifact, bool) {
	artifact, ok := r.Inputs[name]
	return artifact, ok
}

// Executor performs the work of a single stage. Implementations never touch
// the stored entity; results flow back only through the returned artifact or
// error.
type Executor interface {
	Execute(ctx context.Context, req Request) (Artifact, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, req Request) (Artifact, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, req Request) (Artifact, error) {
	return f(ctx, req)
}

// HealthChecker is implemented by executors whose collaborators can be probed
// without running the stage.
type HealthChecker interface {
	HealthCheck(ctx context.Context) Health
}
