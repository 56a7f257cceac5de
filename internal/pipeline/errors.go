package pipeline

import "errors"

var (
	// ErrAlreadyRunning indicates a dispatch for a (video, stage) pair that
	// already has an execution in flight.
	ErrAlreadyRunning = errors.New("stage already running")

	// ErrInputMissing indicates a stage was asked to run without the artifact
	// of a completed dependency.
	ErrInputMissing = errors.New("stage input missing")

	// ErrStaleDependency indicates a retry target whose dependencies are no
	// longer all completed.
	ErrStaleDependency = errors.New("stale dependency")

	// ErrStageNotFailed indicates a retry target that is not in the failed
	// state.
	ErrStageNotFailed = errors.New("stage has not failed")

	// ErrNotRetryable indicates a retry target whose recorded failure needs
	// operator intervention rather than another attempt.
	ErrNotRetryable = errors.New("stage failure is not retryable")

	// ErrStopped indicates the dispatcher is not accepting work.
	ErrStopped = errors.New("dispatcher not running")
)
