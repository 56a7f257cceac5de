package videostore

import "errors"

var (
	// ErrNotFound indicates the requested video does not exist.
	ErrNotFound = errors.New("video not found")

	// ErrStaleRun indicates a compare-and-swap lost against a newer pipeline
	// generation. Callers must discard whatever result they were holding.
	ErrStaleRun = errors.New("stale pipeline run")

	// ErrCorruptRecord indicates a stored video's stage rows have drifted from
	// the fixed pipeline contract (missing, duplicated, or unknown stages).
	ErrCorruptRecord = errors.New("corrupt video record")
)
