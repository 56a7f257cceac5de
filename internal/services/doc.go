// Package services defines shared utilities consumed by the stage executors
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp video IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify collaborator
//     failures into consistent kinds (retryable vs terminal).
//   - Thin abstractions that make command execution against external tools
//     testable.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
