// Package logging centralizes slog construction and the structured field
// conventions used across the daemon, the pipeline, and the CLI. Components
// obtain loggers through NewComponentLogger and enrich records with the
// exported Field* keys so console and JSON output stay greppable.
package logging
