// Package config loads, normalizes, and validates revoice configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// REVOICE_LLM_API_KEY and REVOICE_TARGET_LANG. The Config type centralizes
// every knob the daemon and CLI need, allowing work/library directories and
// external service credentials to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical language tags, and clear validation errors.
package config
