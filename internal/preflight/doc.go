// Package preflight provides readiness checks for the external binaries,
// directories, and services the localization pipeline depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs anything that would doom a
//     pipeline run before a video is ever dispatched.
//   - The "revoice status" command uses the same checks to display service
//     health alongside daemon state.
//
// Checks gated by a config toggle are skipped when the feature is disabled.
package preflight
