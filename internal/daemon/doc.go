// Package daemon ties the long-running pieces of revoice together: the
// single-instance lock, crash recovery for interrupted stage executions, the
// inbox watcher, and the HTTP API server. The pipeline controller does the
// actual orchestration; the daemon only owns lifecycle.
package daemon
