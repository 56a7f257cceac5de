// Package api defines the transport-friendly representations of videos and
// daemon state shared by the HTTP server, the HTTP client, and the CLI.
package api
