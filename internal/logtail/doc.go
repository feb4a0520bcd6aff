// Package logtail reads the end of lector's own log file for the TUI log pane.
//
// Read returns the last N lines using a single pass and a ring buffer of N
// lines, so memory stays bounded however large the file grows.
//
// The log is written by the logging package as one JSON object per line
// (zap's JSON encoder). Parse turns a line into an Entry; Format renders it
// back as
//
//	2025-10-08 21:01:05 WARN [lector.transport] request failed op=GET /api/results
//
// with extra fields sorted by key. Lines that are not JSON, such as a panic
// trace, are passed through unchanged. AtLeast filters by level.
package logtail
