// Package ui provides the interactive terminal interface for lector.
//
// The UI is a Bubble Tea program. It never talks to the service directly: every
// action goes through the session manager and result store held by an
// app.Client, and the model re-reads their snapshots after each command and on
// every tick. Long-running calls run as tea.Cmds so the interface stays
// responsive while uploads and lists are in flight.
//
// Three views are available and cycled with Tab:
//
//   - Results: the collection, newest first, with filename, time and preview
//   - Detail: the full extracted text of the current result
//   - Logs: the tail of the lector log file; w narrows it to warnings and errors
//
// Modal inputs capture keys for login, upload and delete confirmation. When the
// session is anonymous, including after the server reports it expired, the
// login form opens on its own.
//
// Theme and last username are saved to the prefs file.
package ui
