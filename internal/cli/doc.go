// Package cli implements the lector command line. Each subcommand builds its
// own app.Client, so the session cookies saved by one invocation are picked up
// by the next. Running lector with no subcommand opens the interactive UI.
package cli
