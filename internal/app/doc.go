// Package app is lector's composition root.
//
// # Overview
//
// New builds a Client, the one context object every command and the TUI
// share. It:
//
//  1. Probes the endpoint candidates derived from api_base and picks one
//  2. Restores session cookies saved by a previous run
//  3. Builds the transport on top of the resolver and the cookies
//  4. Creates the session manager and the result store
//  5. Routes every 401 from the transport to Session.Invalidate
//  6. Runs the startup session check
//
// Close writes the cookies back so the next run starts logged in.
//
// # Components
//
//   - app.go: Client construction, Reconnect, Logout and Close
//   - poller.go: background result refresh for the TUI
//
// # Polling
//
// StartPoller lists results every poll_interval while someone is logged in.
// Failures double the wait, up to two minutes; a success resets it. Anonymous
// sessions are not polled at all, so an expired session goes quiet instead of
// hammering the server with 401s.
//
// # Reconnect
//
// The endpoint is chosen once. Reconnect is the explicit retry: it probes the
// candidates again, swaps the selection atomically, and re-checks the session
// against the new endpoint.
package app
