// Package state tracks the health of lector's background result refresh.
//
// The poller in package app records every refresh outcome here: which
// endpoint was used, when it ran, when it last succeeded and how many polls
// in a row have failed. The terminal UI reads Snapshot to show an offline
// indicator once the service has missed two polls, while the result store
// keeps serving the last list it received.
//
// Store is safe for concurrent use. Snapshot returns a copy, and LastError is
// wrapped so callers can inspect it with errors.Is without sharing the stored
// value.
package state
