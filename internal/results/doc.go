// Package results holds the local copy of a user's extraction results.
//
// # Overview
//
// Store mirrors the server's result collection and keeps a single "current"
// slot for the detail view. Everything goes through four operations:
//
//	List       GET    /api/results       replace the collection in server order
//	Submit     POST   /api/ocr           upload a file, prepend the new result
//	FetchOne   GET    /api/results/{id}  load one result into the current slot
//	DeleteOne  DELETE /api/results/{id}  remove a result once the server agrees
//
// # Invariants
//
//   - The collection never holds two results with the same id. A submit that
//     returns an id already present replaces the old entry.
//   - The current slot holds the result most recently fetched or created, and
//     is emptied when that result is deleted.
//   - Ids that are empty, "undefined" or "null" are rejected before any
//     request is made.
//
// # Failures
//
// A failed List keeps the previous collection; stale data is more useful than
// none. A failed FetchOne empties the current slot. A failed DeleteOne leaves
// everything in place. Every failure sets LastError to a short message built
// by transport.Message before the error is returned. A 401 drops the
// collection and the slot, since they belonged to a session that has ended.
//
// # Overlapping Operations
//
// Operations may run concurrently. While any are in flight the Store keeps a
// journal of results created and deleted, tagged with a sequence number. A
// List that started before a delete drops the deleted id from its response; a
// List that started before a submit keeps the new result at the front. A
// FetchOne that finishes after a delete of the same id leaves the slot alone
// and returns ErrDeleted. The journal is cleared when the last operation
// settles.
//
// # Uploads
//
// Validate sniffs the content type with mimetype rather than trusting the
// file name, and enforces Limits (16MB of PNG, JPEG or PDF by default).
// LoadFile refuses oversized files before reading them.
package results
