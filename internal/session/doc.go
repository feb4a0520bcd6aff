// Package session tracks whether lector is logged in and as whom.
//
// Manager is a small state machine:
//
//	Anonymous -> Authenticating -> Authenticated | Failed
//	Authenticated -> Anonymous   (logout, or a 401 anywhere)
//	Failed -> Authenticating     (retry)
//
// Identity only ever comes from GET /api/user. Login posts credentials and
// then re-checks the session; the login reply is not trusted. Logout always
// ends in Anonymous, even when the request fails.
//
// Login, Logout, Register and CheckSession are serialized. A second call
// waits for the first to settle; nothing is cancelled. Invalidate is the
// exception: it is wired to the transport's 401 signal and takes effect
// immediately.
package session
