// Package transport is the single HTTP client lector uses to talk to the OCR
// service.
//
// # Overview
//
// A Client is bound to a BaseURLSource (normally the endpoint resolver) and
// resolves every request path against whatever base that source currently
// reports. An empty base means "same origin", which for a terminal client is
// the configured Origin.
//
// Every call:
//   - attaches the Credentials handle (session cookies by default)
//   - sets Accept: application/json, a User-Agent and an X-Request-ID
//   - encodes JSON request bodies, or builds a multipart form for uploads
//   - is bounded by a fixed per-call timeout (10s default)
//
// # Error Classification
//
// Failures are classified exactly once, here, into *Error values:
//
//   - KindNetwork: no response at all (DNS, connection refused, timeout)
//   - KindUnauthorized: HTTP 401
//   - KindApplication: any other non-2xx status
//   - KindValidation: raised by callers via Validation() before a request
//
// The server's JSON body ({"error": "..."} or {"message": "..."}) is kept as
// the Reason. Message(err, fallback) turns any error into the short string a
// UI shows.
//
// # Session Invalidation
//
// Every 401, whatever the call, runs the callbacks registered with
// OnUnauthorized before the failing call returns. The session manager uses
// this to drop back to anonymous when a result request finds the session
// expired.
//
// # Credentials
//
// CookieCredentials wraps a net/http/cookiejar (public suffix aware) and can
// be saved to and loaded from a TOML file so separate CLI invocations share a
// login. The http.Client itself never owns a jar; credentials are applied
// explicitly so another scheme can be substituted.
package transport
