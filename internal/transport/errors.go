package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed operation.
type Kind int

const (
	// KindNetwork means no response was received (DNS, connect, timeout).
	KindNetwork Kind = iota + 1
	// KindUnauthorized is an HTTP 401 response.
	KindUnauthorized
	// KindApplication is any other non-2xx response.
	KindApplication
	// KindValidation is invalid input caught before any request was issued.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindApplication:
		return "application"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

const (
	// NetworkMessage is shown whenever the server could not be reached.
	NetworkMessage = "Cannot connect to server. Please check if the backend is running."
	// SessionExpiredMessage is shown for a 401 that carries no reason.
	SessionExpiredMessage = "Session expired. Please log in again."
)

// Error describes a classified failure.
type Error struct {
	Kind   Kind
	Op     string // "METHOD /path"; empty for validation errors
	Status int    // HTTP status; zero when no response was received
	Reason string // server-provided or validation message
	cause  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindValidation:
		return e.Reason
	case KindNetwork:
		if e.cause != nil {
			return fmt.Sprintf("%s: server unreachable: %v", e.Op, e.cause)
		}
		return fmt.Sprintf("%s: server unreachable", e.Op)
	default:
		if e.Reason != "" {
			return fmt.Sprintf("api %s returned status %d: %s", e.Op, e.Status, e.Reason)
		}
		return fmt.Sprintf("api %s returned status %d", e.Op, e.Status)
	}
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Validation builds a client-side validation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Reason: fmt.Sprintf(format, args...)}
}

func networkError(op string, cause error) *Error {
	return &Error{Kind: KindNetwork, Op: op, cause: cause}
}

func statusError(op string, status int, reason string) *Error {
	kind := KindApplication
	if status == http.StatusUnauthorized {
		kind = KindUnauthorized
	}
	return &Error{Kind: kind, Op: op, Status: status, Reason: strings.TrimSpace(reason)}
}

// KindOf reports the classification of err, or zero when err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsNetwork reports whether err is a NetworkFailure.
func IsNetwork(err error) bool { return KindOf(err) == KindNetwork }

// IsUnauthorized reports whether err is a 401.
func IsUnauthorized(err error) bool { return KindOf(err) == KindUnauthorized }

// IsValidation reports whether err was raised before any request.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// StatusOf returns the HTTP status carried by err, or zero.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// Message returns the short user-facing text for err. Server reasons win over
// the fallback; unreachable servers and reason-less 401s get fixed wording.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return fallback
	}
	switch e.Kind {
	case KindNetwork:
		return NetworkMessage
	case KindValidation:
		return e.Reason
	case KindUnauthorized:
		if e.Reason != "" {
			return e.Reason
		}
		return SessionExpiredMessage
	default:
		if e.Reason != "" {
			return e.Reason
		}
		return fallback
	}
}

// ReasonOf returns the server-provided reason carried by err, if any.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
