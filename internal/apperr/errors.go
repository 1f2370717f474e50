package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindForbidden
	KindConflict
	KindNotFound
	KindInvariantViolation
	KindOperationFailed
	KindStorageUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindInvariantViolation:
		return "invariant_violation"
	case KindOperationFailed:
		return "operation_failed"
	case KindStorageUnavailable:
		return "storage_unavailable"
	default:
		return "internal"
	}
}

// Error is a business failure with a message that is safe to show to clients.
// Err keeps the underlying cause for server-side logging only.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error     { return New(KindValidation, message) }
func Authentication(message string) *Error { return New(KindAuthentication, message) }
func Forbidden(message string) *Error      { return New(KindForbidden, message) }
func Conflict(message string) *Error       { return New(KindConflict, message) }
func NotFound(message string) *Error       { return New(KindNotFound, message) }
func Invariant(message string) *Error      { return New(KindInvariantViolation, message) }

func OperationFailed(message string, err error) *Error {
	return Wrap(KindOperationFailed, message, err)
}

// Storage wraps a driver or connectivity failure. The message is generic on purpose.
func Storage(err error) *Error {
	return Wrap(KindStorageUnavailable, "database error", err)
}

// KindOf reports the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindInvariantViolation:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text that may be sent to a client.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
