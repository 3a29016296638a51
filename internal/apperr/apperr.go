// Package apperr defines the application error taxonomy. Every error that
// crosses a service boundary carries a Kind so handlers can map it to a
// stable HTTP status without string matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindInvalidInput      Kind = "invalid_input"
	KindInsufficientStock Kind = "insufficient_stock"
	KindConflict          Kind = "conflict"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindInternal          Kind = "internal"
)

// Error is an application error with a stable kind and a human-readable
// message. The wrapped cause, if any, is for logs only and never rendered
// to clients.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus maps the error kind to a response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidInput, KindInsufficientStock:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidInput(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func InsufficientStock(format string, args ...any) *Error {
	return &Error{Kind: KindInsufficientStock, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// Internal wraps an infrastructure failure. The client-visible message stays
// generic; the cause is preserved for logging.
func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, cause: cause}
}

// IsKind reports whether err is an application error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// From extracts the application error from err, or wraps it as an internal
// error so callers always have a renderable kind.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal("internal server error", err)
}
