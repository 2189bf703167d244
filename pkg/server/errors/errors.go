// Package errors contains the errors returned by the catalog operations and their mapping
// onto the HTTP surface.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ontologymarket/catalog/pkg/storage"
)

// Kind classifies an Error.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthentication
	KindAuthorization
	KindValidation
	KindNotFound
	KindStore
	KindTimeout
	KindCache
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication_error"
	case KindAuthorization:
		return "authorization_error"
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindStore:
		return "internal_error"
	case KindTimeout:
		return "timeout"
	case KindCache:
		return "cache_error"
	default:
		return "unknown"
	}
}

const (
	InternalServerErrorMsg = "Database error occurred"
	TimeoutErrorMsg        = "The request timed out, try again later"
	AuthenticationErrorMsg = "Authentication required"
)

// Error is the error returned by every catalog operation. Message is safe to show to the
// caller; the cause is kept for logging only.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches another *Error of the same kind and message, so that package level errors
// can be compared with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// AuthenticationError is returned when the caller could not be identified. The cause's
// text is shown to the caller: it describes the credentials, not the server.
func AuthenticationError(cause error) *Error {
	msg := AuthenticationErrorMsg
	if cause != nil {
		msg = fmt.Sprintf("Authentication failed: %s", cause.Error())
	}
	return newError(KindAuthentication, msg, cause)
}

func AuthorizationError(message string) *Error {
	return newError(KindAuthorization, message, nil)
}

func ValidationError(message string) *Error {
	return newError(KindValidation, message, nil)
}

func ValidationErrorf(format string, args ...any) *Error {
	return newError(KindValidation, fmt.Sprintf(format, args...), nil)
}

func NotFoundError(message string) *Error {
	return newError(KindNotFound, message, nil)
}

// StoreError hides cause behind public. An empty public message falls back to
// InternalServerErrorMsg.
func StoreError(public string, cause error) *Error {
	if public == "" {
		public = InternalServerErrorMsg
	}
	return newError(KindStore, public, cause)
}

func TimeoutError(cause error) *Error {
	return newError(KindTimeout, TimeoutErrorMsg, cause)
}

func CacheError(cause error) *Error {
	return newError(KindCache, "cache unavailable", cause)
}

// HandleError maps a datastore error onto the public taxonomy. Errors that are already
// an *Error pass through.
func HandleError(public string, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	switch {
	case errors.As(err, &e):
		return e
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, storage.ErrTransient):
		return TimeoutError(err)
	case errors.Is(err, storage.ErrNotFound):
		if public == "" {
			public = "Not found"
		}
		return NotFoundError(public)
	case errors.Is(err, storage.ErrInvalidCapability):
		return ValidationError("Capability must be CAN_EDIT or CAN_DELETE")
	default:
		return StoreError(public, err)
	}
}

// KindOf returns the kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HTTPStatus returns the status code a response carrying err should have.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message err may expose to a caller.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindUnknown {
		return e.Message
	}
	return InternalServerErrorMsg
}
