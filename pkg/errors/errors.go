package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for retry and reporting decisions.
type Kind string

const (
	// KindConnection marks transient storage failures that may succeed on retry.
	KindConnection Kind = "connection"
	// KindQuery marks statement failures such as constraint or schema violations.
	KindQuery Kind = "query"
	// KindNotFound marks a missing schedule or block.
	KindNotFound Kind = "not_found"
	// KindInternal marks serialization, parsing and other unexpected failures.
	KindInternal Kind = "internal"
	// KindInput marks rejected client input.
	KindInput Kind = "input"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Kind    Kind   `json:"-"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so wrapped clones still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// Retryable reports whether the failure is transient.
func (e *Error) Retryable() bool {
	return e != nil && e.Kind == KindConnection
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Kind: kindForStatus(status)}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Kind: kindForStatus(status), Err: err}
}

// WrapAs wraps err keeping the code, status and kind of a predefined error.
func WrapAs(err error, base *Error, message string) *Error {
	if base == nil {
		base = ErrInternal
	}
	if message == "" {
		message = base.Message
	}
	return &Error{Code: base.Code, Status: base.Status, Message: message, Kind: base.Kind, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound         = &Error{Code: "NOT_FOUND", Status: http.StatusNotFound, Message: "resource not found", Kind: KindNotFound}
	ErrScheduleNotFound = &Error{Code: "SCHEDULE_NOT_FOUND", Status: http.StatusNotFound, Message: "schedule not found", Kind: KindNotFound}
	ErrForbidden        = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized     = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict         = &Error{Code: "CONFLICT", Status: http.StatusConflict, Message: "conflict", Kind: KindQuery}
	ErrValidation       = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrConnection       = &Error{Code: "STORAGE_UNAVAILABLE", Status: http.StatusServiceUnavailable, Message: "storage unavailable", Kind: KindConnection}
	ErrQuery            = &Error{Code: "QUERY_FAILED", Status: http.StatusInternalServerError, Message: "query failed", Kind: KindQuery}
	ErrInternal         = &Error{Code: "INTERNAL_ERROR", Status: http.StatusInternalServerError, Message: "internal server error", Kind: KindInternal}
	ErrCacheMiss        = &Error{Code: "CACHE_MISS", Status: http.StatusNotFound, Message: "cache miss", Kind: KindNotFound}
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e.Kind != "" {
		return e.Kind
	}
	return KindInternal
}

// IsRetryable reports whether err is a transient connection failure.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return false
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusServiceUnavailable:
		return KindConnection
	case status >= 400 && status < 500:
		return KindInput
	default:
		return KindInternal
	}
}
