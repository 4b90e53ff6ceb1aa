// Package errs defines the error-kind vocabulary shared by every component:
// not Go types per kind, but a single tagged Error carrying one of a fixed
// set of kinds, so the scheduler can route on kind without type-switching
// across package boundaries.
package errs

import (
	"errors"
	"fmt"
	"time"
)

// Kind is one of the fixed error categories the scheduler's ERROR stage and
// the RetryHandler route on.
type Kind string

const (
	RateLimited  Kind = "rate_limited"
	AuthFailed   Kind = "auth_failed"
	Transient    Kind = "transient"
	InvalidInput Kind = "invalid_input"
	NotFound     Kind = "not_found"
	Conflict     Kind = "conflict"
	Budget       Kind = "budget"
	Fatal        Kind = "fatal"
	Backpressure Kind = "backpressure"
)

// Error is the common error shape carried through stage boundaries, the
// error log, and the RetryHandler.
type Error struct {
	Kind    Kind
	Message string
	ResetAt time.Time // meaningful only when Kind == RateLimited
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of kind around cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// RateLimitedUntil builds a RateLimited error carrying resetAt.
func RateLimitedUntil(resetAt time.Time) *Error {
	return &Error{Kind: RateLimited, Message: "rate limited", ResetAt: resetAt}
}

// As reports whether err (or something it wraps) is an *Error, returning it.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// retryable is the fixed set of kinds RetryHandler will retry.
var retryable = map[Kind]bool{
	RateLimited: true,
	Transient:   true,
}

// Retryable reports whether err's kind is in the policy's retryable set.
func Retryable(err error) bool {
	e, ok := As(err)
	return ok && retryable[e.Kind]
}
