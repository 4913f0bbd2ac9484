package search

import (
	"errors"
	"fmt"
	"strings"
)

// ErrQuotaExhausted reports that the per-run search budget is spent.
// The caller stops issuing searches but keeps everything collected so
// far; it is a stop signal, not a failure.
var ErrQuotaExhausted = errors.New("search budget exhausted")

// Failure kinds. HTTP failures outside this list carry a dynamic
// "http_<status>" kind via HTTPKind.
const (
	KindAuth        = "auth"
	KindRateLimited = "rate_limited"
	KindTransport   = "transport"
	KindMalformed   = "malformed"
)

// HTTPKind returns the kind string for an unexpected HTTP status.
func HTTPKind(status int) string {
	return fmt.Sprintf("http_%d", status)
}

// Error describes a failed search call for one category. A category's
// failure never aborts the run; the orchestrator records the kind and
// moves on.
type Error struct {
	Provider string
	Category string
	Kind     string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s search failed for %q: %s", e.Provider, e.Category, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could plausibly succeed.
// Auth failures, malformed responses, and client errors will fail the
// same way every time; transport errors, throttling, and server errors
// are worth a bounded retry.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTransport, KindRateLimited:
		return true
	case KindAuth, KindMalformed:
		return false
	}
	return strings.HasPrefix(e.Kind, "http_5")
}

// Retryable classifies an arbitrary error for the retry loop. Only
// errors the provider explicitly marked transient are retried.
func Retryable(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return false
}
