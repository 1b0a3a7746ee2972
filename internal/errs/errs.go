// Package errs defines the typed errors surfaced by the fetch and
// storage layers, so callers can distinguish authentication, missing
// repository, rate limiting, malformed responses, and file I/O failures.
package errs

import (
	"errors"
	"fmt"
	"time"

	"github.com/yatsu/githubstat/internal/domain"
)

// AuthError indicates the access token was rejected or lacks the
// required scope for the requested statistic.
type AuthError struct {
	Kind       domain.Kind
	StatusCode int
	Cause      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed (HTTP %d): %v", e.Kind, e.StatusCode, e.Cause)
}

func (e *AuthError) Unwrap() error { return e.Cause }

// NotFoundError indicates the repository or its statistics endpoint
// does not exist or is not visible to the token.
type NotFoundError struct {
	Kind   domain.Kind
	Target domain.Target
	Cause  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: repository %s not found: %v", e.Kind, e.Target, e.Cause)
}

func (e *NotFoundError) Unwrap() error { return e.Cause }

// RateLimitError indicates the platform throttled the request. Reset
// and RetryAfter carry whatever retry detail the platform provided so
// a caller can decide when to try again; the core never retries.
type RateLimitError struct {
	Kind       domain.Kind
	Reset      time.Time
	RetryAfter time.Duration
	Cause      error
}

func (e *RateLimitError) Error() string {
	if !e.Reset.IsZero() {
		return fmt.Sprintf("%s: rate limit exceeded, resets at %s", e.Kind, e.Reset.Format(time.RFC3339))
	}
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limit exceeded, retry after %s", e.Kind, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limit exceeded: %v", e.Kind, e.Cause)
}

func (e *RateLimitError) Unwrap() error { return e.Cause }

// MalformedResponseError indicates the platform answered with a body
// that could not be decoded into the expected shape.
type MalformedResponseError struct {
	Kind  domain.Kind
	Cause error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Kind, e.Cause)
}

func (e *MalformedResponseError) Unwrap() error { return e.Cause }

// StorageError indicates a read or write failure on a persisted file.
// Op is "read", "write" or "rename".
type StorageError struct {
	Op    string
	Path  string
	Cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Cause)
}

func (e *StorageError) Unwrap() error { return e.Cause }

// IsAuth checks if the error is an authentication error.
func IsAuth(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsRateLimit checks if the error is a rate limit error.
func IsRateLimit(err error) bool {
	var target *RateLimitError
	return errors.As(err, &target)
}

// IsStorage checks if the error is a storage error.
func IsStorage(err error) bool {
	var target *StorageError
	return errors.As(err, &target)
}
