package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnavailable  = errors.New("venue unavailable")
	ErrInvalidInput = errors.New("invalid input")
	ErrContextDone  = errors.New("context cancelled")
)

// ErrorClass classifies a venue failure for retry handling.
type ErrorClass string

const (
	// ClassRetryable covers transient transport and 5xx failures: retry
	// with backoff.
	ClassRetryable ErrorClass = "retryable"
	// ClassRateLimited means the venue asked us to slow down: retry, but
	// back off harder.
	ClassRateLimited ErrorClass = "rate_limited"
	// ClassFatal means retrying cannot help (bad request, auth, unknown
	// symbol): abort immediately.
	ClassFatal ErrorClass = "fatal"
)

// VenueError wraps a failure from a venue adapter with its classification so
// retry loops can distinguish "slow down" from "broken".
type VenueError struct {
	Venue string
	Class ErrorClass
	Err   error
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Venue, e.Class, e.Err)
}

func (e *VenueError) Unwrap() error { return e.Err }

// NewVenueError builds a classified venue error.
func NewVenueError(venue string, class ErrorClass, err error) *VenueError {
	return &VenueError{Venue: venue, Class: class, Err: err}
}

// ClassOf extracts the classification from err. Context cancellation and
// deadline expiry are Fatal (retrying a dead context is pointless);
// unclassified errors default to Retryable.
func ClassOf(err error) ErrorClass {
	var ve *VenueError
	if errors.As(err, &ve) {
		return ve.Class
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassFatal
	}
	if errors.Is(err, ErrRateLimited) {
		return ClassRateLimited
	}
	return ClassRetryable
}
