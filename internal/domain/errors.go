package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when no valid identity backs a request
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when a caller reaches for another user's records
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidURL is returned when a URL matches neither platform's shape
	ErrInvalidURL = errors.New("invalid url")

	// ErrInvalidMediaType is returned when the media type is missing or not valid for the platform
	ErrInvalidMediaType = errors.New("invalid media type")

	// ErrInvalidQuality is returned when a quality tag is not in the platform catalogue
	ErrInvalidQuality = errors.New("invalid quality")

	// ErrInvalidJob is returned when a job record violates its invariants
	ErrInvalidJob = errors.New("invalid job")

	// ErrJobNotFound is returned when a job id does not resolve
	ErrJobNotFound = errors.New("job not found")

	// ErrAlreadyFinalized is returned when finalizing a job that is no longer pending
	ErrAlreadyFinalized = errors.New("job already finalized")

	// ErrQueueFull is returned when the delivery queue cannot accept more job ids
	ErrQueueFull = errors.New("job queue full")

	// ErrQueueClosed is returned by a queue after Close
	ErrQueueClosed = errors.New("job queue closed")

	// ErrLeaseLost is returned when renewing a job lease that expired or changed hands
	ErrLeaseLost = errors.New("job lease lost")
)

// ForbiddenError reports an entitlement denial with an actionable reason
type ForbiddenError struct {
	Reason DenialReason
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Reason)
}

// RetryableError marks a transient retrieval failure (network, source rate limit)
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Retryable wraps err as a transient failure
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err, or anything it wraps, is a transient failure
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
