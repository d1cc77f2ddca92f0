package vision

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// FatalReason classifies non-retryable extraction failures for batch status
// reporting.
type FatalReason string

const (
	ReasonAuth         FatalReason = "auth"
	ReasonQuota        FatalReason = "quota"
	ReasonInvalidImage FatalReason = "invalid_image"
	ReasonBadRequest   FatalReason = "bad_request"
)

// TransientError indicates a retryable extraction failure: network trouble,
// rate limiting, or a malformed-but-retryable response. RetryAfter is a
// provider hint; zero means the caller's backoff schedule applies.
type TransientError struct {
	Err        error
	RetryAfter time.Duration
	Provider   string
}

func (e *TransientError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s transient failure (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("%s transient failure: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// FatalError indicates a non-retryable extraction failure that is surfaced
// immediately to the batch status.
type FatalError struct {
	Err      error
	Reason   FatalReason
	Provider string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s fatal failure (%s): %v", e.Provider, e.Reason, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as retryable. retryAfterSecs of 0 leaves the
// backoff schedule to the retrier.
func NewTransientError(provider string, err error, retryAfterSecs int) *TransientError {
	return &TransientError{
		Err:        err,
		RetryAfter: time.Duration(retryAfterSecs) * time.Second,
		Provider:   provider,
	}
}

// NewFatalError wraps err as non-retryable with its classification.
func NewFatalError(provider string, reason FatalReason, err error) *FatalError {
	return &FatalError{Err: err, Reason: reason, Provider: provider}
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// FailureReason renders err for the per-task status mapping.
func FailureReason(err error) string {
	var fe *FatalError
	if errors.As(err, &fe) {
		return fmt.Sprintf("%s: %v", fe.Reason, fe.Err)
	}
	return err.Error()
}

// ParseRetryAfterHeader parses a Retry-After header value into seconds.
// Returns 0 if the value is empty or not a valid integer.
func ParseRetryAfterHeader(val string) int {
	if val == "" {
		return 0
	}
	secs, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return secs
}
