package inference

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoExercise reports that the model found no exercise in the photo.
	// It is an expected outcome, not a failure of the call.
	ErrNoExercise = errors.New("no exercise recognized")
	// ErrRetriesExhausted wraps the last transient error once every attempt is spent.
	ErrRetriesExhausted = errors.New("inference retries exhausted")
	// ErrEmptyResponse reports a well-formed response that carries no text.
	ErrEmptyResponse = errors.New("inference response has no text")
	// ErrMalformedResponse reports a response body that could not be decoded.
	ErrMalformedResponse = errors.New("inference response is malformed")
	// ErrBlocked reports a prompt rejected by the provider's safety filter.
	ErrBlocked = errors.New("inference request blocked")
)

// TransientError is a failure worth retrying: the model is warming up or
// the attempt timed out.
type TransientError struct {
	Reason string
	// RetryAfter is the service's own estimate of when to try again, zero if unknown.
	RetryAfter time.Duration
	Err        error
}

func (e *TransientError) Error() string {
	msg := "transient inference failure: " + e.Reason
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %s)", e.RetryAfter)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError is a failure that another attempt would not fix.
type PermanentError struct {
	// StatusCode is the HTTP status returned by the service, zero when the
	// failure happened before or after the exchange.
	StatusCode int
	Err        error
}

func (e *PermanentError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("permanent inference failure (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("permanent inference failure: %v", e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }
