package inference

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Verdict classifies the outcome of one attempt.
type Verdict int

const (
	// VerdictPermanent means the call must not be retried.
	VerdictPermanent Verdict = iota
	// VerdictTransient means another attempt may succeed.
	VerdictTransient
)

func (v Verdict) String() string {
	if v == VerdictTransient {
		return "transient"
	}
	return "permanent"
}

// Classify decides whether err is worth another attempt.
// Warm-up responses and attempt timeouts are transient, everything else is permanent.
func Classify(err error) Verdict {
	var transient *TransientError
	if errors.As(err, &transient) {
		return VerdictTransient
	}
	var permanent *PermanentError
	if errors.As(err, &permanent) {
		return VerdictPermanent
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return VerdictTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return VerdictTransient
	}
	return VerdictPermanent
}

// Policy retries a call a bounded number of times.
type Policy struct {
	MaxAttempts int
	// TimeoutBackoff is the wait after a timed-out attempt.
	TimeoutBackoff time.Duration
	// MaxWarmupWait caps the service's own warm-up estimate.
	MaxWarmupWait time.Duration
	// Sleep waits for d or until ctx is done. Nil means a timer-based wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do runs call until it succeeds, fails permanently or the attempts are spent.
// Each attempt gets its own deadline of timeout (none when zero). It returns
// the number of attempts made. Cancelling ctx aborts immediately, even mid-wait.
func (p Policy) Do(ctx context.Context, timeout time.Duration, call func(ctx context.Context) error) (int, error) {
	maxAttempts := max(p.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := p.attempt(ctx, timeout, call)
		if err == nil {
			return attempt, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempt, fmt.Errorf("inference call aborted: %w", ctxErr)
		}
		if Classify(err) == VerdictPermanent {
			return attempt, err
		}

		lastErr = err
		if attempt == maxAttempts {
			break
		}
		if err := p.sleep(ctx, p.backoff(err)); err != nil {
			return attempt, fmt.Errorf("inference call aborted: %w", err)
		}
	}

	return maxAttempts, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, maxAttempts, lastErr)
}

func (p Policy) attempt(ctx context.Context, timeout time.Duration, call func(ctx context.Context) error) error {
	if timeout <= 0 {
		return call(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return call(attemptCtx)
}

// backoff returns how long to wait after the transient failure err.
func (p Policy) backoff(err error) time.Duration {
	var transient *TransientError
	if errors.As(err, &transient) && transient.RetryAfter > 0 {
		if p.MaxWarmupWait > 0 && transient.RetryAfter > p.MaxWarmupWait {
			return p.MaxWarmupWait
		}
		return transient.RetryAfter
	}
	return p.TimeoutBackoff
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
