package httputil

import (
	"context"
	"errors"
	"time"
)

// RetryableError marks a transient failure, such as a dropped connection
// or a 5xx answer, that [Backoff.Do] should try again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable marks err as transient. A nil error stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err was marked with [Retryable].
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Backoff is an exponential retry policy.
type Backoff struct {
	// Attempts is the total number of calls, at least one.
	Attempts int
	// Delay is the wait after the first failure. It doubles after each
	// further failure, up to MaxDelay when that is set.
	Delay    time.Duration
	MaxDelay time.Duration
}

// DefaultBackoff is used by clients without WithRetry.
var DefaultBackoff = Backoff{Attempts: 3, Delay: 500 * time.Millisecond, MaxDelay: 5 * time.Second}

// Do calls fn until it succeeds, returns an error not marked retryable, or
// the attempts run out. The last transient error is returned unmarked so
// callers see the underlying cause. Cancelling ctx during a wait returns
// ctx.Err().
func (b Backoff) Do(ctx context.Context, fn func() error) error {
	delay := b.Delay
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !IsRetryable(err) {
			return err
		}
		if attempt >= b.Attempts {
			var re *RetryableError
			errors.As(err, &re)
			return re.Err
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
		if b.MaxDelay > 0 && delay > b.MaxDelay {
			delay = b.MaxDelay
		}
	}
}
