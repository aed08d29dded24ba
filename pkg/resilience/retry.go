package resilience

import (
	"context"
	"time"
)

// RetryPolicy defines retry behavior for transient failures. Attempt n waits
// n*Backoff before running.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
	// Retryable reports whether err is worth another attempt. Nil retries
	// everything except rate limits, which the breaker handles.
	Retryable func(error) bool
}

func NewRetryPolicy(maxRetries int, backoff time.Duration) RetryPolicy {
	if maxRetries <= 0 {
		maxRetries = 2
	}
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return RetryPolicy{MaxRetries: maxRetries, Backoff: backoff}
}

func (r RetryPolicy) retryable(err error) bool {
	if r.Retryable != nil {
		return r.Retryable(err)
	}
	return !IsRateLimit(err)
}

// Do runs fn until it succeeds, the error is not retryable, retries run out
// or ctx ends.
func (r RetryPolicy) Do(ctx context.Context, fn func() error) error {
	var err error
	for i := 0; i <= r.MaxRetries; i++ {
		if i > 0 {
			timer := time.NewTimer(time.Duration(i) * r.Backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		err = fn()
		if err == nil {
			return nil
		}
		if !r.retryable(err) {
			return err
		}
	}
	return err
}
