package retry

import (
	"context"
	"fmt"
	"time"
)

// Default retry configuration
const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 15 * time.Second
)

// Runner executes an operation with automatic retries using linear backoff:
// the delay before retry k (1-indexed) is baseDelay * k.
type Runner struct {
	maxRetries       int
	baseDelay        time.Duration
	sleep            SleepFunc
	retryableChecker RetryableChecker
	onRetry          func(attempt int, delay time.Duration, err error)
}

// RetryableChecker determines if an error should trigger a retry
type RetryableChecker func(err error) bool

// SleepFunc waits for the given duration or until the context is done.
// Injectable so tests can observe the backoff schedule without waiting.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures a Runner
type Option func(*Runner)

// WithMaxRetries sets the maximum number of retry attempts
func WithMaxRetries(n int) Option {
	return func(r *Runner) {
		if n >= 0 {
			r.maxRetries = n
		}
	}
}

// WithBaseDelay sets the delay before the first retry; later retries wait
// proportionally longer (baseDelay * retry number).
func WithBaseDelay(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.baseDelay = d
		}
	}
}

// WithSleepFunc sets a custom sleep function
func WithSleepFunc(sleep SleepFunc) Option {
	return func(r *Runner) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// WithRetryableChecker sets a custom function to determine retryable errors
func WithRetryableChecker(checker RetryableChecker) Option {
	return func(r *Runner) {
		if checker != nil {
			r.retryableChecker = checker
		}
	}
}

// WithOnRetry sets a hook invoked before each retry wait
func WithOnRetry(hook func(attempt int, delay time.Duration, err error)) Option {
	return func(r *Runner) {
		if hook != nil {
			r.onRetry = hook
		}
	}
}

// NewRunner creates a retry runner with the given options
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		maxRetries:       defaultMaxRetries,
		baseDelay:        defaultBaseDelay,
		sleep:            sleepContext,
		retryableChecker: func(err error) bool { return true },
		onRetry:          func(int, time.Duration, error) {},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Do executes fn until it succeeds, the retries are exhausted, a
// non-retryable error occurs, or the context is cancelled. The last error
// is returned once all attempts fail.
func (r *Runner) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.maxRetries+1; attempt++ {
		if attempt > 1 {
			delay := r.baseDelay * time.Duration(attempt-1)
			r.onRetry(attempt, delay, lastErr)
			if err := r.sleep(ctx, delay); err != nil {
				return fmt.Errorf("cancelled after %d attempts: %w", attempt-1, lastErr)
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !r.retryableChecker(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
