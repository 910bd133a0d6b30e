// Package retry runs an operation a bounded number of times, racing every
// attempt against a timeout and pausing a fixed delay between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAttemptTimeout is reported for an attempt that outlived Policy.Timeout.
var ErrAttemptTimeout = errors.New("attempt timed out")

// Policy bounds a retried operation.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Timeout     time.Duration
}

// ExhaustedError is returned when every attempt failed or retrying stopped early.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempt(s): %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

type options struct {
	wait      func(ctx context.Context, d time.Duration) error
	retryIf   func(err error) bool
	onAttempt func(attempt int, err error)
}

// Option customises a single Do call.
type Option func(*options)

// WithWait replaces the pause between attempts. Tests use it to record delays.
func WithWait(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) {
		if fn != nil {
			o.wait = fn
		}
	}
}

// WithRetryIf stops retrying as soon as fn returns false for an attempt error.
func WithRetryIf(fn func(err error) bool) Option {
	return func(o *options) {
		o.retryIf = fn
	}
}

// WithOnAttempt is called after every attempt; err is nil on success.
func WithOnAttempt(fn func(attempt int, err error)) Option {
	return func(o *options) {
		o.onAttempt = fn
	}
}

// Do calls op until it succeeds, the policy is exhausted or ctx is done.
// A failed run always returns an *ExhaustedError wrapping the last failure.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	o := options{wait: Sleep}
	for _, opt := range opts {
		opt(&o)
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}

	var (
		zero    T
		lastErr error
		attempt int
	)
	for attempt = 1; attempt <= p.MaxAttempts; attempt++ {
		result, err := runAttempt(ctx, p.Timeout, op)
		if o.onAttempt != nil {
			o.onAttempt(attempt, err)
		}
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == p.MaxAttempts || ctx.Err() != nil {
			break
		}
		if o.retryIf != nil && !o.retryIf(err) {
			break
		}
		if p.Delay > 0 {
			if err := o.wait(ctx, p.Delay); err != nil {
				lastErr = errors.Join(lastErr, err)
				break
			}
		}
	}
	if attempt > p.MaxAttempts {
		attempt = p.MaxAttempts
	}
	return zero, &ExhaustedError{Attempts: attempt, Last: lastErr}
}

// Run is Do for operations without a result.
func Run(ctx context.Context, p Policy, op func(ctx context.Context) error, opts ...Option) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts...)
	return err
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type outcome[T any] struct {
	value T
	err   error
}

// runAttempt races op against the timeout. An op that ignores its context is
// left running; its late result is dropped.
func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if timeout <= 0 {
		return op(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		v, err := op(attemptCtx)
		done <- outcome[T]{value: v, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && timedOut(ctx, attemptCtx) {
			return zero, fmt.Errorf("%w after %s: %v", ErrAttemptTimeout, timeout, out.err)
		}
		return out.value, out.err
	case <-attemptCtx.Done():
		if timedOut(ctx, attemptCtx) {
			return zero, fmt.Errorf("%w after %s", ErrAttemptTimeout, timeout)
		}
		return zero, ctx.Err()
	}
}

// timedOut is true when the attempt deadline fired but the caller's context is still live.
func timedOut(parent, attempt context.Context) bool {
	return errors.Is(attempt.Err(), context.DeadlineExceeded) && parent.Err() == nil
}
