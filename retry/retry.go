// Package retry provides the retry policy for pipeline operations: bounded
// attempts with exponential backoff and uniform jitter, short-circuiting on
// the first non-retryable failure.
//
// The policy is a pure decision layer over an operation; the orchestrator
// itself never retries. Callers wrap Client.Upload (or the narrower
// administrative operations) in Do to opt into retries.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	uperrors "github.com/quayside/upstream/errors"
)

const (
	// DefaultMaxAttempts bounds attempts when the caller passes zero.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay seeds the backoff when the caller passes zero.
	DefaultBaseDelay = 500 * time.Millisecond

	// maxJitter bounds the uniform random delay added to each backoff step
	// to avoid synchronized retry storms.
	maxJitter = time.Second
)

// Policy holds the immutable retry parameters.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay seeds the exponential backoff: the wait before attempt n+1
	// is BaseDelay * 2^(n-1) plus uniform jitter in [0, 1s).
	BaseDelay time.Duration
}

// Do executes op up to p.MaxAttempts times. It stops immediately, without
// delay, on success, on the first non-retryable failure, or when the context
// is cancelled. When all attempts are exhausted the last failure is returned
// annotated with the total attempt count.
//
// A panic inside op is treated as fatal for the retry loop: it indicates a
// programming error rather than a transient condition, so it is converted to
// an error and never retried.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	baseDelay := p.BaseDelay
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := runGuarded(ctx, op)
		if err == nil {
			return result, nil
		}

		var fatal *panicError
		if errors.As(err, &fatal) {
			return zero, annotate(err, attempt)
		}
		if !uperrors.IsRetryable(err) {
			return zero, annotate(err, attempt)
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		delay := baseDelay<<(attempt-1) + time.Duration(rand.Int63n(int64(maxJitter)))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, annotate(ctx.Err(), attempt)
		}
	}

	return zero, annotate(lastErr, maxAttempts)
}

// panicError wraps a recovered panic so it can travel the error path while
// staying distinguishable from structured operational failures.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("retry: operation panicked: %v", e.value)
}

// runGuarded invokes op, converting a panic into a panicError.
func runGuarded[T any](ctx context.Context, op func(ctx context.Context) (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return op(ctx)
}

// annotate stamps the total attempt count onto classified errors; other
// errors are wrapped so the count still surfaces.
func annotate(err error, attempts int) error {
	if err == nil {
		return nil
	}
	var e *uperrors.Error
	if errors.As(err, &e) {
		e.Attempts = attempts
		return err
	}
	return fmt.Errorf("after %d attempt(s): %w", attempts, err)
}
