package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	uperrors "github.com/quayside/upstream/errors"
)

// fastPolicy keeps backoff delays negligible so tests run quickly.
// Jitter still adds up to a second per step, so attempt counts stay small.
var fastPolicy = Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

// TestDo_SucceedsFirstAttempt verifies no delay and no annotation on an
// immediately successful operation.
func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), fastPolicy, func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

// TestDo_RetriesTransientFailure verifies that retryable failures are
// re-attempted and a later success wins.
func TestDo_RetriesTransientFailure(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), fastPolicy, func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, uperrors.NewError("upload", uperrors.ErrConnection)
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
}

// TestDo_StopsOnNonRetryable verifies fail-fast behavior on validation and
// store rejection failures.
func TestDo_StopsOnNonRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "validation failure", err: uperrors.NewValidationError("upload", uperrors.ErrContentMismatch)},
		{name: "store rejection", err: uperrors.NewError("upload", uperrors.ErrAccessDenied)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			_, err := Do(context.Background(), fastPolicy, func(ctx context.Context) (string, error) {
				calls++
				return "", tt.err
			})

			require.Error(t, err)
			assert.Equal(t, 1, calls)
			assert.False(t, uperrors.IsRetryable(err))

			var e *uperrors.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, 1, e.Attempts)
		})
	}
}

// TestDo_ExhaustsAttempts verifies the last failure surfaces with the total
// attempt count once the bound is reached.
func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy, func(ctx context.Context) (string, error) {
		calls++
		return "", uperrors.NewError("upload", uperrors.ErrTimeout)
	})

	require.Error(t, err)
	assert.Equal(t, fastPolicy.MaxAttempts, calls)

	var e *uperrors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, fastPolicy.MaxAttempts, e.Attempts)
	assert.ErrorIs(t, err, uperrors.ErrTimeout)
}

// TestDo_PanicIsFatal verifies a panicking operation is never re-attempted
// and the panic value travels the error path.
func TestDo_PanicIsFatal(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy, func(ctx context.Context) (string, error) {
		calls++
		panic("boom")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), "operation panicked")
	assert.Contains(t, err.Error(), "boom")
}

// TestDo_ContextCancelledDuringBackoff verifies the wait is interruptible.
func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := Do(ctx, Policy{MaxAttempts: 5, BaseDelay: 10 * time.Second}, func(ctx context.Context) (string, error) {
		calls++
		cancel()
		return "", uperrors.NewError("upload", uperrors.ErrConnection)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestDo_ZeroPolicyUsesDefaults verifies the zero Policy is usable.
func TestDo_ZeroPolicyUsesDefaults(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{}, func(ctx context.Context) (string, error) {
		calls++
		return "", uperrors.NewValidationError("upload", uperrors.ErrInvalidInput)
	})

	require.Error(t, err)
	// Non-retryable, so defaults only show in that the call still ran once.
	assert.Equal(t, 1, calls)
}

// TestDo_BareErrorAnnotation verifies unclassified errors still carry the
// attempt count after exhaustion.
func TestDo_BareErrorAnnotation(t *testing.T) {
	boom := errors.New("boom")
	_, err := Do(context.Background(), Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}, func(ctx context.Context) (string, error) {
		return "", boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "after 2 attempt(s)")
}
