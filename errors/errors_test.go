package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestError_Error tests error message formatting with varying context.
func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "with bucket and key",
			err:  NewError("upload", ErrAccessDenied).WithBucket("my-bucket").WithKey("uploads/a.png"),
			want: "upstream.upload my-bucket/uploads/a.png: upstream: access denied",
		},
		{
			name: "with bucket only",
			err:  NewError("delete", ErrBucketNotFound).WithBucket("my-bucket"),
			want: "upstream.delete bucket my-bucket: upstream: bucket not found",
		},
		{
			name: "with key only",
			err:  NewError("exists", ErrObjectNotFound).WithKey("uploads/a.png"),
			want: "upstream.exists object uploads/a.png: upstream: object not found",
		},
		{
			name: "bare operation",
			err:  NewError("upload", ErrConnection),
			want: "upstream.upload: upstream: connection error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

// TestNewError_Classification verifies that sentinel errors map to the
// expected kind, stage, and retryability.
func TestNewError_Classification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantKind  Kind
		wantStage Stage
		retryable bool
	}{
		{
			name:      "type not allowed is validation",
			err:       ErrTypeNotAllowed,
			wantKind:  KindValidation,
			wantStage: StageValidation,
			retryable: false,
		},
		{
			name:      "content mismatch is validation",
			err:       ErrContentMismatch,
			wantKind:  KindValidation,
			wantStage: StageValidation,
			retryable: false,
		},
		{
			name:      "size exceeded is validation",
			err:       ErrSizeExceeded,
			wantKind:  KindValidation,
			wantStage: StageValidation,
			retryable: false,
		},
		{
			name:      "access denied is store rejection",
			err:       ErrAccessDenied,
			wantKind:  KindStoreRejection,
			wantStage: StageTransfer,
			retryable: false,
		},
		{
			name:      "bucket not found is store rejection",
			err:       ErrBucketNotFound,
			wantKind:  KindStoreRejection,
			wantStage: StageTransfer,
			retryable: false,
		},
		{
			name:      "timeout is transport",
			err:       ErrTimeout,
			wantKind:  KindTransport,
			wantStage: StageTransfer,
			retryable: true,
		},
		{
			name:      "connection error is transport",
			err:       ErrConnection,
			wantKind:  KindTransport,
			wantStage: StageTransfer,
			retryable: true,
		},
		{
			name:      "unknown error is unclassified",
			err:       errors.New("something odd happened"),
			wantKind:  KindUnclassified,
			wantStage: StageTransfer,
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewError("op", tt.err)
			assert.Equal(t, tt.wantKind, e.Kind)
			assert.Equal(t, tt.wantStage, e.Stage)
			assert.Equal(t, tt.retryable, e.Retryable())
		})
	}
}

// TestNewError_PreservesInnerClassification verifies that re-wrapping an
// already classified error keeps its kind and stage.
func TestNewError_PreservesInnerClassification(t *testing.T) {
	inner := NewValidationError("validateHeader", ErrContentMismatch)
	outer := NewError("uploadPart", fmt.Errorf("reading payload: %w", inner))

	assert.Equal(t, KindValidation, outer.Kind)
	assert.Equal(t, StageValidation, outer.Stage)
	assert.False(t, outer.Retryable())
	assert.ErrorIs(t, outer, ErrContentMismatch)
}

// TestError_Unwrap tests error chain support.
func TestError_Unwrap(t *testing.T) {
	e := NewError("upload", ErrAccessDenied).WithBucket("b").WithKey("k")

	assert.ErrorIs(t, e, ErrAccessDenied)

	var unwrapped *Error
	require.True(t, errors.As(e, &unwrapped))
	assert.Equal(t, "upload", unwrapped.Op)
}

// TestError_WithMessage tests message wrapping preserves the sentinel.
func TestError_WithMessage(t *testing.T) {
	e := NewError("upload", ErrInvalidInput).WithMessage("reader cannot be nil")

	assert.Contains(t, e.Error(), "reader cannot be nil")
	assert.ErrorIs(t, e, ErrInvalidInput)
	assert.Equal(t, KindValidation, e.Kind)
}

// TestError_WithAttempts tests attempt count annotation.
func TestError_WithAttempts(t *testing.T) {
	e := NewError("upload", ErrConnection).WithAttempts(3)
	assert.Equal(t, 3, e.Attempts)
}

// TestIsRetryable covers classified errors, unclassified errors, and nil.
func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "transport error", err: NewError("op", ErrTimeout), want: true},
		{name: "validation error", err: NewValidationError("op", ErrContentMismatch), want: false},
		{name: "store rejection", err: NewError("op", ErrAccessDenied), want: false},
		{name: "bare unclassified error", err: errors.New("boom"), want: true},
		{name: "wrapped classified error", err: fmt.Errorf("ctx: %w", NewError("op", ErrAccessDenied)), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

// TestHelperPredicates tests the errors.Is based helpers.
func TestHelperPredicates(t *testing.T) {
	assert.True(t, IsValidation(NewValidationError("op", ErrInvalidFileName)))
	assert.False(t, IsValidation(NewError("op", ErrTimeout)))

	assert.True(t, IsObjectNotFound(NewError("op", ErrObjectNotFound)))
	assert.False(t, IsObjectNotFound(NewError("op", ErrAccessDenied)))

	assert.True(t, IsAccessDenied(NewError("op", ErrAccessDenied)))
	assert.True(t, IsInvalidInput(NewError("op", ErrInvalidInput)))
}
