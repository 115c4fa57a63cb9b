package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
)

// fakeNetError satisfies net.Error for classification tests.
type fakeNetError struct {
	msg string
}

func (e *fakeNetError) Error() string   { return e.msg }
func (e *fakeNetError) Timeout() bool   { return true }
func (e *fakeNetError) Temporary() bool { return true }

// TestClassify covers the mapping from raw errors to the failure taxonomy.
func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{
			name: "validation sentinel",
			err:  ErrContentMismatch,
			want: KindValidation,
		},
		{
			name: "wrapped validation sentinel",
			err:  fmt.Errorf("checking header: %w", ErrInsufficientContent),
			want: KindValidation,
		},
		{
			name: "access denied sentinel",
			err:  ErrAccessDenied,
			want: KindStoreRejection,
		},
		{
			name: "timeout sentinel",
			err:  ErrTimeout,
			want: KindTransport,
		},
		{
			name: "context deadline",
			err:  context.DeadlineExceeded,
			want: KindTransport,
		},
		{
			name: "context cancellation",
			err:  context.Canceled,
			want: KindTransport,
		},
		{
			name: "api rejection code",
			err:  &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"},
			want: KindStoreRejection,
		},
		{
			name: "api bucket rejection code",
			err:  &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "missing"},
			want: KindStoreRejection,
		},
		{
			name: "api invalid part code",
			err:  &smithy.GenericAPIError{Code: "InvalidPart", Message: "bad part"},
			want: KindStoreRejection,
		},
		{
			name: "api transient code",
			err:  &smithy.GenericAPIError{Code: "SlowDown", Message: "throttled"},
			want: KindTransport,
		},
		{
			name: "api internal error code",
			err:  &smithy.GenericAPIError{Code: "InternalError", Message: "oops"},
			want: KindTransport,
		},
		{
			name: "api unknown code",
			err:  &smithy.GenericAPIError{Code: "TeapotShortAndStout", Message: "418"},
			want: KindUnclassified,
		},
		{
			name: "net error",
			err:  &fakeNetError{msg: "dial tcp: i/o timeout"},
			want: KindTransport,
		},
		{
			name: "opaque connection reset",
			err:  errors.New("read tcp 10.0.0.1:443: connection reset by peer"),
			want: KindTransport,
		},
		{
			name: "opaque unexpected EOF",
			err:  errors.New("unexpected EOF"),
			want: KindTransport,
		},
		{
			name: "unknown error",
			err:  errors.New("something else entirely"),
			want: KindUnclassified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
