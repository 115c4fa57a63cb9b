package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	uperrors "github.com/quayside/upstream/errors"
)

// TestStreamValidator_AcceptsChunkedSignature feeds a valid signature split
// across chunk boundaries.
func TestStreamValidator_AcceptsChunkedSignature(t *testing.T) {
	v := NewStreamValidator("image/png", 0)

	res := v.Observe(pngHeader[:3])
	assert.True(t, res.Accepted)
	assert.False(t, res.ShouldAbort)
	assert.Equal(t, int64(3), res.BytesSoFar)

	res = v.Observe(pngHeader[3:])
	assert.True(t, res.Accepted)
	assert.Equal(t, int64(8), res.BytesSoFar)

	res = v.Observe(make([]byte, 1024))
	assert.True(t, res.Accepted)

	final := v.Finalize()
	assert.True(t, final.Accepted)
	assert.Equal(t, int64(8+1024), final.BytesProcessed)
}

// TestStreamValidator_AbortsOnMismatch verifies the abort signal fires as
// soon as the signature check can run, and the validator stays failed.
func TestStreamValidator_AbortsOnMismatch(t *testing.T) {
	v := NewStreamValidator("image/png", 0)

	res := v.Observe([]byte("this is not a png at all"))
	assert.True(t, res.ShouldAbort)
	assert.ErrorIs(t, res.Err, uperrors.ErrContentMismatch)

	// Further chunks keep reporting the same failure.
	res = v.Observe([]byte("more data"))
	assert.True(t, res.ShouldAbort)
	assert.ErrorIs(t, res.Err, uperrors.ErrContentMismatch)

	final := v.Finalize()
	assert.False(t, final.Accepted)
	assert.ErrorIs(t, final.Err, uperrors.ErrContentMismatch)
}

// TestStreamValidator_AbortsOnByteBudget verifies the size budget trips
// mid-stream, not at finalize time.
func TestStreamValidator_AbortsOnByteBudget(t *testing.T) {
	v := NewStreamValidator("application/pdf", 100)

	res := v.Observe([]byte("%PDF-1.7\n"))
	require.True(t, res.Accepted)

	res = v.Observe(make([]byte, 90))
	assert.True(t, res.Accepted, "at 99 bytes the budget holds")

	res = v.Observe(make([]byte, 2))
	assert.True(t, res.ShouldAbort)
	assert.ErrorIs(t, res.Err, uperrors.ErrSizeExceeded)
	assert.Equal(t, int64(101), res.BytesSoFar)
}

// TestStreamValidator_InsufficientContentAtFinalize verifies a stream that
// ends before the signature can be checked is rejected.
func TestStreamValidator_InsufficientContentAtFinalize(t *testing.T) {
	v := NewStreamValidator("image/png", 0)

	res := v.Observe(pngHeader[:5])
	assert.True(t, res.Accepted, "verdict is deferred until enough bytes arrive")

	final := v.Finalize()
	assert.False(t, final.Accepted)
	assert.ErrorIs(t, final.Err, uperrors.ErrInsufficientContent)
	assert.Equal(t, int64(5), final.BytesProcessed)
}

// TestStreamValidator_NoSignatureType verifies types without a magic number
// pass through untouched.
func TestStreamValidator_NoSignatureType(t *testing.T) {
	v := NewStreamValidator("text/plain", 0)

	res := v.Observe([]byte{0x00, 0x01, 0x02})
	assert.True(t, res.Accepted)

	final := v.Finalize()
	assert.True(t, final.Accepted)
	assert.Equal(t, int64(3), final.BytesProcessed)
}

// TestStreamValidator_EmptyStream verifies an empty stream with a required
// signature is rejected while one without is accepted.
func TestStreamValidator_EmptyStream(t *testing.T) {
	withSig := NewStreamValidator("image/png", 0)
	final := withSig.Finalize()
	assert.False(t, final.Accepted)
	assert.ErrorIs(t, final.Err, uperrors.ErrInsufficientContent)

	without := NewStreamValidator("text/plain", 0)
	final = without.Finalize()
	assert.True(t, final.Accepted)
}

// TestStreamValidator_Header verifies header retention for diagnostics.
func TestStreamValidator_Header(t *testing.T) {
	v := NewStreamValidator("image/png", 0)
	v.Observe(pngHeader[:3])
	v.Observe(pngHeader[3:])
	v.Observe([]byte("trailing payload bytes"))

	assert.Equal(t, pngHeader, v.Header())
}
