package validation

import (
	uperrors "github.com/quayside/upstream/errors"
)

// StreamResult is returned by StreamValidator.Observe after each chunk.
type StreamResult struct {
	// Accepted reports whether the stream is still acceptable so far
	Accepted bool

	// ShouldAbort signals that in-flight transfer work must be cancelled
	// immediately, without waiting for the stream to finish
	ShouldAbort bool

	// BytesSoFar is the cumulative byte count observed
	BytesSoFar int64

	// Err carries the violation when the stream was rejected
	Err error
}

// FinalResult is returned by StreamValidator.Finalize once the stream ends.
type FinalResult struct {
	// Accepted reports the final verdict
	Accepted bool

	// BytesProcessed is the total byte count observed
	BytesProcessed int64

	// Err carries the violation when the stream was rejected
	Err error
}

// StreamValidator verifies a streamed payload incrementally. It buffers just
// enough leading bytes to check the declared type's signature and enforces a
// byte budget so oversized streams abort in-flight work as soon as the limit
// is crossed, not at finalize time.
//
// A StreamValidator is owned by a single upload attempt and is not safe for
// concurrent use.
type StreamValidator struct {
	declared   string
	maxBytes   int64
	need       int
	header     []byte
	bytesSoFar int64
	checked    bool
	failed     error
}

// NewStreamValidator builds a validator for one streamed payload. A maxBytes
// of zero disables the byte budget.
func NewStreamValidator(declaredType string, maxBytes int64) *StreamValidator {
	need := SignatureLength(declaredType)
	return &StreamValidator{
		declared: declaredType,
		maxBytes: maxBytes,
		need:     need,
		header:   make([]byte, 0, need),
	}
}

// Observe feeds the next chunk. Once a violation is observed the validator
// stays failed; callers should stop feeding after ShouldAbort.
func (v *StreamValidator) Observe(chunk []byte) StreamResult {
	v.bytesSoFar += int64(len(chunk))

	if v.failed != nil {
		return StreamResult{ShouldAbort: true, BytesSoFar: v.bytesSoFar, Err: v.failed}
	}

	if v.maxBytes > 0 && v.bytesSoFar > v.maxBytes {
		v.failed = uperrors.NewValidationError("streamValidate", uperrors.ErrSizeExceeded).
			WithMessage("stream exceeded configured maximum size")
		return StreamResult{ShouldAbort: true, BytesSoFar: v.bytesSoFar, Err: v.failed}
	}

	if !v.checked && v.need > 0 {
		remaining := v.need - len(v.header)
		if remaining > len(chunk) {
			remaining = len(chunk)
		}
		v.header = append(v.header, chunk[:remaining]...)
		if len(v.header) >= v.need {
			v.checked = true
			if err := ValidateHeader(v.header, v.declared); err != nil {
				v.failed = err
				return StreamResult{ShouldAbort: true, BytesSoFar: v.bytesSoFar, Err: v.failed}
			}
		}
	}

	return StreamResult{Accepted: true, BytesSoFar: v.bytesSoFar}
}

// Finalize delivers the verdict once the stream has ended. A stream that
// ended before enough bytes arrived to verify a required signature is
// rejected as insufficient content.
func (v *StreamValidator) Finalize() FinalResult {
	if v.failed != nil {
		return FinalResult{BytesProcessed: v.bytesSoFar, Err: v.failed}
	}
	if !v.checked && v.need > 0 {
		err := ValidateHeader(v.header, v.declared)
		if err != nil {
			v.failed = err
			return FinalResult{BytesProcessed: v.bytesSoFar, Err: err}
		}
	}
	return FinalResult{Accepted: true, BytesProcessed: v.bytesSoFar}
}

// Header returns the buffered leading bytes, for diagnostics such as content
// sniffing.
func (v *StreamValidator) Header() []byte {
	return v.header
}
