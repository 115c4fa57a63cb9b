package testutil

import (
	"sync"

	"github.com/quayside/upstream/uptypes"
)

// PNGPayload returns size bytes beginning with a valid PNG signature.
func PNGPayload(size int) []byte {
	return signedPayload([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, size)
}

// PDFPayload returns size bytes beginning with a valid PDF signature.
func PDFPayload(size int) []byte {
	return signedPayload([]byte("%PDF-1.7\n"), size)
}

// JPEGPayload returns size bytes beginning with a valid JPEG signature.
func JPEGPayload(size int) []byte {
	return signedPayload([]byte{0xFF, 0xD8, 0xFF, 0xE0}, size)
}

func signedPayload(sig []byte, size int) []byte {
	buf := make([]byte, size)
	copy(buf, sig)
	for i := len(sig); i < size; i++ {
		buf[i] = byte(i % 251)
	}
	return buf
}

// ProgressRecorder collects progress events for assertions. Safe for
// concurrent use, though the engine reports from a single goroutine.
type ProgressRecorder struct {
	mu     sync.Mutex
	Events []uptypes.ProgressEvent
}

// Record is a uptypes.ProgressFunc.
func (r *ProgressRecorder) Record(ev uptypes.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, ev)
}

// Percentages returns the recorded percentage sequence in order.
func (r *ProgressRecorder) Percentages() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.Events))
	for i, ev := range r.Events {
		out[i] = ev.Percentage
	}
	return out
}
