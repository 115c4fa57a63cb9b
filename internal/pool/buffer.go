// Package pool provides the bounded resources shared by concurrent uploads:
// a connection-slot pool that caps in-flight store requests across the whole
// process, and a buffer pool that lets the transfer engine stage stream
// parts without reallocating per part.
package pool

import (
	"sync"
)

// PartBufferSize defines the capacity of pooled part staging buffers (8MB).
const PartBufferSize = 8 * 1024 * 1024

// BufferPool manages reusable byte buffers sized for staging multipart
// parts.
type BufferPool struct {
	part *sync.Pool
}

// NewBufferPool creates a new buffer pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		part: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, 0, PartBufferSize)
				return &buf
			},
		},
	}
}

// Get returns a zero-length buffer with at least the requested capacity.
// Buffers above the part size class are allocated fresh and never pooled.
func (bp *BufferPool) Get(size int) []byte {
	if size <= PartBufferSize {
		bufPtr := bp.part.Get().(*[]byte)
		return (*bufPtr)[:0]
	}
	return make([]byte, 0, size)
}

// Put returns a buffer to the pool. Buffers whose capacity does not match
// the part size class are dropped to avoid memory bloat.
func (bp *BufferPool) Put(buf []byte) {
	buf = buf[:0]
	if cap(buf) == PartBufferSize {
		bp.part.Put(&buf)
	}
}
