package pool

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// SlotPool bounds the number of in-flight store requests across all uploads
// sharing it. The transfer engine acquires one slot per part transfer, so a
// process-wide pool keeps total socket usage under the HTTP client's
// connection ceiling no matter how many uploads run concurrently.
//
// The pool is an explicit dependency of the transfer engine, never ambient
// state, so tests can substitute a small pool to exercise backpressure.
type SlotPool struct {
	sem  *semaphore.Weighted
	size int64

	mu    sync.Mutex
	stats SlotStats
}

// SlotStats tracks slot pool usage.
type SlotStats struct {
	// Acquired is the total number of successful acquisitions
	Acquired int64

	// Waited is the number of acquisitions that had to wait for a free slot
	Waited int64

	// InUse is the number of slots currently held
	InUse int64
}

// NewSlotPool creates a pool with the given capacity.
func NewSlotPool(size int) *SlotPool {
	if size <= 0 {
		size = 10
	}
	return &SlotPool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: int64(size),
	}
}

// Acquire blocks until a slot frees or the context is cancelled.
func (p *SlotPool) Acquire(ctx context.Context) error {
	waited := !p.sem.TryAcquire(1)
	if waited {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return err
		}
	}

	p.mu.Lock()
	p.stats.Acquired++
	if waited {
		p.stats.Waited++
	}
	p.stats.InUse++
	p.mu.Unlock()
	return nil
}

// Release returns a slot to the pool.
func (p *SlotPool) Release() {
	p.mu.Lock()
	p.stats.InUse--
	p.mu.Unlock()
	p.sem.Release(1)
}

// Size returns the pool capacity.
func (p *SlotPool) Size() int {
	return int(p.size)
}

// Stats returns a snapshot of pool usage.
func (p *SlotPool) Stats() SlotStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
