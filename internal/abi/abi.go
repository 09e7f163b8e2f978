// Package abi provides memory management for the guest's WASM linear memory.
package abi

import (
	"sync"
)

// MaxTotalAllocations is the maximum total memory the host may hold through
// the allocator exports at once.
const MaxTotalAllocations = 100 * 1024 * 1024 // 100 MB

// Tracker hands out regions of linear memory and keeps a reference to each
// backing slice so the Go GC does not collect it while the host uses the
// address. A region stays pinned until it is freed.
type Tracker struct {
	mu    sync.Mutex
	pins  map[uint32][]byte
	total int
	limit int
	addr  func([]byte) uint32
}

// NewTracker creates a tracker that refuses allocations past limit bytes.
// addr reports the linear-memory address of a slice's first byte.
func NewTracker(limit int, addr func([]byte) uint32) *Tracker {
	return &Tracker{
		pins:  make(map[uint32][]byte),
		limit: limit,
		addr:  addr,
	}
}

// Alloc reserves size bytes aligned to align and returns their address.
// It returns 0 for empty requests and when the limit would be exceeded.
func (t *Tracker) Alloc(size, align uint32) uint32 {
	if size == 0 {
		return 0
	}
	if align == 0 {
		align = 1
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	n := int(size) + int(align) - 1
	if t.total+n > t.limit {
		return 0
	}

	buf := make([]byte, n)
	base := t.addr(buf)
	ptr := base + (align-base%align)%align

	t.pins[ptr] = buf // pin until Free
	t.total += n
	return ptr
}

// Free releases the region at ptr. Untracked pointers are ignored, so a
// double free is harmless. Accounting uses the stored length, not the
// caller's size.
func (t *Tracker) Free(ptr uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	buf, ok := t.pins[ptr]
	if !ok {
		return
	}
	delete(t.pins, ptr)
	t.total -= len(buf)
}

// FreeAll releases every tracked region.
func (t *Tracker) FreeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	clear(t.pins)
	t.total = 0
}

// Stats returns the number of live regions and their total size.
func (t *Tracker) Stats() (count, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pins), t.total
}
