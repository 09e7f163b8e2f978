package abi

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAddr hands out increasing addresses starting at an odd offset so
// alignment is actually exercised.
func fakeAddr() func([]byte) uint32 {
	var mu sync.Mutex
	next := uint32(1001)
	return func(b []byte) uint32 {
		mu.Lock()
		defer mu.Unlock()
		a := next
		next += uint32(len(b)) + 3
		return a
	}
}

func TestTracker_AllocFree(t *testing.T) {
	tr := NewTracker(MaxTotalAllocations, fakeAddr())

	ptr := tr.Alloc(1024, 1)
	require.NotZero(t, ptr)

	count, total := tr.Stats()
	assert.Equal(t, 1, count)
	assert.Equal(t, 1024, total)

	tr.Free(ptr)
	count, total = tr.Stats()
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, total)
}

func TestTracker_Alignment(t *testing.T) {
	tests := []struct {
		name  string
		align uint32
	}{
		{name: "byte", align: 1},
		{name: "word", align: 4},
		{name: "double", align: 8},
		{name: "wide", align: 16},
		{name: "zero means byte", align: 0},
	}

	tr := NewTracker(MaxTotalAllocations, fakeAddr())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ptr := tr.Alloc(10, tt.align)
			require.NotZero(t, ptr)
			if tt.align > 1 {
				assert.Zero(t, ptr%tt.align, "ptr %d not aligned to %d", ptr, tt.align)
			}
			tr.Free(ptr)
		})
	}
}

func TestTracker_ZeroSize(t *testing.T) {
	tr := NewTracker(MaxTotalAllocations, fakeAddr())
	assert.Zero(t, tr.Alloc(0, 1))
}

func TestTracker_Limit(t *testing.T) {
	tr := NewTracker(100, fakeAddr())

	first := tr.Alloc(60, 1)
	require.NotZero(t, first)
	assert.Zero(t, tr.Alloc(60, 1), "allocation past the limit is refused")

	tr.Free(first)
	assert.NotZero(t, tr.Alloc(60, 1))
}

func TestTracker_FreeIsIdempotent(t *testing.T) {
	tr := NewTracker(MaxTotalAllocations, fakeAddr())

	ptr := tr.Alloc(100, 1)
	tr.Free(ptr)
	tr.Free(ptr)
	tr.Free(12345)

	_, total := tr.Stats()
	assert.Equal(t, 0, total)
}

func TestTracker_FreeAll(t *testing.T) {
	tr := NewTracker(MaxTotalAllocations, fakeAddr())
	tr.Alloc(100, 1)
	tr.Alloc(200, 1)

	count, _ := tr.Stats()
	require.Equal(t, 2, count)

	tr.FreeAll()
	count, total := tr.Stats()
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, total)
}

func TestTracker_Concurrency(t *testing.T) {
	tr := NewTracker(MaxTotalAllocations, fakeAddr())

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Free(tr.Alloc(32, 8))
		}()
	}
	wg.Wait()

	count, total := tr.Stats()
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, total)
}
