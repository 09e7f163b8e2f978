//go:build wasip1

package abi

import "unsafe"

var tracker = NewTracker(MaxTotalAllocations, Addr)

// Addr returns the linear-memory address of b's first byte, or 0 for an
// empty slice.
func Addr(b []byte) uint32 {
	if len(b) == 0 {
		return 0
	}
	//nolint:gosec // G103: linear memory addresses fit in 32 bits on wasm
	return uint32(uintptr(unsafe.Pointer(unsafe.SliceData(b))))
}

// Bytes returns a view of n bytes of linear memory at ptr.
func Bytes(ptr, n uint32) []byte {
	if ptr == 0 || n == 0 {
		return nil
	}
	//nolint:gosec // G103: valid unsafe.Pointer use for WASM linear memory access
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), n)
}

// CString reads a NUL-terminated string at ptr.
func CString(ptr uint32) string {
	if ptr == 0 {
		return ""
	}
	n := uint32(0)
	//nolint:gosec // G103: valid unsafe.Pointer use for WASM linear memory access
	for *(*byte)(unsafe.Pointer(uintptr(ptr + n))) != 0 {
		n++
	}
	return string(Bytes(ptr, n))
}

// Stats reports the allocator exports' live regions.
func Stats() (count, total int) {
	return tracker.Stats()
}

//go:wasmexport __cfx_alloc
func cfxAlloc(size, align uint32) uint32 {
	return tracker.Alloc(size, align)
}

//go:wasmexport __cfx_free
func cfxFree(ptr, _, _ uint32) {
	tracker.Free(ptr)
}
