// Package ports defines interfaces for infrastructure operations.
// These ports enable dependency inversion - guest-side logic depends on the
// Host abstraction, and the wasm adapter implements it.
package ports
