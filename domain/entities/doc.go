// Package entities defines the data shared by the host runtime and guest
// core: argument slots, return descriptors, fixed records (Vector3,
// ScrObject), call status codes, event scopes and source markers.
//
// All multi-byte fields are little-endian, matching wasm32 linear memory.
package entities
