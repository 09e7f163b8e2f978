// Package wasm provides the guest-side infrastructure adapters that talk to
// the host through the module's imports and exports.
//
// Under GOOS=wasip1 importing this package installs HostAdapter as the
// invoker's host bridge and exports the entry points the runtime calls:
// event delivery, ticks, ref calls and return buffer growth. On other
// platforms only the platform-independent frame layout is compiled, which is
// what the package tests exercise.
package wasm
