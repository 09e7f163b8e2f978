// Package host provides the runtime environment for executing guest scripts.
//
// A Runtime owns one wazero runtime and at most one guest module. It links
// the guest against the host import module, forwards native calls to a
// NativeInvoker, and exposes the guest's entry points (tick, event delivery,
// ref calls) to the embedder. Results flow back through the return
// descriptor protocol, growing the guest's buffer once when needed.
package host
