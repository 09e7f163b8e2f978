// Package hostfuncs provides the pure Go side of native dispatch.
// These implementations have NO WASM runtime dependencies: a CallFrame holds
// bounds-checked views of guest memory built by whichever runtime adapter
// decoded the call, and handlers only ever see those views.
package hostfuncs
