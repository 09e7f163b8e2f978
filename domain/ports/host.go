package ports

import "github.com/cfxwasm/sdk/domain/entities"

// Host is the guest's view of the host imports. The wasip1 adapter backs it
// with wasm imports; tests substitute fakes.
//
// Every method is synchronous. The host may call back into guest exports
// (for instance to grow the return buffer) before returning.
type Host interface {
	// Invoke calls the native identified by hash. buf is the current return
	// scratch buffer; the result is left in it (or in its replacement if the
	// host grew it). The status is the number of bytes written, or a negative
	// entities.CallStatus.
	Invoke(hash uint64, args []entities.Arg, ret entities.ReturnType, buf []byte) int32

	// CanonicalizeRef asks the host for the external name of a ref index.
	// Positive results are the name length plus its NUL, negative results the
	// required buffer size, and zero is a failure.
	CanonicalizeRef(idx uint32, buf []byte) int32

	// InvokeRefFunc calls a host-held callback reference by name with
	// msgpack-encoded args. Results are delivered like Invoke's.
	InvokeRefFunc(name string, args []byte, buf []byte) int32

	// Log forwards one line to the host's log sink.
	Log(msg string)
}
