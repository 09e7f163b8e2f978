//go:build wasip1

package wasm

import (
	"bytes"

	"github.com/cfxwasm/sdk/domain/entities"
	"github.com/cfxwasm/sdk/events"
	"github.com/cfxwasm/sdk/internal/abi"
	"github.com/cfxwasm/sdk/invoker"
	"github.com/cfxwasm/sdk/reffuncs"
	"github.com/cfxwasm/sdk/scheduler"
)

func init() {
	invoker.SetHost(HostAdapter{})
}

// The last ref call result and the record describing it stay reachable
// until the next call, which is as long as the host reads them.
var (
	refResult []byte
	refObject = make([]byte, entities.ScrObjectSize)
)

//go:wasmexport __cfx_on_event
func onEvent(namePtr, argsPtr, argsLen, sourcePtr uint32) {
	events.Default().Dispatch(abi.CString(namePtr), abi.Bytes(argsPtr, argsLen), abi.CString(sourcePtr))
}

//go:wasmexport __cfx_on_tick
func onTick() {
	scheduler.Default().Tick()
}

//go:wasmexport __cfx_call_ref
func callRef(idx, argsPtr, argsLen uint32) uint32 {
	out, ok := reffuncs.Default().Call(idx, bytes.Clone(abi.Bytes(argsPtr, argsLen)))
	if !ok {
		out = nil
	}
	refResult = out
	entities.ScrObject{Data: uint64(abi.Addr(out)), Length: uint64(len(out))}.Put(refObject)

	scheduler.Default().RunUntilStalled()
	return abi.Addr(refObject)
}

//go:wasmexport __cfx_duplicate_ref
func duplicateRef(idx uint32) uint32 {
	return reffuncs.Default().Duplicate(idx)
}

//go:wasmexport __cfx_remove_ref
func removeRef(idx uint32) {
	reffuncs.Default().Remove(idx)
}

//go:wasmexport __cfx_extend_retval_buffer
func extendRetvalBuffer(size uint32) uint32 {
	return abi.Addr(invoker.ExtendReturnBuffer(size))
}
