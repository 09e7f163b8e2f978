//go:build wasip1

package wasm

import (
	"runtime"

	"github.com/cfxwasm/sdk/domain/entities"
	"github.com/cfxwasm/sdk/domain/ports"
	"github.com/cfxwasm/sdk/internal/abi"
)

//go:wasmimport host invoke
func hostInvoke(hashHi, hashLo, argsPtr, argsLen, retvalPtr uint32) int32

//go:wasmimport host log
func hostLog(ptr, length uint32)

//go:wasmimport host canonicalize_ref
func hostCanonicalizeRef(idx, bufPtr, bufSize uint32) int32

//go:wasmimport host invoke_ref_func
func hostInvokeRefFunc(namePtr, argsPtr, argsLen, retvalPtr uint32) int32

// Compile-time interface compliance check
var _ ports.Host = HostAdapter{}

// HostAdapter implements ports.Host over the module's host imports.
type HostAdapter struct{}

// Invoke implements ports.Host.
func (HostAdapter) Invoke(hash uint64, args []entities.Arg, ret entities.ReturnType, buf []byte) int32 {
	f := newFrame(abi.Addr, args)
	desc := descriptor(abi.Addr, ret, buf)
	hi, lo := entities.SplitHash(hash)

	status := hostInvoke(hi, lo, abi.Addr(f.slots), uint32(len(args)), abi.Addr(desc))

	f.release()
	runtime.KeepAlive(f.slots)
	runtime.KeepAlive(desc)
	runtime.KeepAlive(buf)
	return status
}

// CanonicalizeRef implements ports.Host.
func (HostAdapter) CanonicalizeRef(idx uint32, buf []byte) int32 {
	n := hostCanonicalizeRef(idx, abi.Addr(buf), uint32(len(buf)))
	runtime.KeepAlive(buf)
	return n
}

// InvokeRefFunc implements ports.Host.
func (HostAdapter) InvokeRefFunc(name string, args []byte, buf []byte) int32 {
	cname := append([]byte(name), 0)
	desc := descriptor(abi.Addr, entities.ReturnMsgPack, buf)

	status := hostInvokeRefFunc(abi.Addr(cname), abi.Addr(args), uint32(len(args)), abi.Addr(desc))

	runtime.KeepAlive(cname)
	runtime.KeepAlive(args)
	runtime.KeepAlive(desc)
	runtime.KeepAlive(buf)
	return status
}

// Log implements ports.Host.
func (HostAdapter) Log(msg string) {
	b := []byte(msg)
	hostLog(abi.Addr(b), uint32(len(b)))
	runtime.KeepAlive(b)
}
