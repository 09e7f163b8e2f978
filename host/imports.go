package host

import (
	"bytes"
	"context"
	"fmt"
	"math"

	"github.com/cfxwasm/sdk/domain/entities"
	"github.com/cfxwasm/sdk/domain/errors"
	"github.com/cfxwasm/sdk/hostfuncs"
	wazeroadapter "github.com/cfxwasm/sdk/infrastructure/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// hostFunctions serves the guest's imports for one Runtime.
type hostFunctions struct {
	r *Runtime
}

var _ wazeroadapter.HostFunctions = (*hostFunctions)(nil)

func (h *hostFunctions) Log(ctx context.Context, mod api.Module, ptr, length uint32) {
	if length > h.r.cfg.maxRequestSize {
		length = h.r.cfg.maxRequestSize
	}
	data, ok := mod.Memory().Read(ptr, length)
	if !ok {
		h.r.logger.Warn("guest log out of bounds", zap.Uint32("ptr", ptr), zap.Uint32("len", length))
		return
	}
	msg := string(data)
	if h.r.cfg.logFunc != nil {
		h.r.cfg.logFunc(msg)
		return
	}
	h.r.logger.Info(msg, zap.String("module", wazeroadapter.GetResourceName(ctx, mod)))
}

func (h *hostFunctions) Invoke(ctx context.Context, mod api.Module, hashHi, hashLo, argsPtr, argsLen, retvalPtr uint32) int32 {
	hash := entities.JoinHash(hashHi, hashLo)
	status := h.invoke(ctx, mod, hash, argsPtr, argsLen, retvalPtr)
	h.r.cfg.metrics.observeNative(h.r.cfg.resourceName, status)
	if status < 0 {
		h.r.logger.Debug("native call failed",
			zap.String("native", fmt.Sprintf("0x%X", hash)),
			zap.String("status", status.String()),
		)
	}
	return int32(status)
}

func (h *hostFunctions) invoke(ctx context.Context, mod api.Module, hash uint64, argsPtr, argsLen, retvalPtr uint32) entities.CallStatus {
	frame, status := buildFrame(mod.Memory(), hash, argsPtr, argsLen, h.r.cfg.maxRequestSize)
	if status != entities.StatusSuccess {
		return status
	}

	if status := h.callNative(ctx, frame); status != entities.StatusSuccess {
		return status
	}

	rt, data, ok := frame.Result()
	return h.writeResult(ctx, mod, retvalPtr, func(want entities.ReturnType) ([]byte, entities.CallStatus) {
		return encodeResult(want, rt, data, ok)
	})
}

func (h *hostFunctions) callNative(ctx context.Context, frame *hostfuncs.CallFrame) (status entities.CallStatus) {
	defer func() {
		if rec := recover(); rec != nil {
			h.r.logger.Error("native panicked",
				zap.String("native", fmt.Sprintf("0x%X", frame.Identifier)),
				zap.Any("panic", rec),
			)
			status = entities.StatusCritical
		}
	}()

	err := h.r.cfg.natives.InvokeNative(ctx, frame)
	if err == nil {
		return entities.StatusSuccess
	}
	status = errors.Status(err)
	if status >= 0 {
		return entities.StatusCritical
	}
	return status
}

// writeResult stores a result through the descriptor at retvalPtr. When the
// guest's buffer is too small it is asked once, through its resize export,
// for a buffer of exactly the needed size; the descriptor is then rewritten
// to point at it.
func (h *hostFunctions) writeResult(
	ctx context.Context,
	mod api.Module,
	retvalPtr uint32,
	encode func(want entities.ReturnType) ([]byte, entities.CallStatus),
) entities.CallStatus {
	if retvalPtr == 0 {
		return entities.StatusSuccess
	}
	raw, ok := mod.Memory().Read(retvalPtr, entities.ReturnValueSize)
	if !ok {
		return entities.StatusWrongArgs
	}
	desc := entities.ReadReturnValue(raw)
	if desc.Type == entities.ReturnEmpty {
		return entities.StatusSuccess
	}
	if !desc.Type.Valid() {
		return entities.StatusWrongArgs
	}

	data, status := encode(desc.Type)
	if status != entities.StatusSuccess {
		return status
	}

	n := uint32(len(data)) //nolint:gosec // G115: bounded by encodeResult
	if n > desc.Capacity {
		buf, ok := h.growReturnBuffer(ctx, mod, n)
		if !ok {
			return entities.StatusNoSpace
		}
		desc.Buffer, desc.Capacity = buf, n
		// Memory may have grown during the resize call; write through the
		// module rather than any earlier view.
		if !mod.Memory().Write(retvalPtr, desc.Bytes()) {
			return entities.StatusWrongArgs
		}
	}

	if n > 0 && !mod.Memory().Write(desc.Buffer, data) {
		return entities.StatusWrongArgs
	}
	return entities.CallStatus(n) //nolint:gosec // G115: n <= MaxInt32
}

func (h *hostFunctions) growReturnBuffer(ctx context.Context, mod api.Module, size uint32) (uint32, bool) {
	fn := mod.ExportedFunction(entities.ExportExtendRetvalBuffer)
	if fn == nil {
		return 0, false
	}
	h.r.cfg.metrics.observeResize(h.r.cfg.resourceName)
	res, err := fn.Call(ctx, api.EncodeU32(size))
	if err != nil {
		h.r.cfg.metrics.observeGuestError(h.r.cfg.resourceName, entities.ExportExtendRetvalBuffer)
		h.r.logger.Warn("return buffer resize failed", zap.Uint32("size", size), zap.Error(err))
		return 0, false
	}
	if len(res) == 0 {
		return 0, false
	}
	ptr := api.DecodeU32(res[0])
	if ptr == 0 {
		return 0, false
	}
	return ptr, true
}

func (h *hostFunctions) CanonicalizeRef(ctx context.Context, mod api.Module, idx, bufPtr, bufSize uint32) int32 {
	name, err := h.r.cfg.canonicalize(ctx, idx)
	if err != nil {
		h.r.logger.Warn("canonicalize ref failed", zap.Uint32("ref", idx), zap.Error(err))
		return 0
	}
	need := len(name) + 1
	if need > math.MaxInt32 {
		return 0
	}
	if uint64(need) > uint64(bufSize) {
		return -int32(need) //nolint:gosec // G115: checked above
	}
	if !mod.Memory().Write(bufPtr, cstring(name)) {
		return 0
	}
	return int32(need) //nolint:gosec // G115: checked above
}

func (h *hostFunctions) InvokeRefFunc(ctx context.Context, mod api.Module, namePtr, argsPtr, argsLen, retvalPtr uint32) int32 {
	status := h.invokeRefFunc(ctx, mod, namePtr, argsPtr, argsLen, retvalPtr)
	h.r.cfg.metrics.observeRefCall(h.r.cfg.resourceName, status)
	return int32(status)
}

func (h *hostFunctions) invokeRefFunc(ctx context.Context, mod api.Module, namePtr, argsPtr, argsLen, retvalPtr uint32) entities.CallStatus {
	mem := mod.Memory()
	name, ok := readCString(mem, namePtr, h.r.cfg.maxRequestSize)
	if !ok {
		return entities.StatusWrongArgs
	}
	if argsLen > h.r.cfg.maxRequestSize {
		return entities.StatusWrongArgs
	}
	var args []byte
	if argsLen > 0 {
		view, ok := mem.Read(argsPtr, argsLen)
		if !ok {
			return entities.StatusWrongArgs
		}
		args = bytes.Clone(view)
	}

	if h.r.cfg.refInvoker == nil {
		return entities.StatusNoReturnValue
	}
	result, err := h.r.cfg.refInvoker(ctx, name, args)
	if err != nil {
		h.r.logger.Debug("ref call failed", zap.String("ref", name), zap.Error(err))
		return entities.StatusNoReturnValue
	}
	if result == nil {
		return entities.StatusNoReturnValue
	}
	return h.writeResult(ctx, mod, retvalPtr, func(entities.ReturnType) ([]byte, entities.CallStatus) {
		return result, entities.StatusSuccess
	})
}

// readCString reads a NUL-terminated string of at most limit bytes.
func readCString(mem api.Memory, ptr, limit uint32) (string, bool) {
	size := mem.Size()
	if ptr >= size {
		return "", false
	}
	n := size - ptr
	if n > limit+1 {
		n = limit + 1
	}
	view, ok := mem.Read(ptr, n)
	if !ok {
		return "", false
	}
	i := bytes.IndexByte(view, 0)
	if i < 0 {
		return "", false
	}
	return string(view[:i]), true
}
