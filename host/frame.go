package host

import (
	"math"

	"github.com/cfxwasm/sdk/domain/entities"
	"github.com/cfxwasm/sdk/hostfuncs"
	"github.com/tetratelabs/wazero/api"
)

// buildFrame decodes argsLen slots at argsPtr. Pointer arguments become
// views of guest memory; they stay valid until the handler calls back into
// the guest, which may grow and move memory.
func buildFrame(mem api.Memory, hash uint64, argsPtr, argsLen, maxSize uint32) (*hostfuncs.CallFrame, entities.CallStatus) {
	if argsLen > entities.MaxArguments {
		return nil, entities.StatusTooManyArgs
	}
	frame := hostfuncs.NewCallFrame(hash)
	if argsLen == 0 {
		return frame, entities.StatusSuccess
	}

	raw, ok := mem.Read(argsPtr, argsLen*entities.SlotSize)
	if !ok {
		return nil, entities.StatusWrongArgs
	}

	frame.Arguments = make([]hostfuncs.Argument, argsLen)
	for i := range frame.Arguments {
		slot := entities.ReadSlot(raw[i*entities.SlotSize:])
		arg, ok := resolveArgument(mem, slot, maxSize)
		if !ok {
			return nil, entities.StatusWrongArgs
		}
		frame.Arguments[i] = arg
	}
	return frame, entities.StatusSuccess
}

func resolveArgument(mem api.Memory, s entities.Slot, maxSize uint32) (hostfuncs.Argument, bool) {
	if !s.Kind.Valid() {
		return hostfuncs.Argument{}, false
	}
	arg := hostfuncs.Argument{Kind: s.Kind, Flags: s.Flags, Value: s.Value}
	if s.Kind.Inline() {
		return arg, true
	}

	size := s.Size
	if fixed := s.Kind.FixedSize(); fixed != 0 {
		if size != 0 && size != fixed {
			return hostfuncs.Argument{}, false
		}
		size = fixed
	}
	if size == 0 {
		return arg, true
	}
	if size > maxSize || s.Value > math.MaxUint32 {
		return hostfuncs.Argument{}, false
	}

	data, ok := mem.Read(uint32(s.Value), size)
	if !ok {
		return hostfuncs.Argument{}, false
	}
	arg.Data = data
	return arg, true
}

// encodeResult checks a handler's result against the guest's descriptor and
// returns the bytes to write.
func encodeResult(want entities.ReturnType, got entities.ReturnType, data []byte, hasResult bool) ([]byte, entities.CallStatus) {
	if !hasResult {
		return nil, entities.StatusNoReturnValue
	}
	if got != want {
		return nil, entities.StatusWrongArgs
	}
	if len(data) > math.MaxInt32 {
		return nil, entities.StatusNoSpace
	}
	return data, entities.StatusSuccess
}
