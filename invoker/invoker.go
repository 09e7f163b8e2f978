// Package invoker implements the guest side of the native-call ABI: typed
// argument construction, the reusable return scratch buffer and typed
// decoding of results.
//
// All state here is confined to the guest's single execution thread.
package invoker

import (
	"bytes"
	"math"

	"github.com/cfxwasm/sdk/domain/entities"
	"github.com/cfxwasm/sdk/domain/errors"
	"github.com/cfxwasm/sdk/domain/ports"
	"github.com/cfxwasm/sdk/wireformat"
)

// DefaultReturnBufferSize is the initial capacity of the return scratch buffer.
const DefaultReturnBufferSize = 1 << 15

var (
	host   ports.Host = nopHost{}
	retval            = make([]byte, DefaultReturnBufferSize)
)

// SetHost installs the host bridge. Passing nil restores the no-op host.
func SetHost(h ports.Host) {
	if h == nil {
		h = nopHost{}
	}
	host = h
}

// CurrentHost returns the installed host bridge.
func CurrentHost() ports.Host {
	return host
}

// ReturnBuffer returns the current scratch buffer.
func ReturnBuffer() []byte {
	return retval
}

// ExtendReturnBuffer replaces the scratch buffer with one of exactly size
// bytes and returns it. The host calls this (through the resize export) when
// a result does not fit.
func ExtendReturnBuffer(size uint32) []byte {
	if int(size) != len(retval) {
		retval = make([]byte, size)
	}
	return retval
}

// ResetReturnBuffer restores the initial scratch buffer.
func ResetReturnBuffer() {
	retval = make([]byte, DefaultReturnBufferSize)
}

// Invoke calls a native and decodes its result as R. The expected return
// type is derived from R: numbers and bools are Number, string is String,
// entities.Vector3 is Vector3 and everything else is decoded from msgpack.
func Invoke[R any](hash uint64, args ...entities.Arg) (R, error) {
	var out R
	rt := ReturnTypeOf(out)
	n, err := call(hash, args, rt)
	if err != nil {
		return out, err
	}
	if err := decode(rt, retval[:n], &out); err != nil {
		return out, &errors.NativeError{Hash: hash, Err: err}
	}
	return out, nil
}

// InvokeVoid calls a native that returns nothing.
func InvokeVoid(hash uint64, args ...entities.Arg) error {
	_, err := call(hash, args, entities.ReturnEmpty)
	return err
}

// InvokeRefFunc calls a host-held callback reference. The returned bytes are
// a copy; ok is false when the host reported no value.
func InvokeRefFunc(name string, args []byte) ([]byte, bool) {
	status := host.InvokeRefFunc(name, args, retval)
	if status < 0 || int(status) > len(retval) {
		return nil, false
	}
	out := make([]byte, status)
	copy(out, retval[:status])
	return out, true
}

func call(hash uint64, args []entities.Arg, rt entities.ReturnType) (int, error) {
	if len(args) > entities.MaxArguments {
		return 0, &errors.NativeError{Hash: hash, Err: errors.ErrTooManyArgs}
	}
	status := host.Invoke(hash, args, rt, retval)
	if status < 0 {
		return 0, &errors.NativeError{Hash: hash, Err: errors.FromStatus(status)}
	}
	if int(status) > len(retval) {
		return 0, &errors.NativeError{Hash: hash, Err: errors.ErrWrongArgs}
	}
	return int(status), nil
}

// ReturnTypeOf maps a Go value to the return type tag used to request it.
func ReturnTypeOf(v any) entities.ReturnType {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, bool:
		return entities.ReturnNumber
	case string:
		return entities.ReturnString
	case entities.Vector3:
		return entities.ReturnVector3
	default:
		return entities.ReturnMsgPack
	}
}

func decode(rt entities.ReturnType, data []byte, out any) error {
	switch rt {
	case entities.ReturnNumber:
		return decodeNumber(data, out)
	case entities.ReturnString:
		s, ok := out.(*string)
		if !ok {
			return errors.ErrWrongArgs
		}
		if i := bytes.IndexByte(data, 0); i >= 0 {
			data = data[:i]
		}
		*s = string(data)
		return nil
	case entities.ReturnVector3:
		v, ok := out.(*entities.Vector3)
		if !ok || len(data) < entities.Vector3Size {
			return errors.ErrWrongArgs
		}
		*v = entities.ReadVector3(data)
		return nil
	case entities.ReturnMsgPack:
		if len(data) == 0 {
			return errors.ErrNoResult
		}
		return wireformat.Unmarshal(data, out)
	default:
		return nil
	}
}

// decodeNumber reads a 4- or 8-byte little-endian scalar. 4-byte values are
// sign-extended for signed targets and read as float32 for float targets.
func decodeNumber(data []byte, out any) error {
	var bits uint64
	switch len(data) {
	case 4:
		bits = uint64(uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24)
	case 8:
		for i := 7; i >= 0; i-- {
			bits = bits<<8 | uint64(data[i])
		}
	case 0:
		return errors.ErrNoResult
	default:
		return errors.ErrWrongArgs
	}
	wide := len(data) == 8
	signed := func() int64 {
		if wide {
			return int64(bits)
		}
		return int64(int32(uint32(bits)))
	}
	float := func() float64 {
		if wide {
			return math.Float64frombits(bits)
		}
		return float64(math.Float32frombits(uint32(bits)))
	}

	switch p := out.(type) {
	case *int:
		*p = int(signed())
	case *int8:
		*p = int8(signed())
	case *int16:
		*p = int16(signed())
	case *int32:
		*p = int32(signed())
	case *int64:
		*p = signed()
	case *uint:
		*p = uint(bits)
	case *uint8:
		*p = uint8(bits)
	case *uint16:
		*p = uint16(bits)
	case *uint32:
		*p = uint32(bits)
	case *uint64:
		*p = bits
	case *float32:
		*p = float32(float())
	case *float64:
		*p = float()
	case *bool:
		*p = bits != 0
	default:
		return errors.ErrWrongArgs
	}
	return nil
}

type nopHost struct{}

func (nopHost) Invoke(_ uint64, _ []entities.Arg, ret entities.ReturnType, _ []byte) int32 {
	if ret == entities.ReturnEmpty {
		return int32(entities.StatusSuccess)
	}
	return int32(entities.StatusNoReturnValue)
}

func (nopHost) CanonicalizeRef(uint32, []byte) int32 { return 0 }

func (nopHost) InvokeRefFunc(string, []byte, []byte) int32 {
	return int32(entities.StatusNoReturnValue)
}

func (nopHost) Log(string) {}
