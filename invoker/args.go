package invoker

import (
	"bytes"
	"math"

	"github.com/cfxwasm/sdk/domain/entities"
)

// Int32 passes an inline 32-bit integer.
func Int32(v int32) entities.Arg {
	return entities.Arg{Kind: entities.ArgInt32, Bits: uint64(uint32(v))}
}

// Int64 passes an inline 64-bit integer.
func Int64(v int64) entities.Arg {
	return entities.Arg{Kind: entities.ArgInt64, Bits: uint64(v)}
}

// Float32 passes an inline float.
func Float32(v float32) entities.Arg {
	return entities.Arg{Kind: entities.ArgFloat32, Bits: uint64(math.Float32bits(v))}
}

// Float64 passes an inline double.
func Float64(v float64) entities.Arg {
	return entities.Arg{Kind: entities.ArgFloat64, Bits: math.Float64bits(v)}
}

// Bool passes an inline boolean.
func Bool(v bool) entities.Arg {
	a := entities.Arg{Kind: entities.ArgBool}
	if v {
		a.Bits = 1
	}
	return a
}

// Vec3 passes a vector by value.
func Vec3(v entities.Vector3) entities.Arg {
	return entities.Arg{Kind: entities.ArgVector3, Vec: v}
}

// Int32Ref passes a mutable reference to p.
func Int32Ref(p *int32) entities.Arg {
	return entities.Arg{Kind: entities.ArgInt32Ref, Int32Ptr: p, Mutable: true}
}

// Float32Ref passes a mutable reference to p.
func Float32Ref(p *float32) entities.Arg {
	return entities.Arg{Kind: entities.ArgFloat32Ref, Float32Ptr: p, Mutable: true}
}

// Vec3Ref passes a mutable reference to p.
func Vec3Ref(p *entities.Vector3) entities.Arg {
	return entities.Arg{Kind: entities.ArgVector3Ref, VecPtr: p, Mutable: true}
}

// String passes a NUL-terminated string. The host sees the bytes up to the
// first embedded NUL, if any.
func String(s string) entities.Arg {
	b := []byte(s)
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return entities.Arg{Kind: entities.ArgString, Data: b}
}

// Bytes passes a read-only buffer.
func Bytes(b []byte) entities.Arg {
	return entities.Arg{Kind: entities.ArgBytes, Data: b}
}

// BytesMut passes a buffer the host may write into.
func BytesMut(b []byte) entities.Arg {
	return entities.Arg{Kind: entities.ArgBytes, Data: b, Mutable: true}
}

// Callback passes a callback handle by its canonical name.
func Callback(name string) entities.Arg {
	a := String(name)
	a.Kind = entities.ArgCallback
	return a
}
