package hostfuncs

import (
	"encoding/binary"
	"math"

	"github.com/cfxwasm/sdk/domain/entities"
	"github.com/cfxwasm/sdk/domain/errors"
	"github.com/cfxwasm/sdk/wireformat"
)

// Argument is one decoded slot of a native call. Inline kinds keep their
// bits in Value; pointer kinds carry a view of the referenced guest region in
// Data, so writes through a mutable argument land in guest memory.
type Argument struct {
	Data  []byte
	Value uint64
	Kind  entities.ArgKind
	Flags uint8
}

// Mutable reports whether the guest allows writes through the argument.
func (a Argument) Mutable() bool {
	return a.Flags&entities.SlotFlagMutable != 0
}

// Int32 returns the argument as an int32. Int32Ref arguments are read
// through their reference.
func (a Argument) Int32() int32 {
	if a.Kind == entities.ArgInt32Ref && len(a.Data) >= 4 {
		return int32(binary.LittleEndian.Uint32(a.Data))
	}
	return int32(uint32(a.Value))
}

// Int64 returns the argument as an int64.
func (a Argument) Int64() int64 {
	if a.Kind == entities.ArgInt32 {
		return int64(a.Int32())
	}
	return int64(a.Value)
}

// Float32 returns the argument as a float32. Float32Ref arguments are read
// through their reference.
func (a Argument) Float32() float32 {
	if a.Kind == entities.ArgFloat32Ref && len(a.Data) >= 4 {
		return math.Float32frombits(binary.LittleEndian.Uint32(a.Data))
	}
	return math.Float32frombits(uint32(a.Value))
}

// Float64 returns the argument as a float64.
func (a Argument) Float64() float64 {
	if a.Kind == entities.ArgFloat32 {
		return float64(a.Float32())
	}
	return math.Float64frombits(a.Value)
}

// Bool returns the argument as a bool.
func (a Argument) Bool() bool {
	return a.Value != 0
}

// String returns string and callback arguments without their NUL.
func (a Argument) String() string {
	b := a.Data
	if n := len(b); n > 0 && b[n-1] == 0 {
		b = b[:n-1]
	}
	return string(b)
}

// Bytes returns the referenced region. It aliases guest memory.
func (a Argument) Bytes() []byte {
	return a.Data
}

// Vector3 returns Vector3 and Vector3Ref arguments.
func (a Argument) Vector3() entities.Vector3 {
	if len(a.Data) < entities.Vector3Size {
		return entities.Vector3{}
	}
	return entities.ReadVector3(a.Data)
}

// SetInt32 writes through an Int32Ref argument.
func (a Argument) SetInt32(v int32) error {
	if a.Kind != entities.ArgInt32Ref || !a.Mutable() || len(a.Data) < 4 {
		return errors.ErrWrongArgs
	}
	binary.LittleEndian.PutUint32(a.Data, uint32(v))
	return nil
}

// SetFloat32 writes through a Float32Ref argument.
func (a Argument) SetFloat32(v float32) error {
	if a.Kind != entities.ArgFloat32Ref || !a.Mutable() || len(a.Data) < 4 {
		return errors.ErrWrongArgs
	}
	binary.LittleEndian.PutUint32(a.Data, math.Float32bits(v))
	return nil
}

// SetVector3 writes through a Vector3Ref argument.
func (a Argument) SetVector3(v entities.Vector3) error {
	if a.Kind != entities.ArgVector3Ref || !a.Mutable() || len(a.Data) < entities.Vector3Size {
		return errors.ErrWrongArgs
	}
	v.Put(a.Data)
	return nil
}

// CallFrame is one native invocation as seen by a handler: the identifier,
// the decoded arguments and at most one result.
type CallFrame struct {
	result     []byte
	Arguments  []Argument
	Identifier uint64
	resultType entities.ReturnType
	hasResult  bool
}

// NewCallFrame creates a frame for the native hash with the given arguments.
func NewCallFrame(hash uint64, args ...Argument) *CallFrame {
	return &CallFrame{Identifier: hash, Arguments: args}
}

// NumArguments returns the number of arguments.
func (f *CallFrame) NumArguments() int {
	return len(f.Arguments)
}

// NumResults returns 1 once a result has been set, else 0.
func (f *CallFrame) NumResults() int {
	if f.hasResult {
		return 1
	}
	return 0
}

// Arg returns argument i, or ErrWrongArgs when the guest passed fewer.
func (f *CallFrame) Arg(i int) (Argument, error) {
	if i < 0 || i >= len(f.Arguments) {
		return Argument{}, errors.ErrWrongArgs
	}
	return f.Arguments[i], nil
}

// Result returns the result type and its encoded bytes.
func (f *CallFrame) Result() (entities.ReturnType, []byte, bool) {
	return f.resultType, f.result, f.hasResult
}

func (f *CallFrame) setResult(rt entities.ReturnType, b []byte) {
	f.resultType = rt
	f.result = b
	f.hasResult = true
}

// ReturnInt32 sets a 4-byte Number result.
func (f *CallFrame) ReturnInt32(v int32) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	f.setResult(entities.ReturnNumber, b)
}

// ReturnInt64 sets an 8-byte Number result.
func (f *CallFrame) ReturnInt64(v int64) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	f.setResult(entities.ReturnNumber, b)
}

// ReturnFloat32 sets a 4-byte Number result.
func (f *CallFrame) ReturnFloat32(v float32) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	f.setResult(entities.ReturnNumber, b)
}

// ReturnFloat64 sets an 8-byte Number result.
func (f *CallFrame) ReturnFloat64(v float64) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	f.setResult(entities.ReturnNumber, b)
}

// ReturnBool sets a 4-byte Number result of 0 or 1.
func (f *CallFrame) ReturnBool(v bool) {
	var n int32
	if v {
		n = 1
	}
	f.ReturnInt32(n)
}

// ReturnString sets a String result. The NUL is appended here.
func (f *CallFrame) ReturnString(s string) {
	b := make([]byte, len(s)+1)
	copy(b, s)
	f.setResult(entities.ReturnString, b)
}

// ReturnVector3 sets a Vector3 result.
func (f *CallFrame) ReturnVector3(v entities.Vector3) {
	f.setResult(entities.ReturnVector3, v.Bytes())
}

// ReturnMsgPack sets an already encoded MsgPack result.
func (f *CallFrame) ReturnMsgPack(data []byte) {
	f.setResult(entities.ReturnMsgPack, data)
}

// ReturnObject encodes v as a MsgPack result.
func (f *CallFrame) ReturnObject(v any) error {
	data, err := wireformat.Marshal(v)
	if err != nil {
		return err
	}
	f.ReturnMsgPack(data)
	return nil
}
