package invoker

import (
	"math"
	"testing"

	"github.com/cfxwasm/sdk/domain/entities"
	"github.com/stretchr/testify/assert"
)

func TestArgConstructors(t *testing.T) {
	var i int32
	var f float32
	var v entities.Vector3

	tests := []struct {
		name    string
		arg     entities.Arg
		kind    entities.ArgKind
		bits    uint64
		mutable bool
	}{
		{name: "int32", arg: Int32(-1), kind: entities.ArgInt32, bits: 0xFFFFFFFF},
		{name: "int64", arg: Int64(-1), kind: entities.ArgInt64, bits: math.MaxUint64},
		{name: "float32", arg: Float32(1), kind: entities.ArgFloat32, bits: uint64(math.Float32bits(1))},
		{name: "float64", arg: Float64(1), kind: entities.ArgFloat64, bits: math.Float64bits(1)},
		{name: "bool", arg: Bool(true), kind: entities.ArgBool, bits: 1},
		{name: "int ref", arg: Int32Ref(&i), kind: entities.ArgInt32Ref, mutable: true},
		{name: "float ref", arg: Float32Ref(&f), kind: entities.ArgFloat32Ref, mutable: true},
		{name: "vector ref", arg: Vec3Ref(&v), kind: entities.ArgVector3Ref, mutable: true},
		{name: "bytes mut", arg: BytesMut(make([]byte, 4)), kind: entities.ArgBytes, mutable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.arg.Kind)
			assert.Equal(t, tt.bits, tt.arg.Bits)
			assert.Equal(t, tt.mutable, tt.arg.Mutable)
		})
	}
}

func TestString_TruncatesAtEmbeddedNUL(t *testing.T) {
	a := String("abc\x00def")
	assert.Equal(t, []byte("abc"), a.Data)
}

func TestCallback(t *testing.T) {
	a := Callback("res:5")
	assert.Equal(t, entities.ArgCallback, a.Kind)
	assert.Equal(t, []byte("res:5"), a.Data)
}

func TestReturnTypeOf(t *testing.T) {
	assert.Equal(t, entities.ReturnNumber, ReturnTypeOf(int32(0)))
	assert.Equal(t, entities.ReturnNumber, ReturnTypeOf(false))
	assert.Equal(t, entities.ReturnString, ReturnTypeOf(""))
	assert.Equal(t, entities.ReturnVector3, ReturnTypeOf(entities.Vector3{}))
	assert.Equal(t, entities.ReturnMsgPack, ReturnTypeOf(struct{}{}))
	assert.Equal(t, entities.ReturnMsgPack, ReturnTypeOf(nil))
}
