package entities

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlot_PutRead(t *testing.T) {
	tests := []struct {
		name string
		slot Slot
	}{
		{name: "inline int", slot: Slot{Kind: ArgInt32, Value: 42}},
		{name: "mutable buffer", slot: Slot{Kind: ArgBytes, Flags: SlotFlagMutable, Size: 128, Value: 0x1000}},
		{name: "string", slot: Slot{Kind: ArgString, Size: 6, Value: 0xFFFF_FFF0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, SlotSize)
			tt.slot.Put(buf)
			assert.Equal(t, tt.slot, ReadSlot(buf))
		})
	}
}

func TestSlot_Layout(t *testing.T) {
	buf := make([]byte, SlotSize)
	Slot{Kind: ArgBytes, Flags: SlotFlagMutable, Size: 7, Value: 0x0102030405060708}.Put(buf)

	assert.Equal(t, byte(ArgBytes), buf[0])
	assert.Equal(t, SlotFlagMutable, buf[1])
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(buf[4:8]))
	assert.Equal(t, uint64(0x0102030405060708), binary.LittleEndian.Uint64(buf[8:16]))
	assert.True(t, ReadSlot(buf).Mutable())
}

func TestSplitJoinHash(t *testing.T) {
	hi, lo := SplitHash(0xDEADBEEF_D233A168)
	assert.Equal(t, uint32(0xDEADBEEF), hi)
	assert.Equal(t, uint32(0xD233A168), lo)
	assert.Equal(t, uint64(0xDEADBEEF_D233A168), JoinHash(hi, lo))
}

func TestReturnValue_PutRead(t *testing.T) {
	rv := ReturnValue{Type: ReturnMsgPack, Buffer: 0x4000, Capacity: 1 << 15}
	got := ReadReturnValue(rv.Bytes())
	assert.Equal(t, rv, got)
}

func TestVector3_PaddedLayout(t *testing.T) {
	v := Vector3{X: 1.5, Y: -2, Z: 3.25}
	b := v.Bytes()
	require.Len(t, b, Vector3Size)

	assert.Equal(t, math.Float32bits(1.5), binary.LittleEndian.Uint32(b[0:4]))
	assert.Zero(t, binary.LittleEndian.Uint32(b[4:8]))
	assert.Equal(t, math.Float32bits(-2), binary.LittleEndian.Uint32(b[8:12]))
	assert.Zero(t, binary.LittleEndian.Uint32(b[12:16]))
	assert.Equal(t, math.Float32bits(3.25), binary.LittleEndian.Uint32(b[16:20]))
	assert.Equal(t, v, ReadVector3(b))
}

func TestScrObject_PutRead(t *testing.T) {
	o := ScrObject{Data: 0x2000, Length: 17}
	b := make([]byte, ScrObjectSize)
	o.Put(b)
	assert.Equal(t, o, ReadScrObject(b))
}

func TestArgKind(t *testing.T) {
	assert.True(t, ArgInt64.Inline())
	assert.False(t, ArgString.Inline())
	assert.False(t, ArgInvalid.Valid())
	assert.False(t, ArgKind(200).Valid())
	assert.Equal(t, uint32(Vector3Size), ArgVector3Ref.FixedSize())
	assert.Equal(t, uint32(4), ArgInt32Ref.FixedSize())
	assert.Zero(t, ArgBytes.FixedSize())
	assert.Equal(t, "callback", ArgCallback.String())
}

func TestCallStatus_String(t *testing.T) {
	assert.Equal(t, "no_space_in_buffer", StatusNoSpace.String())
	assert.Equal(t, "host_defined", CallStatus(-42).String())
	assert.Equal(t, "success", CallStatus(8).String())
}
