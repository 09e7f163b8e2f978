package entities

import (
	"encoding/binary"
	"math"
)

// Names shared by both sides of the boundary.
const (
	// HostModule is the import module guests link host functions from.
	HostModule = "host"

	ImportLog             = "log"
	ImportInvoke          = "invoke"
	ImportCanonicalizeRef = "canonicalize_ref"
	ImportInvokeRefFunc   = "invoke_ref_func"

	ExportAlloc              = "__cfx_alloc"
	ExportFree               = "__cfx_free"
	ExportOnEvent            = "__cfx_on_event"
	ExportOnTick             = "__cfx_on_tick"
	ExportCallRef            = "__cfx_call_ref"
	ExportDuplicateRef       = "__cfx_duplicate_ref"
	ExportRemoveRef          = "__cfx_remove_ref"
	ExportExtendRetvalBuffer = "__cfx_extend_retval_buffer"
)

// MaxArguments is the fixed number of argument slots in a native call frame.
const MaxArguments = 32

// Encoded sizes of the fixed records crossing the boundary.
const (
	SlotSize        = 16
	ReturnValueSize = 12
	Vector3Size     = 24
	ScrObjectSize   = 16
)

// SlotFlagMutable marks a reference or buffer argument the host may write to.
const SlotFlagMutable uint8 = 1 << 0

// SplitHash returns the high and low 32-bit halves of a native identifier.
func SplitHash(hash uint64) (hi, lo uint32) {
	return uint32(hash >> 32), uint32(hash) //nolint:gosec // G115: intentional truncation
}

// JoinHash is the inverse of SplitHash.
func JoinHash(hi, lo uint32) uint64 {
	return uint64(hi)<<32 | uint64(lo)
}

// Slot is the 16-byte wire form of one argument:
//
//	kind u8 | flags u8 | reserved u16 | size u32 | value u64
//
// Value holds inline scalar bits or a guest address; Size is the length of
// the referenced region (strings include the terminating NUL).
type Slot struct {
	Value uint64
	Size  uint32
	Kind  ArgKind
	Flags uint8
}

// Mutable reports whether the host may write through this slot.
func (s Slot) Mutable() bool {
	return s.Flags&SlotFlagMutable != 0
}

// Put encodes the slot into b, which must hold at least SlotSize bytes.
func (s Slot) Put(b []byte) {
	_ = b[SlotSize-1]
	b[0] = byte(s.Kind)
	b[1] = s.Flags
	b[2], b[3] = 0, 0
	binary.LittleEndian.PutUint32(b[4:8], s.Size)
	binary.LittleEndian.PutUint64(b[8:16], s.Value)
}

// ReadSlot decodes a slot from b.
func ReadSlot(b []byte) Slot {
	_ = b[SlotSize-1]
	return Slot{
		Kind:  ArgKind(b[0]),
		Flags: b[1],
		Size:  binary.LittleEndian.Uint32(b[4:8]),
		Value: binary.LittleEndian.Uint64(b[8:16]),
	}
}

// ReturnType is the logical type tag of a return descriptor.
type ReturnType uint32

const (
	ReturnEmpty ReturnType = iota
	ReturnNumber
	ReturnString
	ReturnVector3
	ReturnMsgPack
)

func (t ReturnType) String() string {
	switch t {
	case ReturnEmpty:
		return "empty"
	case ReturnNumber:
		return "number"
	case ReturnString:
		return "string"
	case ReturnVector3:
		return "vector3"
	case ReturnMsgPack:
		return "msgpack"
	default:
		return "unknown"
	}
}

// Valid reports whether t is one of the defined tags.
func (t ReturnType) Valid() bool {
	return t <= ReturnMsgPack
}

// ReturnValue is the return descriptor: where the host writes a result in
// guest memory and how large that region currently is. Capacity is
// authoritative.
type ReturnValue struct {
	Type     ReturnType
	Buffer   uint32
	Capacity uint32
}

// Put encodes the descriptor into b (ReturnValueSize bytes).
func (r ReturnValue) Put(b []byte) {
	_ = b[ReturnValueSize-1]
	binary.LittleEndian.PutUint32(b[0:4], uint32(r.Type))
	binary.LittleEndian.PutUint32(b[4:8], r.Buffer)
	binary.LittleEndian.PutUint32(b[8:12], r.Capacity)
}

// Bytes returns the encoded descriptor.
func (r ReturnValue) Bytes() []byte {
	b := make([]byte, ReturnValueSize)
	r.Put(b)
	return b
}

// ReadReturnValue decodes a descriptor.
func ReadReturnValue(b []byte) ReturnValue {
	_ = b[ReturnValueSize-1]
	return ReturnValue{
		Type:     ReturnType(binary.LittleEndian.Uint32(b[0:4])),
		Buffer:   binary.LittleEndian.Uint32(b[4:8]),
		Capacity: binary.LittleEndian.Uint32(b[8:12]),
	}
}

// Vector3 is a three-component float vector. On the wire each component is
// followed by four bytes of padding.
type Vector3 struct {
	X float32 `msgpack:"x" json:"x"`
	Y float32 `msgpack:"y" json:"y"`
	Z float32 `msgpack:"z" json:"z"`
}

// Put encodes v into b (Vector3Size bytes).
func (v Vector3) Put(b []byte) {
	_ = b[Vector3Size-1]
	binary.LittleEndian.PutUint32(b[0:4], math.Float32bits(v.X))
	binary.LittleEndian.PutUint32(b[4:8], 0)
	binary.LittleEndian.PutUint32(b[8:12], math.Float32bits(v.Y))
	binary.LittleEndian.PutUint32(b[12:16], 0)
	binary.LittleEndian.PutUint32(b[16:20], math.Float32bits(v.Z))
	binary.LittleEndian.PutUint32(b[20:24], 0)
}

// Bytes returns the padded wire form of v.
func (v Vector3) Bytes() []byte {
	b := make([]byte, Vector3Size)
	v.Put(b)
	return b
}

// ReadVector3 decodes a padded vector record.
func ReadVector3(b []byte) Vector3 {
	_ = b[Vector3Size-1]
	return Vector3{
		X: math.Float32frombits(binary.LittleEndian.Uint32(b[0:4])),
		Y: math.Float32frombits(binary.LittleEndian.Uint32(b[8:12])),
		Z: math.Float32frombits(binary.LittleEndian.Uint32(b[16:20])),
	}
}

// ScrObject describes a byte range in guest memory. It is what the guest's
// call_ref export returns (by address).
type ScrObject struct {
	Data   uint64
	Length uint64
}

// Put encodes o into b (ScrObjectSize bytes).
func (o ScrObject) Put(b []byte) {
	_ = b[ScrObjectSize-1]
	binary.LittleEndian.PutUint64(b[0:8], o.Data)
	binary.LittleEndian.PutUint64(b[8:16], o.Length)
}

// ReadScrObject decodes a ScrObject.
func ReadScrObject(b []byte) ScrObject {
	_ = b[ScrObjectSize-1]
	return ScrObject{
		Data:   binary.LittleEndian.Uint64(b[0:8]),
		Length: binary.LittleEndian.Uint64(b[8:16]),
	}
}
