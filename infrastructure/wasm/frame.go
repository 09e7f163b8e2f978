package wasm

import (
	"encoding/binary"
	"math"

	"github.com/cfxwasm/sdk/domain/entities"
)

// frame lays out the arguments of one native call as slots. The regions the
// slots point at are held in keep until the call returns; mutable scalar and
// vector references are copied back to their Go variables by release.
type frame struct {
	addr  func([]byte) uint32
	slots []byte
	keep  [][]byte
	back  []func()
}

func newFrame(addr func([]byte) uint32, args []entities.Arg) *frame {
	f := &frame{
		addr:  addr,
		slots: make([]byte, len(args)*entities.SlotSize),
	}
	for i, a := range args {
		f.slot(a).Put(f.slots[i*entities.SlotSize:])
	}
	return f
}

func (f *frame) region(b []byte) uint64 {
	f.keep = append(f.keep, b)
	return uint64(f.addr(b))
}

func (f *frame) slot(a entities.Arg) entities.Slot {
	s := entities.Slot{Kind: a.Kind}
	if a.Mutable {
		s.Flags |= entities.SlotFlagMutable
	}

	switch a.Kind {
	case entities.ArgInt32, entities.ArgInt64, entities.ArgFloat32, entities.ArgFloat64, entities.ArgBool:
		s.Value = a.Bits
	case entities.ArgVector3:
		s.Value = f.region(a.Vec.Bytes())
		s.Size = entities.Vector3Size
	case entities.ArgInt32Ref:
		buf := make([]byte, 4)
		if p := a.Int32Ptr; p != nil {
			binary.LittleEndian.PutUint32(buf, uint32(*p))
			f.back = append(f.back, func() { *p = int32(binary.LittleEndian.Uint32(buf)) })
		}
		s.Value = f.region(buf)
		s.Size = 4
	case entities.ArgFloat32Ref:
		buf := make([]byte, 4)
		if p := a.Float32Ptr; p != nil {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(*p))
			f.back = append(f.back, func() { *p = math.Float32frombits(binary.LittleEndian.Uint32(buf)) })
		}
		s.Value = f.region(buf)
		s.Size = 4
	case entities.ArgVector3Ref:
		buf := make([]byte, entities.Vector3Size)
		if p := a.VecPtr; p != nil {
			p.Put(buf)
			f.back = append(f.back, func() { *p = entities.ReadVector3(buf) })
		}
		s.Value = f.region(buf)
		s.Size = entities.Vector3Size
	case entities.ArgString, entities.ArgCallback:
		buf := make([]byte, len(a.Data)+1)
		copy(buf, a.Data)
		s.Value = f.region(buf)
		s.Size = uint32(len(buf))
	case entities.ArgBytes:
		// Passed in place so host writes land in the caller's slice.
		if len(a.Data) > 0 {
			s.Value = f.region(a.Data)
		}
		s.Size = uint32(len(a.Data))
	}
	return s
}

// release copies mutable references back and drops the pinned regions.
func (f *frame) release() {
	for _, fn := range f.back {
		fn()
	}
	f.back = nil
	f.keep = nil
}

func descriptor(addr func([]byte) uint32, rt entities.ReturnType, buf []byte) []byte {
	return entities.ReturnValue{
		Type:     rt,
		Buffer:   addr(buf),
		Capacity: uint32(len(buf)),
	}.Bytes()
}
