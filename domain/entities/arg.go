package entities

// ArgKind tags a guest argument. Every kind has exactly one encoding on the
// guest side and one decoding on the host side.
type ArgKind uint8

const (
	ArgInvalid ArgKind = iota
	ArgInt32
	ArgInt64
	ArgFloat32
	ArgFloat64
	ArgBool
	ArgVector3
	ArgInt32Ref
	ArgFloat32Ref
	ArgVector3Ref
	ArgString
	ArgBytes
	ArgCallback
)

func (k ArgKind) String() string {
	switch k {
	case ArgInt32:
		return "int32"
	case ArgInt64:
		return "int64"
	case ArgFloat32:
		return "float32"
	case ArgFloat64:
		return "float64"
	case ArgBool:
		return "bool"
	case ArgVector3:
		return "vector3"
	case ArgInt32Ref:
		return "int32_ref"
	case ArgFloat32Ref:
		return "float32_ref"
	case ArgVector3Ref:
		return "vector3_ref"
	case ArgString:
		return "string"
	case ArgBytes:
		return "bytes"
	case ArgCallback:
		return "callback"
	default:
		return "invalid"
	}
}

// Inline reports whether the value travels inside the slot itself.
func (k ArgKind) Inline() bool {
	switch k {
	case ArgInt32, ArgInt64, ArgFloat32, ArgFloat64, ArgBool:
		return true
	default:
		return false
	}
}

// Valid reports whether k is a defined kind.
func (k ArgKind) Valid() bool {
	return k > ArgInvalid && k <= ArgCallback
}

// FixedSize returns the referenced region size for pointer kinds with a fixed
// layout, or 0 when the size is carried by the slot.
func (k ArgKind) FixedSize() uint32 {
	switch k {
	case ArgInt32Ref, ArgFloat32Ref:
		return 4
	case ArgVector3, ArgVector3Ref:
		return Vector3Size
	default:
		return 0
	}
}

// Arg is one typed argument of a native call as built by guest code. It is
// used only while marshaling a single call.
type Arg struct {
	Int32Ptr   *int32
	Float32Ptr *float32
	VecPtr     *Vector3
	// Data carries string, callback-name and buffer contents. Strings and
	// names exclude the terminating NUL.
	Data    []byte
	Bits    uint64
	Vec     Vector3
	Kind    ArgKind
	Mutable bool
}
