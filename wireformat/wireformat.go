// Package wireformat defines the msgpack wire format for structured payloads
// crossing the host/guest boundary: event payloads, callback arguments and
// callback results. These encodings define the ABI contract and must stay
// stable.
//
// Struct-like values are encoded as maps keyed by field name, so peers
// tolerate reordered or added fields. Tuple-like values are encoded as arrays
// and must keep their declared order. Callback references travel as msgpack
// extension type 10 whose payload is the UTF-8 canonical name.
package wireformat

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

// ExternRefExtID is the msgpack extension type reserved for callback references.
const ExternRefExtID int8 = 10

// ExternRef is the serializable counterpart of a callback handle: just the
// canonical name, tagged so decoders can tell it apart from ordinary data.
type ExternRef struct {
	Name string
}

// IsZero reports whether the reference carries no name.
func (r ExternRef) IsZero() bool {
	return r.Name == ""
}

func init() {
	msgpack.RegisterExtEncoder(ExternRefExtID, ExternRef{},
		func(_ *msgpack.Encoder, v reflect.Value) ([]byte, error) {
			return []byte(v.Interface().(ExternRef).Name), nil
		})
	msgpack.RegisterExtDecoder(ExternRefExtID, ExternRef{},
		func(d *msgpack.Decoder, v reflect.Value, extLen int) error {
			name := make([]byte, extLen)
			if err := d.ReadFull(name); err != nil {
				return fmt.Errorf("failed to read extern ref name: %w", err)
			}
			v.Set(reflect.ValueOf(ExternRef{Name: string(name)}))
			return nil
		})
}

// Marshal encodes v with struct fields keyed by name.
func Marshal(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return data, nil
}

// MarshalTuple encodes v with struct fields as positional array elements.
func MarshalTuple(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseArrayEncodedStructs(true)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to marshal tuple: %w", err)
	}
	return buf.Bytes(), nil
}

// Args encodes a positional argument list, the shape callers use for
// callback invocations.
func Args(values ...any) ([]byte, error) {
	if values == nil {
		values = []any{}
	}
	return Marshal(values)
}

// Unmarshal decodes data into v. Structs accept both the map and the array
// encoding.
func Unmarshal(data []byte, v any) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}
