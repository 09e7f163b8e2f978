package wireformat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingPayload struct {
	Req string `msgpack:"req"`
}

type deferrals struct {
	Done   ExternRef `msgpack:"done"`
	Update ExternRef `msgpack:"update"`
	Label  string    `msgpack:"label"`
	Count  int       `msgpack:"count"`
}

type pair struct {
	Name  string
	Value int
}

func TestMarshal_NamedRoundTrip(t *testing.T) {
	in := deferrals{
		Done:   ExternRef{Name: "res:1"},
		Update: ExternRef{Name: "res:2"},
		Label:  "connecting",
		Count:  3,
	}

	data, err := Marshal(in)
	require.NoError(t, err)

	var out deferrals
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestMarshal_EncodesFieldNames(t *testing.T) {
	data, err := Marshal(pingPayload{Req: "x"})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, Unmarshal(data, &m))
	assert.Equal(t, "x", m["req"])
}

func TestUnmarshal_ToleratesReorderedAndExtraFields(t *testing.T) {
	type v1 struct {
		A string `msgpack:"a"`
		B int    `msgpack:"b"`
		C bool   `msgpack:"c"`
	}
	type v2 struct {
		B int    `msgpack:"b"`
		A string `msgpack:"a"`
	}

	data, err := Marshal(v1{A: "alpha", B: 7, C: true})
	require.NoError(t, err)

	var out v2
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, v2{A: "alpha", B: 7}, out)
}

func TestMarshalTuple_PositionalRoundTrip(t *testing.T) {
	in := pair{Name: "x", Value: 9}

	data, err := MarshalTuple(in)
	require.NoError(t, err)

	var raw []any
	require.NoError(t, Unmarshal(data, &raw))
	require.Len(t, raw, 2)
	assert.Equal(t, "x", raw[0])

	var out pair
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestMarshalTuple_WithExternRef(t *testing.T) {
	type callbackTuple struct {
		Event string
		Cb    ExternRef
	}
	in := callbackTuple{Event: "ready", Cb: ExternRef{Name: "res:42"}}

	data, err := MarshalTuple(in)
	require.NoError(t, err)

	var out callbackTuple
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestExternRef_WireEncoding(t *testing.T) {
	data, err := Marshal(ExternRef{Name: "r:1"})
	require.NoError(t, err)

	// ext 8: 0xc7, length, type, payload
	assert.Equal(t, []byte{0xc7, 0x03, 0x0a, 'r', ':', '1'}, data)

	var out ExternRef
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, "r:1", out.Name)
	assert.False(t, out.IsZero())
}

func TestArgs(t *testing.T) {
	data, err := Args("a", 2)
	require.NoError(t, err)

	var out []any
	require.NoError(t, Unmarshal(data, &out))
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0])

	empty, err := Args()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x90}, empty)
}

func TestUnmarshal_Malformed(t *testing.T) {
	var out pingPayload
	err := Unmarshal([]byte{0xc1}, &out)
	assert.Error(t, err)
}
