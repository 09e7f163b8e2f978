package reffuncs

import (
	"fmt"
	"math"
	"testing"

	"github.com/cfxwasm/sdk/domain/entities"
	"github.com/cfxwasm/sdk/invoker"
	"github.com/cfxwasm/sdk/wireformat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// namingHost canonicalizes indices as "<prefix>:<idx>" and answers ref
// invocations from a fixed table.
type namingHost struct {
	prefix    string
	attempts  []int
	invoked   []string
	lastArgs  []byte
	responses map[string][]byte
}

func (h *namingHost) Invoke(uint64, []entities.Arg, entities.ReturnType, []byte) int32 { return 0 }

func (h *namingHost) CanonicalizeRef(idx uint32, buf []byte) int32 {
	h.attempts = append(h.attempts, len(buf))
	name := fmt.Sprintf("%s:%d", h.prefix, idx)
	if len(name)+1 > len(buf) {
		return -int32(len(name) + 1)
	}
	copy(buf, name)
	buf[len(name)] = 0
	return int32(len(name) + 1)
}

func (h *namingHost) InvokeRefFunc(name string, args []byte, buf []byte) int32 {
	h.invoked = append(h.invoked, name)
	h.lastArgs = append([]byte(nil), args...)
	out, ok := h.responses[name]
	if !ok {
		return int32(entities.StatusNoReturnValue)
	}
	return int32(copy(buf, out))
}

func (h *namingHost) Log(string) {}

func useHost(t *testing.T, h *namingHost) {
	t.Helper()
	invoker.SetHost(h)
	t.Cleanup(func() { invoker.SetHost(nil) })
}

func echo(args []byte) ([]byte, bool) { return args, true }

func TestRegister_AssignsMonotonicIndicesAndNames(t *testing.T) {
	useHost(t, &namingHost{prefix: "res"})
	r := NewRegistry()

	a := r.Register(echo)
	b := r.Register(echo)

	assert.Equal(t, uint32(1), a.Index())
	assert.Equal(t, uint32(2), b.Index())
	assert.Equal(t, "res:1", a.Name())
	assert.Equal(t, "res:2", b.Name())

	refs, ok := r.Refs(a.Index())
	require.True(t, ok)
	assert.Equal(t, int32(0), refs)
}

func TestRegister_RetriesWithRequestedSize(t *testing.T) {
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'r'
	}
	h := &namingHost{prefix: string(long)}
	useHost(t, h)

	f := NewRegistry().Register(echo)
	assert.Equal(t, string(long)+":1", f.Name())
	assert.Equal(t, []int{canonicalBufferSize, len(long) + 3}, h.attempts)
}

// sizingHost answers every canonicalize request with the same size demand.
type sizingHost struct {
	namingHost
	need     int32
	attempts int
}

func (h *sizingHost) CanonicalizeRef(uint32, []byte) int32 {
	h.attempts++
	return h.need
}

func TestRegister_RejectsOversizedNameRequests(t *testing.T) {
	tests := []struct {
		name string
		need int32
	}{
		{name: "min int32", need: math.MinInt32},
		{name: "over the cap", need: -(maxCanonicalNameSize + 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &sizingHost{need: tt.need}
			invoker.SetHost(h)
			t.Cleanup(func() { invoker.SetHost(nil) })

			var f *RefFunction
			require.NotPanics(t, func() { f = NewRegistry().Register(echo) })
			assert.Empty(t, f.Name())
			assert.Equal(t, 1, h.attempts)
		})
	}
}

func TestRegister_EmptyNameWhenHostFails(t *testing.T) {
	invoker.SetHost(nil)
	f := NewRegistry().Register(echo)
	assert.Empty(t, f.Name())
	assert.Equal(t, uint32(1), f.Index())
}

func TestRefcounting(t *testing.T) {
	useHost(t, &namingHost{prefix: "res"})
	r := NewRegistry()
	idx := r.Register(echo).Index()

	assert.Equal(t, idx, r.Duplicate(idx))
	refs, _ := r.Refs(idx)
	assert.Equal(t, int32(1), refs)

	r.Remove(idx)
	refs, ok := r.Refs(idx)
	require.True(t, ok, "one duplicate and one removal keep the entry")
	assert.Equal(t, int32(0), refs)

	_, ok = r.Call(idx, []byte{0x90})
	assert.True(t, ok)

	r.Remove(idx)
	_, ok = r.Refs(idx)
	assert.False(t, ok, "removals outnumber duplicates")
	assert.Equal(t, 0, r.Len())

	out, ok := r.Call(idx, []byte{0x90})
	assert.False(t, ok)
	assert.Nil(t, out)
}

func TestRefcounting_Table(t *testing.T) {
	tests := []struct {
		name       string
		duplicates int
		removes    int
		present    bool
	}{
		{name: "fresh", present: true},
		{name: "removed without duplicate", removes: 1, present: false},
		{name: "balanced", duplicates: 2, removes: 2, present: true},
		{name: "one extra removal", duplicates: 2, removes: 3, present: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useHost(t, &namingHost{prefix: "res"})
			r := NewRegistry()
			idx := r.Register(echo).Index()

			for range tt.duplicates {
				r.Duplicate(idx)
			}
			for range tt.removes {
				r.Remove(idx)
			}

			_, ok := r.Refs(idx)
			assert.Equal(t, tt.present, ok)
			assert.NotPanics(t, func() { r.Remove(idx) })
		})
	}
}

func TestCall_RecoversPanics(t *testing.T) {
	useHost(t, &namingHost{prefix: "res"})
	r := NewRegistry()
	f := r.Register(func([]byte) ([]byte, bool) { panic("bad callback") })

	out, ok := r.Call(f.Index(), nil)
	assert.False(t, ok)
	assert.Nil(t, out)
}

func TestNew_TypedClosure(t *testing.T) {
	useHost(t, &namingHost{prefix: "res"})
	r := NewRegistry()

	type addArgs struct {
		A int
		B int
	}
	type sum struct {
		Total int `msgpack:"total"`
	}
	f := New(r, func(in addArgs) sum { return sum{Total: in.A + in.B} })

	args, err := wireformat.Args(2, 3)
	require.NoError(t, err)

	out, ok := r.Call(f.Index(), args)
	require.True(t, ok)

	var got sum
	require.NoError(t, wireformat.Unmarshal(out, &got))
	assert.Equal(t, 5, got.Total)

	_, ok = r.Call(f.Index(), []byte{0xc1})
	assert.False(t, ok, "undecodable arguments give no result")
}

func TestRefFunction_EncodesAsExtern(t *testing.T) {
	useHost(t, &namingHost{prefix: "res"})
	f := NewRegistry().Register(echo)

	type payload struct {
		Done *RefFunction `msgpack:"done"`
	}
	data, err := wireformat.Marshal(payload{Done: f})
	require.NoError(t, err)

	var decoded struct {
		Done wireformat.ExternRef `msgpack:"done"`
	}
	require.NoError(t, wireformat.Unmarshal(data, &decoded))
	assert.Equal(t, f.Extern(), decoded.Done)
	assert.Equal(t, "res:1", decoded.Done.Name)
}

func TestInvokeExtern(t *testing.T) {
	reply, err := wireformat.Marshal("pong")
	require.NoError(t, err)
	h := &namingHost{prefix: "res", responses: map[string][]byte{"other:9": reply}}
	useHost(t, h)

	out, ok := InvokeExtern[string](wireformat.ExternRef{Name: "other:9"}, "ping", 1)
	require.True(t, ok)
	assert.Equal(t, "pong", out)
	assert.Equal(t, []string{"other:9"}, h.invoked)

	var args []any
	require.NoError(t, wireformat.Unmarshal(h.lastArgs, &args))
	assert.Len(t, args, 2)

	_, ok = InvokeExtern[string](wireformat.ExternRef{Name: "missing:1"})
	assert.False(t, ok)
}
