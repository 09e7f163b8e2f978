package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

func TestLEB128(t *testing.T) {
	tests := []struct {
		name string
		got  []byte
		want []byte
	}{
		{name: "uleb zero", got: uleb(0), want: []byte{0x00}},
		{name: "uleb 624485", got: uleb(624485), want: []byte{0xE5, 0x8E, 0x26}},
		{name: "sleb -1", got: sleb(-1), want: []byte{0x7F}},
		{name: "sleb 63", got: sleb(63), want: []byte{0x3F}},
		{name: "sleb 64", got: sleb(64), want: []byte{0xC0, 0x00}},
		{name: "sleb -123456", got: sleb(-123456), want: []byte{0xC0, 0xBB, 0x78}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestModuleBuilder_Instantiates(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	var seen []uint32
	_, err := rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithFunc(func(_ context.Context, v uint32) { seen = append(seen, v) }).
		Export("note").
		Instantiate(ctx)
	require.NoError(t, err)

	b := NewModuleBuilder()
	note := b.Import("env", "note", []byte{I32}, nil)
	b.Memory(1).Data(8, []byte{1, 2, 3, 4})
	counter := b.Global(100)
	b.Func("add", []byte{I32, I32}, []byte{I32}, LocalGet(0), LocalGet(1), I32Add())
	b.Func("bump", nil, []byte{I32},
		GlobalGet(counter),
		GlobalGet(counter), I32Const(-1), I32Add(), GlobalSet(counter),
	)
	b.Func("poke", []byte{I32}, nil, I32Const(16), LocalGet(0), I32Store(0), LocalGet(0), Call(note))
	b.Func("trap", nil, nil, Unreachable())

	mod, err := rt.Instantiate(ctx, b.Build())
	require.NoError(t, err)

	call := func(name string, params ...uint64) []uint64 {
		t.Helper()
		res, err := mod.ExportedFunction(name).Call(ctx, params...)
		require.NoError(t, err)
		return res
	}

	assert.Equal(t, []uint64{42}, call("add", 40, 2))
	assert.Equal(t, uint32(100), api.DecodeU32(call("bump")[0]))
	assert.Equal(t, uint32(99), api.DecodeU32(call("bump")[0]))

	call("poke", 7)
	assert.Equal(t, []uint32{7}, seen)
	v, ok := mod.Memory().ReadUint32Le(16)
	require.True(t, ok)
	assert.Equal(t, uint32(7), v)

	data, ok := mod.Memory().Read(8, 4)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)

	_, err = mod.ExportedFunction("trap").Call(ctx)
	assert.Error(t, err)
}
