package wazero

import (
	"context"
	"testing"

	"github.com/cfxwasm/sdk/domain/entities"
	"github.com/cfxwasm/sdk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

func TestDefaultAdapterConfig(t *testing.T) {
	cfg := defaultAdapterConfig()

	if cfg.ModuleName != "host" {
		t.Errorf("ModuleName = %q, want %q", cfg.ModuleName, "host")
	}
	if len(cfg.CustomHandlers) != 0 {
		t.Errorf("CustomHandlers = %d, want 0", len(cfg.CustomHandlers))
	}
}

func TestWithModuleName(t *testing.T) {
	cfg := defaultAdapterConfig()
	WithModuleName("custom_module")(&cfg)

	if cfg.ModuleName != "custom_module" {
		t.Errorf("ModuleName = %q, want %q", cfg.ModuleName, "custom_module")
	}
}

type recordedCall struct {
	name   string
	module string
	args   []uint32
}

type recordingFunctions struct {
	calls []recordedCall
}

func (r *recordingFunctions) record(name string, mod api.Module, args ...uint32) {
	r.calls = append(r.calls, recordedCall{name: name, module: mod.Name(), args: args})
}

func (r *recordingFunctions) Log(_ context.Context, mod api.Module, ptr, length uint32) {
	r.record("log", mod, ptr, length)
}

func (r *recordingFunctions) Invoke(_ context.Context, mod api.Module, hashHi, hashLo, argsPtr, argsLen, retvalPtr uint32) int32 {
	r.record("invoke", mod, hashHi, hashLo, argsPtr, argsLen, retvalPtr)
	return -5
}

func (r *recordingFunctions) CanonicalizeRef(_ context.Context, mod api.Module, idx, bufPtr, bufSize uint32) int32 {
	r.record("canonicalize_ref", mod, idx, bufPtr, bufSize)
	return 9
}

func (r *recordingFunctions) InvokeRefFunc(_ context.Context, mod api.Module, namePtr, argsPtr, argsLen, retvalPtr uint32) int32 {
	r.record("invoke_ref_func", mod, namePtr, argsPtr, argsLen, retvalPtr)
	return -2
}

func TestRegisterHostModule(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	fns := &recordingFunctions{}
	require.NoError(t, RegisterHostModule(ctx, rt, fns))

	i32 := testutil.I32
	b := testutil.NewModuleBuilder()
	logFn := b.Import(entities.HostModule, entities.ImportLog, []byte{i32, i32}, nil)
	invokeFn := b.Import(entities.HostModule, entities.ImportInvoke, []byte{i32, i32, i32, i32, i32}, []byte{i32})
	canonFn := b.Import(entities.HostModule, entities.ImportCanonicalizeRef, []byte{i32, i32, i32}, []byte{i32})
	refFn := b.Import(entities.HostModule, entities.ImportInvokeRefFunc, []byte{i32, i32, i32, i32}, []byte{i32})
	b.Memory(1)
	b.Func("log", nil, nil, testutil.I32Const(1), testutil.I32Const(2), testutil.Call(logFn))
	b.Func("invoke", nil, []byte{i32},
		testutil.I32Const(3), testutil.I32Const(-1), testutil.I32Const(5), testutil.I32Const(6), testutil.I32Const(7),
		testutil.Call(invokeFn))
	b.Func("canonicalize", nil, []byte{i32},
		testutil.I32Const(8), testutil.I32Const(9), testutil.I32Const(10), testutil.Call(canonFn))
	b.Func("ref", nil, []byte{i32},
		testutil.I32Const(11), testutil.I32Const(12), testutil.I32Const(13), testutil.I32Const(14), testutil.Call(refFn))

	mod, err := rt.InstantiateWithConfig(ctx, b.Build(), wazero.NewModuleConfig().WithName("guest"))
	require.NoError(t, err)

	call := func(name string) []uint64 {
		t.Helper()
		res, err := mod.ExportedFunction(name).Call(ctx)
		require.NoError(t, err)
		return res
	}

	call("log")
	assert.Equal(t, int32(-5), api.DecodeI32(call("invoke")[0]))
	assert.Equal(t, int32(9), api.DecodeI32(call("canonicalize")[0]))
	assert.Equal(t, int32(-2), api.DecodeI32(call("ref")[0]))

	assert.Equal(t, []recordedCall{
		{name: "log", module: "guest", args: []uint32{1, 2}},
		{name: "invoke", module: "guest", args: []uint32{3, 0xFFFFFFFF, 5, 6, 7}},
		{name: "canonicalize_ref", module: "guest", args: []uint32{8, 9, 10}},
		{name: "invoke_ref_func", module: "guest", args: []uint32{11, 12, 13, 14}},
	}, fns.calls)
}

func TestRegisterHostModule_CustomHandler(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	var traced []uint32
	err := RegisterHostModule(ctx, rt, &recordingFunctions{},
		WithModuleName("env"),
		WithCustomHandler(CustomHandler{
			Name: "trace",
			Handler: api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
				traced = append(traced, api.DecodeU32(stack[0]))
			}),
			ParamTypes: []api.ValueType{api.ValueTypeI32},
		}),
	)
	require.NoError(t, err)

	b := testutil.NewModuleBuilder()
	trace := b.Import("env", "trace", []byte{testutil.I32}, nil)
	b.Func("run", nil, nil, testutil.I32Const(42), testutil.Call(trace))

	mod, err := rt.Instantiate(ctx, b.Build())
	require.NoError(t, err)
	_, err = mod.ExportedFunction("run").Call(ctx)
	require.NoError(t, err)

	assert.Equal(t, []uint32{42}, traced)
}

func TestResourceName(t *testing.T) {
	ctx := context.Background()

	_, ok := ResourceNameFromContext(ctx)
	assert.False(t, ok)
	assert.Equal(t, "", GetResourceName(ctx, nil))

	ctx = WithResourceName(ctx, "adder")
	name, ok := ResourceNameFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "adder", name)
	assert.Equal(t, "adder", GetResourceName(ctx, nil))
}
