package wazero

import (
	"context"

	"github.com/cfxwasm/sdk/domain/entities"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// HostFunctions implements the imports a guest links from the host module.
// Pointers and lengths are guest addresses in the calling module's memory.
type HostFunctions interface {
	Log(ctx context.Context, mod api.Module, ptr, length uint32)
	Invoke(ctx context.Context, mod api.Module, hashHi, hashLo, argsPtr, argsLen, retvalPtr uint32) int32
	CanonicalizeRef(ctx context.Context, mod api.Module, idx, bufPtr, bufSize uint32) int32
	InvokeRefFunc(ctx context.Context, mod api.Module, namePtr, argsPtr, argsLen, retvalPtr uint32) int32
}

// AdapterConfig holds configuration for the wazero adapter.
type AdapterConfig struct {
	// ModuleName is the host module name (default: "host").
	ModuleName string

	// CustomHandlers adds imports beyond the core four, for embedders that
	// extend the ABI.
	CustomHandlers []CustomHandler
}

// CustomHandler represents an additional host import.
type CustomHandler struct {
	// Name is the exported function name.
	Name string

	// Handler is the wazero GoModuleFunc implementation.
	Handler api.GoModuleFunc

	// ParamTypes are the WASM parameter types.
	ParamTypes []api.ValueType

	// ResultTypes are the WASM result types.
	ResultTypes []api.ValueType
}

// AdapterOption configures the adapter.
type AdapterOption func(*AdapterConfig)

// WithModuleName sets the host module name (default: "host").
func WithModuleName(name string) AdapterOption {
	return func(c *AdapterConfig) {
		c.ModuleName = name
	}
}

// WithCustomHandler adds a custom wazero handler.
func WithCustomHandler(h CustomHandler) AdapterOption {
	return func(c *AdapterConfig) {
		c.CustomHandlers = append(c.CustomHandlers, h)
	}
}

func defaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		ModuleName: entities.HostModule,
	}
}

var (
	i32 = api.ValueTypeI32

	logParams             = []api.ValueType{i32, i32}
	invokeParams          = []api.ValueType{i32, i32, i32, i32, i32}
	canonicalizeRefParams = []api.ValueType{i32, i32, i32}
	invokeRefFuncParams   = []api.ValueType{i32, i32, i32, i32}
	statusResult          = []api.ValueType{i32}
)

// RegisterHostModule instantiates the host module on runtime, exporting
// log, invoke, canonicalize_ref and invoke_ref_func backed by fns.
//
// Example:
//
//	rt := wazero.NewRuntime(ctx)
//	err := wazeroadapter.RegisterHostModule(ctx, rt, hostFns)
func RegisterHostModule(ctx context.Context, runtime wazero.Runtime, fns HostFunctions, opts ...AdapterOption) error {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	builder := runtime.NewHostModuleBuilder(cfg.ModuleName)

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			fns.Log(ctx, mod, api.DecodeU32(stack[0]), api.DecodeU32(stack[1]))
		}), logParams, nil).
		WithParameterNames("ptr", "len").
		Export(entities.ImportLog)

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			status := fns.Invoke(ctx, mod,
				api.DecodeU32(stack[0]), api.DecodeU32(stack[1]),
				api.DecodeU32(stack[2]), api.DecodeU32(stack[3]),
				api.DecodeU32(stack[4]))
			stack[0] = api.EncodeI32(status)
		}), invokeParams, statusResult).
		WithParameterNames("hash_hi", "hash_lo", "args", "args_len", "retval").
		Export(entities.ImportInvoke)

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			status := fns.CanonicalizeRef(ctx, mod,
				api.DecodeU32(stack[0]), api.DecodeU32(stack[1]), api.DecodeU32(stack[2]))
			stack[0] = api.EncodeI32(status)
		}), canonicalizeRefParams, statusResult).
		WithParameterNames("idx", "buf", "size").
		Export(entities.ImportCanonicalizeRef)

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			status := fns.InvokeRefFunc(ctx, mod,
				api.DecodeU32(stack[0]), api.DecodeU32(stack[1]),
				api.DecodeU32(stack[2]), api.DecodeU32(stack[3]))
			stack[0] = api.EncodeI32(status)
		}), invokeRefFuncParams, statusResult).
		WithParameterNames("name", "args", "args_len", "retval").
		Export(entities.ImportInvokeRefFunc)

	for _, ch := range cfg.CustomHandlers {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(ch.Handler, ch.ParamTypes, ch.ResultTypes).
			Export(ch.Name)
	}

	_, err := builder.Instantiate(ctx)
	return err
}
