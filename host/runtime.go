package host

import (
	"bytes"
	"context"
	"crypto/rand"
	stdErrors "errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cfxwasm/sdk/domain/entities"
	"github.com/cfxwasm/sdk/domain/errors"
	"github.com/cfxwasm/sdk/hostfuncs"
	wazeroadapter "github.com/cfxwasm/sdk/infrastructure/wazero"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"
)

// Runtime hosts one guest module.
//
// Entry points are serialized. A native handler or ref invoker running
// inside an entry point may call back into the same Runtime with the context
// it was given; such nested calls do not wait for the lock.
type Runtime struct {
	mu      sync.Mutex
	cfg     runtimeConfig
	runtime wazero.Runtime
	state   atomic.Pointer[moduleState]
	logger  *zap.Logger
}

type moduleState struct {
	module  api.Module
	exports guestExports
}

type guestExports struct {
	alloc        api.Function
	free         api.Function
	onEvent      api.Function
	onTick       api.Function
	callRef      api.Function
	duplicateRef api.Function
	removeRef    api.Function
}

const vI32 = api.ValueTypeI32

// exportSignatures lists the parameter and result types each entry point
// must have. An export with any other signature is treated as absent.
var exportSignatures = map[string][2][]api.ValueType{
	entities.ExportAlloc:        {{vI32, vI32}, {vI32}},
	entities.ExportFree:         {{vI32, vI32, vI32}, nil},
	entities.ExportOnEvent:      {{vI32, vI32, vI32, vI32}, nil},
	entities.ExportOnTick:       {nil, nil},
	entities.ExportCallRef:      {{vI32, vI32, vI32}, {vI32}},
	entities.ExportDuplicateRef: {{vI32}, {vI32}},
	entities.ExportRemoveRef:    {{vI32}, nil},
}

func (r *Runtime) resolveExports(mod api.Module) guestExports {
	lookup := func(name string) api.Function {
		fn := mod.ExportedFunction(name)
		if fn == nil {
			return nil
		}
		want := exportSignatures[name]
		def := fn.Definition()
		if !slices.Equal(def.ParamTypes(), want[0]) || !slices.Equal(def.ResultTypes(), want[1]) {
			r.logger.Warn("ignoring export with unexpected signature",
				zap.String("export", name),
				zap.Strings("params", typeNames(def.ParamTypes())),
				zap.Strings("results", typeNames(def.ResultTypes())),
			)
			return nil
		}
		return fn
	}
	return guestExports{
		alloc:        lookup(entities.ExportAlloc),
		free:         lookup(entities.ExportFree),
		onEvent:      lookup(entities.ExportOnEvent),
		onTick:       lookup(entities.ExportOnTick),
		callRef:      lookup(entities.ExportCallRef),
		duplicateRef: lookup(entities.ExportDuplicateRef),
		removeRef:    lookup(entities.ExportRemoveRef),
	}
}

func typeNames(types []api.ValueType) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = api.ValueTypeName(t)
	}
	return names
}

// NewRuntime creates a runtime with WASI and the host module linked, ready
// for LoadModule.
func NewRuntime(ctx context.Context, opts ...Option) (*Runtime, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}

	rc := wazero.NewRuntimeConfig()
	if cfg.memoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.memoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, rc)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}

	r := &Runtime{
		cfg:     cfg,
		runtime: rt,
		logger:  cfg.logger.With(zap.String("resource", cfg.resourceName)),
	}
	if err := wazeroadapter.RegisterHostModule(ctx, rt, &hostFunctions{r: r}); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}
	return r, nil
}

func buildConfig(opts []Option) (runtimeConfig, error) {
	cfg := defaultRuntimeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.natives == nil {
		reg, err := hostfuncs.NewRegistry()
		if err != nil {
			return cfg, fmt.Errorf("failed to create default registry: %w", err)
		}
		cfg.natives = reg
	}
	if cfg.canonicalize == nil {
		resource := cfg.resourceName
		cfg.canonicalize = func(_ context.Context, idx uint32) (string, error) {
			return hostfuncs.RefName(resource, idx), nil
		}
	}
	return cfg, nil
}

// ResourceName returns the name of the hosted resource.
func (r *Runtime) ResourceName() string {
	return r.cfg.resourceName
}

// Close releases the module and the wazero runtime.
func (r *Runtime) Close(ctx context.Context) error {
	ctx, release := r.acquire(ctx)
	defer release()

	r.state.Store(nil)
	return r.runtime.Close(ctx)
}

type activeFrame struct {
	runtime *Runtime
	parent  *activeFrame
}

type activeKey struct{}

// acquire serializes entry points. A context that already carries r came
// from inside one of r's entry points on this call stack, and the lock is
// already held.
func (r *Runtime) acquire(ctx context.Context) (context.Context, func()) {
	parent, _ := ctx.Value(activeKey{}).(*activeFrame)
	for f := parent; f != nil; f = f.parent {
		if f.runtime == r {
			return ctx, func() {}
		}
	}

	r.mu.Lock()
	ctx = context.WithValue(ctx, activeKey{}, &activeFrame{runtime: r, parent: parent})
	ctx = wazeroadapter.WithResourceName(ctx, r.cfg.resourceName)
	return ctx, r.mu.Unlock
}

func (r *Runtime) loaded() (*moduleState, error) {
	st := r.state.Load()
	if st == nil {
		return nil, errors.ErrModuleNotLoaded
	}
	return st, nil
}

// LoadModule compiles and instantiates wasm as this runtime's only module.
// Server modules get console output on the configured writers; client
// modules get none. The module's _initialize (or else _start) export runs
// before LoadModule returns.
func (r *Runtime) LoadModule(ctx context.Context, wasm []byte, isServer bool) error {
	ctx, release := r.acquire(ctx)
	defer release()

	if r.state.Load() != nil {
		return errors.ErrModuleLoaded
	}

	compiled, err := r.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return fmt.Errorf("failed to compile module: %w", err)
	}

	mc := wazero.NewModuleConfig().
		WithName(r.cfg.resourceName).
		WithStartFunctions().
		WithSysWalltime().
		WithSysNanotime().
		WithSysNanosleep().
		WithRandSource(rand.Reader)
	if isServer {
		mc = mc.WithStdout(r.cfg.stdout).WithStderr(r.cfg.stderr)
	}

	mod, err := r.runtime.InstantiateModule(ctx, compiled, mc)
	if err != nil {
		return fmt.Errorf("failed to instantiate module: %w", err)
	}
	if mod.Memory() == nil {
		_ = mod.Close(ctx)
		return fmt.Errorf("module %q does not export memory", r.cfg.resourceName)
	}

	r.state.Store(&moduleState{module: mod, exports: r.resolveExports(mod)})

	if err := r.start(ctx, mod); err != nil {
		r.state.Store(nil)
		_ = mod.Close(ctx)
		return err
	}

	r.logger.Info("module loaded",
		zap.Bool("server", isServer),
		zap.Uint64("memory_bytes", uint64(mod.Memory().Size())),
	)
	return nil
}

func (r *Runtime) start(ctx context.Context, mod api.Module) error {
	for _, name := range []string{"_initialize", "_start"} {
		fn := mod.ExportedFunction(name)
		if fn == nil {
			continue
		}
		_, err := fn.Call(ctx)
		var exitErr *sys.ExitError
		if stdErrors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
			err = nil
		}
		if err != nil {
			r.cfg.metrics.observeGuestError(r.cfg.resourceName, name)
			return &errors.GuestError{Export: name, Err: err}
		}
		return nil
	}
	return nil
}

func (r *Runtime) call(ctx context.Context, name string, fn api.Function, params ...uint64) ([]uint64, error) {
	res, err := fn.Call(ctx, params...)
	if err != nil {
		r.cfg.metrics.observeGuestError(r.cfg.resourceName, name)
		r.logger.Warn("guest call failed", zap.String("export", name), zap.Error(err))
		return nil, &errors.GuestError{Export: name, Err: err}
	}
	return res, nil
}

// Tick runs the guest scheduler once. Modules without a tick export ignore it.
func (r *Runtime) Tick(ctx context.Context) error {
	ctx, release := r.acquire(ctx)
	defer release()

	st, err := r.loaded()
	if err != nil {
		return err
	}
	if st.exports.onTick == nil {
		return nil
	}
	r.cfg.metrics.observeTick(r.cfg.resourceName)
	_, err = r.call(ctx, entities.ExportOnTick, st.exports.onTick)
	return err
}

// TriggerEvent delivers an event to the guest. Name, payload and source are
// copied into guest memory for the duration of the call.
func (r *Runtime) TriggerEvent(ctx context.Context, name string, payload []byte, source string) error {
	ctx, release := r.acquire(ctx)
	defer release()

	st, err := r.loaded()
	if err != nil {
		return err
	}
	if st.exports.onEvent == nil || st.exports.alloc == nil {
		r.logger.Debug("module takes no events", zap.String("event", name))
		return nil
	}

	regions := [][]byte{cstring(name), payload, cstring(source)}
	ptrs := make([]uint32, len(regions))
	defer func() {
		for i, p := range ptrs {
			r.freeGuest(ctx, st, p, len(regions[i]))
		}
	}()
	for i, b := range regions {
		if ptrs[i], err = r.writeGuest(ctx, st, b); err != nil {
			return err
		}
	}

	r.cfg.metrics.observeEvent(r.cfg.resourceName)
	_, err = r.call(ctx, entities.ExportOnEvent, st.exports.onEvent,
		api.EncodeU32(ptrs[0]), api.EncodeU32(ptrs[1]), api.EncodeU32(uint32(len(payload))), api.EncodeU32(ptrs[2]))
	return err
}

// CallRef invokes guest ref idx with msgpack args and returns a copy of its
// result. An empty result or a module without the export is ErrNoResult.
func (r *Runtime) CallRef(ctx context.Context, idx uint32, args []byte) ([]byte, error) {
	ctx, release := r.acquire(ctx)
	defer release()

	st, err := r.loaded()
	if err != nil {
		return nil, err
	}
	if st.exports.callRef == nil {
		return nil, errors.ErrNoResult
	}

	argsPtr, err := r.writeGuest(ctx, st, args)
	if err != nil {
		return nil, err
	}
	defer r.freeGuest(ctx, st, argsPtr, len(args))

	res, err := r.call(ctx, entities.ExportCallRef, st.exports.callRef,
		api.EncodeU32(idx), api.EncodeU32(argsPtr), api.EncodeU32(uint32(len(args))))
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, errors.ErrNoResult
	}
	mem := st.module.Memory()
	objPtr := api.DecodeU32(res[0])
	if objPtr == 0 {
		return nil, errors.ErrNoResult
	}
	raw, ok := mem.Read(objPtr, entities.ScrObjectSize)
	if !ok {
		return nil, &errors.GuestError{Export: entities.ExportCallRef, Err: fmt.Errorf("result record at 0x%X out of bounds", objPtr)}
	}
	obj := entities.ReadScrObject(raw)
	if obj.Length == 0 {
		return nil, errors.ErrNoResult
	}
	data, ok := mem.Read(uint32(obj.Data), uint32(obj.Length))
	if !ok || obj.Data > 0xFFFFFFFF || obj.Length > 0xFFFFFFFF {
		return nil, &errors.GuestError{Export: entities.ExportCallRef, Err: fmt.Errorf("result at 0x%X+%d out of bounds", obj.Data, obj.Length)}
	}
	return bytes.Clone(data), nil
}

// DuplicateRef adds a reference to guest ref idx and returns the index to
// use for it. Without the export idx is returned unchanged.
func (r *Runtime) DuplicateRef(ctx context.Context, idx uint32) (uint32, error) {
	ctx, release := r.acquire(ctx)
	defer release()

	st, err := r.loaded()
	if err != nil {
		return 0, err
	}
	if st.exports.duplicateRef == nil {
		return idx, nil
	}
	res, err := r.call(ctx, entities.ExportDuplicateRef, st.exports.duplicateRef, api.EncodeU32(idx))
	if err != nil {
		return 0, err
	}
	if len(res) == 0 {
		return idx, nil
	}
	return api.DecodeU32(res[0]), nil
}

// RemoveRef drops a reference to guest ref idx.
func (r *Runtime) RemoveRef(ctx context.Context, idx uint32) error {
	ctx, release := r.acquire(ctx)
	defer release()

	st, err := r.loaded()
	if err != nil {
		return err
	}
	if st.exports.removeRef == nil {
		return nil
	}
	_, err = r.call(ctx, entities.ExportRemoveRef, st.exports.removeRef, api.EncodeU32(idx))
	return err
}

// MemoryUsage returns the size of the guest's linear memory in bytes, or 0
// before a module is loaded.
func (r *Runtime) MemoryUsage() uint64 {
	st := r.state.Load()
	if st == nil {
		return 0
	}
	return uint64(st.module.Memory().Size())
}

// writeGuest copies b into a fresh guest allocation. Empty input needs no
// allocation and yields address 0.
func (r *Runtime) writeGuest(ctx context.Context, st *moduleState, b []byte) (uint32, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if st.exports.alloc == nil {
		return 0, &errors.GuestError{Export: entities.ExportAlloc, Err: errors.ErrNoSpace}
	}
	res, err := r.call(ctx, entities.ExportAlloc, st.exports.alloc, api.EncodeU32(uint32(len(b))), api.EncodeU32(1))
	if err != nil {
		return 0, err
	}
	if len(res) == 0 {
		return 0, &errors.GuestError{Export: entities.ExportAlloc, Err: errors.ErrNoSpace}
	}
	ptr := api.DecodeU32(res[0])
	if ptr == 0 {
		return 0, &errors.GuestError{Export: entities.ExportAlloc, Err: errors.ErrNoSpace}
	}
	if !st.module.Memory().Write(ptr, b) {
		return 0, &errors.GuestError{Export: entities.ExportAlloc, Err: fmt.Errorf("allocation at 0x%X out of bounds", ptr)}
	}
	return ptr, nil
}

func (r *Runtime) freeGuest(ctx context.Context, st *moduleState, ptr uint32, size int) {
	if ptr == 0 || st.exports.free == nil {
		return
	}
	_, _ = r.call(ctx, entities.ExportFree, st.exports.free, api.EncodeU32(ptr), api.EncodeU32(uint32(size)), api.EncodeU32(1))
}

func cstring(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}
