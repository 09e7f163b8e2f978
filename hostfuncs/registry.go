package hostfuncs

import (
	"context"
	"fmt"
	"slices"
)

// Registry is an immutable collection of natives keyed by hash.
// Once created via NewRegistry, handlers cannot be added or removed.
// This keeps lookups lock-free while guests are running.
type Registry struct {
	handlers   map[uint64]Handler
	hashes     []uint64 // sorted for consistent iteration
	middleware []Middleware
}

// registryBuilder accumulates configuration during registry construction.
type registryBuilder struct {
	handlers   map[uint64]Handler
	middleware []Middleware
	errors     []error
}

// RegistryOption is a functional option for configuring a Registry.
type RegistryOption func(*registryBuilder)

// NewRegistry creates an immutable Registry with the given options.
// Returns an error if any hash is registered twice.
//
// Example usage:
//
//	registry, err := NewRegistry(
//	    WithMiddleware(PanicRecoveryMiddleware()),
//	    WithBundle(CoreBundle(router, "adder")),
//	    WithHandler(0x1234ABCD, spawnVehicle),
//	)
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	b := &registryBuilder{
		handlers: make(map[uint64]Handler),
	}

	for _, opt := range opts {
		opt(b)
	}

	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}

	hashes := make([]uint64, 0, len(b.handlers))
	for hash := range b.handlers {
		hashes = append(hashes, hash)
	}
	slices.Sort(hashes)

	// First middleware wraps outermost.
	wrapped := make(map[uint64]Handler, len(b.handlers))
	for hash, handler := range b.handlers {
		h := handler
		for i := len(b.middleware) - 1; i >= 0; i-- {
			h = b.middleware[i](h)
		}
		wrapped[hash] = h
	}

	return &Registry{
		handlers:   wrapped,
		hashes:     hashes,
		middleware: b.middleware,
	}, nil
}

// InvokeNative dispatches a call by its identifier. An unknown hash leaves
// the frame without results, which the runtime reports to the guest as
// NO_RETURN_VALUE when one was expected.
func (r *Registry) InvokeNative(ctx context.Context, frame *CallFrame) error {
	handler, ok := r.handlers[frame.Identifier]
	if !ok {
		return nil
	}
	return handler(HostContextFrom(ctx, frame.Identifier), frame)
}

// Has returns true if a handler for hash is registered.
func (r *Registry) Has(hash uint64) bool {
	_, ok := r.handlers[hash]
	return ok
}

// Hashes returns the sorted list of registered hashes.
func (r *Registry) Hashes() []uint64 {
	return slices.Clone(r.hashes)
}

// addHandler registers a handler for hash.
func (b *registryBuilder) addHandler(hash uint64, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("handler for native 0x%X is nil", hash)
	}
	if _, exists := b.handlers[hash]; exists {
		return fmt.Errorf("duplicate handler for native 0x%X", hash)
	}
	b.handlers[hash] = handler
	return nil
}

// WithHandler registers a Handler for hash.
func WithHandler(hash uint64, handler Handler) RegistryOption {
	return func(b *registryBuilder) {
		if err := b.addHandler(hash, handler); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}

// WithTypedHandler registers a typed msgpack native.
// The handler will be wrapped with NewMsgPackHandler.
func WithTypedHandler[Req any, Resp any](hash uint64, fn HostFunc[Req, Resp]) RegistryOption {
	return WithHandler(hash, NewMsgPackHandler(fn))
}

// WithMiddleware adds middleware to the registry.
// Middleware executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}
