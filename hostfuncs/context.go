package hostfuncs

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// HostContext wraps a standard context.Context with native-specific helpers.
// It provides access to the invoked native and allows middleware to store
// request-scoped values without polluting the standard context.
type HostContext interface {
	context.Context

	// Native returns the hash of the native being invoked.
	Native() uint64

	// SetValue stores a request-scoped value. Unlike context.WithValue,
	// this mutates the existing HostContext.
	SetValue(key, value any)

	// GetValue retrieves a request-scoped value set by SetValue.
	GetValue(key any) (value any, ok bool)
}

type hostContext struct {
	context.Context
	values map[any]any
	native uint64
}

// NewHostContext creates a new HostContext wrapping the given context.
func NewHostContext(ctx context.Context, native uint64) HostContext {
	return &hostContext{
		Context: ctx,
		native:  native,
		values:  make(map[any]any),
	}
}

func (c *hostContext) Native() uint64 {
	return c.native
}

func (c *hostContext) SetValue(key, value any) {
	c.values[key] = value
}

func (c *hostContext) GetValue(key any) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// HostContextFrom extracts a HostContext from a context.Context.
// If the context is already a HostContext for the same native it is returned
// directly. Otherwise a new HostContext is created wrapping ctx.
func HostContextFrom(ctx context.Context, native uint64) HostContext {
	if hc, ok := ctx.(HostContext); ok && hc.Native() == native {
		return hc
	}
	return NewHostContext(ctx, native)
}

type annotationsKey struct{}

// Annotate attaches key and value to the native call running on ctx.
// LoggingMiddleware reports them with the call's outcome. Outside a native
// call Annotate does nothing.
func Annotate(ctx context.Context, key string, value any) {
	hc, ok := ctx.(HostContext)
	if !ok {
		return
	}
	hc.SetValue(annotationsKey{}, append(annotations(hc), zap.Any(key, value)))
}

func annotations(ctx context.Context) []zap.Field {
	hc, ok := ctx.(HostContext)
	if !ok {
		return nil
	}
	v, _ := hc.GetValue(annotationsKey{})
	fields, _ := v.([]zap.Field)
	return fields
}

func formatHash(hash uint64) string {
	return fmt.Sprintf("0x%X", hash)
}
