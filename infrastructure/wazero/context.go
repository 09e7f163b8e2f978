package wazero

import (
	"context"

	"github.com/tetratelabs/wazero/api"
)

// contextKey is a private type for context keys.
type contextKey struct {
	name string
}

var resourceNameKey = &contextKey{name: "resource_name"}

// WithResourceName adds the resource name to the context.
// Host functions use it to attribute guest output.
func WithResourceName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, resourceNameKey, name)
}

// ResourceNameFromContext retrieves the resource name from the context.
func ResourceNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(resourceNameKey).(string)
	return name, ok
}

// GetResourceName extracts the resource name from context, falling back to
// the module name.
func GetResourceName(ctx context.Context, mod api.Module) string {
	if name, ok := ResourceNameFromContext(ctx); ok {
		return name
	}
	if mod == nil {
		return ""
	}
	return mod.Name()
}
