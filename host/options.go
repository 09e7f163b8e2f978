package host

import (
	"context"
	"io"

	"github.com/cfxwasm/sdk/application/config"
	"github.com/cfxwasm/sdk/hostfuncs"
	"go.uber.org/zap"
)

// DefaultMaxRequestSize bounds any single region read out of guest memory
// while decoding a call (1MB).
const DefaultMaxRequestSize = 1 << 20

// DefaultResourceName names a runtime that was given no resource name.
const DefaultResourceName = "script"

// NativeInvoker executes natives on behalf of the guest.
// *hostfuncs.Registry implements it.
type NativeInvoker interface {
	InvokeNative(ctx context.Context, frame *hostfuncs.CallFrame) error
}

// NativeInvokerFunc adapts a function to NativeInvoker.
type NativeInvokerFunc func(ctx context.Context, frame *hostfuncs.CallFrame) error

// InvokeNative implements NativeInvoker.
func (f NativeInvokerFunc) InvokeNative(ctx context.Context, frame *hostfuncs.CallFrame) error {
	return f(ctx, frame)
}

// RefCanonicalizer names a guest ref index for use outside the module.
type RefCanonicalizer func(ctx context.Context, idx uint32) (string, error)

// RefInvoker calls a callback reference held by the guest, by name, with
// msgpack arguments. A nil result means no return value.
type RefInvoker func(ctx context.Context, name string, args []byte) ([]byte, error)

type runtimeConfig struct {
	logger           *zap.Logger
	logFunc          func(string)
	natives          NativeInvoker
	canonicalize     RefCanonicalizer
	refInvoker       RefInvoker
	stdout           io.Writer
	stderr           io.Writer
	metrics          *Metrics
	resourceName     string
	memoryLimitPages uint32
	maxRequestSize   uint32
}

func defaultRuntimeConfig() runtimeConfig {
	return runtimeConfig{
		logger:         zap.NewNop(),
		resourceName:   DefaultResourceName,
		maxRequestSize: DefaultMaxRequestSize,
		stdout:         io.Discard,
		stderr:         io.Discard,
	}
}

// Option configures a Runtime.
type Option func(*runtimeConfig)

// WithLogger sets the host logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *runtimeConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithLogFunc routes guest log lines to fn instead of the host logger.
func WithLogFunc(fn func(string)) Option {
	return func(c *runtimeConfig) {
		c.logFunc = fn
	}
}

// WithNativeInvoker sets the native dispatcher. The default is an empty
// registry, for which every native yields no result.
func WithNativeInvoker(n NativeInvoker) Option {
	return func(c *runtimeConfig) {
		c.natives = n
	}
}

// WithRefCanonicalizer overrides the "<resource>:<index>" ref naming.
func WithRefCanonicalizer(fn RefCanonicalizer) Option {
	return func(c *runtimeConfig) {
		c.canonicalize = fn
	}
}

// WithRefInvoker sets how the guest's calls to external refs are served.
// Without one they yield no result.
func WithRefInvoker(fn RefInvoker) Option {
	return func(c *runtimeConfig) {
		c.refInvoker = fn
	}
}

// WithResourceName names the loaded module.
func WithResourceName(name string) Option {
	return func(c *runtimeConfig) {
		c.resourceName = name
	}
}

// WithMemoryLimitPages caps guest linear memory in 64 KiB pages.
func WithMemoryLimitPages(pages uint32) Option {
	return func(c *runtimeConfig) {
		c.memoryLimitPages = pages
	}
}

// WithMaxRequestSize bounds regions read from guest memory per argument.
func WithMaxRequestSize(n uint32) Option {
	return func(c *runtimeConfig) {
		c.maxRequestSize = n
	}
}

// WithStdout sets the console output of server modules.
func WithStdout(w io.Writer) Option {
	return func(c *runtimeConfig) {
		c.stdout = w
	}
}

// WithStderr sets the console error output of server modules.
func WithStderr(w io.Writer) Option {
	return func(c *runtimeConfig) {
		c.stderr = w
	}
}

// WithMetrics enables metrics collection.
func WithMetrics(m *Metrics) Option {
	return func(c *runtimeConfig) {
		c.metrics = m
	}
}

// WithConfig applies a validated configuration.
func WithConfig(cfg config.Config) Option {
	return func(c *runtimeConfig) {
		c.resourceName = cfg.ResourceName
		c.memoryLimitPages = cfg.MemoryLimitPages
		c.maxRequestSize = cfg.MaxRequestSize
	}
}
