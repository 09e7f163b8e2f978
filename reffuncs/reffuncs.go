// Package reffuncs implements callback handles ("ref functions") that guest
// code hands to the host.
//
// Registering a closure assigns it the next index and asks the host once for
// the canonical name it will use to call back. The table entry lives while
// the host holds it: the host duplicates a handle when it retains a copy and
// removes it when it lets go. The count starts at zero and does not include
// the reference the handle was created with, so an entry is erased when
// removals outnumber duplicates. Indices are never reused.
package reffuncs

import (
	"bytes"
	"math"
	"sync"

	"github.com/cfxwasm/sdk/invoker"
	"github.com/cfxwasm/sdk/wireformat"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const (
	// canonicalBufferSize is the first buffer offered to the host for a name.
	canonicalBufferSize = 1024
	// maxCanonicalNameSize caps the retry buffer a host may ask for.
	maxCanonicalNameSize = 64 << 10
)

// RawFunc receives msgpack-encoded arguments and returns a msgpack-encoded
// result. ok is false when there is nothing to return.
type RawFunc func(args []byte) (result []byte, ok bool)

type entry struct {
	fn   RawFunc
	refs int32
}

// Registry is the guest's callback table.
type Registry struct {
	logger  *zap.Logger
	next    uint32
	entries map[uint32]*entry
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for callback panics.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// NewRegistry creates an empty table.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		logger:  zap.NewNop(),
		entries: make(map[uint32]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the table behind the guest's ref exports.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Register stores fn under a fresh index and resolves its canonical name.
func (r *Registry) Register(fn RawFunc) *RefFunction {
	r.next++
	idx := r.next
	name := canonicalize(idx)
	r.entries[idx] = &entry{fn: fn}
	return &RefFunction{index: idx, name: name}
}

// canonicalize asks the host for idx's name. A negative answer is the size
// the host needs; the request is retried once with a buffer that large,
// unless the size exceeds maxCanonicalNameSize.
func canonicalize(idx uint32) string {
	host := invoker.CurrentHost()

	buf := make([]byte, canonicalBufferSize)
	n := host.CanonicalizeRef(idx, buf)
	if n < 0 {
		if n == math.MinInt32 || -n > maxCanonicalNameSize {
			return ""
		}
		buf = make([]byte, -n)
		n = host.CanonicalizeRef(idx, buf)
	}
	if n <= 0 || int(n) > len(buf) {
		return ""
	}

	name := buf[:n]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return string(name)
}

// Call invokes the closure registered under idx. It reports false when the
// entry does not exist or the closure produced no result.
func (r *Registry) Call(idx uint32, args []byte) (result []byte, ok bool) {
	e, found := r.entries[idx]
	if !found {
		return nil, false
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("ref function panicked",
				zap.Uint32("index", idx),
				zap.Any("panic", rec))
			result, ok = nil, false
		}
	}()
	return e.fn(args)
}

// Duplicate records that the host took another reference to idx.
func (r *Registry) Duplicate(idx uint32) uint32 {
	if e, ok := r.entries[idx]; ok {
		e.refs++
	}
	return idx
}

// Remove drops one reference to idx, erasing the entry once the count goes
// below zero. Erasing at zero would free a handle the host still holds
// after one Duplicate and one Remove; keep the strict comparison.
func (r *Registry) Remove(idx uint32) {
	e, ok := r.entries[idx]
	if !ok {
		return
	}
	e.refs--
	if e.refs < 0 {
		delete(r.entries, idx)
	}
}

// Refs returns the reference count of idx.
func (r *Registry) Refs(idx uint32) (int32, bool) {
	e, ok := r.entries[idx]
	if !ok {
		return 0, false
	}
	return e.refs, true
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// RefFunction is a registered callback handle. It encodes as the msgpack
// callback extension, so it can be embedded in event payloads directly.
type RefFunction struct {
	index uint32
	name  string
}

var _ msgpack.CustomEncoder = (*RefFunction)(nil)

// Index returns the table index.
func (f *RefFunction) Index() uint32 {
	return f.index
}

// Name returns the canonical name the host resolved.
func (f *RefFunction) Name() string {
	return f.name
}

// Extern returns the wire form of the handle.
func (f *RefFunction) Extern() wireformat.ExternRef {
	return wireformat.ExternRef{Name: f.name}
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (f *RefFunction) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(f.Extern())
}

// New registers a typed closure. Arguments are decoded from msgpack (arrays
// decode positionally into structs) and the result is encoded by field name.
func New[In, Out any](r *Registry, fn func(In) Out) *RefFunction {
	return r.Register(func(args []byte) ([]byte, bool) {
		var in In
		if err := wireformat.Unmarshal(args, &in); err != nil {
			r.logger.Debug("ref function arguments not decodable", zap.Error(err))
			return nil, false
		}
		data, err := wireformat.Marshal(fn(in))
		if err != nil {
			r.logger.Debug("ref function result not encodable", zap.Error(err))
			return nil, false
		}
		return data, true
	})
}

// InvokeExtern calls a host-held callback reference with positional
// arguments. ok is false when the host returned no value or the value did
// not decode as Out.
func InvokeExtern[Out any](ref wireformat.ExternRef, args ...any) (out Out, ok bool) {
	data, err := wireformat.Args(args...)
	if err != nil {
		return out, false
	}
	result, ok := invoker.InvokeRefFunc(ref.Name, data)
	if !ok {
		return out, false
	}
	if len(result) == 0 {
		return out, true
	}
	if err := wireformat.Unmarshal(result, &out); err != nil {
		return out, false
	}
	return out, true
}
