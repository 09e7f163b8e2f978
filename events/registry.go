// Package events is the guest-side event registry.
//
// Each event name maps to exactly one subscription. Subscribing again
// replaces the previous subscription, whatever its scope; the host is told
// about a name only the first time it is registered. There is no
// unsubscribe: subscriptions live as long as the module.
//
// Inbound events are filtered by scope (see entities.ResolveSource), decoded
// from msgpack and handed to the subscriber. Events that fail to decode are
// dropped. After every delivery the registry runs its task pool until
// stalled so that tasks woken by the event make progress before control
// returns to the host.
package events

import (
	"bytes"
	"sync"

	"github.com/cfxwasm/sdk/domain/entities"
	"github.com/cfxwasm/sdk/invoker"
	"github.com/cfxwasm/sdk/scheduler"
	"go.uber.org/zap"
)

type subscription struct {
	scope   entities.EventScope
	deliver func(entities.RawEvent)
}

// Registry maps event names to their single subscription.
type Registry struct {
	pool   *scheduler.Pool
	logger *zap.Logger

	subs       map[string]subscription
	registered map[string]struct{}
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for dropped events.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// NewRegistry creates a registry whose deliveries drive pool.
func NewRegistry(pool *scheduler.Pool, opts ...Option) *Registry {
	r := &Registry{
		pool:       pool,
		logger:     zap.NewNop(),
		subs:       make(map[string]subscription),
		registered: make(map[string]struct{}),
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

// Default returns the registry fed by the guest's event export.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(scheduler.Default())
	})
	return defaultRegistry
}

// Pool returns the task pool deliveries run.
func (r *Registry) Pool() *scheduler.Pool {
	return r.pool
}

// Scope reports the scope of the active subscription for name.
func (r *Registry) Scope(name string) (entities.EventScope, bool) {
	sub, ok := r.subs[name]
	return sub.scope, ok
}

func (r *Registry) subscribe(name string, scope entities.EventScope, deliver func(entities.RawEvent)) {
	r.subs[name] = subscription{scope: scope, deliver: deliver}

	if _, ok := r.registered[name]; ok {
		return
	}
	r.registered[name] = struct{}{}
	if err := invoker.InvokeVoid(entities.NativeRegisterResourceAsEventHandler, invoker.String(name)); err != nil {
		r.logger.Warn("failed to register event handler", zap.String("event", name), zap.Error(err))
	}
}

// Dispatch delivers one inbound event. payload is copied, so callers may
// reuse or free it once Dispatch returns. Ready tasks run before it returns
// whether or not the event was delivered.
func (r *Registry) Dispatch(name string, payload []byte, source string) {
	defer r.pool.RunUntilStalled()

	sub, ok := r.subs[name]
	if !ok {
		r.logger.Debug("dropping event without subscription", zap.String("event", name))
		return
	}

	from, ok := entities.ResolveSource(source, sub.scope)
	if !ok {
		r.logger.Debug("dropping event filtered by scope",
			zap.String("event", name),
			zap.String("source", source),
			zap.Stringer("scope", sub.scope))
		return
	}

	sub.deliver(entities.RawEvent{Source: from, Payload: bytes.Clone(payload)})
}
