package hostfuncs

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/cfxwasm/sdk/domain/entities"
	"go.uber.org/zap"
)

// Target is a loaded module the Router can deliver events and ref calls to.
// *host.Runtime implements it.
type Target interface {
	TriggerEvent(ctx context.Context, name string, payload []byte, source string) error
	CallRef(ctx context.Context, idx uint32, args []byte) ([]byte, error)
}

// Router moves events between modules hosted in the same process.
//
// Emits are queued and delivered by Flush, never from inside the native call
// that produced them, so a module is not re-entered while it is running.
// Subscriptions requested while delivering are likewise applied on the next
// Flush.
type Router struct {
	bus    EventBus.Bus
	logger *zap.Logger

	mu         sync.Mutex
	members    map[string]*member
	pending    []routedEvent
	subscribes []subscription
}

type member struct {
	target Target
	names  map[string]struct{}
	server bool
}

type subscription struct {
	resource string
	name     string
}

type routedEvent struct {
	name    string
	source  string
	target  string
	payload []byte
	server  bool
}

type delivery struct {
	ctx context.Context
	ev  routedEvent
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithRouterLogger sets the router's logger.
func WithRouterLogger(l *zap.Logger) RouterOption {
	return func(r *Router) {
		r.logger = l
	}
}

// NewRouter creates an empty Router.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		bus:     EventBus.New(),
		logger:  zap.NewNop(),
		members: make(map[string]*member),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attach makes target reachable under resource. server selects which
// network emits it receives.
func (r *Router) Attach(resource string, target Target, server bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.members[resource]; ok {
		m.target = target
		m.server = server
		return
	}
	r.members[resource] = &member{target: target, server: server, names: make(map[string]struct{})}
}

// Detach removes resource. Its bus subscriptions stay but deliver nothing.
func (r *Router) Detach(resource string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, resource)
}

// Register records that resource handles events called name.
func (r *Router) Register(resource, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[resource]
	if !ok {
		r.logger.Warn("register from unattached resource", zap.String("resource", resource), zap.String("event", name))
		return
	}
	if _, seen := m.names[name]; seen {
		return
	}
	m.names[name] = struct{}{}
	r.subscribes = append(r.subscribes, subscription{resource: resource, name: name})
}

// Emit queues a local event from resource to every module on the same side.
func (r *Router) Emit(resource, name string, payload []byte) error {
	return r.queue(resource, func(m *member) routedEvent {
		return routedEvent{name: name, payload: payload, server: m.server}
	})
}

// EmitToClients queues a network event from a server resource to client
// modules. target names one client resource; "" or "-1" means all.
func (r *Router) EmitToClients(resource, name, target string, payload []byte) error {
	if target == "-1" {
		target = ""
	}
	return r.queue(resource, func(*member) routedEvent {
		return routedEvent{
			name:    name,
			source:  entities.NetSourcePrefix + resource,
			target:  target,
			payload: payload,
		}
	})
}

// EmitToServer queues a network event from a client resource to server
// modules.
func (r *Router) EmitToServer(resource, name string, payload []byte) error {
	return r.queue(resource, func(*member) routedEvent {
		return routedEvent{
			name:    name,
			source:  entities.NetSourcePrefix + resource,
			payload: payload,
			server:  true,
		}
	})
}

func (r *Router) queue(resource string, build func(*member) routedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[resource]
	if !ok {
		return fmt.Errorf("resource %q is not attached", resource)
	}
	r.pending = append(r.pending, build(m))
	return nil
}

// Pending returns the number of queued events.
func (r *Router) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Flush applies queued subscriptions and delivers the events queued so far.
// Events emitted during delivery wait for the next Flush. It returns the
// number of events published.
func (r *Router) Flush(ctx context.Context) int {
	r.mu.Lock()
	subs := r.subscribes
	events := r.pending
	r.subscribes = nil
	r.pending = nil
	r.mu.Unlock()

	for _, s := range subs {
		resource := s.resource
		if err := r.bus.Subscribe(s.name, func(d delivery) {
			r.deliver(d.ctx, resource, d.ev)
		}); err != nil {
			r.logger.Warn("subscribe failed", zap.String("event", s.name), zap.Error(err))
		}
	}

	for _, ev := range events {
		if !r.bus.HasCallback(ev.name) {
			r.logger.Debug("event has no handlers", zap.String("event", ev.name))
			continue
		}
		r.bus.Publish(ev.name, delivery{ctx: ctx, ev: ev})
	}
	return len(events)
}

func (r *Router) deliver(ctx context.Context, resource string, ev routedEvent) {
	r.mu.Lock()
	m, ok := r.members[resource]
	r.mu.Unlock()

	if !ok || m.server != ev.server || (ev.target != "" && ev.target != resource) {
		return
	}
	if err := m.target.TriggerEvent(ctx, ev.name, ev.payload, ev.source); err != nil {
		r.logger.Warn("event delivery failed",
			zap.String("event", ev.name),
			zap.String("resource", resource),
			zap.Error(err),
		)
	}
}

// InvokeRef calls a ref function by its canonical "<resource>:<index>" name.
// It matches host.RefInvoker.
func (r *Router) InvokeRef(ctx context.Context, name string, args []byte) ([]byte, error) {
	resource, idx, err := ParseRefName(name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	m, ok := r.members[resource]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("resource %q is not attached", resource)
	}
	return m.target.CallRef(ctx, idx, args)
}

// RefName returns the canonical name of ref idx owned by resource.
func RefName(resource string, idx uint32) string {
	return resource + ":" + strconv.FormatUint(uint64(idx), 10)
}

// ParseRefName splits a canonical ref name.
func ParseRefName(name string) (string, uint32, error) {
	i := strings.LastIndexByte(name, ':')
	if i <= 0 {
		return "", 0, fmt.Errorf("malformed ref name %q", name)
	}
	idx, err := strconv.ParseUint(name[i+1:], 10, 32)
	if err != nil {
		return "", 0, fmt.Errorf("malformed ref name %q: %w", name, err)
	}
	return name[:i], uint32(idx), nil
}
