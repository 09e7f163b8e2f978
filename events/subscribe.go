package events

import (
	"context"

	"github.com/cfxwasm/sdk/domain/entities"
	"github.com/cfxwasm/sdk/scheduler"
	"github.com/cfxwasm/sdk/wireformat"
	"go.uber.org/zap"
)

// Event is a decoded event together with its logical sender. Source is empty
// for local events.
type Event[T any] struct {
	Source  string
	Payload T
}

// Stream is an unbounded queue of events consumed by a task.
type Stream[T any] struct {
	name   string
	queue  []Event[T]
	waiter *scheduler.Task
}

// RawStream yields undecoded payloads.
type RawStream = Stream[[]byte]

// Name returns the event name the stream is subscribed to.
func (s *Stream[T]) Name() string {
	return s.name
}

// Len returns the number of queued events.
func (s *Stream[T]) Len() int {
	return len(s.queue)
}

// TryNext pops a queued event without suspending.
func (s *Stream[T]) TryNext() (Event[T], bool) {
	if len(s.queue) == 0 {
		var zero Event[T]
		return zero, false
	}
	ev := s.queue[0]
	s.queue[0] = Event[T]{}
	s.queue = s.queue[1:]
	return ev, true
}

// Next suspends the calling task until an event arrives. Only one task may
// wait on a stream at a time.
func (s *Stream[T]) Next(ctx context.Context) (Event[T], error) {
	for {
		if ev, ok := s.TryNext(); ok {
			return ev, nil
		}
		s.waiter = scheduler.CurrentTask(ctx)
		err := scheduler.Park(ctx)
		s.waiter = nil
		if err != nil {
			var zero Event[T]
			return zero, err
		}
	}
}

func (s *Stream[T]) push(ev Event[T]) {
	s.queue = append(s.queue, ev)
	if s.waiter != nil {
		s.waiter.Wake()
	}
}

// SubscribeRaw subscribes name to a stream of undecoded payloads.
func SubscribeRaw(r *Registry, name string, scope entities.EventScope) *RawStream {
	s := &RawStream{name: name}
	r.subscribe(name, scope, func(ev entities.RawEvent) {
		s.push(Event[[]byte]{Source: ev.Source, Payload: ev.Payload})
	})
	return s
}

// Subscribe subscribes name to a stream of payloads decoded as T.
func Subscribe[T any](r *Registry, name string, scope entities.EventScope) *Stream[T] {
	s := &Stream[T]{name: name}
	r.subscribe(name, scope, func(ev entities.RawEvent) {
		payload, ok := decode[T](r, name, ev.Payload)
		if !ok {
			return
		}
		s.push(Event[T]{Source: ev.Source, Payload: payload})
	})
	return s
}

// SetEventHandlerClosure invokes fn synchronously for each event.
func SetEventHandlerClosure[T any](r *Registry, name string, fn func(Event[T]), scope entities.EventScope) {
	r.subscribe(name, scope, func(ev entities.RawEvent) {
		payload, ok := decode[T](r, name, ev.Payload)
		if !ok {
			return
		}
		fn(Event[T]{Source: ev.Source, Payload: payload})
	})
}

// Handler handles events in their own task.
type Handler[T any] interface {
	Handle(ctx context.Context, ev Event[T])
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[T any] func(ctx context.Context, ev Event[T])

// Handle calls f.
func (f HandlerFunc[T]) Handle(ctx context.Context, ev Event[T]) {
	f(ctx, ev)
}

// SetEventHandler spawns a detached task running h for each event. The task
// gets its first poll before Dispatch returns.
func SetEventHandler[T any](r *Registry, name string, h Handler[T], scope entities.EventScope) {
	SetEventHandlerClosure(r, name, func(ev Event[T]) {
		r.pool.Spawn(func(ctx context.Context) {
			h.Handle(ctx, ev)
		})
	}, scope)
}

func decode[T any](r *Registry, name string, data []byte) (T, bool) {
	var v T
	if err := wireformat.Unmarshal(data, &v); err != nil {
		r.logger.Debug("dropping undecodable event", zap.String("event", name), zap.Error(err))
		return v, false
	}
	return v, true
}
