// Package scheduler runs the guest's cooperative tasks.
//
// Every task is backed by a goroutine, but control is handed back and forth
// in lock-step: the pool resumes one task and blocks until that task parks or
// finishes. At any moment exactly one goroutine touches pool state, which is
// what lets the event and callback registries go without locks.
//
// A pool never blocks its caller. Tick wakes the waiters of every elapsed
// deadline and then polls ready tasks until none can make progress.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cfxwasm/sdk/domain/errors"
	"github.com/google/btree"
	"go.uber.org/zap"
)

type taskKey struct{}

// Pool is a single-threaded cooperative task pool with a timer map.
type Pool struct {
	clock  clock.Clock
	logger *zap.Logger

	ready   []*Task
	tasks   map[*Task]struct{}
	timers  *btree.BTreeG[*timerEntry]
	current *Task
	polling bool
	nextID  uint64
}

// Option configures a Pool.
type Option func(*Pool)

// WithClock sets the clock deadlines are computed and compared against.
func WithClock(c clock.Clock) Option {
	return func(p *Pool) {
		p.clock = c
	}
}

// WithLogger sets the logger used for recovered task panics.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pool) {
		p.logger = l
	}
}

// NewPool creates an empty pool.
func NewPool(opts ...Option) *Pool {
	p := &Pool{
		clock:  clock.New(),
		logger: zap.NewNop(),
		tasks:  make(map[*Task]struct{}),
		timers: btree.NewG(16, func(a, b *timerEntry) bool {
			return a.deadline.Before(b.deadline)
		}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var (
	defaultPool *Pool
	defaultOnce sync.Once
)

// Default returns the process-wide pool driven by the guest's tick export.
func Default() *Pool {
	defaultOnce.Do(func() {
		defaultPool = NewPool()
	})
	return defaultPool
}

// Clock returns the pool's clock.
func (p *Pool) Clock() clock.Clock {
	return p.clock
}

// Spawn enqueues fn as a new task. It first runs on the next poll, never
// inside Spawn itself.
func (p *Pool) Spawn(fn func(ctx context.Context)) *Task {
	p.nextID++
	t := &Task{
		id:     p.nextID,
		pool:   p,
		fn:     fn,
		resume: make(chan struct{}),
		yield:  make(chan struct{}),
	}
	t.ctx, t.cancel = context.WithCancel(context.WithValue(context.Background(), taskKey{}, t))
	p.tasks[t] = struct{}{}
	p.enqueue(t)
	return t
}

// Tick wakes every waiter whose deadline is at or before now, in ascending
// deadline order, then runs until stalled.
func (p *Pool) Tick() {
	now := p.clock.Now()

	var due []*timerEntry
	p.timers.Ascend(func(e *timerEntry) bool {
		if e.deadline.After(now) {
			return false
		}
		due = append(due, e)
		return true
	})

	for _, e := range due {
		p.timers.Delete(e)
		for _, s := range e.sleepers {
			s.fired = true
			s.task.sleeping = nil
			s.task.Wake()
		}
	}

	p.RunUntilStalled()
}

// RunUntilStalled polls ready tasks until none is ready. Called from inside a
// task it returns immediately; the outer poll loop picks up whatever became
// ready.
func (p *Pool) RunUntilStalled() {
	if p.polling {
		return
	}
	p.polling = true
	defer func() { p.polling = false }()

	for len(p.ready) > 0 {
		t := p.ready[0]
		p.ready[0] = nil
		p.ready = p.ready[1:]
		p.poll(t)
	}
}

// Close drops every live task and lets them unwind.
func (p *Pool) Close() {
	for t := range p.tasks {
		t.Drop()
	}
	p.RunUntilStalled()
}

// Len returns the number of live tasks.
func (p *Pool) Len() int {
	return len(p.tasks)
}

// PendingTimers returns the number of distinct deadlines still waiting.
func (p *Pool) PendingTimers() int {
	return p.timers.Len()
}

// NextDeadline returns the earliest pending deadline.
func (p *Pool) NextDeadline() (time.Time, bool) {
	e, ok := p.timers.Min()
	if !ok {
		return time.Time{}, false
	}
	return e.deadline, true
}

func (p *Pool) enqueue(t *Task) {
	if t.queued || t.done {
		return
	}
	t.queued = true
	p.ready = append(p.ready, t)
}

func (p *Pool) poll(t *Task) {
	t.queued = false
	if t.done {
		return
	}

	prev := p.current
	p.current = t
	if !t.started {
		t.started = true
		go t.run()
	} else {
		t.parked = false
		t.resume <- struct{}{}
	}
	<-t.yield
	p.current = prev

	if t.done {
		t.cancel()
		delete(p.tasks, t)
	}
}

func (p *Pool) addSleeper(s *sleeper) {
	e, ok := p.timers.Get(&timerEntry{deadline: s.deadline})
	if !ok {
		e = &timerEntry{deadline: s.deadline}
		p.timers.ReplaceOrInsert(e)
	}
	e.sleepers = append(e.sleepers, s)
}

func (p *Pool) removeSleeper(s *sleeper) {
	e, ok := p.timers.Get(&timerEntry{deadline: s.deadline})
	if !ok {
		return
	}
	kept := e.sleepers[:0]
	for _, other := range e.sleepers {
		if other != s {
			kept = append(kept, other)
		}
	}
	e.sleepers = kept
	if len(kept) == 0 {
		p.timers.Delete(e)
	}
}

// CurrentTask returns the task ctx belongs to, or nil outside a task.
func CurrentTask(ctx context.Context) *Task {
	t, _ := ctx.Value(taskKey{}).(*Task)
	return t
}

// Park suspends the calling task until it is woken or dropped. A Wake that
// arrived while the task was running is consumed instead of suspending.
func Park(ctx context.Context) error {
	t := CurrentTask(ctx)
	if t == nil {
		return errors.ErrNotInTask
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.notified {
		t.notified = false
		return nil
	}

	t.suspend()
	return ctx.Err()
}

// SleepFor suspends the calling task for at least d, measured on the pool's
// clock. Waking happens on the first tick at or after the deadline.
func SleepFor(ctx context.Context, d time.Duration) error {
	t := CurrentTask(ctx)
	if t == nil {
		return errors.ErrNotInTask
	}
	return SleepUntil(ctx, t.pool.clock.Now().Add(d))
}

// SleepUntil suspends the calling task until deadline. It returns the
// context error if the task is dropped first.
func SleepUntil(ctx context.Context, deadline time.Time) error {
	t := CurrentTask(ctx)
	if t == nil {
		return errors.ErrNotInTask
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s := &sleeper{deadline: deadline, task: t}
	t.sleeping = s
	t.pool.addSleeper(s)

	for !s.fired {
		if err := Park(ctx); err != nil {
			if !s.fired {
				t.pool.removeSleeper(s)
				t.sleeping = nil
			}
			return err
		}
	}
	return nil
}

// Yield lets every other ready task run once before the caller continues.
func Yield(ctx context.Context) error {
	t := CurrentTask(ctx)
	if t == nil {
		return errors.ErrNotInTask
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.pool.enqueue(t)
	t.suspend()
	return ctx.Err()
}
