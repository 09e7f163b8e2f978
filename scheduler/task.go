package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Task is a suspended computation owned by a Pool.
type Task struct {
	id     uint64
	pool   *Pool
	fn     func(ctx context.Context)
	ctx    context.Context
	cancel context.CancelFunc

	resume chan struct{}
	yield  chan struct{}

	started  bool
	parked   bool
	queued   bool
	notified bool
	done     bool
	sleeping *sleeper
}

type sleeper struct {
	deadline time.Time
	task     *Task
	fired    bool
}

type timerEntry struct {
	deadline time.Time
	sleepers []*sleeper
}

// ID returns the task's pool-unique identifier.
func (t *Task) ID() uint64 {
	return t.id
}

// Done reports whether the task finished or was dropped before it started.
func (t *Task) Done() bool {
	return t.done
}

// Wake makes a parked task ready. Waking a running task makes its next Park
// return immediately.
func (t *Task) Wake() {
	if t.done {
		return
	}
	switch {
	case t.parked:
		t.pool.enqueue(t)
	case t.started && !t.queued:
		t.notified = true
	}
}

// Drop cancels the task. Its pending timer waits are removed and it unwinds
// at its next suspension point, where Park and the sleep functions return
// the context error.
func (t *Task) Drop() {
	if t.done {
		return
	}
	t.cancel()
	if t.sleeping != nil {
		t.pool.removeSleeper(t.sleeping)
		t.sleeping = nil
	}
	if !t.started {
		t.done = true
		delete(t.pool.tasks, t)
		return
	}
	if t.parked {
		t.pool.enqueue(t)
	}
}

func (t *Task) run() {
	defer func() {
		if r := recover(); r != nil {
			t.pool.logger.Error("task panicked",
				zap.Uint64("task", t.id),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
		t.done = true
		t.yield <- struct{}{}
	}()
	t.fn(t.ctx)
}

func (t *Task) suspend() {
	t.parked = true
	t.yield <- struct{}{}
	<-t.resume
	t.parked = false
	t.notified = false
}
