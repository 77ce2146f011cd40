// Package eventloop provides the cooperative task queue each frame runs on.
//
// A Loop executes posted tasks one at a time, in posting order, on a single
// goroutine. Components keep their state confined to their loop, so no locks
// are needed around it: every mutation is a task.
package eventloop

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/framesync/pkg/domain"
)

// Loop is a single-goroutine FIFO task runner.
// Post is safe for concurrent use; Run must be called exactly once.
type Loop struct {
	mu        sync.Mutex
	queue     []func()
	pending   int // queued + running
	seq       uint64
	closed    bool
	idle      chan struct{}
	idleShut  bool
	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates an idle loop. Tasks may be posted before Run starts.
func New() *Loop {
	l := &Loop{
		idle: make(chan struct{}),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	close(l.idle)
	l.idleShut = true
	return l
}

// Post enqueues a task without blocking.
// It returns domain.ErrClosed once the loop has been closed.
func (l *Loop) Post(task func()) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return domain.ErrClosed
	}
	if l.idleShut {
		l.idle = make(chan struct{})
		l.idleShut = false
	}
	l.pending++
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// After posts task once d has elapsed. The returned stop function cancels it.
// A pending timer does not keep the loop busy.
func (l *Loop) After(d time.Duration, task func()) (stop func() bool) {
	t := time.AfterFunc(d, func() {
		_ = l.Post(task)
	})
	return t.Stop
}

// Do posts fn and waits for its result.
// It must not be called from a task running on the same loop.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	res := make(chan error, 1)
	if err := l.Post(func() { res <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-res:
		return err
	case <-l.done:
		// The task may have run right before closing.
		select {
		case err := <-res:
			return err
		default:
			return domain.ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes tasks until ctx is canceled or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		task, ok := l.next()
		if !ok {
			select {
			case <-ctx.Done():
				l.Close()
				return ctx.Err()
			case <-l.done:
				return nil
			case <-l.wake:
				continue
			}
		}
		task()
		l.finish()
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || len(l.queue) == 0 {
		return nil, false
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return task, true
}

func (l *Loop) finish() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	l.pending--
	l.markIdle()
}

// markIdle must be called with mu held.
func (l *Loop) markIdle() {
	if l.pending == 0 && !l.idleShut {
		close(l.idle)
		l.idleShut = true
	}
}

// Wait blocks until no task is queued or running.
func (l *Loop) Wait(ctx context.Context) error {
	l.mu.Lock()
	idle := l.idle
	l.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Idle reports whether no task is queued or running.
func (l *Loop) Idle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending == 0
}

// Seq returns the number of tasks executed so far.
func (l *Loop) Seq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

// Close stops the loop and drops queued tasks. A running task completes.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.pending -= len(l.queue)
		l.queue = nil
		l.markIdle()
		l.mu.Unlock()
		close(l.done)
	})
}

// Done is closed when the loop is closed.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
