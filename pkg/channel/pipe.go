// Package channel implements the in-process cross-frame message channel.
//
// A Pipe connects the host and guest ports. Posting never blocks the sender
// and messages are delivered in order per direction, mirroring the browser's
// postMessage semantics.
package channel

import (
	"context"
	"sync"

	"go.uber.org/atomic"

	"github.com/aretw0/framesync/pkg/domain"
)

// Pipe is a bidirectional, in-order, non-blocking message channel.
type Pipe struct {
	host  *End
	guest *End

	inFlight  *atomic.Int64
	done      chan struct{}
	closeOnce sync.Once
}

// NewPipe creates a connected pair of ports.
func NewPipe() *Pipe {
	p := &Pipe{
		inFlight: atomic.NewInt64(0),
		done:     make(chan struct{}),
	}
	toGuest := newQueue(p.done)
	toHost := newQueue(p.done)
	p.host = &End{pipe: p, out: toGuest, in: toHost}
	p.guest = &End{pipe: p, out: toHost, in: toGuest}
	go toGuest.pump()
	go toHost.pump()
	return p
}

// Host returns the host side of the pipe.
func (p *Pipe) Host() *End { return p.host }

// Guest returns the guest side of the pipe.
func (p *Pipe) Guest() *End { return p.guest }

// InFlight returns the number of posted messages not yet handed to a loop.
func (p *Pipe) InFlight() int64 { return p.inFlight.Load() }

// Close shuts down both directions. Undelivered messages are dropped.
func (p *Pipe) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
	})
	return nil
}

// End is one side of a Pipe. It implements ports.Port.
type End struct {
	pipe *Pipe
	out  *queue
	in   *queue
}

// Post enqueues msg for the other side without blocking.
func (e *End) Post(ctx context.Context, msg domain.Message) error {
	select {
	case <-e.pipe.done:
		return domain.ErrClosed
	default:
	}
	e.pipe.inFlight.Inc()
	if !e.out.push(msg) {
		e.pipe.inFlight.Dec()
		return domain.ErrClosed
	}
	return nil
}

// Receive yields messages posted by the other side.
func (e *End) Receive() <-chan domain.Message { return e.in.out }

// Ack marks a received message as handed over to its consumer.
func (e *End) Ack(domain.Message) { e.pipe.inFlight.Dec() }

// Close closes the whole pipe.
func (e *End) Close() error { return e.pipe.Close() }

// queue is an unbounded FIFO drained into an unbuffered channel.
type queue struct {
	mu     sync.Mutex
	items  []domain.Message
	notify chan struct{}
	out    chan domain.Message
	done   <-chan struct{}
}

func newQueue(done <-chan struct{}) *queue {
	return &queue{
		notify: make(chan struct{}, 1),
		out:    make(chan domain.Message),
		done:   done,
	}
}

func (q *queue) push(msg domain.Message) bool {
	select {
	case <-q.done:
		return false
	default:
	}
	q.mu.Lock()
	q.items = append(q.items, msg)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

func (q *queue) pop() (domain.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return domain.Message{}, false
	}
	msg := q.items[0]
	q.items = q.items[1:]
	return msg, true
}

func (q *queue) pump() {
	defer close(q.out)
	for {
		msg, ok := q.pop()
		if !ok {
			select {
			case <-q.notify:
				continue
			case <-q.done:
				return
			}
		}
		select {
		case q.out <- msg:
		case <-q.done:
			return
		}
	}
}
