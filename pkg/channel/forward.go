package channel

import (
	"context"

	"github.com/aretw0/framesync/pkg/domain"
	"github.com/aretw0/framesync/pkg/ports"
)

// Poster is the part of an event loop Forward needs.
type Poster interface {
	Post(task func()) error
}

// acker is implemented by ports that count in-flight messages.
type acker interface {
	Ack(domain.Message)
}

// Forward moves every message received on port onto loop, preserving order,
// and calls handle for it from the loop. It returns when the port's receive
// channel closes, the loop rejects a task, or ctx is done.
func Forward(ctx context.Context, port ports.Port, loop Poster, handle func(domain.Message)) {
	ack, _ := port.(acker)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-port.Receive():
			if !ok {
				return
			}
			err := loop.Post(func() { handle(msg) })
			if ack != nil {
				ack.Ack(msg)
			}
			if err != nil {
				return
			}
		}
	}
}
