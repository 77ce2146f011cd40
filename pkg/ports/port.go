package ports

import (
	"context"

	"github.com/aretw0/framesync/pkg/domain"
)

// Port is one end of a cross-frame message channel.
//
// Post is fire-and-forget: it must not block on the receiver and must
// preserve order per direction. Receive yields the counterpart's messages in
// the order they were posted and is closed when the channel shuts down.
type Port interface {
	Post(ctx context.Context, msg domain.Message) error
	Receive() <-chan domain.Message
	Close() error
}

// Renderer displays the views produced by the guest router.
type Renderer interface {
	Render(ctx context.Context, view domain.View) error
}

// RenderFunc adapts a function to the Renderer interface.
type RenderFunc func(ctx context.Context, view domain.View) error

// Render calls f(ctx, view).
func (f RenderFunc) Render(ctx context.Context, view domain.View) error {
	return f(ctx, view)
}
