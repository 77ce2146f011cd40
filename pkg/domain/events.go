package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventMessage      EventType = "message"
	EventDrop         EventType = "drop"
	EventHistoryPush  EventType = "history_push"
	EventRender       EventType = "render"
	EventReadyTimeout EventType = "ready_timeout"
)

// Drop reasons.
const (
	DropNotReady  = "not_ready"
	DropDuplicate = "duplicate"
	DropInvalid   = "invalid"
	DropClosed    = "closed"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// MessageEvent is emitted when a component sends a protocol message.
type MessageEvent struct {
	EventBase
	Direction Direction `json:"direction"`
	Message   Message   `json:"message"`
}

// DropEvent is emitted when a message or update is intentionally ignored.
type DropEvent struct {
	EventBase
	Direction Direction `json:"direction"`
	Message   Message   `json:"message"`
	Reason    string    `json:"reason"`
}

// HistoryEvent is emitted when the host pushes a history entry.
type HistoryEvent struct {
	EventBase
	Hash  string `json:"hash"`
	Index int    `json:"index"`
}

// RenderEvent is emitted each time the guest renders a view.
type RenderEvent struct {
	EventBase
	View View `json:"view"`
}

// ReadyTimeoutEvent is emitted when the guest did not signal readiness in time.
type ReadyTimeoutEvent struct {
	EventBase
	Waited time.Duration `json:"waited"`
}

// LifecycleHooks defines callbacks for protocol observability.
// Hooks run on the emitting component's event loop and must not block.
type LifecycleHooks struct {
	OnMessage      func(context.Context, *MessageEvent)
	OnDrop         func(context.Context, *DropEvent)
	OnHistoryPush  func(context.Context, *HistoryEvent)
	OnRender       func(context.Context, *RenderEvent)
	OnReadyTimeout func(context.Context, *ReadyTimeoutEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnMessage:      chain(h.OnMessage, other.OnMessage),
		OnDrop:         chain(h.OnDrop, other.OnDrop),
		OnHistoryPush:  chain(h.OnHistoryPush, other.OnHistoryPush),
		OnRender:       chain(h.OnRender, other.OnRender),
		OnReadyTimeout: chain(h.OnReadyTimeout, other.OnReadyTimeout),
	}
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}
