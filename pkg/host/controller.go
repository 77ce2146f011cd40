// Package host implements the Host Page Controller.
//
// The controller bridges the browser history (the address bar) and the
// embedded guest frame. It forwards the route carried by the hash to the
// guest once the guest is ready and whenever the hash changes, and it
// pushes a history entry for every route the guest reports.
package host

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/framesync/internal/logging"
	"github.com/aretw0/framesync/pkg/channel"
	"github.com/aretw0/framesync/pkg/domain"
	"github.com/aretw0/framesync/pkg/eventloop"
	"github.com/aretw0/framesync/pkg/history"
	"github.com/aretw0/framesync/pkg/ports"
)

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("host controller already started")

// Controller is the host side of the protocol.
// All protocol state is confined to its event loop.
type Controller struct {
	history      *history.History
	port         ports.Port
	loop         *eventloop.Loop
	logger       *slog.Logger
	hooks        domain.LifecycleHooks
	readyTimeout time.Duration

	ctx         context.Context
	unsubscribe func()
	stopTimer   func() bool
	startOnce   sync.Once

	mu    sync.RWMutex
	ready bool
	route domain.Route // last route sent to the guest
}

// Option configures the Controller.
type Option func(*Controller)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithReadyTimeout warns (once) when the guest has not signalled readiness
// after d. The controller never re-sends anything on timeout.
func WithReadyTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.readyTimeout = d
	}
}

// New creates a controller over the page history and the host end of the channel.
func New(h *history.History, port ports.Port, opts ...Option) *Controller {
	c := &Controller{
		history: h,
		port:    port,
		loop:    eventloop.New(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Loop exposes the controller's event loop, e.g. to wait for it to settle.
func (c *Controller) Loop() *eventloop.Loop {
	return c.loop
}

// Start begins listening to hash changes and guest messages.
// The controller stops when ctx is canceled or Close is called.
func (c *Controller) Start(ctx context.Context) error {
	err := ErrAlreadyStarted
	c.startOnce.Do(func() {
		err = nil
		c.ctx = ctx

		if c.readyTimeout > 0 {
			c.stopTimer = c.loop.After(c.readyTimeout, c.onReadyTimeout)
		}

		go func() {
			_ = c.loop.Run(ctx)
		}()

		c.unsubscribe = c.history.Subscribe(func(ev history.HashChangeEvent) {
			if postErr := c.loop.Post(func() { c.onHashChange(ev) }); postErr != nil {
				c.logger.Debug("hashchange after close ignored", "hash", ev.NewHash)
			}
		})

		go channel.Forward(ctx, c.port, c.loop, c.onMessage)

		c.logger.Debug("host controller started", "hash", c.history.Current())
	})
	return err
}

// Close stops the controller. The port is left open for its owner to close.
func (c *Controller) Close() error {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	if c.stopTimer != nil {
		c.stopTimer()
	}
	c.loop.Close()
	return nil
}

// Ready reports whether the guest has signalled readiness.
func (c *Controller) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Route returns the last route sent to the guest.
func (c *Controller) Route() domain.Route {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.route
}

func (c *Controller) onMessage(msg domain.Message) {
	if err := msg.Validate(); err != nil {
		c.logger.Warn("invalid guest message dropped", "err", err)
		c.drop(domain.GuestToHost, msg, domain.DropInvalid)
		return
	}

	switch msg.Type {
	case domain.MessageReady:
		c.onReady()
	case domain.MessageRouteChanged:
		c.onRouteChanged(msg.Route)
	default:
		c.logger.Warn("unexpected message type from guest", "type", msg.Type)
		c.drop(domain.GuestToHost, msg, domain.DropInvalid)
	}
}

func (c *Controller) onReady() {
	c.mu.Lock()
	wasReady := c.ready
	c.ready = true
	c.mu.Unlock()

	if c.stopTimer != nil {
		c.stopTimer()
	}
	if wasReady {
		c.logger.Debug("guest signalled readiness again, resending route")
	}

	// The hash is read now rather than at load: edits made while the guest
	// was loading are honoured.
	c.send(c.currentRoute())
}

func (c *Controller) onRouteChanged(route domain.Route) {
	msg := domain.RouteChangedMessage(route)
	if !c.Ready() {
		c.logger.Debug("route change before ready dropped", "route", route)
		c.drop(domain.GuestToHost, msg, domain.DropNotReady)
		return
	}

	route = domain.ParseRoute(string(route))
	if route == c.currentRoute() {
		c.logger.Debug("route already reflected in hash", "route", route)
		c.drop(domain.GuestToHost, msg, domain.DropDuplicate)
		return
	}

	hash := domain.FormatHash(route)
	index := c.history.Push(hash)

	c.mu.Lock()
	c.route = route
	c.mu.Unlock()

	c.logger.Debug("history entry pushed", "hash", hash, "index", index)
	if c.hooks.OnHistoryPush != nil {
		c.hooks.OnHistoryPush(c.ctx, &domain.HistoryEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventHistoryPush},
			Hash:      hash,
			Index:     index,
		})
	}
}

// onHashChange forwards the hash as it is now, not as the event saw it: a
// routeChanged handled between the event and this task may have pushed a
// newer entry, and the guest's duplicate check absorbs the repeat.
func (c *Controller) onHashChange(ev history.HashChangeEvent) {
	if _, ok := domain.ParseHash(ev.NewHash); !ok {
		c.logger.Warn("malformed hash, defaulting to root", "hash", ev.NewHash)
	}
	if !c.Ready() {
		// The route is read from the history once the guest is ready.
		route, _ := domain.ParseHash(ev.NewHash)
		c.logger.Debug("hash change before ready deferred", "hash", ev.NewHash)
		c.drop(domain.HostToGuest, domain.NavigateMessage(route), domain.DropNotReady)
		return
	}
	if ev.NewHash != c.history.Current() {
		c.logger.Debug("stale hashchange, sending current hash", "event_hash", ev.NewHash, "hash", c.history.Current())
	}
	c.send(c.currentRoute())
}

func (c *Controller) onReadyTimeout() {
	if c.Ready() {
		return
	}
	c.logger.Warn("guest did not signal readiness, mini-app not rendered", "waited", c.readyTimeout)
	if c.hooks.OnReadyTimeout != nil {
		c.hooks.OnReadyTimeout(c.ctx, &domain.ReadyTimeoutEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventReadyTimeout},
			Waited:    c.readyTimeout,
		})
	}
}

func (c *Controller) currentRoute() domain.Route {
	hash := c.history.Current()
	route, ok := domain.ParseHash(hash)
	if !ok {
		c.logger.Warn("malformed hash, defaulting to root", "hash", hash)
	}
	return route
}

func (c *Controller) send(route domain.Route) {
	msg := domain.NavigateMessage(route)
	if err := c.port.Post(c.ctx, msg); err != nil {
		c.logger.Warn("failed to post route to guest", "route", route, "err", err)
		c.drop(domain.HostToGuest, msg, domain.DropClosed)
		return
	}
	c.mu.Lock()
	c.route = msg.Route
	c.mu.Unlock()
	c.emitMessage(domain.HostToGuest, msg)
}

func (c *Controller) emitMessage(dir domain.Direction, msg domain.Message) {
	if c.hooks.OnMessage == nil {
		return
	}
	c.hooks.OnMessage(c.ctx, &domain.MessageEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventMessage},
		Direction: dir,
		Message:   msg,
	})
}

func (c *Controller) drop(dir domain.Direction, msg domain.Message, reason string) {
	if c.hooks.OnDrop == nil {
		return
	}
	c.hooks.OnDrop(c.ctx, &domain.DropEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventDrop},
		Direction: dir,
		Message:   msg,
		Reason:    reason,
	})
}
