// Package guest implements the Embedded Mini-App Router.
//
// The router owns the in-frame route and view. In-app navigation renders the
// target view and notifies the host; routes pushed by the host are rendered
// without notifying back, so the two frames never ping-pong.
package guest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/framesync/internal/logging"
	"github.com/aretw0/framesync/pkg/channel"
	"github.com/aretw0/framesync/pkg/domain"
	"github.com/aretw0/framesync/pkg/eventloop"
	"github.com/aretw0/framesync/pkg/ports"
)

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("guest router already started")

// Resolver maps a route to the view to render.
// Unknown routes must resolve to a fallback view rather than fail.
type Resolver interface {
	Resolve(route domain.Route) domain.View
}

// Router is the guest side of the protocol.
// All navigation state is confined to its event loop.
type Router struct {
	app        Resolver
	port       ports.Port
	loop       *eventloop.Loop
	renderer   ports.Renderer
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
	standalone bool
	silent     bool

	ctx       context.Context
	startOnce sync.Once

	mu          sync.RWMutex
	initialized bool
	route       domain.Route
	view        domain.View
	renders     int
}

// Option configures the Router.
type Option func(*Router)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Router) {
		r.hooks = hooks
	}
}

// WithRenderer sets the renderer receiving each view.
func WithRenderer(renderer ports.Renderer) Option {
	return func(r *Router) {
		r.renderer = renderer
	}
}

// WithStandalone initializes the router at the root on Start, without
// waiting for a host. Messages are still exchanged if a port is set.
func WithStandalone() Option {
	return func(r *Router) {
		r.standalone = true
	}
}

// WithoutReadySignal keeps the router from announcing readiness.
// The host then never propagates its hash; used to exercise that failure mode.
func WithoutReadySignal() Option {
	return func(r *Router) {
		r.silent = true
	}
}

// New creates a router for app. port may be nil for a standalone router.
func New(app Resolver, port ports.Port, opts ...Option) *Router {
	r := &Router{
		app:    app,
		port:   port,
		loop:   eventloop.New(),
		logger: logging.NewNop(),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Loop exposes the router's event loop, e.g. to wait for it to settle.
func (r *Router) Loop() *eventloop.Loop {
	return r.loop
}

// Start runs the router and announces readiness to the host.
func (r *Router) Start(ctx context.Context) error {
	err := ErrAlreadyStarted
	r.startOnce.Do(func() {
		err = nil
		r.ctx = ctx

		go func() {
			_ = r.loop.Run(ctx)
		}()

		if r.port != nil {
			go channel.Forward(ctx, r.port, r.loop, r.onMessage)
		}

		_ = r.loop.Post(func() {
			if r.standalone {
				r.init(domain.RootRoute)
			}
			if r.port != nil && !r.silent {
				r.post(domain.ReadyMessage())
			}
		})
	})
	return err
}

// Close stops the router. The port is left open for its owner to close.
func (r *Router) Close() error {
	r.loop.Close()
	return nil
}

// Init sets the starting route and renders it. Calling Init again resets
// the route without notifying the host.
func (r *Router) Init(ctx context.Context, route domain.Route) error {
	return r.loop.Do(ctx, func() error {
		r.init(route)
		return nil
	})
}

// Navigate performs in-app navigation to route and notifies the host.
// Navigating to the current route does nothing.
func (r *Router) Navigate(ctx context.Context, route domain.Route) error {
	return r.loop.Do(ctx, func() error {
		return r.navigate(route)
	})
}

// Activate follows the link labelled label on the current view.
func (r *Router) Activate(ctx context.Context, label string) error {
	return r.loop.Do(ctx, func() error {
		if !r.Initialized() {
			return domain.ErrNotReady
		}
		link, ok := r.View().FindLink(label)
		if !ok {
			return fmt.Errorf("%w: %q on %s", domain.ErrLinkNotFound, label, r.Route())
		}
		return r.navigate(link.To)
	})
}

// Initialized reports whether a view has been rendered.
func (r *Router) Initialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialized
}

// Route returns the current route.
func (r *Router) Route() domain.Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.route
}

// View returns the current view. It is the zero View before initialization.
func (r *Router) View() domain.View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v := r.view
	v.Links = append([]domain.Link(nil), r.view.Links...)
	return v
}

// Renders returns how many times a view was rendered.
func (r *Router) Renders() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.renders
}

func (r *Router) onMessage(msg domain.Message) {
	if err := msg.Validate(); err != nil || msg.Type != domain.MessageNavigate {
		r.logger.Warn("unexpected host message dropped", "type", msg.Type, "err", err)
		r.drop(domain.HostToGuest, msg, domain.DropInvalid)
		return
	}

	route := domain.ParseRoute(string(msg.Route))
	if !r.Initialized() {
		r.init(route)
		return
	}
	if route == r.Route() {
		r.logger.Debug("host route already displayed", "route", route)
		r.drop(domain.HostToGuest, msg, domain.DropDuplicate)
		return
	}
	// Host-pushed: render only, never echo back.
	r.apply(route)
}

func (r *Router) init(route domain.Route) {
	r.mu.Lock()
	r.initialized = true
	r.mu.Unlock()
	r.apply(domain.ParseRoute(string(route)))
}

func (r *Router) navigate(route domain.Route) error {
	if !r.Initialized() {
		return domain.ErrNotReady
	}
	route = domain.ParseRoute(string(route))
	if route == r.Route() {
		return nil
	}
	r.apply(route)
	if r.port != nil {
		r.post(domain.RouteChangedMessage(route))
	}
	return nil
}

func (r *Router) apply(route domain.Route) {
	view := r.app.Resolve(route)
	if view.NotFound {
		r.logger.Info("unknown route, rendering fallback view", "route", route)
	}

	r.mu.Lock()
	r.route = route
	r.view = view
	r.renders++
	r.mu.Unlock()

	if r.renderer != nil {
		if err := r.renderer.Render(r.ctx, view); err != nil {
			r.logger.Warn("render failed", "route", route, "err", err)
		}
	}
	if r.hooks.OnRender != nil {
		r.hooks.OnRender(r.ctx, &domain.RenderEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventRender},
			View:      view,
		})
	}
}

func (r *Router) post(msg domain.Message) {
	if err := r.port.Post(r.ctx, msg); err != nil {
		r.logger.Warn("failed to post to host", "type", msg.Type, "err", err)
		r.drop(domain.GuestToHost, msg, domain.DropClosed)
		return
	}
	r.emitMessage(domain.GuestToHost, msg)
}

func (r *Router) emitMessage(dir domain.Direction, msg domain.Message) {
	if r.hooks.OnMessage == nil {
		return
	}
	r.hooks.OnMessage(r.ctx, &domain.MessageEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventMessage},
		Direction: dir,
		Message:   msg,
	})
}

func (r *Router) drop(dir domain.Direction, msg domain.Message, reason string) {
	if r.hooks.OnDrop == nil {
		return
	}
	r.hooks.OnDrop(r.ctx, &domain.DropEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventDrop},
		Direction: dir,
		Message:   msg,
		Reason:    reason,
	})
}
