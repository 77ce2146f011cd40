package framesync

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
	"github.com/aretw0/framesync/pkg/guest"
	"github.com/aretw0/framesync/pkg/history"
	"github.com/aretw0/framesync/pkg/host"
	"github.com/aretw0/framesync/pkg/miniapp"
	"github.com/aretw0/framesync/pkg/ports"
)

// ErrNotOpen is returned when acting on a page before Open or after Close.
var ErrNotOpen = errors.New("page not open")

// ErrAlreadyOpen is returned when Open is called twice.
var ErrAlreadyOpen = errors.New("page already open")

// Page is the high-level entry point: a host page embedding one mini-app.
// It wires the browser history, the host controller, the guest router and
// the channel between them, and offers browser-like operations.
type Page struct {
	app          *miniapp.App
	sessionID    string
	logger       *slog.Logger
	hooks        domain.LifecycleHooks
	renderer     ports.Renderer
	readyTimeout time.Duration
	silentGuest  bool
	restore      *domain.SessionState

	mu      sync.RWMutex
	open    bool
	cancel  context.CancelFunc
	history *history.History
	pipe    *channel.Pipe
	host    *host.Controller
	guest   *guest.Router
}

// Option defines a functional option for configuring the Page.
type Option func(*Page)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Page) {
		p.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks on both frames.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(p *Page) {
		p.hooks = p.hooks.Merge(hooks)
	}
}

// WithRenderer sets the renderer receiving every guest view.
func WithRenderer(r ports.Renderer) Option {
	return func(p *Page) {
		p.renderer = r
	}
}

// WithSessionID labels the page (logs, snapshots, persistence).
func WithSessionID(id string) Option {
	return func(p *Page) {
		p.sessionID = id
	}
}

// WithSessionState restores a persisted history instead of starting from the URL.
func WithSessionState(state *domain.SessionState) Option {
	return func(p *Page) {
		p.restore = state
	}
}

// WithReadyTimeout warns when the guest does not signal readiness in time.
func WithReadyTimeout(d time.Duration) Option {
	return func(p *Page) {
		p.readyTimeout = d
	}
}

// WithoutGuestReady simulates a guest that never signals readiness.
func WithoutGuestReady() Option {
	return func(p *Page) {
		p.silentGuest = true
	}
}

// New creates a page for app. Call Open to load it.
func New(app *miniapp.App, opts ...Option) *Page {
	p := &Page{app: app}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.NewNop()
	}
	if p.restore != nil && p.sessionID == "" {
		p.sessionID = p.restore.SessionID
	}
	if p.sessionID != "" {
		p.logger = p.logger.With("session_id", p.sessionID)
	}
	return p
}

// Open loads the page at rawURL: the initial history entry is the URL's
// fragment, unless a session state was supplied. It returns once both
// frames have settled.
func (p *Page) Open(ctx context.Context, rawURL string) error {
	p.mu.Lock()
	if p.open {
		p.mu.Unlock()
		return ErrAlreadyOpen
	}

	hist := history.New(domain.HashFromURL(rawURL))
	if p.restore != nil {
		restored, err := history.Restore(p.restore.Entries, p.restore.Index)
		if err != nil {
			p.mu.Unlock()
			return fmt.Errorf("failed to restore session: %w", err)
		}
		hist = restored
	}

	// The page outlives the request that opened it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	p.history = hist
	p.pipe = channel.NewPipe()
	p.host = host.New(hist, p.pipe.Host(),
		host.WithLogger(p.logger.With("frame", "host")),
		host.WithLifecycleHooks(p.hooks),
		host.WithReadyTimeout(p.readyTimeout),
	)

	guestOpts := []guest.Option{
		guest.WithLogger(p.logger.With("frame", "guest")),
		guest.WithLifecycleHooks(p.hooks),
	}
	if p.renderer != nil {
		guestOpts = append(guestOpts, guest.WithRenderer(p.renderer))
	}
	if p.silentGuest {
		guestOpts = append(guestOpts, guest.WithoutReadySignal())
	}
	p.guest = guest.New(p.app, p.pipe.Guest(), guestOpts...)
	p.cancel = cancel
	p.open = true
	p.mu.Unlock()

	if err := p.host.Start(runCtx); err != nil {
		return err
	}
	if err := p.guest.Start(runCtx); err != nil {
		return err
	}

	p.logger.Debug("page opened", "url", rawURL, "hash", hist.Current())
	return p.Settle(ctx)
}

// Close unloads the page.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return nil
	}
	p.open = false
	p.cancel()
	p.host.Close()
	p.guest.Close()
	return p.pipe.Close()
}

func (p *Page) parts() (*history.History, *host.Controller, *guest.Router, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.open {
		return nil, nil, nil, ErrNotOpen
	}
	return p.history, p.host, p.guest, nil
}

// Click activates the link labelled label inside the mini-app.
func (p *Page) Click(ctx context.Context, label string) error {
	_, _, g, err := p.parts()
	if err != nil {
		return err
	}
	if err := g.Activate(ctx, label); err != nil {
		return err
	}
	return p.Settle(ctx)
}

// NavigateGuest performs in-app navigation to route, as a script inside the
// mini-app would.
func (p *Page) NavigateGuest(ctx context.Context, route domain.Route) error {
	_, _, g, err := p.parts()
	if err != nil {
		return err
	}
	if err := g.Navigate(ctx, route); err != nil {
		return err
	}
	return p.Settle(ctx)
}

// Back presses the browser back button. It reports false at the first entry.
func (p *Page) Back(ctx context.Context) (bool, error) {
	return p.traverse(ctx, -1)
}

// Forward presses the browser forward button. It reports false at the last entry.
func (p *Page) Forward(ctx context.Context) (bool, error) {
	return p.traverse(ctx, 1)
}

func (p *Page) traverse(ctx context.Context, delta int) (bool, error) {
	h, _, _, err := p.parts()
	if err != nil {
		return false, err
	}
	moved := h.Go(delta)
	return moved, p.Settle(ctx)
}

// SetHash edits the address bar fragment. It reports false if hash is
// already the current one.
func (p *Page) SetHash(ctx context.Context, hash string) (bool, error) {
	h, _, _, err := p.parts()
	if err != nil {
		return false, err
	}
	if hash != "" && hash[0] != '#' {
		hash = "#" + hash
	}
	changed := h.Assign(hash)
	return changed, p.Settle(ctx)
}

// Settle waits until both frames are idle and no message is in flight.
func (p *Page) Settle(ctx context.Context) error {
	_, hc, g, err := p.parts()
	if err != nil {
		return err
	}
	hl, gl := hc.Loop(), g.Loop()

	for {
		h0, g0 := hl.Seq(), gl.Seq()
		if err := hl.Wait(ctx); err != nil {
			return err
		}
		if err := gl.Wait(ctx); err != nil {
			return err
		}
		if p.pipe.InFlight() == 0 && hl.Idle() && gl.Idle() && hl.Seq() == h0 && gl.Seq() == g0 {
			return nil
		}
		if hl.Seq() == h0 && gl.Seq() == g0 {
			// A message is between a pipe and its loop.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Millisecond):
			}
		}
	}
}

// Snapshot captures the state of both frames.
func (p *Page) Snapshot() domain.Snapshot {
	h, hc, g, err := p.parts()
	snap := domain.Snapshot{SessionID: p.sessionID}
	if err != nil {
		return snap
	}
	snap.Hash = h.Current()
	snap.Entries = h.Entries()
	snap.Index = h.Index()
	snap.Ready = hc.Ready()
	snap.Route = g.Route()
	snap.Renders = g.Renders()
	if g.Initialized() {
		v := g.View()
		snap.View = &v
	}
	return snap
}

// State returns the persistable part of the page.
func (p *Page) State() *domain.SessionState {
	return p.Snapshot().SessionState()
}

// SessionID returns the page's session label.
func (p *Page) SessionID() string {
	return p.sessionID
}

// App returns the embedded mini-app.
func (p *Page) App() *miniapp.App {
	return p.app
}
