package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/framesync"
	"github.com/aretw0/framesync/internal/logging"
	"github.com/aretw0/framesync/pkg/domain"
	"github.com/aretw0/framesync/pkg/miniapp"
	"github.com/aretw0/framesync/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a distributed session lock is held.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager owns the live pages of a server and keeps their history in a store.
// Operations on one session are serialized; a page that is not live (after a
// restart, or on another replica) is rehydrated from its persisted state.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	app   *miniapp.App
	store ports.StateStore

	mu    sync.Mutex            // Global lock for the locks map
	locks map[string]*lockEntry // Map of active locks

	pagesMu sync.Mutex
	pages   map[string]*framesync.Page

	locker   ports.DistributedLocker // Optional distributed locker
	lockTTL  time.Duration
	logger   *slog.Logger
	pageOpts []framesync.Option
	onChange func(sessionID string, diff *domain.SnapshotDiff)
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager and its pages.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithPageOptions appends options applied to every page the Manager opens.
func WithPageOptions(opts ...framesync.Option) Option {
	return func(m *Manager) {
		m.pageOpts = append(m.pageOpts, opts...)
	}
}

// WithChangeListener is called after every operation that changed a session.
func WithChangeListener(fn func(sessionID string, diff *domain.SnapshotDiff)) Option {
	return func(m *Manager) {
		m.onChange = fn
	}
}

// NewManager creates a Session Manager serving app and persisting to store.
func NewManager(app *miniapp.App, store ports.StateStore, opts ...Option) *Manager {
	m := &Manager{
		app:     app,
		store:   store,
		locks:   make(map[string]*lockEntry),
		pages:   make(map[string]*framesync.Page),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Create opens a new page at rawURL and persists its history.
func (m *Manager) Create(ctx context.Context, rawURL string) (domain.Snapshot, error) {
	sessionID := uuid.NewString()
	var snap domain.Snapshot
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		page := m.newPage(sessionID)
		if err := page.Open(ctx, rawURL); err != nil {
			page.Close()
			return fmt.Errorf("failed to open page: %w", err)
		}
		snap = page.Snapshot()
		if err := m.store.Save(ctx, sessionID, snap.SessionState()); err != nil {
			page.Close()
			return fmt.Errorf("failed to save session: %w", err)
		}
		m.setPage(sessionID, page)
		return nil
	})
	if err != nil {
		return domain.Snapshot{}, err
	}
	m.logger.Info("session created", "session_id", sessionID, "hash", snap.Hash)
	return snap, nil
}

// Get returns the current snapshot of a session.
func (m *Manager) Get(ctx context.Context, sessionID string) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		page, err := m.page(ctx, sessionID)
		if err != nil {
			return err
		}
		snap = page.Snapshot()
		return nil
	})
	return snap, err
}

// Do runs fn against the session's page, then persists the resulting history.
// The returned snapshot is taken after the page settled, even if fn failed.
func (m *Manager) Do(ctx context.Context, sessionID string, fn func(context.Context, *framesync.Page) error) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		page, err := m.page(ctx, sessionID)
		if err != nil {
			return err
		}
		before := page.Snapshot()
		opErr := fn(ctx, page)
		if err := page.Settle(ctx); err != nil && opErr == nil {
			opErr = err
		}
		snap = page.Snapshot()

		diff := domain.Diff(&before, &snap)
		if diff == nil {
			return opErr
		}
		if err := m.store.Save(ctx, sessionID, snap.SessionState()); err != nil {
			return errors.Join(opErr, fmt.Errorf("failed to save session: %w", err))
		}
		if m.onChange != nil {
			m.onChange(sessionID, diff)
		}
		return opErr
	})
	return snap, err
}

// Delete closes the session's page and removes its history.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m.pagesMu.Lock()
		page, live := m.pages[sessionID]
		delete(m.pages, sessionID)
		m.pagesMu.Unlock()

		if live {
			page.Close()
		} else if _, err := m.store.Load(ctx, sessionID); err != nil {
			return err
		}
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying state store.
func (m *Manager) Store() ports.StateStore {
	return m.store
}

// App returns the served mini-app.
func (m *Manager) App() *miniapp.App {
	return m.app
}

// Live reports how many pages are currently open in this process.
func (m *Manager) Live() int {
	m.pagesMu.Lock()
	defer m.pagesMu.Unlock()
	return len(m.pages)
}

// Close unloads every live page. Persisted sessions are kept.
func (m *Manager) Close() error {
	m.pagesMu.Lock()
	pages := m.pages
	m.pages = make(map[string]*framesync.Page)
	m.pagesMu.Unlock()

	var errs []error
	for _, page := range pages {
		errs = append(errs, page.Close())
	}
	return errors.Join(errs...)
}

func (m *Manager) newPage(sessionID string, extra ...framesync.Option) *framesync.Page {
	opts := []framesync.Option{
		framesync.WithSessionID(sessionID),
		framesync.WithLogger(m.logger),
	}
	opts = append(opts, m.pageOpts...)
	opts = append(opts, extra...)
	return framesync.New(m.app, opts...)
}

func (m *Manager) setPage(sessionID string, page *framesync.Page) {
	m.pagesMu.Lock()
	defer m.pagesMu.Unlock()
	m.pages[sessionID] = page
}

// page returns the live page, rehydrating it from the store if needed.
// The store is authoritative: a cached page whose history no longer matches
// the stored one (another replica wrote it) is replaced.
// The caller must hold the session lock.
func (m *Manager) page(ctx context.Context, sessionID string) (*framesync.Page, error) {
	state, err := m.store.Load(ctx, sessionID)

	m.pagesMu.Lock()
	page, ok := m.pages[sessionID]
	if ok && (err != nil || !sameHistory(page.State(), state)) {
		delete(m.pages, sessionID)
	}
	m.pagesMu.Unlock()

	if err != nil {
		if ok {
			page.Close()
		}
		return nil, err
	}
	if ok {
		if sameHistory(page.State(), state) {
			return page, nil
		}
		m.logger.Debug("stale session page replaced", "session_id", sessionID, "hash", state.Hash())
		page.Close()
	}

	page = m.newPage(sessionID, framesync.WithSessionState(state))
	if err := page.Open(ctx, ""); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to rehydrate session: %w", err)
	}
	m.logger.Debug("session rehydrated", "session_id", sessionID, "hash", page.Snapshot().Hash)
	m.setPage(sessionID, page)
	return page, nil
}

func sameHistory(a, b *domain.SessionState) bool {
	return a.Index == b.Index && slices.Equal(a.Entries, b.Entries)
}
