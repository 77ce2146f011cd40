// Package history models the browser session history of the host page.
//
// Entries are URL fragments. Push mirrors history.pushState (no event),
// while Assign, Back, Forward and Go mirror address bar edits and traversal,
// which notify subscribers with a HashChangeEvent.
package history

import (
	"fmt"
	"sync"
)

// Cause tells why the active entry changed.
type Cause string

const (
	CauseTraverse Cause = "traverse" // back / forward / go
	CauseAssign   Cause = "assign"   // address bar or link edit
)

// HashChangeEvent describes a change of the active entry.
type HashChangeEvent struct {
	OldHash  string
	NewHash  string
	OldIndex int
	NewIndex int
	Cause    Cause
}

// Listener receives hash change events synchronously, in order.
type Listener func(HashChangeEvent)

// History is a stack of hash entries with a movable cursor.
// Safe for concurrent use.
type History struct {
	mu      sync.Mutex
	entries []string
	index   int

	subsMu sync.Mutex
	subs   map[int]Listener
	nextID int
	emitMu sync.Mutex
}

// New creates a history holding a single entry for the page load.
func New(initialHash string) *History {
	return &History{
		entries: []string{initialHash},
		subs:    make(map[int]Listener),
	}
}

// Restore creates a history from persisted entries.
func Restore(entries []string, index int) (*History, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("restore history: no entries")
	}
	if index < 0 || index >= len(entries) {
		return nil, fmt.Errorf("restore history: index %d out of range [0,%d)", index, len(entries))
	}
	h := New("")
	h.entries = append([]string(nil), entries...)
	h.index = index
	return h, nil
}

// Subscribe registers a listener and returns a function removing it.
func (h *History) Subscribe(l Listener) (unsubscribe func()) {
	h.subsMu.Lock()
	defer h.subsMu.Unlock()
	id := h.nextID
	h.nextID++
	h.subs[id] = l
	return func() {
		h.subsMu.Lock()
		defer h.subsMu.Unlock()
		delete(h.subs, id)
	}
}

// Current returns the active entry.
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

// Index returns the position of the active entry.
func (h *History) Index() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Entries returns a copy of all entries.
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.entries...)
}

// Push appends an entry after the active one, dropping any forward entries,
// and makes it active. No event is emitted.
func (h *History) Push(hash string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries[:h.index+1], hash)
	h.index = len(h.entries) - 1
	return h.index
}

// Assign navigates to hash as if typed in the address bar: it pushes a new
// entry and emits an event. Assigning the active hash does nothing.
func (h *History) Assign(hash string) bool {
	h.emitMu.Lock()
	defer h.emitMu.Unlock()

	h.mu.Lock()
	old := h.entries[h.index]
	if old == hash {
		h.mu.Unlock()
		return false
	}
	oldIndex := h.index
	h.entries = append(h.entries[:h.index+1], hash)
	h.index = len(h.entries) - 1
	ev := HashChangeEvent{OldHash: old, NewHash: hash, OldIndex: oldIndex, NewIndex: h.index, Cause: CauseAssign}
	h.mu.Unlock()

	h.emit(ev)
	return true
}

// Back moves one entry back. It reports false at the first entry.
func (h *History) Back() bool { return h.Go(-1) }

// Forward moves one entry forward. It reports false at the last entry.
func (h *History) Forward() bool { return h.Go(1) }

// Go moves the cursor by delta. Out of range moves do nothing.
// An event is emitted only when the active hash actually differs.
func (h *History) Go(delta int) bool {
	if delta == 0 {
		return false
	}
	h.emitMu.Lock()
	defer h.emitMu.Unlock()

	h.mu.Lock()
	target := h.index + delta
	if target < 0 || target >= len(h.entries) {
		h.mu.Unlock()
		return false
	}
	ev := HashChangeEvent{
		OldHash:  h.entries[h.index],
		NewHash:  h.entries[target],
		OldIndex: h.index,
		NewIndex: target,
		Cause:    CauseTraverse,
	}
	h.index = target
	h.mu.Unlock()

	if ev.OldHash != ev.NewHash {
		h.emit(ev)
	}
	return true
}

func (h *History) emit(ev HashChangeEvent) {
	h.subsMu.Lock()
	listeners := make([]Listener, 0, len(h.subs))
	for id := 0; id < h.nextID; id++ {
		if l, ok := h.subs[id]; ok {
			listeners = append(listeners, l)
		}
	}
	h.subsMu.Unlock()

	for _, l := range listeners {
		l(ev)
	}
}
