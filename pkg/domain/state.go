package domain

// SessionState is the persisted form of a page session.
// Entries are the hash fragments of the browser history, Index points at the
// active one. Route is the last route the guest displayed.
// Sealed holds the whole state encrypted when a store encrypts at rest; the
// other fields are then empty.
type SessionState struct {
	SessionID string   `json:"session_id"`
	Entries   []string `json:"entries"`
	Index     int      `json:"index"`
	Route     Route    `json:"route,omitempty"`
	Sealed    string   `json:"sealed,omitempty"`
}

// Hash returns the active history entry, or "" when the history is empty.
func (s *SessionState) Hash() string {
	if s == nil || s.Index < 0 || s.Index >= len(s.Entries) {
		return ""
	}
	return s.Entries[s.Index]
}

// Snapshot is a point-in-time view of both frames of a page.
type Snapshot struct {
	SessionID string   `json:"session_id"`
	Hash      string   `json:"hash"`
	Route     Route    `json:"route"`
	Ready     bool     `json:"ready"`
	View      *View    `json:"view,omitempty"`
	Entries   []string `json:"entries"`
	Index     int      `json:"index"`
	Renders   int      `json:"renders"`
}

// Synced reports whether the hash and the displayed route agree.
func (s Snapshot) Synced() bool {
	if s.View == nil {
		return false
	}
	r, _ := ParseHash(s.Hash)
	return r == s.Route
}

// SessionState extracts the persisted part of the snapshot.
func (s Snapshot) SessionState() *SessionState {
	entries := make([]string, len(s.Entries))
	copy(entries, s.Entries)
	return &SessionState{
		SessionID: s.SessionID,
		Entries:   entries,
		Index:     s.Index,
		Route:     s.Route,
	}
}
