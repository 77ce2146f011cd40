package domain

import "reflect"

// SnapshotDiff represents the changes between two snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type SnapshotDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	Hash  *string `json:"hash,omitempty"`
	Route *Route  `json:"route,omitempty"`
	Ready *bool   `json:"ready,omitempty"`
	View  *View   `json:"view,omitempty"`
	Index *int    `json:"index,omitempty"`

	// Entries is sent whole whenever the history changed, since a push after
	// going back truncates the forward entries.
	Entries []string `json:"entries,omitempty"`
}

// Diff calculates the difference between old and new.
// If old is nil, it returns a diff representing the entire new snapshot (initial load).
// It returns nil when nothing changed.
func Diff(old, new *Snapshot) *SnapshotDiff {
	if new == nil {
		return nil
	}

	diff := &SnapshotDiff{SessionID: new.SessionID}

	if old == nil || old.Hash != new.Hash {
		diff.Hash = &new.Hash
	}
	if old == nil || old.Route != new.Route {
		diff.Route = &new.Route
	}
	if old == nil || old.Ready != new.Ready {
		diff.Ready = &new.Ready
	}
	if new.View != nil && (old == nil || !reflect.DeepEqual(old.View, new.View)) {
		v := *new.View
		diff.View = &v
	}
	if old == nil || old.Index != new.Index {
		diff.Index = &new.Index
	}
	if old == nil || !reflect.DeepEqual(old.Entries, new.Entries) {
		diff.Entries = new.Entries
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return d.Hash == nil &&
		d.Route == nil &&
		d.Ready == nil &&
		d.View == nil &&
		d.Index == nil &&
		len(d.Entries) == 0
}
