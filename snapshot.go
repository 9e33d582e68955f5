package markmon

import (
	"encoding/json"
	"os"
	"time"
)

// DefaultSnapshotMaxAge is how old a warm-start snapshot may be before it is
// discarded on load.
const DefaultSnapshotMaxAge = 45 * 24 * time.Hour

// SnapshotStore mirrors the canonical state to durable storage so a restart
// does not blank the dashboard.
type SnapshotStore interface {
	// Load returns the stored state, or false if the snapshot is missing,
	// corrupt, or stale.
	Load() (*CanonicalState, bool)
	// Save replaces the stored state atomically.
	Save(*CanonicalState) error
}

// FileSnapshotStore keeps the snapshot as a single JSON document, written to
// a temp file and renamed into place.
type FileSnapshotStore struct {
	path   string
	maxAge time.Duration
	now    func() time.Time
}

// NewFileSnapshotStore builds a store at path. A non-positive maxAge falls
// back to DefaultSnapshotMaxAge.
func NewFileSnapshotStore(path string, maxAge time.Duration) *FileSnapshotStore {
	if maxAge <= 0 {
		maxAge = DefaultSnapshotMaxAge
	}
	return &FileSnapshotStore{path: path, maxAge: maxAge, now: time.Now}
}

func (s *FileSnapshotStore) Load() (*CanonicalState, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, false
	}
	state := NewCanonicalState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, false
	}
	// The embedded server timestamp doubles as the snapshot age marker.
	if state.ServerTS == nil {
		return nil, false
	}
	age := s.now().Sub(time.UnixMilli(*state.ServerTS))
	if age > s.maxAge {
		return nil, false
	}
	if state.Monitor == nil {
		state.Monitor = make(map[string]TrackerEntry)
	}
	if state.Nodes == nil {
		state.Nodes = make(map[string]TrackerEntry)
	}
	return state, true
}

func (s *FileSnapshotStore) Save(state *CanonicalState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
