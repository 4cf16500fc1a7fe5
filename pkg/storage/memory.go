package storage

import (
	"context"
	"slices"
	"sync"
)

// DefaultMemorySnapshots is the capacity of a MemoryStore built with 0.
const DefaultMemorySnapshots = 32

// MemoryStore keeps the most recent snapshots in memory. When full, the
// oldest snapshot is dropped.
type MemoryStore struct {
	mu    sync.RWMutex
	max   int
	order []string // ids, oldest first
	byID  map[string]*Snapshot
}

// NewMemoryStore returns a store holding at most max snapshots.
func NewMemoryStore(max int) *MemoryStore {
	if max <= 0 {
		max = DefaultMemorySnapshots
	}
	return &MemoryStore{max: max, byID: make(map[string]*Snapshot)}
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[snap.ID]; ok {
		s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == snap.ID })
	}
	s.byID[snap.ID] = snap
	s.order = append(s.order, snap.ID)

	for len(s.order) > s.max {
		delete(s.byID, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return snap, nil
}

// Latest implements Store.
func (s *MemoryStore) Latest(context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return nil, ErrNotFound
	}
	return s.byID[s.order[len(s.order)-1]], nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, limit int) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Summary{}
	for i := len(s.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.byID[s.order[i]].Summary())
	}
	return out, nil
}

// Close implements Store.
func (s *MemoryStore) Close(context.Context) error { return nil }

var _ Store = (*MemoryStore)(nil)
