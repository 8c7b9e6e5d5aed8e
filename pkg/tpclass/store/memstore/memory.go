package memstore

import (
	"context"
	"sync"

	"github.com/textpresso/tpclass/pkg/tpclass/store"
)

// Store is an in-memory implementation of store.Store for tests and
// transient copies of a pipeline.
type Store struct {
	mu       sync.RWMutex
	snapshot *store.Snapshot
	saves    int
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{}
}

var _ store.Store = (*Store)(nil)

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveSnapshot implements store.Store.
func (s *Store) SaveSnapshot(ctx context.Context, snap store.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := snap.Validate(); err != nil {
		return err
	}
	c := snap.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = &c
	s.saves++
	return nil
}

// LoadSnapshot implements store.Store.
func (s *Store) LoadSnapshot(ctx context.Context) (store.Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return store.Snapshot{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return store.Snapshot{}, false, nil
	}
	return s.snapshot.Clone(), true, nil
}

// Saves returns how many snapshots have been written.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
