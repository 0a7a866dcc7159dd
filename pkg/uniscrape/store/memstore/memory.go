package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cognicore/uniscrape/pkg/uniscrape/internalerr"
	"github.com/cognicore/uniscrape/pkg/uniscrape/store"
)

var _ store.Store = (*Store)(nil)

// Store is an in-memory implementation of store.Store for tests and dry
// runs.
type Store struct {
	mu      sync.RWMutex
	ids     *store.IDs
	order   []string
	records map[string]store.Record
	closed  bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		ids:     store.NewIDs(),
		records: make(map[string]store.Record),
	}
}

// Close implements store.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Append implements store.Store.
func (s *Store) Append(ctx context.Context, r store.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", internalerr.ErrStoreUnavailable
	}

	id := s.ids.New(time.Now())
	if r.Metadata.Metrics != nil {
		m := *r.Metadata.Metrics
		r.Metadata.Metrics = &m
	}
	s.records[id] = r
	s.order = append(s.order, id)
	return id, nil
}

// Get returns the record with the given ID.
func (s *Store) Get(id string) (store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return store.Record{}, fmt.Errorf("document %s: %w", id, internalerr.ErrNotFound)
	}
	return r, nil
}

// Records returns every record in append order.
func (s *Store) Records() []store.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out
}

// Sources returns the provenance of every record in append order.
func (s *Store) Sources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id].Metadata.Source)
	}
	return out
}
