// Package memory implements an in-memory state backend for tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"dreammover/internal/state/core"
)

// Store implements core.Backend backed by process memory. Intended for tests.
type Store struct {
	mu     sync.RWMutex
	docs   map[string][]byte
	writes int
}

// New returns an in-memory state store.
func New() *Store { return &Store{docs: make(map[string][]byte)} }

// Driver returns the backend driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Get returns a copy of the stored document.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	doc, ok := s.docs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, core.ErrNotFound
	}
	return cloneBytes(doc), nil
}

// Put replaces the document stored under key.
func (s *Store) Put(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = cloneBytes(payload)
	s.writes++
	return nil
}

// Writes returns the number of Put calls observed, for assertions on write-free paths.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Keys lists stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.docs))
	for k := range s.docs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func cloneBytes(in []byte) []byte {
	if in == nil {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
