package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Hopsan/hopsan-sub008/pkg/domain"
)

// Store implements ports.HistoryStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.History
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.History),
	}
}

// Save persists a deep copy of the history.
func (s *Store) Save(ctx context.Context, documentID string, history *domain.History) error {
	copied := history.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[documentID] = copied
	return nil
}

// Load retrieves the history from memory.
func (s *Store) Load(ctx context.Context, documentID string) (*domain.History, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[documentID]
	if !ok {
		return nil, domain.ErrHistoryNotFound
	}

	// Copy on read so the caller can't mutate store state through the pointer
	return history.Clone(), nil
}

// Delete removes the history.
func (s *Store) Delete(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, documentID)
	return nil
}

// List returns the stored document IDs, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
