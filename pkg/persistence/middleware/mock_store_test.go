package middleware_test

import (
	"context"

	"github.com/Hopsan/hopsan-sub008/pkg/domain"
	"github.com/Hopsan/hopsan-sub008/pkg/ports"
)

// MockStore is a simple map-based store for testing middleware.
type MockStore struct {
	data map[string]*domain.History
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.History),
	}
}

func (s *MockStore) Save(ctx context.Context, documentID string, history *domain.History) error {
	s.data[documentID] = history
	return nil
}

func (s *MockStore) Load(ctx context.Context, documentID string) (*domain.History, error) {
	history, ok := s.data[documentID]
	if !ok {
		return nil, domain.ErrHistoryNotFound
	}
	return history, nil
}

func (s *MockStore) Delete(ctx context.Context, documentID string) error {
	delete(s.data, documentID)
	return nil
}

func (s *MockStore) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

var _ ports.HistoryStore = (*MockStore)(nil)

func sampleHistory(id string) *domain.History {
	h := domain.NewHistory(id)
	h.Posts = append(h.Posts, domain.PostEntry{
		Number: 0,
		Type:   "Edit",
		Records: []domain.RecordEntry{
			{"what": "changedparameter", "name": "Valve", "parameter": "secret_gain", "old_value": "1", "new_value": "my-secret-sauce"},
		},
	})
	return h
}
