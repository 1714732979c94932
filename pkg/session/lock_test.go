package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/Hopsan/hopsan-sub008/pkg/adapters/memory"
	"github.com/Hopsan/hopsan-sub008/pkg/domain"
)

// MockStore structure
type MockStore struct{}

func (m *MockStore) Save(ctx context.Context, documentID string, history *domain.History) error {
	return nil
}
func (m *MockStore) Load(ctx context.Context, documentID string) (*domain.History, error) {
	return nil, domain.ErrHistoryNotFound
}
func (m *MockStore) Delete(ctx context.Context, documentID string) error { return nil }
func (m *MockStore) List(ctx context.Context) ([]string, error)          { return nil, nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(&MockStore{})
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("model-%d.hmf", i)
		_, _ = mgr.Open(ctx, id, memory.NewDocument())
		_ = mgr.Close(ctx, id)
	}

	lockCount := len(mgr.locks)
	t.Logf("Documents opened: %d, Locks Leaked: %d", count, lockCount)

	if lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Close", lockCount)
	}
	if len(mgr.sessions) != 0 {
		t.Errorf("Expected no open sessions, got %d", len(mgr.sessions))
	}
}
