package ports

import (
	"context"

	"github.com/Hopsan/hopsan-sub008/pkg/domain"
)

// HistoryStore defines the interface for persisting undo histories.
// Histories are keyed by document ID so that undo survives a save/reload cycle.
type HistoryStore interface {
	// Save persists the history for a given document ID.
	Save(ctx context.Context, documentID string, history *domain.History) error

	// Load retrieves the history for a given document ID.
	// Returns domain.ErrHistoryNotFound if nothing was saved.
	Load(ctx context.Context, documentID string) (*domain.History, error)

	// Delete removes the history for a given document ID.
	Delete(ctx context.Context, documentID string) error

	// List returns the IDs of every stored history.
	List(ctx context.Context) ([]string, error)
}
