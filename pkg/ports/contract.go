package ports

import (
	"context"
	"testing"
	"time"

	"github.com/Hopsan/hopsan-sub008/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contractHistory builds a small history with nested record fields so adapters that go
// through JSON or YAML are exercised on maps, lists and numbers.
func contractHistory(documentID string) *domain.History {
	h := domain.NewHistory(documentID)
	h.Posts = append(h.Posts,
		domain.PostEntry{
			Number: 0,
			Records: []domain.RecordEntry{
				{"what": "addedobject", "name": "Pump1", "snapshot": `{"name":"Pump1"}`},
			},
		},
		domain.PostEntry{
			Number: 1,
			Type:   "Paste",
			Records: []domain.RecordEntry{
				{"what": "movedobject", "name": "Pump1",
					"old_position": map[string]any{"x": 0.0, "y": 0.0},
					"new_position": map[string]any{"x": 100.0, "y": 100.0}},
			},
		},
	)
	return h
}

// RunHistoryStoreContract runs a suite of tests to verify that a HistoryStore implementation
// adheres to the defined interface contract.
func RunHistoryStoreContract(t *testing.T, store HistoryStore) {
	ctx := context.Background()
	documentID := "contract-test-doc-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		history := contractHistory(documentID)

		err := store.Save(ctx, documentID, history)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, documentID)
		require.NoError(t, err, "Load should not return error")
		require.Len(t, loaded.Posts, 3)
		assert.Equal(t, 1, loaded.Position())
		assert.Equal(t, "Paste", loaded.Posts[2].Type)
		assert.Equal(t, "addedobject", loaded.Posts[1].Records[0].What())
		assert.Equal(t, `{"name":"Pump1"}`, loaded.Posts[1].Records[0]["snapshot"])
		// Numbers may come back as float64 or int depending on the encoding.
		assert.NotNil(t, loaded.Posts[2].Records[0]["new_position"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+documentID)
		assert.ErrorIs(t, err, domain.ErrHistoryNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		err := store.Save(ctx, documentID, domain.NewHistory(documentID))
		require.NoError(t, err)

		loaded, err := store.Load(ctx, documentID)
		require.NoError(t, err)
		assert.Equal(t, domain.SentinelPost, loaded.Position())
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, documentID, contractHistory(documentID))
		require.NoError(t, err)

		err = store.Delete(ctx, documentID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, documentID)
		assert.ErrorIs(t, err, domain.ErrHistoryNotFound, "Load after Delete should return ErrHistoryNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := documentID + "-1"
		id2 := documentID + "-2"
		_ = store.Save(ctx, id1, domain.NewHistory(id1))
		_ = store.Save(ctx, id2, domain.NewHistory(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
