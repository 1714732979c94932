package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/Hopsan/hopsan-sub008/pkg/adapters/sqlite"
	"github.com/Hopsan/hopsan-sub008/pkg/domain"
	"github.com/Hopsan/hopsan-sub008/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*sqlite.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "histories.db")
	store, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestSQLiteStore_Contract(t *testing.T) {
	store, _ := newStore(t)
	ports.RunHistoryStoreContract(t, store)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	store, path := newStore(t)
	ctx := context.Background()

	h := domain.NewHistory("pump.hmf")
	h.Posts = append(h.Posts, domain.PostEntry{Number: 0, Type: "Paste", Records: []domain.RecordEntry{
		{"what": "rename", "old_name": "A", "new_name": "B"},
	}})
	require.NoError(t, store.Save(ctx, "pump.hmf", h))
	require.NoError(t, store.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx, "pump.hmf")
	require.NoError(t, err)
	require.Len(t, loaded.Posts, 2)
	assert.Nil(t, loaded.Posts[0].Records)
	assert.Equal(t, "Paste", loaded.Posts[1].Type)
	assert.Equal(t, "B", loaded.Posts[1].Records[0]["new_name"])
	assert.Equal(t, 0, loaded.Position())
}

func TestSQLiteStore_SaveReplacesPosts(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	long := domain.NewHistory("doc")
	for i := 0; i < 5; i++ {
		long.Posts = append(long.Posts, domain.PostEntry{Number: i})
	}
	require.NoError(t, store.Save(ctx, "doc", long))

	short := domain.NewHistory("doc")
	short.Posts = append(short.Posts, domain.PostEntry{Number: 0})
	require.NoError(t, store.Save(ctx, "doc", short))

	loaded, err := store.Load(ctx, "doc")
	require.NoError(t, err)
	assert.Len(t, loaded.Posts, 2)
}

func TestSQLiteStore_SealedHistory(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	sealed := &domain.History{DocumentID: "secret", Encoding: "aes-gcm", Sealed: "b64payload"}
	require.NoError(t, store.Save(ctx, "secret", sealed))

	loaded, err := store.Load(ctx, "secret")
	require.NoError(t, err)
	assert.Equal(t, "aes-gcm", loaded.Encoding)
	assert.Equal(t, "b64payload", loaded.Sealed)
	assert.Empty(t, loaded.Posts)
}

func TestSQLiteStore_PositionMismatch(t *testing.T) {
	store, path := newStore(t)
	ctx := context.Background()

	h := domain.NewHistory("doc")
	h.Posts = append(h.Posts, domain.PostEntry{Number: 0}, domain.PostEntry{Number: 1})
	require.NoError(t, store.Save(ctx, "doc", h))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.ExecContext(ctx, "DELETE FROM posts WHERE document_id = ? AND number = 1", "doc")
	require.NoError(t, err)

	_, err = store.Load(ctx, "doc")
	require.ErrorIs(t, err, domain.ErrCorruptHistory)

	_, err = db.ExecContext(ctx, "UPDATE histories SET position = 0 WHERE document_id = ?", "doc")
	require.NoError(t, err)
	loaded, err := store.Load(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Position())
}
