package stores

import (
	"context"
	"testing"

	"github.com/colonyops/inbox/internal/core/kv"
	"github.com/colonyops/inbox/internal/data/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKVStore(t *testing.T) (*KVStore, *db.DB) {
	t.Helper()
	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return NewKVStore(database), database
}

func TestKVStore_SetAndGet(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestKVStore(t)

	type payload struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}

	require.NoError(t, store.Set(ctx, "test-key", payload{Name: "hello", Value: 42}))

	var got payload
	require.NoError(t, store.Get(ctx, "test-key", &got))
	assert.Equal(t, "hello", got.Name)
	assert.Equal(t, 42, got.Value)
}

func TestKVStore_GetNotFound(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestKVStore(t)

	var v string
	err := store.Get(ctx, "nonexistent", &v)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestKVStore_GetCorrupt(t *testing.T) {
	ctx := context.Background()
	store, database := newTestKVStore(t)

	_, err := database.Conn().ExecContext(ctx,
		"INSERT INTO kv_store (key, value, created_at, updated_at) VALUES (?, ?, 1, 1)",
		"notifications:list", []byte("{broken"),
	)
	require.NoError(t, err)

	var v []string
	err = store.Get(ctx, "notifications:list", &v)
	require.ErrorIs(t, err, kv.ErrCorrupt)
	assert.NotErrorIs(t, err, kv.ErrNotFound)
}

func TestKVStore_SetOverwrite(t *testing.T) {
	ctx := context.Background()
	store, database := newTestKVStore(t)

	require.NoError(t, store.Set(ctx, "key", "first"))
	require.NoError(t, store.Set(ctx, "key", "second"))

	var got string
	require.NoError(t, store.Get(ctx, "key", &got))
	assert.Equal(t, "second", got)

	var rows int
	require.NoError(t, database.Conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM kv_store").Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestKVStore_Delete(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestKVStore(t)

	require.NoError(t, store.Set(ctx, "key", "value"))
	require.NoError(t, store.Delete(ctx, "key"))
	require.NoError(t, store.Delete(ctx, "key"), "deleting twice is fine")

	has, err := store.Has(ctx, "key")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestKVStore_Has(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestKVStore(t)

	has, err := store.Has(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, store.Set(ctx, "exists", true))
	has, err = store.Has(ctx, "exists")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestKVStore_ListKeys(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestKVStore(t)

	require.NoError(t, store.Set(ctx, "b", 1))
	require.NoError(t, store.Set(ctx, "a", 2))
	require.NoError(t, store.Set(ctx, "c", 3))

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestKVStore_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := db.Open(dir, db.DefaultOpenOptions())
	require.NoError(t, err)
	require.NoError(t, NewKVStore(first).Set(ctx, "notifications:unread_count", 3))
	require.NoError(t, first.Close())

	second, err := db.Open(dir, db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	var n int
	require.NoError(t, NewKVStore(second).Get(ctx, "notifications:unread_count", &n))
	assert.Equal(t, 3, n)
}
