package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/colonyops/inbox/internal/core/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore connects to INBOX_TEST_REDIS_URL or skips.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("INBOX_TEST_REDIS_URL")
	if url == "" {
		t.Skip("INBOX_TEST_REDIS_URL not set")
	}

	cfg := DefaultConfig()
	cfg.URL = url
	cfg.RetryAttempts = 1

	client, err := Connect(context.Background(), cfg)
	require.NoError(t, err)

	store := NewStore(client, fmt.Sprintf("inbox-test-%d:", time.Now().UnixNano()))
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := store.ListKeys(ctx)
		for _, k := range keys {
			_ = store.Delete(ctx, k)
		}
		_ = store.Close()
	})
	return store
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Set(ctx, "notifications:list", []string{"a"}))

	var got []string
	require.NoError(t, store.Get(ctx, "notifications:list", &got))
	assert.Equal(t, []string{"a"}, got)

	has, err := store.Has(ctx, "notifications:list")
	require.NoError(t, err)
	assert.True(t, has)

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"notifications:list"}, keys)

	require.NoError(t, store.Delete(ctx, "notifications:list"))
	err = store.Get(ctx, "notifications:list", &got)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestStore_Corrupt(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.client.Set(ctx, store.prefix+"bad", "{", 0).Err())

	var v map[string]any
	err := store.Get(ctx, "bad", &v)
	assert.ErrorIs(t, err, kv.ErrCorrupt)
}

func TestConnect_Errors(t *testing.T) {
	_, err := Connect(context.Background(), Config{})
	require.ErrorIs(t, err, ErrEmptyConnectionURL)

	_, err = Connect(context.Background(), Config{URL: "not-a-url"})
	require.ErrorIs(t, err, ErrFailedToParseConnString)
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := Config{
		URL:            "redis://127.0.0.1:1/0",
		RetryAttempts:  2,
		RetryInterval:  10 * time.Millisecond,
		ConnectTimeout: 2 * time.Second,
	}

	_, err := Connect(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrNotReady)
}
