package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	key := Key{ChatID: -100, UserID: 7}

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	in := &Session{
		State:    StateAwaitingAttachment,
		FormName: "yahoo",
		GroupID:  -100,
		Fields:   []string{"Ad Soyad", "Dekont"},
		Pending:  []string{"Jane Doe"},
	}
	require.NoError(t, store.Set(ctx, key, in))

	got, err = store.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, StateAwaitingAttachment, got.State)
	assert.Equal(t, "yahoo", got.FormName)
	assert.Equal(t, int64(-100), got.GroupID)
	assert.Equal(t, []string{"Ad Soyad", "Dekont"}, got.Fields)
	assert.Equal(t, []string{"Jane Doe"}, got.Pending)

	other, err := store.Get(ctx, Key{ChatID: -100, UserID: 8})
	require.NoError(t, err)
	assert.Nil(t, other, "sessions are private to their (chat, user) key")

	require.NoError(t, store.Clear(ctx, key))
	got, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(time.Minute))
}

func TestMemoryStoreCopiesSlices(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	key := Key{ChatID: 1, UserID: 1}

	pending := []string{"a"}
	require.NoError(t, store.Set(ctx, key, &Session{State: StateAwaitingAttachment, Pending: pending}))
	pending[0] = "mutated"

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	got.Pending[0] = "also mutated"

	again, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, again.Pending)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore(30 * time.Minute)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, Key{1, 1}, &Session{State: StateAwaitingValues}))
	require.NoError(t, store.Set(ctx, Key{1, 2}, &Session{State: StateAwaitingValues}))

	now = now.Add(29 * time.Minute)
	got, err := store.Get(ctx, Key{1, 1})
	require.NoError(t, err)
	assert.NotNil(t, got)

	now = now.Add(2 * time.Minute)
	got, err = store.Get(ctx, Key{1, 1})
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 0, store.Sweep())
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	t.Cleanup(func() { rdb.Close() })

	exerciseStore(t, NewRedisStore(rdb, time.Minute))
}
