package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorukot/apikeys/internal/models"
)

// setupMiniRedis creates a miniredis server and a store on top of it.
func setupMiniRedis(t *testing.T, prefix string) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(client, prefix)
	t.Cleanup(func() { _ = store.Close() })

	return mr, store
}

func TestRedisStoreCreateAndLookup(t *testing.T) {
	mr, store := setupMiniRedis(t, "")
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, 1234567890, models.Credential{Org: "acme", AuthLevel: 3}))

	assert.Equal(t, "acme", mr.HGet("1234567890", "org"))
	assert.Equal(t, "3", mr.HGet("1234567890", "level"))

	cred, err := store.Lookup(ctx, 1234567890)
	require.NoError(t, err)
	assert.Equal(t, models.Credential{Org: "acme", AuthLevel: 3}, cred)

	exists, err := store.Exists(ctx, 1234567890)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRedisStoreCreateRejectsExistingKey(t *testing.T) {
	mr, store := setupMiniRedis(t, "")
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, 1111111111, models.Credential{Org: "first", AuthLevel: 1}))
	err := store.Create(ctx, 1111111111, models.Credential{Org: "second", AuthLevel: 2})
	assert.ErrorIs(t, err, ErrKeyExists)

	assert.Equal(t, "first", mr.HGet("1111111111", "org"))
	assert.Equal(t, "1", mr.HGet("1111111111", "level"))
}

func TestRedisStoreLookupMissing(t *testing.T) {
	_, store := setupMiniRedis(t, "")

	_, err := store.Lookup(context.Background(), 2222222222)
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := store.Exists(context.Background(), 2222222222)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisStoreLookupPartialRecord(t *testing.T) {
	mr, store := setupMiniRedis(t, "")
	mr.HSet("3333333333", "org", "half")

	_, err := store.Lookup(context.Background(), 3333333333)
	assert.ErrorIs(t, err, ErrCorrupt)

	mr.HSet("4444444444", "org", "bad", "level", "high")
	_, err = store.Lookup(context.Background(), 4444444444)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestRedisStorePrefix(t *testing.T) {
	mr, store := setupMiniRedis(t, "apikey:")

	require.NoError(t, store.Create(context.Background(), 5555555555, models.Credential{Org: "p", AuthLevel: 0}))
	assert.True(t, mr.Exists("apikey:5555555555"))
	assert.False(t, mr.Exists("5555555555"))
}

func TestRedisStoreConnectionErrors(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	store := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), "")
	defer store.Close()
	mr.Close()
	ctx := context.Background()

	_, err = store.Exists(ctx, 1234567890)
	assert.Error(t, err)

	_, err = store.Lookup(ctx, 1234567890)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	err = store.Create(ctx, 1234567890, models.Credential{Org: "x"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrKeyExists)

	assert.Error(t, store.Ping(ctx))
}

func TestNewRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := NewRedisStore(context.Background(), "redis://"+mr.Addr(), "")
	require.NoError(t, err)
	defer store.Close()
	assert.NoError(t, store.Ping(context.Background()))

	_, err = NewRedisStore(context.Background(), "not-a-url", "")
	assert.Error(t, err)
}
