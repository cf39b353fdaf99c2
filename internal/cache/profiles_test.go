package cache_test

import (
	"context"
	"testing"

	"threadline/internal/cache"
	"threadline/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestProfileCache_MissThenHit(t *testing.T) {
	mr, rdb := newRedis(t)
	store := testutil.NewSQLiteStore(t)
	alice := testutil.SeedProfile(t, store, "alice")
	bob := testutil.SeedProfile(t, store, "bob")

	spy := testutil.NewSpyStore(store.Profiles)
	pc := cache.NewProfileCache(rdb, spy, 0)
	ctx := context.Background()

	got, err := pc.GetMany(ctx, []string{alice.ID, bob.ID, alice.ID, "ghost"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "alice", got[alice.ID].Username)
	assert.Equal(t, int64(1), spy.Lists.Load())
	assert.True(t, mr.Exists(cache.ProfileKey(alice.ID)))
	assert.Positive(t, mr.TTL(cache.ProfileKey(alice.ID)))

	got, err = pc.GetMany(ctx, []string{alice.ID, bob.ID})
	require.NoError(t, err)
	assert.Equal(t, "bob", got[bob.ID].Username)
	assert.Equal(t, int64(1), spy.Lists.Load(), "second lookup is served from redis")
}

func TestProfileCache_RedisDownFallsBackToStore(t *testing.T) {
	mr, rdb := newRedis(t)
	store := testutil.NewSQLiteStore(t)
	alice := testutil.SeedProfile(t, store, "alice")
	mr.Close()

	pc := cache.NewProfileCache(rdb, store.Profiles, 0)
	got, err := pc.GetMany(context.Background(), []string{alice.ID})
	require.NoError(t, err)
	assert.Equal(t, "alice", got[alice.ID].Username)
}

func TestProfileCache_NilClient(t *testing.T) {
	store := testutil.NewSQLiteStore(t)
	alice := testutil.SeedProfile(t, store, "alice")
	spy := testutil.NewSpyStore(store.Profiles)
	pc := cache.NewProfileCache(nil, spy, 0)

	got, err := pc.GetMany(context.Background(), []string{alice.ID})
	require.NoError(t, err)
	assert.Contains(t, got, alice.ID)

	empty, err := pc.GetMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, int64(1), spy.Calls())
}

func TestProfileCache_Invalidate(t *testing.T) {
	mr, rdb := newRedis(t)
	store := testutil.NewSQLiteStore(t)
	alice := testutil.SeedProfile(t, store, "alice")
	pc := cache.NewProfileCache(rdb, store.Profiles, 0)
	ctx := context.Background()

	_, err := pc.GetMany(ctx, []string{alice.ID})
	require.NoError(t, err)
	require.True(t, mr.Exists(cache.ProfileKey(alice.ID)))

	pc.Invalidate(ctx, alice.ID)
	assert.False(t, mr.Exists(cache.ProfileKey(alice.ID)))
}

func TestInitRedis_EmptyAddrDisablesCache(t *testing.T) {
	cache.InitRedis("")
	assert.Nil(t, cache.GetClient())
}
