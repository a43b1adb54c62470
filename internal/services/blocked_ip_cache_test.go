package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prefeitura-rio/app-sentinela/internal/logging"
	"github.com/prefeitura-rio/app-sentinela/internal/models"
	"github.com/prefeitura-rio/app-sentinela/internal/redisclient"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cacheFixture struct {
	cache   *BlockedIPCache
	userIPs *fakeUserIPStore
	global  *fakeBlockedIPStore
	redis   *redisclient.Client
	mr      *miniredis.Miniredis
}

func newCacheFixture(t *testing.T) *cacheFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisclient.NewClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	userIPs := newFakeUserIPStore()
	global := newFakeBlockedIPStore()

	return &cacheFixture{
		cache:   NewBlockedIPCache(client, userIPs, global, 30*time.Minute, logging.Logger),
		userIPs: userIPs,
		global:  global,
		redis:   client,
		mr:      mr,
	}
}

func seedUserIP(t *testing.T, store *fakeUserIPStore, userID, ip string, blocked bool) {
	t.Helper()
	require.NoError(t, store.BulkUpsert(context.Background(), []models.UserIPPair{{UserID: userID, IP: ip}}, time.Now()))
	if blocked {
		require.NoError(t, store.SetBlocked(context.Background(), userID, ip, true))
	}
}

func TestBlockedIPCache_NotBlocked(t *testing.T) {
	f := newCacheFixture(t)

	blocked, err := f.cache.IsBlocked(context.Background(), "user-1", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestBlockedIPCache_GloballyBlocked(t *testing.T) {
	f := newCacheFixture(t)
	ctx := context.Background()

	_, err := f.global.Block(ctx, "10.0.0.1", "", "")
	require.NoError(t, err)

	blocked, err := f.cache.IsBlocked(ctx, "user-1", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, blocked)

	// A global block applies to every user
	blocked, err = f.cache.IsBlocked(ctx, "user-2", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestBlockedIPCache_UserBlocked(t *testing.T) {
	f := newCacheFixture(t)
	ctx := context.Background()

	seedUserIP(t, f.userIPs, "user-1", "10.0.0.1", true)

	blocked, err := f.cache.IsBlocked(ctx, "user-1", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, blocked)

	// The block is scoped to the pair, not the IP
	blocked, err = f.cache.IsBlocked(ctx, "user-2", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestBlockedIPCache_MissRepopulates(t *testing.T) {
	f := newCacheFixture(t)
	ctx := context.Background()

	seedUserIP(t, f.userIPs, "user-1", "10.0.0.1", true)

	_, err := f.cache.IsBlocked(ctx, "user-1", "10.0.0.1")
	require.NoError(t, err)

	// Both entries were written on the read-through
	assert.True(t, f.mr.Exists(blockedGlobalKey))
	assert.True(t, f.mr.Exists(blockedUserKey("user-1")))

	// The per-user entry is TTL-bounded; the global one is not
	assert.Greater(t, f.mr.TTL(blockedUserKey("user-1")), time.Duration(0))
	assert.Equal(t, time.Duration(0), f.mr.TTL(blockedGlobalKey))
}

func TestBlockedIPCache_ServesFromCache(t *testing.T) {
	f := newCacheFixture(t)
	ctx := context.Background()

	seedUserIP(t, f.userIPs, "user-1", "10.0.0.1", true)
	_, err := f.cache.IsBlocked(ctx, "user-1", "10.0.0.1")
	require.NoError(t, err)

	// A store-side change is invisible until the entry is refreshed
	require.NoError(t, f.userIPs.SetBlocked(ctx, "user-1", "10.0.0.1", false))

	blocked, err := f.cache.IsBlocked(ctx, "user-1", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, blocked)

	_, err = f.cache.RefreshUser(ctx, "user-1")
	require.NoError(t, err)

	blocked, err = f.cache.IsBlocked(ctx, "user-1", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestBlockedIPCache_CorruptEntryRebuilt(t *testing.T) {
	f := newCacheFixture(t)
	ctx := context.Background()

	seedUserIP(t, f.userIPs, "user-1", "10.0.0.1", true)
	require.NoError(t, f.mr.Set(blockedUserKey("user-1"), "not-json"))

	blocked, err := f.cache.IsBlocked(ctx, "user-1", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, blocked)

	data, err := f.redis.Get(ctx, blockedUserKey("user-1")).Result()
	require.NoError(t, err)
	assert.JSONEq(t, `["10.0.0.1"]`, data)
}

func TestBlockedIPCache_BlockGlobal(t *testing.T) {
	f := newCacheFixture(t)
	ctx := context.Background()

	row, err := f.cache.BlockGlobal(ctx, "10.0.0.1", "abuse", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", row.IP)
	assert.Equal(t, "abuse", row.Note)
	assert.Equal(t, "admin-1", row.CreatedBy)

	// The mutation is pushed into the cache before returning
	data, err := f.redis.Get(ctx, blockedGlobalKey).Result()
	require.NoError(t, err)
	assert.JSONEq(t, `["10.0.0.1"]`, data)

	_, err = f.cache.BlockGlobal(ctx, "10.0.0.1", "", "")
	assert.ErrorIs(t, err, models.ErrBlockedIPExists)
}

func TestBlockedIPCache_UnblockGlobal(t *testing.T) {
	f := newCacheFixture(t)
	ctx := context.Background()

	_, err := f.cache.BlockGlobal(ctx, "10.0.0.1", "", "")
	require.NoError(t, err)

	require.NoError(t, f.cache.UnblockGlobal(ctx, "10.0.0.1"))

	blocked, err := f.cache.IsBlocked(ctx, "user-1", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, blocked)

	assert.ErrorIs(t, f.cache.UnblockGlobal(ctx, "10.0.0.1"), models.ErrBlockedIPNotFound)
}

func TestBlockedIPCache_SetUserIPBlocked(t *testing.T) {
	f := newCacheFixture(t)
	ctx := context.Background()

	seedUserIP(t, f.userIPs, "user-1", "10.0.0.1", false)

	require.NoError(t, f.cache.SetUserIPBlocked(ctx, "user-1", "10.0.0.1", true))

	blocked, err := f.cache.IsBlocked(ctx, "user-1", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, blocked)

	require.NoError(t, f.cache.SetUserIPBlocked(ctx, "user-1", "10.0.0.1", false))

	blocked, err = f.cache.IsBlocked(ctx, "user-1", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, blocked)

	err = f.cache.SetUserIPBlocked(ctx, "user-1", "10.9.9.9", true)
	assert.ErrorIs(t, err, models.ErrUserIPPairNotFound)
}

func TestBlockedIPCache_EmptyListIsCached(t *testing.T) {
	f := newCacheFixture(t)
	ctx := context.Background()

	_, err := f.cache.RefreshUser(ctx, "user-1")
	require.NoError(t, err)

	// "cached, nothing blocked" is an explicit empty array, not a missing key
	data, err := f.redis.Get(ctx, blockedUserKey("user-1")).Result()
	require.NoError(t, err)
	assert.JSONEq(t, "[]", data)
}
