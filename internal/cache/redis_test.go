package cache_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/muzz-match/internal/cache"
)

func setupRedis(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := &cache.RedisCache{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestLikeCount_MissThenHit(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedis(t)

	_, ok, err := c.GetLikeCount(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.UpdateLikeCount(ctx, 7, 12))
	count, ok, err := c.GetLikeCount(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(12), count)
	assert.True(t, mr.TTL("likes:count:7") > 0)
}

func TestLikeCount_Invalidate(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedis(t)

	require.NoError(t, c.UpdateLikeCount(ctx, 1, 3))
	require.NoError(t, c.UpdateLikeCount(ctx, 2, 4))
	require.NoError(t, c.InvalidateLikeCount(ctx, 1, 2))

	assert.False(t, mr.Exists("likes:count:1"))
	assert.False(t, mr.Exists("likes:count:2"))
	assert.NoError(t, c.InvalidateLikeCount(ctx))
}

func TestLikeCount_WriteSkippedAfterInvalidation(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedis(t)

	v, err := c.LikeCountVersion(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	// a like lands between the DB count and the cache write
	require.NoError(t, c.InvalidateLikeCount(ctx, 4))
	ok, err := c.UpdateLikeCountIfVersion(ctx, 4, 10, v)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("likes:count:4"))
	assert.True(t, mr.TTL("likes:gen:4") > 0)

	v, err = c.LikeCountVersion(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	ok, err = c.UpdateLikeCountIfVersion(ctx, 4, 11, v)
	require.NoError(t, err)
	assert.True(t, ok)
	count, hit, err := c.GetLikeCount(ctx, 4)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int64(11), count)
}

func TestDailyPick_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := setupRedis(t)

	_, ok, err := c.GetDailyPick(ctx, 5, "2026-10-15")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetDailyPick(ctx, 5, "2026-10-15", 42))
	target, ok, err := c.GetDailyPick(ctx, 5, "2026-10-15")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(42), target)

	// another day is a different key
	_, ok, err = c.GetDailyPick(ctx, 5, "2026-10-16")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidateUser(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedis(t)

	require.NoError(t, c.UpdateLikeCount(ctx, 9, 1))
	require.NoError(t, c.SetDailyPick(ctx, 9, "2026-10-14", 1))
	require.NoError(t, c.SetDailyPick(ctx, 9, "2026-10-15", 2))
	require.NoError(t, c.SetDailyPick(ctx, 10, "2026-10-15", 3))

	require.NoError(t, c.InvalidateUser(ctx, 9))

	assert.False(t, mr.Exists("likes:count:9"))
	assert.False(t, mr.Exists("daily:pick:9:2026-10-14"))
	assert.False(t, mr.Exists("daily:pick:9:2026-10-15"))
	assert.True(t, mr.Exists("daily:pick:10:2026-10-15"))
}
