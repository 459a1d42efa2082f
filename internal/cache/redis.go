package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/muzz-match/internal/config"
)

const (
	likeCountTTL = time.Hour
	likeGenTTL   = 2 * likeCountTTL
	dailyPickTTL = 26 * time.Hour // outlives the day in any timezone
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

// KeyForLikeCount generates Redis key for a user's received-like count
func (c *RedisCache) KeyForLikeCount(userID uint64) string {
	return fmt.Sprintf("likes:count:%d", userID)
}

// KeyForLikeGen generates Redis key for the invalidation counter of a like count.
func (c *RedisCache) KeyForLikeGen(userID uint64) string {
	return fmt.Sprintf("likes:gen:%d", userID)
}

// KeyForDailyPick generates Redis key for a user's pick on day (YYYY-MM-DD).
func (c *RedisCache) KeyForDailyPick(userID uint64, day string) string {
	return fmt.Sprintf("daily:pick:%d:%s", userID, day)
}

func (c *RedisCache) UpdateLikeCount(ctx context.Context, userID uint64, count int64) error {
	// Always refresh TTL when updating
	return c.Client.Set(ctx, c.KeyForLikeCount(userID), count, likeCountTTL).Err()
}

// GetLikeCount returns the cached count. ok is false on a cache miss.
func (c *RedisCache) GetLikeCount(ctx context.Context, userID uint64) (count int64, ok bool, err error) {
	key := c.KeyForLikeCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, likeCountTTL).Err()
	count, err = strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

// LikeCountVersion returns the invalidation counter of userID's like count.
// Read it before counting and pass it to UpdateLikeCountIfVersion.
func (c *RedisCache) LikeCountVersion(ctx context.Context, userID uint64) (int64, error) {
	v, err := c.Client.Get(ctx, c.KeyForLikeGen(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// UpdateLikeCountIfVersion stores count only while the invalidation counter
// still equals version. ok is false when an invalidation got there first.
func (c *RedisCache) UpdateLikeCountIfVersion(ctx context.Context, userID uint64, count, version int64) (ok bool, err error) {
	genKey := c.KeyForLikeGen(userID)
	err = c.Client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if errors.Is(err, redis.Nil) {
			cur = 0
		} else if err != nil {
			return err
		}
		if cur != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.KeyForLikeCount(userID), count, likeCountTTL)
			return nil
		})
		if err == nil {
			ok = true
		}
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return ok, err
}

// InvalidateLikeCount drops the cached count and bumps its invalidation
// counter; the next read goes to the DB.
func (c *RedisCache) InvalidateLikeCount(ctx context.Context, userIDs ...uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := c.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Incr(ctx, c.KeyForLikeGen(id))
			pipe.Expire(ctx, c.KeyForLikeGen(id), likeGenTTL)
			pipe.Del(ctx, c.KeyForLikeCount(id))
		}
		return nil
	})
	return err
}

// SetDailyPick caches the target picked for userID on day.
func (c *RedisCache) SetDailyPick(ctx context.Context, userID uint64, day string, targetID uint64) error {
	return c.Client.Set(ctx, c.KeyForDailyPick(userID, day), targetID, dailyPickTTL).Err()
}

// GetDailyPick returns the cached target for userID on day. ok is false on a miss.
func (c *RedisCache) GetDailyPick(ctx context.Context, userID uint64, day string) (targetID uint64, ok bool, err error) {
	val, err := c.Client.Get(ctx, c.KeyForDailyPick(userID, day)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	targetID, err = strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return targetID, true, nil
}

// InvalidateUser drops every key owned by userID. Used on account deletion.
func (c *RedisCache) InvalidateUser(ctx context.Context, userID uint64) error {
	keys := []string{c.KeyForLikeCount(userID)}
	iter := c.Client.Scan(ctx, 0, fmt.Sprintf("daily:pick:%d:*", userID), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return c.Client.Del(ctx, keys...).Err()
}
