package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"relove-chat/internal/infrastructure/cache/port"
)

const (
	// keyspace prefixes every key the chat API writes.
	keyspace    = "relove:"
	dialTimeout = 3 * time.Second
)

// RedisCache stores per-participant conversation lists in Redis.
type RedisCache struct {
	rdb *redis.Client
}

var _ port.Cache = (*RedisCache)(nil)

// NewRedisCache opens the conversation-list cache at url and checks that the
// server answers.
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	if url == "" {
		return nil, errors.New("conversation cache: REDIS_URL is not set")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("conversation cache: %w", err)
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("conversation cache unreachable at %s: %w", opt.Addr, err)
	}
	return &RedisCache{rdb: rdb}, nil
}

// Get returns the cached list stored under key.
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	raw, err := c.rdb.Get(ctx, keyspace+key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", port.ErrMiss
	case err != nil:
		return "", fmt.Errorf("conversation cache get %q: %w", key, err)
	}
	return raw, nil
}

// Set stores a list. Lists without a ttl live until the next invalidation.
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, keyspace+key, value, max(ttl, 0)).Err(); err != nil {
		return fmt.Errorf("conversation cache set %q: %w", key, err)
	}
	return nil
}

// Del invalidates the lists of every participant a message touched. UNLINK
// frees the values off the request path.
func (c *RedisCache) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	spaced := make([]string, len(keys))
	for i, k := range keys {
		spaced[i] = keyspace + k
	}
	n, err := c.rdb.Unlink(ctx, spaced...).Result()
	if err != nil {
		return 0, fmt.Errorf("conversation cache invalidate: %w", err)
	}
	return n, nil
}

func (c *RedisCache) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

func (c *RedisCache) Close() error { return c.rdb.Close() }
