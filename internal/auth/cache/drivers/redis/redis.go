// Package redis implements the cache contract on a Redis server. Consume
// maps to GETDEL and Increment to an INCR/EXPIRE-NX pipeline, so the
// single-use and throttle guarantees hold across service replicas.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/norviklabs/norvik/internal/auth/cache"
)

type Cache struct {
	rdb *goredis.Client
}

// New connects a driver using a redis URL (redis://host:port/db).
func New(url string) (*Cache, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &Cache{rdb: goredis.NewClient(opts)}, nil
}

// NewWithClient wraps an existing client, useful for tests.
func NewWithClient(rdb *goredis.Client) *Cache {
	return &Cache{rdb: rdb}
}

func (c *Cache) Set(ctx context.Context, id cache.ID, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = id.TTL()
	}
	return c.rdb.Set(ctx, id.Key(key), value, ttl).Err()
}

func (c *Cache) Get(ctx context.Context, id cache.ID, key string) (string, error) {
	val, err := c.rdb.Get(ctx, id.Key(key)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", cache.ErrNotFound
		}
		return "", err
	}
	return val, nil
}

func (c *Cache) Delete(ctx context.Context, id cache.ID, key string) error {
	return c.rdb.Del(ctx, id.Key(key)).Err()
}

func (c *Cache) Consume(ctx context.Context, id cache.ID, key string) (string, error) {
	val, err := c.rdb.GetDel(ctx, id.Key(key)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", cache.ErrNotFound
		}
		return "", err
	}
	return val, nil
}

func (c *Cache) Increment(ctx context.Context, id cache.ID, key string, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		ttl = id.TTL()
	}

	k := id.Key(key)
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	// NX: the window is anchored to the first increment and never slides.
	pipe.ExpireNX(ctx, k, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}
