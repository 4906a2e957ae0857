// Package memory implements the cache contract in process memory. It carries
// the same atomicity guarantees as the redis driver and backs tests and dev
// mode.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/norviklabs/norvik/internal/auth/cache"
)

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Tests use it to step through TTL
// windows without sleeping.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Cache) Set(ctx context.Context, id cache.ID, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = id.TTL()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id.Key(key)] = entry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

func (c *Cache) Get(ctx context.Context, id cache.ID, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id.Key(key)]
	if !ok || e.expired(c.now()) {
		delete(c.entries, id.Key(key))
		return "", cache.ErrNotFound
	}
	return e.value, nil
}

func (c *Cache) Delete(ctx context.Context, id cache.ID, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id.Key(key))
	return nil
}

func (c *Cache) Consume(ctx context.Context, id cache.ID, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := id.Key(key)
	e, ok := c.entries[k]
	if !ok || e.expired(c.now()) {
		delete(c.entries, k)
		return "", cache.ErrNotFound
	}
	delete(c.entries, k)
	return e.value, nil
}

func (c *Cache) Increment(ctx context.Context, id cache.ID, key string, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		ttl = id.TTL()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	k := id.Key(key)
	now := c.now()

	e, ok := c.entries[k]
	if !ok || e.expired(now) {
		c.entries[k] = entry{value: "1", expiresAt: now.Add(ttl)}
		return 1, nil
	}

	n, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		return 0, err
	}
	n++
	// Keep the original window; TTL refreshes only on creation.
	c.entries[k] = entry{value: strconv.FormatInt(n, 10), expiresAt: e.expiresAt}
	return n, nil
}

func (c *Cache) Ping(ctx context.Context) error { return nil }

func (c *Cache) Close() error { return nil }
