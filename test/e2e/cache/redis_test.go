package cache_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/norviklabs/norvik/internal/auth/cache"
	"github.com/norviklabs/norvik/internal/auth/cache/drivers/redis"
)

/*
 * End-to-end tests for the redis cache driver against a real Redis server.
 * They exercise the atomicity guarantees the service depends on: single-use
 * consumption and create-anchored counter windows.
 */

// setupRedis starts a throwaway Redis container and returns a connected
// driver. Tests are skipped in short mode or when Docker E2E is disabled.
func setupRedis(t *testing.T) *redis.Cache {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
	if os.Getenv("E2E_DISABLE_DOCKER") != "" {
		t.Skip("docker-backed e2e tests disabled")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	host, err := container.Host(ctx)
	require.NoError(t, err)

	c, err := redis.New(fmt.Sprintf("redis://%s:%s/0", host, mappedPort.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Ping(ctx))
	return c
}

func TestRedisSetGetDelete(t *testing.T) {
	c := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, cache.RegToken, "tok", "user-1", time.Minute))

	val, err := c.Get(ctx, cache.RegToken, "tok")
	require.NoError(t, err)
	require.Equal(t, "user-1", val)

	require.NoError(t, c.Delete(ctx, cache.RegToken, "tok"))
	_, err = c.Get(ctx, cache.RegToken, "tok")
	require.ErrorIs(t, err, cache.ErrNotFound)
}

func TestRedisConsumeFirstWins(t *testing.T) {
	c := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, cache.OTPToken, "tok", "user-1", time.Minute))

	const racers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func() {
			defer wg.Done()
			if _, err := c.Consume(ctx, cache.OTPToken, "tok"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)
}

func TestRedisIncrementWindow(t *testing.T) {
	c := setupRedis(t)
	ctx := context.Background()

	n, err := c.Increment(ctx, cache.LoginAttempts, "user-1", 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	// Later increments count up without resetting the window.
	n, err = c.Increment(ctx, cache.LoginAttempts, "user-1", 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	time.Sleep(2500 * time.Millisecond)

	n, err = c.Increment(ctx, cache.LoginAttempts, "user-1", 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestRedisExpiry(t *testing.T) {
	c := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, cache.PWToken, "tok", "user-1", time.Second))

	time.Sleep(1500 * time.Millisecond)

	_, err := c.Get(ctx, cache.PWToken, "tok")
	require.ErrorIs(t, err, cache.ErrNotFound)
}
