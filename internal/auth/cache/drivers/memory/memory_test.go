package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/norviklabs/norvik/internal/auth/cache"
	"github.com/norviklabs/norvik/internal/auth/cache/drivers/memory"
	"github.com/norviklabs/norvik/internal/auth/domain"
)

func TestSetGet(t *testing.T) {
	ctx := context.Background()
	c := memory.New()

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, cache.RegToken, "tok", "user-1", time.Minute))

		val, err := c.Get(ctx, cache.RegToken, "tok")
		require.NoError(t, err)
		require.Equal(t, "user-1", val)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := c.Get(ctx, cache.RegToken, "nope")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("namespaces do not collide", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, cache.OTPToken, "shared", "otp-value", time.Minute))
		require.NoError(t, c.Set(ctx, cache.PWToken, "shared", "pw-value", time.Minute))

		val, err := c.Get(ctx, cache.OTPToken, "shared")
		require.NoError(t, err)
		require.Equal(t, "otp-value", val)

		val, err = c.Get(ctx, cache.PWToken, "shared")
		require.NoError(t, err)
		require.Equal(t, "pw-value", val)
	})
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	c := memory.New()

	now := time.Now()
	c.SetClock(func() time.Time { return now })

	require.NoError(t, c.Set(ctx, cache.OTPToken, "tok", "user-1", time.Minute))

	val, err := c.Get(ctx, cache.OTPToken, "tok")
	require.NoError(t, err)
	require.Equal(t, "user-1", val)

	now = now.Add(61 * time.Second)

	_, err = c.Get(ctx, cache.OTPToken, "tok")
	require.ErrorIs(t, err, cache.ErrNotFound)
}

func TestDefaultTTL(t *testing.T) {
	ctx := context.Background()
	c := memory.New()

	now := time.Now()
	c.SetClock(func() time.Time { return now })

	// Zero TTL falls back to the kind's default (2m for OTP tokens).
	require.NoError(t, c.Set(ctx, cache.OTPToken, "tok", "user-1", 0))

	now = now.Add(90 * time.Second)
	_, err := c.Get(ctx, cache.OTPToken, "tok")
	require.NoError(t, err)

	now = now.Add(31 * time.Second)
	_, err = c.Get(ctx, cache.OTPToken, "tok")
	require.ErrorIs(t, err, cache.ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	c := memory.New()

	require.NoError(t, c.Set(ctx, cache.Session, "sid", "payload", time.Minute))
	require.NoError(t, c.Delete(ctx, cache.Session, "sid"))

	_, err := c.Get(ctx, cache.Session, "sid")
	require.ErrorIs(t, err, cache.ErrNotFound)

	// Deleting an absent key is not an error.
	require.NoError(t, c.Delete(ctx, cache.Session, "sid"))
}

func TestConsume(t *testing.T) {
	ctx := context.Background()

	t.Run("single use", func(t *testing.T) {
		c := memory.New()
		require.NoError(t, c.Set(ctx, cache.PWToken, "tok", "user-1", time.Minute))

		val, err := c.Consume(ctx, cache.PWToken, "tok")
		require.NoError(t, err)
		require.Equal(t, "user-1", val)

		_, err = c.Consume(ctx, cache.PWToken, "tok")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("expired entry", func(t *testing.T) {
		c := memory.New()
		now := time.Now()
		c.SetClock(func() time.Time { return now })

		require.NoError(t, c.Set(ctx, cache.PWToken, "tok", "user-1", time.Minute))
		now = now.Add(2 * time.Minute)

		_, err := c.Consume(ctx, cache.PWToken, "tok")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("exactly one winner under contention", func(t *testing.T) {
		c := memory.New()
		require.NoError(t, c.Set(ctx, cache.RegToken, "tok", "user-1", time.Minute))

		const racers = 32
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		wg.Add(racers)
		for i := 0; i < racers; i++ {
			go func() {
				defer wg.Done()
				if _, err := c.Consume(ctx, cache.RegToken, "tok"); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		require.Equal(t, 1, wins)
	})
}

func TestIncrement(t *testing.T) {
	ctx := context.Background()

	t.Run("counts up", func(t *testing.T) {
		c := memory.New()
		for want := int64(1); want <= 3; want++ {
			n, err := c.Increment(ctx, cache.LoginAttempts, "user-1", time.Minute)
			require.NoError(t, err)
			require.Equal(t, want, n)
		}
	})

	t.Run("window anchored to first increment", func(t *testing.T) {
		c := memory.New()
		now := time.Now()
		c.SetClock(func() time.Time { return now })

		n, err := c.Increment(ctx, cache.LoginAttempts, "user-1", time.Minute)
		require.NoError(t, err)
		require.Equal(t, int64(1), n)

		// Later increments must not extend the window.
		now = now.Add(45 * time.Second)
		n, err = c.Increment(ctx, cache.LoginAttempts, "user-1", time.Minute)
		require.NoError(t, err)
		require.Equal(t, int64(2), n)

		now = now.Add(20 * time.Second)
		n, err = c.Increment(ctx, cache.LoginAttempts, "user-1", time.Minute)
		require.NoError(t, err)
		require.Equal(t, int64(1), n)
	})

	t.Run("concurrent increments are lossless", func(t *testing.T) {
		c := memory.New()

		const racers = 50
		var wg sync.WaitGroup
		wg.Add(racers)
		for i := 0; i < racers; i++ {
			go func() {
				defer wg.Done()
				_, err := c.Increment(ctx, cache.OTPThrottle, "user-1", time.Minute)
				require.NoError(t, err)
			}()
		}
		wg.Wait()

		n, err := c.Increment(ctx, cache.OTPThrottle, "user-1", time.Minute)
		require.NoError(t, err)
		require.Equal(t, int64(racers+1), n)
	})
}

func TestUserSessionHelpers(t *testing.T) {
	ctx := context.Background()
	c := memory.New()

	us := domainUserSession()
	require.NoError(t, cache.SetUserSession(ctx, c, us))

	got, err := cache.GetUserSession(ctx, c, us.ID)
	require.NoError(t, err)
	require.Equal(t, us, got)

	_, err = cache.GetUserSession(ctx, c, "missing")
	require.ErrorIs(t, err, cache.ErrNotFound)
}

func domainUserSession() domain.UserSession {
	return domain.UserSession{
		ID:        "01JD0000000000000000000000",
		CSRFToken: "csrf-token",
		UserID:    "01JD0000000000000000000001",
		Role:      domain.RoleUser,
		Email:     "alice@example.com",
		Username:  "alice",
		Frozen:    false,
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}
}
