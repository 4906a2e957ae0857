package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/norviklabs/norvik/internal/auth/cache"
	"github.com/norviklabs/norvik/internal/auth/domain"
	"github.com/norviklabs/norvik/pkg/cookiex"
	"github.com/norviklabs/norvik/pkg/cryptox"
	"github.com/norviklabs/norvik/pkg/idx"
)

// guardProbe wraps a no-op handler that records the injected session.
func guardProbe(g *Guard, minRole domain.Role) (*domain.UserSession, http.Handler) {
	var seen domain.UserSession
	h := g.Require(minRole)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if us, ok := SessionFromContext(r.Context()); ok {
			seen = us
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	return &seen, h
}

// seedGrant creates a user, persists a session for it and caches the
// projection, returning the signed cookie and the projection.
func (s *testStack) seedGrant(t *testing.T, emailAddr string) (*http.Cookie, domain.UserSession) {
	t.Helper()
	ctx := context.Background()

	user := s.createUser(t, emailAddr, "hunter22")

	now := time.Now().UTC()
	sess := domain.Session{
		ID:        idx.New().String(),
		UserID:    user.ID,
		CSRFToken: cryptox.MustGenerateToken(cryptox.TokenSize256),
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.Store.Sessions().CreateSession(ctx, sess))

	us := domain.NewUserSession(sess, user)
	require.NoError(t, cache.SetUserSession(ctx, s.Cache, us))

	c, err := s.Signer.Mint(sess.ID, cookiex.LifetimeDefault)
	require.NoError(t, err)
	return c, us
}

func TestGuard(t *testing.T) {
	t.Run("no cookie", func(t *testing.T) {
		s := newTestStack(t)
		_, h := guardProbe(s.Guard, domain.RoleUser)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("tampered cookie", func(t *testing.T) {
		s := newTestStack(t)
		_, h := guardProbe(s.Guard, domain.RoleUser)

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.AddCookie(&http.Cookie{Name: cookiex.SessionCookie, Value: "not-a-signed-value"})

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("cache hit with matching csrf", func(t *testing.T) {
		s := newTestStack(t)
		cookie, us := s.seedGrant(t, "hit@example.com")
		seen, h := guardProbe(s.Guard, domain.RoleUser)

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.AddCookie(cookie)
		req.Header.Set(CSRFHeader, us.CSRFToken)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, us.UserID, seen.UserID)
		require.Equal(t, us.ID, seen.ID)
	})

	t.Run("csrf mismatch", func(t *testing.T) {
		s := newTestStack(t)
		cookie, _ := s.seedGrant(t, "mismatch@example.com")
		_, h := guardProbe(s.Guard, domain.RoleUser)

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.AddCookie(cookie)
		req.Header.Set(CSRFHeader, "wrong-token")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Body.String(), "INVALID_CSRF")
	})

	t.Run("get does not demand csrf", func(t *testing.T) {
		s := newTestStack(t)
		cookie, _ := s.seedGrant(t, "get@example.com")
		_, h := guardProbe(s.Guard, domain.RoleUser)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("cache miss refreshes from store", func(t *testing.T) {
		s := newTestStack(t)
		cookie, us := s.seedGrant(t, "miss@example.com")
		seen, h := guardProbe(s.Guard, domain.RoleUser)

		// Evict the projection; the guard must rebuild and re-cache it.
		require.NoError(t, s.Cache.Delete(context.Background(), cache.Session, us.ID))

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.AddCookie(cookie)
		req.Header.Set(CSRFHeader, us.CSRFToken)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, us.UserID, seen.UserID)

		refreshed, err := cache.GetUserSession(context.Background(), s.Cache, us.ID)
		require.NoError(t, err)
		require.Equal(t, us.CSRFToken, refreshed.CSRFToken)
	})

	t.Run("expired session", func(t *testing.T) {
		s := newTestStack(t)
		cookie, us := s.seedGrant(t, "expired@example.com")
		_, h := guardProbe(s.Guard, domain.RoleUser)

		require.NoError(t, s.Store.Sessions().ExpireSession(context.Background(), us.ID))
		require.NoError(t, s.Cache.Delete(context.Background(), cache.Session, us.ID))

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.AddCookie(cookie)
		req.Header.Set(CSRFHeader, us.CSRFToken)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("frozen account", func(t *testing.T) {
		s := newTestStack(t)
		cookie, us := s.seedGrant(t, "frozen@example.com")
		_, h := guardProbe(s.Guard, domain.RoleUser)

		require.NoError(t, s.Store.Users().SetFrozen(context.Background(), us.UserID, true))
		// Stale cache must not save a frozen account once refreshed.
		require.NoError(t, s.Cache.Delete(context.Background(), cache.Session, us.ID))

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.AddCookie(cookie)
		req.Header.Set(CSRFHeader, us.CSRFToken)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Body.String(), "ACCOUNT_FROZEN")
	})

	t.Run("insufficient role", func(t *testing.T) {
		s := newTestStack(t)
		cookie, us := s.seedGrant(t, "lowly@example.com")
		_, h := guardProbe(s.Guard, domain.RoleAdmin)

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.AddCookie(cookie)
		req.Header.Set(CSRFHeader, us.CSRFToken)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Body.String(), "INSUFFICIENT_RIGHTS")
	})
}
