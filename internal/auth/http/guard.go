package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/norviklabs/norvik/internal/auth/cache"
	"github.com/norviklabs/norvik/internal/auth/domain"
	"github.com/norviklabs/norvik/internal/auth/service"
	"github.com/norviklabs/norvik/internal/auth/store"
	"github.com/norviklabs/norvik/pkg/cookiex"
	"github.com/norviklabs/norvik/pkg/httpx"
	"github.com/norviklabs/norvik/pkg/slogx"
)

// CSRFHeader carries the per-session CSRF token on state-changing requests.
const CSRFHeader = "X-CSRF-Token"

type sessionCtxKey struct{}

// SessionFromContext returns the UserSession the Guard injected.
func SessionFromContext(ctx context.Context) (domain.UserSession, bool) {
	us, ok := ctx.Value(sessionCtxKey{}).(domain.UserSession)
	return us, ok
}

// Guard authorizes requests from the session cookie. The cache is the hot
// path; on a miss the session is rebuilt from the store and re-cached. It
// never mutates session state beyond that refresh.
type Guard struct {
	Cache  cache.Cache
	Store  store.Store
	Signer *cookiex.Signer
}

// Require returns middleware enforcing an authenticated session at or above
// minRole. Non-safe methods additionally require a matching CSRF header.
func (g *Guard) Require(minRole domain.Role) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			us, err := g.resolve(r)
			if err != nil {
				writeServiceError(w, log, err)
				return
			}

			if us.Frozen {
				writeServiceError(w, log, service.ErrAccountFrozen)
				return
			}

			if stateChanging(r.Method) {
				header := r.Header.Get(CSRFHeader)
				if subtle.ConstantTimeCompare([]byte(header), []byte(us.CSRFToken)) != 1 {
					writeServiceError(w, log, service.ErrInvalidCSRF)
					return
				}
			}

			if !us.Role.AtLeast(minRole) {
				writeServiceError(w, log, service.ErrInsufficientRights)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, sessionCtxKey{}, us)))
		})
	}
}

// resolve walks cookie -> cache -> store and returns a live UserSession.
func (g *Guard) resolve(r *http.Request) (domain.UserSession, error) {
	ctx := r.Context()

	c, err := r.Cookie(cookiex.SessionCookie)
	if err != nil {
		return domain.UserSession{}, service.ErrUnauthenticated
	}
	sessionID, err := g.Signer.Parse(c)
	if err != nil {
		return domain.UserSession{}, service.ErrUnauthenticated
	}

	us, err := cache.GetUserSession(ctx, g.Cache, sessionID)
	if err == nil {
		if us.Expired() {
			return domain.UserSession{}, service.ErrUnauthenticated
		}
		return us, nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		return domain.UserSession{}, err
	}

	// Cache miss: rebuild the projection from the store and re-cache it.
	sess, err := g.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.UserSession{}, service.ErrUnauthenticated
		}
		return domain.UserSession{}, err
	}
	if sess.Expired() {
		return domain.UserSession{}, service.ErrUnauthenticated
	}

	user, err := g.Store.Users().GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.UserSession{}, service.ErrUnauthenticated
		}
		return domain.UserSession{}, err
	}

	us = domain.NewUserSession(sess, user)
	if err := cache.SetUserSession(ctx, g.Cache, us); err != nil {
		slogx.FromContext(ctx).Error("failed to re-cache session", "session_id", sessionID, "error", err)
	}
	return us, nil
}

func stateChanging(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}
