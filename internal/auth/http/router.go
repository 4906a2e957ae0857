package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/norviklabs/norvik/internal/auth/cache"
	"github.com/norviklabs/norvik/internal/auth/domain"
	"github.com/norviklabs/norvik/internal/auth/service"
	"github.com/norviklabs/norvik/internal/auth/store"
	"github.com/norviklabs/norvik/pkg/cookiex"
	"github.com/norviklabs/norvik/pkg/httpx"
	"github.com/norviklabs/norvik/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store  store.Store
	cache  cache.Cache
	signer *cookiex.Signer
	guard  *Guard

	AuthService *service.AuthService
}

func NewRouter(
	buildVersion string,
	st store.Store,
	c cache.Cache,
	signer *cookiex.Signer,
	authService *service.AuthService,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
		cache:        c,
		signer:       signer,
		guard:        &Guard{Cache: c, Store: st, Signer: signer},
		AuthService:  authService,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	login := &LoginHandler{AuthService: r.AuthService, Signer: r.signer}
	registration := &RegistrationHandler{AuthService: r.AuthService}
	password := &PasswordHandler{AuthService: r.AuthService, Signer: r.signer}
	session := &SessionHandler{AuthService: r.AuthService, Signer: r.signer}

	// Credential endpoints take the tightest limits; the service's own
	// throttle counters back them up per account.
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(http.HandlerFunc(login.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		))
	r.Mux.Handle("POST /auth/verify-otp",
		httpx.Chain(http.HandlerFunc(login.HandleVerifyOTP),
			httpx.RateLimitByIP(httpx.StrictLimit),
		))

	r.Mux.Handle("POST /auth/register",
		httpx.Chain(http.HandlerFunc(registration.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		))
	r.Mux.Handle("GET /auth/verify-registration-token",
		httpx.Chain(http.HandlerFunc(registration.HandleVerifyToken),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		))
	r.Mux.Handle("POST /auth/resend-registration-token",
		httpx.Chain(http.HandlerFunc(registration.HandleResendToken),
			httpx.RateLimitByIP(httpx.StrictLimit),
		))

	r.Mux.Handle("POST /auth/forgot-password",
		httpx.Chain(http.HandlerFunc(password.HandleForgotPassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		))
	r.Mux.Handle("POST /auth/verify-forgot-password",
		httpx.Chain(http.HandlerFunc(password.HandleVerifyForgotPassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		))
	r.Mux.Handle("GET /auth/reset-password",
		httpx.Chain(http.HandlerFunc(password.HandleResetPassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		))

	r.Mux.Handle("POST /auth/change-password",
		httpx.Chain(http.HandlerFunc(password.HandleChangePassword),
			httpx.RateLimitByIP(httpx.ModerateLimit),
			r.guard.Require(domain.RoleUser),
		))
	r.Mux.Handle("GET /auth/set-otp",
		httpx.Chain(http.HandlerFunc(session.HandleSetOTP),
			httpx.RateLimitByIP(httpx.ModerateLimit),
			r.guard.Require(domain.RoleUser),
		))
	r.Mux.Handle("POST /auth/logout",
		httpx.Chain(http.HandlerFunc(session.HandleLogout),
			httpx.RateLimitByIP(httpx.LenientLimit),
			r.guard.Require(domain.RoleUser),
		))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.cache))
}
