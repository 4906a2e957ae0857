package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/norviklabs/norvik/internal/auth/service"
	"github.com/norviklabs/norvik/internal/auth/store"
	"github.com/norviklabs/norvik/pkg/httpx"
)

// writeServiceError renders a service failure as the uniform error envelope.
// Infrastructure errors become an opaque 500; internals never reach the
// caller.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	var tokenErr *service.InvalidTokenError
	if errors.As(err, &tokenErr) {
		httpx.WriteError(w, http.StatusUnauthorized, "INVALID_TOKEN",
			"the supplied token is invalid or has expired")
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS",
			"email or password is incorrect")
	case errors.Is(err, service.ErrInvalidOTP):
		httpx.WriteError(w, http.StatusUnauthorized, "INVALID_OTP",
			"the one-time code is incorrect")
	case errors.Is(err, service.ErrUnauthenticated):
		httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED",
			"a valid session is required")
	case errors.Is(err, service.ErrAuthBlocked):
		httpx.WriteError(w, http.StatusForbidden, "AUTH_BLOCKED",
			"too many attempts, try again later")
	case errors.Is(err, service.ErrInvalidCSRF):
		httpx.WriteError(w, http.StatusForbidden, "INVALID_CSRF",
			"the CSRF token does not match the session")
	case errors.Is(err, service.ErrAccountFrozen):
		httpx.WriteError(w, http.StatusForbidden, "ACCOUNT_FROZEN",
			"this account has been frozen")
	case errors.Is(err, service.ErrEmailUnverified):
		httpx.WriteError(w, http.StatusForbidden, "EMAIL_UNVERIFIED",
			"verify your email address before logging in")
	case errors.Is(err, service.ErrInsufficientRights):
		httpx.WriteError(w, http.StatusForbidden, "INSUFFICIENT_RIGHTS",
			"this action requires a higher role")
	case errors.Is(err, service.ErrEmailTaken):
		httpx.WriteError(w, http.StatusConflict, "EMAIL_TAKEN",
			"an account with this email already exists")
	case errors.Is(err, service.ErrAlreadyVerified):
		httpx.WriteError(w, http.StatusConflict, "ALREADY_VERIFIED",
			"this email address is already verified")
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "NOT_FOUND",
			"the requested resource does not exist")
	default:
		log.Error("request failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "SERVER_ERROR",
			"an internal error occurred")
	}
}
