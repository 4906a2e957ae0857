package http

import (
	"encoding/json"
	"net/http"

	"github.com/norviklabs/norvik/internal/auth/service"
	"github.com/norviklabs/norvik/pkg/cookiex"
	"github.com/norviklabs/norvik/pkg/httpx"
	"github.com/norviklabs/norvik/pkg/slogx"
)

// SessionHandler serves the guarded session operations.
type SessionHandler struct {
	AuthService *service.AuthService
	Signer      *cookiex.Signer
}

// HandleLogout handles POST /auth/logout (guarded). An optional body flag
// purges every other session too.
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	us, ok := SessionFromContext(ctx)
	if !ok {
		writeServiceError(w, log, service.ErrUnauthenticated)
		return
	}

	// The body is optional; an empty or absent one means single logout.
	var req logoutRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := h.AuthService.Logout(ctx, us, req.PurgeAll); err != nil {
		writeServiceError(w, log, err)
		return
	}

	http.SetCookie(w, h.Signer.Expire())
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// HandleSetOTP handles GET /auth/set-otp (guarded). Each call replaces any
// previous secret.
func (h *SessionHandler) HandleSetOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	us, ok := SessionFromContext(ctx)
	if !ok {
		writeServiceError(w, log, service.ErrUnauthenticated)
		return
	}

	enroll, err := h.AuthService.SetOTPSecret(ctx, us.UserID)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, enroll)
}
