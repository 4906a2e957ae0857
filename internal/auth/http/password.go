package http

import (
	"net/http"

	"github.com/norviklabs/norvik/internal/auth/service"
	"github.com/norviklabs/norvik/pkg/cookiex"
	"github.com/norviklabs/norvik/pkg/httpx"
	"github.com/norviklabs/norvik/pkg/slogx"
)

// PasswordHandler serves the password change and recovery flows.
type PasswordHandler struct {
	AuthService *service.AuthService
	Signer      *cookiex.Signer
}

// HandleChangePassword handles POST /auth/change-password (guarded).
func (h *PasswordHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	us, ok := SessionFromContext(ctx)
	if !ok {
		writeServiceError(w, log, service.ErrUnauthenticated)
		return
	}

	var req changePasswordRequest
	if !decodeValid(w, r, &req) {
		return
	}

	if err := h.AuthService.ChangePassword(ctx, us, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, log, err)
		return
	}

	// Every session is gone now, the caller's included.
	http.SetCookie(w, h.Signer.Expire())
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "password_changed"})
}

// HandleForgotPassword handles POST /auth/forgot-password.
func (h *PasswordHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req forgotPasswordRequest
	if !decodeValid(w, r, &req) {
		return
	}

	if err := h.AuthService.ForgotPassword(ctx, req.Email); err != nil {
		writeServiceError(w, log, err)
		return
	}

	// Same body whether or not the email exists.
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// HandleVerifyForgotPassword handles POST /auth/verify-forgot-password.
func (h *PasswordHandler) HandleVerifyForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req verifyForgotPasswordRequest
	if !decodeValid(w, r, &req) {
		return
	}

	grant, err := h.AuthService.VerifyForgotPassword(ctx, req.Token, req.Password)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	writeSessionGrant(w, log, h.Signer, grant)
}

// HandleResetPassword handles GET /auth/reset-password?token=.
func (h *PasswordHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token := r.URL.Query().Get("token")
	if token == "" {
		httpx.WriteValidationError(w, []httpx.FieldError{
			{Field: "token", Message: "must not be empty"},
		})
		return
	}

	if err := h.AuthService.ResetPassword(ctx, token); err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "temporary_password_sent"})
}
