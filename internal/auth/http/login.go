package http

import (
	"net/http"

	"github.com/norviklabs/norvik/internal/auth/service"
	"github.com/norviklabs/norvik/pkg/cookiex"
	"github.com/norviklabs/norvik/pkg/httpx"
	"github.com/norviklabs/norvik/pkg/slogx"
)

// LoginHandler serves the two-step login: password first, then an optional
// TOTP round trip.
type LoginHandler struct {
	AuthService *service.AuthService
	Signer      *cookiex.Signer
}

// HandleLogin handles POST /auth/login.
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if !decodeValid(w, r, &req) {
		return
	}

	grant, challenge, err := h.AuthService.Login(ctx, req.Email, req.Password, req.Remember)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	if challenge != nil {
		httpx.WriteJSON(w, http.StatusOK, otpRequiredResponse{
			OTPRequired: true,
			Token:       challenge.Token,
			Username:    challenge.Username,
			Remember:    challenge.Remember,
		})
		return
	}

	writeSessionGrant(w, log, h.Signer, grant)
}

// HandleVerifyOTP handles POST /auth/verify-otp.
func (h *LoginHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req verifyOTPRequest
	if !decodeValid(w, r, &req) {
		return
	}

	grant, err := h.AuthService.VerifyOTP(ctx, req.Token, req.Code, req.Remember)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	writeSessionGrant(w, log, h.Signer, grant)
}
