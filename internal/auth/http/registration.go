package http

import (
	"net/http"

	"github.com/norviklabs/norvik/internal/auth/service"
	"github.com/norviklabs/norvik/pkg/httpx"
	"github.com/norviklabs/norvik/pkg/slogx"
)

// RegistrationHandler serves signup and email verification.
type RegistrationHandler struct {
	AuthService *service.AuthService
}

// HandleRegister handles POST /auth/register.
func (h *RegistrationHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req registerRequest
	if !decodeValid(w, r, &req) {
		return
	}

	user, err := h.AuthService.StartRegistration(ctx, service.Registration{
		Email:    req.Email,
		Username: req.Username,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]string{
		"user_id": user.ID,
		"email":   user.Email,
	})
}

// HandleVerifyToken handles GET /auth/verify-registration-token?token=.
func (h *RegistrationHandler) HandleVerifyToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token := r.URL.Query().Get("token")
	if token == "" {
		httpx.WriteValidationError(w, []httpx.FieldError{
			{Field: "token", Message: "must not be empty"},
		})
		return
	}

	if err := h.AuthService.VerifyRegistrationToken(ctx, token); err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

// HandleResendToken handles POST /auth/resend-registration-token.
func (h *RegistrationHandler) HandleResendToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req resendTokenRequest
	if !decodeValid(w, r, &req) {
		return
	}

	if err := h.AuthService.ResendRegistrationToken(ctx, req.Email); err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
