package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/norviklabs/norvik/internal/auth/domain"
	"github.com/norviklabs/norvik/pkg/cookiex"
	"github.com/norviklabs/norvik/pkg/httpx"
)

// validator is implemented by every request DTO.
type validator interface {
	Validate() []httpx.FieldError
}

// decodeValid decodes the JSON body into dst and runs its validation. It
// writes the failure response itself and reports whether to continue.
func decodeValid(w http.ResponseWriter, r *http.Request, dst validator) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "MALFORMED_BODY",
			"request body must be valid JSON")
		return false
	}
	if errs := dst.Validate(); len(errs) > 0 {
		httpx.WriteValidationError(w, errs)
		return false
	}
	return true
}

// writeSessionGrant sets the session cookie and renders the CSRF body. The
// session id travels only inside the signed cookie.
func writeSessionGrant(w http.ResponseWriter, log *slog.Logger, signer *cookiex.Signer, grant *domain.SessionGrant) {
	lifetime := cookiex.LifetimeDefault
	if grant.Session.Permanent {
		lifetime = cookiex.LifetimePermanent
	}

	c, err := signer.Mint(grant.Session.ID, lifetime)
	if err != nil {
		log.Error("failed to mint session cookie", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "SERVER_ERROR",
			"an internal error occurred")
		return
	}
	http.SetCookie(w, c)

	httpx.WriteJSON(w, http.StatusOK, sessionResponse{
		CSRF:     grant.Session.CSRFToken,
		UserID:   grant.User.ID,
		Email:    grant.User.Email,
		Username: grant.User.Username,
		Role:     string(grant.User.Role),
	})
}
