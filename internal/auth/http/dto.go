package http

import (
	"strings"

	"github.com/norviklabs/norvik/pkg/httpx"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 128
	maxEmailLen    = 254
	maxUsernameLen = 64
)

func validEmail(email string) bool {
	if email == "" || len(email) > maxEmailLen {
		return false
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return strings.Contains(email[at+1:], ".")
}

func validPassword(pw string) bool {
	return len(pw) >= minPasswordLen && len(pw) <= maxPasswordLen
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

func (r loginRequest) Validate() []httpx.FieldError {
	var errs []httpx.FieldError
	if !validEmail(r.Email) {
		errs = append(errs, httpx.FieldError{Field: "email", Message: "must be a valid email address"})
	}
	if r.Password == "" {
		errs = append(errs, httpx.FieldError{Field: "password", Message: "must not be empty"})
	}
	return errs
}

type verifyOTPRequest struct {
	Token    string `json:"token"`
	Code     string `json:"code"`
	Remember bool   `json:"remember"`
}

func (r verifyOTPRequest) Validate() []httpx.FieldError {
	var errs []httpx.FieldError
	if r.Token == "" {
		errs = append(errs, httpx.FieldError{Field: "token", Message: "must not be empty"})
	}
	if len(r.Code) != 6 {
		errs = append(errs, httpx.FieldError{Field: "code", Message: "must be a 6 digit code"})
	}
	return errs
}

type registerRequest struct {
	Email    string  `json:"email"`
	Username string  `json:"username"`
	Phone    *string `json:"phone,omitempty"`
	Password string  `json:"password"`
}

func (r registerRequest) Validate() []httpx.FieldError {
	var errs []httpx.FieldError
	if !validEmail(r.Email) {
		errs = append(errs, httpx.FieldError{Field: "email", Message: "must be a valid email address"})
	}
	if r.Username == "" || len(r.Username) > maxUsernameLen {
		errs = append(errs, httpx.FieldError{Field: "username", Message: "must be between 1 and 64 characters"})
	}
	if !validPassword(r.Password) {
		errs = append(errs, httpx.FieldError{Field: "password", Message: "must be between 8 and 128 characters"})
	}
	return errs
}

type resendTokenRequest struct {
	Email string `json:"email"`
}

func (r resendTokenRequest) Validate() []httpx.FieldError {
	if !validEmail(r.Email) {
		return []httpx.FieldError{{Field: "email", Message: "must be a valid email address"}}
	}
	return nil
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (r changePasswordRequest) Validate() []httpx.FieldError {
	var errs []httpx.FieldError
	if r.CurrentPassword == "" {
		errs = append(errs, httpx.FieldError{Field: "current_password", Message: "must not be empty"})
	}
	if !validPassword(r.NewPassword) {
		errs = append(errs, httpx.FieldError{Field: "new_password", Message: "must be between 8 and 128 characters"})
	}
	return errs
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (r forgotPasswordRequest) Validate() []httpx.FieldError {
	if !validEmail(r.Email) {
		return []httpx.FieldError{{Field: "email", Message: "must be a valid email address"}}
	}
	return nil
}

type verifyForgotPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (r verifyForgotPasswordRequest) Validate() []httpx.FieldError {
	var errs []httpx.FieldError
	if r.Token == "" {
		errs = append(errs, httpx.FieldError{Field: "token", Message: "must not be empty"})
	}
	if !validPassword(r.Password) {
		errs = append(errs, httpx.FieldError{Field: "password", Message: "must be between 8 and 128 characters"})
	}
	return errs
}

type logoutRequest struct {
	PurgeAll bool `json:"purge_all"`
}

// sessionResponse is the success body of every session-establishing flow. The
// CSRF token travels in the body; the session id only ever in the cookie.
type sessionResponse struct {
	CSRF     string `json:"csrf"`
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// otpRequiredResponse tells the client to continue at verify-otp.
type otpRequiredResponse struct {
	OTPRequired bool   `json:"otp_required"`
	Token       string `json:"token"`
	Username    string `json:"username"`
	Remember    bool   `json:"remember"`
}
