package service

import (
	"errors"
	"fmt"

	"github.com/norviklabs/norvik/internal/auth/cache"
)

var (
	// ErrInvalidCredentials covers both unknown-email and wrong-password so
	// callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrInvalidOTP means the supplied TOTP code did not match.
	ErrInvalidOTP = errors.New("invalid_otp")

	// ErrAuthBlocked means the caller exceeded a throttle window.
	ErrAuthBlocked = errors.New("auth_blocked")

	// ErrEmailTaken means a user already exists with that email.
	ErrEmailTaken = errors.New("email_taken")

	// ErrAlreadyVerified means the user's email is already verified.
	ErrAlreadyVerified = errors.New("already_verified")

	// ErrAccountFrozen means the account is frozen for abuse.
	ErrAccountFrozen = errors.New("account_frozen")

	// ErrEmailUnverified means the user has not verified their email yet.
	ErrEmailUnverified = errors.New("email_unverified")

	// ErrInsufficientRights means the caller's role is below the route floor.
	ErrInsufficientRights = errors.New("insufficient_rights")

	// ErrUnauthenticated means no valid session accompanied the request.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidCSRF means the CSRF header did not match the session.
	ErrInvalidCSRF = errors.New("invalid_csrf")
)

// InvalidTokenError means a single-use token (registration, OTP login or
// password reset) was absent, expired or already consumed. Kind names the
// namespace the lookup missed in.
type InvalidTokenError struct {
	Kind cache.ID
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("invalid_token: %s", e.Kind)
}

func invalidToken(kind cache.ID) error {
	return &InvalidTokenError{Kind: kind}
}

// mapTokenMiss remaps the cache's key-absent outcome to an authentication
// error; any other cache failure stays an infrastructure error.
func mapTokenMiss(err error, kind cache.ID) error {
	if errors.Is(err, cache.ErrNotFound) {
		return invalidToken(kind)
	}
	return err
}
