package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/norviklabs/norvik/internal/auth/cache"
	"github.com/norviklabs/norvik/internal/auth/domain"
	"github.com/norviklabs/norvik/internal/auth/store"
	"github.com/norviklabs/norvik/pkg/cryptox"
	"github.com/norviklabs/norvik/pkg/slogx"
)

// AuthService orchestrates every credential flow. It is composed of the three
// collaborator capabilities plus explicit config; no globals inside business
// logic.
type AuthService struct {
	Store    store.Store
	Cache    cache.Cache
	Notifier Notifier

	// TokenSecret keys the HMAC that derives registration tokens.
	TokenSecret []byte
	// TOTPIssuer is the issuer label in provisioning URLs.
	TOTPIssuer string

	// LoginAttemptLimit is the failed-login count that triggers ErrAuthBlocked.
	LoginAttemptLimit int64
	// OTPAttemptLimit is the OTP-verification count that triggers ErrAuthBlocked.
	OTPAttemptLimit int64

	// SessionTTL is the default session lifetime; PermanentTTL the remember-me one.
	SessionTTL   time.Duration
	PermanentTTL time.Duration
}

// Login authenticates by email and password. Unknown email and wrong password
// are indistinguishable to the caller. When the user has a TOTP secret no
// session is established; instead an opaque challenge token is returned and
// must be presented to VerifyOTP.
func (s *AuthService) Login(ctx context.Context, email, password string, remember bool) (*domain.SessionGrant, *domain.OTPChallenge, error) {
	log := slogx.FromContext(ctx)

	// 1. Resolve the user. An absent user renders the same as a bad password.
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user.Frozen {
		return nil, nil, ErrAccountFrozen
	}
	if !user.Verified() {
		return nil, nil, ErrEmailUnverified
	}

	// 2. Refuse before paying the hash cost if the user is already blocked.
	blocked, err := s.loginBlocked(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	if blocked {
		return nil, nil, ErrAuthBlocked
	}

	// 3. Verify the password; a mismatch bumps the attempt counter.
	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			if _, cerr := s.Cache.Increment(ctx, cache.LoginAttempts, user.ID, 0); cerr != nil {
				log.Error("failed to count login attempt", "error", cerr)
			}
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to verify password: %w", err)
	}

	// 4. With a TOTP secret set, hand back a challenge instead of a session.
	if user.OTPEnabled() {
		token, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate otp token: %w", err)
		}
		if err := s.Cache.Set(ctx, cache.OTPToken, token, user.ID, 0); err != nil {
			return nil, nil, fmt.Errorf("failed to cache otp token: %w", err)
		}
		return nil, &domain.OTPChallenge{
			Token:    token,
			Username: user.Username,
			Remember: remember,
		}, nil
	}

	// 5. No second factor: establish the session and clear the counter.
	grant, err := s.EstablishSession(ctx, user, remember)
	if err != nil {
		return nil, nil, err
	}
	if err := s.Cache.Delete(ctx, cache.LoginAttempts, user.ID); err != nil {
		log.Error("failed to clear login attempts", "error", err)
	}
	return grant, nil, nil
}

// VerifyOTP trades an OTP challenge token plus a valid TOTP code for a
// session. When two calls race on the same token only one wins.
func (s *AuthService) VerifyOTP(ctx context.Context, token, code string, remember bool) (*domain.SessionGrant, error) {
	log := slogx.FromContext(ctx)

	// 1. Resolve the challenge token to a user.
	userID, err := s.Cache.Get(ctx, cache.OTPToken, token)
	if err != nil {
		return nil, mapTokenMiss(err, cache.OTPToken)
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, invalidToken(cache.OTPToken)
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user.Frozen {
		return nil, ErrAccountFrozen
	}
	if !user.OTPEnabled() {
		return nil, invalidToken(cache.OTPToken)
	}

	// 2. Count the attempt before checking the code.
	attempts, err := s.Cache.Increment(ctx, cache.OTPThrottle, user.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to count otp attempt: %w", err)
	}
	if attempts > s.OTPAttemptLimit {
		return nil, ErrAuthBlocked
	}

	// 3. Validate against the current 30s step (library allows one of skew).
	if !totp.Validate(code, *user.OTPSecret) {
		return nil, ErrInvalidOTP
	}

	// 4. Consume the token; a concurrent winner leaves nothing to consume.
	if _, err := s.Cache.Consume(ctx, cache.OTPToken, token); err != nil {
		return nil, mapTokenMiss(err, cache.OTPToken)
	}

	grant, err := s.EstablishSession(ctx, user, remember)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.Delete(ctx, cache.LoginAttempts, user.ID); err != nil {
		log.Error("failed to clear login attempts", "error", err)
	}
	if err := s.Cache.Delete(ctx, cache.OTPThrottle, user.ID); err != nil {
		log.Error("failed to clear otp throttle", "error", err)
	}
	return grant, nil
}

// loginBlocked reports whether the attempt counter already exceeds the limit.
func (s *AuthService) loginBlocked(ctx context.Context, userID string) (bool, error) {
	raw, err := s.Cache.Get(ctx, cache.LoginAttempts, userID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read login attempts: %w", err)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("corrupt login attempt counter: %w", err)
	}
	return n >= s.LoginAttemptLimit, nil
}
