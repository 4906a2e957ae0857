package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/norviklabs/norvik/internal/auth/cache"
	"github.com/norviklabs/norvik/internal/auth/domain"
	"github.com/norviklabs/norvik/internal/auth/store"
	"github.com/norviklabs/norvik/pkg/cryptox"
	"github.com/norviklabs/norvik/pkg/idx"
	"github.com/norviklabs/norvik/pkg/slogx"
)

// Registration carries the signup fields after transport validation.
type Registration struct {
	Email    string
	Username string
	Phone    *string
	Password string
}

// StartRegistration creates the user unverified and mails them a single-use
// verification token. The token the whole flow exists to deliver, so a
// delivery failure propagates.
func (s *AuthService) StartRegistration(ctx context.Context, reg Registration) (domain.User, error) {
	// 1. Refuse a taken email up front; the unique index backstops the race.
	_, err := s.Store.Users().GetUserByEmail(ctx, reg.Email)
	if err == nil {
		return domain.User{}, ErrEmailTaken
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, fmt.Errorf("failed to look up email: %w", err)
	}

	hash, err := cryptox.HashPassword(reg.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Email:        reg.Email,
		Username:     reg.Username,
		Phone:        reg.Phone,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.issueRegistrationToken(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// VerifyRegistrationToken consumes a registration token and marks the user's
// email verified. A replayed token fails.
func (s *AuthService) VerifyRegistrationToken(ctx context.Context, token string) error {
	// 1. Peek before consuming so a refused attempt leaves the token intact.
	userID, err := s.Cache.Get(ctx, cache.RegToken, token)
	if err != nil {
		return mapTokenMiss(err, cache.RegToken)
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return invalidToken(cache.RegToken)
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user.Frozen {
		return ErrAccountFrozen
	}

	// 2. Consume only once the attempt is accepted; a concurrent verify of
	// the same token loses here.
	if _, err := s.Cache.Consume(ctx, cache.RegToken, token); err != nil {
		return mapTokenMiss(err, cache.RegToken)
	}

	if err := s.Store.Users().MarkEmailVerified(ctx, userID); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	return nil
}

// ResendRegistrationToken reissues the verification email. Resends inside the
// throttle window are dropped silently so the caller cannot probe timing.
func (s *AuthService) ResendRegistrationToken(ctx context.Context, email string) error {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user.Frozen {
		return ErrAccountFrozen
	}
	if user.Verified() {
		return ErrAlreadyVerified
	}

	throttled, err := s.emailThrottled(ctx, user.ID)
	if err != nil {
		return err
	}
	if throttled {
		return nil
	}

	return s.issueRegistrationToken(ctx, user)
}

// issueRegistrationToken derives a fresh HMAC token for the user, caches the
// mapping, sends the email and stamps the throttle.
func (s *AuthService) issueRegistrationToken(ctx context.Context, user domain.User) error {
	nonce, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return fmt.Errorf("failed to generate token nonce: %w", err)
	}
	token := cryptox.HMACToken(s.TokenSecret, user.ID+"."+nonce)

	if err := s.Cache.Set(ctx, cache.RegToken, token, user.ID, 0); err != nil {
		return fmt.Errorf("failed to cache registration token: %w", err)
	}

	// Throttle only after the send succeeds, so a failed delivery leaves the
	// user free to retry straight away.
	if err := s.Notifier.SendRegistrationToken(ctx, user.Email, user.Username, token); err != nil {
		return fmt.Errorf("failed to send registration token: %w", err)
	}
	if err := s.Cache.Set(ctx, cache.EmailThrottle, user.ID, "1", 0); err != nil {
		slogx.FromContext(ctx).Error("failed to stamp email throttle", "user_id", user.ID, "error", err)
	}
	return nil
}

// emailThrottled reports whether an email went out to the user too recently.
func (s *AuthService) emailThrottled(ctx context.Context, userID string) (bool, error) {
	_, err := s.Cache.Get(ctx, cache.EmailThrottle, userID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, cache.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to read email throttle: %w", err)
}
