package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/norviklabs/norvik/internal/auth/cache"
	"github.com/norviklabs/norvik/internal/auth/domain"
	"github.com/norviklabs/norvik/internal/auth/store"
	"github.com/norviklabs/norvik/pkg/cryptox"
	"github.com/norviklabs/norvik/pkg/slogx"
)

// ChangePassword rotates the caller's password after re-proving the current
// one. Every session is purged, the caller's included, forcing a fresh login
// everywhere. A short-lived recovery token is minted as an undo hook and the
// user is alerted.
func (s *AuthService) ChangePassword(ctx context.Context, us domain.UserSession, current, next string) error {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByID(ctx, us.UserID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user.Frozen {
		return ErrAccountFrozen
	}

	if err := cryptox.VerifyPassword(current, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("failed to verify password: %w", err)
	}

	hash, err := cryptox.HashPassword(next)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.PurgeSessions(ctx, user.ID, ""); err != nil {
		return err
	}

	// Undo hook: lets the alert email link straight into recovery.
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return fmt.Errorf("failed to generate recovery token: %w", err)
	}
	if err := s.Cache.Set(ctx, cache.PWToken, token, user.ID, 0); err != nil {
		return fmt.Errorf("failed to cache recovery token: %w", err)
	}

	if err := s.Notifier.SendPasswordChangedAlert(ctx, user.Email, user.Username, token); err != nil {
		log.Error("failed to send password change alert", "user_id", user.ID, "error", err)
	}
	return nil
}

// ForgotPassword mails a recovery token. An unknown email is dropped quietly
// so the endpoint cannot be used to enumerate accounts; resends inside the
// throttle window are dropped the same way.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user.Frozen {
		return ErrAccountFrozen
	}

	throttled, err := s.emailThrottled(ctx, user.ID)
	if err != nil {
		return err
	}
	if throttled {
		return nil
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return fmt.Errorf("failed to generate recovery token: %w", err)
	}
	if err := s.Cache.Set(ctx, cache.PWToken, token, user.ID, 0); err != nil {
		return fmt.Errorf("failed to cache recovery token: %w", err)
	}

	// Delivering this token is the whole point of the flow, so propagate.
	// The throttle is stamped only once the send succeeds, leaving a failed
	// delivery free to retry straight away.
	if err := s.Notifier.SendForgotPasswordToken(ctx, user.Email, user.Username, token); err != nil {
		return fmt.Errorf("failed to send recovery token: %w", err)
	}
	if err := s.Cache.Set(ctx, cache.EmailThrottle, user.ID, "1", 0); err != nil {
		slogx.FromContext(ctx).Error("failed to stamp email throttle", "user_id", user.ID, "error", err)
	}
	return nil
}

// VerifyForgotPassword consumes a recovery token, sets the caller-supplied
// password, purges every prior session and establishes exactly one new one.
func (s *AuthService) VerifyForgotPassword(ctx context.Context, token, next string) (*domain.SessionGrant, error) {
	log := slogx.FromContext(ctx)

	userID, err := s.Cache.Consume(ctx, cache.PWToken, token)
	if err != nil {
		return nil, mapTokenMiss(err, cache.PWToken)
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, invalidToken(cache.PWToken)
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user.Frozen {
		return nil, ErrAccountFrozen
	}

	hash, err := cryptox.HashPassword(next)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.PurgeSessions(ctx, user.ID, ""); err != nil {
		return nil, err
	}
	if err := s.Cache.Delete(ctx, cache.LoginAttempts, user.ID); err != nil {
		log.Error("failed to clear login attempts", "error", err)
	}

	grant, err := s.EstablishSession(ctx, user, false)
	if err != nil {
		return nil, err
	}

	// No undo token here: the caller just proved control of the recovery
	// channel, so the alert is informational only.
	if err := s.Notifier.SendPasswordChangedAlert(ctx, user.Email, user.Username, ""); err != nil {
		log.Error("failed to send password change alert", "user_id", user.ID, "error", err)
	}
	return grant, nil
}

// ResetPassword consumes a recovery token and replaces the password with a
// system-generated temporary one, mailed to the user. All sessions are
// purged; the user logs in with the temporary password and changes it.
func (s *AuthService) ResetPassword(ctx context.Context, token string) error {
	log := slogx.FromContext(ctx)

	userID, err := s.Cache.Consume(ctx, cache.PWToken, token)
	if err != nil {
		return mapTokenMiss(err, cache.PWToken)
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return invalidToken(cache.PWToken)
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user.Frozen {
		return ErrAccountFrozen
	}

	temp, err := cryptox.GeneratePassword()
	if err != nil {
		return fmt.Errorf("failed to generate temporary password: %w", err)
	}
	hash, err := cryptox.HashPassword(temp)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.PurgeSessions(ctx, user.ID, ""); err != nil {
		return err
	}

	if err := s.Notifier.SendTemporaryPassword(ctx, user.Email, user.Username, temp); err != nil {
		log.Error("failed to send temporary password", "user_id", user.ID, "error", err)
	}
	return nil
}
