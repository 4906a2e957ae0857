package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/norviklabs/norvik/internal/auth/cache"
	"github.com/norviklabs/norvik/internal/auth/domain"
	"github.com/norviklabs/norvik/internal/auth/store"
	"github.com/norviklabs/norvik/pkg/cryptox"
	"github.com/norviklabs/norvik/pkg/idx"
	"github.com/norviklabs/norvik/pkg/slogx"
)

// EstablishSession is the single session-issuance routine. Every successful
// authentication path routes through here so session-creation semantics never
// diverge: fresh CSRF token, durable Session row, cached UserSession
// projection.
func (s *AuthService) EstablishSession(ctx context.Context, user domain.User, remember bool) (*domain.SessionGrant, error) {
	csrf, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate csrf token: %w", err)
	}

	ttl := s.SessionTTL
	if remember {
		ttl = s.PermanentTTL
	}

	now := time.Now().UTC()
	sess := domain.Session{
		ID:          idx.New().String(),
		UserID:      user.ID,
		CSRFToken:   csrf,
		Permanent:   remember,
		OTPVerified: user.OTPEnabled(),
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.Store.Sessions().CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	if err := cache.SetUserSession(ctx, s.Cache, domain.NewUserSession(sess, user)); err != nil {
		return nil, fmt.Errorf("failed to cache session: %w", err)
	}

	return &domain.SessionGrant{Session: sess, User: user}, nil
}

// Logout expires the caller's session. With purgeAll set it also expires
// every other session the user holds.
func (s *AuthService) Logout(ctx context.Context, us domain.UserSession, purgeAll bool) error {
	log := slogx.FromContext(ctx)

	if err := s.Store.Sessions().ExpireSession(ctx, us.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to expire session: %w", err)
	}
	if err := s.Cache.Delete(ctx, cache.Session, us.ID); err != nil {
		log.Error("failed to evict session from cache", "session_id", us.ID, "error", err)
	}

	if purgeAll {
		return s.PurgeSessions(ctx, us.UserID, us.ID)
	}
	return nil
}

// PurgeSessions expires every session the user holds except skipID (pass ""
// to purge all). The store purge is authoritative; a failed cache eviction is
// logged and left to the entry's TTL.
func (s *AuthService) PurgeSessions(ctx context.Context, userID string, skipID string) error {
	log := slogx.FromContext(ctx)

	purged, err := s.Store.Sessions().PurgeSessions(ctx, userID, skipID)
	if err != nil {
		return fmt.Errorf("failed to purge sessions: %w", err)
	}

	for _, sess := range purged {
		if err := s.Cache.Delete(ctx, cache.Session, sess.ID); err != nil {
			log.Error("session purged from store but not cache",
				"session_id", sess.ID, "user_id", userID, "error", err)
		}
	}
	return nil
}

// SetOTPSecret generates a fresh TOTP secret for the user, persists it and
// returns the provisioning URL for the user to scan. Calling it again
// replaces the previous secret.
func (s *AuthService) SetOTPSecret(ctx context.Context, userID string) (domain.OTPEnrollment, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.OTPEnrollment{}, fmt.Errorf("failed to look up user: %w", err)
	}
	if user.Frozen {
		return domain.OTPEnrollment{}, ErrAccountFrozen
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.TOTPIssuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.OTPEnrollment{}, fmt.Errorf("failed to generate totp key: %w", err)
	}

	secret := key.Secret()
	if err := s.Store.Users().UpdateOTPSecret(ctx, userID, &secret); err != nil {
		return domain.OTPEnrollment{}, fmt.Errorf("failed to store totp secret: %w", err)
	}

	return domain.OTPEnrollment{
		Secret: secret,
		URL:    key.URL(),
		Issuer: s.TOTPIssuer,
	}, nil
}

// FreezeAccount marks the user frozen, purges every session and sends the
// freeze alert. Freezing is terminal; every flow refuses frozen accounts at
// its earliest check.
func (s *AuthService) FreezeAccount(ctx context.Context, userID string) error {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.Store.Users().SetFrozen(ctx, userID, true); err != nil {
		return fmt.Errorf("failed to freeze user: %w", err)
	}
	if err := s.PurgeSessions(ctx, userID, ""); err != nil {
		return err
	}

	if err := s.Notifier.SendAccountFrozenAlert(ctx, user.Email, user.Username); err != nil {
		log.Error("failed to send freeze alert", "user_id", userID, "error", err)
	}
	return nil
}
