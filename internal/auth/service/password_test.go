package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/norviklabs/norvik/internal/auth/cache"
	"github.com/norviklabs/norvik/internal/auth/domain"
	"github.com/norviklabs/norvik/pkg/cryptox"
)

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("rotates password and purges every session", func(t *testing.T) {
		env := newTestEnv(t)
		user := env.createUser(t, "quin@example.com", withPassword("old-password"))

		first, _, err := env.Service.Login(ctx, "quin@example.com", "old-password", false)
		require.NoError(t, err)
		second, _, err := env.Service.Login(ctx, "quin@example.com", "old-password", false)
		require.NoError(t, err)

		us := domain.NewUserSession(second.Session, user)
		require.NoError(t, env.Service.ChangePassword(ctx, us, "old-password", "new-password"))

		// Both sessions are gone, the caller's included.
		require.Empty(t, env.liveSessionIDs(t, user.ID, first.Session.ID, second.Session.ID))
		require.False(t, env.cachedSession(t, first.Session.ID))
		require.False(t, env.cachedSession(t, second.Session.ID))

		// Old password no longer works; the new one does.
		_, _, err = env.Service.Login(ctx, "quin@example.com", "old-password", false)
		require.ErrorIs(t, err, ErrInvalidCredentials)
		grant, _, err := env.Service.Login(ctx, "quin@example.com", "new-password", false)
		require.NoError(t, err)
		require.NotNil(t, grant)

		require.Len(t, env.Notifier.ChangeAlerts, 1)
		require.Equal(t, "quin@example.com", env.Notifier.ChangeAlerts[0].Email)
		require.NotEmpty(t, env.Notifier.ChangeAlerts[0].Token)
	})

	t.Run("alerted undo token reverses the change", func(t *testing.T) {
		env := newTestEnv(t)
		env.createUser(t, "quil@example.com", withPassword("old-password"))

		grant, _, err := env.Service.Login(ctx, "quil@example.com", "old-password", false)
		require.NoError(t, err)

		us := domain.NewUserSession(grant.Session, grant.User)
		require.NoError(t, env.Service.ChangePassword(ctx, us, "old-password", "hijacked-pw"))

		// The alert carries a live single-use recovery token.
		undo := env.Notifier.ChangeAlerts[0].Token
		regained, err := env.Service.VerifyForgotPassword(ctx, undo, "recovered-pw")
		require.NoError(t, err)
		require.NotNil(t, regained)

		_, _, err = env.Service.Login(ctx, "quil@example.com", "hijacked-pw", false)
		require.ErrorIs(t, err, ErrInvalidCredentials)
		_, _, err = env.Service.Login(ctx, "quil@example.com", "recovered-pw", false)
		require.NoError(t, err)

		_, err = env.Service.VerifyForgotPassword(ctx, undo, "again-pw")
		var tokenErr *InvalidTokenError
		require.ErrorAs(t, err, &tokenErr)
	})

	t.Run("wrong current password", func(t *testing.T) {
		env := newTestEnv(t)
		user := env.createUser(t, "rita@example.com", withPassword("old-password"))
		grant, _, err := env.Service.Login(ctx, "rita@example.com", "old-password", false)
		require.NoError(t, err)

		us := domain.NewUserSession(grant.Session, user)
		err = env.Service.ChangePassword(ctx, us, "not-the-password", "new-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("alert delivery failure does not fail the change", func(t *testing.T) {
		env := newTestEnv(t)
		user := env.createUser(t, "sam@example.com", withPassword("old-password"))
		grant, _, err := env.Service.Login(ctx, "sam@example.com", "old-password", false)
		require.NoError(t, err)

		env.Notifier.FailAlerts = true
		us := domain.NewUserSession(grant.Session, user)
		require.NoError(t, env.Service.ChangePassword(ctx, us, "old-password", "new-password"))

		fresh, err := env.Store.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.NoError(t, cryptox.VerifyPassword("new-password", fresh.PasswordHash))
	})
}

func TestForgotPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("mails a recovery token", func(t *testing.T) {
		env := newTestEnv(t)
		user := env.createUser(t, "tara@example.com", withPassword("hunter22"))

		require.NoError(t, env.Service.ForgotPassword(ctx, "tara@example.com"))
		require.Len(t, env.Notifier.ForgotTokens, 1)

		got, err := env.Cache.Get(ctx, cache.PWToken, env.Notifier.ForgotTokens[0])
		require.NoError(t, err)
		require.Equal(t, user.ID, got)
	})

	t.Run("unknown email is silently accepted", func(t *testing.T) {
		env := newTestEnv(t)

		require.NoError(t, env.Service.ForgotPassword(ctx, "ghost@example.com"))
		require.Empty(t, env.Notifier.ForgotTokens)
	})

	t.Run("throttled resend is silently dropped", func(t *testing.T) {
		env := newTestEnv(t)
		env.createUser(t, "uma@example.com", withPassword("hunter22"))

		require.NoError(t, env.Service.ForgotPassword(ctx, "uma@example.com"))
		require.NoError(t, env.Service.ForgotPassword(ctx, "uma@example.com"))
		require.Len(t, env.Notifier.ForgotTokens, 1)
	})

	t.Run("delivery failure propagates", func(t *testing.T) {
		env := newTestEnv(t)
		env.createUser(t, "vic@example.com", withPassword("hunter22"))
		env.Notifier.FailForgot = true

		err := env.Service.ForgotPassword(ctx, "vic@example.com")
		require.ErrorIs(t, err, errSendFailed)
	})

	t.Run("failed delivery does not start the throttle window", func(t *testing.T) {
		env := newTestEnv(t)
		env.createUser(t, "wes@example.com", withPassword("hunter22"))
		env.Notifier.FailForgot = true

		err := env.Service.ForgotPassword(ctx, "wes@example.com")
		require.ErrorIs(t, err, errSendFailed)

		// The user never got a token, so the immediate retry goes out.
		env.Notifier.FailForgot = false
		require.NoError(t, env.Service.ForgotPassword(ctx, "wes@example.com"))
		require.Len(t, env.Notifier.ForgotTokens, 1)
	})
}

func TestVerifyForgotPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("full recovery scenario", func(t *testing.T) {
		env := newTestEnv(t)
		user := env.createUser(t, "wade@example.com", withPassword("hunter22"))

		// An existing session that must not survive recovery.
		old, _, err := env.Service.Login(ctx, "wade@example.com", "hunter22", false)
		require.NoError(t, err)

		require.NoError(t, env.Service.ForgotPassword(ctx, "wade@example.com"))
		token := env.Notifier.ForgotTokens[0]

		grant, err := env.Service.VerifyForgotPassword(ctx, token, "fresh-password")
		require.NoError(t, err)
		require.Equal(t, user.ID, grant.Session.UserID)

		// Prior session invalidated in both store and cache; exactly one new one.
		require.Empty(t, env.liveSessionIDs(t, user.ID, old.Session.ID))
		require.False(t, env.cachedSession(t, old.Session.ID))
		require.True(t, env.cachedSession(t, grant.Session.ID))

		_, _, err = env.Service.Login(ctx, "wade@example.com", "hunter22", false)
		require.ErrorIs(t, err, ErrInvalidCredentials)
		_, _, err = env.Service.Login(ctx, "wade@example.com", "fresh-password", false)
		require.NoError(t, err)
	})

	t.Run("token is single use", func(t *testing.T) {
		env := newTestEnv(t)
		env.createUser(t, "xena@example.com", withPassword("hunter22"))

		require.NoError(t, env.Service.ForgotPassword(ctx, "xena@example.com"))
		token := env.Notifier.ForgotTokens[0]

		_, err := env.Service.VerifyForgotPassword(ctx, token, "fresh-password")
		require.NoError(t, err)

		_, err = env.Service.VerifyForgotPassword(ctx, token, "another-password")
		var tokenErr *InvalidTokenError
		require.ErrorAs(t, err, &tokenErr)
		require.Equal(t, cache.PWToken, tokenErr.Kind)
	})
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("sets a temporary password and mails it", func(t *testing.T) {
		env := newTestEnv(t)
		user := env.createUser(t, "yuri@example.com", withPassword("hunter22"))

		old, _, err := env.Service.Login(ctx, "yuri@example.com", "hunter22", false)
		require.NoError(t, err)

		require.NoError(t, env.Service.ForgotPassword(ctx, "yuri@example.com"))
		token := env.Notifier.ForgotTokens[0]

		require.NoError(t, env.Service.ResetPassword(ctx, token))
		require.Len(t, env.Notifier.TempPasswords, 1)

		// All sessions purged; no new one is established by this path.
		require.Empty(t, env.liveSessionIDs(t, user.ID, old.Session.ID))

		temp := env.Notifier.TempPasswords[0]
		grant, _, err := env.Service.Login(ctx, "yuri@example.com", temp, false)
		require.NoError(t, err)
		require.NotNil(t, grant)
	})

	t.Run("token is single use", func(t *testing.T) {
		env := newTestEnv(t)
		env.createUser(t, "zoe@example.com", withPassword("hunter22"))

		require.NoError(t, env.Service.ForgotPassword(ctx, "zoe@example.com"))
		token := env.Notifier.ForgotTokens[0]

		require.NoError(t, env.Service.ResetPassword(ctx, token))

		err := env.Service.ResetPassword(ctx, token)
		var tokenErr *InvalidTokenError
		require.ErrorAs(t, err, &tokenErr)
		require.Equal(t, cache.PWToken, tokenErr.Kind)
	})
}
