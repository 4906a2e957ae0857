// Package email provides the outbound notifier implementation. Actual
// delivery belongs to an external mailer; this notifier writes structured
// log records that a delivery pipeline consumes.
package email

import (
	"context"
	"log/slog"
)

// LogNotifier satisfies service.Notifier by emitting one structured record
// per send. Tokens and passwords are logged only at debug level.
type LogNotifier struct {
	Logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{Logger: logger}
}

func (n *LogNotifier) SendRegistrationToken(ctx context.Context, email, username, token string) error {
	n.Logger.Info("email: registration token", "to", email, "username", username)
	n.Logger.Debug("email: registration token payload", "to", email, "token", token)
	return nil
}

func (n *LogNotifier) SendPasswordChangedAlert(ctx context.Context, email, username, token string) error {
	n.Logger.Info("email: password changed alert", "to", email, "username", username)
	if token != "" {
		n.Logger.Debug("email: password changed payload", "to", email, "token", token)
	}
	return nil
}

func (n *LogNotifier) SendTemporaryPassword(ctx context.Context, email, username, password string) error {
	n.Logger.Info("email: temporary password", "to", email, "username", username)
	n.Logger.Debug("email: temporary password payload", "to", email, "password", password)
	return nil
}

func (n *LogNotifier) SendForgotPasswordToken(ctx context.Context, email, username, token string) error {
	n.Logger.Info("email: forgot password token", "to", email, "username", username)
	n.Logger.Debug("email: forgot password payload", "to", email, "token", token)
	return nil
}

func (n *LogNotifier) SendAccountFrozenAlert(ctx context.Context, email, username string) error {
	n.Logger.Info("email: account frozen alert", "to", email, "username", username)
	return nil
}
