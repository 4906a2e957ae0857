package service

import "context"

// Notifier delivers the outbound account emails. Delivery failure handling is
// the caller's decision: registration and forgot-password sends carry the
// token the whole flow exists to deliver, so those failures propagate; the
// alert sends are logged and swallowed.
type Notifier interface {
	// SendRegistrationToken delivers the email-verification token.
	SendRegistrationToken(ctx context.Context, email, username, token string) error

	// SendPasswordChangedAlert tells the user their password changed. The
	// token, when non-empty, is a single-use recovery token the alert links
	// to so a hijacked change can be undone.
	SendPasswordChangedAlert(ctx context.Context, email, username, token string) error

	// SendTemporaryPassword delivers a system-generated temporary password.
	SendTemporaryPassword(ctx context.Context, email, username, password string) error

	// SendForgotPasswordToken delivers the password-recovery token.
	SendForgotPasswordToken(ctx context.Context, email, username, token string) error

	// SendAccountFrozenAlert tells the user their account was frozen.
	SendAccountFrozenAlert(ctx context.Context, email, username string) error
}
