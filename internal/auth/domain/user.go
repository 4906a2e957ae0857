package domain

import "time"

// User is the identity record. Users are never physically deleted; freezing
// is the terminal state for abusive accounts.
type User struct {
	ID              string
	Email           string
	Username        string
	Phone           *string
	PasswordHash    string // argon2id encoded
	Role            Role
	OTPSecret       *string // base32 TOTP secret (nullable)
	Frozen          bool
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Verified reports whether the user's email has been verified.
func (u User) Verified() bool {
	return u.EmailVerifiedAt != nil
}

// OTPEnabled reports whether the user has two factor auth configured.
func (u User) OTPEnabled() bool {
	return u.OTPSecret != nil && *u.OTPSecret != ""
}

// OTPEnrollment is handed back when a TOTP secret is (re)generated. URL is
// the otpauth:// provisioning payload for authenticator apps.
type OTPEnrollment struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
	Issuer string `json:"issuer"`
}
