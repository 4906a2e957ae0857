package domain

import "time"

// Session is the durable proof of an authenticated login. One user may hold
// many concurrent sessions; purged sessions are marked expired, not deleted.
type Session struct {
	ID          string
	UserID      string
	CSRFToken   string
	Permanent   bool // remember-me
	OTPVerified bool
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Expired reports whether the session is past its expiry.
func (s Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// UserSession is the cache-resident projection of (Session x User) carrying
// only what authorization needs, so the guard's hot path never joins.
type UserSession struct {
	ID        string `json:"id"`
	CSRFToken string `json:"csrf"`
	UserID    string `json:"user_id"`
	Role      Role   `json:"role"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Phone     string `json:"phone,omitempty"`
	Frozen    bool   `json:"frozen"`
	ExpiresAt int64  `json:"expires_at"` // unix seconds
}

// NewUserSession builds the projection at session-creation time. It must be
// invalidated whenever the underlying user or session changes materially.
func NewUserSession(s Session, u User) UserSession {
	var phone string
	if u.Phone != nil {
		phone = *u.Phone
	}
	return UserSession{
		ID:        s.ID,
		CSRFToken: s.CSRFToken,
		UserID:    u.ID,
		Role:      u.Role,
		Email:     u.Email,
		Username:  u.Username,
		Phone:     phone,
		Frozen:    u.Frozen,
		ExpiresAt: s.ExpiresAt.Unix(),
	}
}

// Expired reports whether the projected session is past its expiry.
func (us UserSession) Expired() bool {
	return time.Now().Unix() > us.ExpiresAt
}

// SessionGrant is the outcome of a successful authentication: a freshly
// persisted session plus the user it belongs to. The transport layer turns it
// into the session cookie and CSRF response.
type SessionGrant struct {
	Session Session
	User    User
}

// OTPChallenge is returned by login when the user has two factor auth: the
// opaque token must be presented to verify-otp instead of credentials.
type OTPChallenge struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Remember bool   `json:"remember"`
}
