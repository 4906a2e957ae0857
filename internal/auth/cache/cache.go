// Package cache defines the ephemeral keyed storage contract driving session
// projections, single-use tokens and throttle counters. All cross-request
// coordination (token consumption, attempt counting, session liveness) leans
// on the driver's atomicity guarantees rather than in-process locks.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/norviklabs/norvik/internal/auth/domain"
)

var (
	// ErrNotFound is the "key absent" outcome. For single-use kinds the
	// service remaps it to an invalid-token authentication error.
	ErrNotFound = errors.New("cache: not found")
)

// ID is the closed set of cache namespaces. Each variant fixes its key prefix
// and default TTL so kinds can never collide.
type ID int

const (
	// Session holds the UserSession projection keyed by session id.
	Session ID = iota
	// RegToken maps a single-use registration token to a user id.
	RegToken
	// OTPToken maps a single-use OTP login token to a user id.
	OTPToken
	// PWToken maps a single-use password-reset token to a user id.
	PWToken
	// LoginAttempts counts failed logins per user id.
	LoginAttempts
	// OTPThrottle counts OTP attempts per user id.
	OTPThrottle
	// EmailThrottle marks a recent outbound email per user id.
	EmailThrottle
)

func (id ID) String() string {
	switch id {
	case Session:
		return "session"
	case RegToken:
		return "registration_token"
	case OTPToken:
		return "otp_token"
	case PWToken:
		return "pw_token"
	case LoginAttempts:
		return "login_attempts"
	case OTPThrottle:
		return "otp_throttle"
	case EmailThrottle:
		return "email_throttle"
	default:
		return "unknown"
	}
}

// Key returns the namespaced storage key for k.
func (id ID) Key(k string) string {
	return "auth:" + id.String() + ":" + k
}

// TTL is the default time-to-live for entries of this kind.
func (id ID) TTL() time.Duration {
	switch id {
	case Session:
		return 30 * time.Minute
	case RegToken:
		return 24 * time.Hour
	case OTPToken:
		return 2 * time.Minute
	case PWToken:
		return 15 * time.Minute
	case LoginAttempts:
		return 5 * time.Minute
	case OTPThrottle:
		return 5 * time.Minute
	case EmailThrottle:
		return 2 * time.Minute
	default:
		return time.Minute
	}
}

// Cache is the ephemeral keyed storage contract.
type Cache interface {
	// Set stores value under (id, key) with the given TTL. A zero TTL uses
	// the kind's default.
	Set(ctx context.Context, id ID, key, value string, ttl time.Duration) error

	// Get returns the value under (id, key) or ErrNotFound.
	Get(ctx context.Context, id ID, key string) (string, error)

	// Delete removes (id, key). Deleting an absent key is not an error.
	Delete(ctx context.Context, id ID, key string) error

	// Consume atomically reads and deletes (id, key). When N callers race on
	// the same key exactly one receives the value; the rest get ErrNotFound.
	Consume(ctx context.Context, id ID, key string) (string, error)

	// Increment atomically bumps the counter under (id, key) and returns the
	// post-increment value. The TTL is applied only when the key is created,
	// so the throttle window is anchored to the first increment.
	Increment(ctx context.Context, id ID, key string, ttl time.Duration) (int64, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}

// SetUserSession writes the session projection under the Session namespace.
func SetUserSession(ctx context.Context, c Cache, us domain.UserSession) error {
	raw, err := json.Marshal(us)
	if err != nil {
		return err
	}
	return c.Set(ctx, Session, us.ID, string(raw), Session.TTL())
}

// GetUserSession reads the session projection, returning ErrNotFound when the
// entry is absent or expired.
func GetUserSession(ctx context.Context, c Cache, sessionID string) (domain.UserSession, error) {
	raw, err := c.Get(ctx, Session, sessionID)
	if err != nil {
		return domain.UserSession{}, err
	}
	var us domain.UserSession
	if err := json.Unmarshal([]byte(raw), &us); err != nil {
		return domain.UserSession{}, err
	}
	return us, nil
}
