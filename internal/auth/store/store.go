package store

import (
	"context"
	"errors"

	"github.com/norviklabs/norvik/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and to stop callers from accidentally nesting transactions.
type Store interface {
	Users() Users
	Sessions() Sessions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// This is the recommended way to handle transactions as it automatically
	// handles commit/rollback logic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the email is already taken.
	CreateUser(ctx context.Context, u domain.User) error

	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during login and recovery flows.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// UpdateOTPSecret sets or clears (nil) the TOTP secret and bumps updated_at.
	UpdateOTPSecret(ctx context.Context, userID string, secret *string) error

	// MarkEmailVerified stamps email_verified_at. Returns ErrNotFound when the
	// user is absent; verifying twice is a no-op at this layer.
	MarkEmailVerified(ctx context.Context, userID string) error

	// SetFrozen flips the frozen flag and bumps updated_at.
	SetFrozen(ctx context.Context, userID string, frozen bool) error
}

type Sessions interface {
	// CreateSession inserts a new session record (id is ULID from app).
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByID returns a session by id, expired or not.
	GetSessionByID(ctx context.Context, id string) (domain.Session, error)

	// ExpireSession forces expires_at into the past and bumps updated_at.
	ExpireSession(ctx context.Context, id string) error

	// PurgeSessions expires every live session for a user, except the one
	// named by skipID when non-empty. Returns exactly the sessions it
	// expired, atomically with the expiry, so the caller can evict the
	// matching cache entries without missing concurrent logins.
	PurgeSessions(ctx context.Context, userID string, skipID string) ([]domain.Session, error)

	// DeleteExpiredSessions removes sessions past expiry (housekeeping).
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}
