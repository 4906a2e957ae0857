package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/norviklabs/norvik/internal/auth/domain"
	"github.com/norviklabs/norvik/internal/auth/store"
)

type usersRepo struct {
	db querier
}

const userColumns = `id, email, username, phone, password_hash, role, otp_secret, frozen, email_verified_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u          domain.User
		phone      sql.NullString
		otpSecret  sql.NullString
		verifiedAt sql.NullTime
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&phone,
		&u.PasswordHash,
		&u.Role,
		&otpSecret,
		&u.Frozen,
		&verifiedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Phone = mapNullStringPtr(phone)
	u.OTPSecret = mapNullStringPtr(otpSecret)
	u.EmailVerifiedAt = mapNullTimePtr(verifiedAt)
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, username, phone, password_hash, role, otp_secret, frozen, email_verified_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.Email,
		u.Username,
		mapOptionalString(u.Phone),
		u.PasswordHash,
		u.Role,
		mapOptionalString(u.OTPSecret),
		u.Frozen,
		optionalTime(u.EmailVerifiedAt),
		u.CreatedAt,
		u.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	return r.touch(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID)
}

func (r *usersRepo) UpdateOTPSecret(ctx context.Context, userID string, secret *string) error {
	return r.touch(ctx, `UPDATE users SET otp_secret = ?, updated_at = ? WHERE id = ?`,
		mapOptionalString(secret), time.Now().UTC(), userID)
}

func (r *usersRepo) MarkEmailVerified(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	return r.touch(ctx, `UPDATE users SET email_verified_at = COALESCE(email_verified_at, ?), updated_at = ? WHERE id = ?`,
		now, now, userID)
}

func (r *usersRepo) SetFrozen(ctx context.Context, userID string, frozen bool) error {
	return r.touch(ctx, `UPDATE users SET frozen = ?, updated_at = ? WHERE id = ?`,
		frozen, time.Now().UTC(), userID)
}

// touch runs an UPDATE and maps zero affected rows to ErrNotFound.
func (r *usersRepo) touch(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func optionalTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
