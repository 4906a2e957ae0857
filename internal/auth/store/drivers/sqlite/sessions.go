package sqlite

import (
	"context"
	"time"

	"github.com/norviklabs/norvik/internal/auth/domain"
	"github.com/norviklabs/norvik/internal/auth/store"
)

type sessionsRepo struct {
	db querier
}

const sessionColumns = `id, user_id, csrf_token, permanent, otp_verified, expires_at, created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (domain.Session, error) {
	var s domain.Session
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.CSRFToken,
		&s.Permanent,
		&s.OTPVerified,
		&s.ExpiresAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, csrf_token, permanent, otp_verified, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.UserID,
		s.CSRFToken,
		s.Permanent,
		s.OTPVerified,
		s.ExpiresAt,
		s.CreatedAt,
		s.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, id string) (domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

func (r *sessionsRepo) ExpireSession(ctx context.Context, id string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET expires_at = ?, updated_at = ? WHERE id = ?`,
		now.Add(-time.Second), now, id)
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

func (r *sessionsRepo) PurgeSessions(ctx context.Context, userID string, skipID string) ([]domain.Session, error) {
	now := time.Now().UTC()

	// Single statement so the returned set is exactly the set of rows the
	// update expired, even with logins landing concurrently.
	rows, err := r.db.QueryContext(ctx,
		`UPDATE sessions SET expires_at = ?, updated_at = ?
		 WHERE user_id = ? AND expires_at > ? AND id != ?
		 RETURNING `+sessionColumns,
		now.Add(-time.Second), now, userID, now, skipID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purged []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		purged = append(purged, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return purged, nil
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
