package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-auth/internal/session/domain"
)

// PostgresRepository implements Repository on a pgx connection pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a session repository backed by the given pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const sessionColumns = `id, user_id, refresh_family_id, refresh_token_hash, user_agent, ip, expires_at, created_at, updated_at`

// Create persists the session. Fails on a family id collision (unique index);
// callers treat that as fatal rather than retrying silently.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.UserID, s.FamilyID, s.RefreshTokenHash, s.UserAgent, s.IP, s.ExpiresAt, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

// GetByID returns the session for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

// GetByFamilyID returns the session holding the family id, or nil if not found.
func (r *PostgresRepository) GetByFamilyID(ctx context.Context, familyID string) (*domain.Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE refresh_family_id = $1`, familyID)
	return scanSession(row)
}

// ListByUser returns the user's sessions, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

// ListAll returns every session, newest first.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]*domain.Session, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

// DeleteByID removes the session with the given id. Idempotent.
func (r *PostgresRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteByFamilyID removes the session holding the family id. Idempotent.
func (r *PostgresRepository) DeleteByFamilyID(ctx context.Context, familyID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE refresh_family_id = $1`, familyID)
	return err
}

// DeleteAllForUser removes the user's sessions, keeping the one identified by
// excludeFamilyID when non-empty. Returns the number of rows removed.
func (r *PostgresRepository) DeleteAllForUser(ctx context.Context, userID, excludeFamilyID string) (int64, error) {
	if excludeFamilyID == "" {
		tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
		if err != nil {
			return 0, err
		}
		return tag.RowsAffected(), nil
	}
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE user_id = $1 AND refresh_family_id <> $2`,
		userID, excludeFamilyID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteExpired removes the user's sessions past their expiry.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1 AND expires_at < now()`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteAll removes every session.
func (r *PostgresRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Rotate replaces the session holding oldFamilyID with next in one
// transaction. The old row is locked, deleted, and the replacement inserted;
// there is never a window in which both refresh tokens are redeemable, and a
// concurrent rotation of the same token fails with ErrFamilyNotFound.
func (r *PostgresRepository) Rotate(ctx context.Context, oldFamilyID string, next *domain.Session) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var oldID string
	err = tx.QueryRow(ctx, `
		SELECT id FROM sessions WHERE refresh_family_id = $1 FOR UPDATE`,
		oldFamilyID).Scan(&oldID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrFamilyNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, oldID); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		next.ID, next.UserID, next.FamilyID, next.RefreshTokenHash, next.UserAgent, next.IP,
		next.ExpiresAt, next.CreatedAt, next.UpdatedAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(&s.ID, &s.UserID, &s.FamilyID, &s.RefreshTokenHash, &s.UserAgent, &s.IP,
		&s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func scanSessions(rows pgx.Rows) ([]*domain.Session, error) {
	var out []*domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.FamilyID, &s.RefreshTokenHash, &s.UserAgent, &s.IP,
			&s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
