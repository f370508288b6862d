package identities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akarpov87/idvault/internal/common"
	"github.com/akarpov87/idvault/internal/dbx"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL error code raised when an insert or
// update breaks a unique constraint. Relying on it (instead of a lookup
// before the insert) makes Create safe under concurrent registration.
const uniqueViolation = "23505"

// PostgresRepository implements Repository over *sql.DB; RotatePassword
// needs to begin its own transaction.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (r *PostgresRepository) Create(ctx context.Context, identity *Identity) (*Identity, error) {
	query := `
		INSERT INTO identities (username, email, password_digest)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		identity.Username, identity.Email, identity.PasswordDigest).
		Scan(&identity.ID, &identity.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrorDuplicate
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return identity, nil
}

func (r *PostgresRepository) GetByLogin(ctx context.Context, login string) (*Identity, error) {
	query := `
		SELECT id, username, email, password_digest, COALESCE(avatar_key, ''), created_at
		FROM identities
		WHERE (username = $1 OR email = $1) AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRowContext(ctx, query, login))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Identity, error) {
	query := `
		SELECT id, username, email, password_digest, COALESCE(avatar_key, ''), created_at
		FROM identities
		WHERE id = $1 AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id, username, email string) (*Identity, error) {
	query := `
		UPDATE identities SET username = $2, email = $3
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING id, username, email, password_digest, COALESCE(avatar_key, ''), created_at
	`

	identity, err := r.scanOne(r.db.QueryRowContext(ctx, query, id, username, email))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrorDuplicate
		}
		return nil, err
	}
	return identity, nil
}

func (r *PostgresRepository) RotatePassword(ctx context.Context, id string, rotate func(current string) (string, error)) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `
			SELECT password_digest
			FROM identities
			WHERE id = $1 AND deleted_at IS NULL
			FOR UPDATE
		`

		var current string
		if err := tx.QueryRowContext(ctx, query, id).Scan(&current); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return common.ErrorNotFound
			}
			return fmt.Errorf("db error: %w", err)
		}

		next, err := rotate(current)
		if err != nil {
			return err
		}

		update := `
			UPDATE identities SET password_digest = $2
			WHERE id = $1
		`

		if _, err := tx.ExecContext(ctx, update, id, next); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}

func (r *PostgresRepository) SetAvatarKey(ctx context.Context, id, key string) error {
	query := `
		UPDATE identities SET avatar_key = $2
		WHERE id = $1 AND deleted_at IS NULL
	`

	return r.execExpectingRow(ctx, query, id, key)
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE identities SET deleted_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`

	return r.execExpectingRow(ctx, query, id)
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*Identity, error) {
	identity := &Identity{}
	err := row.Scan(&identity.ID, &identity.Username, &identity.Email,
		&identity.PasswordDigest, &identity.AvatarKey, &identity.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		if isUniqueViolation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return identity, nil
}

func (r *PostgresRepository) execExpectingRow(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
