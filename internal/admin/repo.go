package admin

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// PostgresRepo persists admin accounts in Postgres.
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo creates a repo.
func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// GetByUsername returns an admin, or nil when unknown.
func (r *PostgresRepo) GetByUsername(ctx context.Context, username string) (*Admin, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at FROM admins WHERE username = $1
	`, username)
	var a Admin
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// Insert writes a new admin account.
func (r *PostgresRepo) Insert(ctx context.Context, a Admin) (Admin, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO admins (id, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, a.ID, a.Username, a.PasswordHash)
	if err := row.Scan(&a.CreatedAt); err != nil {
		return Admin{}, err
	}
	return a, nil
}

var _ Repository = (*PostgresRepo)(nil)
