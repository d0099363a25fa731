package host

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// PostgresRepo persists hosts in Postgres.
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo creates a repo.
func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const hostColumns = `id, name, email, phone, department, photo_path, status, created_at, updated_at`

func scanHost(row interface{ Scan(...any) error }) (Host, error) {
	var h Host
	err := row.Scan(&h.ID, &h.Name, &h.Email, &h.Phone, &h.Department, &h.PhotoPath, &h.Status, &h.CreatedAt, &h.UpdatedAt)
	return h, err
}

// ListActive returns active hosts alphabetical by name.
func (r *PostgresRepo) ListActive(ctx context.Context) ([]Host, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+hostColumns+` FROM hosts
		WHERE status = $1
		ORDER BY name
	`, StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hosts []Host
	for rows.Next() {
		h, err := scanHost(rows)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, h)
	}
	return hosts, rows.Err()
}

// GetByID returns a host regardless of status, or nil when unknown.
func (r *PostgresRepo) GetByID(ctx context.Context, id string) (*Host, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+hostColumns+` FROM hosts WHERE id = $1`, id)
	h, err := scanHost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &h, nil
}

// Insert writes a new host.
func (r *PostgresRepo) Insert(ctx context.Context, h Host) (Host, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.Status == "" {
		h.Status = StatusActive
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO hosts (id, name, email, phone, department, photo_path, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at
	`, h.ID, h.Name, h.Email, h.Phone, h.Department, h.PhotoPath, h.Status)
	if err := row.Scan(&h.CreatedAt, &h.UpdatedAt); err != nil {
		return Host{}, err
	}
	return h, nil
}

// Update rewrites the host's contact fields. photoPath nil keeps the
// current photo. Returns nil when the id is unknown.
func (r *PostgresRepo) Update(ctx context.Context, id string, h Host, photoPath *string) (*Host, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE hosts
		SET name = $2, email = $3, phone = $4, department = $5,
		    photo_path = COALESCE($6, photo_path), updated_at = NOW()
		WHERE id = $1
		RETURNING `+hostColumns+`
	`, id, h.Name, h.Email, h.Phone, h.Department, photoPath)
	updated, err := scanHost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &updated, nil
}

// SetStatus flips a host's status. Returns false when the id is unknown.
func (r *PostgresRepo) SetStatus(ctx context.Context, id, status string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE hosts SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CountActive counts active hosts.
func (r *PostgresRepo) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hosts WHERE status = $1`, StatusActive).Scan(&n)
	return n, err
}

var _ Repository = (*PostgresRepo)(nil)
