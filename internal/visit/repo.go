package visit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"visitordesk/internal/host"
)

// pgUniqueViolation is the Postgres error code for unique constraint hits.
const pgUniqueViolation = "23505"

// PostgresRepo persists visit records in Postgres.
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo creates a repo.
func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const visitColumns = `id, name, phone, email, company, purpose, host_id, photo_path, id_proof,
	check_in_time, check_out_time, status, qr_code, badge_number`

func scanVisit(row interface{ Scan(...any) error }) (Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.Name, &v.Phone, &v.Email, &v.Company, &v.Purpose, &v.HostID,
		&v.PhotoPath, &v.IDProof, &v.CheckInTime, &v.CheckOutTime, &v.Status, &v.QRCode, &v.BadgeNumber)
	return v, err
}

// Insert writes a new visit. A badge_number unique violation is reported
// as ErrDuplicateBadge so the caller can regenerate and retry.
func (r *PostgresRepo) Insert(ctx context.Context, v Visit) (Visit, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO visits (`+visitColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, v.ID, v.Name, v.Phone, v.Email, v.Company, v.Purpose, v.HostID, v.PhotoPath, v.IDProof,
		v.CheckInTime, v.CheckOutTime, v.Status, v.QRCode, v.BadgeNumber)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return Visit{}, fmt.Errorf("%w: %s", ErrDuplicateBadge, v.BadgeNumber)
		}
		return Visit{}, err
	}
	return v, nil
}

// GetByID returns a visit by primary key, or nil when unknown.
func (r *PostgresRepo) GetByID(ctx context.Context, id string) (*Visit, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+visitColumns+` FROM visits WHERE id = $1`, id)
	v, err := scanVisit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// GetByBadge returns a visit by badge number with its host joined in,
// or nil when unknown.
func (r *PostgresRepo) GetByBadge(ctx context.Context, badgeNumber string) (*WithHost, error) {
	rows, err := r.queryWithHost(ctx, `WHERE v.badge_number = $1`, badgeNumber)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Checkout atomically transitions a checked-in visit to checked-out. The
// status predicate closes the double-checkout race: only one writer can
// match the checked-in row.
func (r *PostgresRepo) Checkout(ctx context.Context, badgeNumber string, at time.Time) (*Visit, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE visits
		SET check_out_time = $2, status = $3
		WHERE badge_number = $1 AND status = $4
		RETURNING `+visitColumns+`
	`, badgeNumber, at, StatusCheckedOut, StatusCheckedIn)
	v, err := scanVisit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// List returns visits newest check-in first, optionally filtered by status
// and/or a UTC calendar day.
func (r *PostgresRepo) List(ctx context.Context, f ListFilter) ([]WithHost, error) {
	clause := ""
	args := []any{}
	if f.Status != "" {
		args = append(args, f.Status)
		clause = fmt.Sprintf("WHERE v.status = $%d", len(args))
	}
	if f.Day != nil {
		args = append(args, *f.Day, f.Day.Add(24*time.Hour))
		cond := fmt.Sprintf("v.check_in_time >= $%d AND v.check_in_time < $%d", len(args)-1, len(args))
		if clause == "" {
			clause = "WHERE " + cond
		} else {
			clause += " AND " + cond
		}
	}
	return r.queryWithHost(ctx, clause, args...)
}

func (r *PostgresRepo) queryWithHost(ctx context.Context, clause string, args ...any) ([]WithHost, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT v.id, v.name, v.phone, v.email, v.company, v.purpose, v.host_id, v.photo_path,
		       v.id_proof, v.check_in_time, v.check_out_time, v.status, v.qr_code, v.badge_number,
		       h.id, h.name, h.email, h.phone, h.department, h.photo_path, h.status, h.created_at, h.updated_at
		FROM visits v
		LEFT JOIN hosts h ON h.id = v.host_id
		`+clause+`
		ORDER BY v.check_in_time DESC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []WithHost
	for rows.Next() {
		var v WithHost
		var (
			hID, hName, hEmail, hPhone, hDept, hPhoto, hStatus sql.NullString
			hCreated, hUpdated                                 sql.NullTime
		)
		if err := rows.Scan(&v.ID, &v.Name, &v.Phone, &v.Email, &v.Company, &v.Purpose, &v.HostID,
			&v.PhotoPath, &v.IDProof, &v.CheckInTime, &v.CheckOutTime, &v.Status, &v.QRCode, &v.BadgeNumber,
			&hID, &hName, &hEmail, &hPhone, &hDept, &hPhoto, &hStatus, &hCreated, &hUpdated); err != nil {
			return nil, err
		}
		if hID.Valid {
			v.Host = &host.Host{
				ID:         hID.String,
				Name:       hName.String,
				Email:      hEmail.String,
				Phone:      hPhone.String,
				Department: hDept.String,
				PhotoPath:  hPhoto.String,
				Status:     hStatus.String,
				CreatedAt:  hCreated.Time,
				UpdatedAt:  hUpdated.Time,
			}
		}
		res = append(res, v)
	}
	return res, rows.Err()
}

// CountsForDay aggregates today's dashboard numbers in one query.
func (r *PostgresRepo) CountsForDay(ctx context.Context, dayStart time.Time) (int, int, int, error) {
	var total, checkedIn, checkedOut int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = $2),
		       COUNT(*) FILTER (WHERE status = $3)
		FROM visits
		WHERE check_in_time >= $1 AND check_in_time < $1 + interval '1 day'
	`, dayStart, StatusCheckedIn, StatusCheckedOut).Scan(&total, &checkedIn, &checkedOut)
	if err != nil {
		return 0, 0, 0, err
	}
	return total, checkedIn, checkedOut, nil
}

var _ Repository = (*PostgresRepo)(nil)
