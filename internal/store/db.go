package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

// NewDB creates a Postgres connection with sane defaults and runs migrations.
func NewDB(connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &DB{Client: db}, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS hosts (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		email       TEXT NOT NULL,
		phone       TEXT NOT NULL,
		department  TEXT NOT NULL DEFAULT '',
		photo_path  TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL DEFAULT 'active',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS visits (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		phone          TEXT NOT NULL,
		email          TEXT NOT NULL,
		company        TEXT NOT NULL DEFAULT 'N/A',
		purpose        TEXT NOT NULL,
		host_id        TEXT NOT NULL,
		photo_path     TEXT NOT NULL,
		id_proof       TEXT NOT NULL,
		check_in_time  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		check_out_time TIMESTAMPTZ,
		status         TEXT NOT NULL DEFAULT 'checked-in',
		qr_code        TEXT NOT NULL,
		badge_number   TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS admins (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_visits_status   ON visits(status);
	CREATE INDEX IF NOT EXISTS idx_visits_check_in ON visits(check_in_time);
	`
	_, err := db.Exec(schema)
	return err
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
