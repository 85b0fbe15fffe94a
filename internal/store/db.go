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

// NewDB opens a Postgres pool and verifies it answers within a few seconds.
func NewDB(ctx context.Context, connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{Client: db}, nil
}

// Healthy verifies the pool still answers.
func (d *DB) Healthy(ctx context.Context) bool {
	if d == nil || d.Client == nil {
		return false
	}
	return d.Client.PingContext(ctx) == nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS members (
	id                          BIGSERIAL PRIMARY KEY,
	token                       TEXT NOT NULL UNIQUE,
	first_name                  TEXT NOT NULL,
	last_name                   TEXT NOT NULL,
	email                       TEXT NOT NULL,
	phone                       TEXT NOT NULL DEFAULT '',
	subscription_start          DATE,
	subscription_end            DATE,
	medical_certificate_start   DATE,
	medical_certificate_end     DATE,
	payment_type                TEXT NOT NULL DEFAULT 'unspecified',
	receipt_number              TEXT NOT NULL DEFAULT '',
	registration_fee_paid_until DATE,
	first_name_key              TEXT NOT NULL DEFAULT '',
	last_name_key               TEXT NOT NULL DEFAULT '',
	created_at                  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at                  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_members_email ON members (LOWER(email));
CREATE INDEX IF NOT EXISTS idx_members_name_key ON members (last_name_key, first_name_key);

CREATE TABLE IF NOT EXISTS attendance_records (
	id                  BIGSERIAL PRIMARY KEY,
	member_id           BIGINT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
	check_in            TIMESTAMPTZ NOT NULL,
	check_out           TIMESTAMPTZ,
	subscription_status TEXT NOT NULL CHECK (subscription_status IN ('active', 'expired'))
);

CREATE INDEX IF NOT EXISTS idx_attendance_open ON attendance_records (member_id, check_in DESC) WHERE check_out IS NULL;
CREATE INDEX IF NOT EXISTS idx_attendance_check_in ON attendance_records (check_in DESC);

CREATE TABLE IF NOT EXISTS stations (
	station_id TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
	token      TEXT PRIMARY KEY,
	subject    TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	revoked    BOOLEAN NOT NULL DEFAULT FALSE
);
`

// Migrate creates the schema if it does not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.Client.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
