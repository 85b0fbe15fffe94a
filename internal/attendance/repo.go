package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const recordColumns = `id, member_id, check_in, check_out, subscription_status`

// PostgresRepository persists attendance records in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert writes a new open record.
func (r *PostgresRepository) Insert(ctx context.Context, rec *Record) error {
	if rec.CheckIn.IsZero() {
		rec.CheckIn = time.Now().UTC()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (member_id, check_in, subscription_status)
		VALUES ($1, $2, $3)
		RETURNING id
	`, rec.MemberID, rec.CheckIn, string(rec.SubscriptionStatus))
	return row.Scan(&rec.ID)
}

// LatestOpen returns the member's most recent record without check-out.
func (r *PostgresRepository) LatestOpen(ctx context.Context, memberID int64) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE member_id = $1 AND check_out IS NULL
		ORDER BY check_in DESC, id DESC
		LIMIT 1
	`, memberID)
	var rec Record
	if err := row.Scan(&rec.ID, &rec.MemberID, &rec.CheckIn, &rec.CheckOut, &rec.SubscriptionStatus); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Close sets check-out once; a record that is already closed is left untouched.
func (r *PostgresRepository) Close(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance_records
		SET check_out = $2
		WHERE id = $1 AND check_out IS NULL
	`, id, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyClosed
	}
	return nil
}

// List returns records newest first with an optional member filter.
func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]Record, error) {
	limit, offset := filter.Limit, filter.Offset
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + recordColumns + ` FROM attendance_records`
	args := []any{}
	if filter.MemberID != 0 {
		args = append(args, filter.MemberID)
		query += fmt.Sprintf(" WHERE member_id = $%d", len(args))
	}
	query += fmt.Sprintf(" ORDER BY check_in DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	return r.query(ctx, query, args...)
}

// Open returns every record still lacking a check-out, oldest first.
func (r *PostgresRepository) Open(ctx context.Context) ([]Record, error) {
	return r.query(ctx, `SELECT `+recordColumns+` FROM attendance_records
		WHERE check_out IS NULL ORDER BY check_in, id`)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.MemberID, &rec.CheckIn, &rec.CheckOut, &rec.SubscriptionStatus); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
