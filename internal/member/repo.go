package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const memberColumns = `id, token, first_name, last_name, email, phone,
	subscription_start, subscription_end, medical_certificate_start, medical_certificate_end,
	payment_type, receipt_number, registration_fee_paid_until, created_at, updated_at`

// PostgresRepository persists members in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert writes a new member and fills in id and timestamps.
func (r *PostgresRepository) Insert(ctx context.Context, m *Member) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO members (token, first_name, last_name, email, phone,
			subscription_start, subscription_end, medical_certificate_start, medical_certificate_end,
			payment_type, receipt_number, registration_fee_paid_until,
			first_name_key, last_name_key)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING id, created_at, updated_at
	`, m.Token, m.FirstName, m.LastName, m.Email, m.Phone,
		m.SubscriptionStart, m.SubscriptionEnd, m.MedicalCertificateStart, m.MedicalCertificateEnd,
		m.PaymentType, m.ReceiptNumber, m.RegistrationFeePaidUntil,
		FoldName(m.FirstName), FoldName(m.LastName))
	if err := row.Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return mapWriteErr(err)
	}
	return nil
}

// Update writes every mutable column. The token column is never touched.
func (r *PostgresRepository) Update(ctx context.Context, m *Member) error {
	row := r.db.QueryRowContext(ctx, `
		UPDATE members SET
			first_name = $2, last_name = $3, email = $4, phone = $5,
			subscription_start = $6, subscription_end = $7,
			medical_certificate_start = $8, medical_certificate_end = $9,
			payment_type = $10, receipt_number = $11, registration_fee_paid_until = $12,
			first_name_key = $13, last_name_key = $14,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, m.ID, m.FirstName, m.LastName, m.Email, m.Phone,
		m.SubscriptionStart, m.SubscriptionEnd, m.MedicalCertificateStart, m.MedicalCertificateEnd,
		m.PaymentType, m.ReceiptNumber, m.RegistrationFeePaidUntil,
		FoldName(m.FirstName), FoldName(m.LastName))
	if err := row.Scan(&m.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return mapWriteErr(err)
	}
	return nil
}

// Delete removes a member and, by cascade, its attendance records.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ByID returns a member by id.
func (r *PostgresRepository) ByID(ctx context.Context, id int64) (*Member, error) {
	return r.one(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id)
}

// ByToken returns a member by scan token.
func (r *PostgresRepository) ByToken(ctx context.Context, token string) (*Member, error) {
	return r.one(ctx, `SELECT `+memberColumns+` FROM members WHERE token = $1`, token)
}

// ByEmail returns a member by email, ignoring case.
func (r *PostgresRepository) ByEmail(ctx context.Context, email string) (*Member, error) {
	return r.one(ctx, `SELECT `+memberColumns+` FROM members WHERE LOWER(email) = LOWER($1)`, email)
}

// ByName returns every member with the given name, ignoring case. Names are
// compared on the FoldName keys written by Insert and Update.
func (r *PostgresRepository) ByName(ctx context.Context, first, last string) ([]Member, error) {
	return r.many(ctx, `SELECT `+memberColumns+` FROM members
		WHERE first_name_key = $1 AND last_name_key = $2
		ORDER BY id`, FoldName(first), FoldName(last))
}

// List returns members with an optional text search.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members`
	args := []any{}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+FoldName(q)+"%")
		query += ` WHERE first_name_key LIKE $1 OR last_name_key LIKE $1 OR LOWER(email) LIKE $1 OR phone LIKE $1`
	}
	query += ` ORDER BY last_name_key, first_name_key, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return r.many(ctx, query, args...)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(s scanner) (Member, error) {
	var m Member
	err := s.Scan(&m.ID, &m.Token, &m.FirstName, &m.LastName, &m.Email, &m.Phone,
		&m.SubscriptionStart, &m.SubscriptionEnd, &m.MedicalCertificateStart, &m.MedicalCertificateEnd,
		&m.PaymentType, &m.ReceiptNumber, &m.RegistrationFeePaidUntil, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (r *PostgresRepository) one(ctx context.Context, query string, args ...any) (*Member, error) {
	m, err := scanMember(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *PostgresRepository) many(ctx context.Context, query string, args ...any) ([]Member, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// mapWriteErr turns unique violations into ErrDuplicateKey.
func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, pgErr.ConstraintName)
	}
	return err
}
