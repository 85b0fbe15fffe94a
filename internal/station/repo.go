package station

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"
)

// PostgresRepository persists stations in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// UpsertStation ensures a station record exists.
func (r *PostgresRepository) UpsertStation(ctx context.Context, stationID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stations (station_id)
		VALUES ($1)
		ON CONFLICT (station_id) DO NOTHING
	`, stationID)
	return err
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *PostgresRepository) SaveRefreshToken(ctx context.Context, subject, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (subject, token, expires_at)
		VALUES ($1, $2, $3)
	`, subject, token, expiresAt)
	return err
}

// ConsumeRefreshToken revokes the token if it is still live.
func (r *PostgresRepository) ConsumeRefreshToken(ctx context.Context, token string, now time.Time) (string, error) {
	var subject string
	err := r.db.QueryRowContext(ctx, `
		UPDATE refresh_tokens SET revoked = TRUE
		WHERE token = $1 AND revoked = FALSE AND expires_at > $2
		RETURNING subject
	`, token, now).Scan(&subject)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrTokenRevoked
	}
	return subject, err
}

// MemoryRepository keeps stations in process memory for dev and tests.
type MemoryRepository struct {
	mu       sync.Mutex
	stations map[string]time.Time
	tokens   map[string]refreshToken
}

type refreshToken struct {
	subject   string
	expiresAt time.Time
	revoked   bool
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		stations: make(map[string]time.Time),
		tokens:   make(map[string]refreshToken),
	}
}

// UpsertStation ensures a station record exists.
func (r *MemoryRepository) UpsertStation(_ context.Context, stationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stations[stationID]; !ok {
		r.stations[stationID] = time.Now().UTC()
	}
	return nil
}

// SaveRefreshToken stores a refresh token.
func (r *MemoryRepository) SaveRefreshToken(_ context.Context, subject, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = refreshToken{subject: subject, expiresAt: expiresAt}
	return nil
}

// ConsumeRefreshToken revokes the token if it is still live.
func (r *MemoryRepository) ConsumeRefreshToken(_ context.Context, token string, now time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.tokens[token]
	if !ok || rt.revoked || !rt.expiresAt.After(now) {
		return "", ErrTokenRevoked
	}
	rt.revoked = true
	r.tokens[token] = rt
	return rt.subject, nil
}

// Stations returns the number of registered stations.
func (r *MemoryRepository) Stations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stations)
}
