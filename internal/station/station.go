// Package station registers scan stations and rotates the refresh tokens
// issued to stations and admins.
package station

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gymaccess/internal/auth"
)

var (
	// ErrTokenRevoked is returned for refresh tokens that are unknown, used or expired.
	ErrTokenRevoked = errors.New("refresh token revoked")
	// ErrInvalidStation is returned for an empty station id.
	ErrInvalidStation = errors.New("station id required")
)

// Repository persists stations and refresh tokens.
type Repository interface {
	UpsertStation(ctx context.Context, stationID string) error
	SaveRefreshToken(ctx context.Context, subject, token string, expiresAt time.Time) error
	// ConsumeRefreshToken revokes a live token and returns its subject.
	ConsumeRefreshToken(ctx context.Context, token string, now time.Time) (string, error)
}

// Service issues token pairs and tracks refresh tokens.
type Service struct {
	repo       Repository
	issuer     string
	key        string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService creates a station service.
func NewService(repo Repository, issuer, key string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{repo: repo, issuer: issuer, key: key, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Register records a scan station and issues its tokens.
func (s *Service) Register(ctx context.Context, stationID string) (auth.TokenPair, error) {
	stationID = strings.TrimSpace(stationID)
	if stationID == "" {
		return auth.TokenPair{}, ErrInvalidStation
	}
	if err := s.repo.UpsertStation(ctx, stationID); err != nil {
		return auth.TokenPair{}, fmt.Errorf("upsert station: %w", err)
	}
	return s.Issue(ctx, stationID, auth.RoleStation)
}

// Issue signs a token pair and stores the refresh token.
func (s *Service) Issue(ctx context.Context, subject, role string) (auth.TokenPair, error) {
	pair, err := auth.Issue(subject, role, s.issuer, s.key, s.accessTTL, s.refreshTTL)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}
	if err := s.repo.SaveRefreshToken(ctx, subject, pair.RefreshToken, pair.RefreshExp); err != nil {
		return auth.TokenPair{}, fmt.Errorf("save refresh token: %w", err)
	}
	return pair, nil
}

// Refresh exchanges a refresh token for a new pair. Each refresh token works once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	claims, err := auth.Parse(refreshToken, s.key, s.issuer)
	if err != nil || claims.Kind != auth.KindRefresh {
		return auth.TokenPair{}, ErrTokenRevoked
	}
	subject, err := s.repo.ConsumeRefreshToken(ctx, refreshToken, time.Now())
	if err != nil {
		return auth.TokenPair{}, err
	}
	if subject != claims.Subject {
		return auth.TokenPair{}, ErrTokenRevoked
	}
	return s.Issue(ctx, claims.Subject, claims.Role)
}
