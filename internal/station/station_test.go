package station

import (
	"context"
	"errors"
	"testing"
	"time"

	"gymaccess/internal/auth"
)

func newService(repo Repository) *Service {
	return NewService(repo, "test", "key", time.Minute, time.Hour)
}

func TestRegister(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newService(repo)
	ctx := context.Background()

	pair, err := svc.Register(ctx, " front-desk ")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	claims, err := auth.Parse(pair.AccessToken, "key", "test")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "front-desk" || claims.Role != auth.RoleStation {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := svc.Register(ctx, "front-desk"); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if repo.Stations() != 1 {
		t.Fatalf("expected 1 station, got %d", repo.Stations())
	}

	if _, err := svc.Register(ctx, "  "); !errors.Is(err, ErrInvalidStation) {
		t.Fatalf("expected invalid station, got %v", err)
	}
}

func TestRefreshRotates(t *testing.T) {
	svc := newService(NewMemoryRepository())
	ctx := context.Background()

	pair, err := svc.Issue(ctx, "admin", auth.RoleAdmin)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	next, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := auth.Parse(next.AccessToken, "key", "test")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Role != auth.RoleAdmin {
		t.Fatalf("expected role preserved, got %s", claims.Role)
	}

	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected reused token revoked, got %v", err)
	}
	if _, err := svc.Refresh(ctx, pair.AccessToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected access token refused, got %v", err)
	}
}
