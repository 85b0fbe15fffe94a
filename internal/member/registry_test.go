package member

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newMember(first, last, email string) *Member {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	return &Member{
		FirstName:         first,
		LastName:          last,
		Email:             email,
		Phone:             "+393331234567",
		SubscriptionStart: &start,
		SubscriptionEnd:   &end,
	}
}

func TestCreateAssignsToken(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryRepository())

	m := newMember("Mario", "Rossi", "Mario.Rossi@Example.com")
	if err := reg.Create(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.ID == 0 {
		t.Fatal("expected id to be assigned")
	}
	parsed, err := uuid.Parse(m.Token)
	if err != nil {
		t.Fatalf("expected uuid token, got %q: %v", m.Token, err)
	}
	if parsed.String() != m.Token {
		t.Fatalf("expected canonical token form, got %q", m.Token)
	}
	if m.Email != "mario.rossi@example.com" {
		t.Fatalf("expected lowercased email, got %q", m.Email)
	}
	if m.PaymentType != PaymentUnspecified {
		t.Fatalf("expected default payment type, got %q", m.PaymentType)
	}

	got, err := reg.FindByToken(ctx, m.Token)
	if err != nil {
		t.Fatalf("find by token: %v", err)
	}
	if got.ID != m.ID {
		t.Fatalf("expected member %d, got %d", m.ID, got.ID)
	}
}

func TestCreateKeepsProvidedToken(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryRepository())

	m := newMember("Anna", "Bianchi", "anna@example.com")
	m.Token = "11111111-2222-3333-4444-555555555555"
	if err := reg.Create(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.Token != "11111111-2222-3333-4444-555555555555" {
		t.Fatalf("expected provided token to be kept, got %q", m.Token)
	}
}

func TestCreateRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryRepository())

	first := newMember("Mario", "Rossi", "mario@example.com")
	if err := reg.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}

	dupEmail := newMember("Luigi", "Verdi", "MARIO@example.com")
	if err := reg.Create(ctx, dupEmail); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected duplicate key for email, got %v", err)
	}

	dupToken := newMember("Luigi", "Verdi", "luigi@example.com")
	dupToken.Token = first.Token
	if err := reg.Create(ctx, dupToken); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected duplicate key for token, got %v", err)
	}

	all, err := reg.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 member persisted, got %d", len(all))
	}
}

func TestCreateValidatesInput(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryRepository())

	tests := []struct {
		name string
		m    *Member
	}{
		{name: "missing first name", m: newMember("", "Rossi", "a@example.com")},
		{name: "missing last name", m: newMember("Mario", " ", "b@example.com")},
		{name: "bad email", m: newMember("Mario", "Rossi", "not-an-email")},
		{name: "bad phone", m: func() *Member {
			m := newMember("Mario", "Rossi", "c@example.com")
			m.Phone = "12ab"
			return m
		}()},
		{name: "bad payment type", m: func() *Member {
			m := newMember("Mario", "Rossi", "d@example.com")
			m.PaymentType = "bitcoin"
			return m
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := reg.Create(ctx, tt.m); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestUpdateKeepsTokenImmutable(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryRepository())

	m := newMember("Mario", "Rossi", "mario@example.com")
	if err := reg.Create(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}
	original := m.Token

	renewal := *m
	renewal.Token = ""
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	renewal.SubscriptionEnd = &end
	if err := reg.Update(ctx, &renewal); err != nil {
		t.Fatalf("update: %v", err)
	}
	if renewal.Token != original {
		t.Fatalf("expected token %q to survive update, got %q", original, renewal.Token)
	}

	tampered := renewal
	tampered.Token = uuid.NewString()
	if err := reg.Update(ctx, &tampered); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for token change, got %v", err)
	}

	got, err := reg.FindByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Token != original {
		t.Fatalf("expected stored token unchanged, got %q", got.Token)
	}
	if !got.SubscriptionEnd.Equal(end) {
		t.Fatalf("expected renewed end %s, got %s", end, got.SubscriptionEnd)
	}
}

func TestUpdateRejectsEmailOfAnotherMember(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryRepository())

	a := newMember("Mario", "Rossi", "mario@example.com")
	b := newMember("Anna", "Bianchi", "anna@example.com")
	for _, m := range []*Member{a, b} {
		if err := reg.Create(ctx, m); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	b.Email = "Mario@example.com"
	if err := reg.Update(ctx, b); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected duplicate key, got %v", err)
	}

	a.Phone = "+393339999999"
	if err := reg.Update(ctx, a); err != nil {
		t.Fatalf("update with own email: %v", err)
	}
}

func TestFindByName(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryRepository())

	for _, m := range []*Member{
		newMember("Mario", "Rossi", "mario1@example.com"),
		newMember("mario", "ROSSI", "mario2@example.com"),
		newMember("Anna", "Bianchi", "anna@example.com"),
	} {
		if err := reg.Create(ctx, m); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	if _, err := reg.FindByName(ctx, "MARIO", "rossi"); !errors.Is(err, ErrAmbiguousMatch) {
		t.Fatalf("expected ambiguous match, got %v", err)
	}
	got, err := reg.FindByName(ctx, "anna", "bianchi")
	if err != nil {
		t.Fatalf("find by name: %v", err)
	}
	if got.Email != "anna@example.com" {
		t.Fatalf("unexpected member %q", got.Email)
	}
	if _, err := reg.FindByName(ctx, "Nobody", "Here"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFoldNameMatchesFullCaseFolding(t *testing.T) {
	cases := []struct{ a, b string }{
		{"Strauß", "STRAUSS"},
		{" Nicolò ", "NICOLÒ"},
		{"Rossi", "rossi"},
	}
	for _, tc := range cases {
		if FoldName(tc.a) != FoldName(tc.b) {
			t.Fatalf("expected %q and %q to fold equal, got %q and %q", tc.a, tc.b, FoldName(tc.a), FoldName(tc.b))
		}
	}

	ctx := context.Background()
	reg := NewRegistry(NewMemoryRepository())
	if err := reg.Create(ctx, newMember("Johann", "Strauß", "johann@example.com")); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := reg.FindByName(ctx, "JOHANN", "STRAUSS")
	if err != nil {
		t.Fatalf("find by folded name: %v", err)
	}
	if got.Email != "johann@example.com" {
		t.Fatalf("unexpected member %q", got.Email)
	}
	list, err := reg.List(ctx, ListFilter{Query: "strauss"})
	if err != nil || len(list) != 1 {
		t.Fatalf("expected search to match folded name, got %d %v", len(list), err)
	}
}

func TestFindByEmailIgnoresCase(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryRepository())

	m := newMember("Mario", "Rossi", "mario@example.com")
	if err := reg.Create(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := reg.FindByEmail(ctx, "  MARIO@Example.COM ")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if got.ID != m.ID {
		t.Fatalf("expected %d, got %d", m.ID, got.ID)
	}
	if _, err := reg.FindByEmail(ctx, "other@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFindByTokenRequiresToken(t *testing.T) {
	reg := NewRegistry(NewMemoryRepository())
	if _, err := reg.FindByToken(context.Background(), "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := reg.FindByToken(context.Background(), uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListOrdersAndFilters(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryRepository())

	for _, m := range []*Member{
		newMember("Zeno", "Bianchi", "zeno@example.com"),
		newMember("Anna", "Verdi", "anna@example.com"),
		newMember("Anna", "Bianchi", "annab@example.com"),
	} {
		if err := reg.Create(ctx, m); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	all, err := reg.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"annab@example.com", "zeno@example.com", "anna@example.com"}
	for i, m := range all {
		if m.Email != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], m.Email)
		}
	}

	filtered, err := reg.List(ctx, ListFilter{Query: "verdi"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Email != "anna@example.com" {
		t.Fatalf("unexpected filter result %+v", filtered)
	}

	page, err := reg.List(ctx, ListFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 1 || page[0].Email != "zeno@example.com" {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestHasPlaceholderEmail(t *testing.T) {
	m := Member{Email: "mario.rossi@PLACEHOLDER.local"}
	if !m.HasPlaceholderEmail() {
		t.Fatal("expected placeholder email")
	}
	m.Email = "mario@example.com"
	if m.HasPlaceholderEmail() {
		t.Fatal("expected real email")
	}
}
