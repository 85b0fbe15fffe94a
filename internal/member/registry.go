package member

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Repository persists member records.
type Repository interface {
	Insert(ctx context.Context, m *Member) error
	Update(ctx context.Context, m *Member) error
	Delete(ctx context.Context, id int64) error
	ByID(ctx context.Context, id int64) (*Member, error)
	ByToken(ctx context.Context, token string) (*Member, error)
	ByEmail(ctx context.Context, email string) (*Member, error)
	ByName(ctx context.Context, first, last string) ([]Member, error)
	List(ctx context.Context, filter ListFilter) ([]Member, error)
}

// Registry enforces member identity rules on top of a repository.
type Registry struct {
	repo Repository
}

// NewRegistry creates a registry backed by a repository.
func NewRegistry(repo Repository) *Registry {
	return &Registry{repo: repo}
}

// FindByToken resolves the member behind a scanned token.
func (r *Registry) FindByToken(ctx context.Context, token string) (*Member, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: token required", ErrInvalidInput)
	}
	return r.repo.ByToken(ctx, token)
}

// FindByEmail looks up a member by email, ignoring case.
func (r *Registry) FindByEmail(ctx context.Context, email string) (*Member, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrNotFound
	}
	return r.repo.ByEmail(ctx, email)
}

// FindByName looks up a member by first and last name, ignoring case.
// More than one match yields ErrAmbiguousMatch; the caller decides what to do.
func (r *Registry) FindByName(ctx context.Context, first, last string) (*Member, error) {
	matches, err := r.repo.ByName(ctx, strings.TrimSpace(first), strings.TrimSpace(last))
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %d members named %s %s", ErrAmbiguousMatch, len(matches), first, last)
	}
}

// FindByID returns a member by internal id.
func (r *Registry) FindByID(ctx context.Context, id int64) (*Member, error) {
	return r.repo.ByID(ctx, id)
}

// List returns members ordered by last then first name.
func (r *Registry) List(ctx context.Context, filter ListFilter) ([]Member, error) {
	return r.repo.List(ctx, filter)
}

// EmailTaken reports whether another member already uses the email.
func (r *Registry) EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error) {
	existing, err := r.repo.ByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return existing.ID != exceptID, nil
}

// Create validates and inserts a new member. A scan token is assigned here,
// once, before the record is persisted.
func (r *Registry) Create(ctx context.Context, m *Member) error {
	normalize(m)
	if err := Validate(m); err != nil {
		return err
	}
	if m.Token == "" {
		m.Token = uuid.NewString()
	}
	taken, err := r.EmailTaken(ctx, m.Email, 0)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: email %s already in use", ErrDuplicateKey, m.Email)
	}
	if _, err := r.repo.ByToken(ctx, m.Token); err == nil {
		return fmt.Errorf("%w: token already assigned", ErrDuplicateKey)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return r.repo.Insert(ctx, m)
}

// Update saves changes to an existing member. The stored token is immutable.
func (r *Registry) Update(ctx context.Context, m *Member) error {
	existing, err := r.repo.ByID(ctx, m.ID)
	if err != nil {
		return err
	}
	if m.Token != "" && m.Token != existing.Token {
		return fmt.Errorf("%w: token cannot be changed", ErrInvalidInput)
	}
	m.Token = existing.Token
	m.CreatedAt = existing.CreatedAt
	normalize(m)
	if err := Validate(m); err != nil {
		return err
	}
	taken, err := r.EmailTaken(ctx, m.Email, m.ID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: email %s already in use", ErrDuplicateKey, m.Email)
	}
	return r.repo.Update(ctx, m)
}

// Delete removes a member.
func (r *Registry) Delete(ctx context.Context, id int64) error {
	return r.repo.Delete(ctx, id)
}

func normalize(m *Member) {
	if m == nil {
		return
	}
	m.FirstName = strings.TrimSpace(m.FirstName)
	m.LastName = strings.TrimSpace(m.LastName)
	m.Email = NormalizeEmail(m.Email)
	m.Phone = strings.TrimSpace(m.Phone)
	m.Token = strings.TrimSpace(m.Token)
	if m.PaymentType == "" {
		m.PaymentType = PaymentUnspecified
	}
}
