package member

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepository keeps members in process memory for dev and tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]Member
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[int64]Member)}
}

// Insert stores a new member, enforcing unique email and token.
func (r *MemoryRepository) Insert(_ context.Context, m *Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkUnique(m, 0); err != nil {
		return err
	}
	r.nextID++
	now := time.Now().UTC()
	m.ID = r.nextID
	m.CreatedAt = now
	m.UpdatedAt = now
	r.byID[m.ID] = *m
	return nil
}

// Update replaces an existing member.
func (r *MemoryRepository) Update(_ context.Context, m *Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[m.ID]
	if !ok {
		return ErrNotFound
	}
	if err := r.checkUnique(m, m.ID); err != nil {
		return err
	}
	m.Token = existing.Token
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = time.Now().UTC()
	r.byID[m.ID] = *m
	return nil
}

// Delete removes a member.
func (r *MemoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// ByID returns a member by id.
func (r *MemoryRepository) ByID(_ context.Context, id int64) (*Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

// ByToken returns a member by scan token.
func (r *MemoryRepository) ByToken(_ context.Context, token string) (*Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.byID {
		if m.Token == token {
			return &m, nil
		}
	}
	return nil, ErrNotFound
}

// ByEmail returns a member by email, ignoring case.
func (r *MemoryRepository) ByEmail(_ context.Context, email string) (*Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.byID {
		if strings.EqualFold(m.Email, email) {
			return &m, nil
		}
	}
	return nil, ErrNotFound
}

// ByName returns every member whose first and last name match, ignoring case.
func (r *MemoryRepository) ByName(_ context.Context, first, last string) ([]Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	first, last = FoldName(first), FoldName(last)
	var res []Member
	for _, m := range r.byID {
		if FoldName(m.FirstName) == first && FoldName(m.LastName) == last {
			res = append(res, m)
		}
	}
	sortMembers(res)
	return res, nil
}

// List returns members ordered by last then first name.
func (r *MemoryRepository) List(_ context.Context, filter ListFilter) ([]Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q := FoldName(filter.Query)
	res := make([]Member, 0, len(r.byID))
	for _, m := range r.byID {
		if q != "" && !matchesQuery(m, q) {
			continue
		}
		res = append(res, m)
	}
	sortMembers(res)
	return paginate(res, filter.Limit, filter.Offset), nil
}

func (r *MemoryRepository) checkUnique(m *Member, selfID int64) error {
	for id, other := range r.byID {
		if id == selfID {
			continue
		}
		if strings.EqualFold(other.Email, m.Email) {
			return fmt.Errorf("%w: email %s already in use", ErrDuplicateKey, m.Email)
		}
		if selfID == 0 && other.Token == m.Token {
			return fmt.Errorf("%w: token already assigned", ErrDuplicateKey)
		}
	}
	return nil
}

func matchesQuery(m Member, q string) bool {
	for _, field := range []string{m.FirstName, m.LastName, m.Email, m.Phone} {
		if strings.Contains(FoldName(field), q) {
			return true
		}
	}
	return false
}

func sortMembers(ms []Member) {
	sort.Slice(ms, func(i, j int) bool {
		li, lj := FoldName(ms[i].LastName), FoldName(ms[j].LastName)
		if li != lj {
			return li < lj
		}
		fi, fj := FoldName(ms[i].FirstName), FoldName(ms[j].FirstName)
		if fi != fj {
			return fi < fj
		}
		return ms[i].ID < ms[j].ID
	})
}

func paginate(ms []Member, limit, offset int) []Member {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ms) {
		return []Member{}
	}
	ms = ms[offset:]
	if limit > 0 && limit < len(ms) {
		ms = ms[:limit]
	}
	return ms
}
