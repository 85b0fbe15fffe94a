package attendance

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps records in process memory for dev and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	records []Record
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Insert stores a new record.
func (r *MemoryRepository) Insert(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	rec.ID = r.nextID
	if rec.CheckIn.IsZero() {
		rec.CheckIn = time.Now().UTC()
	}
	r.records = append(r.records, copyRecord(*rec))
	return nil
}

// LatestOpen returns the member's most recent record without check-out.
func (r *MemoryRepository) LatestOpen(_ context.Context, memberID int64) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *Record
	for i := range r.records {
		rec := r.records[i]
		if rec.MemberID != memberID || rec.CheckOut != nil {
			continue
		}
		if latest == nil || rec.CheckIn.After(latest.CheckIn) || (rec.CheckIn.Equal(latest.CheckIn) && rec.ID > latest.ID) {
			c := copyRecord(rec)
			latest = &c
		}
	}
	return latest, nil
}

// Close sets check-out once.
func (r *MemoryRepository) Close(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		if r.records[i].ID != id {
			continue
		}
		if r.records[i].CheckOut != nil {
			return ErrAlreadyClosed
		}
		closedAt := at
		r.records[i].CheckOut = &closedAt
		return nil
	}
	return ErrAlreadyClosed
}

// List returns records newest first.
func (r *MemoryRepository) List(_ context.Context, filter Filter) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []Record
	for _, rec := range r.records {
		if filter.MemberID != 0 && rec.MemberID != filter.MemberID {
			continue
		}
		res = append(res, copyRecord(rec))
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CheckIn.Equal(res[j].CheckIn) {
			return res[i].CheckIn.After(res[j].CheckIn)
		}
		return res[i].ID > res[j].ID
	})
	limit, offset := filter.Limit, filter.Offset
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(res) {
		return []Record{}, nil
	}
	res = res[offset:]
	if limit < len(res) {
		res = res[:limit]
	}
	return res, nil
}

// Open returns every record still lacking a check-out, oldest first.
func (r *MemoryRepository) Open(_ context.Context) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []Record
	for _, rec := range r.records {
		if rec.CheckOut == nil {
			res = append(res, copyRecord(rec))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CheckIn.Before(res[j].CheckIn) })
	return res, nil
}

func copyRecord(rec Record) Record {
	if rec.CheckOut != nil {
		out := *rec.CheckOut
		rec.CheckOut = &out
	}
	return rec
}
