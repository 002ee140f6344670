package core

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemDirectory is an in-memory UserDirectory used by tests and demo mode.
// It sits behind the same interface as PgDirectory so the auth code path is
// identical regardless of backing store.
type MemDirectory struct {
	mu      sync.RWMutex
	byID    map[string]*UserRecord
	byEmail map[string]string // normalized email -> id
}

func NewMemDirectory() *MemDirectory {
	return &MemDirectory{
		byID:    map[string]*UserRecord{},
		byEmail: map[string]string{},
	}
}

func (d *MemDirectory) FindByID(ctx context.Context, id string) (*UserRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *rec
	return &cp, nil
}

func (d *MemDirectory) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *d.byID[id]
	return &cp, nil
}

func (d *MemDirectory) Insert(ctx context.Context, rec *UserRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := NormalizeEmail(rec.Email)
	if _, exists := d.byEmail[key]; exists {
		return ErrDuplicateEmail
	}
	cp := *rec
	cp.Email = key
	d.byID[cp.ID] = &cp
	d.byEmail[key] = cp.ID
	return nil
}

func (d *MemDirectory) Update(ctx context.Context, id string, upd UserUpdate) (*UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	if upd.FirstName != nil {
		rec.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		rec.LastName = *upd.LastName
	}
	if upd.PhoneNumber != nil {
		rec.PhoneNumber = *upd.PhoneNumber
	}
	if upd.Institution != nil {
		rec.Institution = *upd.Institution
	}
	if upd.Grade != nil {
		rec.Grade = *upd.Grade
	}
	if upd.Subject != nil {
		rec.Subject = *upd.Subject
	}
	if upd.Role != nil {
		rec.Role = *upd.Role
	}
	if upd.Active != nil {
		rec.Active = *upd.Active
	}
	if upd.LastLogin != nil {
		t := *upd.LastLogin
		rec.LastLogin = &t
	}
	cp := *rec
	return &cp, nil
}

func (d *MemDirectory) List(ctx context.Context, f UserListFilter, page, perPage int) ([]UserRecord, int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var all []UserRecord
	for _, rec := range d.byID {
		if !d.matchesFilter(rec, f) {
			continue
		}
		all = append(all, *rec)
	}
	// Newest first, matching the Postgres ordering.
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := len(all)
	start := (page - 1) * perPage
	if start >= total {
		return []UserRecord{}, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (d *MemDirectory) matchesFilter(rec *UserRecord, f UserListFilter) bool {
	if f.Role != "" && rec.Role != f.Role {
		return false
	}
	if !f.IncludeInactive && !rec.Active {
		return false
	}
	return true
}

func (d *MemDirectory) Search(ctx context.Context, query string, role Role, limit int) ([]UserRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(query))
	var out []UserRecord
	for _, rec := range d.byID {
		if role != "" && rec.Role != role {
			continue
		}
		if !rec.Active {
			continue
		}
		hay := strings.ToLower(rec.FirstName + " " + rec.LastName + " " + rec.Email + " " + rec.Institution)
		if q != "" && !strings.Contains(hay, q) {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstName < out[j].FirstName })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (d *MemDirectory) CountByRole(ctx context.Context, role Role, activeOnly bool) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, rec := range d.byID {
		if rec.Role != role {
			continue
		}
		if activeOnly && !rec.Active {
			continue
		}
		n++
	}
	return n, nil
}

func (d *MemDirectory) ListByInstitution(ctx context.Context, role Role, institution string, limit int) ([]UserRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	inst := strings.ToLower(strings.TrimSpace(institution))
	var out []UserRecord
	for _, rec := range d.byID {
		if rec.Role != role || !rec.Active {
			continue
		}
		if inst == "" || strings.ToLower(rec.Institution) != inst {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstName < out[j].FirstName })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (d *MemDirectory) HasAdmin(ctx context.Context) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, rec := range d.byID {
		if rec.Role == RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}
