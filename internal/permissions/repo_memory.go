package permissions

import (
	"context"
	"sort"
	"sync"
	"time"
)

type key struct {
	userID int64
	module string
}

// MemoryRepo keeps permissions in a map keyed by (user, module).
type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64
	data   map[key]Permission
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[key]Permission)}
}

func (r *MemoryRepo) ListForUser(ctx context.Context, userID int64) ([]Permission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Permission{}
	for k, p := range r.data {
		if k.userID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Module < out[j].Module })
	return out, nil
}

func (r *MemoryRepo) Upsert(ctx context.Context, p Permission) (Permission, error) {
	if err := ctx.Err(); err != nil {
		return Permission{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{userID: p.UserID, module: p.Module}
	if existing, ok := r.data[k]; ok {
		p.ID = existing.ID
	} else {
		r.nextID++
		p.ID = r.nextID
	}
	p.UpdatedAt = time.Now().UTC()
	r.data[k] = p
	return p, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID int64, module string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{userID: userID, module: module}
	if _, ok := r.data[k]; !ok {
		return ErrNotFound
	}
	delete(r.data, k)
	return nil
}

// DeleteForUser drops every permission of userID. It stands in for the
// ON DELETE CASCADE the Postgres schema provides.
func (r *MemoryRepo) DeleteForUser(ctx context.Context, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.data {
		if k.userID == userID {
			delete(r.data, k)
		}
	}
	return nil
}
