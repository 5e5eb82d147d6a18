package clients

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"docharvest-backend/internal/shared/pagination"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu      sync.RWMutex
	nextID  int64
	clients map[int64]Client
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{clients: make(map[int64]Client)}
}

func (r *MemoryRepo) Create(ctx context.Context, c Client) (Client, error) {
	if err := ctx.Err(); err != nil {
		return Client{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailTakenLocked(c.Email, 0) {
		return Client{}, ErrEmailTaken
	}
	r.nextID++
	now := time.Now().UTC()
	c.ID = r.nextID
	c.CreatedAt = now
	c.UpdatedAt = now
	r.clients[c.ID] = c
	return c, nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id int64) (Client, error) {
	if err := ctx.Err(); err != nil {
		return Client{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	if !ok {
		return Client{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) List(ctx context.Context, page pagination.Page) ([]Client, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	all := make([]Client, 0, len(r.clients))
	for _, c := range r.clients {
		all = append(all, c)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	start := page.Offset()
	if start >= total {
		return []Client{}, total, nil
	}
	end := start + page.Limit
	if page.Limit <= 0 || end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *MemoryRepo) Update(ctx context.Context, c Client) (Client, error) {
	if err := ctx.Err(); err != nil {
		return Client{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.clients[c.ID]
	if !ok {
		return Client{}, ErrNotFound
	}
	if r.emailTakenLocked(c.Email, c.ID) {
		return Client{}, ErrEmailTaken
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	r.clients[c.ID] = c
	return c, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[id]; !ok {
		return ErrNotFound
	}
	delete(r.clients, id)
	return nil
}

func (r *MemoryRepo) emailTakenLocked(email string, exceptID int64) bool {
	for id, c := range r.clients {
		if id != exceptID && strings.EqualFold(c.Email, email) {
			return true
		}
	}
	return false
}

var _ Repo = (*MemoryRepo)(nil)
