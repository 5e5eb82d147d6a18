package documents

import (
	"context"
	"sort"
	"sync"
	"time"

	"docharvest-backend/internal/shared/pagination"
)

// ClientExistsFunc reports whether a client id refers to a stored client.
type ClientExistsFunc func(ctx context.Context, clientID int64) bool

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]documentRow

	// ClientExists, when set, emulates the client foreign key.
	ClientExists ClientExistsFunc
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[int64]documentRow)}
}

func (r *MemoryRepo) Create(ctx context.Context, doc NewDocument) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if doc.Source == nil {
		return Document{}, ErrNoSource
	}
	if r.ClientExists != nil && !r.ClientExists(ctx, doc.ClientID) {
		return Document{}, ErrClientMissing
	}

	row := rowFromNew(doc)
	r.mu.Lock()
	r.nextID++
	row.ID = r.nextID
	row.CreatedAt = time.Now().UTC()
	if row.ProcessedAt.IsZero() {
		row.ProcessedAt = row.CreatedAt
	}
	r.rows[row.ID] = row
	r.mu.Unlock()

	return row.toDocument()
}

func (r *MemoryRepo) GetByID(ctx context.Context, id int64) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	row, ok := r.rows[id]
	r.mu.RUnlock()
	if !ok {
		return Document{}, ErrNotFound
	}
	return row.toDocument()
}

func (r *MemoryRepo) List(ctx context.Context, page pagination.Page) ([]Document, int, error) {
	return r.list(ctx, page, func(documentRow) bool { return true })
}

func (r *MemoryRepo) ListByClient(ctx context.Context, clientID int64, page pagination.Page) ([]Document, int, error) {
	return r.list(ctx, page, func(row documentRow) bool { return row.ClientID == clientID })
}

func (r *MemoryRepo) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *MemoryRepo) CountByClient(ctx context.Context, clientID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, row := range r.rows {
		if row.ClientID == clientID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) list(ctx context.Context, page pagination.Page, keep func(documentRow) bool) ([]Document, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	matched := make([]documentRow, 0, len(r.rows))
	for _, row := range r.rows {
		if keep(row) {
			matched = append(matched, row)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := page.Offset()
	if start >= total {
		return []Document{}, total, nil
	}
	end := start + page.Limit
	if page.Limit <= 0 || end > total {
		end = total
	}

	out := make([]Document, 0, end-start)
	for _, row := range matched[start:end] {
		doc, err := row.toDocument()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, doc)
	}
	return out, total, nil
}

var _ Repo = (*MemoryRepo)(nil)
