package documents

import (
	"context"
	"errors"

	"docharvest-backend/internal/shared/pagination"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrClientMissing = errors.New("document client does not exist")
	ErrCorruptRow    = errors.New("document row violates source pairing")
	ErrNoSource      = errors.New("document has no source")
)

// Repo persists documents. Listings are newest first.
type Repo interface {
	Create(ctx context.Context, doc NewDocument) (Document, error)
	GetByID(ctx context.Context, id int64) (Document, error)
	List(ctx context.Context, page pagination.Page) ([]Document, int, error)
	ListByClient(ctx context.Context, clientID int64, page pagination.Page) ([]Document, int, error)
	Delete(ctx context.Context, id int64) error
	CountByClient(ctx context.Context, clientID int64) (int, error)
}
