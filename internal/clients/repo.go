package clients

import (
	"context"
	"errors"

	"docharvest-backend/internal/shared/pagination"
)

var (
	ErrNotFound      = errNotFound{}
	ErrEmailTaken    = errors.New("client email already exists")
	ErrHasDocuments  = errors.New("client still owns documents")
	ErrNotConfigured = errors.New("clients service not configured")
)

type errNotFound struct{}

func (errNotFound) Error() string { return "client not found" }

// Repo persists clients. Implementations return ErrNotFound and ErrEmailTaken.
type Repo interface {
	Create(ctx context.Context, c Client) (Client, error)
	GetByID(ctx context.Context, id int64) (Client, error)
	List(ctx context.Context, page pagination.Page) ([]Client, int, error)
	Update(ctx context.Context, c Client) (Client, error)
	Delete(ctx context.Context, id int64) error
}
