package object

import (
	"context"
	"errors"
	"io"
)

// ErrInvalidKey is returned for keys that are absolute or escape the store root.
var ErrInvalidKey = errors.New("invalid storage key")

// ObjectStore is durable byte storage addressed by relative keys.
type ObjectStore interface {
	// Put writes r under key, creating intermediate namespaces as needed.
	Put(ctx context.Context, key string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
