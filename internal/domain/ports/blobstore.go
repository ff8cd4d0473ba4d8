package ports

import (
	"context"
	"io"
)

// BlobStore keeps binary originals of fetched documents.
type BlobStore interface {
	Put(ctx context.Context, key string, contentType string, r io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
