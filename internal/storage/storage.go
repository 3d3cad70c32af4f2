package storage

import (
	"context"
	"io"
)

// ObjectStorage is the blog image store. Only the operations the handlers
// need; URL building stays with the backend since it knows the endpoint.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}
