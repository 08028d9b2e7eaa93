package ports

import (
	"context"
	"time"
)

// BlobStore keeps raw uploads and generated exports
type BlobStore interface {
	// Put stores data under a key derived from name and returns the key
	Put(ctx context.Context, name string, data []byte) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// URL returns a link to download key, valid for at least ttl where the
	// backend supports expiring links
	URL(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Backend names the storage implementation
	Backend() string
}
