// Package storage persists synthesized reply audio and serves it back by
// name. Backends: local disk, S3-compatible object stores, Supabase buckets.
package storage

import (
	"context"
	"io"
)

// Store is a flat key/value blob store. Open wraps os.ErrNotExist when the
// key is missing. Implementations must be safe for concurrent use.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
