// Package blob stores document and logo bytes in named buckets.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the bucket has no object under the key.
var ErrNotFound = errors.New("blob not found")

// Store is a bucketed object store.
type Store interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Delete(ctx context.Context, bucket, key string) error
	Exists(ctx context.Context, bucket, key string) (bool, error)
}

// Buckets names the three buckets the server writes to.
type Buckets struct {
	Documents      string
	RawLogos       string
	ProcessedLogos string
}
