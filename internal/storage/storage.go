// Package storage wraps the S3-compatible object store that holds registration
// documents. Uploads happen elsewhere; this side only links to and removes files.
package storage

import (
	"context"
	"time"
)

// Storage is a reusable, S3-compatible object storage client interface.
type Storage interface {
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited URL that can be used to download the object without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
