// Package storage fetches document bytes from object storage.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound means the bucket or object does not exist.
var ErrNotFound = errors.New("object not found")

// ErrUnavailable means the storage backend could not answer in time or
// failed in a way that says nothing about the object itself.
var ErrUnavailable = errors.New("object storage unavailable")

// ObjectStore is the only storage capability the delivery path needs.
type ObjectStore interface {
	FetchBytes(ctx context.Context, bucket, path string) ([]byte, error)
}
