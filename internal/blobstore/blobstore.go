// Package blobstore keeps the original bytes of uploaded case documents.
package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a blob does not exist.
var ErrNotFound = errors.New("blob not found")

// Store saves uploaded files under backend-chosen keys. The key returned
// by Put is what callers persist and later pass to Get and Delete.
type Store interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Close() error
}
