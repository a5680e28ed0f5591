// Package objectstore archives raw weather readings as JSON blobs.
package objectstore

import (
	"context"
	"errors"
)

var (
	// ErrWrite marks a rejected or failed blob write.
	ErrWrite = errors.New("object store write failed")

	// ErrEmptyReading is returned when there is nothing to archive.
	ErrEmptyReading = errors.New("empty weather reading")
)

// Store is a key-addressed blob store.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}
