package storage

import (
	"context"
	"errors"
)

// ErrBlobNotFound is returned when a location or variant has no bytes.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore persists raw bytes and named size variants. Locations are
// opaque; the store knows nothing about ownership or metadata.
type BlobStore interface {
	// Write persists content under a freshly generated location
	Write(ctx context.Context, content []byte) (string, error)

	// Read returns the bytes at location
	Read(ctx context.Context, location string) ([]byte, error)

	// WriteVariant persists a derivative keyed by the base location and width
	WriteVariant(ctx context.Context, location string, width int, content []byte) (string, error)

	// ReadVariant returns the derivative bytes for (location, width)
	ReadVariant(ctx context.Context, location string, width int) ([]byte, error)

	// Delete removes the bytes at location; absent locations are a no-op
	Delete(ctx context.Context, location string) error

	// Exists checks whether location holds bytes
	Exists(ctx context.Context, location string) (bool, error)
}
