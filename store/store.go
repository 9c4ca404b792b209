package store

import (
	"context"
	"time"
)

// ObjectInfo contains metadata about a stored archive.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store defines the operations gfnkit needs from object storage.
// Keys are slash-separated and relative to the backend's root.
type Store interface {
	// Put writes data under key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the object stored under key. A missing key is an I/O
	// error wrapping fs.ErrNotExist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object under key. Returns nil if it does not exist.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns metadata for every object whose key starts with prefix,
	// sorted by key.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}
