// Package cache defines the metadata-cache surface used by CollectiveFS
// mounts.
//
// A Cache indexes the entries of one storage: it maps cache paths (the same
// slash-separated relative paths the storage uses, "" for the root) to
// metadata records with stable numeric ids. Backends (memory, badger)
// implement the surface; the per-collective root-entry decorator composes
// over it.
package cache

import (
	"context"
	"time"
)

// Entry is an immutable metadata record for one cached path.
type Entry struct {
	// ID is the stable numeric id assigned on insert
	ID int64 `json:"id"`

	// Path is the cache path the entry describes
	Path string `json:"path"`

	// Size is the entry's size in bytes
	Size int64 `json:"size"`

	// MTime is the entry's last modification time
	MTime time.Time `json:"mtime"`

	// Etag is an opaque change tag
	Etag string `json:"etag"`

	// Mimetype is the entry's media type ("httpd/unix-directory" for
	// folders, by long-standing WebDAV convention)
	Mimetype string `json:"mimetype"`
}

// Attributes carries the mutable fields written by Insert and Update.
type Attributes struct {
	Size     int64
	MTime    time.Time
	Etag     string
	Mimetype string
}

// Cache is the metadata-cache capability surface.
//
// Error Contract:
// Get and GetID return storage.ErrNotFound (via *storage.Error) for unknown
// paths; Update returns it for unknown ids. Backend-specific errors are
// translated at the backend boundary.
//
// Events:
// Backends constructed with a bus publish a CacheEvent on TopicCacheInsert /
// TopicCacheUpdate after each successful mutation.
//
// Thread Safety:
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the entry stored at path.
	Get(ctx context.Context, path string) (*Entry, error)

	// GetID returns the id of the entry stored at path.
	GetID(ctx context.Context, path string) (int64, error)

	// Insert stores a new entry at path and returns its id. Inserting over
	// an existing path replaces the entry but keeps its id.
	Insert(ctx context.Context, path string, attrs Attributes) (int64, error)

	// Update rewrites the attributes of the entry with the given id.
	Update(ctx context.Context, id int64, attrs Attributes) error
}
