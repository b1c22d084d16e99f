// Package memory provides an in-memory Cache backend.
package memory

import (
	"context"
	"sync"

	"github.com/collectivefs/collectivefs/pkg/cache"
	"github.com/collectivefs/collectivefs/pkg/storage"
)

// MemoryCache implements cache.Cache with in-process maps.
//
// Ids are assigned from a monotonic counter and are never reused.
// Designed for tests and single-process deployments; all data is lost on
// restart. Event publication is layered on with cache.WithEvents, keeping
// this backend a pure key-value index.
//
// Thread Safety:
// All operations are protected by an RWMutex.
type MemoryCache struct {
	mu     sync.RWMutex
	byPath map[string]*cache.Entry
	byID   map[int64]*cache.Entry
	nextID int64
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		byPath: make(map[string]*cache.Entry),
		byID:   make(map[int64]*cache.Entry),
		nextID: 1,
	}
}

// Get implements cache.Cache.
func (c *MemoryCache) Get(ctx context.Context, path string) (*cache.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.IOError(path, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.byPath[path]
	if !ok {
		return nil, storage.NotFound(path)
	}
	out := *e
	return &out, nil
}

// GetID implements cache.Cache.
func (c *MemoryCache) GetID(ctx context.Context, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storage.IOError(path, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.byPath[path]
	if !ok {
		return 0, storage.NotFound(path)
	}
	return e.ID, nil
}

// PathForID resolves an id back to the path it is stored under.
func (c *MemoryCache) PathForID(ctx context.Context, id int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", storage.IOError("", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.byID[id]
	if !ok {
		return "", storage.NotFound("")
	}
	return e.Path, nil
}

// Insert implements cache.Cache.
func (c *MemoryCache) Insert(ctx context.Context, path string, attrs cache.Attributes) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storage.IOError(path, err)
	}

	c.mu.Lock()
	id := int64(0)
	if existing, ok := c.byPath[path]; ok {
		id = existing.ID
	} else {
		id = c.nextID
		c.nextID++
	}
	e := &cache.Entry{
		ID:       id,
		Path:     path,
		Size:     attrs.Size,
		MTime:    attrs.MTime,
		Etag:     attrs.Etag,
		Mimetype: attrs.Mimetype,
	}
	c.byPath[path] = e
	c.byID[id] = e
	c.mu.Unlock()

	return id, nil
}

// Update implements cache.Cache.
func (c *MemoryCache) Update(ctx context.Context, id int64, attrs cache.Attributes) error {
	if err := ctx.Err(); err != nil {
		return storage.IOError("", err)
	}

	c.mu.Lock()
	e, ok := c.byID[id]
	if !ok {
		c.mu.Unlock()
		return storage.NotFound("")
	}
	e.Size = attrs.Size
	e.MTime = attrs.MTime
	e.Etag = attrs.Etag
	e.Mimetype = attrs.Mimetype
	c.mu.Unlock()

	return nil
}
