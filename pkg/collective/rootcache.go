package collective

import (
	"context"

	"github.com/collectivefs/collectivefs/pkg/cache"
)

// RootEntryCache decorates a metadata cache with a pre-fetched snapshot of
// the jailed root entry ("").
//
// Assembling a principal's filesystem view stats the root of every mount;
// with many collectives that is one cache lookup per mount before anything
// useful happens. The mount provider therefore pre-fetches the root entry
// once and seeds it here, and lookups of "" are answered from the snapshot
// without touching the inner cache.
//
// The snapshot is dropped the instant anything mutates through this cache
// instance: any insert or update beneath the root changes the root's own
// metadata (size and mtime bubble up), so the snapshot cannot be trusted
// past the first mutation. After that, root lookups go to the inner cache
// like any other path.
//
// The snapshot is private to one request's decorator chain; it never needs
// cross-request invalidation because each request builds its own chain.
type RootEntryCache struct {
	inner    cache.Cache
	snapshot *cache.Entry
}

// NewRootEntryCache wraps inner with an optional pre-fetched root entry.
// A nil snapshot yields a pass-through decorator.
func NewRootEntryCache(inner cache.Cache, snapshot *cache.Entry) *RootEntryCache {
	return &RootEntryCache{inner: inner, snapshot: snapshot}
}

// Get implements cache.Cache. Lookups of "" are served from the snapshot
// while it is held.
func (c *RootEntryCache) Get(ctx context.Context, path string) (*cache.Entry, error) {
	if path == "" && c.snapshot != nil {
		return c.snapshot, nil
	}
	return c.inner.Get(ctx, path)
}

// GetID implements cache.Cache.
func (c *RootEntryCache) GetID(ctx context.Context, path string) (int64, error) {
	if path == "" && c.snapshot != nil {
		return c.snapshot.ID, nil
	}
	return c.inner.GetID(ctx, path)
}

// Insert implements cache.Cache. The snapshot is dropped before the
// mutation is delegated.
func (c *RootEntryCache) Insert(ctx context.Context, path string, attrs cache.Attributes) (int64, error) {
	c.snapshot = nil
	return c.inner.Insert(ctx, path, attrs)
}

// Update implements cache.Cache. The snapshot is dropped before the
// mutation is delegated.
func (c *RootEntryCache) Update(ctx context.Context, id int64, attrs cache.Attributes) error {
	c.snapshot = nil
	return c.inner.Update(ctx, id, attrs)
}
