// Package cachetest provides a reusable conformance suite for cache.Cache
// implementations.
package cachetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collectivefs/collectivefs/pkg/cache"
	"github.com/collectivefs/collectivefs/pkg/storage"
)

// Suite is a conformance test suite for Cache implementations.
type Suite struct {
	// NewCache creates a fresh, empty cache for each test.
	NewCache func(t *testing.T) cache.Cache
}

// Run executes all tests in the suite.
func (s *Suite) Run(t *testing.T) {
	t.Run("InsertAndGet", s.testInsertAndGet)
	t.Run("InsertKeepsID", s.testInsertKeepsID)
	t.Run("GetID", s.testGetID)
	t.Run("Update", s.testUpdate)
	t.Run("NotFound", s.testNotFound)
}

func (s *Suite) testInsertAndGet(t *testing.T) {
	ctx := context.Background()
	c := s.NewCache(t)

	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	id, err := c.Insert(ctx, "docs/f.md", cache.Attributes{
		Size:     42,
		MTime:    mtime,
		Etag:     "v1",
		Mimetype: "text/markdown",
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	entry, err := c.Get(ctx, "docs/f.md")
	require.NoError(t, err)
	assert.Equal(t, id, entry.ID)
	assert.Equal(t, "docs/f.md", entry.Path)
	assert.Equal(t, int64(42), entry.Size)
	assert.True(t, entry.MTime.Equal(mtime))
	assert.Equal(t, "v1", entry.Etag)
	assert.Equal(t, "text/markdown", entry.Mimetype)
}

func (s *Suite) testInsertKeepsID(t *testing.T) {
	ctx := context.Background()
	c := s.NewCache(t)

	first, err := c.Insert(ctx, "f.md", cache.Attributes{Size: 1, Etag: "v1"})
	require.NoError(t, err)

	second, err := c.Insert(ctx, "f.md", cache.Attributes{Size: 2, Etag: "v2"})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	entry, err := c.Get(ctx, "f.md")
	require.NoError(t, err)
	assert.Equal(t, int64(2), entry.Size)
	assert.Equal(t, "v2", entry.Etag)

	// Distinct paths still get distinct ids.
	other, err := c.Insert(ctx, "g.md", cache.Attributes{Size: 3})
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func (s *Suite) testGetID(t *testing.T) {
	ctx := context.Background()
	c := s.NewCache(t)

	id, err := c.Insert(ctx, "f.md", cache.Attributes{Size: 1})
	require.NoError(t, err)

	got, err := c.GetID(ctx, "f.md")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func (s *Suite) testUpdate(t *testing.T) {
	ctx := context.Background()
	c := s.NewCache(t)

	id, err := c.Insert(ctx, "f.md", cache.Attributes{Size: 1, Etag: "v1"})
	require.NoError(t, err)

	mtime := time.Date(2024, 3, 2, 8, 30, 0, 0, time.UTC)
	require.NoError(t, c.Update(ctx, id, cache.Attributes{
		Size:     99,
		MTime:    mtime,
		Etag:     "v2",
		Mimetype: "text/plain",
	}))

	entry, err := c.Get(ctx, "f.md")
	require.NoError(t, err)
	assert.Equal(t, id, entry.ID)
	assert.Equal(t, "f.md", entry.Path)
	assert.Equal(t, int64(99), entry.Size)
	assert.True(t, entry.MTime.Equal(mtime))
	assert.Equal(t, "v2", entry.Etag)

	err = c.Update(ctx, 987654, cache.Attributes{Size: 1})
	assert.True(t, storage.IsNotFound(err), "expected not-found, got %v", err)
}

func (s *Suite) testNotFound(t *testing.T) {
	ctx := context.Background()
	c := s.NewCache(t)

	_, err := c.Get(ctx, "ghost.md")
	assert.True(t, storage.IsNotFound(err), "expected not-found, got %v", err)

	_, err = c.GetID(ctx, "ghost.md")
	assert.True(t, storage.IsNotFound(err))
}
