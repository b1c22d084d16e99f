package collective

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collectivefs/collectivefs/pkg/cache"
	cachememory "github.com/collectivefs/collectivefs/pkg/cache/memory"
)

func TestRootEntryCache_ServesSnapshot(t *testing.T) {
	ctx := context.Background()
	inner := cachememory.NewMemoryCache()

	snapshot := &cache.Entry{
		ID:       77,
		Path:     "",
		Size:     1024,
		MTime:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Etag:     "root-v1",
		Mimetype: "httpd/unix-directory",
	}
	c := NewRootEntryCache(inner, snapshot)

	// The inner cache has no root entry at all; the snapshot answers.
	entry, err := c.Get(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(77), entry.ID)
	assert.Equal(t, "root-v1", entry.Etag)

	id, err := c.GetID(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(77), id)
}

func TestRootEntryCache_NonRootLookupsPassThrough(t *testing.T) {
	ctx := context.Background()
	inner := cachememory.NewMemoryCache()
	_, err := inner.Insert(ctx, "docs/f.md", cache.Attributes{Size: 5})
	require.NoError(t, err)

	c := NewRootEntryCache(inner, &cache.Entry{ID: 77})

	entry, err := c.Get(ctx, "docs/f.md")
	require.NoError(t, err)
	assert.Equal(t, int64(5), entry.Size)
}

func TestRootEntryCache_InsertDropsSnapshot(t *testing.T) {
	ctx := context.Background()
	inner := cachememory.NewMemoryCache()
	rootID, err := inner.Insert(ctx, "", cache.Attributes{Etag: "fresh"})
	require.NoError(t, err)

	c := NewRootEntryCache(inner, &cache.Entry{ID: 77, Etag: "stale"})

	_, err = c.Insert(ctx, "docs/f.md", cache.Attributes{Size: 1})
	require.NoError(t, err)

	// Root lookups now reach the inner cache.
	entry, err := c.Get(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, rootID, entry.ID)
	assert.Equal(t, "fresh", entry.Etag)
}

func TestRootEntryCache_UpdateDropsSnapshot(t *testing.T) {
	ctx := context.Background()
	inner := cachememory.NewMemoryCache()
	rootID, err := inner.Insert(ctx, "", cache.Attributes{Etag: "fresh"})
	require.NoError(t, err)
	fileID, err := inner.Insert(ctx, "docs/f.md", cache.Attributes{Size: 1})
	require.NoError(t, err)

	c := NewRootEntryCache(inner, &cache.Entry{ID: 77, Etag: "stale"})

	require.NoError(t, c.Update(ctx, fileID, cache.Attributes{Size: 2}))

	entry, err := c.Get(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, rootID, entry.ID)
}

func TestRootEntryCache_NilSnapshotPassesThrough(t *testing.T) {
	ctx := context.Background()
	inner := cachememory.NewMemoryCache()
	rootID, err := inner.Insert(ctx, "", cache.Attributes{Etag: "v1"})
	require.NoError(t, err)

	c := NewRootEntryCache(inner, nil)

	entry, err := c.Get(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, rootID, entry.ID)
}
