package cache_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collectivefs/collectivefs/pkg/cache"
	cachememory "github.com/collectivefs/collectivefs/pkg/cache/memory"
	"github.com/collectivefs/collectivefs/pkg/storage"
)

func TestJailedCache_TranslatesPaths(t *testing.T) {
	ctx := context.Background()
	inner := cachememory.NewMemoryCache()
	jailed := cache.NewJailed(inner, "appdata_test/collectives/7")

	id, err := jailed.Insert(ctx, "docs/f.md", cache.Attributes{Size: 1})
	require.NoError(t, err)

	// The backend stores the prefixed path.
	entry, err := inner.Get(ctx, "appdata_test/collectives/7/docs/f.md")
	require.NoError(t, err)
	assert.Equal(t, id, entry.ID)

	// The jailed view reports the external path.
	entry, err = jailed.Get(ctx, "docs/f.md")
	require.NoError(t, err)
	assert.Equal(t, "docs/f.md", entry.Path)

	got, err := jailed.GetID(ctx, "docs/f.md")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestJailedCache_RootMapsToPrefix(t *testing.T) {
	ctx := context.Background()
	inner := cachememory.NewMemoryCache()
	jailed := cache.NewJailed(inner, "appdata_test/collectives/7")

	_, err := jailed.Insert(ctx, "", cache.Attributes{Mimetype: "httpd/unix-directory"})
	require.NoError(t, err)

	entry, err := inner.Get(ctx, "appdata_test/collectives/7")
	require.NoError(t, err)
	assert.Equal(t, "httpd/unix-directory", entry.Mimetype)

	entry, err = jailed.Get(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "", entry.Path)
}

func TestJailedCache_RejectsEscapes(t *testing.T) {
	ctx := context.Background()
	jailed := cache.NewJailed(cachememory.NewMemoryCache(), "appdata_test/collectives/7")

	for _, path := range []string{"..", "../other", "/abs", "a//b", "./a"} {
		_, err := jailed.Get(ctx, path)
		assert.True(t, storage.IsInvalidPath(err), "path %q: expected invalid-path, got %v", path, err)
	}
}

func TestJailedCache_ErrorsHidePrefix(t *testing.T) {
	ctx := context.Background()
	jailed := cache.NewJailed(cachememory.NewMemoryCache(), "appdata_test/collectives/7")

	_, err := jailed.Get(ctx, "ghost.md")
	require.Error(t, err)
	assert.True(t, storage.IsNotFound(err))
	assert.NotContains(t, err.Error(), "appdata_test")
	assert.Contains(t, err.Error(), "ghost.md")
}

func TestJailedCache_UpdateByIDPassesThrough(t *testing.T) {
	ctx := context.Background()
	inner := cachememory.NewMemoryCache()
	jailed := cache.NewJailed(inner, "appdata_test/collectives/7")

	id, err := jailed.Insert(ctx, "f.md", cache.Attributes{Size: 1})
	require.NoError(t, err)

	require.NoError(t, jailed.Update(ctx, id, cache.Attributes{Size: 9}))

	entry, err := jailed.Get(ctx, "f.md")
	require.NoError(t, err)
	assert.Equal(t, int64(9), entry.Size)
}
