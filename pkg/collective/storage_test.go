package collective

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collectivefs/collectivefs/pkg/cache"
	cachememory "github.com/collectivefs/collectivefs/pkg/cache/memory"
	"github.com/collectivefs/collectivefs/pkg/events"
	"github.com/collectivefs/collectivefs/pkg/storage"
	storagememory "github.com/collectivefs/collectivefs/pkg/storage/memory"
)

// newTestStorage provisions a container for collective 42 and returns a
// mount storage over it.
func newTestStorage(t *testing.T, params StorageParams) (*Storage, *storagememory.MemoryStorage) {
	t.Helper()
	ctx := context.Background()

	root := storagememory.NewMemoryStorage()
	require.NoError(t, root.NewFolder(ctx, "appdata_abc123"))
	require.NoError(t, root.NewFolder(ctx, "appdata_abc123/collectives"))
	require.NoError(t, root.NewFolder(ctx, "appdata_abc123/collectives/42"))

	params.CollectiveID = 42
	params.RootStorage = root
	params.JailPath = "appdata_abc123/collectives/42"
	if params.CacheBackend == nil {
		params.CacheBackend = cachememory.NewMemoryCache()
	}
	return NewStorage(params), root
}

func TestStorage_IsJailed(t *testing.T) {
	ctx := context.Background()
	st, root := newTestStorage(t, StorageParams{})

	require.NoError(t, st.Write(ctx, "notes.md", []byte("hello")))

	// The write landed inside the container folder.
	data, err := root.Read(ctx, "appdata_abc123/collectives/42/notes.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	// Escapes are rejected, not clamped.
	_, err = st.Stat(ctx, "../43")
	assert.True(t, storage.IsInvalidPath(err))

	assert.Equal(t, int64(42), st.CollectiveID())
}

func TestStorage_OwnerResolution(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		fallback  string
		want      string
		wantOK    bool
	}{
		{"principal wins", "alice", "admin", "alice", true},
		{"fallback when unauthenticated", "", "admin", "admin", true},
		{"principal without fallback", "bob", "", "bob", true},
		{"neither", "", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, _ := newTestStorage(t, StorageParams{
				Principal:     tt.principal,
				FallbackOwner: tt.fallback,
			})
			owner, ok := st.Owner()
			assert.Equal(t, tt.want, owner)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestStorage_CacheIsMemoized(t *testing.T) {
	st, _ := newTestStorage(t, StorageParams{})
	assert.Same(t, st.Cache(), st.Cache())
}

func TestStorage_CacheChainJailsPaths(t *testing.T) {
	ctx := context.Background()
	backend := cachememory.NewMemoryCache()
	st, _ := newTestStorage(t, StorageParams{CacheBackend: backend})

	id, err := st.Cache().Insert(ctx, "docs/f.md", cache.Attributes{Size: 9})
	require.NoError(t, err)

	// The shared backend holds the entry under the internal path.
	entry, err := backend.Get(ctx, "appdata_abc123/collectives/42/docs/f.md")
	require.NoError(t, err)
	assert.Equal(t, id, entry.ID)

	// The mount's view reads it back under the external path.
	entry, err = st.Cache().Get(ctx, "docs/f.md")
	require.NoError(t, err)
	assert.Equal(t, "docs/f.md", entry.Path)
	assert.Equal(t, int64(9), entry.Size)
}

func TestStorage_CacheEventsCarryInternalPathAndOwner(t *testing.T) {
	ctx := context.Background()
	bus := events.NewBus()

	var got []events.CacheEvent
	bus.Subscribe(events.TopicCacheInsert, events.PriorityNormal, func(ev *events.CacheEvent) {
		got = append(got, *ev)
	})

	st, _ := newTestStorage(t, StorageParams{Bus: bus})

	_, err := st.Cache().Insert(ctx, "docs/f.md", cache.Attributes{Size: 1})
	require.NoError(t, err)

	require.Len(t, got, 1)
	// Events are emitted below the path translation: internal path,
	// attributed to the mount storage.
	assert.Equal(t, "appdata_abc123/collectives/42/docs/f.md", got[0].Path)
	assert.Same(t, st, got[0].Storage)
}

func TestStorage_CacheSnapshotLifecycle(t *testing.T) {
	ctx := context.Background()
	backend := cachememory.NewMemoryCache()

	snapshot := &cache.Entry{ID: 501, Path: "", Etag: "root-v1", Mimetype: "httpd/unix-directory"}
	st, _ := newTestStorage(t, StorageParams{CacheBackend: backend, Snapshot: snapshot})

	// Root metadata comes from the snapshot without a backend entry.
	entry, err := st.Cache().Get(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(501), entry.ID)

	// A mutation drops the snapshot; the root lookup now misses because
	// the backend never had a root entry.
	_, err = st.Cache().Insert(ctx, "docs/f.md", cache.Attributes{Size: 1})
	require.NoError(t, err)

	_, err = st.Cache().Get(ctx, "")
	assert.True(t, storage.IsNotFound(err))
}
