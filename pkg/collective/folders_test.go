package collective

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collectivefs/collectivefs/pkg/storage"
	"github.com/collectivefs/collectivefs/pkg/storage/memory"
)

func newTestFolderManager(t *testing.T, skeletonManifest string) (*FolderManager, *memory.MemoryStorage) {
	t.Helper()
	root := memory.NewMemoryStorage()
	resolver := NewRootResolver(InstanceIDFunc(func() string { return "test" }))
	return NewFolderManager(root, resolver, skeletonManifest), root
}

func TestFolderManager_RootFolder(t *testing.T) {
	ctx := context.Background()
	m, root := newTestFolderManager(t, "")

	folder, err := m.RootFolder(ctx)
	require.NoError(t, err)
	assert.Equal(t, "appdata_test/collectives", folder.Path)

	// Both the namespace parent and the root container exist.
	info, err := root.Stat(ctx, "appdata_test")
	require.NoError(t, err)
	assert.Equal(t, storage.ModeFolder, info.Mode)
	info, err = root.Stat(ctx, "appdata_test/collectives")
	require.NoError(t, err)
	assert.Equal(t, storage.ModeFolder, info.Mode)

	// Calling again is a no-op.
	again, err := m.RootFolder(ctx)
	require.NoError(t, err)
	assert.Equal(t, folder.Path, again.Path)
}

func TestFolderManager_RootFolderFatalWithoutInstanceID(t *testing.T) {
	ctx := context.Background()
	root := memory.NewMemoryStorage()
	resolver := NewRootResolver(InstanceIDFunc(func() string { return "" }))
	m := NewFolderManager(root, resolver, "")

	_, err := m.RootFolder(ctx)
	assert.True(t, storage.IsFatalConfiguration(err))
}

func TestFolderManager_FolderWithoutCreate(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestFolderManager(t, "")

	_, err := m.Folder(ctx, 42, false)
	assert.True(t, storage.IsNotFound(err), "expected not-found, got %v", err)
}

func TestFolderManager_FolderProvisions(t *testing.T) {
	ctx := context.Background()
	m, root := newTestFolderManager(t, "")

	folder, err := m.Folder(ctx, 42, true)
	require.NoError(t, err)
	assert.Equal(t, "appdata_test/collectives/42", folder.Path)

	info, err := root.Stat(ctx, "appdata_test/collectives/42")
	require.NoError(t, err)
	assert.Equal(t, storage.ModeFolder, info.Mode)

	// Once provisioned, the folder resolves without create.
	again, err := m.Folder(ctx, 42, false)
	require.NoError(t, err)
	assert.Equal(t, folder.Path, again.Path)
}

func TestFolderManager_FolderIdempotent(t *testing.T) {
	ctx := context.Background()
	m, root := newTestFolderManager(t, "")

	_, err := m.Folder(ctx, 42, true)
	require.NoError(t, err)

	// Tenant data written after provisioning survives re-provisioning.
	require.NoError(t, root.Write(ctx, "appdata_test/collectives/42/notes.md", []byte("keep me")))

	_, err = m.Folder(ctx, 42, true)
	require.NoError(t, err)

	data, err := root.Read(ctx, "appdata_test/collectives/42/notes.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("keep me"), data)
}

func TestFolderManager_SkeletonSeeding(t *testing.T) {
	ctx := context.Background()

	manifest := filepath.Join(t.TempDir(), "skeleton.yaml")
	content := `folders:
  - docs
files:
  - path: docs/welcome.md
    content: "welcome to your collective"
  - path: readme.md
    content: "start here"
`
	require.NoError(t, os.WriteFile(manifest, []byte(content), 0644))

	m, root := newTestFolderManager(t, manifest)

	folder, err := m.Folder(ctx, 7, true)
	require.NoError(t, err)

	// The container starts as a copy of the seeded skeleton.
	data, err := root.Read(ctx, storage.JoinPath(folder.Path, "docs/welcome.md"))
	require.NoError(t, err)
	assert.Equal(t, []byte("welcome to your collective"), data)

	data, err = root.Read(ctx, storage.JoinPath(folder.Path, "readme.md"))
	require.NoError(t, err)
	assert.Equal(t, []byte("start here"), data)

	// The skeleton itself stays beside the containers as the template.
	_, err = root.Stat(ctx, "appdata_test/collectives/skeleton/docs/welcome.md")
	require.NoError(t, err)
}

func TestFolderManager_MissingManifestWithoutSeeding(t *testing.T) {
	ctx := context.Background()
	m, root := newTestFolderManager(t, "")

	folder, err := m.Folder(ctx, 7, true)
	require.NoError(t, err)

	// No manifest: the container is provisioned empty.
	children, err := root.List(ctx, folder.Path)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestFolderManager_EntryInTheWay(t *testing.T) {
	ctx := context.Background()
	m, root := newTestFolderManager(t, "")

	_, err := m.RootFolder(ctx)
	require.NoError(t, err)
	require.NoError(t, root.Write(ctx, "appdata_test/collectives/42", []byte("not a folder")))

	_, err = m.Folder(ctx, 42, true)
	require.Error(t, err)
	assert.False(t, storage.IsNotFound(err))
}

func TestFolderManager_ConcurrentProvisioning(t *testing.T) {
	ctx := context.Background()
	m, root := newTestFolderManager(t, "")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.Folder(ctx, 5, true)
		}(i)
	}
	wg.Wait()

	// Every caller wins: losers of the creation race adopt the winner's
	// folder instead of failing.
	for i, err := range errs {
		assert.NoError(t, err, "caller %d", i)
	}

	info, err := root.Stat(ctx, "appdata_test/collectives/5")
	require.NoError(t, err)
	assert.Equal(t, storage.ModeFolder, info.Mode)
}
