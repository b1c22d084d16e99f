// Package storagetest provides a reusable conformance suite for
// storage.Storage implementations.
//
// The suite tests the interface contract, not implementation details, so
// backends (memory, fs, s3) and decorators (the path jail) all run the
// same assertions.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collectivefs/collectivefs/pkg/storage"
)

// Suite is a conformance test suite for Storage implementations.
type Suite struct {
	// NewStorage creates a fresh, empty storage for each test.
	NewStorage func(t *testing.T) storage.Storage
}

// Run executes all tests in the suite.
func (s *Suite) Run(t *testing.T) {
	t.Run("RootExists", s.testRootExists)
	t.Run("FolderLifecycle", s.testFolderLifecycle)
	t.Run("FileLifecycle", s.testFileLifecycle)
	t.Run("List", s.testList)
	t.Run("Copy", s.testCopy)
	t.Run("Rename", s.testRename)
	t.Run("Delete", s.testDelete)
	t.Run("Errors", s.testErrors)
}

func (s *Suite) testRootExists(t *testing.T) {
	ctx := context.Background()
	st := s.NewStorage(t)

	info, err := st.Stat(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, storage.ModeFolder, info.Mode)

	children, err := st.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, children)
}

func (s *Suite) testFolderLifecycle(t *testing.T) {
	ctx := context.Background()
	st := s.NewStorage(t)

	require.NoError(t, st.NewFolder(ctx, "docs"))

	info, err := st.Stat(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, storage.ModeFolder, info.Mode)
	assert.Equal(t, "docs", info.Name)

	// Creating the same folder again reports the conflict.
	err = st.NewFolder(ctx, "docs")
	assert.True(t, storage.IsAlreadyExists(err), "expected already-exists, got %v", err)

	// Nested folders require an existing parent.
	err = st.NewFolder(ctx, "missing/sub")
	assert.True(t, storage.IsNotFound(err), "expected not-found, got %v", err)

	require.NoError(t, st.NewFolder(ctx, "docs/drafts"))
	info, err = st.Stat(ctx, "docs/drafts")
	require.NoError(t, err)
	assert.Equal(t, storage.ModeFolder, info.Mode)
}

func (s *Suite) testFileLifecycle(t *testing.T) {
	ctx := context.Background()
	st := s.NewStorage(t)

	require.NoError(t, st.Write(ctx, "note.md", []byte("hello")))

	data, err := st.Read(ctx, "note.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	info, err := st.Stat(ctx, "note.md")
	require.NoError(t, err)
	assert.Equal(t, storage.ModeFile, info.Mode)
	assert.Equal(t, int64(5), info.Size)

	// Overwrite replaces content.
	require.NoError(t, st.Write(ctx, "note.md", []byte("rewritten")))
	data, err = st.Read(ctx, "note.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("rewritten"), data)

	// The parent must exist.
	err = st.Write(ctx, "missing/note.md", []byte("x"))
	assert.True(t, storage.IsNotFound(err), "expected not-found, got %v", err)
}

func (s *Suite) testList(t *testing.T) {
	ctx := context.Background()
	st := s.NewStorage(t)

	require.NoError(t, st.NewFolder(ctx, "docs"))
	require.NoError(t, st.Write(ctx, "docs/b.md", []byte("b")))
	require.NoError(t, st.Write(ctx, "docs/a.md", []byte("a")))
	require.NoError(t, st.NewFolder(ctx, "docs/sub"))

	children, err := st.List(ctx, "docs")
	require.NoError(t, err)
	require.Len(t, children, 3)

	// Sorted by name; paths are full storage paths.
	assert.Equal(t, "a.md", children[0].Name)
	assert.Equal(t, "docs/a.md", children[0].Path)
	assert.Equal(t, "b.md", children[1].Name)
	assert.Equal(t, "sub", children[2].Name)
	assert.Equal(t, storage.ModeFolder, children[2].Mode)

	// Grandchildren are not included.
	require.NoError(t, st.Write(ctx, "docs/sub/deep.md", []byte("d")))
	children, err = st.List(ctx, "docs")
	require.NoError(t, err)
	assert.Len(t, children, 3)
}

func (s *Suite) testCopy(t *testing.T) {
	ctx := context.Background()
	st := s.NewStorage(t)

	require.NoError(t, st.NewFolder(ctx, "tpl"))
	require.NoError(t, st.Write(ctx, "tpl/readme.md", []byte("welcome")))
	require.NoError(t, st.NewFolder(ctx, "tpl/media"))

	require.NoError(t, st.Copy(ctx, "tpl", "ws"))

	data, err := st.Read(ctx, "ws/readme.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("welcome"), data)

	info, err := st.Stat(ctx, "ws/media")
	require.NoError(t, err)
	assert.Equal(t, storage.ModeFolder, info.Mode)

	// The source is untouched.
	_, err = st.Stat(ctx, "tpl/readme.md")
	require.NoError(t, err)

	// Copying onto an existing target reports the conflict.
	err = st.Copy(ctx, "tpl", "ws")
	assert.True(t, storage.IsAlreadyExists(err), "expected already-exists, got %v", err)

	// Single files copy too.
	require.NoError(t, st.Copy(ctx, "tpl/readme.md", "solo.md"))
	data, err = st.Read(ctx, "solo.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("welcome"), data)
}

func (s *Suite) testRename(t *testing.T) {
	ctx := context.Background()
	st := s.NewStorage(t)

	require.NoError(t, st.NewFolder(ctx, "old"))
	require.NoError(t, st.Write(ctx, "old/f.md", []byte("f")))

	require.NoError(t, st.Rename(ctx, "old", "new"))

	_, err := st.Stat(ctx, "old")
	assert.True(t, storage.IsNotFound(err), "expected not-found, got %v", err)

	data, err := st.Read(ctx, "new/f.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("f"), data)
}

func (s *Suite) testDelete(t *testing.T) {
	ctx := context.Background()
	st := s.NewStorage(t)

	require.NoError(t, st.NewFolder(ctx, "junk"))
	require.NoError(t, st.Write(ctx, "junk/f.md", []byte("f")))
	require.NoError(t, st.NewFolder(ctx, "junk/sub"))

	require.NoError(t, st.Delete(ctx, "junk"))

	_, err := st.Stat(ctx, "junk")
	assert.True(t, storage.IsNotFound(err))
	_, err = st.Stat(ctx, "junk/f.md")
	assert.True(t, storage.IsNotFound(err))

	err = st.Delete(ctx, "junk")
	assert.True(t, storage.IsNotFound(err))
}

func (s *Suite) testErrors(t *testing.T) {
	ctx := context.Background()
	st := s.NewStorage(t)

	_, err := st.Stat(ctx, "ghost")
	assert.True(t, storage.IsNotFound(err), "expected not-found, got %v", err)

	_, err = st.Read(ctx, "ghost")
	assert.True(t, storage.IsNotFound(err))

	_, err = st.List(ctx, "ghost")
	assert.True(t, storage.IsNotFound(err))

	require.NoError(t, st.Write(ctx, "plain.md", []byte("x")))
	_, err = st.List(ctx, "plain.md")
	assert.Error(t, err)
}
