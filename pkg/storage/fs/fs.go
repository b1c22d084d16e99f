// Package fs provides a local-filesystem Storage backend.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/collectivefs/collectivefs/pkg/storage"
)

// FSStorage implements storage.Storage on a local filesystem subtree.
//
// Every storage path is resolved under a fixed base directory. The base
// directory is created on construction if absent (permissions 0755), the
// same way the server prepares any other on-disk store.
//
// Thread Safety:
// Filesystem operations are thread-safe at the OS level. Concurrent writes
// to the same file follow last-write-wins semantics.
type FSStorage struct {
	basePath string
}

// NewFSStorage creates a filesystem-backed storage rooted at basePath,
// creating the directory if it does not exist.
func NewFSStorage(ctx context.Context, basePath string) (*FSStorage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSStorage{basePath: basePath}, nil
}

// resolve maps a storage path onto the local filesystem, rejecting paths
// that would resolve outside the base directory.
func (s *FSStorage) resolve(path string) (string, error) {
	if path == "" {
		return s.basePath, nil
	}
	if strings.HasPrefix(path, "/") || strings.Contains(path, "\\") {
		return "", storage.InvalidPath(path)
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", storage.InvalidPath(path)
		}
	}
	return filepath.Join(s.basePath, filepath.FromSlash(path)), nil
}

// translate converts an os error into the domain taxonomy.
func translate(path string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return storage.NotFound(path)
	case errors.Is(err, fs.ErrExist):
		return storage.AlreadyExists(path)
	case errors.Is(err, fs.ErrPermission):
		return storage.NotPermitted(path, err)
	default:
		return storage.IOError(path, err)
	}
}

func (s *FSStorage) entryInfo(path string, fi os.FileInfo) storage.EntryInfo {
	mode := storage.ModeFile
	size := fi.Size()
	if fi.IsDir() {
		mode = storage.ModeFolder
	}
	return storage.EntryInfo{
		Path:  path,
		Name:  storage.BaseName(path),
		Size:  size,
		Mode:  mode,
		MTime: fi.ModTime(),
	}
}

// Stat implements storage.Storage.
func (s *FSStorage) Stat(ctx context.Context, path string) (*storage.EntryInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.IOError(path, err)
	}

	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(full)
	if err != nil {
		return nil, translate(path, err)
	}
	info := s.entryInfo(path, fi)
	return &info, nil
}

// List implements storage.Storage.
func (s *FSStorage) List(ctx context.Context, path string) ([]storage.EntryInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.IOError(path, err)
	}

	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(full)
	if err != nil {
		return nil, translate(path, err)
	}
	if !fi.IsDir() {
		return nil, storage.NotFolder(path)
	}

	dirents, err := os.ReadDir(full)
	if err != nil {
		return nil, translate(path, err)
	}

	children := make([]storage.EntryInfo, 0, len(dirents))
	for _, d := range dirents {
		childInfo, err := d.Info()
		if err != nil {
			// Entry vanished between ReadDir and Info; skip it.
			continue
		}
		children = append(children, s.entryInfo(storage.JoinPath(path, d.Name()), childInfo))
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	return children, nil
}

// Read implements storage.Storage.
func (s *FSStorage) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.IOError(path, err)
	}

	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, translate(path, err)
	}
	return data, nil
}

// Write implements storage.Storage.
func (s *FSStorage) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return storage.IOError(path, err)
	}
	if path == "" {
		return storage.InvalidPath(path)
	}

	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	// The parent must already exist; no implicit MkdirAll here so that the
	// backend's behavior matches the capability contract.
	if _, err := os.Stat(filepath.Dir(full)); err != nil {
		return translate(storage.ParentPath(path), err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return translate(path, err)
	}
	return nil
}

// NewFolder implements storage.Storage.
func (s *FSStorage) NewFolder(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return storage.IOError(path, err)
	}
	if path == "" {
		return storage.AlreadyExists(path)
	}

	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Mkdir(full, 0755); err != nil {
		return translate(path, err)
	}
	return nil
}

// Copy implements storage.Storage.
func (s *FSStorage) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return storage.IOError(src, err)
	}
	if dst == "" || src == dst {
		return storage.InvalidPath(dst)
	}

	fullSrc, err := s.resolve(src)
	if err != nil {
		return err
	}
	fullDst, err := s.resolve(dst)
	if err != nil {
		return err
	}
	if _, err := os.Stat(fullDst); err == nil {
		return storage.AlreadyExists(dst)
	}

	fi, err := os.Stat(fullSrc)
	if err != nil {
		return translate(src, err)
	}
	if !fi.IsDir() {
		return s.copyFile(ctx, fullSrc, fullDst, src)
	}
	return s.copyTree(ctx, fullSrc, fullDst, src)
}

func (s *FSStorage) copyFile(ctx context.Context, fullSrc, fullDst, src string) error {
	if err := ctx.Err(); err != nil {
		return storage.IOError(src, err)
	}
	data, err := os.ReadFile(fullSrc)
	if err != nil {
		return translate(src, err)
	}
	if err := os.WriteFile(fullDst, data, 0644); err != nil {
		return translate(src, err)
	}
	return nil
}

func (s *FSStorage) copyTree(ctx context.Context, fullSrc, fullDst, src string) error {
	if err := os.Mkdir(fullDst, 0755); err != nil {
		return translate(src, err)
	}
	dirents, err := os.ReadDir(fullSrc)
	if err != nil {
		return translate(src, err)
	}
	for _, d := range dirents {
		childSrc := filepath.Join(fullSrc, d.Name())
		childDst := filepath.Join(fullDst, d.Name())
		if d.IsDir() {
			if err := s.copyTree(ctx, childSrc, childDst, src); err != nil {
				return err
			}
			continue
		}
		if err := s.copyFile(ctx, childSrc, childDst, src); err != nil {
			return err
		}
	}
	return nil
}

// Rename implements storage.Storage.
func (s *FSStorage) Rename(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return storage.IOError(src, err)
	}
	if src == "" || dst == "" || src == dst {
		return storage.InvalidPath(dst)
	}

	fullSrc, err := s.resolve(src)
	if err != nil {
		return err
	}
	fullDst, err := s.resolve(dst)
	if err != nil {
		return err
	}
	if _, err := os.Stat(fullSrc); err != nil {
		return translate(src, err)
	}
	if _, err := os.Stat(fullDst); err == nil {
		return storage.AlreadyExists(dst)
	}
	if err := os.Rename(fullSrc, fullDst); err != nil {
		return translate(src, err)
	}
	return nil
}

// Delete implements storage.Storage.
func (s *FSStorage) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return storage.IOError(path, err)
	}
	if path == "" {
		return storage.InvalidPath(path)
	}

	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(full); err != nil {
		return translate(path, err)
	}
	if err := os.RemoveAll(full); err != nil {
		return translate(path, err)
	}
	return nil
}
