// Package memory provides an in-memory Storage backend.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/collectivefs/collectivefs/pkg/storage"
)

// MemoryStorage implements storage.Storage using in-memory maps.
//
// This implementation is designed for:
//   - Testing and development
//   - Ephemeral deployments where persistence is not required
//
// Characteristics:
//   - Fast: all operations are memory-speed
//   - Volatile: data is lost on restart
//   - Thread-safe: protected by an RWMutex
//
// The root folder ("") always exists and cannot be deleted.
type MemoryStorage struct {
	// entries maps path -> entry; "" is the root folder
	entries map[string]*memEntry

	// mu protects concurrent access to entries
	mu sync.RWMutex
}

type memEntry struct {
	mode  storage.EntryMode
	data  []byte
	mtime time.Time
}

// NewMemoryStorage creates an empty in-memory storage with an existing root.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		entries: map[string]*memEntry{
			"": {mode: storage.ModeFolder, mtime: time.Now()},
		},
	}
}

func (s *MemoryStorage) info(path string, e *memEntry) storage.EntryInfo {
	size := int64(len(e.data))
	if e.mode == storage.ModeFolder {
		size = s.folderSizeLocked(path)
	}
	return storage.EntryInfo{
		Path:  path,
		Name:  storage.BaseName(path),
		Size:  size,
		Mode:  e.mode,
		MTime: e.mtime,
	}
}

// folderSizeLocked sums the sizes of a folder's immediate children.
// Must be called with s.mu held.
func (s *MemoryStorage) folderSizeLocked(path string) int64 {
	var total int64
	for p, e := range s.entries {
		if p != "" && storage.ParentPath(p) == path && p != path {
			if e.mode == storage.ModeFile {
				total += int64(len(e.data))
			}
		}
	}
	return total
}

// Stat implements storage.Storage.
func (s *MemoryStorage) Stat(ctx context.Context, path string) (*storage.EntryInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.IOError(path, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[path]
	if !ok {
		return nil, storage.NotFound(path)
	}
	info := s.info(path, e)
	return &info, nil
}

// List implements storage.Storage.
func (s *MemoryStorage) List(ctx context.Context, path string) ([]storage.EntryInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.IOError(path, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[path]
	if !ok {
		return nil, storage.NotFound(path)
	}
	if e.mode != storage.ModeFolder {
		return nil, storage.NotFolder(path)
	}

	var children []storage.EntryInfo
	for p, child := range s.entries {
		if p != "" && p != path && storage.ParentPath(p) == path {
			children = append(children, s.info(p, child))
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	return children, nil
}

// Read implements storage.Storage.
func (s *MemoryStorage) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.IOError(path, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[path]
	if !ok {
		return nil, storage.NotFound(path)
	}
	if e.mode != storage.ModeFile {
		return nil, storage.NotFolder(path)
	}

	// Copy so callers cannot mutate the stored buffer.
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, nil
}

// Write implements storage.Storage.
func (s *MemoryStorage) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return storage.IOError(path, err)
	}
	if path == "" {
		return storage.InvalidPath(path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent, ok := s.entries[storage.ParentPath(path)]
	if !ok || parent.mode != storage.ModeFolder {
		return storage.NotFound(storage.ParentPath(path))
	}
	if existing, ok := s.entries[path]; ok && existing.mode == storage.ModeFolder {
		return storage.NotFolder(path)
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	s.entries[path] = &memEntry{mode: storage.ModeFile, data: stored, mtime: time.Now()}
	s.touchParentsLocked(path)
	return nil
}

// NewFolder implements storage.Storage.
func (s *MemoryStorage) NewFolder(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return storage.IOError(path, err)
	}
	if path == "" {
		return storage.AlreadyExists(path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[path]; ok {
		return storage.AlreadyExists(path)
	}
	parent, ok := s.entries[storage.ParentPath(path)]
	if !ok || parent.mode != storage.ModeFolder {
		return storage.NotFound(storage.ParentPath(path))
	}

	s.entries[path] = &memEntry{mode: storage.ModeFolder, mtime: time.Now()}
	s.touchParentsLocked(path)
	return nil
}

// Copy implements storage.Storage.
func (s *MemoryStorage) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return storage.IOError(src, err)
	}
	if dst == "" || src == dst {
		return storage.InvalidPath(dst)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[src]; !ok {
		return storage.NotFound(src)
	}
	if _, ok := s.entries[dst]; ok {
		return storage.AlreadyExists(dst)
	}
	parent, ok := s.entries[storage.ParentPath(dst)]
	if !ok || parent.mode != storage.ModeFolder {
		return storage.NotFound(storage.ParentPath(dst))
	}

	for _, pair := range s.subtreeLocked(src) {
		target := dst + strings.TrimPrefix(pair.path, src)
		e := pair.entry
		stored := make([]byte, len(e.data))
		copy(stored, e.data)
		s.entries[target] = &memEntry{mode: e.mode, data: stored, mtime: time.Now()}
	}
	s.touchParentsLocked(dst)
	return nil
}

// Rename implements storage.Storage.
func (s *MemoryStorage) Rename(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return storage.IOError(src, err)
	}
	if src == "" || dst == "" || src == dst {
		return storage.InvalidPath(dst)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[src]; !ok {
		return storage.NotFound(src)
	}
	if _, ok := s.entries[dst]; ok {
		return storage.AlreadyExists(dst)
	}
	parent, ok := s.entries[storage.ParentPath(dst)]
	if !ok || parent.mode != storage.ModeFolder {
		return storage.NotFound(storage.ParentPath(dst))
	}

	for _, pair := range s.subtreeLocked(src) {
		target := dst + strings.TrimPrefix(pair.path, src)
		s.entries[target] = pair.entry
		delete(s.entries, pair.path)
	}
	s.touchParentsLocked(dst)
	return nil
}

// Delete implements storage.Storage.
func (s *MemoryStorage) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return storage.IOError(path, err)
	}
	if path == "" {
		return storage.InvalidPath(path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[path]; !ok {
		return storage.NotFound(path)
	}
	for _, pair := range s.subtreeLocked(path) {
		delete(s.entries, pair.path)
	}
	s.touchParentsLocked(path)
	return nil
}

type pathEntry struct {
	path  string
	entry *memEntry
}

// subtreeLocked returns the entry at path plus every descendant.
// Must be called with s.mu held.
func (s *MemoryStorage) subtreeLocked(path string) []pathEntry {
	var out []pathEntry
	prefix := path + "/"
	for p, e := range s.entries {
		if p == path || strings.HasPrefix(p, prefix) {
			out = append(out, pathEntry{path: p, entry: e})
		}
	}
	return out
}

// touchParentsLocked bumps the mtime of every ancestor folder so that
// structural changes bubble up to the root entry, matching what a real
// filesystem does. Must be called with s.mu held.
func (s *MemoryStorage) touchParentsLocked(path string) {
	now := time.Now()
	for p := storage.ParentPath(path); ; p = storage.ParentPath(p) {
		if e, ok := s.entries[p]; ok {
			e.mtime = now
		}
		if p == "" {
			return
		}
	}
}
