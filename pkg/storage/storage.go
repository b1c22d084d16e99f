// Package storage defines the capability surface shared by all CollectiveFS
// storage backends and decorators.
//
// A Storage is a tree of folders and files addressed by slash-separated
// relative paths; the empty path "" addresses the root of the storage.
// Backends (memory, fs, s3) implement the full surface; decorators (the
// path jail, the per-collective wrapper) compose over it.
package storage

import (
	"context"
	"strings"
	"time"
)

// EntryMode distinguishes files from folders.
type EntryMode int

const (
	ModeFile EntryMode = iota
	ModeFolder
)

func (m EntryMode) String() string {
	if m == ModeFolder {
		return "folder"
	}
	return "file"
}

// EntryInfo describes a single file or folder.
type EntryInfo struct {
	// Path is the full path of the entry relative to the storage root
	Path string

	// Name is the last path segment ("" for the root entry)
	Name string

	// Size is the content size in bytes; for folders it is the sum of the
	// sizes of the immediate children (backends may approximate this)
	Size int64

	// Mode distinguishes files from folders
	Mode EntryMode

	// MTime is the last modification time
	MTime time.Time
}

// Storage is the protocol-agnostic capability surface of a storage backend.
//
// Path Conventions:
//   - Paths are slash-separated and relative; "" is the root.
//   - Leading and trailing slashes are not accepted by backends; callers
//     normalize before invoking.
//
// Error Contract:
// All operations return *Error with one of the domain codes from errors.go.
// Backend-specific error types (os, badger, aws) never cross this boundary.
//
// Context:
// Every operation checks ctx before touching the backend and honours
// cancellation for long-running work (recursive copy/delete).
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
type Storage interface {
	// Stat returns metadata for the entry at path.
	// Returns ErrNotFound if no entry exists.
	Stat(ctx context.Context, path string) (*EntryInfo, error)

	// List returns the immediate children of the folder at path, sorted by
	// name. Returns ErrNotFound if the folder does not exist and
	// ErrNotFolder if path names a file.
	List(ctx context.Context, path string) ([]EntryInfo, error)

	// Read returns the full content of the file at path.
	Read(ctx context.Context, path string) ([]byte, error)

	// Write replaces the content of the file at path, creating it if
	// absent. The parent folder must exist.
	Write(ctx context.Context, path string, data []byte) error

	// NewFolder creates a folder at path. The parent folder must exist.
	// Returns ErrAlreadyExists if an entry is already present; callers
	// resolving first-access races treat that code as success.
	NewFolder(ctx context.Context, path string) error

	// Copy recursively copies the entry at src to dst. dst must not exist;
	// its parent must.
	Copy(ctx context.Context, src, dst string) error

	// Rename moves the entry at src to dst.
	Rename(ctx context.Context, src, dst string) error

	// Delete removes the entry at path, recursively for folders.
	Delete(ctx context.Context, path string) error
}

// Folder is a resolved handle to a folder inside a storage. It is the unit
// the container folder manager hands out: the storage it lives in plus its
// root-relative path.
type Folder struct {
	Storage Storage
	Path    string
}

// Stat returns the folder's own metadata.
func (f *Folder) Stat(ctx context.Context) (*EntryInfo, error) {
	return f.Storage.Stat(ctx, f.Path)
}

// List returns the folder's immediate children.
func (f *Folder) List(ctx context.Context) ([]EntryInfo, error) {
	return f.Storage.List(ctx, f.Path)
}

// JoinPath joins path segments with "/", skipping empty segments so that
// joining against the root ("") never produces a leading slash.
func JoinPath(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// BaseName returns the last segment of a slash-separated path, or "" for
// the root.
func BaseName(path string) string {
	if path == "" {
		return ""
	}
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// ParentPath returns the parent of a slash-separated path, or "" when the
// path has a single segment (its parent is the root).
func ParentPath(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return ""
}
