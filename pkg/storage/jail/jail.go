// Package jail provides a path-translating Storage decorator that restricts
// an inner storage's visible namespace to one subtree.
package jail

import (
	"context"
	"strings"

	"github.com/collectivefs/collectivefs/pkg/storage"
)

// Jail wraps an inner storage so that, from outside, the jail's root ("")
// maps to the inner storage's root path. Every path argument is translated
// by prefixing the root path on the way in and stripped on the way out.
//
// Paths that would escape the jailed subtree (".." segments, absolute
// paths) are rejected with ErrInvalidPath, never silently clamped: a caller
// asking for something outside the jail is a bug or an attack, not a
// request to see the boundary.
//
// The jail exposes the full capability surface of the inner storage; each
// operation delegates after translation. One decorator per mount, composed
// over the shared root storage.
type Jail struct {
	inner storage.Storage
	root  string
}

// New creates a jail over inner restricted to the subtree at root.
// The root path itself is inner-relative and must not be empty.
func New(inner storage.Storage, root string) *Jail {
	return &Jail{inner: inner, root: root}
}

// Root returns the inner-relative path the jail is rooted at.
func (j *Jail) Root() string {
	return j.root
}

// translate maps an external path into the inner storage's namespace.
func (j *Jail) translate(path string) (string, error) {
	if path == "" {
		return j.root, nil
	}
	if strings.HasPrefix(path, "/") {
		return "", storage.InvalidPath(path)
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", storage.InvalidPath(path)
		}
	}
	return j.root + "/" + path, nil
}

// strip maps an inner path back into the external namespace. Inner paths
// outside the jail are reported as-is in errors only; strip is called only
// on paths the jail produced itself.
func (j *Jail) strip(inner string) string {
	if inner == j.root {
		return ""
	}
	return strings.TrimPrefix(inner, j.root+"/")
}

// Stat implements storage.Storage.
func (j *Jail) Stat(ctx context.Context, path string) (*storage.EntryInfo, error) {
	full, err := j.translate(path)
	if err != nil {
		return nil, err
	}
	info, err := j.inner.Stat(ctx, full)
	if err != nil {
		return nil, rewriteError(err, path)
	}
	out := *info
	out.Path = j.strip(info.Path)
	out.Name = storage.BaseName(out.Path)
	return &out, nil
}

// List implements storage.Storage.
func (j *Jail) List(ctx context.Context, path string) ([]storage.EntryInfo, error) {
	full, err := j.translate(path)
	if err != nil {
		return nil, err
	}
	children, err := j.inner.List(ctx, full)
	if err != nil {
		return nil, rewriteError(err, path)
	}
	out := make([]storage.EntryInfo, len(children))
	for i, child := range children {
		out[i] = child
		out[i].Path = j.strip(child.Path)
	}
	return out, nil
}

// Read implements storage.Storage.
func (j *Jail) Read(ctx context.Context, path string) ([]byte, error) {
	full, err := j.translate(path)
	if err != nil {
		return nil, err
	}
	data, err := j.inner.Read(ctx, full)
	if err != nil {
		return nil, rewriteError(err, path)
	}
	return data, nil
}

// Write implements storage.Storage.
func (j *Jail) Write(ctx context.Context, path string, data []byte) error {
	full, err := j.translate(path)
	if err != nil {
		return err
	}
	return rewriteError(j.inner.Write(ctx, full, data), path)
}

// NewFolder implements storage.Storage.
func (j *Jail) NewFolder(ctx context.Context, path string) error {
	full, err := j.translate(path)
	if err != nil {
		return err
	}
	return rewriteError(j.inner.NewFolder(ctx, full), path)
}

// Copy implements storage.Storage.
func (j *Jail) Copy(ctx context.Context, src, dst string) error {
	fullSrc, err := j.translate(src)
	if err != nil {
		return err
	}
	fullDst, err := j.translate(dst)
	if err != nil {
		return err
	}
	return rewriteError(j.inner.Copy(ctx, fullSrc, fullDst), src)
}

// Rename implements storage.Storage.
func (j *Jail) Rename(ctx context.Context, src, dst string) error {
	fullSrc, err := j.translate(src)
	if err != nil {
		return err
	}
	fullDst, err := j.translate(dst)
	if err != nil {
		return err
	}
	return rewriteError(j.inner.Rename(ctx, fullSrc, fullDst), src)
}

// Delete implements storage.Storage.
func (j *Jail) Delete(ctx context.Context, path string) error {
	full, err := j.translate(path)
	if err != nil {
		return err
	}
	return rewriteError(j.inner.Delete(ctx, full), path)
}

// rewriteError replaces the inner (jailed) path in a domain error with the
// external path so that internal layout never leaks through error messages.
func rewriteError(err error, external string) error {
	if err == nil {
		return nil
	}
	se, ok := err.(*storage.Error)
	if !ok {
		return err
	}
	out := *se
	out.Path = external
	return &out
}
