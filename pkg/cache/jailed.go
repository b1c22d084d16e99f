package cache

import (
	"context"
	"strings"

	"github.com/collectivefs/collectivefs/pkg/storage"
)

// JailedCache translates cache paths between an external (jailed) namespace
// and the inner cache's namespace, mirroring what the storage jail does for
// storage paths: the external root ("") maps to the inner path prefix.
//
// Results coming back out have their paths stripped; paths that would
// escape the prefix are rejected with ErrInvalidPath.
type JailedCache struct {
	inner  Cache
	prefix string
}

// NewJailed creates a jailed view of inner rooted at prefix.
// prefix is inner-relative and must not be empty.
func NewJailed(inner Cache, prefix string) *JailedCache {
	return &JailedCache{inner: inner, prefix: prefix}
}

func (c *JailedCache) translate(path string) (string, error) {
	if path == "" {
		return c.prefix, nil
	}
	if strings.HasPrefix(path, "/") {
		return "", storage.InvalidPath(path)
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", storage.InvalidPath(path)
		}
	}
	return c.prefix + "/" + path, nil
}

func (c *JailedCache) strip(inner string) string {
	if inner == c.prefix {
		return ""
	}
	return strings.TrimPrefix(inner, c.prefix+"/")
}

// Get implements Cache.
func (c *JailedCache) Get(ctx context.Context, path string) (*Entry, error) {
	full, err := c.translate(path)
	if err != nil {
		return nil, err
	}
	entry, err := c.inner.Get(ctx, full)
	if err != nil {
		return nil, rewriteError(err, path)
	}
	out := *entry
	out.Path = c.strip(entry.Path)
	return &out, nil
}

// GetID implements Cache.
func (c *JailedCache) GetID(ctx context.Context, path string) (int64, error) {
	full, err := c.translate(path)
	if err != nil {
		return 0, err
	}
	id, err := c.inner.GetID(ctx, full)
	if err != nil {
		return 0, rewriteError(err, path)
	}
	return id, nil
}

// Insert implements Cache.
func (c *JailedCache) Insert(ctx context.Context, path string, attrs Attributes) (int64, error) {
	full, err := c.translate(path)
	if err != nil {
		return 0, err
	}
	id, err := c.inner.Insert(ctx, full, attrs)
	if err != nil {
		return 0, rewriteError(err, path)
	}
	return id, nil
}

// Update implements Cache.
func (c *JailedCache) Update(ctx context.Context, id int64, attrs Attributes) error {
	// Ids are namespace-free; no translation needed.
	return c.inner.Update(ctx, id, attrs)
}

// rewriteError replaces the inner (prefixed) path in a domain error with
// the external path so the internal layout does not leak through errors.
func rewriteError(err error, external string) error {
	se, ok := err.(*storage.Error)
	if !ok {
		return err
	}
	out := *se
	out.Path = external
	return &out
}
