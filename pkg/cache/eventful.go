package cache

import (
	"context"

	"github.com/collectivefs/collectivefs/pkg/events"
	"github.com/collectivefs/collectivefs/pkg/storage"
)

// EventfulCache decorates a Cache so that every successful Insert and
// Update publishes a CacheEvent on the bus.
//
// The decorator sits directly over the backend, below any path
// translation, so published events carry the backend's own paths. For a
// collective mount those are the internal jailed paths; the event bridge
// rewrites them before external observers see them.
//
// The owner is the storage the event is attributed to. For a collective
// mount this is the outer CollectiveStorage, not the shared root storage
// the backend actually indexes; subscribers key their behavior off the
// owner's type.
type EventfulCache struct {
	inner Cache
	bus   *events.Bus
	owner storage.Storage
}

// WithEvents wraps inner so mutations publish events attributed to owner.
// A nil bus yields a decorator that publishes nothing.
func WithEvents(inner Cache, bus *events.Bus, owner storage.Storage) *EventfulCache {
	return &EventfulCache{inner: inner, bus: bus, owner: owner}
}

// Get implements Cache.
func (c *EventfulCache) Get(ctx context.Context, path string) (*Entry, error) {
	return c.inner.Get(ctx, path)
}

// GetID implements Cache.
func (c *EventfulCache) GetID(ctx context.Context, path string) (int64, error) {
	return c.inner.GetID(ctx, path)
}

// Insert implements Cache.
func (c *EventfulCache) Insert(ctx context.Context, path string, attrs Attributes) (int64, error) {
	id, err := c.inner.Insert(ctx, path, attrs)
	if err != nil {
		return 0, err
	}
	c.bus.Publish(events.TopicCacheInsert, &events.CacheEvent{
		Path:    path,
		ID:      id,
		Storage: c.owner,
	})
	return id, nil
}

// Update implements Cache.
func (c *EventfulCache) Update(ctx context.Context, id int64, attrs Attributes) error {
	if err := c.inner.Update(ctx, id, attrs); err != nil {
		return err
	}
	path := ""
	// Best effort: resolve the path for the event. The mutation has
	// already succeeded; an id without a resolvable path still produces
	// an event, just with an empty path.
	if entry, err := c.pathOf(ctx, id); err == nil {
		path = entry
	}
	c.bus.Publish(events.TopicCacheUpdate, &events.CacheEvent{
		Path:    path,
		ID:      id,
		Storage: c.owner,
	})
	return nil
}

// pathOf resolves an id back to its path via the optional reverse lookup
// some backends expose.
func (c *EventfulCache) pathOf(ctx context.Context, id int64) (string, error) {
	type reverse interface {
		PathForID(ctx context.Context, id int64) (string, error)
	}
	if r, ok := c.inner.(reverse); ok {
		return r.PathForID(ctx, id)
	}
	return "", storage.NotFound("")
}
