package collective

import (
	"github.com/collectivefs/collectivefs/pkg/events"
)

// CacheEventBridge rewrites cache mutation events so that outside
// consumers never observe internal container paths.
//
// Cache events are emitted below the per-mount path translation, so their
// paths are internal: "appdata_<id>/collectives/<id>/sub/file.md". The
// bridge strips that prefix, leaving the tenant-relative "sub/file.md".
// Events from non-collective storages are left untouched even when their
// path happens to look like a container path: the storage type, not the
// path shape, decides.
//
// The bridge registers at low priority so the rewrite is the last thing
// to run; every other subscriber observes the event first, and external
// observers (after Publish returns) only ever see the rewritten path.
// The rewrite is idempotent because the strip pattern is anchored at the
// start of the path (see jailPrefixPattern).
type CacheEventBridge struct{}

// NewCacheEventBridge creates the bridge.
func NewCacheEventBridge() *CacheEventBridge {
	return &CacheEventBridge{}
}

// Register subscribes the bridge to both cache mutation topics.
func (b *CacheEventBridge) Register(bus *events.Bus) {
	bus.Subscribe(events.TopicCacheInsert, events.PriorityLow, b.onEvent)
	bus.Subscribe(events.TopicCacheUpdate, events.PriorityLow, b.onEvent)
}

// onEvent rewrites the event path in place for collective-storage events.
func (b *CacheEventBridge) onEvent(ev *events.CacheEvent) {
	if _, ok := ev.Storage.(*Storage); !ok {
		return
	}
	if rewritten := StripJailPrefix(ev.Path); rewritten != ev.Path {
		ev.Path = rewritten
	}
}
