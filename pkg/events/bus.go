// Package events provides the in-process event bus carrying metadata-cache
// mutation events.
//
// The bus is synchronous: Publish runs every handler on the caller's stack,
// in ascending priority order, before returning. Handlers may mutate the
// event; later handlers (and the publisher, once Publish returns) observe
// those mutations. This is what lets a low-priority subscriber rewrite
// event paths as the last thing external observers see.
package events

import (
	"sort"
	"sync"

	"github.com/collectivefs/collectivefs/pkg/storage"
)

// Topics for cache mutation events.
const (
	TopicCacheInsert = "cache.insert"
	TopicCacheUpdate = "cache.update"
)

// Handler priorities. Lower values run earlier; PriorityLow handlers run
// after everything registered at PriorityNormal.
const (
	PriorityNormal = 0
	PriorityLow    = 100
)

// CacheEvent describes a single cache mutation. Path is mutable: handlers
// may rewrite it before later handlers or the publisher's caller see it.
type CacheEvent struct {
	// Op is the topic the event was published under
	Op string

	// Path is the cache path the mutation applied to. Mutable.
	Path string

	// ID is the cache entry id involved (the new id for inserts)
	ID int64

	// Storage is the storage the mutated cache indexes; subscribers use it
	// to decide whether the event concerns them
	Storage storage.Storage
}

// Handler processes one event. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(ev *CacheEvent)

type subscription struct {
	priority int
	seq      int
	fn       Handler
}

// Bus dispatches events to subscribers by topic.
//
// Thread Safety:
// Subscribe and Publish are safe for concurrent use. Handlers registered
// with equal priority run in registration order.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]subscription
	seq  int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe registers fn for events published under topic.
func (b *Bus) Subscribe(topic string, priority int, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	subs := append(b.subs[topic], subscription{priority: priority, seq: b.seq, fn: fn})
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].priority != subs[j].priority {
			return subs[i].priority < subs[j].priority
		}
		return subs[i].seq < subs[j].seq
	})
	b.subs[topic] = subs
}

// Publish delivers ev to every subscriber of topic, in priority order.
// A nil *Bus is a valid no-op publisher, so components can treat the bus
// as optional.
func (b *Bus) Publish(topic string, ev *CacheEvent) {
	if b == nil {
		return
	}

	b.mu.RLock()
	subs := b.subs[topic]
	b.mu.RUnlock()

	ev.Op = topic
	for _, sub := range subs {
		sub.fn(ev)
	}
}
