package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_DeliversToTopicSubscribers(t *testing.T) {
	bus := NewBus()

	var got []string
	bus.Subscribe(TopicCacheInsert, PriorityNormal, func(ev *CacheEvent) {
		got = append(got, ev.Path)
	})

	bus.Publish(TopicCacheInsert, &CacheEvent{Path: "docs/f.md", ID: 1})
	bus.Publish(TopicCacheUpdate, &CacheEvent{Path: "other.md", ID: 2})

	assert.Equal(t, []string{"docs/f.md"}, got)
}

func TestBus_SetsOpFromTopic(t *testing.T) {
	bus := NewBus()

	var op string
	bus.Subscribe(TopicCacheUpdate, PriorityNormal, func(ev *CacheEvent) {
		op = ev.Op
	})

	bus.Publish(TopicCacheUpdate, &CacheEvent{Path: "f.md"})
	assert.Equal(t, TopicCacheUpdate, op)
}

func TestBus_PriorityOrdering(t *testing.T) {
	bus := NewBus()

	var order []string
	// Register the low-priority handler first; it must still run last.
	bus.Subscribe(TopicCacheInsert, PriorityLow, func(ev *CacheEvent) {
		order = append(order, "low")
	})
	bus.Subscribe(TopicCacheInsert, PriorityNormal, func(ev *CacheEvent) {
		order = append(order, "normal-1")
	})
	bus.Subscribe(TopicCacheInsert, PriorityNormal, func(ev *CacheEvent) {
		order = append(order, "normal-2")
	})

	bus.Publish(TopicCacheInsert, &CacheEvent{Path: "f.md"})
	assert.Equal(t, []string{"normal-1", "normal-2", "low"}, order)
}

func TestBus_HandlerMutationsAreVisibleDownstream(t *testing.T) {
	bus := NewBus()

	bus.Subscribe(TopicCacheInsert, PriorityLow, func(ev *CacheEvent) {
		ev.Path = "rewritten/" + ev.Path
	})
	var seen string
	bus.Subscribe(TopicCacheInsert, PriorityLow, func(ev *CacheEvent) {
		seen = ev.Path
	})

	ev := &CacheEvent{Path: "f.md"}
	bus.Publish(TopicCacheInsert, ev)

	assert.Equal(t, "rewritten/f.md", seen)
	assert.Equal(t, "rewritten/f.md", ev.Path)
}

func TestBus_NilBusPublishIsNoOp(t *testing.T) {
	var bus *Bus
	assert.NotPanics(t, func() {
		bus.Publish(TopicCacheInsert, &CacheEvent{Path: "f.md"})
	})
}
