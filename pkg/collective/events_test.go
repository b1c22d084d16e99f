package collective

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collectivefs/collectivefs/pkg/cache"
	"github.com/collectivefs/collectivefs/pkg/events"
	storagememory "github.com/collectivefs/collectivefs/pkg/storage/memory"
)

func TestCacheEventBridge_RewritesCollectivePaths(t *testing.T) {
	bus := events.NewBus()
	NewCacheEventBridge().Register(bus)

	st, _ := newTestStorage(t, StorageParams{})

	ev := &events.CacheEvent{
		Path:    "appdata_abc123/collectives/42/sub/file.md",
		ID:      9,
		Storage: st,
	}
	bus.Publish(events.TopicCacheInsert, ev)

	assert.Equal(t, "sub/file.md", ev.Path)
}

func TestCacheEventBridge_IgnoresOtherStorages(t *testing.T) {
	bus := events.NewBus()
	NewCacheEventBridge().Register(bus)

	// The path looks like a container path, but the storage type decides.
	ev := &events.CacheEvent{
		Path:    "appdata_abc123/collectives/42/sub/file.md",
		Storage: storagememory.NewMemoryStorage(),
	}
	bus.Publish(events.TopicCacheUpdate, ev)

	assert.Equal(t, "appdata_abc123/collectives/42/sub/file.md", ev.Path)
}

func TestCacheEventBridge_IdempotentRewrite(t *testing.T) {
	bus := events.NewBus()
	NewCacheEventBridge().Register(bus)

	st, _ := newTestStorage(t, StorageParams{})

	ev := &events.CacheEvent{Path: "appdata_abc123/collectives/42/sub/file.md", Storage: st}
	bus.Publish(events.TopicCacheInsert, ev)
	require.Equal(t, "sub/file.md", ev.Path)

	// Republishing an already-rewritten event changes nothing.
	bus.Publish(events.TopicCacheInsert, ev)
	assert.Equal(t, "sub/file.md", ev.Path)
}

func TestCacheEventBridge_RunsAfterNormalSubscribers(t *testing.T) {
	ctx := context.Background()
	bus := events.NewBus()
	NewCacheEventBridge().Register(bus)

	var normalSaw, lateSaw string
	bus.Subscribe(events.TopicCacheInsert, events.PriorityNormal, func(ev *events.CacheEvent) {
		normalSaw = ev.Path
	})
	// Registered after the bridge at the same low priority, so it runs
	// after the rewrite.
	bus.Subscribe(events.TopicCacheInsert, events.PriorityLow, func(ev *events.CacheEvent) {
		lateSaw = ev.Path
	})

	st, _ := newTestStorage(t, StorageParams{Bus: bus})
	_, err := st.Cache().Insert(ctx, "docs/f.md", cache.Attributes{Size: 1})
	require.NoError(t, err)

	// In-process subscribers at normal priority observe the internal
	// path; anything after the bridge sees only the rewritten one.
	assert.Equal(t, "appdata_abc123/collectives/42/docs/f.md", normalSaw)
	assert.Equal(t, "docs/f.md", lateSaw)
}
