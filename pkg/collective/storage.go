package collective

import (
	"github.com/collectivefs/collectivefs/pkg/cache"
	"github.com/collectivefs/collectivefs/pkg/events"
	"github.com/collectivefs/collectivefs/pkg/storage"
	"github.com/collectivefs/collectivefs/pkg/storage/jail"
)

// Storage is the per-mount storage for one collective: the path jail over
// the shared root storage, plus the mount-scoped context needed to build
// the cache chain and resolve ownership.
//
// It embeds the jail, so a *Storage is itself a storage.Storage; the event
// bridge keys off this concrete type to decide which cache events need
// their paths rewritten.
//
// Decorator chains are built lazily and memoized per instance. Instances
// are request-scoped: one per mount per request, discarded with the
// request, so no synchronization is needed around the memoization.
type Storage struct {
	*jail.Jail

	collectiveID int64
	snapshot     *cache.Entry

	// principal is the request principal, "" when the request is
	// unauthenticated
	principal string

	// fallbackOwner is the configured owner used when no request
	// principal exists, "" for none
	fallbackOwner string

	backend cache.Cache
	bus     *events.Bus

	cacheChain cache.Cache
}

// StorageParams carries the construction context for a collective storage.
type StorageParams struct {
	// CollectiveID is the collective this mount belongs to
	CollectiveID int64

	// RootStorage is the shared deployment-wide storage the jail
	// restricts
	RootStorage storage.Storage

	// JailPath is the internal path of the collective's container folder
	JailPath string

	// CacheBackend is the shared metadata-cache backend, keyed by
	// internal paths
	CacheBackend cache.Cache

	// Bus carries cache mutation events; may be nil
	Bus *events.Bus

	// Snapshot is the optional pre-fetched root entry
	Snapshot *cache.Entry

	// Principal is the request principal ("" if unauthenticated)
	Principal string

	// FallbackOwner is the configured fallback owner ("" for none)
	FallbackOwner string
}

// NewStorage builds the jailed storage for one collective mount.
func NewStorage(params StorageParams) *Storage {
	return &Storage{
		Jail:          jail.New(params.RootStorage, params.JailPath),
		collectiveID:  params.CollectiveID,
		snapshot:      params.Snapshot,
		principal:     params.Principal,
		fallbackOwner: params.FallbackOwner,
		backend:       params.CacheBackend,
		bus:           params.Bus,
	}
}

// CollectiveID returns the collective this storage belongs to.
func (s *Storage) CollectiveID() int64 {
	return s.collectiveID
}

// Cache returns the mount's metadata-cache chain, building it on first
// use: events attributed to this storage are emitted below a path jail
// matching the storage jail, topped by the root-entry snapshot decorator.
func (s *Storage) Cache() cache.Cache {
	if s.cacheChain == nil {
		chain := cache.WithEvents(s.backend, s.bus, s)
		jailed := cache.NewJailed(chain, s.Root())
		s.cacheChain = NewRootEntryCache(jailed, s.snapshot)
	}
	return s.cacheChain
}

// Owner resolves the owner this mount's operations are attributed to: the
// request principal when one exists, else the configured fallback owner.
// The boolean is false when neither is available; that is a valid state,
// not an error.
func (s *Storage) Owner() (string, bool) {
	if s.principal != "" {
		return s.principal, true
	}
	if s.fallbackOwner != "" {
		return s.fallbackOwner, true
	}
	return "", false
}
