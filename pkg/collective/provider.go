package collective

import (
	"context"

	"github.com/collectivefs/collectivefs/internal/logger"
	"github.com/collectivefs/collectivefs/pkg/cache"
	"github.com/collectivefs/collectivefs/pkg/events"
	"github.com/collectivefs/collectivefs/pkg/storage"
)

// MountProvider assembles the collective mounts for a principal's
// aggregate filesystem view.
//
// For each collective the membership service reports, the provider makes
// sure the container folder exists (forcing lazy provisioning on first
// access), builds the jailed storage and cache chain, and emits a mount
// descriptor. Providers are cheap and stateless; one per deployment is
// fine, descriptors are built per request.
type MountProvider struct {
	folders    *FolderManager
	resolver   *RootResolver
	membership MembershipService
	backend    cache.Cache
	bus        *events.Bus

	// fallbackOwner is handed to every collective storage ("" for none)
	fallbackOwner string
}

// MountProviderParams carries the provider's collaborators.
type MountProviderParams struct {
	Folders       *FolderManager
	Resolver      *RootResolver
	Membership    MembershipService
	CacheBackend  cache.Cache
	Bus           *events.Bus
	FallbackOwner string
}

// NewMountProvider creates a mount provider.
func NewMountProvider(params MountProviderParams) *MountProvider {
	return &MountProvider{
		folders:       params.Folders,
		resolver:      params.Resolver,
		membership:    params.Membership,
		backend:       params.CacheBackend,
		bus:           params.Bus,
		fallbackOwner: params.FallbackOwner,
	}
}

// MountsForPrincipal returns one mount descriptor per collective the
// principal can access. Empty membership yields an empty list.
//
// Failure handling: a provisioning failure for one collective skips that
// mount and continues with the rest, so a fault in one tenant's folder
// never hides other tenants' mounts. Membership failures propagate: with
// no membership answer there is no view to assemble.
func (p *MountProvider) MountsForPrincipal(ctx context.Context, principal string) ([]*MountDescriptor, error) {
	memberships, err := p.membership.CollectivesForPrincipal(ctx, principal)
	if err != nil {
		return nil, err
	}

	rootPath, err := p.resolver.Resolve()
	if err != nil {
		return nil, err
	}

	mounts := make([]*MountDescriptor, 0, len(memberships))
	for _, m := range memberships {
		desc, err := p.buildMount(ctx, rootPath, principal, m)
		if err != nil {
			logger.Warn("Skipping mount for collective %d (%s): %v", m.ID, m.DisplayName, err)
			continue
		}
		mounts = append(mounts, desc)
	}
	return mounts, nil
}

// buildMount provisions and describes one collective mount.
func (p *MountProvider) buildMount(ctx context.Context, rootPath, principal string, m Membership) (*MountDescriptor, error) {
	jailPath := JailPath(rootPath, m.ID)

	// Pre-fetch the root entry so the mount can answer root metadata
	// lookups without touching the cache backend again. A cache miss just
	// means no snapshot; the folder has to exist either way.
	snapshot, err := p.backend.Get(ctx, jailPath)
	if err != nil {
		if !storage.IsNotFound(err) {
			return nil, err
		}
		snapshot = nil
	}

	if snapshot == nil {
		// No cached state: force provisioning so the mount never points
		// at a folder that does not exist.
		if _, err := p.folders.Folder(ctx, m.ID, true); err != nil {
			return nil, err
		}
	}

	st := NewStorage(StorageParams{
		CollectiveID:  m.ID,
		RootStorage:   p.folders.root,
		JailPath:      jailPath,
		CacheBackend:  p.backend,
		Bus:           p.bus,
		Snapshot:      rootSnapshot(snapshot),
		Principal:     principal,
		FallbackOwner: p.fallbackOwner,
	})

	mountPath := "/" + principal + "/files/" + m.DisplayName
	sourcePath := "/" + jailPath
	return newMountDescriptor(m.ID, mountPath, sourcePath, st), nil
}

// rootSnapshot rebases a backend entry (keyed by internal path) onto the
// jailed namespace, where the container root is "".
func rootSnapshot(entry *cache.Entry) *cache.Entry {
	if entry == nil {
		return nil
	}
	out := *entry
	out.Path = ""
	return &out
}
