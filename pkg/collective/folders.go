package collective

import (
	"context"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/collectivefs/collectivefs/internal/logger"
	"github.com/collectivefs/collectivefs/pkg/storage"
)

// skeletonFolderName is the template folder kept beside the collective
// containers inside the root container.
const skeletonFolderName = "skeleton"

// FolderManager lazily provisions the root container folder and the
// per-collective container folders inside it.
//
// Provisioning is idempotent and lock-free: concurrent first accesses may
// both attempt creation, and the loser treats the backend's already-exists
// response as success and re-resolves the folder the winner created.
// Folder creation happens once per collective lifetime, so best-effort
// creation beats taking a lock for a window this narrow.
//
// The manager holds no state beyond its collaborators and the memoized
// root path inside the resolver; every returned Folder is computed from
// the backend's current contents.
type FolderManager struct {
	root     storage.Storage
	resolver *RootResolver

	// skeletonManifest optionally points to a YAML manifest seeded into
	// the skeleton folder on first use ("" disables seeding)
	skeletonManifest string
}

// NewFolderManager creates a folder manager over the deployment's root
// storage.
func NewFolderManager(root storage.Storage, resolver *RootResolver, skeletonManifest string) *FolderManager {
	return &FolderManager{
		root:             root,
		resolver:         resolver,
		skeletonManifest: skeletonManifest,
	}
}

// ensureFolder creates the folder at path if absent and returns its handle.
// An already-exists response from the backend counts as success.
func (m *FolderManager) ensureFolder(ctx context.Context, path string) (*storage.Folder, error) {
	info, err := m.root.Stat(ctx, path)
	if err == nil {
		if info.Mode != storage.ModeFolder {
			return nil, storage.NotFolder(path)
		}
		return &storage.Folder{Storage: m.root, Path: path}, nil
	}
	if !storage.IsNotFound(err) {
		return nil, err
	}

	if err := m.root.NewFolder(ctx, path); err != nil && !storage.IsAlreadyExists(err) {
		return nil, err
	}
	return &storage.Folder{Storage: m.root, Path: path}, nil
}

// RootFolder returns the deployment-wide root container folder, creating
// it (and its namespace parent) if absent.
func (m *FolderManager) RootFolder(ctx context.Context) (*storage.Folder, error) {
	rootPath, err := m.resolver.Resolve()
	if err != nil {
		return nil, err
	}

	// The root path has two segments (appdata_<id>/collectives); the
	// namespace parent must exist before the app folder can.
	if _, err := m.ensureFolder(ctx, storage.ParentPath(rootPath)); err != nil {
		return nil, err
	}
	return m.ensureFolder(ctx, rootPath)
}

// SkeletonFolder returns the skeleton template folder under parent,
// creating and seeding it on first use.
func (m *FolderManager) SkeletonFolder(ctx context.Context, parent *storage.Folder) (*storage.Folder, error) {
	path := storage.JoinPath(parent.Path, skeletonFolderName)

	if _, err := m.root.Stat(ctx, path); err == nil {
		return &storage.Folder{Storage: m.root, Path: path}, nil
	} else if !storage.IsNotFound(err) {
		return nil, err
	}

	folder, err := m.ensureFolder(ctx, path)
	if err != nil {
		return nil, err
	}
	if m.skeletonManifest != "" {
		if err := m.seedSkeleton(ctx, folder); err != nil {
			return nil, err
		}
	}
	return folder, nil
}

// skeletonManifestFile describes the template tree seeded into the
// skeleton folder: a flat list of folders and files with inline content.
type skeletonManifestFile struct {
	Folders []string `yaml:"folders"`
	Files   []struct {
		Path    string `yaml:"path"`
		Content string `yaml:"content"`
	} `yaml:"files"`
}

// seedSkeleton populates a freshly created skeleton folder from the
// manifest. Seeding races behave like provisioning races: already-exists
// responses are success.
func (m *FolderManager) seedSkeleton(ctx context.Context, folder *storage.Folder) error {
	raw, err := os.ReadFile(m.skeletonManifest)
	if err != nil {
		return storage.NotPermitted(folder.Path, err)
	}
	var manifest skeletonManifestFile
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return storage.NotPermitted(folder.Path, err)
	}

	for _, sub := range manifest.Folders {
		path := storage.JoinPath(folder.Path, sub)
		if err := m.root.NewFolder(ctx, path); err != nil && !storage.IsAlreadyExists(err) {
			return err
		}
	}
	for _, f := range manifest.Files {
		path := storage.JoinPath(folder.Path, f.Path)
		if err := m.root.Write(ctx, path, []byte(f.Content)); err != nil {
			return err
		}
	}
	logger.Debug("Seeded skeleton folder %s from %s", folder.Path, m.skeletonManifest)
	return nil
}

// Folder returns the container folder for a collective.
//
// If the container exists it is returned as-is. If it is absent and create
// is false, ErrNotFound is returned (the collective is simply not
// provisioned yet). Otherwise the skeleton folder's contents are copied
// into a new container named after the collective id.
//
// Concurrent first accesses race on the copy; the loser re-resolves the
// folder the winner created instead of failing.
func (m *FolderManager) Folder(ctx context.Context, collectiveID int64, create bool) (*storage.Folder, error) {
	root, err := m.RootFolder(ctx)
	if err != nil {
		return nil, err
	}

	name := strconv.FormatInt(collectiveID, 10)
	path := storage.JoinPath(root.Path, name)

	info, err := m.root.Stat(ctx, path)
	if err == nil {
		if info.Mode != storage.ModeFolder {
			return nil, storage.NotFolder(path)
		}
		return &storage.Folder{Storage: m.root, Path: path}, nil
	}
	if !storage.IsNotFound(err) {
		return nil, err
	}
	if !create {
		return nil, storage.NotFound(path)
	}

	skeleton, err := m.SkeletonFolder(ctx, root)
	if err != nil {
		return nil, err
	}

	if err := m.root.Copy(ctx, skeleton.Path, path); err != nil {
		if storage.IsAlreadyExists(err) {
			// Another caller provisioned the container first; use theirs.
			return &storage.Folder{Storage: m.root, Path: path}, nil
		}
		if storage.IsNotPermitted(err) {
			return nil, err
		}
		return nil, storage.NotPermitted(path, err)
	}

	logger.Info("Provisioned container folder for collective %d", collectiveID)
	return &storage.Folder{Storage: m.root, Path: path}, nil
}
