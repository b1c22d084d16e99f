package collective

import "strconv"

// MountTypeCollective is the mount type reported to the filesystem
// aggregator for every collective mount.
const MountTypeCollective = "collective"

// MountDescriptor is the request-scoped description of one collective
// mount inside a principal's aggregate filesystem view. It exclusively
// owns its storage decorator chain and is discarded at end of request;
// nothing here is persisted.
type MountDescriptor struct {
	collectiveID int64

	// mountPath is where the mount appears in the principal's view, e.g.
	// "/alice/files/Garden Club"
	mountPath string

	// sourcePath is the absolute internal path of the container folder
	sourcePath string

	storage *Storage
	options map[string]any
}

// newMountDescriptor builds a descriptor; options always carry the fixed
// "encrypt": false entry, since collective containers live inside the
// deployment's own appdata namespace where per-user encryption keys do
// not apply.
func newMountDescriptor(collectiveID int64, mountPath, sourcePath string, st *Storage) *MountDescriptor {
	return &MountDescriptor{
		collectiveID: collectiveID,
		mountPath:    mountPath,
		sourcePath:   sourcePath,
		storage:      st,
		options: map[string]any{
			"encrypt": false,
		},
	}
}

// MountType identifies the mount kind to the aggregator.
func (d *MountDescriptor) MountType() string {
	return MountTypeCollective
}

// FolderID returns the collective id backing this mount.
func (d *MountDescriptor) FolderID() int64 {
	return d.collectiveID
}

// MountPath returns the principal-relative path the mount appears at.
func (d *MountDescriptor) MountPath() string {
	return d.mountPath
}

// SourcePath returns the absolute internal path of the container folder,
// "/" + root internal path + "/" + folder id.
func (d *MountDescriptor) SourcePath() string {
	return d.sourcePath
}

// Storage returns the mount's storage decorator chain.
func (d *MountDescriptor) Storage() *Storage {
	return d.storage
}

// Option returns a mount option by name, or def when unset.
func (d *MountDescriptor) Option(name string, def any) any {
	if v, ok := d.options[name]; ok {
		return v
	}
	return def
}

// String renders the descriptor for logs.
func (d *MountDescriptor) String() string {
	return d.mountPath + " <- " + d.sourcePath + " (collective " + strconv.FormatInt(d.collectiveID, 10) + ")"
}
