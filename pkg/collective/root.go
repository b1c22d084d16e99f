// Package collective implements the multi-tenant mount subsystem: the
// per-deployment root container, lazily provisioned per-collective folders,
// the path jail and root-entry cache each mount composes, and the event
// bridge that keeps internal paths from leaking to outside observers.
package collective

import (
	"sync"

	"github.com/collectivefs/collectivefs/pkg/storage"
)

// Namespace constants. Both the jail-path builder and the event-rewrite
// pattern derive from these; they are the single definition of the
// container layout (see jailpath.go).
const (
	namespacePrefix = "appdata"
	appNamespace    = "collectives"
)

// InstanceIDSource supplies the process-wide instance identifier.
// Implemented by the config layer; tests use a literal.
type InstanceIDSource interface {
	InstanceID() string
}

// InstanceIDFunc adapts a function to InstanceIDSource.
type InstanceIDFunc func() string

func (f InstanceIDFunc) InstanceID() string { return f() }

// RootResolver derives the deployment-wide root container path
// "appdata_<instanceID>/collectives" from the instance identifier.
//
// The identifier is read exactly once; the derived path (or the failure)
// is memoized for the process lifetime. A missing identifier is a fatal
// configuration error: there is no meaningful retry, because every
// container path in the deployment depends on it.
type RootResolver struct {
	source InstanceIDSource

	once sync.Once
	path string
	err  error
}

// NewRootResolver creates a resolver reading the instance id from source.
func NewRootResolver(source InstanceIDSource) *RootResolver {
	return &RootResolver{source: source}
}

// Resolve returns the root container path, computing it on first call.
func (r *RootResolver) Resolve() (string, error) {
	r.once.Do(func() {
		id := r.source.InstanceID()
		if id == "" {
			r.err = storage.FatalConfiguration("instance id missing, can not read root container path")
			return
		}
		r.path = namespacePrefix + "_" + id + "/" + appNamespace
	})
	return r.path, r.err
}
