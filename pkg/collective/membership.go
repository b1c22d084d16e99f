package collective

import "context"

// Membership names one collective a principal can access.
type Membership struct {
	// ID is the collective's stable numeric id
	ID int64

	// DisplayName is the human-readable name used as the mount's last
	// path segment
	DisplayName string
}

// MembershipService resolves which collectives a principal belongs to.
// It is an external collaborator: the mount provider propagates its
// failures unmodified, because without a membership answer there is no
// partial view worth assembling.
type MembershipService interface {
	CollectivesForPrincipal(ctx context.Context, principal string) ([]Membership, error)
}

// StaticMembership is a MembershipService backed by a fixed table, used
// for single-node deployments configured from file.
type StaticMembership struct {
	byPrincipal map[string][]Membership
}

// NewStaticMembership creates a membership service from a principal →
// memberships table. The table is not copied; callers hand over ownership.
func NewStaticMembership(table map[string][]Membership) *StaticMembership {
	if table == nil {
		table = make(map[string][]Membership)
	}
	return &StaticMembership{byPrincipal: table}
}

// CollectivesForPrincipal implements MembershipService. Unknown principals
// get an empty list, not an error.
func (s *StaticMembership) CollectivesForPrincipal(ctx context.Context, principal string) ([]Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.byPrincipal[principal], nil
}
