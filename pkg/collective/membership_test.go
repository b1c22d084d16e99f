package collective

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticMembership(t *testing.T) {
	ctx := context.Background()
	svc := NewStaticMembership(map[string][]Membership{
		"alice": {{ID: 101, DisplayName: "Garden Club"}, {ID: 7, DisplayName: "Chess"}},
	})

	got, err := svc.CollectivesForPrincipal(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// Unknown principals are simply in no collectives.
	got, err = svc.CollectivesForPrincipal(ctx, "stranger")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStaticMembership_NilTable(t *testing.T) {
	ctx := context.Background()
	svc := NewStaticMembership(nil)

	got, err := svc.CollectivesForPrincipal(ctx, "anyone")
	require.NoError(t, err)
	assert.Empty(t, got)
}
