package model

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ctrlplane/internal/ids"
)

func TestUserActiveReflectsStatus(t *testing.T) {
	require.True(t, (&User{Status: UserActive}).Active())
	require.False(t, (&User{Status: UserInactive}).Active())
}

func TestUserInGroupChecksMembership(t *testing.T) {
	g1, g2 := ids.New(), ids.New()
	u := &User{GroupIDs: []ids.ID{g1}}

	require.True(t, u.InGroup(g1))
	require.False(t, u.InGroup(g2))
}

func TestReservedGroupIDsAreDistinct(t *testing.T) {
	require.NotEqual(t, AdminGroupID, OperatorGroupID)
}
