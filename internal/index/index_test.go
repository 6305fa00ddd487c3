package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ctrlplane/internal/ids"
	"ctrlplane/internal/store"
)

func TestAddAndLookup(t *testing.T) {
	set := NewSet(store.NewMemDB(), "by_status")
	id1, id2 := ids.New(), ids.New()
	key := EncodeString("Created")

	require.NoError(t, set.Add(key, id1))
	require.NoError(t, set.Add(key, id2))

	got, err := set.Lookup(key)
	require.NoError(t, err)
	require.ElementsMatch(t, []ids.ID{id1, id2}, got)
}

func TestRemoveIsNoOpForAbsentEntry(t *testing.T) {
	set := NewSet(store.NewMemDB(), "by_status")
	require.NoError(t, set.Remove(EncodeString("Created"), ids.New()))
}

func TestRemoveDropsOnlyThatEntry(t *testing.T) {
	set := NewSet(store.NewMemDB(), "by_status")
	key := EncodeString("Created")
	id1, id2 := ids.New(), ids.New()
	require.NoError(t, set.Add(key, id1))
	require.NoError(t, set.Add(key, id2))

	require.NoError(t, set.Remove(key, id1))

	got, err := set.Lookup(key)
	require.NoError(t, err)
	require.Equal(t, []ids.ID{id2}, got)
}

func TestScanPrefixCoversMultipleKeysUnderSharedPrefix(t *testing.T) {
	set := NewSet(store.NewMemDB(), "by_resource")
	id1, id2 := ids.New(), ids.New()
	require.NoError(t, set.Add([]byte("account#1"), id1))
	require.NoError(t, set.Add([]byte("account#2"), id2))

	got, err := set.ScanPrefix([]byte("account#"))
	require.NoError(t, err)
	require.ElementsMatch(t, []ids.ID{id1, id2}, got)
}

func TestReindexRemovesStaleAndAddsFreshKeysLeavingSharedAlone(t *testing.T) {
	set := NewSet(store.NewMemDB(), "by_group")
	id := ids.New()
	groupA := EncodeString("group-a")
	groupB := EncodeString("group-b")
	groupC := EncodeString("group-c")

	require.NoError(t, set.Add(groupA, id))
	require.NoError(t, set.Add(groupB, id))

	// New membership: group-b (shared) and group-c (fresh); group-a is stale.
	require.NoError(t, set.Reindex(id, [][]byte{groupA, groupB}, [][]byte{groupB, groupC}))

	gotA, err := set.Lookup(groupA)
	require.NoError(t, err)
	require.Empty(t, gotA)

	gotB, err := set.Lookup(groupB)
	require.NoError(t, err)
	require.Equal(t, []ids.ID{id}, gotB)

	gotC, err := set.Lookup(groupC)
	require.NoError(t, err)
	require.Equal(t, []ids.ID{id}, gotC)
}

func TestEncodeUint64SortsNumericallyAsBytes(t *testing.T) {
	small := EncodeUint64(1)
	large := EncodeUint64(1000)
	require.True(t, string(small) < string(large))
}

func TestEqualComparesByteSlices(t *testing.T) {
	require.True(t, Equal(EncodeString("a"), EncodeString("a")))
	require.False(t, Equal(EncodeString("a"), EncodeString("b")))
}
