package addressbook

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ctrlplane/internal/ids"
	"ctrlplane/internal/store"
)

func TestAllowedFalseForUnknownAddress(t *testing.T) {
	r, err := NewRepository(store.NewMemDB())
	require.NoError(t, err)
	require.False(t, r.Allowed("0xabc", "", ""))
}

func TestAllowedTrueForKnownAddressWithoutMetadataKey(t *testing.T) {
	r, err := NewRepository(store.NewMemDB())
	require.NoError(t, err)
	require.NoError(t, r.Put(&Entry{ID: ids.New(), Address: "0xabc", Label: "treasury"}))

	require.True(t, r.Allowed("0xabc", "", ""))
}

func TestAllowedByMetadataRequiresMatchingKeyValue(t *testing.T) {
	r, err := NewRepository(store.NewMemDB())
	require.NoError(t, err)
	require.NoError(t, r.Put(&Entry{
		ID: ids.New(), Address: "0xabc", Metadata: map[string]string{"tier": "hot"},
	}))

	require.True(t, r.Allowed("0xabc", "tier", "hot"))
	require.False(t, r.Allowed("0xabc", "tier", "cold"))
	require.False(t, r.Allowed("0xabc", "missing-key", ""))
}

func TestPutReassignsAddressToNewEntryID(t *testing.T) {
	db := store.NewMemDB()
	r, err := NewRepository(db)
	require.NoError(t, err)

	first := &Entry{ID: ids.New(), Address: "0xabc", Label: "old"}
	require.NoError(t, r.Put(first))

	second := &Entry{ID: ids.New(), Address: "0xabc", Label: "new", Metadata: map[string]string{"k": "v"}}
	require.NoError(t, r.Put(second))

	require.True(t, r.Allowed("0xabc", "k", "v"))
}

func TestNewRepositoryLoadsExistingEntriesFromDB(t *testing.T) {
	db := store.NewMemDB()
	r1, err := NewRepository(db)
	require.NoError(t, err)
	require.NoError(t, r1.Put(&Entry{ID: ids.New(), Address: "0xseeded"}))

	r2, err := NewRepository(db)
	require.NoError(t, err)
	require.True(t, r2.Allowed("0xseeded", "", ""))
}
