// Package addressbook implements the trusted-destination catalog the
// AllowListed and AllowListedByMetadata rule leaves depend on. Modeled on
// the escrow realm's allow-list pattern (ArbitratorSet membership checks).
package addressbook

import (
	"ctrlplane/internal/ids"
	"ctrlplane/internal/store"
)

// Entry is a single trusted destination.
type Entry struct {
	ID       ids.ID
	Address  string
	Label    string
	Metadata map[string]string
}

// Repository owns the address book stable map plus an index by address so
// AllowListed checks are a point lookup rather than a full scan.
type Repository struct {
	entries   *store.Map[Entry]
	byAddress map[string]ids.ID
}

func NewRepository(db store.Database) (*Repository, error) {
	r := &Repository{
		entries:   store.NewMap[Entry](db, "address_book"),
		byAddress: map[string]ids.ID{},
	}
	all, err := r.entries.All()
	if err != nil {
		return nil, err
	}
	for _, e := range all {
		r.byAddress[e.Address] = e.ID
	}
	return r, nil
}

func (r *Repository) Put(e *Entry) error {
	if old, ok := r.byAddress[e.Address]; ok && old != e.ID {
		delete(r.byAddress, e.Address)
	}
	r.byAddress[e.Address] = e.ID
	return r.entries.Put(e.ID, e)
}

func (r *Repository) Get(id ids.ID) (*Entry, bool, error) {
	return r.entries.Get(id)
}

// Allowed reports whether address is present, optionally restricted to an
// entry carrying (key, value) in its metadata when key is non-empty —
// backing both AllowListed and AllowListedByMetadata (§4.1).
func (r *Repository) Allowed(address, key, value string) bool {
	id, ok := r.byAddress[address]
	if !ok {
		return false
	}
	if key == "" {
		return true
	}
	entry, ok, err := r.entries.Get(id)
	if err != nil || !ok {
		return false
	}
	return entry.Metadata[key] == value
}
