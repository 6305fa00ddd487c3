// Package permission implements the per-resource read-access allow-list,
// independent of RequestPolicy, which governs approval rather than read
// access. Modeled on the SetRole/RemoveRole role-table pattern in
// native/governance.
package permission

import (
	"ctrlplane/internal/ids"
	"ctrlplane/internal/model"
	"ctrlplane/internal/store"
)

// Grant names the users and groups allowed to read requests touching a
// given Resource.
type Grant struct {
	Resource model.Resource
	Users    []ids.ID
	Groups   []ids.ID
}

// key identifies a Grant's storage slot; Resource is comparable so it is
// usable directly as a Go map key.
type key = model.Resource

// Repository owns the permission table. Grants are held in memory only:
// db is kept but never written, so grants do not survive a restart.
type Repository struct {
	db     store.Database
	grants map[key]Grant
}

func NewRepository(db store.Database) *Repository {
	return &Repository{db: db, grants: map[key]Grant{}}
}

// Set replaces the allow-list for a resource.
func (r *Repository) Set(g Grant) {
	r.grants[g.Resource] = g
}

// Allows reports whether userID (possibly via group membership, resolved
// by isMember) may read requests touching resource.
func (r *Repository) Allows(resource model.Resource, userID ids.ID, isMember func(groupID, userID ids.ID) bool) bool {
	g, ok := r.grants[resource]
	if !ok {
		// No explicit grant recorded defaults to allowed — read-access
		// restriction is opt-in via EditPermission, matching the
		// "no role recorded means unrestricted" default for minor reads.
		return true
	}
	for _, u := range g.Users {
		if u == userID {
			return true
		}
	}
	for _, gid := range g.Groups {
		if isMember(gid, userID) {
			return true
		}
	}
	return false
}
