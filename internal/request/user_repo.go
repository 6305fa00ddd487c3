package request

import (
	"ctrlplane/internal/apperr"
	"ctrlplane/internal/ids"
	"ctrlplane/internal/index"
	"ctrlplane/internal/model"
	"ctrlplane/internal/store"
)

// UserRepository owns the User and UserGroup stable maps plus the
// identity-to-user index. An identity is a back-reference to User and
// never owns it; removing it from a user must be all-or-none (§3
// "Ownership").
type UserRepository struct {
	users      *store.Map[model.User]
	groups     *store.Map[model.UserGroup]
	byIdentity *index.Set
}

func NewUserRepository(db store.Database) *UserRepository {
	return &UserRepository{
		users:      store.NewMap[model.User](db, "user"),
		groups:     store.NewMap[model.UserGroup](db, "user_group"),
		byIdentity: index.NewSet(db, "user_by_identity"),
	}
}

// PutUser inserts or updates a user, maintaining the identity index and
// rejecting writes that would let two users share one identity (§3: "An
// identity maps to at most one user").
func (r *UserRepository) PutUser(u *model.User) error {
	for _, identity := range u.Identities {
		holders, err := r.byIdentity.Lookup(index.EncodeString(identity))
		if err != nil {
			return err
		}
		for _, holder := range holders {
			if holder != u.ID {
				return apperr.NewValidation("identity already bound to another user", "identity", identity)
			}
		}
	}

	old, existed, err := r.users.Get(u.ID)
	if err != nil {
		return err
	}
	var oldKeys [][]byte
	if existed {
		for _, identity := range old.Identities {
			oldKeys = append(oldKeys, index.EncodeString(identity))
		}
	}
	var newKeys [][]byte
	for _, identity := range u.Identities {
		newKeys = append(newKeys, index.EncodeString(identity))
	}
	if err := r.byIdentity.Reindex(u.ID, oldKeys, newKeys); err != nil {
		return err
	}
	return r.users.Put(u.ID, u)
}

func (r *UserRepository) GetUser(id ids.ID) (*model.User, bool, error) {
	return r.users.Get(id)
}

func (r *UserRepository) UserByIdentity(identity string) (*model.User, bool, error) {
	holders, err := r.byIdentity.Lookup(index.EncodeString(identity))
	if err != nil || len(holders) == 0 {
		return nil, false, err
	}
	return r.users.Get(holders[0])
}

func (r *UserRepository) AllUsers() ([]*model.User, error) {
	return r.users.All()
}

// ActiveUsersInGroup returns the active users belonging to groupID.
func (r *UserRepository) ActiveUsersInGroup(groupID ids.ID) ([]ids.ID, error) {
	all, err := r.users.All()
	if err != nil {
		return nil, err
	}
	var out []ids.ID
	for _, u := range all {
		if u.Active() && u.InGroup(groupID) {
			out = append(out, u.ID)
		}
	}
	return out, nil
}

// ActiveUsers returns every active user id in the system.
func (r *UserRepository) ActiveUsers() ([]ids.ID, error) {
	all, err := r.users.All()
	if err != nil {
		return nil, err
	}
	var out []ids.ID
	for _, u := range all {
		if u.Active() {
			out = append(out, u.ID)
		}
	}
	return out, nil
}

func (r *UserRepository) PutGroup(g *model.UserGroup) error {
	return r.groups.Put(g.ID, g)
}

func (r *UserRepository) GetGroup(id ids.ID) (*model.UserGroup, bool, error) {
	return r.groups.Get(id)
}

// SeedDefaultGroups creates the two reserved groups required at
// initialization (§3).
func (r *UserRepository) SeedDefaultGroups() error {
	if err := r.PutGroup(&model.UserGroup{ID: model.AdminGroupID, Name: model.AdminGroupName}); err != nil {
		return err
	}
	return r.PutGroup(&model.UserGroup{ID: model.OperatorGroupID, Name: model.OperatorGroupName})
}
