package request

import (
	"ctrlplane/internal/addressbook"
	"ctrlplane/internal/ids"
	"ctrlplane/internal/model"
	"ctrlplane/internal/policy"
)

// requestWorld adapts the repositories into the read-only policy.World the
// evaluator needs, scoped to a single request so Destination() can answer
// from that request's operation (§4.4).
type requestWorld struct {
	users     *UserRepository
	policies  *PolicyRepository
	addresses *addressbook.Repository
	req       *model.Request
}

func newRequestWorld(users *UserRepository, policies *PolicyRepository, addresses *addressbook.Repository, req *model.Request) *requestWorld {
	return &requestWorld{users: users, policies: policies, addresses: addresses, req: req}
}

func (w *requestWorld) ActiveUsersMatching(spec model.UserSpec) []ids.ID {
	switch spec.Kind {
	case model.UserSpecAny:
		out, _ := w.users.ActiveUsers()
		return out
	case model.UserSpecID:
		var out []ids.ID
		for _, id := range spec.UserIDs {
			u, ok, err := w.users.GetUser(id)
			if err == nil && ok && u.Active() {
				out = append(out, id)
			}
		}
		return out
	case model.UserSpecGroup:
		seen := map[ids.ID]bool{}
		var out []ids.ID
		for _, g := range spec.GroupIDs {
			members, err := w.users.ActiveUsersInGroup(g)
			if err != nil {
				continue
			}
			for _, m := range members {
				if !seen[m] {
					seen[m] = true
					out = append(out, m)
				}
			}
		}
		return out
	default:
		return nil
	}
}

func (w *requestWorld) IsActiveMember(spec model.UserSpec, candidate ids.ID) bool {
	u, ok, err := w.users.GetUser(candidate)
	if err != nil || !ok || !u.Active() {
		return false
	}
	switch spec.Kind {
	case model.UserSpecAny:
		return true
	case model.UserSpecID:
		for _, id := range spec.UserIDs {
			if id == candidate {
				return true
			}
		}
		return false
	case model.UserSpecGroup:
		for _, g := range spec.GroupIDs {
			if u.InGroup(g) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (w *requestWorld) ResolveNamedRule(id ids.ID) (model.Rule, bool) {
	nr, ok, err := w.policies.GetNamedRule(id)
	if err != nil || !ok {
		return model.Rule{}, false
	}
	return nr.Rule, true
}

func (w *requestWorld) Destination() (string, bool) {
	if t, ok := w.req.Operation.(model.TransferOperation); ok {
		return t.Destination, true
	}
	return "", false
}

func (w *requestWorld) AddressBookAllowed(address, key, value string) bool {
	return w.addresses.Allowed(address, key, value)
}

var _ policy.World = (*requestWorld)(nil)
