// Package policy implements the recursive rule interpreter: the same Rule
// tree evaluated in three distinct modes (status, possible-approvers,
// approval-rights) through a common dispatch. Modeled on native/governance's
// tally logic (quorum/threshold accounting) and native/escrow's
// arbitrator-committee threshold scheme.
package policy

import (
	"ctrlplane/internal/ids"
	"ctrlplane/internal/model"
)

// World is the read-only view of system state the evaluator needs: rule
// evaluation is a pure function of (request, rule, world) where world is
// read-only.
type World interface {
	// ActiveUsersMatching expands a UserSpec to the set of currently
	// active users it names: Any -> every active user in the system,
	// Id -> the subset of the listed ids that are active, Group -> the
	// active members of the listed groups.
	ActiveUsersMatching(spec model.UserSpec) []ids.ID

	// IsActiveMember reports whether candidate is active and matches spec
	// (used by approval-rights mode without materializing the full set).
	IsActiveMember(spec model.UserSpec, candidate ids.ID) bool

	// ResolveNamedRule follows a NamedRule(id) reference.
	ResolveNamedRule(id ids.ID) (model.Rule, bool)

	// Destination returns the request's transfer destination address, if
	// the request's operation names one.
	Destination() (address string, ok bool)

	// AddressBookAllowed reports whether address is present in the address
	// book, optionally restricted to an entry carrying (key, value) in its
	// metadata when key is non-empty.
	AddressBookAllowed(address, key, value string) bool
}
