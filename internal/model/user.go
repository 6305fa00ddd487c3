package model

import "ctrlplane/internal/ids"

// UserStatus marks whether a user counts toward quorum (§3).
type UserStatus string

const (
	UserActive   UserStatus = "Active"
	UserInactive UserStatus = "Inactive"
)

// User is a member of the organization able to create requests, approve
// them, and be named in policy rule leaves (§3).
type User struct {
	ID         ids.ID
	Name       string
	Identities []string // opaque principals; identity resolution is an external collaborator per §1
	GroupIDs   []ids.ID
	Status     UserStatus
}

// Active reports whether the user counts toward any quorum calculation.
func (u *User) Active() bool { return u.Status == UserActive }

// InGroup reports membership in the given group.
func (u *User) InGroup(groupID ids.ID) bool {
	for _, g := range u.GroupIDs {
		if g == groupID {
			return true
		}
	}
	return false
}

// UserGroup is a named collection of users (§3).
type UserGroup struct {
	ID   ids.ID
	Name string
}

// Reserved group ids seeded at initialization (§3).
var (
	AdminGroupID    = ids.ID{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01}
	OperatorGroupID = ids.ID{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02}
)

const (
	AdminGroupName    = "ADMIN"
	OperatorGroupName = "OPERATOR"
)
