package model

import "ctrlplane/internal/ids"

// UserSpecKind selects which form a UserSpec takes (§4.1).
type UserSpecKind string

const (
	UserSpecAny   UserSpecKind = "Any"
	UserSpecID    UserSpecKind = "Id"
	UserSpecGroup UserSpecKind = "Group"
)

// UserSpec names the set of users eligible to act on a Quorum* rule leaf.
type UserSpec struct {
	Kind     UserSpecKind
	UserIDs  []ids.ID
	GroupIDs []ids.ID
}

func AnyUser() UserSpec { return UserSpec{Kind: UserSpecAny} }

func UsersByID(ids_ ...ids.ID) UserSpec {
	return UserSpec{Kind: UserSpecID, UserIDs: append([]ids.ID(nil), ids_...)}
}

func UsersByGroup(groupIDs ...ids.ID) UserSpec {
	return UserSpec{Kind: UserSpecGroup, GroupIDs: append([]ids.ID(nil), groupIDs...)}
}

// RuleKind enumerates the recursive rule-tree operators (§4.1).
type RuleKind string

const (
	RuleQuorum                RuleKind = "Quorum"
	RuleQuorumPercentage      RuleKind = "QuorumPercentage"
	RuleAllowListed           RuleKind = "AllowListed"
	RuleAllowListedByMetadata RuleKind = "AllowListedByMetadata"
	RuleAnd                   RuleKind = "And"
	RuleOr                    RuleKind = "Or"
	RuleNot                   RuleKind = "Not"
	RuleAutoApproved          RuleKind = "AutoApproved"
	RuleNamedRule             RuleKind = "NamedRule"
)

// Rule is the recursive sum type from §4.1. Only the fields relevant to
// Kind are populated; unused fields stay zero-valued the way a tagged
// union's inactive variants would.
type Rule struct {
	Kind RuleKind

	// Quorum / QuorumPercentage
	UserSpec UserSpec
	N        uint32 // Quorum: raw required count
	Percent  uint32 // QuorumPercentage: P in [0,100]

	// AllowListedByMetadata
	MetadataKey   string
	MetadataValue string

	// And / Or
	Children []Rule

	// Not
	Inner *Rule

	// NamedRule
	NamedRuleID ids.ID
}

func Quorum(spec UserSpec, n uint32) Rule {
	return Rule{Kind: RuleQuorum, UserSpec: spec, N: n}
}

func QuorumPercentage(spec UserSpec, percent uint32) Rule {
	return Rule{Kind: RuleQuorumPercentage, UserSpec: spec, Percent: percent}
}

func AllowListed() Rule { return Rule{Kind: RuleAllowListed} }

func AllowListedByMetadata(key, value string) Rule {
	return Rule{Kind: RuleAllowListedByMetadata, MetadataKey: key, MetadataValue: value}
}

func And(children ...Rule) Rule { return Rule{Kind: RuleAnd, Children: children} }

func Or(children ...Rule) Rule { return Rule{Kind: RuleOr, Children: children} }

func NotRule(inner Rule) Rule { return Rule{Kind: RuleNot, Inner: &inner} }

func AutoApproved() Rule { return Rule{Kind: RuleAutoApproved} }

func NamedRuleRef(id ids.ID) Rule { return Rule{Kind: RuleNamedRule, NamedRuleID: id} }

// Specifier picks which requests a RequestPolicy applies to. A request
// matches a policy when one of the request's operation Resources() equals
// the policy's specifier Resource — the point/wildcard lookup described
// in §4.3.
type Specifier struct {
	Resource Resource
}

// RequestPolicy attaches an approval Rule to a class of requests (§3).
type RequestPolicy struct {
	ID        ids.ID
	Specifier Specifier
	Rule      Rule
}

// NamedRule is a shared rule stored once and referenced by id from other
// rules via NamedRuleRef (§3).
type NamedRule struct {
	ID   ids.ID
	Name string
	Rule Rule
}
