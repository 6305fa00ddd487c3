package policy

import (
	"ctrlplane/internal/ids"
	"ctrlplane/internal/model"
)

// ApproversResult is the output of possible-approvers mode (§4.4 mode 2):
// the raw spec-level sets named by a rule tree's Quorum*/NamedRule leaves,
// before group ids are expanded to member users.
type ApproversResult struct {
	MatchAll bool
	Users    map[ids.ID]bool
	Groups   map[ids.ID]bool
}

func newApproversResult() ApproversResult {
	return ApproversResult{Users: map[ids.ID]bool{}, Groups: map[ids.ID]bool{}}
}

func (r *ApproversResult) merge(other ApproversResult) {
	if other.MatchAll {
		r.MatchAll = true
	}
	for id := range other.Users {
		r.Users[id] = true
	}
	for id := range other.Groups {
		r.Groups[id] = true
	}
}

// PossibleApprovers runs possible-approvers mode: the union, across the
// rule tree's Quorum*/NamedRule leaves, of the UserSpec expansions. Used to
// populate the "who can act" notification surface (§4.4).
func PossibleApprovers(req *model.Request, rule model.Rule, world World) ApproversResult {
	ctx := &statusCtx{world: world, visited: map[ids.ID]bool{}}
	return ctx.possibleApprovers(req, rule)
}

func (c *statusCtx) possibleApprovers(req *model.Request, rule model.Rule) ApproversResult {
	if c.depth > MaxRecursionDepth {
		return newApproversResult()
	}

	switch rule.Kind {
	case model.RuleQuorum, model.RuleQuorumPercentage:
		result := newApproversResult()
		switch rule.UserSpec.Kind {
		case model.UserSpecAny:
			result.MatchAll = true
		case model.UserSpecID:
			for _, u := range rule.UserSpec.UserIDs {
				result.Users[u] = true
			}
		case model.UserSpecGroup:
			for _, g := range rule.UserSpec.GroupIDs {
				result.Groups[g] = true
			}
		}
		return result

	case model.RuleAnd, model.RuleOr:
		result := newApproversResult()
		for _, child := range rule.Children {
			if result.MatchAll {
				break
			}
			result.merge(c.possibleApprovers(req, child))
		}
		return result

	case model.RuleNot:
		if rule.Inner == nil {
			return newApproversResult()
		}
		return c.possibleApprovers(req, *rule.Inner)

	case model.RuleNamedRule:
		if c.visited[rule.NamedRuleID] {
			return newApproversResult()
		}
		resolved, ok := c.world.ResolveNamedRule(rule.NamedRuleID)
		if !ok {
			return newApproversResult()
		}
		c.visited[rule.NamedRuleID] = true
		c.depth++
		defer func() { c.depth--; delete(c.visited, rule.NamedRuleID) }()
		return c.possibleApprovers(req, resolved)

	default: // AutoApproved, AllowListed, AllowListedByMetadata
		return newApproversResult()
	}
}

// Materialize expands an ApproversResult's group ids into active member
// users, filtering out the requester.
func Materialize(result ApproversResult, world World, requesterID ids.ID) []ids.ID {
	if result.MatchAll {
		all := world.ActiveUsersMatching(model.AnyUser())
		return excludeUser(all, requesterID)
	}
	set := map[ids.ID]bool{}
	for u := range result.Users {
		set[u] = true
	}
	for g := range result.Groups {
		for _, u := range world.ActiveUsersMatching(model.UsersByGroup(g)) {
			set[u] = true
		}
	}
	delete(set, requesterID)
	out := make([]ids.ID, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	return out
}

func excludeUser(users []ids.ID, exclude ids.ID) []ids.ID {
	out := make([]ids.ID, 0, len(users))
	for _, u := range users {
		if u != exclude {
			out = append(out, u)
		}
	}
	return out
}

// HasApprovalRights runs approval-rights mode (§4.4 mode 3): does candidate
// belong to any Quorum*/NamedRule-resolved leaf's eligibility set. Other
// leaves never admit a user action.
func HasApprovalRights(req *model.Request, rule model.Rule, candidate ids.ID, world World) bool {
	ctx := &statusCtx{world: world, visited: map[ids.ID]bool{}}
	return ctx.hasApprovalRights(req, rule, candidate)
}

func (c *statusCtx) hasApprovalRights(req *model.Request, rule model.Rule, candidate ids.ID) bool {
	if c.depth > MaxRecursionDepth {
		return false
	}

	switch rule.Kind {
	case model.RuleQuorum, model.RuleQuorumPercentage:
		return c.world.IsActiveMember(rule.UserSpec, candidate)

	case model.RuleAnd, model.RuleOr:
		for _, child := range rule.Children {
			if c.hasApprovalRights(req, child, candidate) {
				return true
			}
		}
		return false

	case model.RuleNot:
		if rule.Inner == nil {
			return false
		}
		return c.hasApprovalRights(req, *rule.Inner, candidate)

	case model.RuleNamedRule:
		if c.visited[rule.NamedRuleID] {
			return false
		}
		resolved, ok := c.world.ResolveNamedRule(rule.NamedRuleID)
		if !ok {
			return false
		}
		c.visited[rule.NamedRuleID] = true
		c.depth++
		defer func() { c.depth--; delete(c.visited, rule.NamedRuleID) }()
		return c.hasApprovalRights(req, resolved, candidate)

	default: // AutoApproved, AllowListed, AllowListedByMetadata
		return false
	}
}

// AggregateRequestOutcome implements §4.1 "Aggregation across policies":
// Approved if any policy is Approved; else Rejected if every policy is
// Rejected; else Pending. Zero matching policies is default-deny.
func AggregateRequestOutcome(outcomes []model.Outcome) model.Outcome {
	if len(outcomes) == 0 {
		return model.OutcomeRejected
	}
	allRejected := true
	for _, o := range outcomes {
		if o == model.OutcomeApproved {
			return model.OutcomeApproved
		}
		if o != model.OutcomeRejected {
			allRejected = false
		}
	}
	if allRejected {
		return model.OutcomeRejected
	}
	return model.OutcomePending
}
