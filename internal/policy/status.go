package policy

import (
	"log/slog"
	"math"

	"ctrlplane/internal/ids"
	"ctrlplane/internal/model"
)

// MaxRecursionDepth bounds NamedRule indirection, per §4.4 ("recommended 16").
const MaxRecursionDepth = 16

// statusCtx threads the visited-set and depth counter through a single
// evaluation call so named-rule cycles cannot wedge the engine (§4.4,
// §9 "Cyclic graphs").
type statusCtx struct {
	world   World
	visited map[ids.ID]bool
	depth   int
}

// EvaluateStatus runs status mode (§4.1 semantics): it returns the tri-state
// outcome plus a parallel tree of sub-results for observability.
func EvaluateStatus(req *model.Request, rule model.Rule, world World) (model.Outcome, model.RuleResult) {
	ctx := &statusCtx{world: world, visited: map[ids.ID]bool{}}
	return ctx.eval(req, rule)
}

func (c *statusCtx) eval(req *model.Request, rule model.Rule) (model.Outcome, model.RuleResult) {
	if c.depth > MaxRecursionDepth {
		slog.Debug("policy: recursion depth exceeded", "kind", rule.Kind)
		return model.OutcomeRejected, model.RuleResult{Rule: rule, Outcome: model.OutcomeRejected}
	}

	switch rule.Kind {
	case model.RuleAutoApproved:
		return model.OutcomeApproved, model.RuleResult{Rule: rule, Outcome: model.OutcomeApproved}

	case model.RuleAllowListed:
		return c.evalAllowListed(rule)

	case model.RuleAllowListedByMetadata:
		return c.evalAllowListed(rule)

	case model.RuleQuorum:
		return c.evalQuorum(req, rule, int(rule.N))

	case model.RuleQuorumPercentage:
		return c.evalQuorumPercentage(req, rule)

	case model.RuleAnd:
		return c.evalAnd(req, rule)

	case model.RuleOr:
		return c.evalOr(req, rule)

	case model.RuleNot:
		return c.evalNot(req, rule)

	case model.RuleNamedRule:
		return c.evalNamedRule(req, rule)

	default:
		slog.Debug("policy: unknown rule kind, treating as rejected", "kind", rule.Kind)
		return model.OutcomeRejected, model.RuleResult{Rule: rule, Outcome: model.OutcomeRejected}
	}
}

func (c *statusCtx) evalAllowListed(rule model.Rule) (model.Outcome, model.RuleResult) {
	dest, ok := c.world.Destination()
	if !ok {
		return model.OutcomeRejected, model.RuleResult{Rule: rule, Outcome: model.OutcomeRejected}
	}
	allowed := c.world.AddressBookAllowed(dest, rule.MetadataKey, rule.MetadataValue)
	outcome := model.OutcomeRejected
	if allowed {
		outcome = model.OutcomeApproved
	}
	return outcome, model.RuleResult{Rule: rule, Outcome: outcome}
}

func (c *statusCtx) evalQuorum(req *model.Request, rule model.Rule, rawRequired int) (model.Outcome, model.RuleResult) {
	eligible := c.world.ActiveUsersMatching(rule.UserSpec)
	approvedCount, rejectedCount := tally(req, eligible)

	e := len(eligible)
	// min(N, max(1,|E|)) per spec: the effective threshold never exceeds
	// max(1,|E|), and a misconfigured N>|E| degrades to that clamp rather
	// than becoming unreachable (§4.1, Property 8).
	required := minInt(rawRequired, maxInt(1, e))
	if required < 1 {
		required = 1
	}

	outcome := model.OutcomePending
	if approvedCount >= required {
		outcome = model.OutcomeApproved
	} else if e-rejectedCount < required {
		outcome = model.OutcomeRejected
	}

	return outcome, model.RuleResult{
		Rule:     rule,
		Outcome:  outcome,
		Eligible: e,
		Approved: approvedCount,
		Rejected: rejectedCount,
		Required: required,
	}
}

func (c *statusCtx) evalQuorumPercentage(req *model.Request, rule model.Rule) (model.Outcome, model.RuleResult) {
	eligible := c.world.ActiveUsersMatching(rule.UserSpec)
	e := len(eligible)

	raw := int(math.Ceil(float64(rule.Percent) * float64(e) / 100.0))
	if raw < 1 {
		raw = 1
	}
	if e > 0 && raw > e {
		raw = e
	}

	return c.evalQuorum(req, rule, raw)
}

func (c *statusCtx) evalAnd(req *model.Request, rule model.Rule) (model.Outcome, model.RuleResult) {
	children := make([]model.RuleResult, len(rule.Children))
	anyRejected := false
	allApproved := true
	for i, child := range rule.Children {
		out, res := c.eval(req, child)
		children[i] = res
		if out == model.OutcomeRejected {
			anyRejected = true
		}
		if out != model.OutcomeApproved {
			allApproved = false
		}
	}
	outcome := model.OutcomePending
	switch {
	case anyRejected:
		outcome = model.OutcomeRejected
	case allApproved:
		outcome = model.OutcomeApproved
	}
	return outcome, model.RuleResult{Rule: rule, Outcome: outcome, Children: children}
}

func (c *statusCtx) evalOr(req *model.Request, rule model.Rule) (model.Outcome, model.RuleResult) {
	children := make([]model.RuleResult, len(rule.Children))
	anyApproved := false
	allRejected := true
	for i, child := range rule.Children {
		out, res := c.eval(req, child)
		children[i] = res
		if out == model.OutcomeApproved {
			anyApproved = true
		}
		if out != model.OutcomeRejected {
			allRejected = false
		}
	}
	outcome := model.OutcomePending
	switch {
	case anyApproved:
		outcome = model.OutcomeApproved
	case allRejected:
		outcome = model.OutcomeRejected
	}
	return outcome, model.RuleResult{Rule: rule, Outcome: outcome, Children: children}
}

func (c *statusCtx) evalNot(req *model.Request, rule model.Rule) (model.Outcome, model.RuleResult) {
	if rule.Inner == nil {
		return model.OutcomeRejected, model.RuleResult{Rule: rule, Outcome: model.OutcomeRejected}
	}
	out, res := c.eval(req, *rule.Inner)
	outcome := out
	switch out {
	case model.OutcomeApproved:
		outcome = model.OutcomeRejected
	case model.OutcomeRejected:
		outcome = model.OutcomeApproved
	}
	return outcome, model.RuleResult{Rule: rule, Outcome: outcome, Children: []model.RuleResult{res}}
}

func (c *statusCtx) evalNamedRule(req *model.Request, rule model.Rule) (model.Outcome, model.RuleResult) {
	if c.visited[rule.NamedRuleID] {
		slog.Debug("policy: named rule cycle detected", "id", rule.NamedRuleID)
		return model.OutcomeRejected, model.RuleResult{Rule: rule, Outcome: model.OutcomeRejected}
	}
	resolved, ok := c.world.ResolveNamedRule(rule.NamedRuleID)
	if !ok {
		slog.Debug("policy: named rule missing", "id", rule.NamedRuleID)
		return model.OutcomeRejected, model.RuleResult{Rule: rule, Outcome: model.OutcomeRejected}
	}
	c.visited[rule.NamedRuleID] = true
	c.depth++
	defer func() { c.depth--; delete(c.visited, rule.NamedRuleID) }()
	out, res := c.eval(req, resolved)
	return out, model.RuleResult{Rule: rule, Outcome: out, Children: []model.RuleResult{res}}
}

// tally counts, among eligible, how many have an Approved or Rejected
// approval recorded on the request.
func tally(req *model.Request, eligible []ids.ID) (approved, rejected int) {
	eligibleSet := make(map[ids.ID]bool, len(eligible))
	for _, id := range eligible {
		eligibleSet[id] = true
	}
	for _, a := range req.Approvals {
		if !eligibleSet[a.ApproverID] {
			continue
		}
		switch a.Status {
		case model.ApprovalApproved:
			approved++
		case model.ApprovalRejected:
			rejected++
		}
	}
	return
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
