package request

import (
	"ctrlplane/internal/apperr"
	"ctrlplane/internal/ids"
	"ctrlplane/internal/index"
	"ctrlplane/internal/model"
	"ctrlplane/internal/store"
)

// PolicyRepository owns RequestPolicy and NamedRule stable maps plus the
// resource-keyed policy index (§4.3 "Matching index").
type PolicyRepository struct {
	policies   *store.Map[model.RequestPolicy]
	namedRules *store.Map[model.NamedRule]
	byResource *index.Set
	byRuleName *index.Set
}

func NewPolicyRepository(db store.Database) *PolicyRepository {
	return &PolicyRepository{
		policies:   store.NewMap[model.RequestPolicy](db, "policy"),
		namedRules: store.NewMap[model.NamedRule](db, "named_rule"),
		byResource: index.NewSet(db, "policy_by_resource"),
		byRuleName: index.NewSet(db, "named_rule_by_name"),
	}
}

// PutPolicy inserts or updates a RequestPolicy, maintaining the resource
// index per §5's "save_entry_indexes(new, old_opt)" contract.
func (r *PolicyRepository) PutPolicy(p *model.RequestPolicy) error {
	old, existed, err := r.policies.Get(p.ID)
	if err != nil {
		return err
	}
	var oldKeys [][]byte
	if existed {
		oldKeys = [][]byte{encodeResource(old.Specifier.Resource)}
	}
	newKeys := [][]byte{encodeResource(p.Specifier.Resource)}
	if err := r.byResource.Reindex(p.ID, oldKeys, newKeys); err != nil {
		return err
	}
	return r.policies.Put(p.ID, p)
}

func (r *PolicyRepository) GetPolicy(id ids.ID) (*model.RequestPolicy, bool, error) {
	return r.policies.Get(id)
}

func (r *PolicyRepository) DeletePolicy(id ids.ID) error {
	old, existed, err := r.policies.Get(id)
	if err != nil {
		return err
	}
	if existed {
		if err := r.byResource.Reindex(id, [][]byte{encodeResource(old.Specifier.Resource)}, nil); err != nil {
			return err
		}
	}
	return r.policies.Delete(id)
}

// PoliciesForResource returns every policy whose specifier resource exactly
// matches r — the point lookup half of §4.3's "exact-match entries plus a
// wildcard lookup".
func (r *PolicyRepository) PoliciesForResource(res model.Resource) ([]*model.RequestPolicy, error) {
	policyIDs, err := r.byResource.Lookup(encodeResource(res))
	if err != nil {
		return nil, err
	}
	out := make([]*model.RequestPolicy, 0, len(policyIDs))
	for _, id := range policyIDs {
		p, ok, err := r.policies.Get(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// PoliciesForResources is PoliciesForResource over the resource set an
// operation declares, deduplicated by policy id.
func (r *PolicyRepository) PoliciesForResources(resources []model.Resource) ([]*model.RequestPolicy, error) {
	seen := map[ids.ID]bool{}
	var out []*model.RequestPolicy
	for _, res := range resources {
		matches, err := r.PoliciesForResource(res)
		if err != nil {
			return nil, err
		}
		for _, p := range matches {
			if !seen[p.ID] {
				seen[p.ID] = true
				out = append(out, p)
			}
		}
	}
	return out, nil
}

// PutNamedRule inserts or updates a NamedRule, rejecting the write if its
// rule tree would introduce a reference cycle (§3, §4.1, Property 7).
func (r *PolicyRepository) PutNamedRule(nr *model.NamedRule) error {
	if err := r.checkAcyclic(nr.ID, nr.Rule); err != nil {
		return err
	}
	old, existed, err := r.namedRules.Get(nr.ID)
	if err != nil {
		return err
	}
	var oldKeys [][]byte
	if existed {
		oldKeys = [][]byte{[]byte(old.Name)}
	}
	if err := r.byRuleName.Reindex(nr.ID, oldKeys, [][]byte{[]byte(nr.Name)}); err != nil {
		return err
	}
	return r.namedRules.Put(nr.ID, nr)
}

func (r *PolicyRepository) GetNamedRule(id ids.ID) (*model.NamedRule, bool, error) {
	return r.namedRules.Get(id)
}

func (r *PolicyRepository) DeleteNamedRule(id ids.ID) error {
	old, existed, err := r.namedRules.Get(id)
	if err != nil {
		return err
	}
	if existed {
		if err := r.byRuleName.Reindex(id, [][]byte{[]byte(old.Name)}, nil); err != nil {
			return err
		}
	}
	return r.namedRules.Delete(id)
}

// checkAcyclic walks the rule tree being inserted as selfID, following any
// NamedRule references through the already-persisted graph, and fails if
// the walk ever revisits selfID (§3 "Reference graphs must be acyclic").
func (r *PolicyRepository) checkAcyclic(selfID ids.ID, rule model.Rule) error {
	visited := map[ids.ID]bool{selfID: true}
	return r.walk(rule, visited)
}

func (r *PolicyRepository) walk(rule model.Rule, visited map[ids.ID]bool) error {
	switch rule.Kind {
	case model.RuleAnd, model.RuleOr:
		for _, c := range rule.Children {
			if err := r.walk(c, visited); err != nil {
				return err
			}
		}
	case model.RuleNot:
		if rule.Inner != nil {
			return r.walk(*rule.Inner, visited)
		}
	case model.RuleNamedRule:
		if visited[rule.NamedRuleID] {
			return apperr.NewCyclicReference("named rule reference cycle detected")
		}
		resolved, ok, err := r.namedRules.Get(rule.NamedRuleID)
		if err != nil {
			return err
		}
		if !ok {
			return nil // dangling reference is a runtime evaluator concern, not an insert-time error
		}
		visited[rule.NamedRuleID] = true
		defer delete(visited, rule.NamedRuleID)
		return r.walk(resolved.Rule, visited)
	}
	return nil
}
