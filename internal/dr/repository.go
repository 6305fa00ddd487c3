package dr

import (
	"ctrlplane/internal/ids"
	"ctrlplane/internal/store"
)

// singletonID is the fixed key under which the committee's one-record
// state (committee roster, status, last result) is stored — each gets its
// own stable map per §6's "each entity family maps to a dedicated stable
// map under a distinct memory id", so a singleton is just a map with one
// well-known key instead of a special-cased record type.
var singletonID = ids.ID{}

// repository owns the committee's persisted state: the roster, the
// recovery-status guard, the last result, and one open proposal per
// member.
type repository struct {
	committee  *store.Map[Committee]
	status     *store.Map[RecoveryStatus]
	lastResult *store.Map[RecoveryResult]
	proposals  *store.Map[OpenProposal]
	accounts   *store.Map[[]AccountSnapshot]
	assets     *store.Map[[]AssetSnapshot]
}

func newRepository(db store.Database) *repository {
	return &repository{
		committee:  store.NewMap[Committee](db, "dr_committee"),
		status:     store.NewMap[RecoveryStatus](db, "dr_status"),
		lastResult: store.NewMap[RecoveryResult](db, "dr_last_result"),
		proposals:  store.NewMap[OpenProposal](db, "dr_open_proposal"),
		accounts:   store.NewMap[[]AccountSnapshot](db, "dr_accounts"),
		assets:     store.NewMap[[]AssetSnapshot](db, "dr_assets"),
	}
}

func (r *repository) getAccounts() ([]AccountSnapshot, error) {
	a, ok, err := r.accounts.Get(singletonID)
	if err != nil || !ok {
		return nil, err
	}
	return *a, nil
}

func (r *repository) putAccounts(a []AccountSnapshot) error {
	return r.accounts.Put(singletonID, &a)
}

func (r *repository) getAssets() ([]AssetSnapshot, error) {
	a, ok, err := r.assets.Get(singletonID)
	if err != nil || !ok {
		return nil, err
	}
	return *a, nil
}

func (r *repository) putAssets(a []AssetSnapshot) error {
	return r.assets.Put(singletonID, &a)
}

func (r *repository) getCommittee() (Committee, error) {
	c, ok, err := r.committee.Get(singletonID)
	if err != nil {
		return Committee{}, err
	}
	if !ok {
		return Committee{}, nil
	}
	return *c, nil
}

func (r *repository) putCommittee(c Committee) error {
	return r.committee.Put(singletonID, &c)
}

func (r *repository) getStatus() (RecoveryStatus, error) {
	s, ok, err := r.status.Get(singletonID)
	if err != nil {
		return RecoveryStatus{}, err
	}
	if !ok {
		return RecoveryStatus{Kind: RecoveryIdle}, nil
	}
	return *s, nil
}

func (r *repository) putStatus(s RecoveryStatus) error {
	return r.status.Put(singletonID, &s)
}

func (r *repository) getLastResult() (*RecoveryResult, error) {
	res, ok, err := r.lastResult.Get(singletonID)
	if err != nil || !ok {
		return nil, err
	}
	return res, nil
}

func (r *repository) putLastResult(res RecoveryResult) error {
	return r.lastResult.Put(singletonID, &res)
}

func (r *repository) putProposal(p OpenProposal) error {
	return r.proposals.Put(p.Member, &p)
}

func (r *repository) deleteProposal(member ids.ID) error {
	return r.proposals.Delete(member)
}

func (r *repository) allProposals() ([]OpenProposal, error) {
	raw, err := r.proposals.All()
	if err != nil {
		return nil, err
	}
	out := make([]OpenProposal, len(raw))
	for i, p := range raw {
		out[i] = *p
	}
	return out, nil
}
