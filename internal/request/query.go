package request

import (
	"sort"
	"time"

	"ctrlplane/internal/ids"
	"ctrlplane/internal/model"
)

// Filter is one selection predicate in a §4.5 query clause: Select seeds
// candidates from an index, Matches verifies them (or any candidate, when
// no cheap index exists).
type Filter interface {
	Select(repo *Repository) ([]ids.ID, error)
	Matches(req *model.Request) bool
}

// StatusFilter selects requests in one of the given statuses.
type StatusFilter struct{ Statuses []model.Status }

func (f StatusFilter) Select(repo *Repository) ([]ids.ID, error) {
	seen := map[ids.ID]bool{}
	var out []ids.ID
	for _, s := range f.Statuses {
		ids_, err := repo.ByStatus(s)
		if err != nil {
			return nil, err
		}
		for _, id := range ids_ {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out, nil
}

func (f StatusFilter) Matches(req *model.Request) bool {
	for _, s := range f.Statuses {
		if req.Status == s {
			return true
		}
	}
	return false
}

// RequesterFilter selects requests created by a specific user.
type RequesterFilter struct{ UserID ids.ID }

func (f RequesterFilter) Select(repo *Repository) ([]ids.ID, error) {
	return repo.ByRequester(f.UserID)
}
func (f RequesterFilter) Matches(req *model.Request) bool { return req.RequestedBy == f.UserID }

// ApproverFilter selects requests that have (or, when Exclude is set,
// have not) received an approval from UserID (§4.5: "by (non-)approver").
type ApproverFilter struct {
	UserID  ids.ID
	Exclude bool
}

func (f ApproverFilter) Select(repo *Repository) ([]ids.ID, error) {
	if f.Exclude {
		return nil, nil // no cheap index for "has not voted"; fall back to Matches over the full scan
	}
	return repo.ByApprover(f.UserID)
}

func (f ApproverFilter) Matches(req *model.Request) bool {
	_, voted := req.ApprovalByUser(f.UserID)
	if f.Exclude {
		return !voted
	}
	return voted
}

// ResourceFilter selects requests whose operation touches res.
type ResourceFilter struct{ Resource model.Resource }

func (f ResourceFilter) Select(repo *Repository) ([]ids.ID, error) {
	return repo.ByResource(f.Resource)
}
func (f ResourceFilter) Matches(req *model.Request) bool {
	for _, r := range req.Operation.Resources() {
		if r == f.Resource {
			return true
		}
	}
	return false
}

// CreatedAtRangeFilter selects requests created within [From, To].
type CreatedAtRangeFilter struct{ From, To time.Time }

func (f CreatedAtRangeFilter) Select(repo *Repository) ([]ids.ID, error) { return nil, nil }
func (f CreatedAtRangeFilter) Matches(req *model.Request) bool {
	return !req.CreatedTimestamp.Before(f.From) && !req.CreatedTimestamp.After(f.To)
}

// ExpirationRangeFilter selects requests expiring within [From, To].
type ExpirationRangeFilter struct{ From, To time.Time }

func (f ExpirationRangeFilter) Select(repo *Repository) ([]ids.ID, error) { return nil, nil }
func (f ExpirationRangeFilter) Matches(req *model.Request) bool {
	return !req.ExpirationDt.Before(f.From) && !req.ExpirationDt.After(f.To)
}

// ExcludedIDsFilter rejects requests on an exclusion list, used by
// get_next_approvable's excluded_ids parameter (§6).
type ExcludedIDsFilter struct{ Excluded map[ids.ID]bool }

func (f ExcludedIDsFilter) Select(repo *Repository) ([]ids.ID, error) { return nil, nil }
func (f ExcludedIDsFilter) Matches(req *model.Request) bool           { return !f.Excluded[req.ID] }

// OperationKindFilter selects requests whose operation is one of Kinds.
type OperationKindFilter struct{ Kinds []model.OperationKind }

func (f OperationKindFilter) Select(repo *Repository) ([]ids.ID, error) { return nil, nil }
func (f OperationKindFilter) Matches(req *model.Request) bool {
	if len(f.Kinds) == 0 {
		return true
	}
	for _, k := range f.Kinds {
		if req.Operation.Kind() == k {
			return true
		}
	}
	return false
}

// OrFilter unions its children's Select candidates and disjoins Matches,
// per §4.5: "Composition of disjunctions is supported through an Or(filters)
// combinator".
type OrFilter struct{ Filters []Filter }

func (f OrFilter) Select(repo *Repository) ([]ids.ID, error) {
	seen := map[ids.ID]bool{}
	var out []ids.ID
	for _, child := range f.Filters {
		sub, err := child.Select(repo)
		if err != nil {
			return nil, err
		}
		if sub == nil {
			return nil, nil // an unindexed child can match anything: fall back to a full scan
		}
		for _, id := range sub {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out, nil
}

func (f OrFilter) Matches(req *model.Request) bool {
	for _, child := range f.Filters {
		if child.Matches(req) {
			return true
		}
	}
	return false
}

// SortDirection selects ascending or descending order.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

// SortStrategy names one of the §4.5 sort strategies applicable to
// requests. Ties are always broken by id, direction preserved.
type SortStrategy struct {
	Field     string // "created_at" | "expiration_dt" | "last_modification_dt"
	Direction SortDirection
}

func sortKey(req *model.Request, field string) time.Time {
	switch field {
	case "expiration_dt":
		return req.ExpirationDt
	case "last_modification_dt":
		return req.LastModificationTimestamp
	default:
		return req.CreatedTimestamp
	}
}

func applySort(items []*model.Request, s SortStrategy) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := sortKey(items[i], s.Field), sortKey(items[j], s.Field)
		if !ti.Equal(tj) {
			if s.Direction == Ascending {
				return ti.Before(tj)
			}
			return ti.After(tj)
		}
		cmp := ids.Compare(items[i].ID, items[j].ID)
		if s.Direction == Ascending {
			return cmp < 0
		}
		return cmp > 0
	})
}

// FindIDsWhere composes a conjunction of Filters (§4.5): the most selective
// Select() result seeds the candidate set (falling back to a full scan when
// no filter offers an index), then every filter's Matches verifies it.
func (repo *Repository) FindIDsWhere(filters []Filter, sortBy SortStrategy) ([]*model.Request, error) {
	var seed []ids.ID
	seeded := false
	for _, f := range filters {
		candidates, err := f.Select(repo)
		if err != nil {
			return nil, err
		}
		if candidates == nil {
			continue
		}
		if !seeded || len(candidates) < len(seed) {
			seed = candidates
			seeded = true
		}
	}

	if !seeded {
		all, err := repo.All()
		if err != nil {
			return nil, err
		}
		seed = make([]ids.ID, len(all))
		for i, r := range all {
			seed[i] = r.ID
		}
	}

	var out []*model.Request
	for _, id := range seed {
		req, ok, err := repo.Get(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		matchesAll := true
		for _, f := range filters {
			if !f.Matches(req) {
				matchesAll = false
				break
			}
		}
		if matchesAll {
			out = append(out, req)
		}
	}

	applySort(out, sortBy)
	return out, nil
}

// Paginate implements §4.5: out-of-range offsets clamp to empty, and
// next_offset reports whether more remain. defaultLimit and maxLimit come
// from the deployment's Config.DefaultPageSize/MaxPageSize; callers pass 0
// for either to fall back to 100/250.
func Paginate(items []*model.Request, offset, limit, defaultLimit, maxLimit int) (page []*model.Request, nextOffset int, hasMore bool) {
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	if maxLimit <= 0 {
		maxLimit = 250
	}

	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 || offset >= len(items) {
		return nil, offset, false
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	page = items[offset:end]
	nextOffset = offset + len(page)
	hasMore = nextOffset < len(items)
	return page, nextOffset, hasMore
}
