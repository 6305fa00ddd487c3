package request

import (
	"ctrlplane/internal/ids"
	"ctrlplane/internal/index"
	"ctrlplane/internal/model"
	"ctrlplane/internal/store"
)

// Repository owns the Request stable map and its secondary indexes (§3 L1,
// §4.5 filters): by status, by requester, by approver, by resource, by
// created-at, by expiration, and by scheduled-at (for the scheduled-request
// executor job, §5).
type Repository struct {
	requests *store.Map[model.Request]

	byStatus     *index.Set
	byRequester  *index.Set
	byApprover   *index.Set
	byResource   *index.Set
	byCreatedAt  *index.Set
	byExpiration *index.Set
	byScheduled  *index.Set
}

func NewRepository(db store.Database) *Repository {
	return &Repository{
		requests:     store.NewMap[model.Request](db, "request"),
		byStatus:     index.NewSet(db, "request_by_status"),
		byRequester:  index.NewSet(db, "request_by_requester"),
		byApprover:   index.NewSet(db, "request_by_approver"),
		byResource:   index.NewSet(db, "request_by_resource"),
		byCreatedAt:  index.NewSet(db, "request_by_created_at"),
		byExpiration: index.NewSet(db, "request_by_expiration"),
		byScheduled:  index.NewSet(db, "request_by_scheduled_at"),
	}
}

func approverKeys(r *model.Request) [][]byte {
	keys := make([][]byte, 0, len(r.Approvals))
	for _, a := range r.Approvals {
		keys = append(keys, index.EncodeString(a.ApproverID.String()))
	}
	return keys
}

func resourceKeys(r *model.Request) [][]byte {
	resources := r.Operation.Resources()
	keys := make([][]byte, 0, len(resources))
	for _, res := range resources {
		keys = append(keys, encodeResource(res))
	}
	return keys
}

func scheduledKey(r *model.Request) [][]byte {
	if r.Status == model.StatusScheduled && r.ExecutionPlan.Kind == model.ExecutionScheduled {
		return [][]byte{index.EncodeUint64(uint64(r.ExecutionPlan.At.UnixNano()))}
	}
	return nil
}

// Put inserts or updates a request, reindexing every secondary index via
// the symmetric-difference contract described in §5.
func (r *Repository) Put(req *model.Request) error {
	old, existed, err := r.requests.Get(req.ID)
	if err != nil {
		return err
	}

	var oldStatus, oldRequester, oldApprover, oldResource, oldCreated, oldExpiration, oldScheduled [][]byte
	if existed {
		oldStatus = [][]byte{index.EncodeString(string(old.Status))}
		oldRequester = [][]byte{index.EncodeString(old.RequestedBy.String())}
		oldApprover = approverKeys(old)
		oldResource = resourceKeys(old)
		oldCreated = [][]byte{index.EncodeUint64(uint64(old.CreatedTimestamp.UnixNano()))}
		oldExpiration = [][]byte{index.EncodeUint64(uint64(old.ExpirationDt.UnixNano()))}
		oldScheduled = scheduledKey(old)
	}

	newStatus := [][]byte{index.EncodeString(string(req.Status))}
	newRequester := [][]byte{index.EncodeString(req.RequestedBy.String())}
	newApprover := approverKeys(req)
	newResource := resourceKeys(req)
	newCreated := [][]byte{index.EncodeUint64(uint64(req.CreatedTimestamp.UnixNano()))}
	newExpiration := [][]byte{index.EncodeUint64(uint64(req.ExpirationDt.UnixNano()))}
	newScheduled := scheduledKey(req)

	if err := r.byStatus.Reindex(req.ID, oldStatus, newStatus); err != nil {
		return err
	}
	if err := r.byRequester.Reindex(req.ID, oldRequester, newRequester); err != nil {
		return err
	}
	if err := r.byApprover.Reindex(req.ID, oldApprover, newApprover); err != nil {
		return err
	}
	if err := r.byResource.Reindex(req.ID, oldResource, newResource); err != nil {
		return err
	}
	if err := r.byCreatedAt.Reindex(req.ID, oldCreated, newCreated); err != nil {
		return err
	}
	if err := r.byExpiration.Reindex(req.ID, oldExpiration, newExpiration); err != nil {
		return err
	}
	if err := r.byScheduled.Reindex(req.ID, oldScheduled, newScheduled); err != nil {
		return err
	}

	return r.requests.Put(req.ID, req)
}

func (r *Repository) Get(id ids.ID) (*model.Request, bool, error) {
	return r.requests.Get(id)
}

func (r *Repository) All() ([]*model.Request, error) {
	return r.requests.All()
}

func (r *Repository) ByStatus(status model.Status) ([]ids.ID, error) {
	return r.byStatus.Lookup(index.EncodeString(string(status)))
}

func (r *Repository) ByRequester(userID ids.ID) ([]ids.ID, error) {
	return r.byRequester.Lookup(index.EncodeString(userID.String()))
}

func (r *Repository) ByApprover(userID ids.ID) ([]ids.ID, error) {
	return r.byApprover.Lookup(index.EncodeString(userID.String()))
}

func (r *Repository) ByResource(res model.Resource) ([]ids.ID, error) {
	return r.byResource.Lookup(encodeResource(res))
}

// DueScheduled returns ids of requests scheduled at or before cutoff,
// feeding the §5 scheduled-request executor job. byScheduled keys are
// 8-byte big-endian nanosecond timestamps, which would support a true
// range scan; the primary map is small enough in practice that a direct
// scan filtered by ExecutionPlan.At is simpler and equally correct.
func (r *Repository) DueScheduled(cutoffNanos uint64) ([]ids.ID, error) {
	var out []ids.ID
	all, err := r.requests.All()
	if err != nil {
		return nil, err
	}
	for _, req := range all {
		if req.Status != model.StatusScheduled || req.ExecutionPlan.Kind != model.ExecutionScheduled {
			continue
		}
		if uint64(req.ExecutionPlan.At.UnixNano()) <= cutoffNanos {
			out = append(out, req.ID)
		}
	}
	return out, nil
}
