// Package request implements entity storage, the request lifecycle
// orchestrator, and its query layer. Modeled on native/governance's
// proposal lifecycle (create -> deposit/voting -> passed/rejected ->
// queued -> executed), generalized into a
// Created -> (Approved|Rejected|Cancelled) -> Scheduled -> Processing ->
// (Completed|Failed) machine.
package request

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"ctrlplane/internal/addressbook"
	"ctrlplane/internal/apperr"
	"ctrlplane/internal/audit"
	"ctrlplane/internal/ids"
	"ctrlplane/internal/metrics"
	"ctrlplane/internal/model"
	"ctrlplane/internal/notify"
	"ctrlplane/internal/permission"
	"ctrlplane/internal/policy"
	"ctrlplane/internal/telemetry"
)

const (
	maxTitleLen   = 255
	maxSummaryLen = 1000
)

// Clock is injected so tests can control "now" without sleeping — the
// teacher threads time.Now() directly, but the expiration sweep and
// scheduled-executor jobs here need deterministic tests.
type Clock func() time.Time

// Service is the L5 orchestrator: create, approve, cancel, schedule,
// execute, re-evaluate, notify.
type Service struct {
	requests        *Repository
	policies        *PolicyRepository
	users           *UserRepository
	addresses       *addressbook.Repository
	permissions     *permission.Repository
	audit           *audit.Log
	notifier        notify.Notifier
	executors       *ExecutorRegistry
	now             Clock
	defaultPageSize int
	maxPageSize     int
}

// NewService wires the engine's repositories together. now defaults to
// time.Now when nil. defaultPageSize and maxPageSize come from the
// deployment's Config; 0 falls back to Paginate's own 100/250 default.
func NewService(
	requests *Repository,
	policies *PolicyRepository,
	users *UserRepository,
	addresses *addressbook.Repository,
	permissions *permission.Repository,
	auditLog *audit.Log,
	notifier notify.Notifier,
	executors *ExecutorRegistry,
	now Clock,
	defaultPageSize, maxPageSize int,
) *Service {
	if now == nil {
		now = time.Now
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Service{
		requests: requests, policies: policies, users: users,
		addresses: addresses, permissions: permissions, audit: auditLog,
		notifier: notifier, executors: executors, now: now,
		defaultPageSize: defaultPageSize, maxPageSize: maxPageSize,
	}
}

func (s *Service) world(req *model.Request) *requestWorld {
	return newRequestWorld(s.users, s.policies, s.addresses, req)
}

// CreateRequest implements §6 create_request and the lifecycle's entry
// point (§4.2), including the self-vote short-circuit (Property 5) and
// default-deny (Property 3).
func (s *Service) CreateRequest(requestedBy ids.ID, op model.Operation, title, summary string, plan *model.ExecutionPlan, expirationDt *time.Time) (*model.Request, error) {
	if len(title) == 0 || len(title) > maxTitleLen {
		return nil, apperr.NewValidation("title must be 1-255 characters")
	}
	if len(summary) > maxSummaryLen {
		return nil, apperr.NewValidation("summary must be at most 1000 characters")
	}
	requester, ok, err := s.users.GetUser(requestedBy)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NewReferentialIntegrity("requested_by references a missing user", requestedBy.String())
	}

	now := s.now()
	expiration := now.Add(30 * 24 * time.Hour)
	if expirationDt != nil {
		expiration = *expirationDt
	}
	execPlan := model.Immediate()
	if plan != nil {
		execPlan = *plan
	}

	req := &model.Request{
		ID:                        ids.New(),
		Title:                     title,
		Summary:                   summary,
		RequestedBy:               requestedBy,
		Status:                    model.StatusCreated,
		Operation:                 op,
		ExpirationDt:              expiration,
		ExecutionPlan:             execPlan,
		CreatedTimestamp:          now,
		LastModificationTimestamp: now,
	}

	// Insert before re-evaluating/self-approving, per §5: "so that rules
	// referencing the request's own identity can find it".
	if err := s.requests.Put(req); err != nil {
		return nil, err
	}

	s.maybeSelfApprove(req, requester.ID)

	if err := s.reevaluateAndTransition(req); err != nil {
		return nil, err
	}

	s.logAudit(req.RequestedBy, "request.created", req.ID, fmt.Sprintf("operation=%s", op.Kind()))
	s.notifyApprovers(req)
	metrics.RequestsCreated.Inc()
	return req, nil
}

// maybeSelfApprove implements Property 5: if the requester satisfies any
// matching rule's approver-spec, record an Approved entry from them before
// the first evaluation runs.
func (s *Service) maybeSelfApprove(req *model.Request, requester ids.ID) {
	policies, err := s.policies.PoliciesForResources(req.Operation.Resources())
	if err != nil {
		return
	}
	w := s.world(req)
	for _, p := range policies {
		if policy.HasApprovalRights(req, p.Rule, requester, w) {
			req.Approvals = append(req.Approvals, model.Approval{
				ApproverID:                requester,
				Status:                    model.ApprovalApproved,
				DecidedDt:                 s.now(),
				LastModificationTimestamp: s.now(),
			})
			return
		}
	}
}

// SubmitApproval implements §6 submit_approval: idempotent per user
// (Property 2), gated by approval-rights mode, re-evaluates on every call.
func (s *Service) SubmitApproval(requestID, approverID ids.ID, status model.ApprovalStatus, reason string) (*model.Request, error) {
	req, ok, err := s.requests.Get(requestID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NewNotFound("request", requestID.String())
	}
	if req.Status != model.StatusCreated {
		return nil, apperr.NewValidation("request is not open for approval")
	}
	if _, voted := req.ApprovalByUser(approverID); voted {
		return nil, apperr.NewValidation("user has already voted on this request")
	}

	policies, err := s.policies.PoliciesForResources(req.Operation.Resources())
	if err != nil {
		return nil, err
	}
	w := s.world(req)
	rights := false
	for _, p := range policies {
		if policy.HasApprovalRights(req, p.Rule, approverID, w) {
			rights = true
			break
		}
	}
	if !rights {
		return nil, apperr.NewUnauthorized("caller does not hold approval rights on this request")
	}

	now := s.now()
	req.Approvals = append(req.Approvals, model.Approval{
		ApproverID:                approverID,
		Status:                    status,
		Reason:                    reason,
		DecidedDt:                 now,
		LastModificationTimestamp: now,
	})
	req.LastModificationTimestamp = now

	if err := s.reevaluateAndTransition(req); err != nil {
		return nil, err
	}
	s.logAudit(approverID, "request.approval_submitted", req.ID, string(status))
	metrics.ApprovalsSubmitted.WithLabelValues(string(status)).Inc()
	return req, nil
}

// CancelRequest implements §4.2 "Cancellation": permitted iff status ==
// Created and caller == requester.
func (s *Service) CancelRequest(requestID, callerID ids.ID, reason string) (*model.Request, error) {
	req, ok, err := s.requests.Get(requestID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NewNotFound("request", requestID.String())
	}
	if req.Status != model.StatusCreated {
		return nil, apperr.NewValidation("request is not cancellable")
	}
	if req.RequestedBy != callerID {
		return nil, apperr.NewUnauthorized("only the requester may cancel this request")
	}
	req.Status = model.StatusCancelled
	req.StatusReason = reason
	req.LastModificationTimestamp = s.now()
	if err := s.requests.Put(req); err != nil {
		return nil, err
	}
	s.logAudit(callerID, "request.cancelled", req.ID, reason)
	metrics.RequestsFinalized.WithLabelValues(string(model.StatusCancelled)).Inc()
	return req, nil
}

// reevaluateAndTransition re-runs policy evaluation (§4.1 aggregation) and
// applies the resulting status transition (§4.2), persisting the request
// and, when newly Approved, moving it into Scheduled/Processing.
func (s *Service) reevaluateAndTransition(req *model.Request) error {
	policies, err := s.policies.PoliciesForResources(req.Operation.Resources())
	if err != nil {
		return err
	}
	w := s.world(req)

	outcomes := make([]model.Outcome, 0, len(policies))
	var lastDetail model.RuleResult
	for _, p := range policies {
		outcome, detail := policy.EvaluateStatus(req, p.Rule, w)
		outcomes = append(outcomes, outcome)
		lastDetail = detail
	}
	aggregate := policy.AggregateRequestOutcome(outcomes)

	req.Evaluations = append(req.Evaluations, model.EvaluationResult{
		Outcome:     aggregate,
		Details:     lastDetail,
		EvaluatedAt: s.now(),
	})
	req.LastModificationTimestamp = s.now()

	switch aggregate {
	case model.OutcomeApproved:
		req.Status = model.StatusApproved
		if err := s.requests.Put(req); err != nil {
			return err
		}
		return s.advanceApproved(req)
	case model.OutcomeRejected:
		req.Status = model.StatusRejected
		if err := s.requests.Put(req); err != nil {
			return err
		}
		metrics.RequestsFinalized.WithLabelValues(string(model.StatusRejected)).Inc()
		return nil
	default:
		req.Status = model.StatusCreated
		return s.requests.Put(req)
	}
}

// advanceApproved implements the Approved -> Scheduled|Processing edge of
// §4.2's diagram.
func (s *Service) advanceApproved(req *model.Request) error {
	if req.ExecutionPlan.Kind == model.ExecutionScheduled {
		req.Status = model.StatusScheduled
		return s.requests.Put(req)
	}
	req.Status = model.StatusProcessing
	if err := s.requests.Put(req); err != nil {
		return err
	}
	return s.dispatch(context.Background(), req.ID)
}

// dispatch implements §6's Operation.execute boundary and the §5
// suspension-point re-validation rule: after the (possibly suspending)
// executor call returns, the request is re-read from the repository and
// the write only applied if it is still Processing.
func (s *Service) dispatch(ctx context.Context, requestID ids.ID) error {
	ctx, span := telemetry.Tracer().Start(ctx, "request.dispatch")
	defer span.End()

	req, ok, err := s.requests.Get(requestID)
	if err != nil || !ok || req.Status != model.StatusProcessing {
		return err
	}
	span.SetAttributes(attribute.String("operation_kind", string(req.Operation.Kind())))

	ex, found := s.executors.Lookup(req.Operation.Kind())
	if !found {
		return s.finishProcessing(requestID, model.StatusFailed, "no executor registered for operation kind")
	}

	outcome, err := ex.Execute(ctx, req.Operation, ExecutionContext{RequestID: requestID})
	if err != nil {
		outcome = ExecutionOutcome{Status: ExecutionFailed, Reason: err.Error()}
	}

	switch outcome.Status {
	case ExecutionCompleted:
		return s.finishProcessing(requestID, model.StatusCompleted, "")
	case ExecutionFailed:
		return s.finishProcessing(requestID, model.StatusFailed, outcome.Reason)
	default: // ExecutionProcessing: still in flight, leave status as-is
		return nil
	}
}

// finishProcessing re-reads the request (the §5 post-await re-validation)
// and aborts the write if the request is no longer Processing — e.g. a
// concurrent message already resolved it.
func (s *Service) finishProcessing(requestID ids.ID, final model.Status, reason string) error {
	req, ok, err := s.requests.Get(requestID)
	if err != nil || !ok {
		return err
	}
	if req.Status != model.StatusProcessing {
		return nil
	}
	req.Status = final
	req.StatusReason = reason
	req.LastModificationTimestamp = s.now()
	if err := s.requests.Put(req); err != nil {
		return err
	}
	s.logAudit(req.RequestedBy, "request.finalized", req.ID, string(final))
	s.notifier.Notify(notify.Event{Kind: notify.EventRequestFinalized, RequestID: req.ID})
	metrics.RequestsFinalized.WithLabelValues(string(final)).Inc()
	return nil
}

func (s *Service) logAudit(actor ids.ID, kind string, subject ids.ID, detail string) {
	_ = s.audit.Append(audit.Entry{
		ID: ids.New(), OccurredAt: s.now(), Actor: actor, Kind: kind,
		SubjectID: subject, Detail: detail,
	})
}

func (s *Service) notifyApprovers(req *model.Request) {
	policies, err := s.policies.PoliciesForResources(req.Operation.Resources())
	if err != nil {
		return
	}
	w := s.world(req)
	merged := policy.ApproversResult{Users: map[ids.ID]bool{}, Groups: map[ids.ID]bool{}}
	for _, p := range policies {
		sub := policy.PossibleApprovers(req, p.Rule, w)
		if sub.MatchAll {
			merged.MatchAll = true
		}
		for id := range sub.Users {
			merged.Users[id] = true
		}
		for id := range sub.Groups {
			merged.Groups[id] = true
		}
	}
	recipients := policy.Materialize(merged, w, req.RequestedBy)
	notify.Fanout(s.notifier, notify.EventNowApprovable, req.ID, recipients)
}

// GetRequest implements §6 get_request.
func (s *Service) GetRequest(id ids.ID) (*model.Request, error) {
	req, ok, err := s.requests.Get(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NewNotFound("request", id.String())
	}
	return req, nil
}

// ListRequests implements §6 list_requests: filter, sort, paginate, then
// the §4.5 access filter.
func (s *Service) ListRequests(callerID ids.ID, filters []Filter, sortBy SortStrategy, offset, limit int) (items []*model.Request, total int, nextOffset int, err error) {
	matched, err := s.requests.FindIDsWhere(filters, sortBy)
	if err != nil {
		return nil, 0, 0, err
	}
	accessible := s.filterAccessible(matched, callerID)
	total = len(accessible)
	page, next, _ := Paginate(accessible, offset, limit, s.defaultPageSize, s.maxPageSize)
	return page, total, next, nil
}

// filterAccessible implements §4.5 "Access filtering": an id is retained
// iff the caller is in the allowed user/group set, is the requester, or
// holds approval rights for it (Property 10).
func (s *Service) filterAccessible(reqs []*model.Request, callerID ids.ID) []*model.Request {
	isMember := func(groupID, userID ids.ID) bool {
		u, ok, err := s.users.GetUser(userID)
		return err == nil && ok && u.InGroup(groupID)
	}

	var out []*model.Request
	for _, req := range reqs {
		if req.RequestedBy == callerID {
			out = append(out, req)
			continue
		}
		allowed := true
		for _, res := range req.Operation.Resources() {
			if !s.permissions.Allows(res, callerID, isMember) {
				allowed = false
				break
			}
		}
		if allowed {
			out = append(out, req)
			continue
		}

		policies, err := s.policies.PoliciesForResources(req.Operation.Resources())
		if err != nil {
			continue
		}
		w := s.world(req)
		for _, p := range policies {
			if policy.HasApprovalRights(req, p.Rule, callerID, w) {
				out = append(out, req)
				break
			}
		}
	}
	return out
}

// GetNextApprovable implements §6 get_next_approvable: the first Created
// request (oldest first) not in excludedIDs, optionally restricted to
// operationKinds, that callerID has not yet voted on and holds approval
// rights for.
func (s *Service) GetNextApprovable(callerID ids.ID, excludedIDs map[ids.ID]bool, operationKinds []model.OperationKind) (*model.Request, error) {
	filters := []Filter{
		StatusFilter{Statuses: []model.Status{model.StatusCreated}},
		ExcludedIDsFilter{Excluded: excludedIDs},
		OperationKindFilter{Kinds: operationKinds},
		ApproverFilter{UserID: callerID, Exclude: true},
	}
	candidates, err := s.requests.FindIDsWhere(filters, SortStrategy{Field: "created_at", Direction: Ascending})
	if err != nil {
		return nil, err
	}
	for _, req := range candidates {
		policies, err := s.policies.PoliciesForResources(req.Operation.Resources())
		if err != nil {
			continue
		}
		w := s.world(req)
		for _, p := range policies {
			if policy.HasApprovalRights(req, p.Rule, callerID, w) {
				return req, nil
			}
		}
	}
	return nil, nil
}
