package model

import (
	"encoding/json"
	"fmt"
	"time"

	"ctrlplane/internal/ids"
)

// Status is the request lifecycle state (§4.2).
type Status string

const (
	StatusCreated    Status = "Created"
	StatusApproved   Status = "Approved"
	StatusRejected   Status = "Rejected"
	StatusCancelled  Status = "Cancelled"
	StatusScheduled  Status = "Scheduled"
	StatusProcessing Status = "Processing"
	StatusCompleted  Status = "Completed"
	StatusFailed     Status = "Failed"
)

// Final reports whether the status is one of the lifecycle's terminal
// states, per §3's finalization invariant.
func (s Status) Final() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusFailed, StatusRejected:
		return true
	default:
		return false
	}
}

// ExecutionPlanKind distinguishes immediate from scheduled execution.
type ExecutionPlanKind string

const (
	ExecutionImmediate ExecutionPlanKind = "Immediate"
	ExecutionScheduled ExecutionPlanKind = "Scheduled"
)

// ExecutionPlan is Immediate or Scheduled{at}, per §3.
type ExecutionPlan struct {
	Kind ExecutionPlanKind
	At   time.Time // only meaningful when Kind == ExecutionScheduled
}

func Immediate() ExecutionPlan { return ExecutionPlan{Kind: ExecutionImmediate} }

func ScheduledAt(at time.Time) ExecutionPlan {
	return ExecutionPlan{Kind: ExecutionScheduled, At: at}
}

// EvaluationResult captures one re-evaluation run's outcome, including the
// per-rule sub-results, so clients can inspect "why" via the audit trail
// (§4.2 "persisted separately so clients can inspect per-rule decisions").
type EvaluationResult struct {
	Outcome     Outcome
	Details     RuleResult
	EvaluatedAt time.Time
}

// Request is the central entity of the engine (§3).
type Request struct {
	ID                        ids.ID
	Title                     string
	Summary                   string
	RequestedBy               ids.ID
	Status                    Status
	StatusReason              string
	Operation                 Operation
	ExpirationDt              time.Time
	ExecutionPlan             ExecutionPlan
	Approvals                 []Approval
	Evaluations               []EvaluationResult
	CreatedTimestamp          time.Time
	LastModificationTimestamp time.Time
}

// requestJSON is Request's storage/wire shape: Operation is an interface, so
// it has to travel as a {kind, body} envelope (see operation_codec.go)
// rather than embedding Request directly, which would hand json.Marshal the
// interface field unchanged.
type requestJSON struct {
	ID                        ids.ID
	Title                     string
	Summary                   string
	RequestedBy               ids.ID
	Status                    Status
	StatusReason              string
	Operation                 json.RawMessage
	ExpirationDt              time.Time
	ExecutionPlan             ExecutionPlan
	Approvals                 []Approval
	Evaluations               []EvaluationResult
	CreatedTimestamp          time.Time
	LastModificationTimestamp time.Time
}

func (r Request) MarshalJSON() ([]byte, error) {
	opJSON, err := marshalOperation(r.Operation)
	if err != nil {
		return nil, fmt.Errorf("marshal request %s: %w", r.ID, err)
	}
	return json.Marshal(requestJSON{
		ID:                        r.ID,
		Title:                     r.Title,
		Summary:                   r.Summary,
		RequestedBy:               r.RequestedBy,
		Status:                    r.Status,
		StatusReason:              r.StatusReason,
		Operation:                 opJSON,
		ExpirationDt:              r.ExpirationDt,
		ExecutionPlan:             r.ExecutionPlan,
		Approvals:                 r.Approvals,
		Evaluations:               r.Evaluations,
		CreatedTimestamp:          r.CreatedTimestamp,
		LastModificationTimestamp: r.LastModificationTimestamp,
	})
}

func (r *Request) UnmarshalJSON(data []byte) error {
	var aux requestJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	op, err := unmarshalOperation(aux.Operation)
	if err != nil {
		return fmt.Errorf("unmarshal request %s: %w", aux.ID, err)
	}

	r.ID = aux.ID
	r.Title = aux.Title
	r.Summary = aux.Summary
	r.RequestedBy = aux.RequestedBy
	r.Status = aux.Status
	r.StatusReason = aux.StatusReason
	r.Operation = op
	r.ExpirationDt = aux.ExpirationDt
	r.ExecutionPlan = aux.ExecutionPlan
	r.Approvals = aux.Approvals
	r.Evaluations = aux.Evaluations
	r.CreatedTimestamp = aux.CreatedTimestamp
	r.LastModificationTimestamp = aux.LastModificationTimestamp
	return nil
}

// ApprovalByUser returns the request's existing approval from the given
// user, if any — used to enforce the single-vote invariant (§3, Property 2).
func (r *Request) ApprovalByUser(userID ids.ID) (Approval, bool) {
	for _, a := range r.Approvals {
		if a.ApproverID == userID {
			return a, true
		}
	}
	return Approval{}, false
}

// LatestEvaluation returns the most recent policy re-evaluation, if any.
func (r *Request) LatestEvaluation() (EvaluationResult, bool) {
	if len(r.Evaluations) == 0 {
		return EvaluationResult{}, false
	}
	return r.Evaluations[len(r.Evaluations)-1], true
}
