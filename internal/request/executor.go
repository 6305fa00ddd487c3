package request

import (
	"context"

	"ctrlplane/internal/ids"
	"ctrlplane/internal/model"
)

// ExecutionStatus is the outcome of dispatching an Operation to its
// executor (§6 "Operation interface").
type ExecutionStatus int

const (
	ExecutionCompleted ExecutionStatus = iota
	ExecutionProcessing
	ExecutionFailed
)

// ExecutionOutcome is what an Executor.Execute call returns.
type ExecutionOutcome struct {
	Status ExecutionStatus
	Output any
	Handle string // opaque future-like token when Status == ExecutionProcessing
	Reason string // populated when Status == ExecutionFailed
}

// ExecutionContext carries the ambient information an executor needs
// beyond the operation payload itself.
type ExecutionContext struct {
	RequestID ids.ID
}

// Executor dispatches one Operation kind. Executors are registered at
// boot; the service dispatches by Kind and does not interpret the
// operation's payload beyond what model.Operation already validated
// (§6: "does not interpret input beyond validation").
//
// Model each executor as a function returning Pending(Handle) | Done(Output)
// per §9 "Coroutine control flow" — never hold a reference to the request
// across the await inside Execute; re-read it from the repository instead.
type Executor interface {
	Execute(ctx context.Context, op model.Operation, ectx ExecutionContext) (ExecutionOutcome, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, op model.Operation, ectx ExecutionContext) (ExecutionOutcome, error)

func (f ExecutorFunc) Execute(ctx context.Context, op model.Operation, ectx ExecutionContext) (ExecutionOutcome, error) {
	return f(ctx, op, ectx)
}

// ExecutorRegistry dispatches by OperationKind to a registered Executor.
type ExecutorRegistry struct {
	executors map[model.OperationKind]Executor
}

func NewExecutorRegistry() *ExecutorRegistry {
	return &ExecutorRegistry{executors: map[model.OperationKind]Executor{}}
}

// Register binds kind to an executor. Registration happens at boot,
// per §6.
func (r *ExecutorRegistry) Register(kind model.OperationKind, ex Executor) {
	r.executors[kind] = ex
}

func (r *ExecutorRegistry) Lookup(kind model.OperationKind) (Executor, bool) {
	ex, ok := r.executors[kind]
	return ex, ok
}
