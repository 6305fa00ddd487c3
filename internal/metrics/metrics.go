// Package metrics is a thin prometheus instrumentation shim around the
// service layer. Metrics collectors themselves are an external
// collaborator, but counting the events they'd consume is ambient
// plumbing the control plane owns. Modeled on the
// observability/metrics registration pattern.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ctrlplane_requests_created_total",
		Help: "Total number of requests created.",
	})

	ApprovalsSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ctrlplane_approvals_submitted_total",
		Help: "Total number of approvals submitted, by decision.",
	}, []string{"status"})

	RequestsFinalized = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ctrlplane_requests_finalized_total",
		Help: "Total number of requests reaching a terminal status, by status.",
	}, []string{"status"})

	ScheduledExecutorRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ctrlplane_scheduled_executor_runs_total",
		Help: "Total number of scheduled-executor job ticks.",
	})

	ExpirationSweepRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ctrlplane_expiration_sweep_runs_total",
		Help: "Total number of expiration-sweep job ticks.",
	})

	ExpiredRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ctrlplane_requests_expired_total",
		Help: "Total number of requests transitioned to Rejected by the expiration sweep.",
	})

	DRRecoveriesExecuted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ctrlplane_dr_recoveries_executed_total",
		Help: "Total number of disaster-recovery operations executed, by outcome.",
	}, []string{"outcome"})

	DRWatchdogClears = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ctrlplane_dr_watchdog_clears_total",
		Help: "Total number of times the DR watchdog self-cleared a stale InProgress guard.",
	})
)

// Register adds every collector to reg. Call once at boot.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		RequestsCreated,
		ApprovalsSubmitted,
		RequestsFinalized,
		ScheduledExecutorRuns,
		ExpirationSweepRuns,
		ExpiredRequests,
		DRRecoveriesExecuted,
		DRWatchdogClears,
	)
}
