package request

import (
	"context"
	"log/slog"
	"time"

	"ctrlplane/internal/metrics"
	"ctrlplane/internal/model"
)

// RunScheduledExecutor is the scheduled-request executor job: on every
// tick, dispatch every Scheduled request whose execution time has arrived.
// Modeled on the block-ticker pattern (a consensus loop firing a
// fixed-interval action), generalized from consensus rounds to wall-clock
// schedules.
func (s *Service) RunScheduledExecutor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runScheduledExecutorOnce(ctx)
		}
	}
}

func (s *Service) runScheduledExecutorOnce(ctx context.Context) {
	metrics.ScheduledExecutorRuns.Inc()
	due, err := s.requests.DueScheduled(uint64(s.now().UnixNano()))
	if err != nil {
		slog.Error("scheduled executor: scan failed", "error", err)
		return
	}
	for _, id := range due {
		req, ok, err := s.requests.Get(id)
		if err != nil || !ok {
			continue
		}
		// Idempotent: only a Scheduled request transitions here. A request
		// another tick (or a concurrent approval re-evaluation) already
		// moved out of Scheduled is left untouched.
		if req.Status != model.StatusScheduled {
			continue
		}
		req.Status = model.StatusProcessing
		if err := s.requests.Put(req); err != nil {
			slog.Error("scheduled executor: transition to processing failed", "request_id", id, "error", err)
			continue
		}
		if err := s.dispatch(ctx, id); err != nil {
			slog.Error("scheduled executor: dispatch failed", "request_id", id, "error", err)
		}
	}
}

// RunExpirationSweep transitions any still-open request past its
// expiration_dt to Rejected. Modeled on the governance proposal-expiry
// sweep.
func (s *Service) RunExpirationSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runExpirationSweepOnce()
		}
	}
}

func (s *Service) runExpirationSweepOnce() {
	metrics.ExpirationSweepRuns.Inc()
	now := s.now()
	all, err := s.requests.All()
	if err != nil {
		slog.Error("expiration sweep: scan failed", "error", err)
		return
	}
	for _, req := range all {
		if req.Status.Final() || req.Status == model.StatusScheduled || req.Status == model.StatusProcessing {
			continue
		}
		if req.Status != model.StatusCreated {
			continue
		}
		if now.Before(req.ExpirationDt) {
			continue
		}
		req.Status = model.StatusRejected
		req.StatusReason = "expired before reaching quorum"
		req.LastModificationTimestamp = now
		if err := s.requests.Put(req); err != nil {
			slog.Error("expiration sweep: write failed", "request_id", req.ID, "error", err)
			continue
		}
		s.logAudit(req.RequestedBy, "request.expired", req.ID, req.StatusReason)
		metrics.ExpiredRequests.Inc()
	}
}
