package dr

import (
	"context"
	"log/slog"
	"time"
)

// RunWatchdog implements the §5 DR watchdog background job: periodically
// clear a stale InProgress guard so a trapping recovery operation cannot
// wedge the committee forever. freshStatus already clears lazily on every
// call; this loop ensures the same self-healing happens even when the
// companion process receives no committee traffic.
func (s *Service) RunWatchdog(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.freshStatus(); err != nil {
				slog.Error("dr watchdog: status check failed", "error", err)
			}
		}
	}
}
