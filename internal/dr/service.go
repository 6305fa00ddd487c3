package dr

import (
	"context"
	"time"

	"ctrlplane/internal/apperr"
	"ctrlplane/internal/audit"
	"ctrlplane/internal/ids"
	"ctrlplane/internal/metrics"
	"ctrlplane/internal/store"
	"ctrlplane/internal/telemetry"
)

// Clock matches request.Clock's shape so tests can control "now" without
// sleeping.
type Clock func() time.Time

// Service is the DR companion process's engine: committee membership,
// recovery-proposal collection, quorum evaluation, and orchestrated
// recovery execution. Modeled on the governance engine (proposal/vote/
// quorum, audit-logged transitions) generalized to a single always-open
// proposal per member instead of a fixed voting period.
type Service struct {
	repo       *repository
	controller Controller
	audit      *audit.Log
	now        Clock
}

// NewService wires the committee's storage and its orchestration
// collaborator. now defaults to time.Now when nil.
func NewService(db store.Database, controller Controller, auditLog *audit.Log, now Clock) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: newRepository(db), controller: controller, audit: auditLog, now: now}
}

func (s *Service) logAudit(actor ids.ID, kind, detail string) {
	_ = s.audit.Append(audit.Entry{ID: ids.New(), OccurredAt: s.now(), Actor: actor, Kind: kind, Detail: detail})
}

// freshStatus clears a stale InProgress guard once WatchdogTimeout has
// elapsed, implementing §4.6's "self-clears after 1h to prevent stuck
// states after a trapping operation". It is checked lazily at the top of
// every operation, and is also driven by a periodic watchdog job
// (watchdog.go) so a companion process that receives no traffic still
// self-heals.
func (s *Service) freshStatus() (RecoveryStatus, error) {
	status, err := s.repo.getStatus()
	if err != nil {
		return RecoveryStatus{}, err
	}
	if status.Kind == RecoveryInProgress && s.now().Sub(status.Since) >= WatchdogTimeout {
		cleared := RecoveryStatus{Kind: RecoveryIdle}
		if err := s.repo.putStatus(cleared); err != nil {
			return RecoveryStatus{}, err
		}
		s.logAudit(ids.Nil, "dr.watchdog_cleared", "stale InProgress guard self-cleared after timeout")
		metrics.DRWatchdogClears.Inc()
		return cleared, nil
	}
	return status, nil
}

// SetCommittee replaces the committee roster and quorum atomically,
// dropping any open proposals from users not in the new roster (§4.6,
// Property 12). Refused while a recovery is genuinely in progress.
func (s *Service) SetCommittee(members []ids.ID, quorum int) error {
	status, err := s.freshStatus()
	if err != nil {
		return err
	}
	if status.Kind == RecoveryInProgress {
		return apperr.NewRecoveryInProgress()
	}

	next := Committee{Members: append([]ids.ID(nil), members...), Quorum: quorum}
	if err := s.repo.putCommittee(next); err != nil {
		return err
	}

	open, err := s.repo.allProposals()
	if err != nil {
		return err
	}
	for _, p := range open {
		if !next.isMember(p.Member) {
			if err := s.repo.deleteProposal(p.Member); err != nil {
				return err
			}
		}
	}
	s.logAudit(ids.Nil, "dr.committee_replaced", "")
	return nil
}

// RequestRecovery records caller's proposal, overwriting any earlier
// submission from the same caller (§4.6).
func (s *Service) RequestRecovery(caller ids.ID, p Proposal) error {
	status, err := s.freshStatus()
	if err != nil {
		return err
	}
	if status.Kind == RecoveryInProgress {
		return apperr.NewRecoveryInProgress()
	}

	committee, err := s.repo.getCommittee()
	if err != nil {
		return err
	}
	if !committee.isMember(caller) {
		return apperr.NewUnauthorized("caller is not a disaster-recovery committee member")
	}

	if err := s.repo.putProposal(OpenProposal{Member: caller, Proposal: p, SubmittedAt: s.now()}); err != nil {
		return err
	}
	s.logAudit(caller, "dr.proposal_submitted", string(p.Kind))
	return nil
}

// EvaluateRequests implements §4.6 / Property 11: drop expired and
// non-member proposals, group the remainder by canonical footprint, and if
// any footprint is held by at least Quorum distinct members, clear every
// open proposal and return that exemplar.
func (s *Service) EvaluateRequests() (Proposal, bool, error) {
	committee, err := s.repo.getCommittee()
	if err != nil {
		return Proposal{}, false, err
	}
	open, err := s.repo.allProposals()
	if err != nil {
		return Proposal{}, false, err
	}

	now := s.now()
	groups := map[Footprint][]OpenProposal{}
	for _, p := range open {
		if now.Sub(p.SubmittedAt) >= ProposalExpiry {
			_ = s.repo.deleteProposal(p.Member)
			continue
		}
		if !committee.isMember(p.Member) {
			_ = s.repo.deleteProposal(p.Member)
			continue
		}
		fp := footprint(p.Proposal)
		groups[fp] = append(groups[fp], p)
	}

	for _, members := range groups {
		if len(members) >= committee.Quorum && committee.Quorum > 0 {
			exemplar := members[0].Proposal
			for _, p := range open {
				_ = s.repo.deleteProposal(p.Member)
			}
			s.logAudit(ids.Nil, "dr.quorum_reached", string(exemplar.Kind))
			return exemplar, true, nil
		}
	}
	return Proposal{}, false, nil
}

// ExecuteRecovery runs EvaluateRequests and, on a quorum match, orchestrates
// stop -> (install|snapshot|restore) -> start against the controller,
// recording the guard, the result, and every transition in the audit log
// (§4.6). It returns (matched, err) where matched reports whether a quorum
// was found at all — err is only a plumbing failure, never the recovery
// operation's own outcome (that is recorded in last_recovery_result).
func (s *Service) ExecuteRecovery(ctx context.Context) (bool, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "dr.execute_recovery")
	defer span.End()

	status, err := s.freshStatus()
	if err != nil {
		return false, err
	}
	if status.Kind == RecoveryInProgress {
		return false, apperr.NewRecoveryInProgress()
	}

	proposal, matched, err := s.EvaluateRequests()
	if err != nil || !matched {
		return matched, err
	}

	if err := s.repo.putStatus(RecoveryStatus{Kind: RecoveryInProgress, Since: s.now()}); err != nil {
		return true, err
	}
	s.logAudit(ids.Nil, "dr.recovery_started", string(proposal.Kind))

	result := s.performRecovery(ctx, proposal)

	if err := s.repo.putLastResult(result); err != nil {
		return true, err
	}
	if err := s.repo.putStatus(RecoveryStatus{Kind: RecoveryIdle}); err != nil {
		return true, err
	}
	s.logAudit(ids.Nil, "dr.recovery_finished", result.Reason)
	outcome := "failure"
	if result.Success {
		outcome = "success"
	}
	metrics.DRRecoveriesExecuted.WithLabelValues(outcome).Inc()
	return true, nil
}

// performRecovery implements §4.6's failure semantics: stop first; on
// failure, abort without attempting install/snapshot/restore or start
// (the target is already presumed unreachable). On an install/snapshot/
// restore failure, start is still attempted best-effort so a failed
// recovery does not leave the target canister stopped.
func (s *Service) performRecovery(ctx context.Context, p Proposal) RecoveryResult {
	now := s.now()
	if err := s.controller.Stop(ctx); err != nil {
		return RecoveryResult{Success: false, Reason: "stop failed: " + err.Error(), At: now}
	}

	var actionErr error
	switch p.Kind {
	case ProposalInstallCode:
		actionErr = s.controller.Install(ctx, p.Module, p.ExtraChunks, p.Arg, p.Mode)
	case ProposalSnapshot:
		_, actionErr = s.controller.Snapshot(ctx, p.ReplaceSnapshot, p.Force)
	case ProposalRestore:
		actionErr = s.controller.Restore(ctx, p.SnapshotID)
	}

	if startErr := s.controller.Start(ctx); startErr != nil {
		if actionErr != nil {
			return RecoveryResult{Success: false, Reason: "action failed: " + actionErr.Error() + "; start also failed: " + startErr.Error(), At: now}
		}
		return RecoveryResult{Success: false, Reason: "start failed after otherwise successful action: " + startErr.Error(), At: now}
	}
	if actionErr != nil {
		return RecoveryResult{Success: false, Reason: "action failed: " + actionErr.Error(), At: now}
	}
	return RecoveryResult{Success: true, At: now}
}

// SetAccounts syncs the committee's tracked-account snapshot from the main
// process. Refused while a recovery is in progress, per §6.
func (s *Service) SetAccounts(accounts []AccountSnapshot) error {
	status, err := s.freshStatus()
	if err != nil {
		return err
	}
	if status.Kind == RecoveryInProgress {
		return apperr.NewRecoveryInProgress()
	}
	return s.repo.putAccounts(accounts)
}

// SetAccountsAndAssets syncs both tracked-account and tracked-asset
// snapshots atomically. Refused while a recovery is in progress, per §6.
func (s *Service) SetAccountsAndAssets(accounts []AccountSnapshot, assets []AssetSnapshot) error {
	status, err := s.freshStatus()
	if err != nil {
		return err
	}
	if status.Kind == RecoveryInProgress {
		return apperr.NewRecoveryInProgress()
	}
	if err := s.repo.putAccounts(accounts); err != nil {
		return err
	}
	return s.repo.putAssets(assets)
}

// GetState implements get_disaster_recovery_state (§6).
func (s *Service) GetState() (State, error) {
	committee, err := s.repo.getCommittee()
	if err != nil {
		return State{}, err
	}
	status, err := s.freshStatus()
	if err != nil {
		return State{}, err
	}
	lastResult, err := s.repo.getLastResult()
	if err != nil {
		return State{}, err
	}
	open, err := s.repo.allProposals()
	if err != nil {
		return State{}, err
	}
	accounts, err := s.repo.getAccounts()
	if err != nil {
		return State{}, err
	}
	assets, err := s.repo.getAssets()
	if err != nil {
		return State{}, err
	}
	return State{
		Committee:          committee,
		Accounts:           accounts,
		Assets:             assets,
		RecoveryStatus:     status,
		LastRecoveryResult: lastResult,
		OpenRequests:       open,
	}, nil
}

// Logs returns the append-only audit trail backing get_logs (§6).
func (s *Service) Logs(limit int) ([]audit.Entry, error) {
	return s.audit.Recent(limit)
}
