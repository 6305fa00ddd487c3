// Package dr implements the disaster-recovery committee: an out-of-band
// quorum protocol, run on a separate companion process, that can reinstall
// or roll back the main control plane when the ordinary request pipeline
// is unavailable or compromised. Modeled on native/governance's
// proposal/vote/quorum engine, generalized from "many proposals, many
// voters, majority threshold" to "one open proposal per committee member,
// footprint-keyed quorum".
package dr

import (
	"time"

	"ctrlplane/internal/ids"
	"ctrlplane/internal/model"
)

// RecoveryStatusKind distinguishes an idle committee from one mid-recovery.
type RecoveryStatusKind string

const (
	RecoveryIdle       RecoveryStatusKind = "Idle"
	RecoveryInProgress RecoveryStatusKind = "InProgress"
)

// RecoveryStatus is the committee's current guard state (§4.6).
type RecoveryStatus struct {
	Kind  RecoveryStatusKind
	Since time.Time // meaningful only when Kind == RecoveryInProgress
}

// WatchdogTimeout is how long an InProgress guard is honored before it
// self-clears, preventing a stuck state after a trapping operation (§4.6).
const WatchdogTimeout = time.Hour

// ProposalExpiry is how long an open recovery proposal is considered live
// before evaluate_requests discards it (§4.6).
const ProposalExpiry = 7 * 24 * time.Hour

// ProposalKind enumerates the three recovery actions a committee member may
// propose (§4.6).
type ProposalKind string

const (
	ProposalInstallCode ProposalKind = "InstallCode"
	ProposalSnapshot    ProposalKind = "Snapshot"
	ProposalRestore     ProposalKind = "Restore"
)

// Proposal is one committee member's recovery action, normalized enough
// that two members proposing "the same thing" hash to the same footprint
// (see footprint.go).
type Proposal struct {
	Kind ProposalKind

	// InstallCode fields.
	Module      model.ModulePayload
	ExtraChunks []string
	Arg         []byte
	Mode        model.UpgradeMode

	// Snapshot fields.
	ReplaceSnapshot string // empty means "none"
	Force           bool

	// Restore fields.
	SnapshotID string
}

// OpenProposal is one committee member's currently-live submission.
type OpenProposal struct {
	Member      ids.ID
	Proposal    Proposal
	SubmittedAt time.Time
}

// Committee is the set of users authorized to submit recovery proposals,
// plus the quorum needed to act on one.
type Committee struct {
	Members []ids.ID
	Quorum  int
}

func (c Committee) isMember(id ids.ID) bool {
	for _, m := range c.Members {
		if m == id {
			return true
		}
	}
	return false
}

// RecoveryResult records the outcome of the most recently executed
// recovery action.
type RecoveryResult struct {
	Success bool
	Reason  string
	At      time.Time
}

// AccountSnapshot mirrors one tracked account as last synced from the main
// process (§6 "sync points from the main process").
type AccountSnapshot struct {
	AccountID ids.ID
	Name      string
}

// AssetSnapshot mirrors one tracked on-chain asset as last synced from the
// main process.
type AssetSnapshot struct {
	Blockchain string
	Symbol     string
}

// State is the full query-surface snapshot returned by
// get_disaster_recovery_state (§6).
type State struct {
	Committee          Committee
	Accounts           []AccountSnapshot
	Assets             []AssetSnapshot
	RecoveryStatus     RecoveryStatus
	LastRecoveryResult *RecoveryResult
	OpenRequests       []OpenProposal
}
