package dr

import (
	"context"

	"ctrlplane/internal/model"
)

// Controller is the DR committee's out-of-band collaborator: the
// companion process's view of the main canister's lifecycle controls
// (§4.6: "perform the operation (stop -> install/snapshot/restore ->
// start)"). A real deployment backs this with whatever orchestration API
// manages the main service's process/container; tests substitute a fake.
type Controller interface {
	Stop(ctx context.Context) error
	Start(ctx context.Context) error
	Install(ctx context.Context, module model.ModulePayload, extraChunks []string, arg []byte, mode model.UpgradeMode) error
	Snapshot(ctx context.Context, replace string, force bool) (snapshotID string, err error)
	Restore(ctx context.Context, snapshotID string) error
}
