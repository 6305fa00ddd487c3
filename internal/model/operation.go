package model

import "ctrlplane/internal/ids"

// OperationKind enumerates the request operation variants named in §6.
type OperationKind string

const (
	OperationAddUser              OperationKind = "AddUser"
	OperationEditUser             OperationKind = "EditUser"
	OperationAddUserGroup         OperationKind = "AddUserGroup"
	OperationAddAccount           OperationKind = "AddAccount"
	OperationTransfer             OperationKind = "Transfer"
	OperationAddAddressBookEntry  OperationKind = "AddAddressBookEntry"
	OperationAddPolicy            OperationKind = "AddPolicy"
	OperationEditPolicy           OperationKind = "EditPolicy"
	OperationRemovePolicy         OperationKind = "RemovePolicy"
	OperationEditPermission       OperationKind = "EditPermission"
	OperationUpgrade              OperationKind = "Upgrade"
	OperationRestore              OperationKind = "Restore"
	OperationCallExternalCanister OperationKind = "CallExternalCanister"
)

// Operation is the tagged-variant business payload a Request asks to
// perform (§6). Each concrete operation knows the set of resources it
// touches so the request service can look up matching policies (§4.3).
type Operation interface {
	Kind() OperationKind
	Resources() []Resource
}

// AddUserOperation creates a new user with the given identities and groups.
type AddUserOperation struct {
	Name       string
	Identities []string
	GroupIDs   []ids.ID
}

func (AddUserOperation) Kind() OperationKind { return OperationAddUser }
func (AddUserOperation) Resources() []Resource {
	return ForID(SubsystemUser, ActionCreate, ids.Nil)
}

// EditUserOperation mutates an existing user's fields.
type EditUserOperation struct {
	UserID     ids.ID
	Name       *string
	Identities *[]string
	GroupIDs   *[]ids.ID
	Status     *string
}

func (o EditUserOperation) Kind() OperationKind { return OperationEditUser }
func (o EditUserOperation) Resources() []Resource {
	return ForID(SubsystemUser, ActionUpdate, o.UserID)
}

// AddUserGroupOperation creates a new user group.
type AddUserGroupOperation struct {
	Name string
}

func (AddUserGroupOperation) Kind() OperationKind { return OperationAddUserGroup }
func (AddUserGroupOperation) Resources() []Resource {
	return ForID(SubsystemUserGroup, ActionCreate, ids.Nil)
}

// AddAccountOperation creates a new on-chain account entry.
type AddAccountOperation struct {
	Name       string
	Blockchain string
	Metadata   map[string]string
}

func (AddAccountOperation) Kind() OperationKind { return OperationAddAccount }
func (AddAccountOperation) Resources() []Resource {
	return ForID(SubsystemAccount, ActionCreate, ids.Nil)
}

// TransferOperation moves funds out of FromAccountID to Destination.
type TransferOperation struct {
	FromAccountID ids.ID
	Destination   string
	Amount        string
	Memo          string
}

func (o TransferOperation) Kind() OperationKind { return OperationTransfer }
func (o TransferOperation) Resources() []Resource {
	return ForTransfer(o.FromAccountID)
}

// AddAddressBookEntryOperation registers a new trusted destination.
type AddAddressBookEntryOperation struct {
	Address  string
	Label    string
	Metadata map[string]string
}

func (AddAddressBookEntryOperation) Kind() OperationKind { return OperationAddAddressBookEntry }
func (AddAddressBookEntryOperation) Resources() []Resource {
	return ForID(SubsystemAddressBookEntry, ActionCreate, ids.Nil)
}

// AddPolicyOperation creates a new RequestPolicy.
type AddPolicyOperation struct {
	Specifier Specifier
	Rule      Rule
}

func (AddPolicyOperation) Kind() OperationKind { return OperationAddPolicy }
func (AddPolicyOperation) Resources() []Resource {
	return ForID(SubsystemRequestPolicy, ActionCreate, ids.Nil)
}

// EditPolicyOperation updates an existing RequestPolicy.
type EditPolicyOperation struct {
	PolicyID  ids.ID
	Specifier *Specifier
	Rule      *Rule
}

func (o EditPolicyOperation) Kind() OperationKind { return OperationEditPolicy }
func (o EditPolicyOperation) Resources() []Resource {
	return ForID(SubsystemRequestPolicy, ActionUpdate, o.PolicyID)
}

// RemovePolicyOperation deletes a RequestPolicy.
type RemovePolicyOperation struct {
	PolicyID ids.ID
}

func (o RemovePolicyOperation) Kind() OperationKind { return OperationRemovePolicy }
func (o RemovePolicyOperation) Resources() []Resource {
	return ForID(SubsystemRequestPolicy, ActionDelete, o.PolicyID)
}

// EditPermissionOperation updates the read-access allow-list of a resource.
type EditPermissionOperation struct {
	Resource Resource
	Users    []ids.ID
	Groups   []ids.ID
}

func (EditPermissionOperation) Kind() OperationKind { return OperationEditPermission }
func (o EditPermissionOperation) Resources() []Resource {
	return ForID(SubsystemPermission, ActionUpdate, ids.Nil)
}

// UpgradeMode mirrors the DR InstallCode modes (§4.6) reused here for the
// in-band system-upgrade operation.
type UpgradeMode string

const (
	UpgradeModeInstall   UpgradeMode = "Install"
	UpgradeModeReinstall UpgradeMode = "Reinstall"
	UpgradeModeUpgrade   UpgradeMode = "Upgrade"
)

// ModulePayload is either raw bytes or a dereference through the
// asset-store "extra chunks" side channel (§9 "Large binary payloads").
type ModulePayload struct {
	InlineBytes []byte
	Deferred    *DeferredModule
}

// DeferredModule locates a module too large to inline directly in the
// request payload.
type DeferredModule struct {
	StoreLocator string
	Hash         string
	TotalSize    int64
}

// UpgradeOperation installs or upgrades the main canister's own code.
type UpgradeOperation struct {
	Module ModulePayload
	Arg    []byte
	Mode   UpgradeMode
}

func (UpgradeOperation) Kind() OperationKind { return OperationUpgrade }
func (UpgradeOperation) Resources() []Resource {
	return ForID(SubsystemSystem, ActionUpgrade, ids.Nil)
}

// RestoreOperation restores the main canister from a snapshot.
type RestoreOperation struct {
	SnapshotID string
}

func (RestoreOperation) Kind() OperationKind { return OperationRestore }
func (RestoreOperation) Resources() []Resource {
	return ForID(SubsystemSystem, ActionRestore, ids.Nil)
}

// CallExternalCanisterOperation invokes a method on a managed canister.
type CallExternalCanisterOperation struct {
	Execution  CanisterMethod
	Validation ValidationMethod
	Arg        []byte
}

func (CallExternalCanisterOperation) Kind() OperationKind { return OperationCallExternalCanister }
func (o CallExternalCanisterOperation) Resources() []Resource {
	return []Resource{ForCall(o.Execution, o.Validation)}
}
