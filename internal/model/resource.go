// Package model defines the entities of the treasury control plane: the
// request/approval graph, the policy rule tree, and the auxiliary registry
// catalog. It mirrors the shape of native/governance and native/escrow
// entity definitions but generalizes the single governance-proposal
// lifecycle into a general request/policy/approval engine.
package model

import "ctrlplane/internal/ids"

// Subsystem names the top-level area of the system a Resource targets.
type Subsystem string

const (
	SubsystemAccount          Subsystem = "Account"
	SubsystemUser             Subsystem = "User"
	SubsystemUserGroup        Subsystem = "UserGroup"
	SubsystemPermission       Subsystem = "Permission"
	SubsystemRequestPolicy    Subsystem = "RequestPolicy"
	SubsystemNamedRule        Subsystem = "NamedRule"
	SubsystemAddressBookEntry Subsystem = "AddressBookEntry"
	SubsystemExternalCanister Subsystem = "ExternalCanister"
	SubsystemSystem           Subsystem = "System"
	SubsystemRegistryEntry    Subsystem = "RegistryEntry"
)

// Action names the operation a Resource grants or requires approval for.
type Action string

const (
	ActionCreate   Action = "Create"
	ActionRead     Action = "Read"
	ActionUpdate   Action = "Update"
	ActionDelete   Action = "Delete"
	ActionTransfer Action = "Transfer"
	ActionCall     Action = "Call"
	ActionUpgrade  Action = "Upgrade"
	ActionRestore  Action = "Restore"
)

// ResourceID is either the wildcard Any or a specific entity id, per §3.
type ResourceID struct {
	Any bool
	ID  ids.ID
}

// AnyResourceID is the wildcard target matching every entity of a subsystem.
func AnyResourceID() ResourceID { return ResourceID{Any: true} }

// SpecificResourceID targets exactly one entity.
func SpecificResourceID(id ids.ID) ResourceID { return ResourceID{ID: id} }

// CanisterMethod names a single exported method on an external canister,
// used as the execution_method of a Call resource (§4.3).
type CanisterMethod struct {
	CanisterID ids.ID
	Method     string
}

// ValidationMethod is either "No" (no validation configured) or a specific
// CanisterMethod, per §4.3's Call{execution_method, validation_method}.
type ValidationMethod struct {
	None   bool
	Method CanisterMethod
}

// NoValidation constructs the "No" validation method variant.
func NoValidation() ValidationMethod { return ValidationMethod{None: true} }

// Resource is the structured (subsystem, action, target) identifier used as
// the matching key between operations and policies (§3, §4.3).
type Resource struct {
	Subsystem Subsystem
	Action    Action
	Target    ResourceID

	// Populated only when Subsystem == SubsystemExternalCanister && Action == ActionCall.
	ExecutionMethod  CanisterMethod
	ValidationMethod ValidationMethod
}

// Resource and its fields are all comparable (no slices/maps), so a
// Resource value can be used directly as a map key by the L2 resource-policy
// index (§4.3 "ordered map from Resource to set of policy_id").

// ForID builds the exact-match and wildcard resource pair produced for
// create/update/delete operations on a single entity, per §4.3: "the set
// contains both the Id(specific) and the Any variant".
func ForID(sub Subsystem, action Action, id ids.ID) []Resource {
	return []Resource{
		{Subsystem: sub, Action: action, Target: SpecificResourceID(id)},
		{Subsystem: sub, Action: action, Target: AnyResourceID()},
	}
}

// ForTransfer builds the resource set for a transfer out of a specific
// account, per §4.3: "the source account's Transfer(Id) and Transfer(Any)".
func ForTransfer(accountID ids.ID) []Resource {
	return ForID(SubsystemAccount, ActionTransfer, accountID)
}

// ForCall builds the single resource key for an external-canister call,
// keyed on the full (execution_method, validation_method) tuple so that a
// wildcard-validation policy and a specific-validation policy are both
// reachable via prefix scan (§4.3).
func ForCall(execution CanisterMethod, validation ValidationMethod) Resource {
	return Resource{
		Subsystem:        SubsystemExternalCanister,
		Action:           ActionCall,
		ExecutionMethod:  execution,
		ValidationMethod: validation,
	}
}
