package model

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ctrlplane/internal/ids"
)

func TestOperationKindAndResourcesPerVariant(t *testing.T) {
	accountID := ids.New()
	transfer := TransferOperation{FromAccountID: accountID, Destination: "0xdead", Amount: "1"}
	require.Equal(t, OperationTransfer, transfer.Kind())
	require.Equal(t, ForTransfer(accountID), transfer.Resources())

	policyID := ids.New()
	edit := EditPolicyOperation{PolicyID: policyID}
	require.Equal(t, OperationEditPolicy, edit.Kind())
	require.Equal(t, ForID(SubsystemRequestPolicy, ActionUpdate, policyID), edit.Resources())

	addUser := AddUserOperation{Name: "new-hire"}
	require.Equal(t, OperationAddUser, addUser.Kind())
	require.Equal(t, ForID(SubsystemUser, ActionCreate, ids.Nil), addUser.Resources())
}

func TestCallExternalCanisterOperationKeysOnSingleCallResource(t *testing.T) {
	exec := CanisterMethod{CanisterID: ids.New(), Method: "transfer"}
	op := CallExternalCanisterOperation{Execution: exec, Validation: NoValidation()}

	require.Equal(t, OperationCallExternalCanister, op.Kind())
	require.Equal(t, []Resource{ForCall(exec, NoValidation())}, op.Resources())
}
