package request

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"ctrlplane/internal/model"
)

// encodeResource derives a fixed-width, collision-resistant index key for a
// Resource by hashing its canonical field encoding, the same way
// loyaltyGlobalKeyBytes = ethcrypto.Keccak256(...) derives fixed-width keys
// for variable-shaped values in core/state/manager.go.
//
// For ExternalCanister Call resources the canister-id/method components are
// encoded first, un-hashed, so a prefix scan over just the execution_method
// bytes reaches both wildcard- and specific-validation entries before the
// validation_method suffix is hashed in, matching §4.3's "sorted by
// (execution_method, validation_method) so ... both are reachable via a
// prefix scan".
func encodeResource(r model.Resource) []byte {
	if r.Subsystem == model.SubsystemExternalCanister && r.Action == model.ActionCall {
		return encodeCallResource(r)
	}
	buf := make([]byte, 0, 64)
	buf = append(buf, []byte(r.Subsystem)...)
	buf = append(buf, 0)
	buf = append(buf, []byte(r.Action)...)
	buf = append(buf, 0)
	if r.Target.Any {
		buf = append(buf, 0x00)
	} else {
		buf = append(buf, 0x01)
		buf = append(buf, r.Target.ID[:]...)
	}
	return ethcrypto.Keccak256(buf)
}

// callResourcePrefix returns the un-hashed execution-method prefix shared
// by every validation variant of a given execution method, enabling the
// §4.3 prefix scan.
func callResourcePrefix(execution model.CanisterMethod) []byte {
	buf := make([]byte, 0, 32)
	buf = append(buf, execution.CanisterID[:]...)
	methodLen := make([]byte, 2)
	binary.BigEndian.PutUint16(methodLen, uint16(len(execution.Method)))
	buf = append(buf, methodLen...)
	buf = append(buf, []byte(execution.Method)...)
	return buf
}

func encodeCallResource(r model.Resource) []byte {
	buf := callResourcePrefix(r.ExecutionMethod)
	if r.ValidationMethod.None {
		buf = append(buf, 0x00)
	} else {
		buf = append(buf, 0x01)
		buf = append(buf, ethcrypto.Keccak256(callResourcePrefix(r.ValidationMethod.Method))...)
	}
	return buf
}
