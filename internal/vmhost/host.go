// Package vmhost is a deterministic, single-threaded simulation of the
// ledger VM host ABI described in spec.md §6. It stands in for the real
// host (serialization codec, persistence, gas metering, event emission
// primitive, ICC stack, BLS verification primitive) so Token, Governance,
// and Allowlist can be exercised without a full chain runtime, while
// preserving the call-stack and rollback semantics those contracts
// actually depend on.
package vmhost

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/synnergy-labs/emt-core/internal/account"
	"github.com/synnergy-labs/emt-core/internal/blscrypto"
)

// Host is the subset of the VM ABI a contract method needs. It embeds
// account.Host so the shared sender-resolution rule in package account
// works unmodified against it.
type Host interface {
	account.Host

	// SelfID returns the identifier of the contract currently executing.
	SelfID() account.ContractID

	// Emit appends a typed event to the transaction receipt in emission
	// order.
	Emit(topic string, payload any)

	// Call performs a JSON-codec inter-contract call and decodes the
	// result into a generic value.
	Call(contract account.ContractID, method string, args any) (any, error)

	// CallRaw performs an inter-contract call with pre-encoded
	// arguments, returning the raw encoded result.
	CallRaw(contract account.ContractID, method string, args []byte) ([]byte, error)

	// VerifyBLSMultisig verifies an aggregated BLS signature against msg
	// and the ordered set of public keys.
	VerifyBLSMultisig(msg []byte, pks []account.PublicKey, sig []byte) bool
}

// Contract is implemented by every deployable state machine (Token,
// Governance, Allowlist, and test receiver contracts). Dispatch routes a
// named operation with JSON-encoded arguments and returns a JSON-encoded
// result, mirroring the host's "export by name, canonical codec" wire
// contract from spec.md §6.
type Contract interface {
	Dispatch(h Host, method string, args []byte) ([]byte, error)
}

// Snapshotter is optionally implemented by a Contract whose state must
// support the host's transactional commit: if a transaction's top-level
// call ultimately fails (e.g. a token_received callback errors), every
// snapshotting contract touched during that transaction is restored to
// its pre-call state (spec.md §5).
type Snapshotter interface {
	Snapshot() any
	Restore(any)
}

var log = logrus.New()

func init() { log.SetLevel(logrus.WarnLevel) }

// SetLogger overrides the package logger, the way Synnergy's
// core/security.go exposes SetSecurityLogger for its own crypto package.
func SetLogger(l *logrus.Logger) { log = l }

// blsPublicKeys adapts []account.PublicKey to the fixed-array shape
// internal/blscrypto expects.
func blsPublicKeys(pks []account.PublicKey) [][96]byte {
	out := make([][96]byte, len(pks))
	for i, pk := range pks {
		out[i] = [96]byte(pk)
	}
	return out
}

func verifyMultisig(msg []byte, pks []account.PublicKey, sig []byte) bool {
	return blscrypto.VerifyMultisig(msg, blsPublicKeys(pks), sig)
}

// errContractNotDeployed builds the error CallRaw/ExecuteRoot return when
// the target contract id has no registered Contract.
func errContractNotDeployed(id account.ContractID) error {
	return fmt.Errorf("call %s: contract not deployed", id)
}
