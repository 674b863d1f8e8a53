// Package contracterr carries the exact panic strings spec.md §6
// requires contracts to reproduce verbatim. A real on-chain VM aborts the
// frame with a textual reason (ContractError::Panic); this module's
// idiomatic-Go analogue is an ordinary sentinel error value returned up
// the call chain, which internal/vmhost treats the same way the host
// would treat a panic: the enclosing transaction is rolled back.
package contracterr

import "errors"

// Error is a contract-level abort with a fixed, test-asserted message.
type Error struct {
	msg string
}

func (e *Error) Error() string { return e.msg }

// New returns a contract error carrying msg verbatim.
func New(msg string) error { return &Error{msg: msg} }

// Shared across Token, Governance, and Allowlist: every contract's init
// is idempotent-rejecting with this exact message.
var ErrAlreadyInitialized = New("The contract has already been initialized")

// Shared authorization-failure message for ownership/governance-gated
// operations on Token and Allowlist.
var ErrUnauthorized = New("Unauthorized account")

// Is reports whether err is (or wraps) a contracterr.Error with the same
// message as target.
func Is(err, target error) bool {
	return errors.Is(err, target) || (err != nil && target != nil && err.Error() == target.Error())
}
