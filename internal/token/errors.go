package token

import "github.com/synnergy-labs/emt-core/internal/contracterr"

// Panic strings reproduced verbatim from spec.md §6 / the owners-generation
// vocabulary of original_source/token/src/lib.rs and core/src/token/error.rs.
var (
	ErrInsufficientBalance   = contracterr.New("The account doesn't have enough tokens")
	ErrAccountNotFound       = contracterr.New("The account does not exist")
	ErrGovernanceNotFound    = contracterr.New("The governance does not exist")
	ErrSupplyOverflow        = contracterr.New("Supply overflow")
	ErrBlocked               = contracterr.New("Account is blocked")
	ErrFrozen                = contracterr.New("Account is frozen")
	ErrPaused                = contracterr.New("Contract is paused")
	ErrNotBlocked            = contracterr.New("The account is not blocked")
	ErrNotFrozen             = contracterr.New("The account is not frozen")
	ErrInvalidSanction       = contracterr.New("Invalid sanction type")
	ErrInsufficientAllowance = contracterr.New("The allowance is insufficient")
)
