package governance

import "github.com/synnergy-labs/emt-core/internal/contracterr"

// Panic strings reproduced verbatim from spec.md §6, owners/governance
// naming generation (see DESIGN.md for the admins/ownership consolidation
// decision).
var (
	ErrOwnerSetEmpty          = contracterr.New("The owner-set must not be empty")
	ErrDuplicateOwnerKey      = contracterr.New("Duplicate owner-key found")
	ErrDuplicateOperatorKey   = contracterr.New("Duplicate operator-key found")
	ErrDuplicateSigner        = contracterr.New("Duplicate signer-key found")
	ErrSignerNotFound         = contracterr.New("The given signer doesn't exist")
	ErrThresholdNotMet        = contracterr.New("The required threshold of signatures has not been met")
	ErrThresholdZero          = contracterr.New("The threshold shouldn't be 0 at authorization")
	ErrInvalidSignature       = contracterr.New("The signature is invalid")
	ErrTokenCallNotRegistered = contracterr.New("The given token-contract call is not registered")
	ErrReservedTokenCall      = contracterr.New("This inter-contract call need owners authorization")
	ErrOperatorTokenCallPanic = contracterr.New("operator token call panic")
	ErrKeySetTooLarge         = contracterr.New("key set exceeds the maximum of 255 entries")
)
