package allowlist

import "github.com/synnergy-labs/emt-core/internal/contracterr"

// Panic strings reproduced verbatim from spec.md §6.
var (
	ErrAlreadyRegistered = contracterr.New("The user's address is already registered")
	ErrNotFound          = contracterr.New("The given address doesn't exist")
)
