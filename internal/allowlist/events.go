package allowlist

import "github.com/synnergy-labs/emt-core/internal/account"

// Event topic strings reproduced bit-exact from spec.md §6.
const (
	TopicNewAddressRegistered = "new_address_registered"
	TopicAddressRemoved       = "address_removed"
	TopicRoleUpdated          = "role_updated"
	TopicOwnershipTransferred = "ownership_transferred"
	TopicOwnershipRenounced   = "ownership_renounced"
)

// RegisteredEvent is emitted by init and register.
type RegisteredEvent struct {
	Address Address `json:"address"`
	Role    Role    `json:"role"`
}

// RemovedEvent is emitted by remove.
type RemovedEvent struct {
	Address Address `json:"address"`
}

// RoleUpdatedEvent is emitted by update.
type RoleUpdatedEvent struct {
	Address Address `json:"address"`
	Role    Role    `json:"role"`
}

// OwnershipTransferredEvent is emitted by init and transfer_ownership.
type OwnershipTransferredEvent struct {
	PreviousOwnership account.Account `json:"previous_ownership"`
	NewOwnership      account.Account `json:"new_ownership"`
}

// OwnershipRenouncedEvent is emitted by renounce_ownership.
type OwnershipRenouncedEvent struct {
	PreviousOwnership account.Account `json:"previous_ownership"`
}
