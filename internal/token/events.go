package token

import "github.com/synnergy-labs/emt-core/internal/account"

// Event topic strings, reproduced bit-exact from spec.md §6.
const (
	TopicTransfer              = "transfer"
	TopicForceTransfer         = "force_transfer"
	TopicMint                  = "mint"
	TopicBurn                  = "burn"
	TopicApprove               = "approve"
	TopicPauseToggled          = "pause_toggled"
	TopicGovernanceTransferred = "governance_transferred"
	TopicGovernanceRenounced   = "governance_renounced"
	TopicBlocked               = "blocked"
	TopicUnblocked             = "unblocked"
	TopicFrozen                = "frozen"
	TopicUnfrozen              = "unfrozen"
)

// TransferEvent is emitted by transfer, transfer_from, mint, burn, and
// force_transfer. Spender is only set for transfer_from.
type TransferEvent struct {
	Sender   account.Account  `json:"sender"`
	Spender  *account.Account `json:"spender,omitempty"`
	Receiver account.Account  `json:"receiver"`
	Value    uint64           `json:"value"`
}

// ApproveEvent is emitted by approve.
type ApproveEvent struct {
	Sender  account.Account `json:"sender"`
	Spender account.Account `json:"spender"`
	Value   uint64          `json:"value"`
}

// PauseToggledEvent is emitted by toggle_pause.
type PauseToggledEvent struct {
	Paused bool `json:"paused"`
}

// GovernanceTransferredEvent is emitted by init and transfer_governance.
type GovernanceTransferredEvent struct {
	PreviousGovernance account.Account `json:"previous_governance"`
	NewGovernance      account.Account `json:"new_governance"`
}

// GovernanceRenouncedEvent is emitted by renounce_governance.
type GovernanceRenouncedEvent struct {
	PreviousGovernance account.Account `json:"previous_governance"`
}

// AccountStatusEvent is emitted by block/unblock/freeze/unfreeze.
type AccountStatusEvent struct {
	Account account.Account `json:"account"`
}
