package governance

import "github.com/synnergy-labs/emt-core/internal/account"

// Event topic strings reproduced bit-exact from spec.md §6.
const (
	TopicNewTokenContract     = "new_token-contract"
	TopicNewOwners            = "new_owners"
	TopicNewOperators         = "new_operators"
	TopicUpdateTokenCallDatum = "update_token-contract_call"
)

// NewTokenContractEvent is emitted by init and set_token_contract.
type NewTokenContractEvent struct {
	TokenContract account.ContractID `json:"token_contract"`
}

// NewOwnersEvent is emitted by init and set_owners.
type NewOwnersEvent struct {
	Owners []account.PublicKey `json:"owners"`
}

// NewOperatorsEvent is emitted by init and set_operators.
type NewOperatorsEvent struct {
	Operators []account.PublicKey `json:"operators"`
}

// UpdateTokenCallEvent is emitted once per registered call name, by init
// and set_operator_token_call.
type UpdateTokenCallEvent struct {
	Name      string `json:"name"`
	Threshold uint8  `json:"threshold"`
}
