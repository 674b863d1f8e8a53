// Package token implements the supply-managed fungible-asset contract
// from spec.md §4.1: balances, allowances, pause/force-transfer,
// sanctions, and a singular governance principal. It is grounded on the
// Synnergy Network teacher's core/Tokens/base.go balance-table pattern
// (mutex-guarded maps, fmt.Errorf-wrapped failures) and on
// original_source/token/src/lib.rs for exact operation semantics.
package token

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/synnergy-labs/emt-core/internal/account"
	"github.com/synnergy-labs/emt-core/internal/contracterr"
	"github.com/synnergy-labs/emt-core/internal/vmhost"
)

// Fixed token metadata (spec.md §4.1).
const (
	Name     = "Transparent Fungible Token Sample"
	Symbol   = "TFTS"
	Decimals = uint8(18)
)

// Status is the sanction state of an account.
type Status uint8

const (
	StatusNone Status = iota
	StatusFrozen
	StatusBlocked
)

// AccountInfo is the per-account ledger entry.
type AccountInfo struct {
	Balance uint64
	Status  Status
}

func (i AccountInfo) IsBlocked() bool { return i.Status == StatusBlocked }
func (i AccountInfo) IsFrozen() bool  { return i.Status == StatusFrozen }

// GenesisAccount is one entry of the init account list.
type GenesisAccount struct {
	Account account.Account
	Balance uint64
}

var log = logrus.New()

func init() { log.SetLevel(logrus.WarnLevel) }

// SetLogger overrides the package logger.
func SetLogger(l *logrus.Logger) { log = l }

// Token is the fungible-asset state machine.
type Token struct {
	mu          sync.RWMutex
	initialized bool

	accounts   map[account.Account]AccountInfo
	allowances map[account.Account]map[account.Account]uint64
	supply     uint64
	governance account.Account
	paused     bool
}

// New returns an uninitialized Token; call Init before any other
// operation.
func New() *Token {
	return &Token{
		accounts:   make(map[account.Account]AccountInfo),
		allowances: make(map[account.Account]map[account.Account]uint64),
	}
}

// --- lifecycle -------------------------------------------------------

// Init seeds the genesis balances and sets the initial governance
// account. It is callable exactly once (spec.md P10); a repeat call
// fails with ErrAlreadyInitialized and leaves state unchanged.
func (t *Token) Init(accounts []GenesisAccount, governance account.Account, emit func(topic string, payload any)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.initialized {
		return contracterr.ErrAlreadyInitialized
	}

	for _, ga := range accounts {
		info := t.accounts[ga.Account]
		newBalance := info.Balance + ga.Balance
		if newBalance < info.Balance {
			return ErrSupplyOverflow
		}
		newSupply := t.supply + ga.Balance
		if newSupply < t.supply {
			return ErrSupplyOverflow
		}
		info.Balance = newBalance
		t.accounts[ga.Account] = info
		t.supply = newSupply

		emit(TopicMint, TransferEvent{
			Sender:   account.ZeroAddress,
			Receiver: ga.Account,
			Value:    ga.Balance,
		})
	}

	t.governance = governance
	if _, ok := t.accounts[governance]; !ok {
		t.accounts[governance] = AccountInfo{}
	}

	emit(TopicGovernanceTransferred, GovernanceTransferredEvent{
		PreviousGovernance: account.ZeroAddress,
		NewGovernance:      governance,
	})

	t.initialized = true
	return nil
}

// --- pure reads --------------------------------------------------------

func (t *Token) TotalSupply() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.supply
}

func (t *Token) Account(a account.Account) AccountInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.accounts[a]
}

func (t *Token) Allowance(owner, spender account.Account) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.allowances[owner][spender]
}

func (t *Token) IsPaused() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.paused
}

func (t *Token) Governance() account.Account {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.governance
}

func (t *Token) Blocked(a account.Account) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.accounts[a].IsBlocked()
}

func (t *Token) Frozen(a account.Account) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.accounts[a].IsFrozen()
}

// --- authorization -----------------------------------------------------

func (t *Token) authorizeGovernance(h vmhost.Host) error {
	sender, err := account.Resolve(h)
	if err != nil {
		return err
	}
	if !sender.Equal(t.governance) {
		return contracterr.ErrUnauthorized
	}
	return nil
}

// --- economic operations -----------------------------------------------

// Transfer moves value from the resolved sender to receiver, invoking
// the receiver's token_received callback if it is a contract account.
func (t *Token) Transfer(h vmhost.Host, receiver account.Account, value uint64) error {
	sender, err := account.Resolve(h)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.paused {
		t.mu.Unlock()
		return ErrPaused
	}
	senderInfo, ok := t.accounts[sender]
	if !ok {
		t.mu.Unlock()
		return ErrAccountNotFound
	}
	if senderInfo.IsBlocked() {
		t.mu.Unlock()
		return ErrBlocked
	}
	if senderInfo.IsFrozen() {
		t.mu.Unlock()
		return ErrFrozen
	}
	if senderInfo.Balance < value {
		t.mu.Unlock()
		return ErrInsufficientBalance
	}
	receiverInfo := t.accounts[receiver]
	if receiverInfo.IsBlocked() {
		t.mu.Unlock()
		return ErrBlocked
	}

	senderInfo.Balance -= value
	receiverInfo.Balance += value
	t.accounts[sender] = senderInfo
	t.accounts[receiver] = receiverInfo
	t.mu.Unlock()

	h.Emit(TopicTransfer, TransferEvent{Sender: sender, Receiver: receiver, Value: value})

	return t.maybeNotifyReceiver(h, sender, receiver, value)
}

// TransferFrom moves value from owner to receiver using the resolved
// sender's (spender's) allowance.
func (t *Token) TransferFrom(h vmhost.Host, owner, receiver account.Account, value uint64) error {
	spender, err := account.Resolve(h)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.paused {
		t.mu.Unlock()
		return ErrPaused
	}
	spenderInfo := t.accounts[spender]
	if spenderInfo.IsBlocked() {
		t.mu.Unlock()
		return ErrBlocked
	}
	if spenderInfo.IsFrozen() {
		t.mu.Unlock()
		return ErrFrozen
	}

	allowed := t.allowances[owner][spender]
	if allowed < value {
		t.mu.Unlock()
		return ErrInsufficientAllowance
	}

	ownerInfo, ok := t.accounts[owner]
	if !ok {
		t.mu.Unlock()
		return ErrAccountNotFound
	}
	if ownerInfo.IsBlocked() {
		t.mu.Unlock()
		return ErrBlocked
	}
	if ownerInfo.IsFrozen() {
		t.mu.Unlock()
		return ErrFrozen
	}
	if ownerInfo.Balance < value {
		t.mu.Unlock()
		return ErrInsufficientBalance
	}
	receiverInfo := t.accounts[receiver]
	if receiverInfo.IsBlocked() {
		t.mu.Unlock()
		return ErrBlocked
	}

	t.allowances[owner][spender] = allowed - value
	ownerInfo.Balance -= value
	receiverInfo.Balance += value
	t.accounts[owner] = ownerInfo
	t.accounts[receiver] = receiverInfo
	// ensure the spender account entry exists, matching the reference
	// implementation's or_insert on the spender before sanction checks.
	if _, ok := t.accounts[spender]; !ok {
		t.accounts[spender] = AccountInfo{}
	}
	t.mu.Unlock()

	spenderCopy := spender
	h.Emit(TopicTransfer, TransferEvent{Sender: owner, Spender: &spenderCopy, Receiver: receiver, Value: value})

	return t.maybeNotifyReceiver(h, owner, receiver, value)
}

// maybeNotifyReceiver invokes token_received on receiver if it is a
// contract account. A failing callback propagates as an error; the host
// (vmhost.VM.ExecuteRoot) rolls back every mutation made during the
// enclosing transaction when that happens (spec.md §5).
func (t *Token) maybeNotifyReceiver(h vmhost.Host, sender, receiver account.Account, value uint64) error {
	contractID, ok := receiver.ContractID()
	if !ok {
		return nil
	}
	_, err := h.Call(contractID, "token_received", struct {
		Sender account.Account `json:"sender"`
		Value  uint64          `json:"value"`
	}{Sender: sender, Value: value})
	if err != nil {
		return fmt.Errorf("token_received callback failed: %w", err)
	}
	return nil
}

// Approve sets (not increments) the resolved sender's allowance for
// spender.
func (t *Token) Approve(h vmhost.Host, spender account.Account, value uint64) error {
	owner, err := account.Resolve(h)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[account.Account]uint64)
	}
	t.allowances[owner][spender] = value
	t.mu.Unlock()

	h.Emit(TopicApprove, ApproveEvent{Sender: owner, Spender: spender, Value: value})
	return nil
}

// Mint increases supply and receiver's balance. Governance-gated.
func (t *Token) Mint(h vmhost.Host, receiver account.Account, amount uint64) error {
	if err := t.authorizeGovernance(h); err != nil {
		return err
	}

	t.mu.Lock()
	newSupply := t.supply + amount
	if newSupply < t.supply {
		t.mu.Unlock()
		return ErrSupplyOverflow
	}
	info := t.accounts[receiver]
	info.Balance += amount
	t.accounts[receiver] = info
	t.supply = newSupply
	t.mu.Unlock()

	h.Emit(TopicMint, TransferEvent{Sender: account.ZeroAddress, Receiver: receiver, Value: amount})
	return nil
}

// Burn decreases governance's balance and supply. Governance-gated.
func (t *Token) Burn(h vmhost.Host, amount uint64) error {
	if err := t.authorizeGovernance(h); err != nil {
		return err
	}

	t.mu.Lock()
	gov := t.governance
	info, ok := t.accounts[gov]
	if !ok {
		t.mu.Unlock()
		return ErrGovernanceNotFound
	}
	if info.Balance < amount {
		t.mu.Unlock()
		return ErrInsufficientBalance
	}
	info.Balance -= amount
	t.accounts[gov] = info
	t.supply -= amount
	t.mu.Unlock()

	h.Emit(TopicBurn, TransferEvent{Sender: gov, Receiver: account.ZeroAddress, Value: amount})
	return nil
}

// TogglePause flips is_paused. Governance-gated.
func (t *Token) TogglePause(h vmhost.Host) error {
	if err := t.authorizeGovernance(h); err != nil {
		return err
	}
	t.mu.Lock()
	t.paused = !t.paused
	paused := t.paused
	t.mu.Unlock()

	h.Emit(TopicPauseToggled, PauseToggledEvent{Paused: paused})
	return nil
}

// ForceTransfer unconditionally moves value from obliged to receiver,
// ignoring pause and sanctions. Governance-gated.
func (t *Token) ForceTransfer(h vmhost.Host, obliged, receiver account.Account, value uint64) error {
	if err := t.authorizeGovernance(h); err != nil {
		return err
	}

	t.mu.Lock()
	info, ok := t.accounts[obliged]
	if !ok {
		t.mu.Unlock()
		return ErrAccountNotFound
	}
	if info.Balance < value {
		t.mu.Unlock()
		return ErrInsufficientBalance
	}
	info.Balance -= value
	t.accounts[obliged] = info

	receiverInfo := t.accounts[receiver]
	receiverInfo.Balance += value
	t.accounts[receiver] = receiverInfo
	t.mu.Unlock()

	h.Emit(TopicForceTransfer, TransferEvent{Sender: obliged, Receiver: receiver, Value: value})
	return nil
}

func (t *Token) setSanction(h vmhost.Host, a account.Account, want, have Status, wantErr, haveErr error, topic string) error {
	if err := t.authorizeGovernance(h); err != nil {
		return err
	}

	t.mu.Lock()
	info, ok := t.accounts[a]
	if !ok {
		t.mu.Unlock()
		return ErrGovernanceNotFound
	}
	if have != StatusNone && info.Status != have {
		t.mu.Unlock()
		return haveErr
	}
	info.Status = want
	t.accounts[a] = info
	t.mu.Unlock()

	h.Emit(topic, AccountStatusEvent{Account: a})
	return nil
}

// Block sets a's status to BLOCKED. Governance-gated.
func (t *Token) Block(h vmhost.Host, a account.Account) error {
	return t.setSanction(h, a, StatusBlocked, StatusNone, nil, nil, TopicBlocked)
}

// Freeze sets a's status to FROZEN. Governance-gated.
func (t *Token) Freeze(h vmhost.Host, a account.Account) error {
	return t.setSanction(h, a, StatusFrozen, StatusNone, nil, nil, TopicFrozen)
}

// Unblock clears a's BLOCKED status; a must currently be blocked.
func (t *Token) Unblock(h vmhost.Host, a account.Account) error {
	return t.setSanction(h, a, StatusNone, StatusBlocked, nil, ErrNotBlocked, TopicUnblocked)
}

// Unfreeze clears a's FROZEN status; a must currently be frozen.
func (t *Token) Unfreeze(h vmhost.Host, a account.Account) error {
	return t.setSanction(h, a, StatusNone, StatusFrozen, nil, ErrNotFrozen, TopicUnfrozen)
}

// TransferGovernance replaces the governance account. Governance-gated.
func (t *Token) TransferGovernance(h vmhost.Host, newGovernance account.Account) error {
	if err := t.authorizeGovernance(h); err != nil {
		return err
	}

	t.mu.Lock()
	previous := t.governance
	t.governance = newGovernance
	if _, ok := t.accounts[newGovernance]; !ok {
		t.accounts[newGovernance] = AccountInfo{}
	}
	t.mu.Unlock()

	h.Emit(TopicGovernanceTransferred, GovernanceTransferredEvent{PreviousGovernance: previous, NewGovernance: newGovernance})
	return nil
}

// RenounceGovernance sets governance to the terminal ZeroAddress.
// Governance-gated; terminal (spec.md I4).
func (t *Token) RenounceGovernance(h vmhost.Host) error {
	if err := t.authorizeGovernance(h); err != nil {
		return err
	}

	t.mu.Lock()
	previous := t.governance
	t.governance = account.ZeroAddress
	t.mu.Unlock()

	h.Emit(TopicGovernanceRenounced, GovernanceRenouncedEvent{PreviousGovernance: previous})
	return nil
}

// --- ICC dispatch --------------------------------------------------------

type transferArgs struct {
	Receiver account.Account `json:"receiver"`
	Value    uint64          `json:"value"`
}

type transferFromArgs struct {
	Sender   account.Account `json:"sender"`
	Receiver account.Account `json:"receiver"`
	Value    uint64          `json:"value"`
}

type approveArgs struct {
	Spender account.Account `json:"spender"`
	Value   uint64          `json:"value"`
}

type mintArgs struct {
	Receiver account.Account `json:"receiver"`
	Amount   uint64          `json:"amount"`
}

type burnArgs struct {
	Amount uint64 `json:"amount"`
}

type forceTransferArgs struct {
	ObligedSender account.Account `json:"obliged_sender"`
	Receiver      account.Account `json:"receiver"`
	Value         uint64          `json:"value"`
}

type sanctionArgs struct {
	Account account.Account `json:"account"`
}

type transferGovernanceArgs struct {
	NewGovernance account.Account `json:"new_governance"`
}

// Dispatch routes a named ICC call to the corresponding typed operation.
// It is how Governance's operator_token_call and transfer_governance/
// renounce_governance forward to Token over the host's call_raw
// primitive (spec.md §4.2).
func (t *Token) Dispatch(h vmhost.Host, method string, args []byte) ([]byte, error) {
	log.WithFields(logrus.Fields{"method": method}).Debug("token dispatch")
	switch method {
	case "transfer":
		var a transferArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return nil, t.Transfer(h, a.Receiver, a.Value)
	case "transfer_from":
		var a transferFromArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return nil, t.TransferFrom(h, a.Sender, a.Receiver, a.Value)
	case "approve":
		var a approveArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return nil, t.Approve(h, a.Spender, a.Value)
	case "mint":
		var a mintArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return nil, t.Mint(h, a.Receiver, a.Amount)
	case "burn":
		var a burnArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return nil, t.Burn(h, a.Amount)
	case "toggle_pause":
		return nil, t.TogglePause(h)
	case "force_transfer":
		var a forceTransferArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return nil, t.ForceTransfer(h, a.ObligedSender, a.Receiver, a.Value)
	case "block":
		var a sanctionArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return nil, t.Block(h, a.Account)
	case "freeze":
		var a sanctionArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return nil, t.Freeze(h, a.Account)
	case "unblock":
		var a sanctionArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return nil, t.Unblock(h, a.Account)
	case "unfreeze":
		var a sanctionArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return nil, t.Unfreeze(h, a.Account)
	case "transfer_governance":
		var a transferGovernanceArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return nil, t.TransferGovernance(h, a.NewGovernance)
	case "renounce_governance":
		return nil, t.RenounceGovernance(h)
	default:
		return nil, contracterr.New("unknown token method " + method)
	}
}

// --- snapshot / restore ---------------------------------------------------

type snapshot struct {
	initialized bool
	accounts    map[account.Account]AccountInfo
	allowances  map[account.Account]map[account.Account]uint64
	supply      uint64
	governance  account.Account
	paused      bool
}

// Snapshot implements vmhost.Snapshotter.
func (t *Token) Snapshot() any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	accounts := make(map[account.Account]AccountInfo, len(t.accounts))
	for k, v := range t.accounts {
		accounts[k] = v
	}
	allowances := make(map[account.Account]map[account.Account]uint64, len(t.allowances))
	for owner, spenders := range t.allowances {
		cp := make(map[account.Account]uint64, len(spenders))
		for s, v := range spenders {
			cp[s] = v
		}
		allowances[owner] = cp
	}
	return snapshot{
		initialized: t.initialized,
		accounts:    accounts,
		allowances:  allowances,
		supply:      t.supply,
		governance:  t.governance,
		paused:      t.paused,
	}
}

// Restore implements vmhost.Snapshotter.
func (t *Token) Restore(state any) {
	s := state.(snapshot)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.initialized = s.initialized
	t.accounts = s.accounts
	t.allowances = s.allowances
	t.supply = s.supply
	t.governance = s.governance
	t.paused = s.paused
}
