// Package governance implements the BLS-multisig router from spec.md
// §4.2: two disjoint principal sets (owners, operators) authorize
// distinct families of calls against a managed Token contract, with
// nonce-based replay protection and per-call configurable thresholds.
// It is grounded on the Synnergy teacher's core/access_control.go
// role-gated mutation pattern and on original_source/governance/src/
// state.rs for exact authorization and nonce semantics.
package governance

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/synnergy-labs/emt-core/internal/account"
	"github.com/synnergy-labs/emt-core/internal/contracterr"
	"github.com/synnergy-labs/emt-core/internal/vmhost"
)

const maxKeySetSize = 255

// reservedOwnerCalls is the static set operator_token_calls may never
// contain (spec.md G2): it would let operators bypass the owner
// supermajority invariant via the generic operator_token_call channel.
var reservedOwnerCalls = map[string]bool{
	"transfer_governance": true,
	"renounce_governance": true,
}

var log = logrus.New()

func init() { log.SetLevel(logrus.WarnLevel) }

// SetLogger overrides the package logger.
func SetLogger(l *logrus.Logger) { log = l }

// OperatorCallThreshold is one entry of the init call-threshold table.
type OperatorCallThreshold struct {
	Name      string
	Threshold uint8
}

// Governance is the multisig router state machine.
type Governance struct {
	mu          sync.RWMutex
	initialized bool

	tokenContract account.ContractID
	owners        []account.PublicKey
	ownerNonce    uint64
	operators     []account.PublicKey
	operatorNonce uint64

	operatorTokenCalls map[string]uint8
}

// New returns an uninitialized Governance; call Init before any other
// operation.
func New() *Governance {
	return &Governance{operatorTokenCalls: make(map[string]uint8)}
}

// --- generic helpers -----------------------------------------------------

// Supermajority computes ⌊n/2⌋+1 for 1 ≤ n ≤ 255 (spec.md P9).
func Supermajority(n int) (int, error) {
	if n < 1 || n > maxKeySetSize {
		return 0, contracterr.New("supermajority: n out of range")
	}
	return n/2 + 1, nil
}

func containsDuplicates(keys []account.PublicKey) bool {
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if keys[i] == keys[j] {
				return true
			}
		}
	}
	return false
}

func containsDuplicateIdx(idx []uint8) bool {
	for i := 0; i < len(idx); i++ {
		for j := i + 1; j < len(idx); j++ {
			if idx[i] == idx[j] {
				return true
			}
		}
	}
	return false
}

func maxIdx(idx []uint8) int {
	m := -1
	for _, v := range idx {
		if int(v) > m {
			m = int(v)
		}
	}
	return m
}

// authorize implements the shared authorization algorithm from spec.md
// §4.2: duplicate-signer check, bounds check, threshold-met check, key
// projection, and aggregate BLS verification.
func authorize(h vmhost.Host, threshold int, msg []byte, sig []byte, signerIdx []uint8, family []account.PublicKey) error {
	if threshold <= 0 {
		return ErrThresholdZero
	}
	if containsDuplicateIdx(signerIdx) {
		return ErrDuplicateSigner
	}
	if maxIdx(signerIdx) >= len(family) {
		return ErrSignerNotFound
	}
	if len(signerIdx) < threshold {
		return ErrThresholdNotMet
	}
	pks := make([]account.PublicKey, len(signerIdx))
	for i, idx := range signerIdx {
		pks[i] = family[idx]
	}
	if !h.VerifyBLSMultisig(msg, pks, sig) {
		return ErrInvalidSignature
	}
	return nil
}

func validateKeySet(keys []account.PublicKey, emptyErr, dupErr error, allowEmpty bool) error {
	if !allowEmpty && len(keys) == 0 {
		return emptyErr
	}
	if len(keys) > maxKeySetSize {
		return ErrKeySetTooLarge
	}
	if containsDuplicates(keys) {
		return dupErr
	}
	return nil
}

// --- lifecycle -------------------------------------------------------------

// Init seeds the managed token, the owner/operator key sets, and the
// initial operator call-threshold table. Callable exactly once
// (spec.md P10).
func (g *Governance) Init(tokenContract account.ContractID, owners, operators []account.PublicKey, calls []OperatorCallThreshold, emit func(topic string, payload any)) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.initialized {
		return contracterr.ErrAlreadyInitialized
	}
	if err := validateKeySet(owners, ErrOwnerSetEmpty, ErrDuplicateOwnerKey, false); err != nil {
		return err
	}
	if err := validateKeySet(operators, nil, ErrDuplicateOperatorKey, true); err != nil {
		return err
	}
	for _, c := range calls {
		if reservedOwnerCalls[c.Name] {
			return ErrReservedTokenCall
		}
	}

	g.tokenContract = tokenContract
	g.owners = append([]account.PublicKey(nil), owners...)
	g.operators = append([]account.PublicKey(nil), operators...)
	g.operatorTokenCalls = make(map[string]uint8, len(calls))
	for _, c := range calls {
		g.operatorTokenCalls[c.Name] = c.Threshold
	}

	emit(TopicNewTokenContract, NewTokenContractEvent{TokenContract: tokenContract})
	emit(TopicNewOwners, NewOwnersEvent{Owners: g.owners})
	emit(TopicNewOperators, NewOperatorsEvent{Operators: g.operators})
	for _, c := range calls {
		emit(TopicUpdateTokenCallDatum, UpdateTokenCallEvent{Name: c.Name, Threshold: c.Threshold})
	}

	g.initialized = true
	return nil
}

// --- reads -------------------------------------------------------------

func (g *Governance) TokenContract() account.ContractID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tokenContract
}

func (g *Governance) Owners() []account.PublicKey {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]account.PublicKey(nil), g.owners...)
}

func (g *Governance) Operators() []account.PublicKey {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]account.PublicKey(nil), g.operators...)
}

func (g *Governance) OwnerNonce() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ownerNonce
}

func (g *Governance) OperatorNonce() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.operatorNonce
}

// OperatorSignatureThreshold returns the stored threshold for name, with
// 0 resolved to the current supermajority-of-operators, and false if
// name is not registered.
func (g *Governance) OperatorSignatureThreshold(name string) (uint8, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.operatorTokenCalls[name]
	if !ok {
		return 0, false
	}
	if t == 0 {
		sm, err := Supermajority(len(g.operators))
		if err != nil {
			return 0, false
		}
		return uint8(sm), true
	}
	return t, true
}

// --- owner-family operations -------------------------------------------

func (g *Governance) ownerThreshold() (int, error) {
	return Supermajority(len(g.owners))
}

// SetTokenContract repoints the managed Token. Owner-gated.
func (g *Governance) SetTokenContract(h vmhost.Host, newID account.ContractID, sig []byte, signerIdx []uint8) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	threshold, err := g.ownerThreshold()
	if err != nil {
		return err
	}
	msg := setTokenContractMessage(g.ownerNonce, newID)
	if err := authorize(h, threshold, msg, sig, signerIdx, g.owners); err != nil {
		return err
	}

	g.tokenContract = newID
	g.ownerNonce++
	h.Emit(TopicNewTokenContract, NewTokenContractEvent{TokenContract: newID})
	return nil
}

// SetOwners replaces the owner key set. Owner-gated; after success, no
// message signed by the previous owner set verifies again (spec.md G4).
func (g *Governance) SetOwners(h vmhost.Host, newOwners []account.PublicKey, sig []byte, signerIdx []uint8) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := validateKeySet(newOwners, ErrOwnerSetEmpty, ErrDuplicateOwnerKey, false); err != nil {
		return err
	}
	threshold, err := g.ownerThreshold()
	if err != nil {
		return err
	}
	msg := keySetMessage(g.ownerNonce, newOwners)
	if err := authorize(h, threshold, msg, sig, signerIdx, g.owners); err != nil {
		return err
	}

	g.owners = append([]account.PublicKey(nil), newOwners...)
	g.ownerNonce++
	h.Emit(TopicNewOwners, NewOwnersEvent{Owners: g.owners})
	return nil
}

// SetOperators replaces the operator key set. Owner-gated.
func (g *Governance) SetOperators(h vmhost.Host, newOperators []account.PublicKey, sig []byte, signerIdx []uint8) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := validateKeySet(newOperators, nil, ErrDuplicateOperatorKey, true); err != nil {
		return err
	}
	threshold, err := g.ownerThreshold()
	if err != nil {
		return err
	}
	msg := keySetMessage(g.ownerNonce, newOperators)
	if err := authorize(h, threshold, msg, sig, signerIdx, g.owners); err != nil {
		return err
	}

	g.operators = append([]account.PublicKey(nil), newOperators...)
	g.ownerNonce++
	h.Emit(TopicNewOperators, NewOperatorsEvent{Operators: g.operators})
	return nil
}

// SetOperatorTokenCall registers or updates the threshold for name.
// Owner-gated; name must not be a reserved owner-only call (spec.md G2).
func (g *Governance) SetOperatorTokenCall(h vmhost.Host, name string, threshold uint8, sig []byte, signerIdx []uint8) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if reservedOwnerCalls[name] {
		return ErrReservedTokenCall
	}
	ownerThreshold, err := g.ownerThreshold()
	if err != nil {
		return err
	}
	msg := setOperatorTokenCallMessage(g.ownerNonce, name, threshold)
	if err := authorize(h, ownerThreshold, msg, sig, signerIdx, g.owners); err != nil {
		return err
	}

	g.operatorTokenCalls[name] = threshold
	g.ownerNonce++
	h.Emit(TopicUpdateTokenCallDatum, UpdateTokenCallEvent{Name: name, Threshold: threshold})
	return nil
}

// TransferGovernance authorizes an owner supermajority to replace
// Token's governance principal, then forwards the change to Token by
// inter-contract call.
func (g *Governance) TransferGovernance(h vmhost.Host, newGovernance account.Account, sig []byte, signerIdx []uint8) error {
	g.mu.Lock()
	threshold, err := g.ownerThreshold()
	if err != nil {
		g.mu.Unlock()
		return err
	}
	msg := transferGovernanceMessage(g.ownerNonce, newGovernance)
	if err := authorize(h, threshold, msg, sig, signerIdx, g.owners); err != nil {
		g.mu.Unlock()
		return err
	}
	g.ownerNonce++
	tokenContract := g.tokenContract
	g.mu.Unlock()

	_, err = h.Call(tokenContract, "transfer_governance", struct {
		NewGovernance account.Account `json:"new_governance"`
	}{NewGovernance: newGovernance})
	return err
}

// RenounceGovernance authorizes an owner supermajority to terminally
// zero Token's governance principal.
func (g *Governance) RenounceGovernance(h vmhost.Host, sig []byte, signerIdx []uint8) error {
	g.mu.Lock()
	threshold, err := g.ownerThreshold()
	if err != nil {
		g.mu.Unlock()
		return err
	}
	msg := renounceGovernanceMessage(g.ownerNonce)
	if err := authorize(h, threshold, msg, sig, signerIdx, g.owners); err != nil {
		g.mu.Unlock()
		return err
	}
	g.ownerNonce++
	tokenContract := g.tokenContract
	g.mu.Unlock()

	_, err = h.Call(tokenContract, "renounce_governance", struct{}{})
	return err
}

// --- operator-family operations -----------------------------------------

// OperatorTokenCall authorizes the registered threshold for name (or
// supermajority-of-operators if stored as 0) and forwards (name, args)
// to the managed Token by raw inter-contract call.
func (g *Governance) OperatorTokenCall(h vmhost.Host, name string, args []byte, sig []byte, signerIdx []uint8) ([]byte, error) {
	g.mu.Lock()
	stored, ok := g.operatorTokenCalls[name]
	if !ok {
		g.mu.Unlock()
		return nil, ErrTokenCallNotRegistered
	}
	threshold := int(stored)
	if stored == 0 {
		sm, err := Supermajority(len(g.operators))
		if err != nil {
			g.mu.Unlock()
			return nil, err
		}
		threshold = sm
	}

	msg := operatorTokenCallMessage(g.operatorNonce, name, args)
	if err := authorize(h, threshold, msg, sig, signerIdx, g.operators); err != nil {
		g.mu.Unlock()
		return nil, err
	}
	g.operatorNonce++
	tokenContract := g.tokenContract
	g.mu.Unlock()

	out, err := h.CallRaw(tokenContract, name, args)
	if err != nil {
		return nil, ErrOperatorTokenCallPanic
	}
	return out, nil
}

// --- ICC dispatch --------------------------------------------------------

type setTokenContractArgs struct {
	NewID     account.ContractID `json:"new_id"`
	Sig       []byte             `json:"sig"`
	SignerIdx []uint8            `json:"signer_idx"`
}

type setKeysArgs struct {
	Keys      []account.PublicKey `json:"keys"`
	Sig       []byte              `json:"sig"`
	SignerIdx []uint8             `json:"signer_idx"`
}

type transferGovernanceArgs struct {
	NewGovernance account.Account `json:"new_governance"`
	Sig           []byte          `json:"sig"`
	SignerIdx     []uint8         `json:"signer_idx"`
}

type signedOnlyArgs struct {
	Sig       []byte  `json:"sig"`
	SignerIdx []uint8 `json:"signer_idx"`
}

type operatorTokenCallArgs struct {
	Name      string  `json:"name"`
	Args      []byte  `json:"args"`
	Sig       []byte  `json:"sig"`
	SignerIdx []uint8 `json:"signer_idx"`
}

type setOperatorTokenCallArgs struct {
	Name      string  `json:"name"`
	Threshold uint8   `json:"threshold"`
	Sig       []byte  `json:"sig"`
	SignerIdx []uint8 `json:"signer_idx"`
}

// Dispatch routes a named ICC call, used the same way Token's Dispatch
// is (spec.md §6 "each operation is exported by name").
func (g *Governance) Dispatch(h vmhost.Host, method string, args []byte) ([]byte, error) {
	log.WithFields(logrus.Fields{"method": method}).Debug("governance dispatch")
	switch method {
	case "set_token_contract":
		var a setTokenContractArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return nil, g.SetTokenContract(h, a.NewID, a.Sig, a.SignerIdx)
	case "set_owners":
		var a setKeysArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return nil, g.SetOwners(h, a.Keys, a.Sig, a.SignerIdx)
	case "set_operators":
		var a setKeysArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return nil, g.SetOperators(h, a.Keys, a.Sig, a.SignerIdx)
	case "transfer_governance":
		var a transferGovernanceArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return nil, g.TransferGovernance(h, a.NewGovernance, a.Sig, a.SignerIdx)
	case "renounce_governance":
		var a signedOnlyArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return nil, g.RenounceGovernance(h, a.Sig, a.SignerIdx)
	case "operator_token_call":
		var a operatorTokenCallArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return g.OperatorTokenCall(h, a.Name, a.Args, a.Sig, a.SignerIdx)
	case "set_operator_token_call":
		var a setOperatorTokenCallArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return nil, g.SetOperatorTokenCall(h, a.Name, a.Threshold, a.Sig, a.SignerIdx)
	default:
		return nil, contracterr.New("unknown governance method " + method)
	}
}

// --- snapshot / restore ---------------------------------------------------

type snapshot struct {
	initialized        bool
	tokenContract      account.ContractID
	owners             []account.PublicKey
	ownerNonce         uint64
	operators          []account.PublicKey
	operatorNonce      uint64
	operatorTokenCalls map[string]uint8
}

// Snapshot implements vmhost.Snapshotter: any operator_token_call whose
// forwarded Token ICC fails rolls back the already-incremented nonce
// along with Token's own mutation, since both snapshots are restored
// together by vmhost.VM.ExecuteRoot.
func (g *Governance) Snapshot() any {
	g.mu.RLock()
	defer g.mu.RUnlock()

	calls := make(map[string]uint8, len(g.operatorTokenCalls))
	for k, v := range g.operatorTokenCalls {
		calls[k] = v
	}
	return snapshot{
		initialized:        g.initialized,
		tokenContract:      g.tokenContract,
		owners:             append([]account.PublicKey(nil), g.owners...),
		ownerNonce:         g.ownerNonce,
		operators:          append([]account.PublicKey(nil), g.operators...),
		operatorNonce:      g.operatorNonce,
		operatorTokenCalls: calls,
	}
}

// Restore implements vmhost.Snapshotter.
func (g *Governance) Restore(state any) {
	s := state.(snapshot)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initialized = s.initialized
	g.tokenContract = s.tokenContract
	g.owners = s.owners
	g.ownerNonce = s.ownerNonce
	g.operators = s.operators
	g.operatorNonce = s.operatorNonce
	g.operatorTokenCalls = s.operatorTokenCalls
}
