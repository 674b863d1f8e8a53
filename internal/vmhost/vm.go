package vmhost

import (
	"encoding/json"
	"sync"

	"github.com/synnergy-labs/emt-core/internal/account"
)

// Event is a single typed event appended to a transaction receipt.
type Event struct {
	Contract account.ContractID
	Topic    string
	Payload  any
}

// Receipt collects the events emitted during one root-level ExecuteRoot
// call, in emission order.
type Receipt struct {
	Events []Event
}

// VM is the in-memory contract registry and call router. It is the
// "ledger virtual machine" of spec.md §2: execution is synchronous,
// single-threaded per transaction, and every call is recorded on an
// observable call stack.
type VM struct {
	mu        sync.RWMutex
	contracts map[account.ContractID]Contract
}

// New returns an empty VM with no deployed contracts.
func New() *VM {
	return &VM{contracts: make(map[account.ContractID]Contract)}
}

// Deploy registers a contract under the given id, overwriting any
// previous registration. Real deployment addressing/fees are out of
// scope (spec.md §1); tests and the CLI pick ids directly.
func (vm *VM) Deploy(id account.ContractID, c Contract) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.contracts[id] = c
}

func (vm *VM) lookup(id account.ContractID) (Contract, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	c, ok := vm.contracts[id]
	return c, ok
}

func (vm *VM) snapshotAll() map[account.ContractID]any {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	snap := make(map[account.ContractID]any, len(vm.contracts))
	for id, c := range vm.contracts {
		if s, ok := c.(Snapshotter); ok {
			snap[id] = s.Snapshot()
		}
	}
	return snap
}

func (vm *VM) restoreAll(snap map[account.ContractID]any) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	for id, state := range snap {
		if c, ok := vm.contracts[id]; ok {
			if s, ok := c.(Snapshotter); ok {
				s.Restore(state)
			}
		}
	}
}

// frame is the call-stack state threaded through one transaction.
type frame struct {
	origin   account.PublicKey
	originOK bool
	stack    []account.ContractID
}

// callContext implements Host for a single frame of a transaction.
type callContext struct {
	vm      *VM
	fr      frame
	self    account.ContractID
	receipt *Receipt
}

func (c *callContext) PublicSender() (account.PublicKey, bool) { return c.fr.origin, c.fr.originOK }

func (c *callContext) Caller() (account.ContractID, bool) {
	if len(c.fr.stack) < 2 {
		return account.ContractID{}, false
	}
	return c.fr.stack[len(c.fr.stack)-2], true
}

func (c *callContext) Callstack() []account.ContractID {
	out := make([]account.ContractID, len(c.fr.stack))
	copy(out, c.fr.stack)
	return out
}

func (c *callContext) SelfID() account.ContractID { return c.self }

func (c *callContext) Emit(topic string, payload any) {
	c.receipt.Events = append(c.receipt.Events, Event{Contract: c.self, Topic: topic, Payload: payload})
	log.WithFields(map[string]any{"contract": c.self.String(), "topic": topic}).Debug("event emitted")
}

func (c *callContext) VerifyBLSMultisig(msg []byte, pks []account.PublicKey, sig []byte) bool {
	return verifyMultisig(msg, pks, sig)
}

func (c *callContext) CallRaw(contract account.ContractID, method string, args []byte) ([]byte, error) {
	target, ok := c.vm.lookup(contract)
	if !ok {
		return nil, errContractNotDeployed(contract)
	}
	child := &callContext{
		vm:      c.vm,
		fr:      frame{origin: c.fr.origin, originOK: c.fr.originOK, stack: append(append([]account.ContractID(nil), c.fr.stack...), contract)},
		self:    contract,
		receipt: c.receipt,
	}
	log.WithFields(map[string]any{"from": c.self.String(), "to": contract.String(), "method": method}).Debug("icc call")
	return target.Dispatch(child, method, args)
}

func (c *callContext) Call(contract account.ContractID, method string, args any) (any, error) {
	encoded, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	out, err := c.CallRaw(contract, method, encoded)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(out, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// ExecuteRoot simulates a transaction originated by the protocol
// transfer contract: it invokes method on the target contract with a
// depth-1 call stack (so the sender-resolution rule in package account
// resolves the caller as External(origin)), and rolls back every
// Snapshotter-implementing contract touched during the call if it
// returns an error — the host's transactional commit semantics from
// spec.md §5.
func (vm *VM) ExecuteRoot(origin account.PublicKey, hasOrigin bool, target account.ContractID, method string, args []byte) ([]byte, *Receipt, error) {
	contract, ok := vm.lookup(target)
	if !ok {
		return nil, nil, errContractNotDeployed(target)
	}

	snapshot := vm.snapshotAll()
	receipt := &Receipt{}
	root := &callContext{
		vm:      vm,
		fr:      frame{origin: origin, originOK: hasOrigin, stack: []account.ContractID{target}},
		self:    target,
		receipt: receipt,
	}
	out, err := contract.Dispatch(root, method, args)
	if err != nil {
		vm.restoreAll(snapshot)
		return nil, nil, err
	}
	return out, receipt, nil
}

// ExecuteShielded simulates a call with no public sender available,
// exercising the ErrShielded rejection path.
func (vm *VM) ExecuteShielded(target account.ContractID, method string, args []byte) ([]byte, *Receipt, error) {
	return vm.ExecuteRoot(account.PublicKey{}, false, target, method, args)
}
