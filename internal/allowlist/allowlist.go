// Package allowlist implements the ownable user→role directory from
// spec.md §4.3 — a simpler cousin of Governance used as a policy
// oracle. It is grounded on the Synnergy teacher's core/access_control.go
// role-grant/revoke pattern and on original_source/allowlist/src/state.rs
// for exact init and mutation semantics.
package allowlist

import (
	"encoding/hex"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/synnergy-labs/emt-core/internal/account"
	"github.com/synnergy-labs/emt-core/internal/contracterr"
	"github.com/synnergy-labs/emt-core/internal/vmhost"
)

// AddressSize/RoleSize are spec.md's opaque 32-byte tag width; their
// derivation from a real Account or string is left external (spec.md §9
// Open Questions).
const (
	AddressSize = 32
	RoleSize    = 32
)

// Address is an opaque user identifier.
type Address [AddressSize]byte

func (a Address) String() string { return hex.EncodeToString(a[:]) }

// Role is an opaque policy tag.
type Role [RoleSize]byte

func (r Role) String() string { return hex.EncodeToString(r[:]) }

// Entry is one (address, role) pair accepted by Init or Register.
type Entry struct {
	Address Address
	Role    Role
}

var log = logrus.New()

func init() { log.SetLevel(logrus.WarnLevel) }

// SetLogger overrides the package logger.
func SetLogger(l *logrus.Logger) { log = l }

// Allowlist is the ownable directory state machine.
type Allowlist struct {
	mu          sync.RWMutex
	initialized bool

	allowed   map[Address]Role
	ownership account.Account
}

// New returns an uninitialized Allowlist; call Init before any other
// operation.
func New() *Allowlist {
	return &Allowlist{allowed: make(map[Address]Role), ownership: account.ZeroAddress}
}

// Init seeds the directory and the owning account. Callable exactly
// once: a repeat call, or one made while entries already exist or
// ownership is already set, is rejected (spec.md §4.3).
func (a *Allowlist) Init(entries []Entry, ownership account.Account, emit func(topic string, payload any)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized || len(a.allowed) > 0 || !a.ownership.IsZero() {
		return contracterr.ErrAlreadyInitialized
	}

	for _, e := range entries {
		if _, exists := a.allowed[e.Address]; exists {
			return ErrAlreadyRegistered
		}
		a.allowed[e.Address] = e.Role
		emit(TopicNewAddressRegistered, RegisteredEvent{Address: e.Address, Role: e.Role})
	}

	a.ownership = ownership
	emit(TopicOwnershipTransferred, OwnershipTransferredEvent{
		PreviousOwnership: account.ZeroAddress,
		NewOwnership:      ownership,
	})

	a.initialized = true
	return nil
}

// --- reads -------------------------------------------------------------

// IsAllowed reports whether addr has any registered role.
func (a *Allowlist) IsAllowed(addr Address) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.allowed[addr]
	return ok
}

// HasRole returns addr's registered role, and whether it exists.
func (a *Allowlist) HasRole(addr Address) (Role, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.allowed[addr]
	return r, ok
}

// Ownership returns the current owning account.
func (a *Allowlist) Ownership() account.Account {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ownership
}

// --- authorization -----------------------------------------------------

func (a *Allowlist) authorizeOwner(h vmhost.Host) error {
	sender, err := account.Resolve(h)
	if err != nil {
		return err
	}
	if !sender.Equal(a.ownership) {
		return contracterr.ErrUnauthorized
	}
	return nil
}

// --- mutations -----------------------------------------------------------

// Register adds a new (addr, role) pair. Ownership-gated; addr must not
// already exist.
func (a *Allowlist) Register(h vmhost.Host, addr Address, role Role) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.authorizeOwner(h); err != nil {
		return err
	}
	if _, exists := a.allowed[addr]; exists {
		return ErrAlreadyRegistered
	}
	a.allowed[addr] = role
	h.Emit(TopicNewAddressRegistered, RegisteredEvent{Address: addr, Role: role})
	return nil
}

// Update replaces addr's role. Ownership-gated; addr must already exist.
func (a *Allowlist) Update(h vmhost.Host, addr Address, role Role) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.authorizeOwner(h); err != nil {
		return err
	}
	if _, exists := a.allowed[addr]; !exists {
		return ErrNotFound
	}
	a.allowed[addr] = role
	h.Emit(TopicRoleUpdated, RoleUpdatedEvent{Address: addr, Role: role})
	return nil
}

// Remove deletes addr from the directory. Ownership-gated; addr must
// already exist.
func (a *Allowlist) Remove(h vmhost.Host, addr Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.authorizeOwner(h); err != nil {
		return err
	}
	if _, exists := a.allowed[addr]; !exists {
		return ErrNotFound
	}
	delete(a.allowed, addr)
	h.Emit(TopicAddressRemoved, RemovedEvent{Address: addr})
	return nil
}

// TransferOwnership replaces the owning account. Ownership-gated.
func (a *Allowlist) TransferOwnership(h vmhost.Host, newOwnership account.Account) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.authorizeOwner(h); err != nil {
		return err
	}
	previous := a.ownership
	a.ownership = newOwnership
	h.Emit(TopicOwnershipTransferred, OwnershipTransferredEvent{PreviousOwnership: previous, NewOwnership: newOwnership})
	return nil
}

// RenounceOwnership sets ownership to the terminal ZeroAddress.
// Ownership-gated; terminal.
func (a *Allowlist) RenounceOwnership(h vmhost.Host) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.authorizeOwner(h); err != nil {
		return err
	}
	previous := a.ownership
	a.ownership = account.ZeroAddress
	h.Emit(TopicOwnershipRenounced, OwnershipRenouncedEvent{PreviousOwnership: previous})
	return nil
}

// --- ICC dispatch --------------------------------------------------------

type registerArgs struct {
	Address Address `json:"address"`
	Role    Role    `json:"role"`
}

type removeArgs struct {
	Address Address `json:"address"`
}

type transferOwnershipArgs struct {
	NewOwnership account.Account `json:"new_ownership"`
}

// Dispatch routes a named ICC call to the corresponding typed operation.
func (a *Allowlist) Dispatch(h vmhost.Host, method string, args []byte) ([]byte, error) {
	log.WithFields(logrus.Fields{"method": method}).Debug("allowlist dispatch")
	switch method {
	case "register":
		var r registerArgs
		if err := json.Unmarshal(args, &r); err != nil {
			return nil, err
		}
		return nil, a.Register(h, r.Address, r.Role)
	case "update":
		var r registerArgs
		if err := json.Unmarshal(args, &r); err != nil {
			return nil, err
		}
		return nil, a.Update(h, r.Address, r.Role)
	case "remove":
		var r removeArgs
		if err := json.Unmarshal(args, &r); err != nil {
			return nil, err
		}
		return nil, a.Remove(h, r.Address)
	case "transfer_ownership":
		var r transferOwnershipArgs
		if err := json.Unmarshal(args, &r); err != nil {
			return nil, err
		}
		return nil, a.TransferOwnership(h, r.NewOwnership)
	case "renounce_ownership":
		return nil, a.RenounceOwnership(h)
	default:
		return nil, contracterr.New("unknown allowlist method " + method)
	}
}

// --- snapshot / restore ---------------------------------------------------

type snapshot struct {
	initialized bool
	allowed     map[Address]Role
	ownership   account.Account
}

// Snapshot implements vmhost.Snapshotter.
func (a *Allowlist) Snapshot() any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	allowed := make(map[Address]Role, len(a.allowed))
	for k, v := range a.allowed {
		allowed[k] = v
	}
	return snapshot{initialized: a.initialized, allowed: allowed, ownership: a.ownership}
}

// Restore implements vmhost.Snapshotter.
func (a *Allowlist) Restore(state any) {
	s := state.(snapshot)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.initialized = s.initialized
	a.allowed = s.allowed
	a.ownership = s.ownership
}
