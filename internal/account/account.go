// Package account defines the polymorphic principal type shared by Token,
// Governance, and Allowlist, and the sender-resolution rule every
// caller-gated operation uses to turn a host call stack into a principal.
package account

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// PublicKeySize is the opaque length of a BLS12-381 public key as produced
// by internal/blscrypto. The wire encoding is not otherwise interpreted
// here; spec.md treats key/signature encoding purely as a length and
// opacity constraint.
const PublicKeySize = 96

// ContractIDSize is the opaque length of a contract identifier.
const ContractIDSize = 32

// PublicKey is an opaque external-signer identity.
type PublicKey [PublicKeySize]byte

// Bytes returns the raw key bytes, used verbatim inside governance
// signature messages.
func (pk PublicKey) Bytes() []byte { return pk[:] }

func (pk PublicKey) String() string { return hex.EncodeToString(pk[:]) }

// ContractID is an opaque contract identifier.
type ContractID [ContractIDSize]byte

func (c ContractID) Bytes() []byte { return c[:] }

func (c ContractID) String() string { return hex.EncodeToString(c[:]) }

func (c ContractID) IsZero() bool { return c == ContractID{} }

// Kind discriminates the two Account variants.
type Kind uint8

const (
	KindExternal Kind = iota
	KindContract
)

// Account is the tagged External(PublicKey) | Contract(ContractId) sum
// type from spec.md §3. It is a plain comparable struct so it can be used
// directly as a Go map key, which is how Token's accounts/allowances
// mappings are implemented.
type Account struct {
	kind       Kind
	pubKey     PublicKey
	contractID ContractID
}

// External constructs an Account wrapping an external signer's public key.
func External(pk PublicKey) Account {
	return Account{kind: KindExternal, pubKey: pk}
}

// Contract constructs an Account wrapping a contract identifier.
func Contract(id ContractID) Account {
	return Account{kind: KindContract, contractID: id}
}

// ZeroAddress is the reserved Contract account with an all-zero id. It is
// the sentinel for "no principal" and the counterparty in mint/burn
// events.
var ZeroAddress = Contract(ContractID{})

// IsZero reports whether a is the ZeroAddress sentinel.
func (a Account) IsZero() bool { return a == ZeroAddress }

// IsExternal reports whether a wraps an external public key.
func (a Account) IsExternal() bool { return a.kind == KindExternal }

// IsContract reports whether a wraps a contract id.
func (a Account) IsContract() bool { return a.kind == KindContract }

// PublicKey returns the wrapped public key and true if a is External.
func (a Account) PublicKey() (PublicKey, bool) {
	if a.kind != KindExternal {
		return PublicKey{}, false
	}
	return a.pubKey, true
}

// ContractID returns the wrapped contract id and true if a is Contract.
func (a Account) ContractID() (ContractID, bool) {
	if a.kind != KindContract {
		return ContractID{}, false
	}
	return a.contractID, true
}

// Bytes returns the variant-dependent byte encoding used inside
// governance signature messages (account_bytes in spec.md §4.2): the raw
// public key for External, or the 32-byte id for Contract. Encodings are
// variable length across variants by design — the message is only ever
// hashed by BLS verification, never parsed, so both sides constructing it
// identically is sufficient.
func (a Account) Bytes() []byte {
	if a.kind == KindExternal {
		return a.pubKey.Bytes()
	}
	return a.contractID.Bytes()
}

func (a Account) String() string {
	if a.kind == KindExternal {
		return "external:" + a.pubKey.String()
	}
	return "contract:" + a.contractID.String()
}

// accountWire is the JSON shape used when an Account crosses an
// inter-contract call boundary (vmhost.Host.Call/CallRaw payloads).
type accountWire struct {
	Kind       Kind   `json:"kind"`
	PubKey     string `json:"pub_key,omitempty"`
	ContractID string `json:"contract_id,omitempty"`
}

// MarshalJSON encodes the active variant only, so ICC payloads stay
// compact and self-describing.
func (a Account) MarshalJSON() ([]byte, error) {
	w := accountWire{Kind: a.kind}
	if a.kind == KindExternal {
		w.PubKey = hex.EncodeToString(a.pubKey[:])
	} else {
		w.ContractID = hex.EncodeToString(a.contractID[:])
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire shape written by MarshalJSON.
func (a *Account) UnmarshalJSON(data []byte) error {
	var w accountWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	a.kind = w.Kind
	switch w.Kind {
	case KindExternal:
		raw, err := hex.DecodeString(w.PubKey)
		if err != nil {
			return fmt.Errorf("decode account public key: %w", err)
		}
		if len(raw) != PublicKeySize {
			return fmt.Errorf("invalid public key length %d", len(raw))
		}
		copy(a.pubKey[:], raw)
	case KindContract:
		raw, err := hex.DecodeString(w.ContractID)
		if err != nil {
			return fmt.Errorf("decode account contract id: %w", err)
		}
		if len(raw) != ContractIDSize {
			return fmt.Errorf("invalid contract id length %d", len(raw))
		}
		copy(a.contractID[:], raw)
	default:
		return fmt.Errorf("unknown account kind %d", w.Kind)
	}
	return nil
}

// Equal reports whether two accounts denote the same principal.
func (a Account) Equal(b Account) bool {
	return a.kind == b.kind && a.pubKey == b.pubKey && bytes.Equal(a.contractID[:], b.contractID[:])
}

// ErrShielded is returned by Resolve when the host has no public sender,
// i.e. the call arrived through a shielded (privacy-preserving) context.
// spec.md treats shielded transfers as rejected outright (§1 Non-goals).
var ErrShielded = errors.New("Shielded transactions are not supported")

// Host is the minimal slice of the VM host ABI the sender-resolution rule
// needs. vmhost.Host satisfies it.
type Host interface {
	PublicSender() (PublicKey, bool)
	Caller() (ContractID, bool)
	Callstack() []ContractID
}

// Resolve implements the sender-resolution rule from spec.md §4.1: the
// sender is External(tx_origin) when the call stack has depth 1 (a
// frame directly above the protocol transfer contract), and
// Contract(caller) otherwise. Token and Allowlist both gate their
// operations with it; Governance authorizes by signature and does not
// call it.
func Resolve(h Host) (Account, error) {
	origin, ok := h.PublicSender()
	if !ok {
		return Account{}, ErrShielded
	}
	if len(h.Callstack()) <= 1 {
		return External(origin), nil
	}
	caller, ok := h.Caller()
	if !ok {
		return Account{}, ErrShielded
	}
	return Contract(caller), nil
}
