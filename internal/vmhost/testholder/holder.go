// Package testholder is the minimal token-receiver contract used to
// specify and exercise Token's token_received callback. It is not part of
// the Token/Governance/Allowlist surface; spec.md §1 treats it as an
// external collaborator "used only to specify the token_received
// callback contract", grounded on original_source/tests/holder/src/
// lib.rs. It records the most recent transfer it observed, and can be
// configured to reject the callback so tests can exercise the rollback
// path (spec.md P8, S4).
package testholder

import (
	"encoding/json"
	"sync"

	"github.com/synnergy-labs/emt-core/internal/account"
	"github.com/synnergy-labs/emt-core/internal/contracterr"
	"github.com/synnergy-labs/emt-core/internal/vmhost"
)

// ReceivedArgs mirrors the token_received(sender, value) callback
// arguments Token sends over ICC.
type ReceivedArgs struct {
	Sender account.Account `json:"sender"`
	Value  uint64          `json:"value"`
}

// Holder records the last call it received and optionally refuses it.
type Holder struct {
	mu       sync.Mutex
	reject   bool
	lastFrom account.Account
	lastVal  uint64
	calls    int
}

// New returns a Holder that accepts every transfer.
func New() *Holder { return &Holder{} }

// SetReject configures whether the next (and subsequent) token_received
// calls fail, simulating a receiver contract that refuses deposits.
func (h *Holder) SetReject(reject bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reject = reject
}

// LastReceived returns the sender and value of the most recent accepted
// transfer, and how many transfers were accepted in total.
func (h *Holder) LastReceived() (account.Account, uint64, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastFrom, h.lastVal, h.calls
}

// ErrRejected is returned when the holder is configured to refuse
// deposits.
var ErrRejected = contracterr.New("token receiver rejected the deposit")

// Dispatch implements vmhost.Contract. It understands a single method,
// token_received; anything else is an error.
func (h *Holder) Dispatch(hv vmhost.Host, method string, args []byte) ([]byte, error) {
	if method != "token_received" {
		return nil, contracterr.New("unknown holder method " + method)
	}
	var a ReceivedArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.reject {
		return nil, ErrRejected
	}
	h.lastFrom = a.Sender
	h.lastVal = a.Value
	h.calls++
	return nil, nil
}
