package token_test

import (
	"encoding/json"
	"testing"

	"github.com/synnergy-labs/emt-core/internal/account"
	"github.com/synnergy-labs/emt-core/internal/contracterr"
	"github.com/synnergy-labs/emt-core/internal/token"
	"github.com/synnergy-labs/emt-core/internal/vmhost"
	"github.com/synnergy-labs/emt-core/internal/vmhost/testholder"
)

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return out
}

func externalAccount(b byte) account.Account {
	var key account.PublicKey
	key[0] = b
	return account.External(key)
}

func contractID(b byte) account.ContractID {
	var id account.ContractID
	id[0] = b
	return id
}

func newVM(t *testing.T, tok *token.Token) (*vmhost.VM, account.ContractID) {
	t.Helper()
	vm := vmhost.New()
	id := contractID(0xA0)
	vm.Deploy(id, tok)
	return vm, id
}

func originOf(a account.Account) account.PublicKey {
	pk, _ := a.PublicKey()
	return pk
}

func mustInit(t *testing.T, tok *token.Token, accounts []token.GenesisAccount, gov account.Account) {
	t.Helper()
	var events []struct {
		Topic   string
		Payload any
	}
	emit := func(topic string, payload any) {
		events = append(events, struct {
			Topic   string
			Payload any
		}{topic, payload})
	}
	if err := tok.Init(accounts, gov, emit); err != nil {
		t.Fatalf("Init: %v", err)
	}
}

func TestInitIsIdempotent(t *testing.T) {
	tok := token.New()
	alice := externalAccount(1)
	mustInit(t, tok, []token.GenesisAccount{{Account: alice, Balance: 100}}, alice)

	emit := func(string, any) {}
	if err := tok.Init(nil, alice, emit); err != contracterr.ErrAlreadyInitialized {
		t.Fatalf("second Init: got %v, want ErrAlreadyInitialized", err)
	}
	if tok.TotalSupply() != 100 {
		t.Fatalf("supply mutated by rejected re-init: %d", tok.TotalSupply())
	}
}

func TestTransferConservesSupply(t *testing.T) {
	tok := token.New()
	alice := externalAccount(1)
	bob := externalAccount(2)
	mustInit(t, tok, []token.GenesisAccount{{Account: alice, Balance: 100}}, alice)
	vm, id := newVM(t, tok)

	out, _, err := vm.ExecuteRoot(originOf(alice), true, id, "transfer",
		mustJSON(t, map[string]any{"receiver": bob, "value": uint64(40)}))
	_ = out
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if tok.TotalSupply() != 100 {
		t.Fatalf("supply changed across transfer: %d", tok.TotalSupply())
	}
	if tok.Account(alice).Balance != 60 {
		t.Fatalf("alice balance = %d, want 60", tok.Account(alice).Balance)
	}
	if tok.Account(bob).Balance != 40 {
		t.Fatalf("bob balance = %d, want 40", tok.Account(bob).Balance)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	tok := token.New()
	alice := externalAccount(1)
	bob := externalAccount(2)
	mustInit(t, tok, []token.GenesisAccount{{Account: alice, Balance: 10}}, alice)
	vm, id := newVM(t, tok)

	_, _, err := vm.ExecuteRoot(originOf(alice), true, id, "transfer",
		mustJSON(t, map[string]any{"receiver": bob, "value": uint64(11)}))
	if err != token.ErrInsufficientBalance {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
}

func TestPauseBlocksTransferButNotForceTransfer(t *testing.T) {
	tok := token.New()
	gov := externalAccount(9)
	alice := externalAccount(1)
	bob := externalAccount(2)
	mustInit(t, tok, []token.GenesisAccount{{Account: alice, Balance: 50}}, gov)
	vm, id := newVM(t, tok)

	if _, _, err := vm.ExecuteRoot(originOf(gov), true, id, "toggle_pause", nil); err != nil {
		t.Fatalf("toggle_pause: %v", err)
	}
	if !tok.IsPaused() {
		t.Fatalf("expected paused")
	}

	_, _, err := vm.ExecuteRoot(originOf(alice), true, id, "transfer",
		mustJSON(t, map[string]any{"receiver": bob, "value": uint64(1)}))
	if err != token.ErrPaused {
		t.Fatalf("transfer while paused: got %v, want ErrPaused", err)
	}

	_, _, err = vm.ExecuteRoot(originOf(gov), true, id, "force_transfer",
		mustJSON(t, map[string]any{"obliged_sender": alice, "receiver": bob, "value": uint64(5)}))
	if err != nil {
		t.Fatalf("force_transfer while paused: %v", err)
	}
	if tok.Account(bob).Balance != 5 {
		t.Fatalf("bob balance = %d, want 5", tok.Account(bob).Balance)
	}
}

func TestForceTransferUnauthorized(t *testing.T) {
	tok := token.New()
	gov := externalAccount(9)
	alice := externalAccount(1)
	bob := externalAccount(2)
	mustInit(t, tok, []token.GenesisAccount{{Account: alice, Balance: 50}}, gov)
	vm, id := newVM(t, tok)

	_, _, err := vm.ExecuteRoot(originOf(alice), true, id, "force_transfer",
		mustJSON(t, map[string]any{"obliged_sender": alice, "receiver": bob, "value": uint64(5)}))
	if err != contracterr.ErrUnauthorized {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestBlockedAccountRejectsTransfer(t *testing.T) {
	tok := token.New()
	gov := externalAccount(9)
	alice := externalAccount(1)
	bob := externalAccount(2)
	mustInit(t, tok, []token.GenesisAccount{{Account: alice, Balance: 50}}, gov)
	vm, id := newVM(t, tok)

	if _, _, err := vm.ExecuteRoot(originOf(gov), true, id, "block",
		mustJSON(t, map[string]any{"account": alice})); err != nil {
		t.Fatalf("block: %v", err)
	}
	_, _, err := vm.ExecuteRoot(originOf(alice), true, id, "transfer",
		mustJSON(t, map[string]any{"receiver": bob, "value": uint64(1)}))
	if err != token.ErrBlocked {
		t.Fatalf("got %v, want ErrBlocked", err)
	}

	if _, _, err := vm.ExecuteRoot(originOf(gov), true, id, "unblock",
		mustJSON(t, map[string]any{"account": alice})); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if _, _, err := vm.ExecuteRoot(originOf(gov), true, id, "unblock",
		mustJSON(t, map[string]any{"account": alice})); err != token.ErrNotBlocked {
		t.Fatalf("second unblock: got %v, want ErrNotBlocked", err)
	}
}

func TestRenounceGovernanceIsTerminal(t *testing.T) {
	tok := token.New()
	gov := externalAccount(9)
	alice := externalAccount(1)
	mustInit(t, tok, []token.GenesisAccount{{Account: alice, Balance: 50}}, gov)
	vm, id := newVM(t, tok)

	if _, _, err := vm.ExecuteRoot(originOf(gov), true, id, "renounce_governance", nil); err != nil {
		t.Fatalf("renounce_governance: %v", err)
	}
	if !tok.Governance().IsZero() {
		t.Fatalf("governance not zeroed: %v", tok.Governance())
	}

	_, _, err := vm.ExecuteRoot(originOf(gov), true, id, "toggle_pause", nil)
	if err != contracterr.ErrUnauthorized {
		t.Fatalf("post-renounce toggle_pause: got %v, want ErrUnauthorized", err)
	}
}

// TestTransferToContractRollsBackOnRejectedCallback exercises the
// transactional-rollback guarantee (spec.md P8/S4): a transfer to a
// contract account whose token_received callback fails must leave
// balances untouched.
func TestTransferToContractRollsBackOnRejectedCallback(t *testing.T) {
	tok := token.New()
	alice := externalAccount(1)
	mustInit(t, tok, []token.GenesisAccount{{Account: alice, Balance: 100}}, alice)

	vm := vmhost.New()
	tokenID := contractID(0xA0)
	holderID := contractID(0xB0)
	vm.Deploy(tokenID, tok)

	holder := testholder.New()
	holder.SetReject(true)
	vm.Deploy(holderID, holder)

	receiver := account.Contract(holderID)
	_, _, err := vm.ExecuteRoot(originOf(alice), true, tokenID, "transfer",
		mustJSON(t, map[string]any{"receiver": receiver, "value": uint64(30)}))
	if err == nil {
		t.Fatalf("expected callback rejection error")
	}

	if tok.Account(alice).Balance != 100 {
		t.Fatalf("alice balance = %d after rollback, want 100", tok.Account(alice).Balance)
	}
	if tok.Account(receiver).Balance != 0 {
		t.Fatalf("receiver balance = %d after rollback, want 0", tok.Account(receiver).Balance)
	}

	if _, _, calls := holder.LastReceived(); calls != 0 {
		t.Fatalf("holder should not have recorded an accepted transfer")
	}
}

func TestTransferToContractSucceedsWhenAccepted(t *testing.T) {
	tok := token.New()
	alice := externalAccount(1)
	mustInit(t, tok, []token.GenesisAccount{{Account: alice, Balance: 100}}, alice)

	vm := vmhost.New()
	tokenID := contractID(0xA0)
	holderID := contractID(0xB0)
	vm.Deploy(tokenID, tok)
	holder := testholder.New()
	vm.Deploy(holderID, holder)

	receiver := account.Contract(holderID)
	_, _, err := vm.ExecuteRoot(originOf(alice), true, tokenID, "transfer",
		mustJSON(t, map[string]any{"receiver": receiver, "value": uint64(30)}))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if tok.Account(alice).Balance != 70 {
		t.Fatalf("alice balance = %d, want 70", tok.Account(alice).Balance)
	}
	if tok.Account(receiver).Balance != 30 {
		t.Fatalf("receiver balance = %d, want 30", tok.Account(receiver).Balance)
	}

	sender, value, calls := holder.LastReceived()
	if calls != 1 || value != 30 || !sender.Equal(alice) {
		t.Fatalf("holder recorded sender=%v value=%d calls=%d", sender, value, calls)
	}
}

func TestApproveAndTransferFrom(t *testing.T) {
	tok := token.New()
	alice := externalAccount(1)
	bob := externalAccount(2)
	carol := externalAccount(3)
	mustInit(t, tok, []token.GenesisAccount{{Account: alice, Balance: 100}}, alice)
	vm, id := newVM(t, tok)

	if _, _, err := vm.ExecuteRoot(originOf(alice), true, id, "approve",
		mustJSON(t, map[string]any{"spender": bob, "value": uint64(20)})); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if tok.Allowance(alice, bob) != 20 {
		t.Fatalf("allowance = %d, want 20", tok.Allowance(alice, bob))
	}

	_, _, err := vm.ExecuteRoot(originOf(bob), true, id, "transfer_from",
		mustJSON(t, map[string]any{"sender": alice, "receiver": carol, "value": uint64(25)}))
	if err != token.ErrInsufficientAllowance {
		t.Fatalf("over-allowance transfer_from: got %v, want ErrInsufficientAllowance", err)
	}

	if _, _, err := vm.ExecuteRoot(originOf(bob), true, id, "transfer_from",
		mustJSON(t, map[string]any{"sender": alice, "receiver": carol, "value": uint64(20)})); err != nil {
		t.Fatalf("transfer_from: %v", err)
	}
	if tok.Account(carol).Balance != 20 {
		t.Fatalf("carol balance = %d, want 20", tok.Account(carol).Balance)
	}
	if tok.Allowance(alice, bob) != 0 {
		t.Fatalf("allowance not drawn down: %d", tok.Allowance(alice, bob))
	}
}

func TestMintOverflow(t *testing.T) {
	tok := token.New()
	gov := externalAccount(9)
	mustInit(t, tok, nil, gov)
	vm, id := newVM(t, tok)

	const max = ^uint64(0)
	if _, _, err := vm.ExecuteRoot(originOf(gov), true, id, "mint",
		mustJSON(t, map[string]any{"receiver": gov, "amount": max})); err != nil {
		t.Fatalf("first mint: %v", err)
	}
	_, _, err := vm.ExecuteRoot(originOf(gov), true, id, "mint",
		mustJSON(t, map[string]any{"receiver": gov, "amount": uint64(1)}))
	if err != token.ErrSupplyOverflow {
		t.Fatalf("got %v, want ErrSupplyOverflow", err)
	}
}

func TestShieldedSenderRejected(t *testing.T) {
	tok := token.New()
	alice := externalAccount(1)
	mustInit(t, tok, []token.GenesisAccount{{Account: alice, Balance: 10}}, alice)
	vm, id := newVM(t, tok)

	_, _, err := vm.ExecuteShielded(id, "transfer",
		mustJSON(t, map[string]any{"receiver": alice, "value": uint64(1)}))
	if err != account.ErrShielded {
		t.Fatalf("got %v, want ErrShielded", err)
	}
}
