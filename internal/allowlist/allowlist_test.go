package allowlist_test

import (
	"encoding/json"
	"testing"

	"github.com/synnergy-labs/emt-core/internal/account"
	"github.com/synnergy-labs/emt-core/internal/allowlist"
	"github.com/synnergy-labs/emt-core/internal/contracterr"
	"github.com/synnergy-labs/emt-core/internal/vmhost"
)

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return out
}

func addr(b byte) allowlist.Address {
	var a allowlist.Address
	a[0] = b
	return a
}

func role(b byte) allowlist.Role {
	var r allowlist.Role
	r[0] = b
	return r
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

func deploy(t *testing.T, al *allowlist.Allowlist) (*vmhost.VM, account.ContractID) {
	t.Helper()
	vm := vmhost.New()
	id := contractID(0xD0)
	vm.Deploy(id, al)
	return vm, id
}

func noopEmit(string, any) {}

func TestInitIdempotent(t *testing.T) {
	al := allowlist.New()
	owner := externalAccount(1)
	if err := al.Init([]allowlist.Entry{{Address: addr(1), Role: role(1)}}, owner, noopEmit); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := al.Init(nil, owner, noopEmit); err != contracterr.ErrAlreadyInitialized {
		t.Fatalf("second init: got %v, want ErrAlreadyInitialized", err)
	}
}

func TestRegisterUpdateRemove(t *testing.T) {
	al := allowlist.New()
	owner := externalAccount(1)
	stranger := externalAccount(2)
	if err := al.Init(nil, owner, noopEmit); err != nil {
		t.Fatalf("init: %v", err)
	}
	vm, id := deploy(t, al)

	_, _, err := vm.ExecuteRoot(originOf(stranger), true, id, "register",
		mustJSON(t, map[string]any{"address": addr(5), "role": role(5)}))
	if err != contracterr.ErrUnauthorized {
		t.Fatalf("register by stranger: got %v, want ErrUnauthorized", err)
	}

	if _, _, err := vm.ExecuteRoot(originOf(owner), true, id, "register",
		mustJSON(t, map[string]any{"address": addr(5), "role": role(5)})); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !al.IsAllowed(addr(5)) {
		t.Fatalf("expected addr(5) registered")
	}

	if _, _, err := vm.ExecuteRoot(originOf(owner), true, id, "register",
		mustJSON(t, map[string]any{"address": addr(5), "role": role(9)})); err != allowlist.ErrAlreadyRegistered {
		t.Fatalf("duplicate register: got %v, want ErrAlreadyRegistered", err)
	}

	if _, _, err := vm.ExecuteRoot(originOf(owner), true, id, "update",
		mustJSON(t, map[string]any{"address": addr(5), "role": role(9)})); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, ok := al.HasRole(addr(5))
	if !ok || got != role(9) {
		t.Fatalf("role = %v,%v want role(9),true", got, ok)
	}

	if _, _, err := vm.ExecuteRoot(originOf(owner), true, id, "remove",
		mustJSON(t, map[string]any{"address": addr(7)})); err != allowlist.ErrNotFound {
		t.Fatalf("remove missing: got %v, want ErrNotFound", err)
	}
	if _, _, err := vm.ExecuteRoot(originOf(owner), true, id, "remove",
		mustJSON(t, map[string]any{"address": addr(5)})); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if al.IsAllowed(addr(5)) {
		t.Fatalf("addr(5) still allowed after remove")
	}
}

func TestRenounceOwnershipIsTerminal(t *testing.T) {
	al := allowlist.New()
	owner := externalAccount(1)
	if err := al.Init(nil, owner, noopEmit); err != nil {
		t.Fatalf("init: %v", err)
	}
	vm, id := deploy(t, al)

	if _, _, err := vm.ExecuteRoot(originOf(owner), true, id, "renounce_ownership", nil); err != nil {
		t.Fatalf("renounce_ownership: %v", err)
	}
	if !al.Ownership().IsZero() {
		t.Fatalf("ownership not zeroed")
	}

	_, _, err := vm.ExecuteRoot(originOf(owner), true, id, "register",
		mustJSON(t, map[string]any{"address": addr(1), "role": role(1)}))
	if err != contracterr.ErrUnauthorized {
		t.Fatalf("post-renounce register: got %v, want ErrUnauthorized", err)
	}
}

func originOf(a account.Account) account.PublicKey {
	pk, _ := a.PublicKey()
	return pk
}
