package governance

import (
	"encoding/binary"

	"github.com/synnergy-labs/emt-core/internal/account"
)

// Canonical signature-message byte layouts, grounded on
// original_source/core/src/access_control/signature_messages.rs. Every
// message begins with the relevant family nonce, big-endian, fixed
// width — this keeps the encoding prefix-free across calls even though
// no length tag follows (spec.md §4.2).

func nonceBytes(nonce uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	return buf[:]
}

func setTokenContractMessage(nonce uint64, newID account.ContractID) []byte {
	msg := nonceBytes(nonce)
	return append(msg, newID.Bytes()...)
}

func keySetMessage(nonce uint64, keys []account.PublicKey) []byte {
	msg := nonceBytes(nonce)
	for _, k := range keys {
		msg = append(msg, k.Bytes()...)
	}
	return msg
}

func transferGovernanceMessage(nonce uint64, newGovernance account.Account) []byte {
	msg := nonceBytes(nonce)
	return append(msg, newGovernance.Bytes()...)
}

func renounceGovernanceMessage(nonce uint64) []byte {
	return nonceBytes(nonce)
}

func operatorTokenCallMessage(nonce uint64, name string, args []byte) []byte {
	msg := nonceBytes(nonce)
	msg = append(msg, []byte(name)...)
	return append(msg, args...)
}

func setOperatorTokenCallMessage(nonce uint64, name string, threshold uint8) []byte {
	msg := nonceBytes(nonce)
	msg = append(msg, []byte(name)...)
	return append(msg, threshold)
}
