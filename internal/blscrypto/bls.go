// Package blscrypto wraps BLS12-381 aggregate signatures for the
// multisignature authorization path used by Governance. It is adapted
// from the Synnergy Network teacher's core/security.go, trimmed to the
// sign/verify/aggregate subset spec.md §6 asks the host to provide as
// verify_bls_multisig.
package blscrypto

import (
	"errors"
	"fmt"

	bls "github.com/herumi/bls-eth-go-binary/bls"
)

func init() {
	if err := bls.Init(bls.BLS12_381); err != nil {
		panic(fmt.Errorf("bls init: %w", err))
	}
	if err := bls.SetETHmode(bls.EthModeDraft07); err != nil {
		panic(fmt.Errorf("bls eth mode: %w", err))
	}
}

// KeyPair is a generated BLS12-381 secret/public key pair, used by tests
// and the CLI to mint signer identities.
type KeyPair struct {
	Secret bls.SecretKey
	Public bls.PublicKey
}

// GenerateKeyPair returns a fresh random BLS12-381 key pair.
func GenerateKeyPair() KeyPair {
	var sk bls.SecretKey
	sk.SetByCSPRNG()
	return KeyPair{Secret: sk, Public: *sk.GetPublicKey()}
}

// PublicKeyBytes returns the fixed-size serialized public key.
func (kp KeyPair) PublicKeyBytes() [96]byte {
	var out [96]byte
	copy(out[:], kp.Public.Serialize())
	return out
}

// Sign produces a raw BLS signature over msg.
func (kp KeyPair) Sign(msg []byte) []byte {
	return kp.Secret.SignByte(msg).Serialize()
}

// AggregateSignatures merges independently produced signatures over
// (possibly) the same message into a single aggregate signature.
func AggregateSignatures(sigs [][]byte) ([]byte, error) {
	if len(sigs) == 0 {
		return nil, errors.New("no signatures to aggregate")
	}
	var agg bls.Sign
	for i, raw := range sigs {
		var s bls.Sign
		if err := s.Deserialize(raw); err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}
		if i == 0 {
			agg = s
		} else {
			agg.Add(&s)
		}
	}
	return agg.Serialize(), nil
}

// VerifyMultisig verifies an aggregated BLS signature against msg and the
// ordered set of public keys that supposedly co-signed it. This backs the
// host's verify_bls_multisig primitive (spec.md §6).
func VerifyMultisig(msg []byte, pubKeys [][96]byte, sig []byte) bool {
	if len(pubKeys) == 0 {
		return false
	}
	var s bls.Sign
	if err := s.Deserialize(sig); err != nil {
		return false
	}
	pks := make([]bls.PublicKey, len(pubKeys))
	for i, raw := range pubKeys {
		if err := pks[i].Deserialize(raw[:]); err != nil {
			return false
		}
	}
	return s.FastAggregateVerify(pks, msg)
}
