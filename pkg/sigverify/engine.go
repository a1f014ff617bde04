// Copyright 2025 Certen Protocol

package sigverify

import (
	"crypto/ed25519"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/certen/prehandle-core/pkg/keys"
)

// Engine is the external crypto collaborator: VerifySync(key,
// signatureBytes, messageHash) -> verdict. The engine always produces a
// terminal verdict; it never returns an error up through VerifySync — an
// engine error is reported as a failed verification.
type Engine interface {
	VerifySync(key keys.Key, signature, messageHash []byte) SignatureVerification
}

// Ed25519Engine verifies ED25519 signatures using the standard library,
// the same primitive the teacher uses directly in
// pkg/verification/unified_verifier.go and pkg/attestation.
type Ed25519Engine struct{}

func (Ed25519Engine) VerifySync(key keys.Key, signature, messageHash []byte) SignatureVerification {
	pub := key.Bytes()
	if len(pub) != ed25519.PublicKeySize {
		return SignatureVerification{Key: key, Passed: false}
	}
	passed := ed25519.Verify(pub, messageHash, signature)
	return SignatureVerification{Key: key, Passed: passed}
}

// Secp256k1Engine verifies ECDSA secp256k1 signatures and derives the EVM
// alias the recovered key would resolve to, backing the hollow-account
// signature path.
type Secp256k1Engine struct{}

func (Secp256k1Engine) VerifySync(key keys.Key, signature, messageHash []byte) SignatureVerification {
	pub := key.Bytes()
	if len(pub) != 33 {
		return SignatureVerification{Key: key, Passed: false}
	}

	// signature here is expected as the 64-byte (r,s) form; compressed
	// public key verification against it is sufficient to establish
	// "this signature was produced by this key" without needing recovery.
	if len(signature) != 64 || !gethcrypto.VerifySignature(pub, messageHash, signature) {
		return SignatureVerification{Key: key, Passed: false}
	}

	alias, err := EVMAliasFromCompressedPubkey(pub)
	if err != nil {
		return SignatureVerification{Key: key, Passed: true}
	}
	return SignatureVerification{Key: key, EVMAlias: alias, Passed: true}
}

// EVMAliasFromCompressedPubkey derives the 20-byte EVM address (Keccak256
// tail of the uncompressed public key) that a hollow account's signature
// must resolve to.
func EVMAliasFromCompressedPubkey(compressed []byte) ([]byte, error) {
	pub, err := gethcrypto.DecompressPubkey(compressed)
	if err != nil {
		return nil, err
	}
	addr := gethcrypto.PubkeyToAddress(*pub)
	return addr.Bytes(), nil
}

// ForKind returns the engine responsible for a given leaf key kind.
func ForKind(k keys.Kind) (Engine, bool) {
	switch k {
	case keys.ED25519:
		return Ed25519Engine{}, true
	case keys.ECDSASecp256k1:
		return Secp256k1Engine{}, true
	default:
		return nil, false
	}
}
