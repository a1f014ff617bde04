// Copyright 2025 Certen Protocol
//
// Package keys implements the tagged-union key model of the pre-handle
// core: cryptographic leaves, contract references, and the recursive
// KeyList / ThresholdKey compound expressions built from them.

package keys

import (
	"crypto/sha256"
	"encoding/binary"
)

// Kind discriminates the variants of Key.
type Kind uint8

const (
	// Unset is the zero value: an absent or unpopulated key.
	Unset Kind = iota
	ED25519
	ECDSASecp256k1
	ContractID
	DelegatableContractID
	KeyList
	ThresholdKey
)

// ContractRef identifies a contract or account by shard/realm/number,
// mirroring the teacher's entity-ID conventions.
type ContractRef struct {
	Shard  uint64
	Realm  uint64
	Number uint64
}

// Key is a discriminated union over the supported key kinds. Compound
// variants (KeyList, ThresholdKey) hold their children by value: keys are
// built bottom-up from a tree-shaped wire format, so no cycle can exist.
type Key struct {
	kind Kind

	// Cryptographic leaf material. ED25519 keys are 32 bytes,
	// ECDSASecp256k1 keys are 33-byte compressed points.
	bytes []byte

	contract ContractRef

	// Threshold is only meaningful when kind == ThresholdKey. It is
	// stored as given; clamping to [1, len(children)] happens at
	// evaluation time (Evaluate), not at construction time, so the
	// raw value survives round-tripping.
	threshold int

	children []Key
}

// NewED25519 constructs an ED25519 leaf key. Panics if pub is not 32 bytes;
// callers are expected to have validated wire-decoded input before this
// point (programmer error, not a recoverable validation failure).
func NewED25519(pub []byte) Key {
	if len(pub) != 32 {
		panic("keys: ED25519 public key must be 32 bytes")
	}
	buf := make([]byte, 32)
	copy(buf, pub)
	return Key{kind: ED25519, bytes: buf}
}

// NewECDSASecp256k1 constructs a compressed-point secp256k1 leaf key.
func NewECDSASecp256k1(pub []byte) Key {
	if len(pub) != 33 {
		panic("keys: ECDSA_SECP256K1 public key must be 33 bytes (compressed)")
	}
	buf := make([]byte, 33)
	copy(buf, pub)
	return Key{kind: ECDSASecp256k1, bytes: buf}
}

// NewContractID constructs a CONTRACT_ID key.
func NewContractID(ref ContractRef) Key {
	return Key{kind: ContractID, contract: ref}
}

// NewDelegatableContractID constructs a DELEGATABLE_CONTRACT_ID key.
func NewDelegatableContractID(ref ContractRef) Key {
	return Key{kind: DelegatableContractID, contract: ref}
}

// NewKeyList constructs a KEY_LIST key from an ordered sequence of children.
// The slice is copied so later mutation of the caller's slice is invisible.
func NewKeyList(children []Key) Key {
	cp := make([]Key, len(children))
	copy(cp, children)
	return Key{kind: KeyList, children: cp}
}

// NewThresholdKey constructs a THRESHOLD_KEY key. threshold is stored
// unclamped; Evaluate clamps it to [1, n] at evaluation time.
func NewThresholdKey(threshold int, children []Key) Key {
	cp := make([]Key, len(children))
	copy(cp, children)
	return Key{kind: ThresholdKey, threshold: threshold, children: cp}
}

// UnsetKey returns the UNSET sentinel key.
func UnsetKey() Key { return Key{kind: Unset} }

// Kind reports the discriminant of the key.
func (k Key) Kind() Kind { return k.kind }

// Bytes returns the raw cryptographic material for a leaf key, or nil for
// any other kind.
func (k Key) Bytes() []byte {
	if k.kind != ED25519 && k.kind != ECDSASecp256k1 {
		return nil
	}
	return k.bytes
}

// Contract returns the contract reference for CONTRACT_ID /
// DELEGATABLE_CONTRACT_ID keys.
func (k Key) Contract() ContractRef { return k.contract }

// Threshold returns the raw (unclamped) threshold for a THRESHOLD_KEY.
func (k Key) Threshold() int { return k.threshold }

// Children returns the nested keys of a KEY_LIST or THRESHOLD_KEY.
func (k Key) Children() []Key { return k.children }

// IsCryptoLeaf reports whether k is a key kind that is looked up directly
// in a PreHandleResult's verificationResults map.
func (k Key) IsCryptoLeaf() bool {
	return k.kind == ED25519 || k.kind == ECDSASecp256k1
}

// Valid reports whether k is well-formed: not UNSET, and, recursively,
// every nested key is valid. An empty KEY_LIST is invalid.
func (k Key) Valid() bool {
	switch k.kind {
	case Unset:
		return false
	case ED25519:
		return len(k.bytes) == 32
	case ECDSASecp256k1:
		return len(k.bytes) == 33
	case ContractID, DelegatableContractID:
		return true
	case KeyList:
		if len(k.children) == 0 {
			return false
		}
		for _, c := range k.children {
			if !c.Valid() {
				return false
			}
		}
		return true
	case ThresholdKey:
		if len(k.children) == 0 {
			return false
		}
		for _, c := range k.children {
			if !c.Valid() {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ClampedThreshold returns min(max(threshold,1), n) for a THRESHOLD_KEY
// with n children.
func (k Key) ClampedThreshold() int {
	n := len(k.children)
	t := k.threshold
	if t < 1 {
		t = 1
	}
	if t > n {
		t = n
	}
	return t
}

// Equal reports structural equality: same kind, same normalized wire
// encoding. Two keys that differ only in non-normative encoding details
// are treated as unequal by design here, since normalization happens at
// construction (see Encode); see DESIGN.md Open Question on key equality.
func (k Key) Equal(other Key) bool {
	return string(Encode(k)) == string(Encode(other))
}

// Encode produces k's canonical wire encoding, used both as the
// PreHandleResult.verificationResults map key and for de-duplication in
// PreHandleContext.requireKey. The format is an internal implementation
// detail; only its injectivity over Valid keys matters.
func Encode(k Key) []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, byte(k.kind))
	switch k.kind {
	case ED25519, ECDSASecp256k1:
		buf = append(buf, k.bytes...)
	case ContractID, DelegatableContractID:
		var tmp [24]byte
		binary.BigEndian.PutUint64(tmp[0:8], k.contract.Shard)
		binary.BigEndian.PutUint64(tmp[8:16], k.contract.Realm)
		binary.BigEndian.PutUint64(tmp[16:24], k.contract.Number)
		buf = append(buf, tmp[:]...)
	case KeyList:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(len(k.children)))
		buf = append(buf, tmp[:]...)
		for _, c := range k.children {
			child := Encode(c)
			var ln [8]byte
			binary.BigEndian.PutUint64(ln[:], uint64(len(child)))
			buf = append(buf, ln[:]...)
			buf = append(buf, child...)
		}
	case ThresholdKey:
		var tmp [16]byte
		binary.BigEndian.PutUint64(tmp[0:8], uint64(k.threshold))
		binary.BigEndian.PutUint64(tmp[8:16], uint64(len(k.children)))
		buf = append(buf, tmp[:]...)
		for _, c := range k.children {
			child := Encode(c)
			var ln [8]byte
			binary.BigEndian.PutUint64(ln[:], uint64(len(child)))
			buf = append(buf, ln[:]...)
			buf = append(buf, child...)
		}
	}
	return buf
}

// EncodeHex is a convenience used for map keys and log fields.
func EncodeHex(k Key) string {
	sum := sha256.Sum256(Encode(k))
	return hex(sum[:])
}

const hexDigits = "0123456789abcdef"

func hex(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}
	return string(out)
}
