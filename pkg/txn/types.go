// Copyright 2025 Certen Protocol
//
// Package txn defines the decoded transaction shape the pre-handle core
// operates on, independent of the wire codec that produces it and the
// prehandle package that consumes it.

package txn

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/certen/prehandle-core/pkg/keys"
	"github.com/certen/prehandle-core/pkg/store"
)

// TransactionID identifies a transaction and its designated payer.
type TransactionID struct {
	PayerID        store.AccountID `json:"payer_id"`
	ValidStartTime time.Time       `json:"valid_start_time"`
	Nonce          uint32          `json:"nonce"`
}

// TransactionInfo is the decoded, typed view of a transaction that the
// pre-handle workflow operates on. Body is an opaque-to-this-core
// payload interpreted only by the transaction-type handler registered
// for Kind (pkg/workflow).
type TransactionInfo struct {
	TransactionID TransactionID   `json:"transaction_id"`
	Kind          string          `json:"kind"`
	Body          json.RawMessage `json:"body"`
	ScheduledInfo *ScheduledInfo  `json:"scheduled_info,omitempty"`

	// SignedBytesHash is the hash the attached Signatures were produced
	// over. The wire codec is responsible for computing it; this core
	// only ever verifies signatures against it.
	SignedBytesHash []byte `json:"signed_bytes_hash,omitempty"`

	// Signatures is the set of (key, signature) pairs the submitter
	// attached, keyed loosely to whatever required keys the transaction
	// handler later gathers. A key with no corresponding entry here is
	// never dispatched for verification and is therefore treated as a
	// failed verification.
	Signatures []SignaturePair `json:"signatures,omitempty"`
}

// SignaturePair is one submitted (key, signature) pair.
type SignaturePair struct {
	Key       KeyWire `json:"key"`
	Signature []byte  `json:"signature"`
}

// ScheduledInfo carries the nested (scheduled) transaction a top-level
// TransactionInfo wraps, backing PreHandleContext.CreateNestedContext.
// Nil for non-scheduled transactions.
type ScheduledInfo struct {
	Payer store.AccountID `json:"payer"`
	Inner TransactionInfo `json:"inner"`
}

// KeyWire is the wire-format shape of a Key, used only by the reference
// JSON codec — production decoders would decode a protobuf Key message
// directly into pkg/keys.Key without this intermediate form.
type KeyWire struct {
	Kind      string           `json:"kind"`
	Bytes     []byte           `json:"bytes,omitempty"`
	Contract  *store.AccountID `json:"contract,omitempty"`
	Threshold int              `json:"threshold,omitempty"`
	Keys      []KeyWire        `json:"keys,omitempty"`
}

// ToKey converts a KeyWire into a pkg/keys.Key.
func (w KeyWire) ToKey() (keys.Key, error) {
	switch w.Kind {
	case "UNSET", "":
		return keys.UnsetKey(), nil
	case "ED25519":
		if len(w.Bytes) != 32 {
			return keys.Key{}, fmt.Errorf("txn: ED25519 key must be 32 bytes, got %d", len(w.Bytes))
		}
		return keys.NewED25519(w.Bytes), nil
	case "ECDSA_SECP256K1":
		if len(w.Bytes) != 33 {
			return keys.Key{}, fmt.Errorf("txn: ECDSA_SECP256K1 key must be 33 bytes, got %d", len(w.Bytes))
		}
		return keys.NewECDSASecp256k1(w.Bytes), nil
	case "CONTRACT_ID":
		if w.Contract == nil {
			return keys.Key{}, fmt.Errorf("txn: CONTRACT_ID key missing contract reference")
		}
		return keys.NewContractID(toContractRef(*w.Contract)), nil
	case "DELEGATABLE_CONTRACT_ID":
		if w.Contract == nil {
			return keys.Key{}, fmt.Errorf("txn: DELEGATABLE_CONTRACT_ID key missing contract reference")
		}
		return keys.NewDelegatableContractID(toContractRef(*w.Contract)), nil
	case "KEY_LIST":
		children, err := toKeySlice(w.Keys)
		if err != nil {
			return keys.Key{}, err
		}
		return keys.NewKeyList(children), nil
	case "THRESHOLD_KEY":
		children, err := toKeySlice(w.Keys)
		if err != nil {
			return keys.Key{}, err
		}
		return keys.NewThresholdKey(w.Threshold, children), nil
	default:
		return keys.Key{}, fmt.Errorf("txn: unrecognized key kind %q", w.Kind)
	}
}

func toKeySlice(wires []KeyWire) ([]keys.Key, error) {
	out := make([]keys.Key, len(wires))
	for i, w := range wires {
		k, err := w.ToKey()
		if err != nil {
			return nil, err
		}
		out[i] = k
	}
	return out, nil
}

func toContractRef(id store.AccountID) keys.ContractRef {
	return keys.ContractRef{Shard: id.Shard, Realm: id.Realm, Number: id.Number}
}
