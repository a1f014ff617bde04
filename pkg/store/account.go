// Copyright 2025 Certen Protocol
//
// Package store provides the read-only façades over account and contract
// state that the pre-handle core consumes. Production backends are
// external collaborators reached only through these interfaces; this
// package also ships a reference in-memory implementation used by tests
// and the demo entrypoint.

package store

import "github.com/certen/prehandle-core/pkg/keys"

// AccountID identifies an account by shard/realm/number.
type AccountID struct {
	Shard  uint64
	Realm  uint64
	Number uint64
}

// IsDefault reports whether id is the zero/unset account ID, which
// RequireKeyIfReceiverSigRequired treats as a no-op.
func (id AccountID) IsDefault() bool {
	return id == AccountID{}
}

// Account is the subset of on-chain account state the pre-handle core
// needs: its required-signature key and receiver-signature-required flag,
// plus an optional EVM alias for hollow accounts.
type Account struct {
	ID                  AccountID
	Key                 keys.Key
	ReceiverSigRequired bool
	Alias               []byte // 20-byte EVM address, or nil
}

// IsHollow reports whether acc is a hollow account: one identified only
// by a 20-byte alias, whose record carries no public key yet (key is
// unset or an empty key list).
func (a Account) IsHollow() bool {
	if len(a.Alias) != 20 {
		return false
	}
	switch a.Key.Kind() {
	case keys.Unset:
		return true
	case keys.KeyList:
		return len(a.Key.Children()) == 0
	default:
		return false
	}
}
