// Copyright 2025 Certen Protocol
//
// Package sigverify implements SignatureVerificationFuture, the crypto
// engines that complete them, and the composite future that folds a key
// expression's children into a single pending-or-terminal verdict.

package sigverify

import "github.com/certen/prehandle-core/pkg/keys"

// SignatureVerification is the terminal, immutable result of verifying one
// signature against one key. Once produced it never changes.
type SignatureVerification struct {
	Key      keys.Key
	EVMAlias []byte // alias derived from Key on a passed ECDSA check; else the requested hollow alias, or nil
	Passed   bool
}
