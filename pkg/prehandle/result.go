// Copyright 2025 Certen Protocol

package prehandle

import (
	"bytes"

	"github.com/certen/prehandle-core/pkg/keys"
	"github.com/certen/prehandle-core/pkg/sigverify"
	"github.com/certen/prehandle-core/pkg/store"
	"github.com/certen/prehandle-core/pkg/txn"
)

// PreHandleResult is the immutable record a pre-handle pass produces.
// VerificationResults is indexed by the wire encoding of cryptographic
// leaf keys only; compound keys are never map keys.
type PreHandleResult struct {
	status       Status
	responseCode ResponseCode

	hasPayer bool
	payer    store.AccountID
	payerKey keys.Key

	txInfo *txn.TransactionInfo

	// verificationResults is keyed by keys.EncodeHex(leaf key). nil means
	// no verifications were ever dispatched for this result (decode or
	// payer-resolution failures never reach dispatch).
	verificationResults map[string]*sigverify.Future

	innerResult *PreHandleResult
}

// UnknownFailure constructs the fallback result for an uncaught error.
// It carries no payer: there is nothing left in the pre-handle pass that
// can be trusted to attribute the failure to any account.
func UnknownFailure() *PreHandleResult {
	return &PreHandleResult{status: StatusUnknownFailure, responseCode: UNKNOWN}
}

// NodeDueDiligenceFailure constructs a result charging the node account
// itself, used for decode failures: a transaction the node could not even
// parse is the submitting node's fault, not the payer's.
func NodeDueDiligenceFailure(node store.AccountID, code ResponseCode, info *txn.TransactionInfo) *PreHandleResult {
	return &PreHandleResult{
		status:       StatusNodeDueDiligenceFailure,
		responseCode: code,
		hasPayer:     true,
		payer:        node,
		txInfo:       info,
	}
}

// PreHandleFailure constructs a result charging the resolved payer, used
// for payer-resolution and handler failures.
func PreHandleFailure(payer store.AccountID, payerKey keys.Key, code ResponseCode, info *txn.TransactionInfo, inner *PreHandleResult) *PreHandleResult {
	return &PreHandleResult{
		status:       StatusPreHandleFailure,
		responseCode: code,
		hasPayer:     true,
		payer:        payer,
		payerKey:     payerKey,
		txInfo:       info,
		innerResult:  inner,
	}
}

// NewSoFarSoGood constructs the full, success-path result: signature
// verification has been dispatched but not yet awaited. info and a valid
// payerKey are required; violating either is a programmer error, not a
// PreCheckError.
func NewSoFarSoGood(payer store.AccountID, payerKey keys.Key, info *txn.TransactionInfo, verificationResults map[string]*sigverify.Future, inner *PreHandleResult) (*PreHandleResult, error) {
	if info == nil {
		return nil, NewInvalidArgumentError("newSoFarSoGood: txInfo must not be nil")
	}
	if !payerKey.Valid() {
		return nil, NewInvalidArgumentError("newSoFarSoGood: payerKey must be valid")
	}
	return &PreHandleResult{
		status:               StatusSoFarSoGood,
		responseCode:         OK,
		hasPayer:             true,
		payer:                payer,
		payerKey:             payerKey,
		txInfo:               info,
		verificationResults:  verificationResults,
		innerResult:          inner,
	}, nil
}

// Status reports the terminal classification of this result.
func (r *PreHandleResult) Status() Status { return r.status }

// ResponseCode reports the response code accompanying Status.
func (r *PreHandleResult) ResponseCode() ResponseCode { return r.responseCode }

// Payer returns the charged account and whether one is set at all: an
// UnknownFailure result has no payer.
func (r *PreHandleResult) Payer() (store.AccountID, bool) { return r.payer, r.hasPayer }

// PayerKey returns the payer's required-signature key, or the zero
// (Unset) key if none was resolved.
func (r *PreHandleResult) PayerKey() keys.Key { return r.payerKey }

// TxInfo returns the decoded transaction this result was produced for, or
// nil for constructors that never reached decode success.
func (r *PreHandleResult) TxInfo() *txn.TransactionInfo { return r.txInfo }

// InnerResult returns the result for a nested scheduled transaction, or
// nil if none exists.
func (r *PreHandleResult) InnerResult() *PreHandleResult { return r.innerResult }

// VerificationFor evaluates key against the dispatched verification
// futures and returns a Future carrying the composite verdict. An Unset
// key is a programmer error. When key is itself a cryptographic leaf
// already present in verificationResults, the exact same Future instance
// is returned; compound expressions are folded through sigverify.Composite.
func (r *PreHandleResult) VerificationFor(key keys.Key) *sigverify.Future {
	if key.Kind() == keys.Unset {
		panic(NewInvalidArgumentError("verificationFor: key must not be unset"))
	}
	if r.verificationResults == nil {
		return sigverify.NewCompletedFuture(sigverify.SignatureVerification{Key: key, Passed: false})
	}
	if key.IsCryptoLeaf() {
		if f, ok := r.verificationResults[keys.EncodeHex(key)]; ok {
			return f
		}
		return sigverify.NewCompletedFuture(sigverify.SignatureVerification{Key: key, Passed: false})
	}
	source := func(k keys.Key) *sigverify.Future {
		return r.verificationResults[keys.EncodeHex(k)]
	}
	return sigverify.Composite(key, key, source)
}

// VerificationForAlias returns the future for the hollow account whose
// recovered EVM alias equals alias. A nil/empty alias is a programmer
// error. No matching future yields an immediate failed verdict.
func (r *PreHandleResult) VerificationForAlias(alias []byte) *sigverify.Future {
	if len(alias) == 0 {
		panic(NewInvalidArgumentError("verificationForAlias: alias must not be empty"))
	}
	for _, f := range r.verificationResults {
		if bytes.Equal(f.EVMAlias(), alias) {
			return f
		}
	}
	return sigverify.NewCompletedFuture(sigverify.SignatureVerification{EVMAlias: alias, Passed: false})
}
