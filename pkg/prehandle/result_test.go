// Copyright 2025 Certen Protocol

package prehandle

import (
	"context"
	"testing"
	"time"

	"github.com/certen/prehandle-core/pkg/keys"
	"github.com/certen/prehandle-core/pkg/sigverify"
	"github.com/certen/prehandle-core/pkg/store"
	"github.com/certen/prehandle-core/pkg/txn"
)

func completedFutures(results map[string]bool) map[string]*sigverify.Future {
	out := make(map[string]*sigverify.Future, len(results))
	for hex, passed := range results {
		out[hex] = sigverify.NewCompletedFuture(sigverify.SignatureVerification{Passed: passed})
	}
	return out
}

func leafKey(b byte) keys.Key { return keys.NewED25519(bytesOf(b)) }

// TestUnknownFailureHasNoPayer checks that the fallback result for an
// uncaught error carries no payer and no transaction info.
func TestUnknownFailureHasNoPayer(t *testing.T) {
	r := UnknownFailure()
	if r.Status() != StatusUnknownFailure || r.ResponseCode() != UNKNOWN {
		t.Fatalf("got status=%v code=%v", r.Status(), r.ResponseCode())
	}
	if _, ok := r.Payer(); ok {
		t.Errorf("expected no payer")
	}
	if r.TxInfo() != nil || r.InnerResult() != nil {
		t.Errorf("expected nil txInfo and innerResult")
	}
}

// TestVerificationFor_NilResultsFailsImmediately checks that a result
// with no dispatched verifications at all reports every key as failed.
func TestVerificationFor_NilResultsFailsImmediately(t *testing.T) {
	r := PreHandleFailure(store.AccountID{Number: 1}, keys.UnsetKey(), INVALID_PAYER_ACCOUNT_ID, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := r.VerificationFor(leafKey(1)).Await(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v.Passed {
		t.Errorf("expected failed verdict, got passed")
	}
}

// TestVerificationFor_LeafIdentity checks that querying a cryptographic
// leaf key already present in verificationResults returns the exact same
// Future instance, not a copy.
func TestVerificationFor_LeafIdentity(t *testing.T) {
	k := leafKey(1)
	want := sigverify.NewCompletedFuture(sigverify.SignatureVerification{Key: k, Passed: true})
	r, err := NewSoFarSoGood(store.AccountID{Number: 1}, keys.NewED25519(bytesOf(9)), &txn.TransactionInfo{}, map[string]*sigverify.Future{
		keys.EncodeHex(k): want,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := r.VerificationFor(k)
	if got != want {
		t.Errorf("expected identity, got different future instance")
	}
}

// TestVerificationFor_KeyListEmptyFails checks that an empty KeyList
// evaluates to a failed verdict rather than vacuously passing.
func TestVerificationFor_KeyListEmptyFails(t *testing.T) {
	r, err := NewSoFarSoGood(store.AccountID{Number: 1}, keys.NewED25519(bytesOf(9)), &txn.TransactionInfo{}, map[string]*sigverify.Future{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := r.VerificationFor(keys.NewKeyList(nil)).Await(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v.Passed {
		t.Errorf("expected empty KeyList to fail")
	}
}

func mustAwait(t *testing.T, f *sigverify.Future) sigverify.SignatureVerification {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := f.Await(ctx)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

// TestThresholdKeyPassesOnceEnoughChildrenPass checks that a threshold key
// passes once enough of its children (counting duplicates and out-of-band
// contract keys) are known to have passed, without waiting on the rest.
func TestThresholdKeyPassesOnceEnoughChildrenPass(t *testing.T) {
	e1, e2, d1, d2 := leafKey(1), leafKey(2), keys.NewContractID(keys.ContractRef{Number: 1}), keys.NewContractID(keys.ContractRef{Number: 2})
	expr := keys.NewThresholdKey(3, []keys.Key{e1, e2, e2, d1, d2, d2})

	futures := map[string]*sigverify.Future{
		keys.EncodeHex(e1): sigverify.NewCompletedFuture(sigverify.SignatureVerification{Key: e1, Passed: true}),
		keys.EncodeHex(e2): sigverify.NewCompletedFuture(sigverify.SignatureVerification{Key: e2, Passed: true}),
	}
	r, err := NewSoFarSoGood(store.AccountID{Number: 1}, keys.NewED25519(bytesOf(9)), &txn.TransactionInfo{}, futures, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v := mustAwait(t, r.VerificationFor(expr)); !v.Passed {
		t.Errorf("expected pass")
	}
}

// TestThresholdKeyFailsWhenTooFewChildrenPass checks that a threshold key
// fails once too many children are known to have failed for the
// threshold to still be reachable.
func TestThresholdKeyFailsWhenTooFewChildrenPass(t *testing.T) {
	e1, e2, d1, d2 := leafKey(1), leafKey(2), leafKey(3), leafKey(4)
	expr := keys.NewThresholdKey(3, []keys.Key{e1, e2, e2, d1, d2, d2})

	futures := map[string]*sigverify.Future{
		keys.EncodeHex(e1): sigverify.NewCompletedFuture(sigverify.SignatureVerification{Key: e1, Passed: true}),
		keys.EncodeHex(e2): sigverify.NewCompletedFuture(sigverify.SignatureVerification{Key: e2, Passed: false}),
	}
	r, err := NewSoFarSoGood(store.AccountID{Number: 1}, keys.NewED25519(bytesOf(9)), &txn.TransactionInfo{}, futures, nil)
	if err != nil {
		t.Fatal(err)
	}
	// D1 and D2 have no future in the signature map, so they are absent
	// and fail; only e1 passes -- E2 fails so its duplicate also fails,
	// leaving passCount=1 < t'=3.
	if v := mustAwait(t, r.VerificationFor(expr)); v.Passed {
		t.Errorf("expected fail")
	}
}

// TestNegativeThresholdClampsToOne checks that a threshold below 1 is
// clamped to 1 rather than passing vacuously or rejecting the key.
func TestNegativeThresholdClampsToOne(t *testing.T) {
	e1, d1 := leafKey(1), keys.NewContractID(keys.ContractRef{Number: 1})
	expr := keys.NewThresholdKey(-5, []keys.Key{e1, d1})

	futures := map[string]*sigverify.Future{
		keys.EncodeHex(e1): sigverify.NewCompletedFuture(sigverify.SignatureVerification{Key: e1, Passed: true}),
	}
	r, err := NewSoFarSoGood(store.AccountID{Number: 1}, keys.NewED25519(bytesOf(9)), &txn.TransactionInfo{}, futures, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v := mustAwait(t, r.VerificationFor(expr)); !v.Passed {
		t.Errorf("expected pass (threshold clamps to 1)")
	}
}

// TestOverlargeThresholdClampsToChildCount checks that a threshold larger
// than the number of children is clamped to the child count, requiring
// all of them rather than becoming unsatisfiable.
func TestOverlargeThresholdClampsToChildCount(t *testing.T) {
	e1, d1 := leafKey(1), keys.NewContractID(keys.ContractRef{Number: 1})
	expr := keys.NewThresholdKey(99, []keys.Key{e1, d1})

	futures := map[string]*sigverify.Future{
		keys.EncodeHex(e1): sigverify.NewCompletedFuture(sigverify.SignatureVerification{Key: e1, Passed: true}),
	}
	r, err := NewSoFarSoGood(store.AccountID{Number: 1}, keys.NewED25519(bytesOf(9)), &txn.TransactionInfo{}, futures, nil)
	if err != nil {
		t.Fatal(err)
	}
	// D1 is out-of-band Pass, E1 passes: both of 2 children pass, t'
	// clamps to n=2.
	if v := mustAwait(t, r.VerificationFor(expr)); !v.Passed {
		t.Errorf("expected pass (threshold clamps to n=2)")
	}
}

// TestNodeDueDiligenceFailureHasNoVerifications checks that a node
// due-diligence result (charged to the node, not the payer) has no
// dispatched verifications to await.
func TestNodeDueDiligenceFailureHasNoVerifications(t *testing.T) {
	node := store.AccountID{Shard: 0, Realm: 0, Number: 3}
	r := NodeDueDiligenceFailure(node, INVALID_PAYER_ACCOUNT_ID, &txn.TransactionInfo{})

	payer, ok := r.Payer()
	if !ok || payer != node {
		t.Fatalf("expected payer=%v, got %v (ok=%v)", node, payer, ok)
	}
	if r.Status() != StatusNodeDueDiligenceFailure {
		t.Errorf("got status %v", r.Status())
	}
	if v := mustAwait(t, r.VerificationForAlias(make([]byte, 20))); v.Passed {
		t.Errorf("expected alias lookup to fail on a result with no verifications")
	}
}

// TestVerificationForAlias_MatchesByAlias checks that alias lookup
// matches by recovered EVM alias, not by key.
func TestVerificationForAlias_MatchesByAlias(t *testing.T) {
	alias := make([]byte, 20)
	alias[0] = 0xAB
	k := keys.NewECDSASecp256k1(make([]byte, 33))
	want := sigverify.NewCompletedFuture(sigverify.SignatureVerification{Key: k, EVMAlias: alias, Passed: true})

	r, err := NewSoFarSoGood(store.AccountID{Number: 1}, keys.NewED25519(bytesOf(9)), &txn.TransactionInfo{}, map[string]*sigverify.Future{
		keys.EncodeHex(k): want,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := r.VerificationForAlias(alias); got != want {
		t.Errorf("expected identity with the matching future")
	}

	other := make([]byte, 20)
	other[0] = 0xCD
	if v := mustAwait(t, r.VerificationForAlias(other)); v.Passed {
		t.Errorf("expected no-match alias to fail")
	}
}

func TestVerificationFor_PanicsOnUnsetKey(t *testing.T) {
	r := UnknownFailure()
	defer func() {
		if _, ok := recover().(*InvalidArgumentError); !ok {
			t.Fatalf("expected InvalidArgumentError panic")
		}
	}()
	r.VerificationFor(keys.UnsetKey())
}

func TestVerificationForAlias_PanicsOnEmptyAlias(t *testing.T) {
	r := UnknownFailure()
	defer func() {
		if _, ok := recover().(*InvalidArgumentError); !ok {
			t.Fatalf("expected InvalidArgumentError panic")
		}
	}()
	r.VerificationForAlias(nil)
}

func TestNewSoFarSoGood_RejectsInvalidPayerKey(t *testing.T) {
	_, err := NewSoFarSoGood(store.AccountID{Number: 1}, keys.UnsetKey(), &txn.TransactionInfo{}, nil, nil)
	if _, ok := err.(*InvalidArgumentError); !ok {
		t.Fatalf("expected InvalidArgumentError, got %v", err)
	}
}
