// Copyright 2025 Certen Protocol

package prehandle

import (
	"testing"

	"github.com/certen/prehandle-core/pkg/keys"
	"github.com/certen/prehandle-core/pkg/store"
	"github.com/certen/prehandle-core/pkg/txn"
)

func newTestFactory(payer store.AccountID, payerKey keys.Key) *store.Memory {
	m := store.NewMemory()
	m.PutAccount(&store.Account{ID: payer, Key: payerKey})
	return m
}

func TestNewContext_PayerResolved(t *testing.T) {
	payer := store.AccountID{Number: 1}
	key := keys.NewED25519(make([]byte, 32))
	factory := newTestFactory(payer, key)

	ctx, err := NewContext(factory, &txn.TransactionInfo{}, payer, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ctx.PayerKey().Equal(key) {
		t.Errorf("payer key mismatch")
	}
}

func TestNewContext_AbsentPayer(t *testing.T) {
	factory := store.NewMemory()
	_, err := NewContext(factory, &txn.TransactionInfo{}, store.AccountID{Number: 1}, 2)
	pce, ok := err.(*PreCheckError)
	if !ok {
		t.Fatalf("expected *PreCheckError, got %v (%T)", err, err)
	}
	if pce.ResponseCode != INVALID_PAYER_ACCOUNT_ID {
		t.Errorf("got response code %v", pce.ResponseCode)
	}
}

func TestNewContext_UnkeyedPayer(t *testing.T) {
	payer := store.AccountID{Number: 1}
	factory := newTestFactory(payer, keys.UnsetKey())
	_, err := NewContext(factory, &txn.TransactionInfo{}, payer, 2)
	if _, ok := err.(*PreCheckError); !ok {
		t.Fatalf("expected *PreCheckError, got %v", err)
	}
}

func TestRequireKey_DedupesAndPreservesOrder(t *testing.T) {
	payer := store.AccountID{Number: 1}
	payerKey := keys.NewED25519(make([]byte, 32))
	factory := newTestFactory(payer, payerKey)
	ctx, err := NewContext(factory, &txn.TransactionInfo{}, payer, 2)
	if err != nil {
		t.Fatal(err)
	}

	k1 := keys.NewED25519(bytesOf(1))
	k2 := keys.NewED25519(bytesOf(2))

	ctx.RequireKey(k1).RequireKey(k2).RequireKey(k1)

	got := ctx.RequiredNonPayerKeys()
	if len(got) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(got))
	}
	if !got[0].Equal(k1) || !got[1].Equal(k2) {
		t.Errorf("order not preserved: %v", got)
	}
}

func TestRequireKey_ExcludesPayerKey(t *testing.T) {
	payer := store.AccountID{Number: 1}
	payerKey := keys.NewED25519(bytesOf(9))
	factory := newTestFactory(payer, payerKey)
	ctx, _ := NewContext(factory, &txn.TransactionInfo{}, payer, 2)

	ctx.RequireKey(payerKey)
	if len(ctx.RequiredNonPayerKeys()) != 0 {
		t.Errorf("payer key leaked into requiredNonPayerKeys")
	}
}

func TestRequireKey_SkipsInvalidSilently(t *testing.T) {
	payer := store.AccountID{Number: 1}
	factory := newTestFactory(payer, keys.NewED25519(bytesOf(1)))
	ctx, _ := NewContext(factory, &txn.TransactionInfo{}, payer, 2)

	ctx.RequireKey(keys.UnsetKey())
	if len(ctx.RequiredNonPayerKeys()) != 0 {
		t.Errorf("expected unset key to be skipped")
	}
}

func TestRequireKeyOrThrow_PanicsOnInvalid(t *testing.T) {
	payer := store.AccountID{Number: 1}
	factory := newTestFactory(payer, keys.NewED25519(bytesOf(1)))
	ctx, _ := NewContext(factory, &txn.TransactionInfo{}, payer, 2)

	defer func() {
		r := recover()
		pce, ok := r.(*PreCheckError)
		if !ok {
			t.Fatalf("expected panic with *PreCheckError, got %v", r)
		}
		if pce.ResponseCode != KEY_REQUIRED {
			t.Errorf("got %v", pce.ResponseCode)
		}
	}()
	ctx.RequireKeyOrThrow(keys.UnsetKey(), KEY_REQUIRED)
}

func TestRequireAccountKeyOrThrow_AbsentAccount(t *testing.T) {
	payer := store.AccountID{Number: 1}
	factory := newTestFactory(payer, keys.NewED25519(bytesOf(1)))
	ctx, _ := NewContext(factory, &txn.TransactionInfo{}, payer, 2)

	defer func() {
		r := recover()
		pce, ok := r.(*PreCheckError)
		if !ok || pce.ResponseCode != INVALID_ACCOUNT_ID {
			t.Fatalf("expected INVALID_ACCOUNT_ID PreCheckError, got %v", r)
		}
	}()
	ctx.RequireAccountKeyOrThrow(store.AccountID{Number: 99}, INVALID_ACCOUNT_ID)
}

func TestRequireKeyIfReceiverSigRequired_NoopOnDefaultID(t *testing.T) {
	payer := store.AccountID{Number: 1}
	factory := newTestFactory(payer, keys.NewED25519(bytesOf(1)))
	ctx, _ := NewContext(factory, &txn.TransactionInfo{}, payer, 2)

	ctx.RequireKeyIfReceiverSigRequired(store.AccountID{}, INVALID_ACCOUNT_ID)
	if len(ctx.RequiredNonPayerKeys()) != 0 {
		t.Errorf("expected no-op on default account id")
	}
}

func TestRequireKeyIfReceiverSigRequired_NoopWhenFlagFalse(t *testing.T) {
	payer := store.AccountID{Number: 1}
	receiver := store.AccountID{Number: 2}
	factory := newTestFactory(payer, keys.NewED25519(bytesOf(1)))
	factory.PutAccount(&store.Account{ID: receiver, Key: keys.NewED25519(bytesOf(2)), ReceiverSigRequired: false})
	ctx, _ := NewContext(factory, &txn.TransactionInfo{}, payer, 2)

	ctx.RequireKeyIfReceiverSigRequired(receiver, INVALID_ACCOUNT_ID)
	if len(ctx.RequiredNonPayerKeys()) != 0 {
		t.Errorf("expected no-op when ReceiverSigRequired is false")
	}
}

func TestRequireKeyIfReceiverSigRequired_RequiresWhenFlagTrue(t *testing.T) {
	payer := store.AccountID{Number: 1}
	receiver := store.AccountID{Number: 2}
	receiverKey := keys.NewED25519(bytesOf(2))
	factory := newTestFactory(payer, keys.NewED25519(bytesOf(1)))
	factory.PutAccount(&store.Account{ID: receiver, Key: receiverKey, ReceiverSigRequired: true})
	ctx, _ := NewContext(factory, &txn.TransactionInfo{}, payer, 2)

	ctx.RequireKeyIfReceiverSigRequired(receiver, INVALID_ACCOUNT_ID)
	got := ctx.RequiredNonPayerKeys()
	if len(got) != 1 || !got[0].Equal(receiverKey) {
		t.Errorf("expected receiver key required, got %v", got)
	}
}

func TestRequireSignatureForHollowAccount_PanicsOnNonHollow(t *testing.T) {
	payer := store.AccountID{Number: 1}
	factory := newTestFactory(payer, keys.NewED25519(bytesOf(1)))
	ctx, _ := NewContext(factory, &txn.TransactionInfo{}, payer, 2)

	defer func() {
		r := recover()
		if _, ok := r.(*InvalidArgumentError); !ok {
			t.Fatalf("expected *InvalidArgumentError, got %v (%T)", r, r)
		}
	}()
	ctx.RequireSignatureForHollowAccount(&store.Account{Key: keys.NewED25519(bytesOf(3))})
}

func TestRequireSignatureForHollowAccount_AddsHollowAccount(t *testing.T) {
	payer := store.AccountID{Number: 1}
	factory := newTestFactory(payer, keys.NewED25519(bytesOf(1)))
	ctx, _ := NewContext(factory, &txn.TransactionInfo{}, payer, 2)

	hollow := &store.Account{ID: store.AccountID{Number: 5}, Alias: make([]byte, 20), Key: keys.UnsetKey()}
	ctx.RequireSignatureForHollowAccount(hollow)
	ctx.RequireSignatureForHollowAccount(hollow)

	got := ctx.RequiredHollowAccounts()
	if len(got) != 1 {
		t.Fatalf("expected dedup to 1 hollow account, got %d", len(got))
	}
}

func TestCreateNestedContext_DepthLimit(t *testing.T) {
	payer := store.AccountID{Number: 1}
	inner := store.AccountID{Number: 2}
	factory := newTestFactory(payer, keys.NewED25519(bytesOf(1)))
	factory.PutAccount(&store.Account{ID: inner, Key: keys.NewED25519(bytesOf(2))})
	ctx, _ := NewContext(factory, &txn.TransactionInfo{}, payer, 2)

	nested := ctx.CreateNestedContext(&txn.TransactionInfo{}, inner, INVALID_PAYER_ACCOUNT_ID)
	if ctx.InnerContext() != nested {
		t.Errorf("innerContext not wired")
	}

	defer func() {
		r := recover()
		pce, ok := r.(*PreCheckError)
		if !ok || pce.ResponseCode != INVALID_PAYER_ACCOUNT_ID {
			t.Fatalf("expected depth-limit PreCheckError, got %v", r)
		}
	}()
	nested.CreateNestedContext(&txn.TransactionInfo{}, payer, INVALID_PAYER_ACCOUNT_ID)
}

func bytesOf(b byte) []byte {
	buf := make([]byte, 32)
	buf[0] = b
	return buf
}
