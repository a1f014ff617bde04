// Copyright 2025 Certen Protocol

package prehandle

import (
	"github.com/certen/prehandle-core/pkg/keys"
	"github.com/certen/prehandle-core/pkg/store"
	"github.com/certen/prehandle-core/pkg/txn"
)

// PreHandleContext is the mutable builder assembled during a transaction's
// pre-handle pass. It is single-thread-owned until finalisation into a
// PreHandleResult; every requireXxx method panics with either a
// *PreCheckError or an *InvalidArgumentError on failure so that it can
// return itself for chaining.
type PreHandleContext struct {
	factory store.Factory
	txInfo  *txn.TransactionInfo

	payer    store.AccountID
	payerKey keys.Key

	requiredNonPayerKeys []keys.Key
	seenKeys             map[string]struct{}

	requiredHollowAccounts []*store.Account
	seenHollow             map[store.AccountID]struct{}

	innerContext *PreHandleContext

	depth    int
	maxDepth int
}

// NewContext constructs the outer PreHandleContext for a transaction,
// resolving the payer account as part of construction. maxDepth bounds
// how many CreateNestedContext calls a chain of scheduled transactions
// may make (an outer transaction plus one scheduled inner transaction,
// by default).
func NewContext(factory store.Factory, info *txn.TransactionInfo, payer store.AccountID, maxDepth int) (*PreHandleContext, error) {
	return newContext(factory, info, payer, maxDepth, 0, INVALID_PAYER_ACCOUNT_ID)
}

func newContext(factory store.Factory, info *txn.TransactionInfo, payer store.AccountID, maxDepth, depth int, failCode ResponseCode) (*PreHandleContext, error) {
	accounts, err := factory.CreateAccountStore(store.KindAccount)
	if err != nil {
		return nil, err
	}
	acc, err := accounts.GetAccountByID(payer)
	if err != nil {
		return nil, err
	}
	// Special system accounts with a null key are never valid payers,
	// covered by the same Valid() check as an ordinary absent key.
	if acc == nil || !acc.Key.Valid() {
		return nil, NewPreCheckError(failCode)
	}
	return &PreHandleContext{
		factory:    factory,
		txInfo:     info,
		payer:      payer,
		payerKey:   acc.Key,
		seenKeys:   make(map[string]struct{}),
		seenHollow: make(map[store.AccountID]struct{}),
		depth:      depth,
		maxDepth:   maxDepth,
	}, nil
}

// Factory returns the store factory this context was built against.
func (c *PreHandleContext) Factory() store.Factory { return c.factory }

// TxInfo returns the decoded transaction this context is assembling keys for.
func (c *PreHandleContext) TxInfo() *txn.TransactionInfo { return c.txInfo }

// Payer returns the resolved payer account id.
func (c *PreHandleContext) Payer() store.AccountID { return c.payer }

// PayerKey returns the resolved payer's required-signature key.
func (c *PreHandleContext) PayerKey() keys.Key { return c.payerKey }

// RequiredNonPayerKeys returns the insertion-ordered set of keys gathered
// so far, excluding the payer key.
func (c *PreHandleContext) RequiredNonPayerKeys() []keys.Key {
	out := make([]keys.Key, len(c.requiredNonPayerKeys))
	copy(out, c.requiredNonPayerKeys)
	return out
}

// RequiredHollowAccounts returns the insertion-ordered set of hollow
// accounts whose signatures are required.
func (c *PreHandleContext) RequiredHollowAccounts() []*store.Account {
	out := make([]*store.Account, len(c.requiredHollowAccounts))
	copy(out, c.requiredHollowAccounts)
	return out
}

// InnerContext returns the nested context created for a scheduled inner
// transaction, or nil if none was created.
func (c *PreHandleContext) InnerContext() *PreHandleContext { return c.innerContext }

// RequireKey adds key to requiredNonPayerKeys if it is valid and not equal
// to the payer key, de-duplicating by structural equality while preserving
// first-insertion order. Invalid keys are silently skipped.
func (c *PreHandleContext) RequireKey(key keys.Key) *PreHandleContext {
	if !key.Valid() {
		return c
	}
	if key.Equal(c.payerKey) {
		return c
	}
	enc := keys.EncodeHex(key)
	if _, ok := c.seenKeys[enc]; ok {
		return c
	}
	c.seenKeys[enc] = struct{}{}
	c.requiredNonPayerKeys = append(c.requiredNonPayerKeys, key)
	return c
}

// RequireKeyOrThrow fails with code if key is not valid; otherwise behaves
// as RequireKey.
func (c *PreHandleContext) RequireKeyOrThrow(key keys.Key, code ResponseCode) *PreHandleContext {
	if !key.Valid() {
		panic(NewPreCheckError(code))
	}
	return c.RequireKey(key)
}

// RequireAccountKeyOrThrow fails with code if id is absent from the store or
// its key is not valid; otherwise requires that key.
func (c *PreHandleContext) RequireAccountKeyOrThrow(id store.AccountID, code ResponseCode) *PreHandleContext {
	acc := c.lookupAccount(id, code)
	return c.RequireKeyOrThrow(acc.Key, code)
}

// RequireContractKeyOrThrow is RequireAccountKeyOrThrow's contract-store
// counterpart.
func (c *PreHandleContext) RequireContractKeyOrThrow(id store.AccountID, code ResponseCode) *PreHandleContext {
	acc := c.lookupContract(id, code)
	return c.RequireKeyOrThrow(acc.Key, code)
}

// RequireKeyIfReceiverSigRequired is a no-op if id is the default account id.
// It fails with code if the account is absent; is a no-op if the account's
// ReceiverSigRequired flag is false; otherwise fails if the key is unset,
// and requires it otherwise.
func (c *PreHandleContext) RequireKeyIfReceiverSigRequired(id store.AccountID, code ResponseCode) *PreHandleContext {
	if id.IsDefault() {
		return c
	}
	acc := c.lookupAccount(id, code)
	if !acc.ReceiverSigRequired {
		return c
	}
	if !acc.Key.Valid() {
		panic(NewPreCheckError(code))
	}
	return c.RequireKey(acc.Key)
}

// RequireContractKeyIfReceiverSigRequired is the contract-store counterpart
// of RequireKeyIfReceiverSigRequired.
func (c *PreHandleContext) RequireContractKeyIfReceiverSigRequired(id store.AccountID, code ResponseCode) *PreHandleContext {
	if id.IsDefault() {
		return c
	}
	acc := c.lookupContract(id, code)
	if !acc.ReceiverSigRequired {
		return c
	}
	if !acc.Key.Valid() {
		panic(NewPreCheckError(code))
	}
	return c.RequireKey(acc.Key)
}

// RequireSignatureForHollowAccount records acc as requiring its own
// signature. Unlike the requireXxx family this is a programmer-error check,
// not a PreCheckError: passing a non-hollow account panics with an
// InvalidArgumentError, since a handler calling this for a non-hollow
// account is a bug in the handler, not a problem with the transaction.
func (c *PreHandleContext) RequireSignatureForHollowAccount(acc *store.Account) *PreHandleContext {
	if acc == nil || !acc.IsHollow() {
		panic(NewInvalidArgumentError("requireSignatureForHollowAccount: account is not hollow"))
	}
	if _, ok := c.seenHollow[acc.ID]; ok {
		return c
	}
	c.seenHollow[acc.ID] = struct{}{}
	c.requiredHollowAccounts = append(c.requiredHollowAccounts, acc)
	return c
}

// CreateNestedContext constructs the inner context for a scheduled
// transaction, stores it as this context's innerContext, and returns it.
// Exceeding maxDepth fails with code, the same as any other payer-resolution
// failure for the nested transaction.
func (c *PreHandleContext) CreateNestedContext(nestedInfo *txn.TransactionInfo, payer store.AccountID, code ResponseCode) *PreHandleContext {
	if c.depth+1 >= c.maxDepth {
		panic(NewPreCheckError(code))
	}
	inner, err := newContext(c.factory, nestedInfo, payer, c.maxDepth, c.depth+1, code)
	if err != nil {
		panic(err)
	}
	c.innerContext = inner
	return inner
}

func (c *PreHandleContext) lookupAccount(id store.AccountID, code ResponseCode) *store.Account {
	accounts, err := c.factory.CreateAccountStore(store.KindAccount)
	if err != nil {
		panic(err)
	}
	acc, err := accounts.GetAccountByID(id)
	if err != nil {
		panic(err)
	}
	if acc == nil {
		panic(NewPreCheckError(code))
	}
	return acc
}

func (c *PreHandleContext) lookupContract(id store.AccountID, code ResponseCode) *store.Account {
	contracts, err := c.factory.CreateContractStore(store.KindContract)
	if err != nil {
		panic(err)
	}
	acc, err := contracts.GetContractByID(id)
	if err != nil {
		panic(err)
	}
	if acc == nil {
		panic(NewPreCheckError(code))
	}
	return acc
}
