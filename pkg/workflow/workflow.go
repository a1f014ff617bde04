// Copyright 2025 Certen Protocol

package workflow

import (
	"bytes"
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/certen/prehandle-core/pkg/codec"
	"github.com/certen/prehandle-core/pkg/keys"
	"github.com/certen/prehandle-core/pkg/metrics"
	"github.com/certen/prehandle-core/pkg/prehandle"
	"github.com/certen/prehandle-core/pkg/sigverify"
	"github.com/certen/prehandle-core/pkg/store"
	"github.com/certen/prehandle-core/pkg/txn"
)

// Workflow is the PreHandle orchestrator: decode, resolve the payer, run
// the transaction-kind handler, dispatch signature verification, and
// assemble the resulting PreHandleResult.
type Workflow struct {
	decoder    codec.Decoder
	factory    store.Factory
	handlers   *Registry
	dispatcher *sigverify.Dispatcher
	node       store.AccountID
	maxDepth   int

	log     zerolog.Logger
	metrics *metrics.Registry
}

// New constructs a Workflow. node is the account charged for decode
// failures: a transaction the node could not even parse is the
// submitting node's own fault, not the payer's. maxDepth bounds
// PreHandleContext nesting.
func New(decoder codec.Decoder, factory store.Factory, handlers *Registry, dispatcher *sigverify.Dispatcher, node store.AccountID, maxDepth int) *Workflow {
	return &Workflow{
		decoder:    decoder,
		factory:    factory,
		handlers:   handlers,
		dispatcher: dispatcher,
		node:       node,
		maxDepth:   maxDepth,
		log:        zerolog.Nop(),
	}
}

// WithLogger attaches a component logger, used to record one structured
// line per PreHandle call keyed by a per-call correlation id.
func (w *Workflow) WithLogger(log zerolog.Logger) *Workflow {
	w.log = log.With().Str("component", "workflow").Logger()
	return w
}

// WithMetrics attaches a metrics.Registry this Workflow reports
// pre-handle outcomes to.
func (w *Workflow) WithMetrics(m *metrics.Registry) *Workflow {
	w.metrics = m
	return w
}

// PreHandle runs the full decode/gather-keys/dispatch state machine over
// raw transaction bytes and returns exactly one PreHandleResult. It never
// blocks on signature verification completion: dispatched futures are
// returned still in flight.
//
// A panicking *prehandle.InvalidArgumentError from a Handler is a
// programmer error and is allowed to propagate out of PreHandle
// unchanged rather than being caught and reclassified as a transaction
// failure.
func (w *Workflow) PreHandle(ctx context.Context, raw []byte) *prehandle.PreHandleResult {
	correlationID := uuid.NewString()
	log := w.log.With().Str("correlation_id", correlationID).Logger()

	result := w.preHandle(ctx, raw)

	code := result.ResponseCode().String()
	status := result.Status().String()
	log.Debug().Str("status", status).Str("response_code", code).Msg("pre-handle complete")
	if w.metrics != nil {
		w.metrics.PreHandleOutcomes.WithLabelValues(status, code).Inc()
	}
	return result
}

func (w *Workflow) preHandle(ctx context.Context, raw []byte) *prehandle.PreHandleResult {
	info, err := w.decoder.Decode(raw)
	if err != nil {
		return prehandle.NodeDueDiligenceFailure(w.node, codec.DecodeErrorResponseCode(err), info)
	}

	pctx, err := prehandle.NewContext(w.factory, info, info.TransactionID.PayerID, w.maxDepth)
	if err != nil {
		if pce, ok := err.(*prehandle.PreCheckError); ok {
			return prehandle.PreHandleFailure(info.TransactionID.PayerID, keys.UnsetKey(), pce.ResponseCode, info, nil)
		}
		return prehandle.UnknownFailure()
	}

	if failure := w.gatherKeys(pctx, info); failure != nil {
		return failure
	}

	result, err := w.buildResult(ctx, pctx, info)
	if err != nil {
		return prehandle.UnknownFailure()
	}
	return result
}

// gatherKeys invokes the registered Handler for info.Kind, translating
// its panics into the appropriate result. It returns nil when
// key-gathering succeeded.
func (w *Workflow) gatherKeys(pctx *prehandle.PreHandleContext, info *txn.TransactionInfo) (failure *prehandle.PreHandleResult) {
	handler, ok := w.handlers.HandlerFor(info.Kind)
	if !ok {
		return prehandle.PreHandleFailure(pctx.Payer(), pctx.PayerKey(), prehandle.INVALID_TRANSACTION, info, nil)
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch e := r.(type) {
		case *prehandle.InvalidArgumentError:
			panic(e)
		case *prehandle.PreCheckError:
			failure = prehandle.PreHandleFailure(pctx.Payer(), pctx.PayerKey(), e.ResponseCode, info, nil)
		default:
			failure = prehandle.UnknownFailure()
		}
	}()

	handler.GatherKeys(pctx)
	return nil
}

// buildResult dispatches signature verification for pctx (and, recursively,
// any nested scheduled context) and assembles the resulting
// PreHandleResult chain.
func (w *Workflow) buildResult(ctx context.Context, pctx *prehandle.PreHandleContext, info *txn.TransactionInfo) (*prehandle.PreHandleResult, error) {
	var inner *prehandle.PreHandleResult
	if nested := pctx.InnerContext(); nested != nil {
		var err error
		inner, err = w.buildResult(ctx, nested, nested.TxInfo())
		if err != nil {
			return nil, err
		}
	}

	verifications := w.dispatchVerifications(ctx, pctx, info)
	return prehandle.NewSoFarSoGood(pctx.Payer(), pctx.PayerKey(), info, verifications, inner)
}

// dispatchVerifications submits one SignatureVerificationFuture per
// distinct cryptographic leaf reachable from payerKey ∪
// requiredNonPayerKeys, plus one per hollow account whose attached
// signature can be matched by recovered EVM alias. Deduplication key is
// the leaf's wire encoding. A required leaf with no matching submitted
// signature is never dispatched — it will be reported absent (Fail) by
// the key evaluator.
func (w *Workflow) dispatchVerifications(ctx context.Context, pctx *prehandle.PreHandleContext, info *txn.TransactionInfo) map[string]*sigverify.Future {
	sigByKeyHex := make(map[string]txn.SignaturePair, len(info.Signatures))
	for _, pair := range info.Signatures {
		k, err := pair.Key.ToKey()
		if err != nil || !k.IsCryptoLeaf() {
			continue
		}
		sigByKeyHex[keys.EncodeHex(k)] = pair
	}

	leaves := make(map[string]struct{})
	collectLeaves(pctx.PayerKey(), leaves)
	for _, k := range pctx.RequiredNonPayerKeys() {
		collectLeaves(k, leaves)
	}

	out := make(map[string]*sigverify.Future, len(leaves))
	for hex := range leaves {
		pair, ok := sigByKeyHex[hex]
		if !ok {
			continue
		}
		k, _ := pair.Key.ToKey()
		out[hex] = w.dispatcher.Dispatch(ctx, sigverify.Request{
			Key:         k,
			Signature:   pair.Signature,
			MessageHash: info.SignedBytesHash,
		})
	}

	// Recovering the alias a candidate ECDSA signature resolves to is
	// CPU-bound (public key decompression); fan it out across hollow
	// accounts with errgroup rather than serially, the actual dispatch
	// still funnels through the bounded Dispatcher.
	// The futures are dispatched under the caller's ctx, not an errgroup
	// context: that one is cancelled when Wait returns, which would fail
	// any verification still waiting for a pool slot.
	var mu sync.Mutex
	var g errgroup.Group
	for _, acc := range pctx.RequiredHollowAccounts() {
		acc := acc
		g.Go(func() error {
			pair, ok := findHollowSignature(acc.Alias, info.Signatures)
			if !ok {
				return nil
			}
			k, err := pair.Key.ToKey()
			if err != nil {
				return nil
			}
			future := w.dispatcher.Dispatch(ctx, sigverify.Request{
				Key:         k,
				Signature:   pair.Signature,
				MessageHash: info.SignedBytesHash,
				EVMAlias:    acc.Alias,
			})
			mu.Lock()
			out[keys.EncodeHex(k)] = future
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return out
}

func collectLeaves(k keys.Key, out map[string]struct{}) {
	if k.IsCryptoLeaf() {
		out[keys.EncodeHex(k)] = struct{}{}
		return
	}
	for _, c := range k.Children() {
		collectLeaves(c, out)
	}
}

// findHollowSignature locates the submitted ECDSA signature, if any, whose
// attached public key recovers to alias — the only way to identify which
// signature belongs to a hollow account ahead of verification, since a
// hollow account has no public key on record to match against.
func findHollowSignature(alias []byte, pairs []txn.SignaturePair) (txn.SignaturePair, bool) {
	for _, pair := range pairs {
		if pair.Key.Kind != "ECDSA_SECP256K1" {
			continue
		}
		derived, err := sigverify.EVMAliasFromCompressedPubkey(pair.Key.Bytes)
		if err != nil {
			continue
		}
		if bytes.Equal(derived, alias) {
			return pair, true
		}
	}
	return txn.SignaturePair{}, false
}
