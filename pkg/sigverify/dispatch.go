// Copyright 2025 Certen Protocol

package sigverify

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/certen/prehandle-core/pkg/keys"
	"github.com/certen/prehandle-core/pkg/metrics"
)

// Request describes one signature awaiting verification: the key it
// claims to be signed by, the raw signature bytes, and the message hash it
// was signed over.
type Request struct {
	Key         keys.Key
	Signature   []byte
	MessageHash []byte
	EVMAlias    []byte // non-nil when this key is expected to resolve a hollow account
}

// Dispatcher runs verifications on a bounded CPU-bound pool, separate from
// the pre-handle worker pool. It never blocks the caller beyond acquiring
// a pool slot's bookkeeping — the actual verification work always runs in
// its own goroutine.
type Dispatcher struct {
	engineFor func(keys.Kind) (Engine, bool)
	sem       *semaphore.Weighted
	metrics   *metrics.Registry
}

// NewDispatcher builds a Dispatcher with up to maxConcurrent verifications
// running at once.
func NewDispatcher(maxConcurrent int64) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Dispatcher{
		engineFor: ForKind,
		sem:       semaphore.NewWeighted(maxConcurrent),
	}
}

// WithMetrics attaches a metrics.Registry the Dispatcher reports dispatch
// counts, pool occupancy, and verification latency to.
func (d *Dispatcher) WithMetrics(m *metrics.Registry) *Dispatcher {
	d.metrics = m
	return d
}

// Dispatch submits req for verification and returns its already-scheduled
// Future. Both the pool-slot acquisition and the verification run on a
// goroutine of their own, so Dispatch returns without waiting on either;
// if ctx is done before a slot is acquired, the verdict is failed.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) *Future {
	future := newScheduledFuture(req.Key, req.EVMAlias)
	kind := kindLabel(req.Key.Kind())

	if d.metrics != nil {
		d.metrics.VerificationsDispatched.WithLabelValues(kind).Inc()
	}

	go func() {
		start := time.Now()
		if err := d.sem.Acquire(ctx, 1); err != nil {
			future.complete(SignatureVerification{Key: req.Key, EVMAlias: req.EVMAlias, Passed: false})
			return
		}
		if d.metrics != nil {
			d.metrics.WorkerPoolOccupancy.WithLabelValues("sigverify").Inc()
		}
		defer func() {
			d.sem.Release(1)
			if d.metrics != nil {
				d.metrics.WorkerPoolOccupancy.WithLabelValues("sigverify").Dec()
				d.metrics.VerificationLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
			}
		}()

		engine, ok := d.engineFor(req.Key.Kind())
		if !ok {
			future.complete(SignatureVerification{Key: req.Key, EVMAlias: req.EVMAlias, Passed: false})
			return
		}

		result := engine.VerifySync(req.Key, req.Signature, req.MessageHash)
		if result.EVMAlias == nil {
			result.EVMAlias = req.EVMAlias
		}
		future.complete(result)
	}()

	return future
}

func kindLabel(k keys.Kind) string {
	switch k {
	case keys.ED25519:
		return "ed25519"
	case keys.ECDSASecp256k1:
		return "ecdsa_secp256k1"
	default:
		return "unknown"
	}
}
