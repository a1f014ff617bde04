// Copyright 2025 Certen Protocol

package sigverify

import (
	"context"

	"github.com/certen/prehandle-core/pkg/keys"
)

// Future is the public contract of an in-flight signature verification:
// Await, Key, EVMAlias. Cancellation is unsupported — verification is
// cheap, and racing to completion is cheaper than coordinating
// cancellation.
type Future struct {
	key      keys.Key
	evmAlias []byte
	done     chan struct{}
	result   SignatureVerification
}

// newScheduledFuture constructs a Future that is already running: work is
// started by the caller (see Dispatch) before this value is returned, so a
// Future never holds a reference back to the transaction body it came from.
func newScheduledFuture(key keys.Key, evmAlias []byte) *Future {
	return &Future{
		key:      key,
		evmAlias: evmAlias,
		done:     make(chan struct{}),
	}
}

// complete is called exactly once by the goroutine performing the
// verification. Calling it twice is a programmer error.
func (f *Future) complete(result SignatureVerification) {
	f.result = result
	close(f.done)
}

// Key returns the key this future verifies.
func (f *Future) Key() keys.Key { return f.key }

// EVMAlias returns the alias of the hollow account this future's key is
// expected to resolve to, or nil if this future is not alias-bound.
func (f *Future) EVMAlias() []byte { return f.evmAlias }

// Await blocks until the verification completes or ctx is done. A
// cancelled/expired context does not cancel the underlying verification
// work (it is not cancellable); it only stops this particular caller from
// waiting on it.
func (f *Future) Await(ctx context.Context) (SignatureVerification, error) {
	select {
	case <-f.done:
		return f.result, nil
	case <-ctx.Done():
		return SignatureVerification{}, ctx.Err()
	}
}

// Done returns a channel that is closed once the future has completed, for
// callers that want to select over multiple futures without contexts.
func (f *Future) Done() <-chan struct{} { return f.done }

// NewCompletedFuture wraps an already-known result in a Future, used for
// the immediate failed verdicts returned when there is nothing to
// dispatch (a nil verificationResults map, or an alias with no matching
// future).
func NewCompletedFuture(result SignatureVerification) *Future {
	f := &Future{key: result.Key, evmAlias: result.EVMAlias, done: make(chan struct{})}
	close(f.done)
	f.result = result
	return f
}

// Peek returns the result and whether it is available yet, without
// blocking.
func (f *Future) Peek() (SignatureVerification, bool) {
	select {
	case <-f.done:
		return f.result, true
	default:
		return SignatureVerification{}, false
	}
}
