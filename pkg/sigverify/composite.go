// Copyright 2025 Certen Protocol

package sigverify

import (
	"context"

	"github.com/certen/prehandle-core/pkg/keys"
)

// Source resolves the in-flight Future backing a single cryptographic
// leaf key, or nil if none was ever dispatched for it. An absent leaf is
// treated as fail — distinct from a dispatched-but-not-yet-completed
// future, which is Pending.
type Source func(k keys.Key) *Future

// Composite folds the children of a compound key expression (or a single
// leaf) into one Future whose verdict becomes available as soon as the
// key evaluator can determine Pass or Fail, without waiting for every
// child to complete. Folding over completions as they arrive, rather
// than busy-waiting or blocking on every child, lets a threshold or
// key-list short-circuit the moment enough children are known.
func Composite(queried keys.Key, expr keys.Key, source Source) *Future {
	out := newScheduledFuture(queried, nil)

	leaves := collectLeafFutures(expr, source)

	if len(leaves) == 0 {
		// No dispatched cryptographic leaves reachable (e.g. a bare
		// CONTRACT_ID, an UNSET key, or every leaf genuinely absent):
		// evaluate once, synchronously, against an always-fail lookup —
		// there is nothing to wait on.
		verdict := keys.Evaluate(expr, func(keys.Key) keys.Verdict { return keys.Fail })
		out.complete(SignatureVerification{Key: queried, Passed: verdict == keys.Pass})
		return out
	}

	go func() {
		verdict := foldLeaves(expr, leaves)
		out.complete(SignatureVerification{Key: queried, Passed: verdict == keys.Pass})
	}()

	return out
}

// collectLeafFutures walks expr and resolves every reachable cryptographic
// leaf to its backing Future via source. Leaves with no backing future are
// genuinely absent and are omitted: Evaluate's lookup reports them Fail.
func collectLeafFutures(expr keys.Key, source Source) map[string]*Future {
	out := make(map[string]*Future)
	var walk func(k keys.Key)
	walk = func(k keys.Key) {
		if k.IsCryptoLeaf() {
			if f := source(k); f != nil {
				out[keys.EncodeHex(k)] = f
			}
			return
		}
		for _, c := range k.Children() {
			walk(c)
		}
	}
	walk(expr)
	return out
}

// foldLeaves watches the given dispatched leaf futures and folds their
// completions into the key evaluator, returning as soon as a
// determinable (non-Pending) verdict is reached. Leaves present in the
// `leaves` map but not yet completed report Pending; leaves never
// dispatched at all (absent from the map) report Fail.
func foldLeaves(expr keys.Key, leaves map[string]*Future) keys.Verdict {
	completed := make(map[string]keys.Verdict, len(leaves))

	lookup := func(k keys.Key) keys.Verdict {
		hex := keys.EncodeHex(k)
		if v, ok := completed[hex]; ok {
			return v
		}
		if _, dispatched := leaves[hex]; dispatched {
			return keys.Pending
		}
		return keys.Fail
	}

	if v := keys.Evaluate(expr, lookup); v != keys.Pending {
		return v
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type completion struct {
		key    string
		result SignatureVerification
	}
	results := make(chan completion, len(leaves))

	for hex, f := range leaves {
		go func(hex string, fut *Future) {
			r, err := fut.Await(ctx)
			if err != nil {
				return
			}
			select {
			case results <- completion{hex, r}:
			case <-ctx.Done():
			}
		}(hex, f)
	}

	for remaining := len(leaves); remaining > 0; remaining-- {
		c := <-results
		v := keys.Fail
		if c.result.Passed {
			v = keys.Pass
		}
		completed[c.key] = v

		if v := keys.Evaluate(expr, lookup); v != keys.Pending {
			return v
		}
	}

	// Every dispatched leaf has completed and the evaluator still reports
	// Pending: every leaf's verdict is now terminal in `completed`, so
	// the remaining Pending can only come from a leaf that was never
	// dispatched (already Fail in lookup) — Evaluate is therefore
	// determinable. Re-running here is defensive, not load-bearing.
	return keys.Evaluate(expr, lookup)
}
