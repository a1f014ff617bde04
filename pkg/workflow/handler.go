// Copyright 2025 Certen Protocol
//
// Package workflow implements the PreHandle orchestrator: decode,
// resolve the payer, let a transaction-kind handler gather the required
// keys, dispatch signature verification, and assemble the resulting
// PreHandleResult.

package workflow

import "github.com/certen/prehandle-core/pkg/prehandle"

// Handler populates a PreHandleContext with the keys and hollow accounts
// a specific transaction kind requires. Implementations call
// PreHandleContext's requireXxx family and may panic with a
// *prehandle.PreCheckError (handler-specific validation failure) or a
// *prehandle.InvalidArgumentError (programmer error); both are handled by
// the enclosing Workflow.
type Handler interface {
	GatherKeys(ctx *prehandle.PreHandleContext)
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(ctx *prehandle.PreHandleContext)

func (f HandlerFunc) GatherKeys(ctx *prehandle.PreHandleContext) { f(ctx) }

// Registry maps transaction kinds to the Handler responsible for gathering
// their required keys.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds kind to h. A later call for the same kind replaces it.
func (r *Registry) Register(kind string, h Handler) {
	r.handlers[kind] = h
}

// HandlerFor returns the Handler registered for kind, if any.
func (r *Registry) HandlerFor(kind string) (Handler, bool) {
	h, ok := r.handlers[kind]
	return h, ok
}
