// Package callctx carries the per-call ambient state of one in-flight
// request: the identity of the decoded envelope plus a mutable key/value
// store that interceptors and procedures use to pass derived facts (an
// authenticated principal, a tenant, a trace tag) without widening every
// function signature.
//
// Exactly one Call exists per request. It travels on the request's
// context.Context, so every goroutine spawned while handling that request
// can reach it, and two concurrent requests can never observe each other's
// entries. There is no process-global slot.
package callctx

import (
	"context"
	"encoding/json"
	"sync"
)

// Call is the ambient bag for one request. The envelope identity is fixed at
// creation; the value store is safe for concurrent use.
type Call struct {
	method    string
	requestID any
	params    map[string]json.RawMessage

	mu     sync.RWMutex
	values map[string]any
}

// New creates the Call for a decoded request. method is the wire-form
// procedure name; requestID is the opaque identifier value, or nil for
// notification-style calls; params is the request's name-keyed raw parameter
// mapping, or nil when the request carried none.
func New(method string, requestID any, params map[string]json.RawMessage) *Call {
	return &Call{method: method, requestID: requestID, params: params}
}

// Method returns the procedure name as it appeared on the wire.
func (c *Call) Method() string { return c.method }

// RequestID returns the request identifier value, or nil when absent.
func (c *Call) RequestID() any { return c.requestID }

// Params returns the raw parameter mapping from the request envelope. Hooks
// must treat it as read-only; binding works from the same mapping.
func (c *Call) Params() map[string]json.RawMessage { return c.params }

// Set stores value under key, replacing any previous entry.
func (c *Call) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = make(map[string]any)
	}
	c.values[key] = value
}

// Value returns the entry stored under key and whether it was present.
func (c *Call) Value(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

type callKey struct{}

// WithCall returns a context carrying call.
func WithCall(ctx context.Context, call *Call) context.Context {
	return context.WithValue(ctx, callKey{}, call)
}

// FromContext returns the Call attached to ctx, or nil when ctx is not part
// of a request's continuation graph.
func FromContext(ctx context.Context) *Call {
	c, _ := ctx.Value(callKey{}).(*Call)
	return c
}
