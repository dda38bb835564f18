// Package interceptor defines the extension point for cross-cutting request
// policy. Interceptors run once per request, in registration order, after the
// envelope is decoded and before the procedure is resolved. They communicate
// with later hooks and with the procedure itself by mutating the request's
// callctx.Call value store.
//
// An interceptor that returns an error aborts dispatch for that request: no
// later interceptor runs, the procedure is not invoked, and the caller
// receives an internal-error envelope carrying the fault detail.
package interceptor

import (
	"context"

	"github.com/jsonrpcd/jsonrpcd-go/callctx"
)

// Interceptor is one hook in the chain.
type Interceptor interface {
	Intercept(ctx context.Context, call *callctx.Call) error
}

// Func adapts a plain function to the Interceptor interface.
type Func func(ctx context.Context, call *callctx.Call) error

func (f Func) Intercept(ctx context.Context, call *callctx.Call) error {
	return f(ctx, call)
}

var _ Interceptor = (Func)(nil)
