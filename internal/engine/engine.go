// Package engine implements the dispatch pipeline: the interceptor chain,
// method resolution, parameter binding, invocation with panic containment,
// and normalization of every fault into a response envelope.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jsonrpcd/jsonrpcd-go/auth"
	"github.com/jsonrpcd/jsonrpcd-go/callctx"
	"github.com/jsonrpcd/jsonrpcd-go/events"
	"github.com/jsonrpcd/jsonrpcd-go/interceptor"
	"github.com/jsonrpcd/jsonrpcd-go/internal/jsonrpc"
	"github.com/jsonrpcd/jsonrpcd-go/rpcservice"
)

// Engine turns decoded request envelopes into response envelopes. It owns no
// transport: the HTTP and stdio fronts feed it bodies or decoded requests and
// write whatever envelope it returns. Faults never escape as errors; every
// recognized failure becomes an error envelope.
type Engine struct {
	reg  *rpcservice.Registry
	log  *slog.Logger
	sink events.Sink

	mu           sync.RWMutex
	interceptors []interceptor.Interceptor
}

// NewEngine builds an engine over a populated registry.
func NewEngine(reg *rpcservice.Registry, opts ...Option) *Engine {
	e := &Engine{
		reg:  reg,
		log:  slog.Default(),
		sink: events.NopSink{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for dispatch outcomes.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithSink sets the sink receiving one event per completed dispatch.
func WithSink(sink events.Sink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.sink = sink
		}
	}
}

// WithInterceptors appends hooks to the chain in the given order.
func WithInterceptors(ics ...interceptor.Interceptor) Option {
	return func(e *Engine) {
		e.interceptors = append(e.interceptors, ics...)
	}
}

// RegisterInterceptor appends a hook to the chain. Hooks run sequentially in
// registration order before every dispatch.
func (e *Engine) RegisterInterceptor(ic interceptor.Interceptor) {
	if ic == nil {
		return
	}
	e.mu.Lock()
	e.interceptors = append(e.interceptors, ic)
	e.mu.Unlock()
}

// Introspect returns the registered method listing as a success envelope
// with a null id. No procedure is invoked.
func (e *Engine) Introspect() *jsonrpc.Response {
	resp, err := jsonrpc.NewResultResponse(nil, e.reg.All())
	if err != nil {
		return jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeInternalError, "Internal error", err.Error())
	}
	return resp
}

// HandleMessage decodes one raw envelope and dispatches it. Malformed JSON
// yields a ParseError envelope with a null id, since no identifier can be
// recovered from undecodable input.
func (e *Engine) HandleMessage(ctx context.Context, raw []byte) *jsonrpc.Response {
	var req jsonrpc.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		e.log.InfoContext(ctx, "rpc.decode.fail", slog.String("err", err.Error()))
		e.emit(ctx, events.Event{
			Outcome: events.OutcomeParseError,
			Code:    int(jsonrpc.ErrorCodeParseError),
		})
		return jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeParseError, "Parse error", err.Error())
	}
	return e.Dispatch(ctx, &req)
}

// Dispatch runs the pipeline for one decoded request: interceptors in
// registration order, registry resolution, parameter binding, invocation,
// fault normalization. It always returns an envelope; a notification is
// processed identically and its response simply carries a null id.
func (e *Engine) Dispatch(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	start := time.Now()

	call := callctx.New(req.Method, req.ID.Value(), req.Params)
	ctx = callctx.WithCall(ctx, call)

	log := e.log.With(slog.String("method", req.Method))
	if !req.ID.IsNil() {
		log = log.With(slog.String("id", req.ID.String()))
	}

	for _, ic := range e.chain() {
		if err := runIntercept(ctx, ic, call); err != nil {
			log.ErrorContext(ctx, "rpc.intercept.fail",
				slog.String("err", err.Error()),
				slog.Int64("dur_ms", time.Since(start).Milliseconds()))
			e.emitOutcome(ctx, req, events.OutcomeInternalError, jsonrpc.ErrorCodeInternalError, start)
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "Internal error", err.Error())
		}
	}

	m, ok := e.reg.Resolve(req.Method)
	if !ok {
		log.InfoContext(ctx, "rpc.dispatch.method_not_found",
			slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		e.emitOutcome(ctx, req, events.OutcomeMethodNotFound, jsonrpc.ErrorCodeMethodNotFound, start)
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "Method not found",
			fmt.Sprintf("method %q is not registered", req.Method))
	}

	result, err := invoke(ctx, m, req.Params)
	if err != nil {
		var bindErr *rpcservice.BindError
		switch {
		case errors.As(err, &bindErr):
			log.InfoContext(ctx, "rpc.dispatch.bind_fail",
				slog.String("err", err.Error()),
				slog.Int64("dur_ms", time.Since(start).Milliseconds()))
			e.emitOutcome(ctx, req, events.OutcomeParseError, jsonrpc.ErrorCodeParseError, start)
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeParseError, "Parse error", err.Error())
		case errors.Is(err, auth.ErrUnauthorized):
			log.InfoContext(ctx, "rpc.dispatch.unauthorized",
				slog.String("err", err.Error()),
				slog.Int64("dur_ms", time.Since(start).Milliseconds()))
			e.emitOutcome(ctx, req, events.OutcomeUnauthorized, jsonrpc.ErrorCodeUnauthorized, start)
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeUnauthorized, "Unauthorized", err.Error())
		default:
			log.ErrorContext(ctx, "rpc.dispatch.fail",
				slog.String("err", err.Error()),
				slog.Int64("dur_ms", time.Since(start).Milliseconds()))
			e.emitOutcome(ctx, req, events.OutcomeExecutionError, jsonrpc.ErrorCodeExecutionError, start)
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeExecutionError, "Execution error", err.Error())
		}
	}

	resp, rerr := jsonrpc.NewResultResponse(req.ID, result)
	if rerr != nil {
		log.ErrorContext(ctx, "rpc.respond.encode_fail", slog.String("err", rerr.Error()))
		e.emitOutcome(ctx, req, events.OutcomeInternalError, jsonrpc.ErrorCodeInternalError, start)
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "Internal error", "result serialization failed")
	}

	log.InfoContext(ctx, "rpc.dispatch.ok",
		slog.Int64("dur_ms", time.Since(start).Milliseconds()))
	e.emitOutcome(ctx, req, events.OutcomeOK, 0, start)
	return resp
}

// chain snapshots the interceptor list so registration during serving cannot
// race a dispatch mid-flight.
func (e *Engine) chain() []interceptor.Interceptor {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]interceptor.Interceptor, len(e.interceptors))
	copy(out, e.interceptors)
	return out
}

func (e *Engine) emitOutcome(ctx context.Context, req *jsonrpc.Request, outcome string, code jsonrpc.ErrorCode, start time.Time) {
	e.emit(ctx, events.Event{
		Method:    req.Method,
		Outcome:   outcome,
		Code:      int(code),
		RequestID: req.ID.Value(),
		Duration:  time.Since(start),
	})
}

func (e *Engine) emit(ctx context.Context, ev events.Event) {
	ev.Timestamp = time.Now()
	if err := e.sink.Emit(ctx, ev); err != nil {
		e.log.WarnContext(ctx, "rpc.events.emit_fail", slog.String("err", err.Error()))
	}
}

// runIntercept awaits one hook, converting a panic into a fault so a broken
// hook cannot take down the process.
func runIntercept(ctx context.Context, ic interceptor.Interceptor, call *callctx.Call) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("interceptor panic: %v", r)
		}
	}()
	return ic.Intercept(ctx, call)
}

// invoke binds and runs the method, converting a panic into an error.
func invoke(ctx context.Context, m *rpcservice.Method, params map[string]json.RawMessage) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("method panic: %v", r)
		}
	}()
	return m.Invoke(ctx, params)
}
