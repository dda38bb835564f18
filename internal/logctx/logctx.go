// Package logctx enriches slog records with request-scoped groups carried on
// the context, so transports and the engine can log without re-threading the
// same attributes through every call.
package logctx

import (
	"context"
	"log/slog"
)

// Handler wraps another slog.Handler and appends the context-carried groups
// to every record.
type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		r.AddAttrs(slog.Group("req",
			slog.String("id", rd.RequestID),
			slog.String("method", rd.Method),
			slog.String("user_agent", rd.UserAgent),
			slog.String("remote_addr", rd.RemoteAddr),
			slog.String("path", rd.Path),
		))
	}

	if rc, ok := ctx.Value(rpcCallKey{}).(*RPCCall); ok {
		r.AddAttrs(slog.Group("rpc",
			slog.String("method", rc.Method),
			slog.String("id", rc.ID),
		))
	}

	if ud, ok := ctx.Value(userDataKey{}).(*UserData); ok {
		r.AddAttrs(slog.Group("user",
			slog.String("id", ud.UserID),
		))
	}

	return h.Handler.Handle(ctx, r)
}

type requestDataKey struct{}

// RequestData describes the transport-level request being served.
type RequestData struct {
	RequestID  string
	Method     string
	UserAgent  string
	RemoteAddr string
	Path       string
}

func WithRequestData(ctx context.Context, data *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, data)
}

type rpcCallKey struct{}

// RPCCall identifies the decoded call being dispatched.
type RPCCall struct {
	Method string
	ID     string
}

func WithRPCCall(ctx context.Context, call *RPCCall) context.Context {
	return context.WithValue(ctx, rpcCallKey{}, call)
}

type userDataKey struct{}

// UserData identifies the principal a transport established for the call.
type UserData struct {
	UserID string
}

func WithUserData(ctx context.Context, data *UserData) context.Context {
	return context.WithValue(ctx, userDataKey{}, data)
}
