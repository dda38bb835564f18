package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jsonrpcd/jsonrpcd-go/auth"
	"github.com/jsonrpcd/jsonrpcd-go/callctx"
	"github.com/jsonrpcd/jsonrpcd-go/interceptor"
	"github.com/jsonrpcd/jsonrpcd-go/internal/engine"
	"github.com/jsonrpcd/jsonrpcd-go/internal/jsonrpc"
	"github.com/jsonrpcd/jsonrpcd-go/internal/logctx"
	"github.com/jsonrpcd/jsonrpcd-go/rpcservice"
)

// maxLineBytes bounds a single inbound envelope line.
const maxLineBytes = 4 * 1024 * 1024

// Handler reads JSON-RPC envelopes line by line from an io.Reader and writes
// response lines to an io.Writer. By default it uses os.Stdin and os.Stdout.
// The peer is identified through a UserProvider, defaulting to the current
// OS user.
type Handler struct {
	log  *slog.Logger
	eng  *engine.Engine
	r    io.Reader
	w    io.Writer
	up   UserProvider
	user auth.UserInfo

	started atomic.Bool
	wmu     sync.Mutex
}

// NewHandler builds a handler serving the given registry's methods.
func NewHandler(reg *rpcservice.Registry, opts ...Option) *Handler {
	cfg := newConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	log := slog.New(logctx.Handler{Handler: cfg.logger.Handler()})

	h := &Handler{
		log: log,
		r:   cfg.r,
		w:   cfg.w,
		up:  cfg.userProvider,
	}

	engOpts := []engine.Option{engine.WithLogger(log)}
	if cfg.sink != nil {
		engOpts = append(engOpts, engine.WithSink(cfg.sink))
	}
	// The identity hook runs first so later hooks and procedures can rely on
	// RequireUser. h.user is resolved once in Serve before any line is read.
	engOpts = append(engOpts, engine.WithInterceptors(interceptor.Func(func(ctx context.Context, call *callctx.Call) error {
		if h.user != nil {
			auth.SetUser(call, h.user)
		}
		return nil
	})))
	if len(cfg.interceptors) > 0 {
		engOpts = append(engOpts, engine.WithInterceptors(cfg.interceptors...))
	}
	h.eng = engine.NewEngine(reg, engOpts...)
	return h
}

// RegisterInterceptor appends a hook to the dispatch chain. Hooks run
// sequentially in registration order before every call.
func (h *Handler) RegisterInterceptor(ic interceptor.Interceptor) {
	h.eng.RegisterInterceptor(ic)
}

// Serve runs the read loop until EOF on the reader or ctx is cancelled.
// It may be called at most once per Handler.
func (h *Handler) Serve(ctx context.Context) error {
	if !h.started.CompareAndSwap(false, true) {
		return errors.New("serve may only be called once per handler")
	}

	if uid, err := h.up.CurrentUserID(); err != nil {
		h.log.WarnContext(ctx, "stdio.user.unresolved", slog.String("err", err.Error()))
	} else {
		h.user = localUser{id: uid}
		ctx = logctx.WithUserData(ctx, &logctx.UserData{UserID: uid})
	}
	h.log.InfoContext(ctx, "stdio.serve.start")

	lines := make(chan []byte)
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(h.r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for sc.Scan() {
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}
			// Scanner reuses its buffer across Scan calls.
			buf := make([]byte, len(line))
			copy(buf, line)
			select {
			case lines <- buf:
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			h.log.InfoContext(ctx, "stdio.serve.done", slog.String("reason", "cancelled"))
			return ctx.Err()
		case err := <-errc:
			if err != nil {
				h.log.ErrorContext(ctx, "stdio.read.fail", slog.String("err", err.Error()))
				return fmt.Errorf("read loop failed: %w", err)
			}
			h.log.InfoContext(ctx, "stdio.serve.done", slog.String("reason", "eof"))
			return nil
		case line := <-lines:
			h.handleLine(ctx, line)
		}
	}
}

// handleLine dispatches one envelope line. Responses to notifications are
// suppressed; an undecodable line still gets a parse-error reply because the
// peer may be awaiting one.
func (h *Handler) handleLine(ctx context.Context, line []byte) {
	var req jsonrpc.Request
	if err := json.Unmarshal(line, &req); err != nil {
		h.write(ctx, h.eng.HandleMessage(ctx, line))
		return
	}

	resp := h.eng.Dispatch(ctx, &req)
	if req.IsNotification() {
		return
	}
	h.write(ctx, resp)
}

// write serializes one envelope as a compact single line.
func (h *Handler) write(ctx context.Context, resp *jsonrpc.Response) {
	body, err := json.Marshal(resp)
	if err != nil {
		h.log.ErrorContext(ctx, "stdio.respond.encode_fail", slog.String("err", err.Error()))
		return
	}
	body = append(body, '\n')

	h.wmu.Lock()
	_, err = h.w.Write(body)
	h.wmu.Unlock()
	if err != nil {
		h.log.WarnContext(ctx, "stdio.respond.write_fail", slog.String("err", err.Error()))
	}
}
