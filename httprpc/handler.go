package httprpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/google/uuid"
	"github.com/jsonrpcd/jsonrpcd-go/auth"
	"github.com/jsonrpcd/jsonrpcd-go/events"
	"github.com/jsonrpcd/jsonrpcd-go/interceptor"
	"github.com/jsonrpcd/jsonrpcd-go/internal/engine"
	"github.com/jsonrpcd/jsonrpcd-go/internal/jsonrpc"
	"github.com/jsonrpcd/jsonrpcd-go/internal/logctx"
	"github.com/jsonrpcd/jsonrpcd-go/rpcservice"
)

// DefaultPath is the endpoint path used when WithPath is not given.
const DefaultPath = "/rpc"

const (
	bearerPrefix     = "Bearer "
	requestFormField = "request"
)

var (
	jsonMediaType      = contenttype.NewMediaType("application/json")
	multipartMediaType = contenttype.NewMediaType("multipart/form-data")
)

// Handler negotiates inbound HTTP requests into dispatch calls. It implements
// http.Handler and can be mounted directly or wrapped in a Server for
// lifecycle management.
type Handler struct {
	log   *slog.Logger
	eng   *engine.Engine
	path  string
	inner http.Handler
}

var _ http.Handler = (*Handler)(nil)

// Middleware wraps the routed handler. Middleware run in registration order,
// outermost first, inside the handler's own panic containment.
type Middleware func(http.Handler) http.Handler

type handlerConfig struct {
	logger       *slog.Logger
	path         string
	sink         events.Sink
	interceptors []interceptor.Interceptor
	middleware   []Middleware
}

// HandlerOption configures a Handler.
type HandlerOption func(*handlerConfig)

// WithLogger sets the logger for transport and dispatch events. Defaults to
// slog.Default().
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(cfg *handlerConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithPath mounts the endpoint somewhere other than DefaultPath.
func WithPath(path string) HandlerOption {
	return func(cfg *handlerConfig) {
		if path != "" {
			cfg.path = path
		}
	}
}

// WithSink directs one event per completed dispatch to the given sink.
func WithSink(sink events.Sink) HandlerOption {
	return func(cfg *handlerConfig) {
		cfg.sink = sink
	}
}

// WithInterceptors seeds the dispatch chain. Further hooks may be appended
// later with RegisterInterceptor.
func WithInterceptors(ics ...interceptor.Interceptor) HandlerOption {
	return func(cfg *handlerConfig) {
		cfg.interceptors = append(cfg.interceptors, ics...)
	}
}

// WithMiddleware wraps the endpoint in HTTP middleware, such as
// observability.Middleware for request metrics.
func WithMiddleware(mw ...Middleware) HandlerOption {
	return func(cfg *handlerConfig) {
		cfg.middleware = append(cfg.middleware, mw...)
	}
}

// NewHandler builds a handler serving the given registry's methods.
func NewHandler(reg *rpcservice.Registry, opts ...HandlerOption) *Handler {
	cfg := &handlerConfig{logger: slog.Default(), path: DefaultPath}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	log := slog.New(logctx.Handler{Handler: cfg.logger.Handler()})

	engOpts := []engine.Option{engine.WithLogger(log)}
	if cfg.sink != nil {
		engOpts = append(engOpts, engine.WithSink(cfg.sink))
	}
	if len(cfg.interceptors) > 0 {
		engOpts = append(engOpts, engine.WithInterceptors(cfg.interceptors...))
	}

	h := &Handler{
		log:  log,
		eng:  engine.NewEngine(reg, engOpts...),
		path: cfg.path,
	}

	// Verbs other than GET and POST must yield 404, so the route is
	// registered without a method pattern and the verb is checked inside.
	mux := http.NewServeMux()
	mux.HandleFunc(h.path, h.handleRPC)

	var inner http.Handler = mux
	for i := len(cfg.middleware) - 1; i >= 0; i-- {
		inner = cfg.middleware[i](inner)
	}
	h.inner = inner
	return h
}

// RegisterInterceptor appends a hook to the dispatch chain. Hooks run
// sequentially in registration order before every call.
func (h *Handler) RegisterInterceptor(ic interceptor.Interceptor) {
	h.eng.RegisterInterceptor(ic)
}

// Path returns the endpoint path the handler is mounted on.
func (h *Handler) Path() string {
	return h.path
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := logctx.WithRequestData(r.Context(), &logctx.RequestData{
		RequestID:  uuid.NewString(),
		Method:     r.Method,
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
		Path:       r.URL.Path,
	})
	defer func() {
		if rec := recover(); rec != nil {
			h.log.ErrorContext(ctx, "http.panic", slog.Any("panic", rec))
			h.writeEnvelope(ctx, w, jsonrpc.NewErrorResponse(nil,
				jsonrpc.ErrorCodeInternalError, "Internal error", fmt.Sprintf("%v", rec)))
		}
	}()
	h.inner.ServeHTTP(w, r.WithContext(ctx))
}

func (h *Handler) handleRPC(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodPost:
		h.serveCall(w, r)
	default:
		h.log.InfoContext(r.Context(), "http.verb.rejected")
		http.NotFound(w, r)
	}
}

// serveCall negotiates the request body into one raw envelope and hands it to
// the dispatch pipeline. Dispatch faults come back as error envelopes on a
// 200 response; only an unusable media type surfaces as an HTTP status.
func (h *Handler) serveCall(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	h.log.InfoContext(ctx, "http.call.start")

	if tok, ok := bearerToken(r); ok {
		ctx = auth.ContextWithBearer(ctx, tok)
	}

	// An absent Content-Type asks for the method listing; no procedure runs.
	if r.Header.Get("Content-Type") == "" {
		h.writeEnvelope(ctx, w, h.eng.Introspect())
		h.log.InfoContext(ctx, "http.introspect.ok",
			slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return
	}

	ctype, err := contenttype.GetMediaType(r)
	if err != nil {
		h.log.WarnContext(ctx, "http.content_type.unsupported",
			slog.String("content_type", r.Header.Get("Content-Type")))
		w.WriteHeader(http.StatusUnsupportedMediaType)
		return
	}

	var body []byte
	switch {
	case ctype.Matches(jsonMediaType):
		body, err = io.ReadAll(r.Body)
		if err != nil {
			h.log.WarnContext(ctx, "http.body.read_fail", slog.String("err", err.Error()))
			h.writeEnvelope(ctx, w, jsonrpc.NewErrorResponse(nil,
				jsonrpc.ErrorCodeParseError, "Parse error", err.Error()))
			return
		}
	case ctype.Matches(multipartMediaType):
		body, err = readMultipartRequest(r, ctype.Parameters["boundary"])
		if err != nil {
			h.log.InfoContext(ctx, "http.multipart.fail", slog.String("err", err.Error()))
			h.writeEnvelope(ctx, w, jsonrpc.NewErrorResponse(nil,
				jsonrpc.ErrorCodeParseError, "Parse error", err.Error()))
			return
		}
	default:
		h.log.WarnContext(ctx, "http.content_type.unsupported",
			slog.String("content_type", r.Header.Get("Content-Type")))
		w.WriteHeader(http.StatusUnsupportedMediaType)
		return
	}

	h.writeEnvelope(ctx, w, h.eng.HandleMessage(ctx, body))
	h.log.InfoContext(ctx, "http.call.done",
		slog.Int64("dur_ms", time.Since(start).Milliseconds()))
}

// writeEnvelope serializes one response envelope, pretty-printed, always with
// HTTP status 200.
func (h *Handler) writeEnvelope(ctx context.Context, w http.ResponseWriter, resp *jsonrpc.Response) {
	body, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		h.log.ErrorContext(ctx, "http.respond.encode_fail", slog.String("err", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	body = append(body, '\n')
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.log.WarnContext(ctx, "http.respond.write_fail", slog.String("err", err.Error()))
	}
}

// bearerToken extracts the token from an Authorization header using the
// Bearer scheme. The scheme comparison is case-insensitive.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(bearerPrefix):])
	return tok, tok != ""
}

// readMultipartRequest pulls the envelope out of the form field named
// "request". Parts with any other name are ignored.
func readMultipartRequest(r *http.Request, boundary string) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read multipart body: %w", err)
	}
	if boundary == "" {
		boundary = boundaryFromBody(body)
	}
	if boundary == "" {
		return nil, errors.New("multipart boundary could not be determined")
	}
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed multipart body: %w", err)
		}
		if part.FormName() != requestFormField {
			continue
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return nil, fmt.Errorf("failed to read %q part: %w", requestFormField, err)
		}
		return bytes.TrimSpace(data), nil
	}
	return nil, fmt.Errorf("multipart body has no %q field", requestFormField)
}

// boundaryFromBody recovers the boundary from the opening delimiter line when
// the Content-Type header omits the parameter.
func boundaryFromBody(body []byte) string {
	line, _, _ := bytes.Cut(body, []byte("\n"))
	line = bytes.TrimRight(line, "\r")
	if !bytes.HasPrefix(line, []byte("--")) {
		return ""
	}
	return string(bytes.TrimSpace(line[2:]))
}
