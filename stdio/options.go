package stdio

import (
	"io"
	"log/slog"
	"os"

	"github.com/jsonrpcd/jsonrpcd-go/events"
	"github.com/jsonrpcd/jsonrpcd-go/interceptor"
)

type config struct {
	logger       *slog.Logger
	r            io.Reader
	w            io.Writer
	userProvider UserProvider
	sink         events.Sink
	interceptors []interceptor.Interceptor
}

func newConfig() *config {
	return &config{
		logger:       slog.Default(),
		r:            os.Stdin,
		w:            os.Stdout,
		userProvider: OSUserProvider{},
	}
}

// Option customizes a Handler.
type Option func(*config)

// WithIO sets the reader and writer for the handler.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(cfg *config) {
		if r != nil {
			cfg.r = r
		}
		if w != nil {
			cfg.w = w
		}
	}
}

// WithReader overrides the input stream.
func WithReader(r io.Reader) Option {
	return func(cfg *config) {
		if r != nil {
			cfg.r = r
		}
	}
}

// WithWriter overrides the output stream.
func WithWriter(w io.Writer) Option {
	return func(cfg *config) {
		if w != nil {
			cfg.w = w
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// WithUserProvider overrides how the peer's identity is resolved.
func WithUserProvider(up UserProvider) Option {
	return func(cfg *config) {
		if up != nil {
			cfg.userProvider = up
		}
	}
}

// WithSink directs one event per completed dispatch to the given sink.
func WithSink(sink events.Sink) Option {
	return func(cfg *config) {
		cfg.sink = sink
	}
}

// WithInterceptors seeds the dispatch chain. Further hooks may be appended
// later with RegisterInterceptor.
func WithInterceptors(ics ...interceptor.Interceptor) Option {
	return func(cfg *config) {
		cfg.interceptors = append(cfg.interceptors, ics...)
	}
}
