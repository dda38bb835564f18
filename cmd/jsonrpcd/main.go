// Command jsonrpcd serves a JSON-RPC dispatch endpoint over HTTP. All wiring
// comes from the environment (optionally a .env file): listen address, log
// level, bearer authentication, rate limiting, prometheus metrics and NATS
// event publishing each switch on when their variables are set.
//
// A few built-in methods (server.ping, server.echo, server.time) keep a
// freshly configured instance immediately callable and introspectable.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jsonrpcd/jsonrpcd-go/auth"
	"github.com/jsonrpcd/jsonrpcd-go/events"
	"github.com/jsonrpcd/jsonrpcd-go/events/natsevents"
	"github.com/jsonrpcd/jsonrpcd-go/httprpc"
	"github.com/jsonrpcd/jsonrpcd-go/interceptor"
	"github.com/jsonrpcd/jsonrpcd-go/internal/config"
	"github.com/jsonrpcd/jsonrpcd-go/internal/levelwatch"
	"github.com/jsonrpcd/jsonrpcd-go/observability"
	"github.com/jsonrpcd/jsonrpcd-go/ratelimit"
	"github.com/jsonrpcd/jsonrpcd-go/rpcservice"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server.fatal", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is the normal case outside development; the error
	// is only worth a debug line once the logger exists.
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	lvl := new(slog.LevelVar)
	initial, err := levelwatch.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	lvl.Set(initial)
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(log)

	if envErr != nil {
		log.Debug("env.file.absent", slog.String("err", envErr.Error()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.LogLevelFile != "" {
		watcher := levelwatch.New(cfg.LogLevelFile, lvl, log)
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("levelwatch.stopped", slog.String("err", err.Error()))
			}
		}()
	}

	reg := rpcservice.NewRegistry()
	if err := reg.Register(builtinMethods()); err != nil {
		return fmt.Errorf("registering built-in methods: %w", err)
	}

	opts := []httprpc.HandlerOption{
		httprpc.WithLogger(log),
		httprpc.WithPath(cfg.Path),
	}

	var sinks []events.Sink
	if cfg.MetricsAddr != "" {
		sinks = append(sinks, observability.NewSink())
		opts = append(opts, httprpc.WithMiddleware(observability.Middleware))
	}
	if cfg.NATSURL != "" {
		nc, err := natsevents.Connect(cfg.NATSURL, cfg.NATSName, log)
		if err != nil {
			return fmt.Errorf("connecting to nats: %w", err)
		}
		defer nc.Close()
		sinks = append(sinks, natsevents.NewPublisher(nc, natsevents.WithLogger(log)))
	}
	if len(sinks) > 0 {
		opts = append(opts, httprpc.WithSink(events.Multi(sinks...)))
	}

	var chain []interceptor.Interceptor
	if cfg.AuthEnabled() {
		authn, err := buildAuthenticator(ctx, cfg)
		if err != nil {
			return fmt.Errorf("configuring authentication: %w", err)
		}
		// When an issuer is configured the whole endpoint requires a token.
		chain = append(chain, auth.NewBearerInterceptor(authn, auth.WithRequired()))
		log.Info("auth.enabled", slog.String("issuer", cfg.AuthIssuer))
	}
	if cfg.RateLimit > 0 {
		store, closeStore, err := buildRateLimitStore(cfg)
		if err != nil {
			return fmt.Errorf("configuring rate limiter: %w", err)
		}
		if closeStore != nil {
			defer func() {
				// Best-effort store close on the way out.
				_ = closeStore()
			}()
		}
		chain = append(chain, ratelimit.New(store, cfg.RateLimit, cfg.RateWindow))
		log.Info("ratelimit.enabled",
			slog.Int64("limit", cfg.RateLimit),
			slog.String("window", cfg.RateWindow.String()))
	}
	if len(chain) > 0 {
		opts = append(opts, httprpc.WithInterceptors(chain...))
	}

	srv := httprpc.NewServer(httprpc.NewHandler(reg, opts...), httprpc.WithServerLogger(log))
	if err := srv.Start(cfg.Addr); err != nil {
		return err
	}

	var msrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.MetricsHandler())
		msrv = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("metrics.listen.ok", slog.String("addr", cfg.MetricsAddr))
			if err := msrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics.serve.fail", slog.String("err", err.Error()))
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("server.signal.received")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if msrv != nil {
		_ = msrv.Shutdown(shutdownCtx)
	}
	return srv.Stop(shutdownCtx)
}

func buildAuthenticator(ctx context.Context, cfg *config.Config) (auth.Authenticator, error) {
	if cfg.AuthJWKSURL != "" {
		return auth.NewStatic(ctx, cfg.AuthIssuer, cfg.AuthAudience, cfg.AuthJWKSURL)
	}
	return auth.NewFromDiscovery(ctx, cfg.AuthIssuer, cfg.AuthAudience)
}

func buildRateLimitStore(cfg *config.Config) (ratelimit.Store, func() error, error) {
	if cfg.RedisAddr == "" {
		return ratelimit.NewMemoryStore(), nil, nil
	}
	store, err := ratelimit.NewRedisStore(ratelimit.RedisConfig{Addr: cfg.RedisAddr})
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

type echoArgs struct {
	Message string `json:"message"`
}

func builtinMethods() *rpcservice.MethodSet {
	return rpcservice.NewMethodSet("Server",
		rpcservice.NewMethod("Ping", func(context.Context, struct{}) (any, error) {
			return "pong", nil
		}),
		rpcservice.NewMethod("Echo", func(_ context.Context, args echoArgs) (any, error) {
			return args.Message, nil
		}),
		rpcservice.NewMethod("Time", func(context.Context, struct{}) (any, error) {
			return time.Now().UTC().Format(time.RFC3339Nano), nil
		}),
	)
}
