// Package config loads the server process configuration from the
// environment. Defaults live in the struct tags so a bare environment still
// yields a runnable server; features like metrics, events, auth and rate
// limiting stay off until their variables are set.
package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config is the full process configuration. Defaults can be loaded via
// envdecode.
type Config struct {
	// Addr is the listen address for the RPC endpoint. ENV: RPC_ADDR
	Addr string `env:"RPC_ADDR,default=:8080"`
	// Path is the URL path that serves RPC traffic. ENV: RPC_PATH
	Path string `env:"RPC_PATH,default=/rpc"`

	// LogLevel is the initial log level: debug, info, warn or error.
	// ENV: LOG_LEVEL
	LogLevel string `env:"LOG_LEVEL,default=info"`
	// LogLevelFile, when set, names a file whose contents are watched for
	// live log level changes. ENV: LOG_LEVEL_FILE
	LogLevelFile string `env:"LOG_LEVEL_FILE"`

	// MetricsAddr, when set, serves Prometheus metrics on a separate
	// listener at /metrics. ENV: METRICS_ADDR
	MetricsAddr string `env:"METRICS_ADDR"`

	// NATSURL, when set, publishes dispatch events to NATS. ENV: NATS_URL
	NATSURL string `env:"NATS_URL"`
	// NATSName is the connection name reported to the NATS server.
	// ENV: NATS_NAME
	NATSName string `env:"NATS_NAME,default=jsonrpcd"`

	// RateLimit caps requests per caller per RateWindow. Zero disables the
	// limiter. ENV: RATE_LIMIT
	RateLimit int64 `env:"RATE_LIMIT,default=0"`
	// RateWindow is the fixed window the budget applies to. ENV: RATE_WINDOW
	RateWindow time.Duration `env:"RATE_WINDOW,default=1m"`
	// RedisAddr, when set, backs the limiter with Redis so replicas share
	// one budget. Unset keeps counters in process memory. ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR"`

	// AuthIssuer and AuthAudience together enable bearer token
	// authentication. ENV: AUTH_ISSUER / AUTH_AUDIENCE
	AuthIssuer   string `env:"AUTH_ISSUER"`
	AuthAudience string `env:"AUTH_AUDIENCE"`
	// AuthJWKSURL pins the key set URL directly instead of resolving it
	// through issuer discovery. ENV: AUTH_JWKS_URL
	AuthJWKSURL string `env:"AUTH_JWKS_URL"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding environment: %w", err)
	}
	return &cfg, nil
}

// AuthEnabled reports whether enough is configured to authenticate bearers.
func (c *Config) AuthEnabled() bool {
	return c.AuthIssuer != "" && c.AuthAudience != ""
}
