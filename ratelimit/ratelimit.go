// Package ratelimit provides a fixed-window request budget enforced as a
// dispatch interceptor. Each caller key gets at most limit requests per
// window; requests over budget fault the chain before the procedure is
// resolved.
//
// The caller key defaults to the authenticated principal when an earlier
// interceptor established one, falling back to the procedure name so
// anonymous traffic is still bounded per method. Counters live in a Store:
// NewMemoryStore serves tests and single-process deployments, NewRedisStore
// shares one budget across replicas.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jsonrpcd/jsonrpcd-go/auth"
	"github.com/jsonrpcd/jsonrpcd-go/callctx"
	"github.com/jsonrpcd/jsonrpcd-go/interceptor"
)

// ErrLimited is the sentinel carried by the fault when a caller exceeds its
// request budget.
var ErrLimited = errors.New("rate limit exceeded")

// Store counts hits per caller key within the current fixed window.
// Implementations must be safe for concurrent use.
type Store interface {
	// Incr adds one hit to key's current window and returns the new total.
	// window is the lifetime applied when the key's window starts.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// KeyFunc derives the counting key for one call.
type KeyFunc func(ctx context.Context, call *callctx.Call) string

// Option configures New.
type Option func(*config)

type config struct {
	keyFn KeyFunc
}

// WithKeyFunc replaces the default caller key derivation.
func WithKeyFunc(fn KeyFunc) Option {
	return func(c *config) {
		if fn != nil {
			c.keyFn = fn
		}
	}
}

// defaultKey buckets by authenticated user when one is present, else by the
// normalized procedure name.
func defaultKey(_ context.Context, call *callctx.Call) string {
	if user, ok := auth.UserFromCall(call); ok {
		return "user:" + user.UserID()
	}
	return "method:" + strings.ToLower(call.Method())
}

// New returns an interceptor enforcing at most limit requests per window for
// each caller key. Register it after the authentication interceptor so the
// budget applies per principal rather than per method.
//
// A store failure faults the chain as well: the caller sees an internal
// error instead of slipping past an unavailable limiter.
func New(store Store, limit int64, window time.Duration, opts ...Option) interceptor.Interceptor {
	cfg := config{keyFn: defaultKey}
	for _, opt := range opts {
		opt(&cfg)
	}
	return interceptor.Func(func(ctx context.Context, call *callctx.Call) error {
		key := cfg.keyFn(ctx, call)
		n, err := store.Incr(ctx, key, window)
		if err != nil {
			return fmt.Errorf("rate limit store: %w", err)
		}
		if n > limit {
			return fmt.Errorf("%w: %q over %d requests per %s", ErrLimited, key, limit, window)
		}
		return nil
	})
}
