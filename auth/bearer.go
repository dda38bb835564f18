package auth

import (
	"context"
	"fmt"

	"github.com/jsonrpcd/jsonrpcd-go/callctx"
	"github.com/jsonrpcd/jsonrpcd-go/interceptor"
)

// BearerOption configures NewBearerInterceptor.
type BearerOption func(*bearerConfig)

type bearerConfig struct {
	required bool
}

// WithRequired makes the interceptor fault when no bearer token accompanies
// the request. By default an absent token leaves the call anonymous and the
// decision is deferred to procedures via RequireUser.
func WithRequired() BearerOption {
	return func(c *bearerConfig) { c.required = true }
}

// NewBearerInterceptor returns an interceptor that validates the bearer
// token a transport stashed on the context and, on success, records the
// authenticated principal in the call's value store. A token that is present
// but invalid always faults the chain; an absent token faults only under
// WithRequired.
func NewBearerInterceptor(authn Authenticator, opts ...BearerOption) interceptor.Interceptor {
	cfg := bearerConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return interceptor.Func(func(ctx context.Context, call *callctx.Call) error {
		tok, ok := BearerFromContext(ctx)
		if !ok || tok == "" {
			if cfg.required {
				return fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
			}
			return nil
		}
		user, err := authn.CheckAuthentication(ctx, tok)
		if err != nil {
			return fmt.Errorf("bearer token rejected: %w", err)
		}
		SetUser(call, user)
		return nil
	})
}
