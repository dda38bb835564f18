package jwtauth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

type staticAuthenticator struct {
	cfg     *Config
	keyfunc jwt.Keyfunc
}

var _ Authenticator = (*staticAuthenticator)(nil)

// NewStatic constructs an Authenticator that validates access tokens against
// a statically configured issuer, audiences and JWKS URL, skipping discovery.
// Validation policy is identical to the discovery variant.
func NewStatic(ctx context.Context, cfg *Config, jwksURI string) (Authenticator, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if len(cfg.ExpectedAudiences) == 0 {
		return nil, errors.New("at least one expected audience required")
	}
	if jwksURI == "" {
		return nil, errors.New("jwks uri required")
	}

	kf, err := newKeyfunc(ctx, cfg, jwksURI)
	if err != nil {
		return nil, err
	}
	return &staticAuthenticator{cfg: cfg, keyfunc: kf}, nil
}

func (a *staticAuthenticator) CheckAuthentication(ctx context.Context, tok string) (UserInfo, error) {
	return checkToken(a.cfg, a.keyfunc, tok)
}
