// Package auth provides the authorization fault category recognized by the
// dispatcher plus pluggable bearer-token authentication for transports and
// interceptors.
//
// The dispatcher itself carries no policy: it only maps ErrUnauthorized,
// wherever it appears in a procedure's error chain, to the protocol's
// unauthorized response code. Everything else here is optional wiring that
// lives outside the dispatch pipeline:
//
//   - An Authenticator validates a bearer token string and returns a
//     UserInfo (or ErrUnauthorized). NewFromDiscovery builds one from OIDC
//     discovery; NewStatic from a fixed issuer + JWKS URL.
//   - NewBearerInterceptor turns an Authenticator into a chain interceptor:
//     transports stash the raw token on the context with ContextWithBearer,
//     the interceptor validates it and records the principal on the call's
//     value store with SetUser.
//   - Procedures call RequireUser to fetch the principal, receiving
//     ErrUnauthorized when none was established.
//
// Example:
//
//	authn, err := auth.NewStatic(ctx, "https://issuer.example", "https://rpc.example",
//	    "https://issuer.example/jwks.json",
//	    auth.WithRequiredScopes("rpc:invoke"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv.RegisterInterceptor(auth.NewBearerInterceptor(authn))
package auth
