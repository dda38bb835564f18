package auth

import (
	"context"
	"errors"

	"github.com/jsonrpcd/jsonrpcd-go/callctx"
)

// ErrUnauthorized is the sentinel authorization fault. A procedure that
// returns it (or wraps it) yields the protocol's unauthorized response code
// instead of a generic execution error.
var ErrUnauthorized = errors.New("unauthorized")

// ErrInsufficientScope indicates the caller authenticated but lacks a
// required scope.
var ErrInsufficientScope = errors.New("insufficient scope")

// UserInfo represents an authenticated principal.
// Implementations should be lightweight and safe for concurrent use.
type UserInfo interface {
	// UserID returns the unique identifier for the user.
	UserID() string
	// Claims unmarshalls the user's claims into the provided struct reference.
	Claims(ref any) error
}

// Authenticator validates bearer tokens and returns associated user info.
// It should return ErrUnauthorized for invalid credentials.
type Authenticator interface {
	CheckAuthentication(ctx context.Context, tok string) (UserInfo, error)
}

type bearerKeyType struct{}

// userKey is the per-call store key under which the authenticated principal
// lives. Interceptors write it; procedures read it through RequireUser.
const userKey = "auth.user"

// ContextWithBearer records the raw bearer token a transport extracted from
// the request so that an authentication interceptor can validate it later.
// The token rides the context because transports see it before the per-call
// store exists.
func ContextWithBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKeyType{}, token)
}

// BearerFromContext returns the raw bearer token stashed by the transport.
func BearerFromContext(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(bearerKeyType{}).(string)
	return tok, ok
}

// SetUser records the authenticated principal for the remainder of the call.
func SetUser(call *callctx.Call, user UserInfo) {
	call.Set(userKey, user)
}

// UserFromCall returns the authenticated principal, if any interceptor
// established one.
func UserFromCall(call *callctx.Call) (UserInfo, bool) {
	v, ok := call.Value(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(UserInfo)
	return u, ok
}

// RequireUser is the guard procedures use: it returns the principal or
// ErrUnauthorized when none was established.
func RequireUser(ctx context.Context) (UserInfo, error) {
	call := callctx.FromContext(ctx)
	if call == nil {
		return nil, ErrUnauthorized
	}
	u, ok := UserFromCall(call)
	if !ok {
		return nil, ErrUnauthorized
	}
	return u, nil
}
