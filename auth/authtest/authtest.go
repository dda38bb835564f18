// Package authtest provides in-memory fakes for exercising code that
// depends on auth.Authenticator without standing up a real token issuer.
package authtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jsonrpcd/jsonrpcd-go/auth"
)

// Static is a fake Authenticator backed by a fixed token table. The zero
// value rejects every token; use Add to seed accepted tokens.
type Static struct {
	mu     sync.RWMutex
	tokens map[string]staticUser
}

type staticUser struct {
	subject string
	claims  map[string]any
}

var _ auth.Authenticator = (*Static)(nil)

// NewStatic returns an empty fake authenticator.
func NewStatic() *Static {
	return &Static{tokens: make(map[string]staticUser)}
}

// Add registers tok as a valid bearer token for the given subject. The
// optional claims map is surfaced through UserInfo.Claims.
func (s *Static) Add(tok, subject string, claims map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		s.tokens = make(map[string]staticUser)
	}
	s.tokens[tok] = staticUser{subject: subject, claims: claims}
}

// CheckAuthentication implements auth.Authenticator.
func (s *Static) CheckAuthentication(ctx context.Context, tok string) (auth.UserInfo, error) {
	s.mu.RLock()
	u, ok := s.tokens[tok]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown token", auth.ErrUnauthorized)
	}
	return &staticUserInfo{user: u}, nil
}

type staticUserInfo struct {
	user staticUser
}

func (i *staticUserInfo) UserID() string { return i.user.subject }

func (i *staticUserInfo) Claims(ref any) error {
	raw, err := json.Marshal(i.user.claims)
	if err != nil {
		return fmt.Errorf("marshaling claims: %w", err)
	}
	return json.Unmarshal(raw, ref)
}
