// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Request carriers for anonymous identity tokens
const (
	IdentityTokenHeader = "X-Identity-Token"
	IdentityCookie      = "doudou_identity"
	DisplayNameHeader   = "X-Display-Name"
)

var ErrNoIdentity = errors.New("no identity on request")

// Identity is the stable, opaque caller identity the engine compares against
// session owners and participants
type Identity struct {
	ID          string
	DisplayName string
}

// IdentityProvider resolves the caller of a request. Deployments pick the
// mechanism; handlers only see the resolved Identity.
type IdentityProvider interface {
	Resolve(r *http.Request) (Identity, error)
}

// TokenProvider issues and verifies anonymous HMAC-signed identities
type TokenProvider struct {
	salt string
}

func NewTokenProvider(salt string) *TokenProvider {
	return &TokenProvider{salt: salt}
}

// Issue mints a new anonymous identity and its bearer token
func (p *TokenProvider) Issue(displayName string) (Identity, string) {
	id := uuid.NewString()
	return Identity{ID: id, DisplayName: ClampDisplayName(displayName)}, SignIdentity(id, p.salt)
}

// Resolve reads the token from the X-Identity-Token header, falling back to
// the doudou_identity cookie
func (p *TokenProvider) Resolve(r *http.Request) (Identity, error) {
	token := r.Header.Get(IdentityTokenHeader)
	if token == "" {
		if c, err := r.Cookie(IdentityCookie); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		return Identity{}, ErrNoIdentity
	}

	id, err := VerifyIdentity(token, p.salt)
	if err != nil {
		return Identity{}, fmt.Errorf("identity token: %w", err)
	}
	return Identity{ID: id, DisplayName: displayNameFrom(r)}, nil
}

// HeaderProvider trusts an identity header set by an authenticating proxy
type HeaderProvider struct {
	header string
}

func NewHeaderProvider(header string) *HeaderProvider {
	if header == "" {
		header = "X-User-ID"
	}
	return &HeaderProvider{header: header}
}

func (p *HeaderProvider) Resolve(r *http.Request) (Identity, error) {
	id := strings.TrimSpace(r.Header.Get(p.header))
	if id == "" {
		return Identity{}, ErrNoIdentity
	}
	return Identity{ID: id, DisplayName: displayNameFrom(r)}, nil
}

func displayNameFrom(r *http.Request) string {
	return ClampDisplayName(r.Header.Get(DisplayNameHeader))
}

var (
	_ IdentityProvider = (*TokenProvider)(nil)
	_ IdentityProvider = (*HeaderProvider)(nil)
)
