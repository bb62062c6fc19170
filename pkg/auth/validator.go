// Copyright 2026 Bindu Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package auth guards the protocol surfaces with bearer-token validation,
// backed by OAuth2 token introspection or a JWKS endpoint, plus an optional
// DID signature co-check on mutating requests.
package auth

import (
	"context"
	"time"

	"github.com/getbindu/bindu-go/pkg/a2a"
)

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	ClientID      string
	Scope         string
	ExpiresAt     time.Time
	IsM2M         bool
	SignatureInfo map[string]any
}

// TokenValidator checks a bearer token and returns the caller identity.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*Principal, error)
}

// Exact error messages surfaced to clients. Anything more specific would
// leak validator internals.
var (
	ErrMissingToken = a2a.Errorf(a2a.KindUnauthenticated, "Missing authorization token")
	ErrInvalidToken = a2a.Errorf(a2a.KindUnauthenticated, "Invalid authorization token")
)

type principalKey struct{}

// WithPrincipal attaches the caller to the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the authenticated caller, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok
}
