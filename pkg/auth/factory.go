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

package auth

import (
	"fmt"

	"github.com/getbindu/bindu-go/pkg/config"
)

// NewValidator builds the validator selected by the settings and wraps it in
// the TTL cache. Returns nil when auth is disabled.
func NewValidator(cfg config.AuthSettings) (TokenValidator, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var inner TokenValidator
	switch cfg.Provider {
	case config.AuthProviderHydra:
		inner = NewIntrospectionValidator(cfg.HydraAdmin, cfg.Audience, cfg.VerifyTLS)
	case config.AuthProviderJWKS:
		v, err := NewJWTValidator(cfg.JWKSURL, cfg.Issuer, cfg.Audience)
		if err != nil {
			return nil, err
		}
		inner = v
	default:
		return nil, fmt.Errorf("unknown auth provider: %q", cfg.Provider)
	}

	return NewCachingValidator(inner, cfg.TokenTimeout), nil
}
