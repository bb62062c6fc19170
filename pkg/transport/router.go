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

package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/getbindu/bindu-go/pkg/auth"
	"github.com/getbindu/bindu-go/pkg/manager"
)

// NewRouter assembles the full HTTP surface: JSON-RPC on POST /, discovery
// endpoints, metrics, auth middleware. A nil validator disables token auth;
// a nil resolver disables DID signature checks.
func NewRouter(mgr *manager.TaskManager, validator auth.TokenValidator, resolver auth.KeyResolver, metrics *Metrics) http.Handler {
	rpc := NewJSONRPCHandler(mgr)
	wellKnown := NewWellKnownHandler(mgr.Manifest())

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	if metrics != nil {
		r.Use(metrics.Middleware)
	}
	r.Use(auth.Middleware(validator))
	r.Use(auth.DIDMiddleware(resolver))

	r.Post("/", rpc.ServeHTTP)
	r.Get("/.well-known/agent.json", wellKnown.AgentManifest)
	r.Get("/docs", wellKnown.Docs)
	r.Get("/favicon.ico", wellKnown.Favicon)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	return r
}
