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
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getbindu/bindu-go/pkg/a2a"
)

// WellKnownHandler serves the public discovery endpoints.
type WellKnownHandler struct {
	manifest a2a.AgentManifest
}

// NewWellKnownHandler creates the discovery handler for the given manifest.
func NewWellKnownHandler(manifest a2a.AgentManifest) *WellKnownHandler {
	return &WellKnownHandler{manifest: manifest}
}

// AgentManifest serves GET /.well-known/agent.json.
func (h *WellKnownHandler) AgentManifest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.manifest)
}

// Docs serves a minimal GET /docs page describing the RPC surface.
func (h *WellKnownHandler) Docs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body>
<h1>%s</h1>
<p>%s</p>
<p>A2A JSON-RPC endpoint: <code>POST /</code>. Manifest:
<a href="/.well-known/agent.json">/.well-known/agent.json</a>.</p>
</body>
</html>
`, h.manifest.Name, h.manifest.Name, h.manifest.Description)
}

// Favicon answers GET /favicon.ico with no content so browsers stop asking.
func (h *WellKnownHandler) Favicon(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
