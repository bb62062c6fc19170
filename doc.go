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

// Package bindu is an A2A (Agent-to-Agent) server framework. It turns a
// worker.Handler — the agent's business logic — into a protocol-compliant
// agent exposing JSON-RPC over HTTP (with SSE streaming) and gRPC, backed
// by pluggable storage and scheduling.
//
// The packages compose bottom-up:
//
//   - pkg/a2a        protocol types: tasks, messages, parts, artifacts, events
//   - pkg/storage    task persistence (memory, postgres, sqlite, mysql)
//   - pkg/scheduler  run queueing and event fan-out (memory, redis)
//   - pkg/worker     executes handler runs and emits lifecycle events
//   - pkg/manager    validates requests and orchestrates task lifecycles
//   - pkg/transport  JSON-RPC, SSE and gRPC surfaces
//   - pkg/auth       bearer-token validation and DID request signatures
//   - pkg/push       webhook push notifications
//   - pkg/server     wires everything into one runnable process
//
// Most agents embed pkg/server:
//
//	srv, err := server.New(cfg, manifest, handler)
//	if err != nil {
//		return err
//	}
//	return srv.Run(ctx)
package bindu
