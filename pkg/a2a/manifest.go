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

package a2a

import "fmt"

// ============================================================================
// AGENT MANIFEST - served at /.well-known/agent.json
// ============================================================================

// AgentCapabilities declares which optional protocol features the agent
// supports. Push-config operations are rejected with failed-precondition when
// PushNotifications is false.
type AgentCapabilities struct {
	Streaming         bool     `json:"streaming"`
	PushNotifications bool     `json:"pushNotifications"`
	Extensions        []string `json:"extensions,omitempty"`
}

// AgentSkill advertises one capability of the agent.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

// AgentManifest is the public identity card of the agent.
type AgentManifest struct {
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	Author       string            `json:"author,omitempty"`
	Version      string            `json:"version"`
	URL          string            `json:"url"`
	DID          string            `json:"did,omitempty"`
	Capabilities AgentCapabilities `json:"capabilities"`
	Skills       []AgentSkill      `json:"skills,omitempty"`
}

// FormatDID builds the agent DID from its author, name and instance id.
func FormatDID(author, name, id string) string {
	return fmt.Sprintf("did:bindu:%s:%s:%s", author, name, id)
}
