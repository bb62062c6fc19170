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

// Package a2a defines the wire types of the Agent-to-Agent (A2A) protocol as
// served by a bindu agent: tasks, messages, parts, artifacts, task events,
// push-notification configs and the JSON-RPC envelope that carries them.
package a2a

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// TASK - Unit of handler execution
// ============================================================================

// TaskState is the lifecycle state of a task.
type TaskState string

const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateFailed        TaskState = "failed"
	TaskStateCanceled      TaskState = "canceled"
)

// IsTerminal reports whether no further transitions are possible.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled:
		return true
	}
	return false
}

// IsHalted reports whether the task has stopped advancing: either terminal or
// waiting for client input. Halt is the point at which message/send returns.
func (s TaskState) IsHalted() bool {
	return s.IsTerminal() || s == TaskStateInputRequired
}

// CanTransitionTo reports whether the state machine admits s -> next.
// The DAG: submitted -> working; working -> input-required|completed|failed|
// canceled; input-required -> working (client follow-up) or canceled.
func (s TaskState) CanTransitionTo(next TaskState) bool {
	if s.IsTerminal() {
		return false
	}
	switch s {
	case TaskStateSubmitted:
		return next == TaskStateWorking || next == TaskStateCanceled || next == TaskStateFailed
	case TaskStateWorking:
		return next == TaskStateInputRequired || next.IsTerminal()
	case TaskStateInputRequired:
		return next == TaskStateWorking || next == TaskStateCanceled
	}
	return false
}

// TaskStatus is the state of a task at a point in time.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Timestamp time.Time `json:"timestamp"`
	// Message optionally carries an agent message explaining the status,
	// e.g. the prompt attached to an input-required halt.
	Message *Message `json:"message,omitempty"`
}

// Task is a unit of handler execution within a context.
type Task struct {
	ID        uuid.UUID         `json:"id"`
	ContextID uuid.UUID         `json:"contextId"`
	Kind      string            `json:"kind"` // always "task"
	Status    TaskStatus        `json:"status"`
	Artifacts []Artifact        `json:"artifacts,omitempty"`
	History   []Message         `json:"history,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// KindTask is the discriminator value carried by every Task.
const KindTask = "task"

// ============================================================================
// MESSAGE & PARTS
// ============================================================================

// Role identifies the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Message is a single conversational turn addressed to or produced by a task.
type Message struct {
	MessageID        uuid.UUID         `json:"messageId"`
	ContextID        uuid.UUID         `json:"contextId"`
	TaskID           uuid.UUID         `json:"taskId"`
	Kind             string            `json:"kind"` // always "message"
	Role             Role              `json:"role"`
	Parts            []Part            `json:"parts"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	ReferenceTaskIDs []uuid.UUID       `json:"referenceTaskIds,omitempty"`
	Extensions       []string          `json:"extensions,omitempty"`
}

// KindMessage is the discriminator value carried by every Message.
const KindMessage = "message"

// PartKind discriminates the part union.
type PartKind string

const (
	PartKindText PartKind = "text"
	PartKindFile PartKind = "file"
	PartKindData PartKind = "data"
)

// Part is a tagged fragment of message or artifact content. Exactly one of
// the variant field groups is populated, selected by Kind.
type Part struct {
	Kind PartKind `json:"kind"`

	// Text variant.
	Text       string    `json:"text,omitempty"`
	Embeddings []float64 `json:"embeddings,omitempty"`

	// File variant.
	File *FileContent `json:"file,omitempty"`

	// Data variant: a structured value plus its mime type.
	Data     any    `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// FileContent references file data either inline (base64 bytes) or by URI.
type FileContent struct {
	URI      string `json:"uri,omitempty"`
	Bytes    string `json:"bytes,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Name     string `json:"name,omitempty"`
}

// ============================================================================
// ARTIFACT
// ============================================================================

// Artifact is a named, ordered collection of parts produced by a handler.
// Chunked artifacts are assembled by successive artifact-update events that
// share an ArtifactID; the final chunk sets lastChunk on the event.
type Artifact struct {
	ArtifactID uuid.UUID         `json:"artifactId"`
	Name       string            `json:"name,omitempty"`
	Parts      []Part            `json:"parts"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ============================================================================
// PUSH NOTIFICATIONS
// ============================================================================

// PushNotificationConfig registers a webhook for task event delivery.
type PushNotificationConfig struct {
	ID             uuid.UUID      `json:"id"`
	URL            string         `json:"url"`
	Token          string         `json:"token,omitempty"`
	Authentication map[string]any `json:"authentication,omitempty"`
	LongRunning    bool           `json:"longRunning,omitempty"`
}

// TaskPushNotificationConfig binds a push config to a task. Several configs
// may be registered for one task.
type TaskPushNotificationConfig struct {
	TaskID uuid.UUID              `json:"taskId"`
	Config PushNotificationConfig `json:"pushNotificationConfig"`
}

// ============================================================================
// CONTEXTS
// ============================================================================

// ContextSummary describes a conversational context and the tasks it owns.
type ContextSummary struct {
	ContextID uuid.UUID   `json:"contextId"`
	TaskCount int         `json:"taskCount"`
	TaskIDs   []uuid.UUID `json:"taskIds"`
}
