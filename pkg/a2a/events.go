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

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// TASK EVENTS - status-update / artifact-update union
// ============================================================================

// Event kind discriminators as they appear on the wire.
const (
	KindStatusUpdate   = "status-update"
	KindArtifactUpdate = "artifact-update"
)

// TaskEvent is one update produced during a task run. It is a closed union of
// TaskStatusUpdateEvent and TaskArtifactUpdateEvent.
type TaskEvent interface {
	// EventKind returns the wire discriminator ("status-update" or
	// "artifact-update").
	EventKind() string

	// EventTaskID returns the task the event belongs to.
	EventTaskID() uuid.UUID

	// IsFinal reports whether this is the last event of the run.
	IsFinal() bool
}

// TaskStatusUpdateEvent announces a state change of a task.
type TaskStatusUpdateEvent struct {
	Kind      string            `json:"kind"` // always "status-update"
	TaskID    uuid.UUID         `json:"taskId"`
	ContextID uuid.UUID         `json:"contextId"`
	Status    TaskStatus        `json:"status"`
	Final     bool              `json:"final"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (e TaskStatusUpdateEvent) EventKind() string      { return KindStatusUpdate }
func (e TaskStatusUpdateEvent) EventTaskID() uuid.UUID { return e.TaskID }
func (e TaskStatusUpdateEvent) IsFinal() bool          { return e.Final }

// TaskArtifactUpdateEvent carries one artifact chunk. Append selects merge
// semantics against an existing artifact with the same id; LastChunk marks
// the artifact complete.
type TaskArtifactUpdateEvent struct {
	Kind      string            `json:"kind"` // always "artifact-update"
	TaskID    uuid.UUID         `json:"taskId"`
	ContextID uuid.UUID         `json:"contextId"`
	Artifact  Artifact          `json:"artifact"`
	Append    bool              `json:"append"`
	LastChunk bool              `json:"lastChunk"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (e TaskArtifactUpdateEvent) EventKind() string      { return KindArtifactUpdate }
func (e TaskArtifactUpdateEvent) EventTaskID() uuid.UUID { return e.TaskID }

// IsFinal is always false for artifact updates; a run is closed by a final
// status-update even when LastChunk is set.
func (e TaskArtifactUpdateEvent) IsFinal() bool { return false }

// NewStatusUpdateEvent builds a status-update event for a task.
func NewStatusUpdateEvent(taskID, contextID uuid.UUID, state TaskState, final bool) TaskStatusUpdateEvent {
	return TaskStatusUpdateEvent{
		Kind:      KindStatusUpdate,
		TaskID:    taskID,
		ContextID: contextID,
		Status: TaskStatus{
			State:     state,
			Timestamp: time.Now().UTC(),
		},
		Final: final,
	}
}

// NewArtifactUpdateEvent builds an artifact-update event for a task.
func NewArtifactUpdateEvent(taskID, contextID uuid.UUID, artifact Artifact, append_, lastChunk bool) TaskArtifactUpdateEvent {
	return TaskArtifactUpdateEvent{
		Kind:      KindArtifactUpdate,
		TaskID:    taskID,
		ContextID: contextID,
		Artifact:  artifact,
		Append:    append_,
		LastChunk: lastChunk,
	}
}

// UnmarshalTaskEvent decodes a JSON-encoded task event by its kind tag.
func UnmarshalTaskEvent(data []byte) (TaskEvent, error) {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode task event: %w", err)
	}

	switch probe.Kind {
	case KindStatusUpdate:
		var e TaskStatusUpdateEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode status-update: %w", err)
		}
		return e, nil
	case KindArtifactUpdate:
		var e TaskArtifactUpdateEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode artifact-update: %w", err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown task event kind: %q", probe.Kind)
	}
}
