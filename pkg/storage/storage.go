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

// Package storage persists tasks, contexts, push-notification configs and
// feedback for a bindu agent. Two backends are provided: an in-memory store
// for development and tests, and a SQL store (postgres, sqlite, mysql) for
// production, with one postgres schema per agent DID.
package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/getbindu/bindu-go/pkg/a2a"
)

// Growth limits enforced on every mutation. Exceeding either fails the call
// with failed-precondition.
const (
	MaxHistoryMessages = 1000
	MaxArtifactBytes   = 10 << 20
)

// TaskFilter narrows ListTasks. Nil fields match everything.
type TaskFilter struct {
	ContextID *uuid.UUID
	State     *a2a.TaskState
	Limit     int
}

// Feedback is a client rating attached to a task after the fact.
type Feedback struct {
	TaskID   uuid.UUID         `json:"taskId"`
	Rating   float64           `json:"rating"`
	Feedback string            `json:"feedback,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Storage is the persistence boundary of the task core. All methods are safe
// for concurrent use.
type Storage interface {
	// SubmitTask persists a freshly created task. The task id must be new.
	SubmitTask(ctx context.Context, task a2a.Task) error

	// LoadTask returns the task or a2a.ErrTaskNotFound.
	LoadTask(ctx context.Context, id uuid.UUID) (*a2a.Task, error)

	// ListTasks returns tasks matching the filter, most recently updated
	// first.
	ListTasks(ctx context.Context, filter TaskFilter) ([]a2a.Task, error)

	// UpdateTaskStatus replaces the task status. A status message, when
	// present, is also appended to the history.
	UpdateTaskStatus(ctx context.Context, id uuid.UUID, status a2a.TaskStatus) error

	// AppendHistory appends one message to the task history, subject to
	// MaxHistoryMessages.
	AppendHistory(ctx context.Context, id uuid.UUID, msg a2a.Message) error

	// ApplyArtifact merges one artifact chunk into the task. When append is
	// true and an artifact with the same id exists, the chunk's parts are
	// appended to it; otherwise the artifact is stored as given. Subject to
	// MaxArtifactBytes.
	ApplyArtifact(ctx context.Context, id uuid.UUID, artifact a2a.Artifact, append bool) error

	// ListContexts summarizes all contexts that own at least one task.
	ListContexts(ctx context.Context) ([]a2a.ContextSummary, error)

	// ClearContext deletes a context with all its tasks and their push
	// configs. Returns a2a.ErrContextNotFound when the context owns nothing.
	ClearContext(ctx context.Context, contextID uuid.UUID) error

	// SaveFeedback records client feedback for a task.
	SaveFeedback(ctx context.Context, fb Feedback) error

	// SetPushConfig registers or replaces a push config for a task.
	SetPushConfig(ctx context.Context, taskID uuid.UUID, cfg a2a.PushNotificationConfig) error

	// GetPushConfig returns one push config. A zero configID selects the
	// first registered config.
	GetPushConfig(ctx context.Context, taskID, configID uuid.UUID) (*a2a.PushNotificationConfig, error)

	// ListPushConfigs returns all push configs of a task.
	ListPushConfigs(ctx context.Context, taskID uuid.UUID) ([]a2a.PushNotificationConfig, error)

	// DeletePushConfig removes one push config.
	DeletePushConfig(ctx context.Context, taskID, configID uuid.UUID) error

	// Close releases backend resources.
	Close() error
}
