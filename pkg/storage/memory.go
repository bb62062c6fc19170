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

package storage

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/getbindu/bindu-go/pkg/a2a"
)

// MemoryStorage keeps everything in process memory. It is the default
// backend and the reference semantics for the SQL store.
type MemoryStorage struct {
	mu          sync.RWMutex
	tasks       map[uuid.UUID]*a2a.Task
	updatedAt   map[uuid.UUID]time.Time
	pushConfigs map[uuid.UUID][]a2a.PushNotificationConfig
	feedback    map[uuid.UUID][]Feedback
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		tasks:       make(map[uuid.UUID]*a2a.Task),
		updatedAt:   make(map[uuid.UUID]time.Time),
		pushConfigs: make(map[uuid.UUID][]a2a.PushNotificationConfig),
		feedback:    make(map[uuid.UUID][]Feedback),
	}
}

func (s *MemoryStorage) SubmitTask(ctx context.Context, task a2a.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return a2a.Errorf(a2a.KindFailedPrecondition, "task %s already exists", task.ID)
	}

	t := cloneTask(&task)
	s.tasks[task.ID] = t
	s.updatedAt[task.ID] = time.Now()
	return nil
}

func (s *MemoryStorage) LoadTask(ctx context.Context, id uuid.UUID) (*a2a.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, a2a.ErrTaskNotFound
	}
	return cloneTask(t), nil
}

func (s *MemoryStorage) ListTasks(ctx context.Context, filter TaskFilter) ([]a2a.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []a2a.Task
	for _, t := range s.tasks {
		if filter.ContextID != nil && t.ContextID != *filter.ContextID {
			continue
		}
		if filter.State != nil && t.Status.State != *filter.State {
			continue
		}
		out = append(out, *cloneTask(t))
	}

	sort.Slice(out, func(i, j int) bool {
		return s.updatedAt[out[i].ID].After(s.updatedAt[out[j].ID])
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStorage) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status a2a.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return a2a.ErrTaskNotFound
	}
	if !t.Status.State.CanTransitionTo(status.State) {
		return a2a.Errorf(a2a.KindFailedPrecondition,
			"task %s cannot move from %s to %s", id, t.Status.State, status.State)
	}

	t.Status = status
	if status.Message != nil {
		if len(t.History) >= MaxHistoryMessages {
			return a2a.Errorf(a2a.KindFailedPrecondition,
				"task %s history exceeds %d messages", id, MaxHistoryMessages)
		}
		t.History = append(t.History, *status.Message)
	}
	s.updatedAt[id] = time.Now()
	return nil
}

func (s *MemoryStorage) AppendHistory(ctx context.Context, id uuid.UUID, msg a2a.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return a2a.ErrTaskNotFound
	}
	if len(t.History) >= MaxHistoryMessages {
		return a2a.Errorf(a2a.KindFailedPrecondition,
			"task %s history exceeds %d messages", id, MaxHistoryMessages)
	}

	t.History = append(t.History, msg)
	s.updatedAt[id] = time.Now()
	return nil
}

func (s *MemoryStorage) ApplyArtifact(ctx context.Context, id uuid.UUID, artifact a2a.Artifact, append_ bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return a2a.ErrTaskNotFound
	}

	merged := mergeArtifact(t.Artifacts, artifact, append_)
	if err := checkArtifactSize(merged, artifact.ArtifactID); err != nil {
		return err
	}

	t.Artifacts = merged
	s.updatedAt[id] = time.Now()
	return nil
}

func (s *MemoryStorage) ListContexts(ctx context.Context) ([]a2a.ContextSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byContext := make(map[uuid.UUID][]uuid.UUID)
	for id, t := range s.tasks {
		byContext[t.ContextID] = append(byContext[t.ContextID], id)
	}

	out := make([]a2a.ContextSummary, 0, len(byContext))
	for ctxID, taskIDs := range byContext {
		sort.Slice(taskIDs, func(i, j int) bool {
			return s.updatedAt[taskIDs[i]].Before(s.updatedAt[taskIDs[j]])
		})
		out = append(out, a2a.ContextSummary{
			ContextID: ctxID,
			TaskCount: len(taskIDs),
			TaskIDs:   taskIDs,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ContextID.String() < out[j].ContextID.String()
	})
	return out, nil
}

func (s *MemoryStorage) ClearContext(ctx context.Context, contextID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for id, t := range s.tasks {
		if t.ContextID != contextID {
			continue
		}
		found = true
		delete(s.tasks, id)
		delete(s.updatedAt, id)
		delete(s.pushConfigs, id)
		delete(s.feedback, id)
	}
	if !found {
		return a2a.ErrContextNotFound
	}
	return nil
}

func (s *MemoryStorage) SaveFeedback(ctx context.Context, fb Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[fb.TaskID]; !ok {
		return a2a.ErrTaskNotFound
	}
	s.feedback[fb.TaskID] = append(s.feedback[fb.TaskID], fb)
	return nil
}

func (s *MemoryStorage) SetPushConfig(ctx context.Context, taskID uuid.UUID, cfg a2a.PushNotificationConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[taskID]; !ok {
		return a2a.ErrTaskNotFound
	}

	configs := s.pushConfigs[taskID]
	for i, existing := range configs {
		if existing.ID == cfg.ID {
			configs[i] = cfg
			return nil
		}
	}
	s.pushConfigs[taskID] = append(configs, cfg)
	return nil
}

func (s *MemoryStorage) GetPushConfig(ctx context.Context, taskID, configID uuid.UUID) (*a2a.PushNotificationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	configs := s.pushConfigs[taskID]
	if len(configs) == 0 {
		return nil, a2a.ErrConfigNotFound
	}
	if configID == uuid.Nil {
		cfg := configs[0]
		return &cfg, nil
	}
	for _, cfg := range configs {
		if cfg.ID == configID {
			c := cfg
			return &c, nil
		}
	}
	return nil, a2a.ErrConfigNotFound
}

func (s *MemoryStorage) ListPushConfigs(ctx context.Context, taskID uuid.UUID) ([]a2a.PushNotificationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	configs := s.pushConfigs[taskID]
	out := make([]a2a.PushNotificationConfig, len(configs))
	copy(out, configs)
	return out, nil
}

func (s *MemoryStorage) DeletePushConfig(ctx context.Context, taskID, configID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configs := s.pushConfigs[taskID]
	for i, cfg := range configs {
		if cfg.ID == configID {
			s.pushConfigs[taskID] = append(configs[:i], configs[i+1:]...)
			return nil
		}
	}
	return a2a.ErrConfigNotFound
}

func (s *MemoryStorage) Close() error { return nil }

// ListFeedback returns the recorded feedback for a task. Not part of the
// Storage interface; used by tests and diagnostics.
func (s *MemoryStorage) ListFeedback(taskID uuid.UUID) []Feedback {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Feedback, len(s.feedback[taskID]))
	copy(out, s.feedback[taskID])
	return out
}

// mergeArtifact applies one chunk to the artifact list. Shared by both
// backends so append semantics stay identical.
func mergeArtifact(artifacts []a2a.Artifact, chunk a2a.Artifact, append_ bool) []a2a.Artifact {
	if append_ {
		for i, existing := range artifacts {
			if existing.ArtifactID == chunk.ArtifactID {
				merged := make([]a2a.Artifact, len(artifacts))
				copy(merged, artifacts)
				merged[i].Parts = append(append([]a2a.Part{}, existing.Parts...), chunk.Parts...)
				if chunk.Name != "" {
					merged[i].Name = chunk.Name
				}
				return merged
			}
		}
	}

	for i, existing := range artifacts {
		if existing.ArtifactID == chunk.ArtifactID {
			merged := make([]a2a.Artifact, len(artifacts))
			copy(merged, artifacts)
			merged[i] = chunk
			return merged
		}
	}
	return append(append([]a2a.Artifact{}, artifacts...), chunk)
}

// checkArtifactSize enforces MaxArtifactBytes on the artifact identified by
// id within the merged list.
func checkArtifactSize(artifacts []a2a.Artifact, id uuid.UUID) error {
	for _, artifact := range artifacts {
		if artifact.ArtifactID != id {
			continue
		}
		data, err := json.Marshal(artifact)
		if err != nil {
			return a2a.Errorf(a2a.KindInternal, "serialize artifact: %v", err)
		}
		if len(data) > MaxArtifactBytes {
			return a2a.Errorf(a2a.KindFailedPrecondition,
				"artifact %s exceeds %d bytes", id, MaxArtifactBytes)
		}
	}
	return nil
}

func cloneTask(t *a2a.Task) *a2a.Task {
	c := *t
	c.Artifacts = append([]a2a.Artifact{}, t.Artifacts...)
	c.History = append([]a2a.Message{}, t.History...)
	if t.Metadata != nil {
		c.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

var _ Storage = (*MemoryStorage)(nil)
