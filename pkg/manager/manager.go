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

// Package manager implements the task manager: the validation and
// orchestration layer every protocol surface calls into. It owns identifier
// invariants, the halt-wait of message/send, cancellation, feedback,
// contexts and push-config bookkeeping.
package manager

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/getbindu/bindu-go/pkg/a2a"
	"github.com/getbindu/bindu-go/pkg/logger"
	"github.com/getbindu/bindu-go/pkg/scheduler"
	"github.com/getbindu/bindu-go/pkg/storage"
)

// TaskManager coordinates storage and scheduler on behalf of the protocol
// surfaces. One instance serves both JSON-RPC and gRPC.
type TaskManager struct {
	store    storage.Storage
	sched    scheduler.Scheduler
	manifest a2a.AgentManifest
	running  atomic.Bool
	log      *slog.Logger
}

// New creates a task manager.
func New(store storage.Storage, sched scheduler.Scheduler, manifest a2a.AgentManifest) *TaskManager {
	m := &TaskManager{
		store:    store,
		sched:    sched,
		manifest: manifest,
		log:      logger.Component("manager"),
	}
	m.running.Store(true)
	return m
}

// Manifest returns the agent manifest served at /.well-known/agent.json.
func (m *TaskManager) Manifest() a2a.AgentManifest { return m.manifest }

// IsRunning reports component liveness for health checks.
func (m *TaskManager) IsRunning() bool { return m.running.Load() }

// Shutdown flips the liveness flag; in-flight work drains elsewhere.
func (m *TaskManager) Shutdown() { m.running.Store(false) }

// SendMessage routes a message to a task, waits until the run halts
// (terminal or input-required) and returns the task snapshot at the halt.
func (m *TaskManager) SendMessage(ctx context.Context, msg a2a.Message) (*a2a.Task, error) {
	taskID, ch, detach, err := m.dispatch(ctx, msg)
	if err != nil {
		return nil, err
	}
	defer detach()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case event, ok := <-ch:
			if !ok {
				return m.store.LoadTask(ctx, taskID)
			}
			if event.IsFinal() {
				return m.store.LoadTask(ctx, taskID)
			}
		}
	}
}

// StreamMessage routes a message like SendMessage but returns the live event
// channel instead of waiting. The channel replays events already published
// and closes after the final one; the func detaches the subscription.
func (m *TaskManager) StreamMessage(ctx context.Context, msg a2a.Message) (uuid.UUID, <-chan a2a.TaskEvent, func(), error) {
	taskID, ch, detach, err := m.dispatch(ctx, msg)
	if err != nil {
		return uuid.Nil, nil, nil, err
	}
	return taskID, ch, detach, nil
}

// dispatch validates the message, creates or resumes the task, subscribes to
// its topic and enqueues the run. Validation order: required fields,
// identifier match, existence, state preconditions.
func (m *TaskManager) dispatch(ctx context.Context, msg a2a.Message) (uuid.UUID, <-chan a2a.TaskEvent, func(), error) {
	if len(msg.Parts) == 0 {
		return uuid.Nil, nil, nil, a2a.Errorf(a2a.KindInvalidArgument, "message parts are required")
	}
	if msg.MessageID == uuid.Nil {
		msg.MessageID = uuid.New()
	}
	msg.Kind = a2a.KindMessage
	msg.Role = a2a.RoleUser

	if msg.TaskID != uuid.Nil {
		return m.dispatchFollowUp(ctx, msg)
	}
	return m.dispatchNew(ctx, msg, uuid.Nil, msg.ContextID)
}

// dispatchFollowUp resumes an addressed task or, when it already finished,
// starts a successor in the same context. An unknown task id is not an
// error: the task is created under the client-supplied id.
func (m *TaskManager) dispatchFollowUp(ctx context.Context, msg a2a.Message) (uuid.UUID, <-chan a2a.TaskEvent, func(), error) {
	task, err := m.store.LoadTask(ctx, msg.TaskID)
	if errors.Is(err, a2a.ErrTaskNotFound) {
		return m.dispatchNew(ctx, msg, msg.TaskID, msg.ContextID)
	}
	if err != nil {
		return uuid.Nil, nil, nil, err
	}
	if msg.ContextID != uuid.Nil && msg.ContextID != task.ContextID {
		return uuid.Nil, nil, nil, a2a.Errorf(a2a.KindIdentifierMismatch,
			"message context %s does not match task context %s", msg.ContextID, task.ContextID)
	}

	switch {
	case task.Status.State.IsTerminal():
		// A follow-up on a finished task opens a successor in the same
		// context, keeping the conversation going.
		msg.TaskID = uuid.Nil
		msg.ReferenceTaskIDs = append(msg.ReferenceTaskIDs, task.ID)
		return m.dispatchNew(ctx, msg, uuid.Nil, task.ContextID)

	case task.Status.State == a2a.TaskStateInputRequired:
		msg.ContextID = task.ContextID
		if err := m.store.AppendHistory(ctx, task.ID, msg); err != nil {
			return uuid.Nil, nil, nil, err
		}
		// Enqueue first: it resets the task topic for the new run, and the
		// subscription replays anything published in between.
		if err := m.sched.Enqueue(ctx, task.ID); err != nil {
			return uuid.Nil, nil, nil, err
		}
		ch, detach, err := m.sched.Subscribe(ctx, task.ID)
		if err != nil {
			return uuid.Nil, nil, nil, err
		}
		m.log.Debug("task resumed", "taskId", task.ID)
		return task.ID, ch, detach, nil

	default:
		return uuid.Nil, nil, nil, a2a.ErrTaskNotInterruptible
	}
}

// dispatchNew creates a task, enqueues its first run and subscribes. A Nil
// taskID or contextID is minted fresh; non-Nil ids are honored as given.
func (m *TaskManager) dispatchNew(ctx context.Context, msg a2a.Message, taskID, contextID uuid.UUID) (uuid.UUID, <-chan a2a.TaskEvent, func(), error) {
	if contextID == uuid.Nil {
		contextID = uuid.New()
	}
	if taskID == uuid.Nil {
		taskID = uuid.New()
	}
	msg.TaskID = taskID
	msg.ContextID = contextID

	task := a2a.NewTask(taskID, contextID, msg)
	if err := m.store.SubmitTask(ctx, task); err != nil {
		return uuid.Nil, nil, nil, err
	}

	if err := m.sched.Enqueue(ctx, taskID); err != nil {
		return uuid.Nil, nil, nil, err
	}
	ch, detach, err := m.sched.Subscribe(ctx, taskID)
	if err != nil {
		return uuid.Nil, nil, nil, err
	}

	m.log.Debug("task submitted", "taskId", taskID, "contextId", contextID)
	return taskID, ch, detach, nil
}

// GetTask returns a task snapshot.
func (m *TaskManager) GetTask(ctx context.Context, taskID uuid.UUID) (*a2a.Task, error) {
	if taskID == uuid.Nil {
		return nil, a2a.Errorf(a2a.KindInvalidArgument, "task id is required")
	}
	return m.store.LoadTask(ctx, taskID)
}

// ListTasks returns tasks matching the filter.
func (m *TaskManager) ListTasks(ctx context.Context, filter storage.TaskFilter) ([]a2a.Task, error) {
	return m.store.ListTasks(ctx, filter)
}

// CancelTask cancels a task. An in-flight run is canceled cooperatively and
// CancelTask waits for the worker to confirm; a halted task is moved to
// canceled directly. Terminal tasks cannot be canceled.
func (m *TaskManager) CancelTask(ctx context.Context, taskID uuid.UUID) (*a2a.Task, error) {
	if taskID == uuid.Nil {
		return nil, a2a.Errorf(a2a.KindInvalidArgument, "task id is required")
	}
	task, err := m.store.LoadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status.State.IsTerminal() {
		return nil, a2a.ErrTaskTerminal
	}

	inFlight, err := m.sched.IsInFlight(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !inFlight {
		status := a2a.TaskStatus{State: a2a.TaskStateCanceled, Timestamp: time.Now().UTC()}
		if err := m.store.UpdateTaskStatus(ctx, taskID, status); err != nil {
			return nil, err
		}
		event := a2a.NewStatusUpdateEvent(taskID, task.ContextID, a2a.TaskStateCanceled, true)
		if err := m.sched.Publish(ctx, event); err != nil {
			m.log.Warn("failed to publish cancel event", "taskId", taskID, "error", err)
		}
		return m.store.LoadTask(ctx, taskID)
	}

	ch, detach, err := m.sched.Subscribe(ctx, taskID)
	if err != nil {
		return nil, err
	}
	defer detach()

	if err := m.sched.Cancel(ctx, taskID); err != nil {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case event, ok := <-ch:
			if !ok {
				return m.store.LoadTask(ctx, taskID)
			}
			if event.IsFinal() {
				return m.store.LoadTask(ctx, taskID)
			}
		}
	}
}

// TaskFeedback records client feedback. Terminal tasks accept feedback; that
// is the common case.
func (m *TaskManager) TaskFeedback(ctx context.Context, fb storage.Feedback) error {
	if fb.TaskID == uuid.Nil {
		return a2a.Errorf(a2a.KindInvalidArgument, "task id is required")
	}
	return m.store.SaveFeedback(ctx, fb)
}

// ListContexts summarizes every context with at least one task.
func (m *TaskManager) ListContexts(ctx context.Context) ([]a2a.ContextSummary, error) {
	return m.store.ListContexts(ctx)
}

// ClearContext deletes a context and everything it owns. Contexts with an
// in-flight task cannot be cleared.
func (m *TaskManager) ClearContext(ctx context.Context, contextID uuid.UUID) error {
	if contextID == uuid.Nil {
		return a2a.Errorf(a2a.KindInvalidArgument, "context id is required")
	}

	tasks, err := m.store.ListTasks(ctx, storage.TaskFilter{ContextID: &contextID})
	if err != nil {
		return err
	}
	for _, task := range tasks {
		inFlight, err := m.sched.IsInFlight(ctx, task.ID)
		if err != nil {
			return err
		}
		if inFlight {
			return a2a.Errorf(a2a.KindFailedPrecondition,
				"context %s has task %s in flight", contextID, task.ID)
		}
	}
	return m.store.ClearContext(ctx, contextID)
}

// SetPushConfig registers a webhook for a task's events.
func (m *TaskManager) SetPushConfig(ctx context.Context, taskID uuid.UUID, cfg a2a.PushNotificationConfig) (*a2a.TaskPushNotificationConfig, error) {
	if taskID == uuid.Nil {
		return nil, a2a.Errorf(a2a.KindInvalidArgument, "task id is required")
	}
	if cfg.URL == "" {
		return nil, a2a.Errorf(a2a.KindInvalidArgument, "push notification url is required")
	}
	if _, err := m.store.LoadTask(ctx, taskID); err != nil {
		return nil, err
	}
	if err := m.requirePushCapability(); err != nil {
		return nil, err
	}

	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	if err := m.store.SetPushConfig(ctx, taskID, cfg); err != nil {
		return nil, err
	}
	return &a2a.TaskPushNotificationConfig{TaskID: taskID, Config: cfg}, nil
}

// GetPushConfig returns one push config; a zero configID selects the first.
func (m *TaskManager) GetPushConfig(ctx context.Context, taskID, configID uuid.UUID) (*a2a.TaskPushNotificationConfig, error) {
	if taskID == uuid.Nil {
		return nil, a2a.Errorf(a2a.KindInvalidArgument, "task id is required")
	}
	if _, err := m.store.LoadTask(ctx, taskID); err != nil {
		return nil, err
	}
	if err := m.requirePushCapability(); err != nil {
		return nil, err
	}

	cfg, err := m.store.GetPushConfig(ctx, taskID, configID)
	if err != nil {
		return nil, err
	}
	return &a2a.TaskPushNotificationConfig{TaskID: taskID, Config: *cfg}, nil
}

// ListPushConfigs returns all push configs of a task.
func (m *TaskManager) ListPushConfigs(ctx context.Context, taskID uuid.UUID) ([]a2a.TaskPushNotificationConfig, error) {
	if taskID == uuid.Nil {
		return nil, a2a.Errorf(a2a.KindInvalidArgument, "task id is required")
	}
	if _, err := m.store.LoadTask(ctx, taskID); err != nil {
		return nil, err
	}
	if err := m.requirePushCapability(); err != nil {
		return nil, err
	}

	configs, err := m.store.ListPushConfigs(ctx, taskID)
	if err != nil {
		return nil, err
	}
	out := make([]a2a.TaskPushNotificationConfig, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, a2a.TaskPushNotificationConfig{TaskID: taskID, Config: cfg})
	}
	return out, nil
}

// DeletePushConfig removes one push config.
func (m *TaskManager) DeletePushConfig(ctx context.Context, taskID, configID uuid.UUID) error {
	if taskID == uuid.Nil || configID == uuid.Nil {
		return a2a.Errorf(a2a.KindInvalidArgument, "task id and config id are required")
	}
	if _, err := m.store.LoadTask(ctx, taskID); err != nil {
		return err
	}
	if err := m.requirePushCapability(); err != nil {
		return err
	}
	return m.store.DeletePushConfig(ctx, taskID, configID)
}

func (m *TaskManager) requirePushCapability() error {
	if !m.manifest.Capabilities.PushNotifications {
		return a2a.Errorf(a2a.KindFailedPrecondition,
			"agent does not support push notifications")
	}
	return nil
}
