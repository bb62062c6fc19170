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

// Package scheduler moves task runs and task events between the manager and
// the worker. A run is enqueued at most once while in flight; every task has
// a replayable event topic that late subscribers catch up on; cancellation is
// cooperative through the run context.
package scheduler

import (
	"context"

	"github.com/google/uuid"

	"github.com/getbindu/bindu-go/pkg/a2a"
)

// SubscriberBuffer is the bounded capacity of one subscriber's event queue.
// On overflow the oldest non-final event is dropped; final events are never
// dropped.
const SubscriberBuffer = 256

// RunRequest is one task execution handed to the worker. Ctx is canceled
// when the run is canceled through the scheduler.
type RunRequest struct {
	TaskID uuid.UUID
	Ctx    context.Context
}

// Scheduler is the execution and event transport of the task core. All
// methods are safe for concurrent use.
type Scheduler interface {
	// Enqueue schedules a run for the task. Enqueueing a task already in
	// flight is an idempotent no-op, keeping runs at-most-once.
	Enqueue(ctx context.Context, taskID uuid.UUID) error

	// Runs delivers enqueued runs to the worker. The channel is closed by
	// Close.
	Runs() <-chan RunRequest

	// Publish appends an event to the task's topic and fans it out to
	// subscribers. A final event closes the topic and releases the
	// in-flight slot.
	Publish(ctx context.Context, event a2a.TaskEvent) error

	// Subscribe returns a channel that first replays every event already
	// published for the task and then delivers live events. The channel is
	// closed after a final event. The returned func detaches the
	// subscriber; it is safe to call more than once.
	Subscribe(ctx context.Context, taskID uuid.UUID) (<-chan a2a.TaskEvent, func(), error)

	// Cancel requests cooperative cancellation of an in-flight run by
	// canceling its run context. Canceling a task that is not in flight is
	// a no-op.
	Cancel(ctx context.Context, taskID uuid.UUID) error

	// IsInFlight reports whether the task currently holds the run slot.
	IsInFlight(ctx context.Context, taskID uuid.UUID) (bool, error)

	// Close shuts the scheduler down and closes the run channel.
	Close() error
}
