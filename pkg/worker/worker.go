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

package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/getbindu/bindu-go/pkg/a2a"
	"github.com/getbindu/bindu-go/pkg/logger"
	"github.com/getbindu/bindu-go/pkg/scheduler"
	"github.com/getbindu/bindu-go/pkg/storage"
)

// persistTimeout bounds the final writes of a run. Final states must land
// even when the run context is already canceled.
const persistTimeout = 10 * time.Second

// EventSink receives every event after it has been persisted and published.
// The push dispatcher plugs in here.
type EventSink interface {
	Notify(ctx context.Context, event a2a.TaskEvent)
}

// Worker consumes runs from the scheduler and drives the handler through the
// task state machine. Every emitted event is persisted before it is
// published.
type Worker struct {
	store   storage.Storage
	sched   scheduler.Scheduler
	handler Handler
	sink    EventSink
	log     *slog.Logger
	wg      sync.WaitGroup
}

// New creates a worker. sink may be nil.
func New(store storage.Storage, sched scheduler.Scheduler, handler Handler, sink EventSink) *Worker {
	return &Worker{
		store:   store,
		sched:   sched,
		handler: handler,
		sink:    sink,
		log:     logger.Component("worker"),
	}
}

// Start consumes runs until ctx is done or the scheduler closes. It blocks;
// run it in its own goroutine.
func (w *Worker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			return
		case run, ok := <-w.sched.Runs():
			if !ok {
				w.wg.Wait()
				return
			}
			w.wg.Add(1)
			go func() {
				defer w.wg.Done()
				w.execute(run)
			}()
		}
	}
}

// execute drives one task run end to end.
func (w *Worker) execute(run scheduler.RunRequest) {
	log := w.log.With("taskId", run.TaskID)

	task, err := w.store.LoadTask(run.Ctx, run.TaskID)
	if err != nil {
		log.Error("run aborted, task not loadable", "error", err)
		return
	}

	if err := w.publishStatus(run.Ctx, task, a2a.TaskStateWorking, false, nil, nil); err != nil {
		log.Error("failed to enter working state", "error", err)
		return
	}

	result, err := w.handler.Run(run.Ctx, buildRequest(task))
	if err != nil {
		w.finishWithError(run, task, err)
		return
	}
	if result == nil {
		w.finishWithError(run, task, errors.New("handler returned no result"))
		return
	}

	switch result.kind {
	case resultInputRequired:
		w.finishInputRequired(task, result.prompt)
	case resultParts:
		w.finishParts(run, task, result.parts)
	case resultStream:
		w.finishStream(run, task, result.stream)
	}
}

func buildRequest(task *a2a.Task) Request {
	req := Request{
		TaskID:    task.ID,
		ContextID: task.ContextID,
	}
	for _, msg := range task.History {
		if text := a2a.ExtractText(msg); text != "" {
			req.History = append(req.History, ChatMessage{Role: msg.Role, Content: text})
		}
	}
	for i := len(task.History) - 1; i >= 0; i-- {
		if task.History[i].Role == a2a.RoleUser {
			req.Message = task.History[i]
			req.Input = a2a.ExtractText(task.History[i])
			break
		}
	}
	return req
}

// finishWithError closes the run as canceled when the run context was
// canceled, failed otherwise.
func (w *Worker) finishWithError(run scheduler.RunRequest, task *a2a.Task, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if errors.Is(err, context.Canceled) || run.Ctx.Err() != nil {
		w.log.Info("run canceled", "taskId", task.ID)
		if perr := w.publishStatus(ctx, task, a2a.TaskStateCanceled, true, nil, nil); perr != nil {
			w.log.Error("failed to persist canceled state", "taskId", task.ID, "error", perr)
		}
		return
	}

	w.log.Warn("handler failed", "taskId", task.ID, "error", err)
	metadata := map[string]string{"error": err.Error()}
	if perr := w.publishStatus(ctx, task, a2a.TaskStateFailed, true, nil, metadata); perr != nil {
		w.log.Error("failed to persist failed state", "taskId", task.ID, "error", perr)
	}
}

func (w *Worker) finishInputRequired(task *a2a.Task, prompt string) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	msg := a2a.NewAgentMessage(task.ID, task.ContextID, a2a.NewTextPart(prompt))
	if err := w.publishStatus(ctx, task, a2a.TaskStateInputRequired, true, &msg, nil); err != nil {
		w.log.Error("failed to persist input-required state", "taskId", task.ID, "error", err)
	}
}

func (w *Worker) finishParts(run scheduler.RunRequest, task *a2a.Task, parts []a2a.Part) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	artifact := a2a.Artifact{ArtifactID: uuid.New(), Parts: parts}
	if err := w.publishArtifact(ctx, task, artifact, false, true); err != nil {
		w.finishWithError(run, task, err)
		return
	}
	if err := w.publishStatus(ctx, task, a2a.TaskStateCompleted, true, nil, nil); err != nil {
		w.log.Error("failed to persist completed state", "taskId", task.ID, "error", err)
	}
}

// finishStream forwards chunks with one-chunk lookahead so the last emitted
// artifact-update carries lastChunk without needing a sentinel from the
// handler.
func (w *Worker) finishStream(run scheduler.RunRequest, task *a2a.Task, stream <-chan []a2a.Part) {
	artifactID := uuid.New()
	var pending []a2a.Part
	havePending := false
	first := true

	flush := func(parts []a2a.Part, last bool) error {
		artifact := a2a.Artifact{ArtifactID: artifactID, Parts: parts}
		err := w.publishArtifact(run.Ctx, task, artifact, !first, last)
		first = false
		return err
	}

	for {
		select {
		case <-run.Ctx.Done():
			w.finishWithError(run, task, run.Ctx.Err())
			return
		case chunk, ok := <-stream:
			if !ok {
				ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
				defer cancel()

				if havePending {
					artifact := a2a.Artifact{ArtifactID: artifactID, Parts: pending}
					if err := w.publishArtifact(ctx, task, artifact, !first, true); err != nil {
						w.finishWithError(run, task, err)
						return
					}
				}
				if err := w.publishStatus(ctx, task, a2a.TaskStateCompleted, true, nil, nil); err != nil {
					w.log.Error("failed to persist completed state", "taskId", task.ID, "error", err)
				}
				return
			}

			if havePending {
				if err := flush(pending, false); err != nil {
					w.finishWithError(run, task, err)
					return
				}
			}
			pending = chunk
			havePending = true
		}
	}
}

// publishStatus persists the transition and then publishes the event. The
// pair keeps storage the source of truth: subscribers never see an event the
// store does not reflect.
func (w *Worker) publishStatus(ctx context.Context, task *a2a.Task, state a2a.TaskState, final bool, msg *a2a.Message, metadata map[string]string) error {
	status := a2a.TaskStatus{State: state, Timestamp: time.Now().UTC(), Message: msg}
	if err := w.store.UpdateTaskStatus(ctx, task.ID, status); err != nil {
		return err
	}

	event := a2a.NewStatusUpdateEvent(task.ID, task.ContextID, state, final)
	event.Status = status
	event.Metadata = metadata
	if err := w.sched.Publish(ctx, event); err != nil {
		return err
	}
	if w.sink != nil {
		w.sink.Notify(ctx, event)
	}
	return nil
}

func (w *Worker) publishArtifact(ctx context.Context, task *a2a.Task, artifact a2a.Artifact, append_, lastChunk bool) error {
	if err := w.store.ApplyArtifact(ctx, task.ID, artifact, append_); err != nil {
		return err
	}

	event := a2a.NewArtifactUpdateEvent(task.ID, task.ContextID, artifact, append_, lastChunk)
	if err := w.sched.Publish(ctx, event); err != nil {
		return err
	}
	if w.sink != nil {
		w.sink.Notify(ctx, event)
	}
	return nil
}
