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

package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getbindu/bindu-go/pkg/a2a"
)

func collectEvents(t *testing.T, ch <-chan a2a.TaskEvent, n int) []a2a.TaskEvent {
	t.Helper()
	var out []a2a.TaskEvent
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case event, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, event)
		case <-timeout:
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestMemoryEnqueueAtMostOnce(t *testing.T) {
	s := NewMemoryScheduler()
	defer s.Close()
	ctx := context.Background()
	taskID := uuid.New()

	require.NoError(t, s.Enqueue(ctx, taskID))

	// Duplicate enqueue while in flight is an idempotent no-op: no error, no
	// second run.
	require.NoError(t, s.Enqueue(ctx, taskID))

	inFlight, err := s.IsInFlight(ctx, taskID)
	require.NoError(t, err)
	assert.True(t, inFlight)

	run := <-s.Runs()
	assert.Equal(t, taskID, run.TaskID)

	select {
	case extra := <-s.Runs():
		t.Fatalf("unexpected second run for task %s", extra.TaskID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMemoryPublishReleasesInFlightOnFinal(t *testing.T) {
	s := NewMemoryScheduler()
	defer s.Close()
	ctx := context.Background()
	taskID, contextID := uuid.New(), uuid.New()

	require.NoError(t, s.Enqueue(ctx, taskID))
	require.NoError(t, s.Publish(ctx, a2a.NewStatusUpdateEvent(taskID, contextID, a2a.TaskStateWorking, false)))
	require.NoError(t, s.Publish(ctx, a2a.NewStatusUpdateEvent(taskID, contextID, a2a.TaskStateCompleted, true)))

	inFlight, err := s.IsInFlight(ctx, taskID)
	require.NoError(t, err)
	assert.False(t, inFlight)

	// Re-enqueue after release is allowed (follow-up runs).
	require.NoError(t, s.Enqueue(ctx, taskID))
}

func TestMemorySubscribeReplaysHistory(t *testing.T) {
	s := NewMemoryScheduler()
	defer s.Close()
	ctx := context.Background()
	taskID, contextID := uuid.New(), uuid.New()

	require.NoError(t, s.Publish(ctx, a2a.NewStatusUpdateEvent(taskID, contextID, a2a.TaskStateWorking, false)))
	artifact := a2a.Artifact{ArtifactID: uuid.New(), Parts: []a2a.Part{a2a.NewTextPart("result")}}
	require.NoError(t, s.Publish(ctx, a2a.NewArtifactUpdateEvent(taskID, contextID, artifact, false, true)))

	// Late subscriber sees history first, then live events.
	ch, detach, err := s.Subscribe(ctx, taskID)
	require.NoError(t, err)
	defer detach()

	require.NoError(t, s.Publish(ctx, a2a.NewStatusUpdateEvent(taskID, contextID, a2a.TaskStateCompleted, true)))

	events := collectEvents(t, ch, 3)
	require.Len(t, events, 3)
	assert.Equal(t, a2a.KindStatusUpdate, events[0].EventKind())
	assert.Equal(t, a2a.KindArtifactUpdate, events[1].EventKind())
	assert.True(t, events[2].IsFinal())

	// Channel closes after the final event.
	_, open := <-ch
	assert.False(t, open)
}

func TestMemorySubscribeAfterFinal(t *testing.T) {
	s := NewMemoryScheduler()
	defer s.Close()
	ctx := context.Background()
	taskID, contextID := uuid.New(), uuid.New()

	require.NoError(t, s.Publish(ctx, a2a.NewStatusUpdateEvent(taskID, contextID, a2a.TaskStateFailed, true)))

	ch, detach, err := s.Subscribe(ctx, taskID)
	require.NoError(t, err)
	defer detach()

	events := collectEvents(t, ch, 1)
	require.Len(t, events, 1)
	assert.True(t, events[0].IsFinal())

	_, open := <-ch
	assert.False(t, open)
}

func TestMemoryPublishAfterFinalRejected(t *testing.T) {
	s := NewMemoryScheduler()
	defer s.Close()
	ctx := context.Background()
	taskID, contextID := uuid.New(), uuid.New()

	require.NoError(t, s.Publish(ctx, a2a.NewStatusUpdateEvent(taskID, contextID, a2a.TaskStateCompleted, true)))

	err := s.Publish(ctx, a2a.NewStatusUpdateEvent(taskID, contextID, a2a.TaskStateWorking, false))
	require.Error(t, err)
	assert.Equal(t, a2a.KindFailedPrecondition, a2a.AsError(err).Kind)
}

func TestMemoryCancelStopsRunContext(t *testing.T) {
	s := NewMemoryScheduler()
	defer s.Close()
	ctx := context.Background()
	taskID := uuid.New()

	require.NoError(t, s.Enqueue(ctx, taskID))
	run := <-s.Runs()

	require.NoError(t, s.Cancel(ctx, taskID))

	select {
	case <-run.Ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("run context not canceled")
	}
}

func TestMemoryCancelUnknownTaskIsNoop(t *testing.T) {
	s := NewMemoryScheduler()
	defer s.Close()
	assert.NoError(t, s.Cancel(context.Background(), uuid.New()))
}

func TestMemoryDetachReleasesUndrainedSubscriber(t *testing.T) {
	s := NewMemoryScheduler()
	defer s.Close()
	ctx := context.Background()
	taskID, contextID := uuid.New(), uuid.New()

	ch, detach, err := s.Subscribe(ctx, taskID)
	require.NoError(t, err)

	// Nobody reads ch; the pump ends up parked on its send.
	require.NoError(t, s.Publish(ctx, a2a.NewStatusUpdateEvent(taskID, contextID, a2a.TaskStateWorking, false)))
	require.NoError(t, s.Publish(ctx, a2a.NewStatusUpdateEvent(taskID, contextID, a2a.TaskStateWorking, false)))

	detach()

	// A detached subscriber must close its channel even though it was never
	// drained; a blocked pump goroutine would keep it open forever.
	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-timeout:
			t.Fatal("subscriber channel not closed after detach")
		}
	}
}

func TestSubscriberDropsOldestNonFinal(t *testing.T) {
	sub := newSubscriber()
	taskID, contextID := uuid.New(), uuid.New()

	// Overfill without draining; the pump takes one event, the queue holds
	// SubscriberBuffer more, and the overflow drops from the front.
	for i := 0; i < SubscriberBuffer+10; i++ {
		sub.push(a2a.NewStatusUpdateEvent(taskID, contextID, a2a.TaskStateWorking, false))
	}
	final := a2a.NewStatusUpdateEvent(taskID, contextID, a2a.TaskStateCompleted, true)
	sub.push(final)

	var last a2a.TaskEvent
	count := 0
	timeout := time.After(2 * time.Second)
	for {
		select {
		case event, ok := <-sub.out:
			if !ok {
				require.NotNil(t, last)
				assert.True(t, last.IsFinal(), "final event must survive overflow")
				assert.LessOrEqual(t, count, SubscriberBuffer+2)
				return
			}
			last = event
			count++
		case <-timeout:
			t.Fatal("subscriber did not drain")
		}
	}
}
