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
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/getbindu/bindu-go/pkg/a2a"
	"github.com/getbindu/bindu-go/pkg/logger"
)

// MemoryScheduler runs everything in process. Topics live for the duration
// of the process; a final event closes a topic for new subscribers after
// replay.
type MemoryScheduler struct {
	mu       sync.Mutex
	topics   map[uuid.UUID]*topic
	inFlight map[uuid.UUID]context.CancelFunc
	runs     chan RunRequest
	closed   bool
	log      *slog.Logger
}

// topic is the replayable event log of one task.
type topic struct {
	history     []a2a.TaskEvent
	subscribers []*subscriber
	done        bool
}

// subscriber owns a bounded queue pumped into its out channel by a dedicated
// goroutine.
type subscriber struct {
	mu       sync.Mutex
	queue    []a2a.TaskEvent
	notify   chan struct{}
	out      chan a2a.TaskEvent
	done     chan struct{}
	doneOnce sync.Once
	closed   bool
}

func newSubscriber() *subscriber {
	s := &subscriber{
		notify: make(chan struct{}, 1),
		out:    make(chan a2a.TaskEvent),
		done:   make(chan struct{}),
	}
	go s.pump()
	return s
}

// push enqueues one event, dropping the oldest non-final queued event when
// the buffer is full. Final events are never dropped.
func (s *subscriber) push(event a2a.TaskEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if len(s.queue) >= SubscriberBuffer {
		for i, queued := range s.queue {
			if !queued.IsFinal() {
				s.queue = append(s.queue[:i], s.queue[i+1:]...)
				break
			}
		}
	}
	s.queue = append(s.queue, event)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// finish marks the subscriber done once the queue drains. Events already
// queued are still delivered to a draining reader.
func (s *subscriber) finish() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// abort stops the pump immediately, even when the reader is gone and a send
// is blocked. Queued events are discarded.
func (s *subscriber) abort() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *subscriber) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			if s.closed {
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
			select {
			case <-s.notify:
			case <-s.done:
				return
			}
			continue
		}
		event := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- event:
		case <-s.done:
			return
		}
		if event.IsFinal() {
			return
		}
	}
}

// NewMemoryScheduler creates an in-process scheduler.
func NewMemoryScheduler() *MemoryScheduler {
	return &MemoryScheduler{
		topics:   make(map[uuid.UUID]*topic),
		inFlight: make(map[uuid.UUID]context.CancelFunc),
		runs:     make(chan RunRequest, 64),
		log:      logger.Component("scheduler.memory"),
	}
}

func (m *MemoryScheduler) Enqueue(ctx context.Context, taskID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return a2a.Errorf(a2a.KindInternal, "scheduler is closed")
	}
	// Already in flight: the run is scheduled, nothing to do.
	if _, running := m.inFlight[taskID]; running {
		return nil
	}

	// A new run starts a fresh topic; the previous run's events (ending in
	// a final one) must not replay into the new run's subscribers.
	if t := m.topics[taskID]; t != nil && t.done {
		delete(m.topics, taskID)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.inFlight[taskID] = cancel

	select {
	case m.runs <- RunRequest{TaskID: taskID, Ctx: runCtx}:
		m.log.Debug("run enqueued", "taskId", taskID)
		return nil
	default:
		cancel()
		delete(m.inFlight, taskID)
		return a2a.Errorf(a2a.KindInternal, "run queue is full")
	}
}

func (m *MemoryScheduler) Runs() <-chan RunRequest { return m.runs }

func (m *MemoryScheduler) Publish(ctx context.Context, event a2a.TaskEvent) error {
	m.mu.Lock()

	t := m.topics[event.EventTaskID()]
	if t == nil {
		t = &topic{}
		m.topics[event.EventTaskID()] = t
	}
	if t.done {
		m.mu.Unlock()
		return a2a.Errorf(a2a.KindFailedPrecondition,
			"topic for task %s is closed", event.EventTaskID())
	}

	t.history = append(t.history, event)
	subs := append([]*subscriber{}, t.subscribers...)

	if event.IsFinal() {
		t.done = true
		t.subscribers = nil
		if cancel, ok := m.inFlight[event.EventTaskID()]; ok {
			cancel()
			delete(m.inFlight, event.EventTaskID())
		}
	}
	m.mu.Unlock()

	for _, sub := range subs {
		sub.push(event)
		if event.IsFinal() {
			sub.finish()
		}
	}
	return nil
}

func (m *MemoryScheduler) Subscribe(ctx context.Context, taskID uuid.UUID) (<-chan a2a.TaskEvent, func(), error) {
	m.mu.Lock()

	t := m.topics[taskID]
	if t == nil {
		t = &topic{}
		m.topics[taskID] = t
	}

	sub := newSubscriber()
	for _, event := range t.history {
		sub.push(event)
	}
	if t.done {
		sub.finish()
	} else {
		t.subscribers = append(t.subscribers, sub)
	}
	m.mu.Unlock()

	detach := func() {
		m.mu.Lock()
		for i, existing := range t.subscribers {
			if existing == sub {
				t.subscribers = append(t.subscribers[:i], t.subscribers[i+1:]...)
				break
			}
		}
		m.mu.Unlock()
		// The caller is gone; do not wait for it to drain.
		sub.abort()
	}
	return sub.out, detach, nil
}

func (m *MemoryScheduler) Cancel(ctx context.Context, taskID uuid.UUID) error {
	m.mu.Lock()
	cancel, ok := m.inFlight[taskID]
	m.mu.Unlock()

	if ok {
		m.log.Debug("canceling run", "taskId", taskID)
		cancel()
	}
	return nil
}

func (m *MemoryScheduler) IsInFlight(ctx context.Context, taskID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inFlight[taskID]
	return ok, nil
}

func (m *MemoryScheduler) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	for id, cancel := range m.inFlight {
		cancel()
		delete(m.inFlight, id)
	}
	close(m.runs)
	return nil
}

var _ Scheduler = (*MemoryScheduler)(nil)
