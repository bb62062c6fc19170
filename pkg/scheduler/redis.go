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
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/getbindu/bindu-go/pkg/a2a"
	"github.com/getbindu/bindu-go/pkg/logger"
)

// Redis key layout. One agent deployment shares a keyspace; several
// processes of the same agent cooperate through it.
const (
	redisRunQueueKey  = "bindu:runs"
	redisCancelTopic  = "bindu:cancel"
	redisEventStream  = "bindu:task:%s:events"
	redisInFlightKey  = "bindu:task:%s:inflight"
	redisInFlightTTL  = 24 * time.Hour
	redisPollInterval = 2 * time.Second
)

// RedisScheduler distributes runs and events across processes. The event log
// of each task is a redis stream, the in-flight slot a SETNX key, and cancel
// a pub/sub broadcast picked up by whichever process holds the run.
type RedisScheduler struct {
	client *redis.Client

	mu       sync.Mutex
	inFlight map[uuid.UUID]context.CancelFunc
	closed   bool

	runs   chan RunRequest
	stop   chan struct{}
	wg     sync.WaitGroup
	pubsub *redis.PubSub
	log    *slog.Logger
}

// NewRedisScheduler connects to redis and starts the run consumer and the
// cancel listener.
func NewRedisScheduler(redisURL string) (*RedisScheduler, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	s := &RedisScheduler{
		client:   client,
		inFlight: make(map[uuid.UUID]context.CancelFunc),
		runs:     make(chan RunRequest, 64),
		stop:     make(chan struct{}),
		pubsub:   client.Subscribe(context.Background(), redisCancelTopic),
		log:      logger.Component("scheduler.redis"),
	}

	s.wg.Add(2)
	go s.consumeRuns()
	go s.consumeCancels()
	return s, nil
}

func (s *RedisScheduler) Enqueue(ctx context.Context, taskID uuid.UUID) error {
	key := fmt.Sprintf(redisInFlightKey, taskID)
	ok, err := s.client.SetNX(ctx, key, "1", redisInFlightTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to take in-flight lock: %w", err)
	}
	// Another enqueue already holds the lock: the run is scheduled.
	if !ok {
		return nil
	}

	// Drop the previous run's event log so new subscribers replay only the
	// run that is starting.
	if err := s.client.Del(ctx, fmt.Sprintf(redisEventStream, taskID)).Err(); err != nil {
		s.client.Del(ctx, key)
		return fmt.Errorf("failed to reset event stream: %w", err)
	}

	if err := s.client.LPush(ctx, redisRunQueueKey, taskID.String()).Err(); err != nil {
		s.client.Del(ctx, key)
		return fmt.Errorf("failed to enqueue run: %w", err)
	}
	s.log.Debug("run enqueued", "taskId", taskID)
	return nil
}

func (s *RedisScheduler) Runs() <-chan RunRequest { return s.runs }

// consumeRuns pops run requests off the shared queue and hands them to the
// local worker with a cancelable context.
func (s *RedisScheduler) consumeRuns() {
	defer s.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		res, err := s.client.BRPop(ctx, redisPollInterval, redisRunQueueKey).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			select {
			case <-s.stop:
				return
			default:
			}
			s.log.Warn("run queue pop failed", "error", err)
			time.Sleep(time.Second)
			continue
		}

		taskID, err := uuid.Parse(res[1])
		if err != nil {
			s.log.Warn("dropping malformed run id", "value", res[1])
			continue
		}

		runCtx, cancel := context.WithCancel(context.Background())
		s.mu.Lock()
		s.inFlight[taskID] = cancel
		s.mu.Unlock()

		select {
		case s.runs <- RunRequest{TaskID: taskID, Ctx: runCtx}:
		case <-s.stop:
			cancel()
			return
		}
	}
}

// consumeCancels cancels the local run context when a cancel broadcast names
// a task this process is executing.
func (s *RedisScheduler) consumeCancels() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stop:
			return
		case msg, ok := <-s.pubsub.Channel():
			if !ok {
				return
			}
			taskID, err := uuid.Parse(msg.Payload)
			if err != nil {
				continue
			}
			s.mu.Lock()
			cancel, held := s.inFlight[taskID]
			s.mu.Unlock()
			if held {
				s.log.Debug("canceling run", "taskId", taskID)
				cancel()
			}
		}
	}
}

func (s *RedisScheduler) Publish(ctx context.Context, event a2a.TaskEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	stream := fmt.Sprintf(redisEventStream, event.EventTaskID())
	if err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"event": string(data)},
	}).Err(); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	if event.IsFinal() {
		taskID := event.EventTaskID()
		s.client.Del(ctx, fmt.Sprintf(redisInFlightKey, taskID))

		s.mu.Lock()
		if cancel, held := s.inFlight[taskID]; held {
			cancel()
			delete(s.inFlight, taskID)
		}
		s.mu.Unlock()
	}
	return nil
}

func (s *RedisScheduler) Subscribe(ctx context.Context, taskID uuid.UUID) (<-chan a2a.TaskEvent, func(), error) {
	sub := newSubscriber()
	stream := fmt.Sprintf(redisEventStream, taskID)

	stopped := make(chan struct{})
	var stopOnce sync.Once
	detach := func() {
		stopOnce.Do(func() {
			close(stopped)
			sub.abort()
		})
	}

	go func() {
		lastID := "0"
		for {
			select {
			case <-stopped:
				return
			case <-s.stop:
				sub.finish()
				return
			default:
			}

			res, err := s.client.XRead(context.Background(), &redis.XReadArgs{
				Streams: []string{stream, lastID},
				Block:   redisPollInterval,
			}).Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				s.log.Warn("event stream read failed", "taskId", taskID, "error", err)
				time.Sleep(time.Second)
				continue
			}

			for _, xstream := range res {
				for _, msg := range xstream.Messages {
					lastID = msg.ID
					raw, ok := msg.Values["event"].(string)
					if !ok {
						continue
					}
					event, err := a2a.UnmarshalTaskEvent([]byte(raw))
					if err != nil {
						s.log.Warn("dropping malformed event", "taskId", taskID, "error", err)
						continue
					}
					sub.push(event)
					if event.IsFinal() {
						sub.finish()
						return
					}
				}
			}
		}
	}()

	return sub.out, detach, nil
}

func (s *RedisScheduler) Cancel(ctx context.Context, taskID uuid.UUID) error {
	if err := s.client.Publish(ctx, redisCancelTopic, taskID.String()).Err(); err != nil {
		return fmt.Errorf("failed to broadcast cancel: %w", err)
	}
	return nil
}

func (s *RedisScheduler) IsInFlight(ctx context.Context, taskID uuid.UUID) (bool, error) {
	n, err := s.client.Exists(ctx, fmt.Sprintf(redisInFlightKey, taskID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check in-flight key: %w", err)
	}
	return n > 0, nil
}

func (s *RedisScheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for id, cancel := range s.inFlight {
		cancel()
		delete(s.inFlight, id)
	}
	s.mu.Unlock()

	close(s.stop)
	s.pubsub.Close()
	s.wg.Wait()
	close(s.runs)
	return s.client.Close()
}

var _ Scheduler = (*RedisScheduler)(nil)
