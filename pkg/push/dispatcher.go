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

// Package push delivers task events to client webhooks registered through
// tasks/pushNotification/set.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/getbindu/bindu-go/pkg/a2a"
	"github.com/getbindu/bindu-go/pkg/httpclient"
	"github.com/getbindu/bindu-go/pkg/logger"
	"github.com/getbindu/bindu-go/pkg/storage"
)

// deliveryTimeout bounds one webhook delivery including retries.
const deliveryTimeout = 2 * time.Minute

// payload is the webhook request body.
type payload struct {
	TaskID string        `json:"task_id"`
	Event  a2a.TaskEvent `json:"event"`
}

// Dispatcher fans task events out to the webhooks registered for the task.
// Delivery is asynchronous and best-effort: server errors and network
// failures are retried with backoff, client errors are not.
type Dispatcher struct {
	store  storage.Storage
	client *httpclient.Client
	log    *slog.Logger
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher backed by the shared retrying client.
func NewDispatcher(store storage.Storage, client *httpclient.Client) *Dispatcher {
	if client == nil {
		client = httpclient.New()
	}
	return &Dispatcher{
		store:  store,
		client: client,
		log:    logger.Component("push"),
	}
}

// Notify implements worker.EventSink. It returns immediately; deliveries run
// in their own goroutines.
func (d *Dispatcher) Notify(ctx context.Context, event a2a.TaskEvent) {
	taskID := event.EventTaskID()

	configs, err := d.store.ListPushConfigs(ctx, taskID)
	if err != nil {
		d.log.Warn("failed to load push configs", "taskId", taskID, "error", err)
		return
	}
	if len(configs) == 0 {
		return
	}

	for _, cfg := range configs {
		d.wg.Add(1)
		go func(cfg a2a.PushNotificationConfig) {
			defer d.wg.Done()
			d.deliver(cfg, event)
		}(cfg)
	}
}

// Wait blocks until all in-flight deliveries finish. Used on shutdown and in
// tests.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) deliver(cfg a2a.PushNotificationConfig, event a2a.TaskEvent) {
	taskID := event.EventTaskID()

	body, err := json.Marshal(payload{TaskID: taskID.String(), Event: event})
	if err != nil {
		d.log.Error("failed to marshal push payload", "taskId", taskID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		d.log.Error("failed to build push request", "taskId", taskID, "url", cfg.URL, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Warn("push delivery failed", "taskId", taskID, "url", cfg.URL, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// 4xx is the client telling us the hook is wrong; retrying would
		// not help.
		d.log.Warn("push delivery rejected", "taskId", taskID, "url", cfg.URL, "status", resp.StatusCode)
		return
	}
	d.log.Debug("push delivered", "taskId", taskID, "url", cfg.URL, "kind", event.EventKind())
}
