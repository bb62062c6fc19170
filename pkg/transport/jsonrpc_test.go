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

package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getbindu/bindu-go/pkg/a2a"
	"github.com/getbindu/bindu-go/pkg/manager"
	"github.com/getbindu/bindu-go/pkg/scheduler"
	"github.com/getbindu/bindu-go/pkg/storage"
	"github.com/getbindu/bindu-go/pkg/worker"
)

func testManifest() a2a.AgentManifest {
	return a2a.AgentManifest{
		Name:        "echo-agent",
		Description: "test agent",
		Version:     "0.1.0",
		URL:         "http://localhost:3773",
		DID:         a2a.FormatDID("tester", "echo-agent", "1"),
		Capabilities: a2a.AgentCapabilities{
			Streaming:         true,
			PushNotifications: true,
		},
	}
}

// startServer runs the full HTTP stack against an echo worker.
func startServer(t *testing.T) (*httptest.Server, *manager.TaskManager) {
	t.Helper()

	store := storage.NewMemoryStorage()
	sched := scheduler.NewMemoryScheduler()
	mgr := manager.New(store, sched, testManifest())
	w := worker.New(store, sched, worker.HandlerFunc(func(ctx context.Context, req worker.Request) (*worker.Result, error) {
		return worker.Text("echo: " + req.Input), nil
	}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	srv := httptest.NewServer(NewRouter(mgr, nil, nil, NewMetrics()))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		sched.Close()
		<-done
	})
	return srv, mgr
}

func rpcCall(t *testing.T, srv *httptest.Server, method string, params any) *a2a.JSONRPCResponse {
	t.Helper()

	req := map[string]any{"jsonrpc": "2.0", "id": 1, "method": method}
	if params != nil {
		req["params"] = params
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rpcResp a2a.JSONRPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpcResp))
	return &rpcResp
}

func sendText(t *testing.T, srv *httptest.Server, text string) a2a.Task {
	t.Helper()

	resp := rpcCall(t, srv, a2a.MethodMessageSend, a2a.MessageSendParams{
		Message: a2a.NewTextMessage(a2a.RoleUser, text),
	})
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var task a2a.Task
	require.NoError(t, json.Unmarshal(data, &task))
	return task
}

func TestJSONRPCMessageSend(t *testing.T) {
	srv, _ := startServer(t)

	task := sendText(t, srv, "hello")
	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)
	require.Len(t, task.Artifacts, 1)
	assert.Equal(t, "echo: hello", task.Artifacts[0].Parts[0].Text)
}

func TestJSONRPCTasksGet(t *testing.T) {
	srv, _ := startServer(t)
	task := sendText(t, srv, "hello")

	resp := rpcCall(t, srv, a2a.MethodTasksGet, map[string]any{"taskId": task.ID})
	require.Nil(t, resp.Error)

	resp = rpcCall(t, srv, a2a.MethodTasksGet, map[string]any{"id": task.ID})
	require.Nil(t, resp.Error, "legacy id key must be accepted")

	resp = rpcCall(t, srv, a2a.MethodTasksGet, map[string]any{"taskId": uuid.New()})
	require.NotNil(t, resp.Error)
	assert.Equal(t, a2a.CodeTaskNotFound, resp.Error.Code)
}

func TestJSONRPCParseError(t *testing.T) {
	srv, _ := startServer(t)

	resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()

	var rpcResp a2a.JSONRPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpcResp))
	require.NotNil(t, rpcResp.Error)
	assert.Equal(t, a2a.CodeParseError, rpcResp.Error.Code)
}

func TestJSONRPCMethodNotFound(t *testing.T) {
	srv, _ := startServer(t)

	resp := rpcCall(t, srv, "tasks/reboot", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, a2a.CodeMethodNotFound, resp.Error.Code)
}

func TestJSONRPCInvalidParams(t *testing.T) {
	srv, _ := startServer(t)

	resp := rpcCall(t, srv, a2a.MethodMessageSend, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, a2a.CodeInvalidParams, resp.Error.Code)
}

func TestJSONRPCEmptyMessageRejected(t *testing.T) {
	srv, _ := startServer(t)

	resp := rpcCall(t, srv, a2a.MethodMessageSend, a2a.MessageSendParams{Message: a2a.Message{}})
	require.NotNil(t, resp.Error)
	assert.Equal(t, a2a.CodeInvalidParams, resp.Error.Code)
}

func TestJSONRPCCancelTerminalTask(t *testing.T) {
	srv, _ := startServer(t)
	task := sendText(t, srv, "hello")

	resp := rpcCall(t, srv, a2a.MethodTasksCancel, map[string]any{"taskId": task.ID})
	require.NotNil(t, resp.Error)
	assert.Equal(t, a2a.CodePrecondition, resp.Error.Code)
}

func TestJSONRPCStreamSSE(t *testing.T) {
	srv, _ := startServer(t)

	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  a2a.MethodMessageStream,
		"params":  a2a.MessageSendParams{Message: a2a.NewTextMessage(a2a.RoleUser, "stream me")},
	})
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var events []a2a.TaskEvent
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		event, err := a2a.UnmarshalTaskEvent([]byte(strings.TrimPrefix(line, "data: ")))
		require.NoError(t, err)
		events = append(events, event)
	}

	require.Len(t, events, 3)
	assert.Equal(t, a2a.KindStatusUpdate, events[0].EventKind())
	assert.Equal(t, a2a.KindArtifactUpdate, events[1].EventKind())
	assert.True(t, events[2].IsFinal())

	artifact := events[1].(a2a.TaskArtifactUpdateEvent)
	assert.True(t, artifact.LastChunk)
	assert.Equal(t, "echo: stream me", artifact.Artifact.Parts[0].Text)
}

func TestJSONRPCContextsAndFeedback(t *testing.T) {
	srv, _ := startServer(t)
	task := sendText(t, srv, "hello")

	resp := rpcCall(t, srv, a2a.MethodTasksFeedback, map[string]any{
		"taskId": task.ID, "rating": 5, "feedback": "good bot",
	})
	require.Nil(t, resp.Error)

	resp = rpcCall(t, srv, a2a.MethodContextsList, nil)
	require.Nil(t, resp.Error)
	data, _ := json.Marshal(resp.Result)
	var contexts []a2a.ContextSummary
	require.NoError(t, json.Unmarshal(data, &contexts))
	require.Len(t, contexts, 1)
	assert.Equal(t, task.ContextID, contexts[0].ContextID)

	resp = rpcCall(t, srv, a2a.MethodContextsClear, map[string]any{"contextId": task.ContextID})
	require.Nil(t, resp.Error)

	resp = rpcCall(t, srv, a2a.MethodTasksGet, map[string]any{"taskId": task.ID})
	require.NotNil(t, resp.Error)
	assert.Equal(t, a2a.CodeTaskNotFound, resp.Error.Code)
}

func TestJSONRPCPushConfigMethods(t *testing.T) {
	srv, _ := startServer(t)
	task := sendText(t, srv, "hello")

	resp := rpcCall(t, srv, a2a.MethodPushSet, map[string]any{
		"taskId":                 task.ID,
		"pushNotificationConfig": map[string]any{"url": "https://hook.example.com"},
	})
	require.Nil(t, resp.Error)

	data, _ := json.Marshal(resp.Result)
	var set a2a.TaskPushNotificationConfig
	require.NoError(t, json.Unmarshal(data, &set))
	assert.NotEqual(t, uuid.Nil, set.Config.ID)

	resp = rpcCall(t, srv, a2a.MethodPushGet, map[string]any{"taskId": task.ID})
	require.Nil(t, resp.Error)

	resp = rpcCall(t, srv, a2a.MethodPushList, map[string]any{"taskId": task.ID})
	require.Nil(t, resp.Error)

	resp = rpcCall(t, srv, a2a.MethodPushDelete, map[string]any{
		"taskId":                   task.ID,
		"pushNotificationConfigId": set.Config.ID,
	})
	require.Nil(t, resp.Error)

	resp = rpcCall(t, srv, a2a.MethodPushGet, map[string]any{"taskId": task.ID})
	require.NotNil(t, resp.Error)
	assert.Equal(t, a2a.CodeTaskNotFound, resp.Error.Code)
}

func TestWellKnownEndpoints(t *testing.T) {
	srv, _ := startServer(t)

	resp, err := http.Get(srv.URL + "/.well-known/agent.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var manifest a2a.AgentManifest
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&manifest))
	assert.Equal(t, "echo-agent", manifest.Name)
	assert.True(t, manifest.Capabilities.Streaming)
	assert.Equal(t, "did:bindu:tester:echo-agent:1", manifest.DID)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := startServer(t)
	sendText(t, srv, "count me")

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "bindu_http_requests_total")
}

func TestIdentifierMismatchCode(t *testing.T) {
	srv, _ := startServer(t)
	task := sendText(t, srv, "hello")

	msg := a2a.NewTextMessage(a2a.RoleUser, "again")
	msg.TaskID = task.ID
	msg.ContextID = uuid.New()
	resp := rpcCall(t, srv, a2a.MethodMessageSend, a2a.MessageSendParams{Message: msg})
	require.NotNil(t, resp.Error)
	assert.Equal(t, a2a.CodePrecondition, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "does not match")
}
