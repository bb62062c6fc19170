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
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/getbindu/bindu-go/pkg/a2a"
	"github.com/getbindu/bindu-go/pkg/manager"
	"github.com/getbindu/bindu-go/pkg/scheduler"
	"github.com/getbindu/bindu-go/pkg/storage"
	"github.com/getbindu/bindu-go/pkg/worker"
)

func startGRPCService(t *testing.T) *GRPCService {
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
	t.Cleanup(func() {
		cancel()
		sched.Close()
		<-done
	})
	return NewGRPCService(mgr)
}

// recordingStream captures server-streamed messages in memory.
type recordingStream struct {
	ctx  context.Context
	sent []a2a.TaskEvent
}

func (s *recordingStream) SetHeader(metadata.MD) error  { return nil }
func (s *recordingStream) SendHeader(metadata.MD) error { return nil }
func (s *recordingStream) SetTrailer(metadata.MD)       {}
func (s *recordingStream) Context() context.Context     { return s.ctx }
func (s *recordingStream) RecvMsg(any) error            { return nil }

func (s *recordingStream) SendMsg(m any) error {
	s.sent = append(s.sent, m.(a2a.TaskEvent))
	return nil
}

var _ grpc.ServerStream = (*recordingStream)(nil)

func TestGRPCSendMessage(t *testing.T) {
	svc := startGRPCService(t)

	task, err := svc.SendMessage(context.Background(), &SendMessageRequest{
		Message: a2a.NewTextMessage(a2a.RoleUser, "hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)
	require.Len(t, task.Artifacts, 1)
	assert.Equal(t, "echo: hello", task.Artifacts[0].Parts[0].Text)
}

func TestGRPCStreamMessage(t *testing.T) {
	svc := startGRPCService(t)

	stream := &recordingStream{ctx: context.Background()}
	err := svc.StreamMessage(&SendMessageRequest{
		Message: a2a.NewTextMessage(a2a.RoleUser, "stream me"),
	}, stream)
	require.NoError(t, err)

	require.Len(t, stream.sent, 3)
	assert.Equal(t, a2a.KindStatusUpdate, stream.sent[0].EventKind())
	assert.Equal(t, a2a.KindArtifactUpdate, stream.sent[1].EventKind())
	assert.True(t, stream.sent[2].IsFinal())
}

func TestGRPCGetTaskErrors(t *testing.T) {
	svc := startGRPCService(t)

	_, err := svc.GetTask(context.Background(), &GetTaskRequest{})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = svc.GetTask(context.Background(), &GetTaskRequest{TaskID: "not-a-uuid"})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = svc.GetTask(context.Background(), &GetTaskRequest{TaskID: uuid.NewString()})
	require.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPCCancelTerminalMapsToFailedPrecondition(t *testing.T) {
	svc := startGRPCService(t)

	task, err := svc.SendMessage(context.Background(), &SendMessageRequest{
		Message: a2a.NewTextMessage(a2a.RoleUser, "hello"),
	})
	require.NoError(t, err)

	_, err = svc.CancelTask(context.Background(), &CancelTaskRequest{TaskID: task.ID.String()})
	require.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestGRPCListTasksAndContexts(t *testing.T) {
	svc := startGRPCService(t)
	ctx := context.Background()

	task, err := svc.SendMessage(ctx, &SendMessageRequest{
		Message: a2a.NewTextMessage(a2a.RoleUser, "hello"),
	})
	require.NoError(t, err)

	list, err := svc.ListTasks(ctx, &ListTasksRequest{ContextID: task.ContextID.String()})
	require.NoError(t, err)
	require.Len(t, list.Tasks, 1)

	list, err = svc.ListTasks(ctx, &ListTasksRequest{State: string(a2a.TaskStateFailed)})
	require.NoError(t, err)
	assert.Empty(t, list.Tasks)

	contexts, err := svc.ListContexts(ctx, &ListContextsRequest{})
	require.NoError(t, err)
	require.Len(t, contexts.Contexts, 1)

	cleared, err := svc.ClearContext(ctx, &ClearContextRequest{ContextID: task.ContextID.String()})
	require.NoError(t, err)
	assert.True(t, cleared.Cleared)
}

func TestGRPCPushNotificationLifecycle(t *testing.T) {
	svc := startGRPCService(t)
	ctx := context.Background()

	task, err := svc.SendMessage(ctx, &SendMessageRequest{
		Message: a2a.NewTextMessage(a2a.RoleUser, "hello"),
	})
	require.NoError(t, err)

	set, err := svc.SetTaskPushNotification(ctx, &SetTaskPushNotificationRequest{
		TaskID: task.ID.String(),
		Config: a2a.PushNotificationConfig{URL: "https://hook.example.com"},
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, set.Config.ID)

	got, err := svc.GetTaskPushNotification(ctx, &GetTaskPushNotificationRequest{TaskID: task.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, set.Config.ID, got.Config.ID)

	listed, err := svc.ListTaskPushNotifications(ctx, &ListTaskPushNotificationsRequest{TaskID: task.ID.String()})
	require.NoError(t, err)
	require.Len(t, listed.Configs, 1)

	deleted, err := svc.DeleteTaskPushNotification(ctx, &DeleteTaskPushNotificationRequest{
		TaskID:   task.ID.String(),
		ConfigID: set.Config.ID.String(),
	})
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)

	_, err = svc.GetTaskPushNotification(ctx, &GetTaskPushNotificationRequest{TaskID: task.ID.String()})
	require.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPCHealthCheck(t *testing.T) {
	svc := startGRPCService(t)

	resp, err := svc.HealthCheck(context.Background(), &HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
}
