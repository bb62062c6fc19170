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
	"log/slog"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/getbindu/bindu-go/pkg/a2a"
	"github.com/getbindu/bindu-go/pkg/logger"
	"github.com/getbindu/bindu-go/pkg/manager"
	"github.com/getbindu/bindu-go/pkg/storage"
)

// a2aServiceName is the fully qualified gRPC service name.
const a2aServiceName = "a2a.v1.A2AService"

// ============================================================================
// REQUEST / RESPONSE MESSAGES
// Ids travel as canonical 36-char uuid text; bodies reuse the shared JSON
// types through the JSON codec.
// ============================================================================

type SendMessageRequest struct {
	Message a2a.Message `json:"message"`
}

type GetTaskRequest struct {
	TaskID string `json:"taskId"`
}

type ListTasksRequest struct {
	ContextID string `json:"contextId,omitempty"`
	State     string `json:"state,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type ListTasksResponse struct {
	Tasks []a2a.Task `json:"tasks"`
}

type CancelTaskRequest struct {
	TaskID string `json:"taskId"`
}

type TaskFeedbackRequest struct {
	TaskID   string            `json:"taskId"`
	Rating   float64           `json:"rating"`
	Feedback string            `json:"feedback,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type TaskFeedbackResponse struct {
	TaskID   string `json:"taskId"`
	Accepted bool   `json:"accepted"`
}

type ListContextsRequest struct{}

type ListContextsResponse struct {
	Contexts []a2a.ContextSummary `json:"contexts"`
}

type ClearContextRequest struct {
	ContextID string `json:"contextId"`
}

type ClearContextResponse struct {
	ContextID string `json:"contextId"`
	Cleared   bool   `json:"cleared"`
}

type SetTaskPushNotificationRequest struct {
	TaskID string                     `json:"taskId"`
	Config a2a.PushNotificationConfig `json:"pushNotificationConfig"`
}

type GetTaskPushNotificationRequest struct {
	TaskID   string `json:"taskId"`
	ConfigID string `json:"pushNotificationConfigId,omitempty"`
}

type ListTaskPushNotificationsRequest struct {
	TaskID string `json:"taskId"`
}

type ListTaskPushNotificationsResponse struct {
	Configs []a2a.TaskPushNotificationConfig `json:"configs"`
}

type DeleteTaskPushNotificationRequest struct {
	TaskID   string `json:"taskId"`
	ConfigID string `json:"pushNotificationConfigId"`
}

type DeleteTaskPushNotificationResponse struct {
	TaskID  string `json:"taskId"`
	Deleted bool   `json:"deleted"`
}

type HealthCheckRequest struct{}

type HealthCheckResponse struct {
	Status string `json:"status"`
}

// ============================================================================
// SERVICE
// ============================================================================

// GRPCService exposes the task manager as a2a.v1.A2AService. Both surfaces
// go through the same manager, so the semantics match the JSON-RPC surface
// method for method.
type GRPCService struct {
	mgr *manager.TaskManager
	log *slog.Logger
}

// NewGRPCService creates the gRPC service implementation.
func NewGRPCService(mgr *manager.TaskManager) *GRPCService {
	return &GRPCService{
		mgr: mgr,
		log: logger.Component("transport.grpc"),
	}
}

func (s *GRPCService) SendMessage(ctx context.Context, req *SendMessageRequest) (*a2a.Task, error) {
	task, err := s.mgr.SendMessage(ctx, req.Message)
	if err != nil {
		return nil, toStatusError(err)
	}
	return task, nil
}

// StreamMessage streams the run's events to the client, closing the stream
// after the final event.
func (s *GRPCService) StreamMessage(req *SendMessageRequest, stream grpc.ServerStream) error {
	ctx := stream.Context()

	taskID, events, detach, err := s.mgr.StreamMessage(ctx, req.Message)
	if err != nil {
		return toStatusError(err)
	}
	defer detach()

	log := s.log.With("taskId", taskID)
	for {
		select {
		case <-ctx.Done():
			log.Debug("stream client disconnected")
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := stream.SendMsg(event); err != nil {
				return err
			}
			if event.IsFinal() {
				return nil
			}
		}
	}
}

func (s *GRPCService) GetTask(ctx context.Context, req *GetTaskRequest) (*a2a.Task, error) {
	id, err := parseID(req.TaskID, "taskId")
	if err != nil {
		return nil, err
	}
	task, err := s.mgr.GetTask(ctx, id)
	if err != nil {
		return nil, toStatusError(err)
	}
	return task, nil
}

func (s *GRPCService) ListTasks(ctx context.Context, req *ListTasksRequest) (*ListTasksResponse, error) {
	filter := storage.TaskFilter{Limit: req.Limit}
	if req.ContextID != "" {
		id, err := parseID(req.ContextID, "contextId")
		if err != nil {
			return nil, err
		}
		filter.ContextID = &id
	}
	if req.State != "" {
		state := a2a.TaskState(req.State)
		filter.State = &state
	}

	tasks, err := s.mgr.ListTasks(ctx, filter)
	if err != nil {
		return nil, toStatusError(err)
	}
	if tasks == nil {
		tasks = []a2a.Task{}
	}
	return &ListTasksResponse{Tasks: tasks}, nil
}

func (s *GRPCService) CancelTask(ctx context.Context, req *CancelTaskRequest) (*a2a.Task, error) {
	id, err := parseID(req.TaskID, "taskId")
	if err != nil {
		return nil, err
	}
	task, err := s.mgr.CancelTask(ctx, id)
	if err != nil {
		return nil, toStatusError(err)
	}
	return task, nil
}

func (s *GRPCService) TaskFeedback(ctx context.Context, req *TaskFeedbackRequest) (*TaskFeedbackResponse, error) {
	id, err := parseID(req.TaskID, "taskId")
	if err != nil {
		return nil, err
	}
	err = s.mgr.TaskFeedback(ctx, storage.Feedback{
		TaskID:   id,
		Rating:   req.Rating,
		Feedback: req.Feedback,
		Metadata: req.Metadata,
	})
	if err != nil {
		return nil, toStatusError(err)
	}
	return &TaskFeedbackResponse{TaskID: req.TaskID, Accepted: true}, nil
}

func (s *GRPCService) ListContexts(ctx context.Context, req *ListContextsRequest) (*ListContextsResponse, error) {
	contexts, err := s.mgr.ListContexts(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}
	if contexts == nil {
		contexts = []a2a.ContextSummary{}
	}
	return &ListContextsResponse{Contexts: contexts}, nil
}

func (s *GRPCService) ClearContext(ctx context.Context, req *ClearContextRequest) (*ClearContextResponse, error) {
	id, err := parseID(req.ContextID, "contextId")
	if err != nil {
		return nil, err
	}
	if err := s.mgr.ClearContext(ctx, id); err != nil {
		return nil, toStatusError(err)
	}
	return &ClearContextResponse{ContextID: req.ContextID, Cleared: true}, nil
}

func (s *GRPCService) SetTaskPushNotification(ctx context.Context, req *SetTaskPushNotificationRequest) (*a2a.TaskPushNotificationConfig, error) {
	id, err := parseID(req.TaskID, "taskId")
	if err != nil {
		return nil, err
	}
	set, err := s.mgr.SetPushConfig(ctx, id, req.Config)
	if err != nil {
		return nil, toStatusError(err)
	}
	return set, nil
}

func (s *GRPCService) GetTaskPushNotification(ctx context.Context, req *GetTaskPushNotificationRequest) (*a2a.TaskPushNotificationConfig, error) {
	taskID, err := parseID(req.TaskID, "taskId")
	if err != nil {
		return nil, err
	}
	configID := uuid.Nil
	if req.ConfigID != "" {
		if configID, err = parseID(req.ConfigID, "pushNotificationConfigId"); err != nil {
			return nil, err
		}
	}
	cfg, err := s.mgr.GetPushConfig(ctx, taskID, configID)
	if err != nil {
		return nil, toStatusError(err)
	}
	return cfg, nil
}

func (s *GRPCService) ListTaskPushNotifications(ctx context.Context, req *ListTaskPushNotificationsRequest) (*ListTaskPushNotificationsResponse, error) {
	taskID, err := parseID(req.TaskID, "taskId")
	if err != nil {
		return nil, err
	}
	configs, err := s.mgr.ListPushConfigs(ctx, taskID)
	if err != nil {
		return nil, toStatusError(err)
	}
	return &ListTaskPushNotificationsResponse{Configs: configs}, nil
}

func (s *GRPCService) DeleteTaskPushNotification(ctx context.Context, req *DeleteTaskPushNotificationRequest) (*DeleteTaskPushNotificationResponse, error) {
	taskID, err := parseID(req.TaskID, "taskId")
	if err != nil {
		return nil, err
	}
	configID, err := parseID(req.ConfigID, "pushNotificationConfigId")
	if err != nil {
		return nil, err
	}
	if err := s.mgr.DeletePushConfig(ctx, taskID, configID); err != nil {
		return nil, toStatusError(err)
	}
	return &DeleteTaskPushNotificationResponse{TaskID: req.TaskID, Deleted: true}, nil
}

func (s *GRPCService) HealthCheck(ctx context.Context, req *HealthCheckRequest) (*HealthCheckResponse, error) {
	if !s.mgr.IsRunning() {
		return &HealthCheckResponse{Status: "unavailable"}, nil
	}
	return &HealthCheckResponse{Status: "ok"}, nil
}

func parseID(value, field string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "%s is required", field)
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s: %v", field, err)
	}
	return id, nil
}

func toStatusError(err error) error {
	perr := a2a.AsError(err)
	return status.Error(perr.GRPCCode(), perr.Message)
}
