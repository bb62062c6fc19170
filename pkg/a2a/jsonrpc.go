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

package a2a

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ============================================================================
// JSON-RPC 2.0 ENVELOPE
// ============================================================================

// JSON-RPC method names served on POST /.
const (
	MethodMessageSend   = "message/send"
	MethodMessageStream = "message/stream"
	MethodTasksGet      = "tasks/get"
	MethodTasksList     = "tasks/list"
	MethodTasksCancel   = "tasks/cancel"
	MethodTasksFeedback = "tasks/feedback"
	MethodContextsList  = "contexts/list"
	MethodContextsClear = "contexts/clear"
	MethodPushSet       = "tasks/pushNotification/set"
	MethodPushGet       = "tasks/pushNotification/get"
	MethodPushList      = "tasks/pushNotificationConfig/list"
	MethodPushDelete    = "tasks/pushNotificationConfig/delete"
	JSONRPCVersion      = "2.0"
)

// JSONRPCRequest is a JSON-RPC 2.0 request. ID is kept raw so string, number
// and null ids all round-trip unchanged.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse is a JSON-RPC 2.0 response. Exactly one of Result and Error
// is set.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError is the error member of a JSON-RPC response.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewResponse builds a success response for the given request id.
func NewResponse(id json.RawMessage, result any) *JSONRPCResponse {
	return &JSONRPCResponse{JSONRPC: JSONRPCVersion, ID: id, Result: result}
}

// NewErrorResponse builds an error response for the given request id.
func NewErrorResponse(id json.RawMessage, code int, message string) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	}
}

// ============================================================================
// METHOD PARAMETERS
// ============================================================================

// MessageSendParams carries the message for message/send and message/stream.
type MessageSendParams struct {
	Message Message `json:"message"`
}

// TaskIDParams addresses a single task. Both "taskId" and the legacy "id" key
// are accepted on the wire.
type TaskIDParams struct {
	TaskID uuid.UUID `json:"taskId"`
}

// UnmarshalJSON accepts {"taskId": ...} or {"id": ...}.
func (p *TaskIDParams) UnmarshalJSON(data []byte) error {
	var raw struct {
		TaskID *uuid.UUID `json:"taskId"`
		ID     *uuid.UUID `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.TaskID != nil:
		p.TaskID = *raw.TaskID
	case raw.ID != nil:
		p.TaskID = *raw.ID
	}
	return nil
}

// TaskListParams filters tasks/list.
type TaskListParams struct {
	ContextID *uuid.UUID `json:"contextId,omitempty"`
	State     *TaskState `json:"state,omitempty"`
	Limit     int        `json:"limit,omitempty"`
}

// TaskFeedbackParams attaches client feedback to a task.
type TaskFeedbackParams struct {
	TaskID   uuid.UUID         `json:"taskId"`
	Rating   float64           `json:"rating"`
	Feedback string            `json:"feedback,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ContextClearParams addresses a context for contexts/clear.
type ContextClearParams struct {
	ContextID uuid.UUID `json:"contextId"`
}

// PushConfigGetParams addresses one push config of a task. ConfigID empty
// means the first registered config.
type PushConfigGetParams struct {
	TaskID   uuid.UUID `json:"taskId"`
	ConfigID uuid.UUID `json:"pushNotificationConfigId,omitempty"`
}
