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

// Package transport exposes the task manager over the two protocol
// surfaces: JSON-RPC 2.0 with SSE streaming on HTTP, and gRPC.
package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/getbindu/bindu-go/pkg/a2a"
	"github.com/getbindu/bindu-go/pkg/logger"
	"github.com/getbindu/bindu-go/pkg/manager"
	"github.com/getbindu/bindu-go/pkg/storage"
)

// JSONRPCHandler serves the A2A JSON-RPC surface on POST /.
type JSONRPCHandler struct {
	mgr *manager.TaskManager
	log *slog.Logger
}

// NewJSONRPCHandler creates the JSON-RPC handler.
func NewJSONRPCHandler(mgr *manager.TaskManager) *JSONRPCHandler {
	return &JSONRPCHandler{
		mgr: mgr,
		log: logger.Component("transport.jsonrpc"),
	}
}

func (h *JSONRPCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeResponse(w, a2a.NewErrorResponse(nil, a2a.CodeParseError, "failed to read request body"))
		return
	}

	var req a2a.JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeResponse(w, a2a.NewErrorResponse(nil, a2a.CodeParseError, "parse error"))
		return
	}
	if req.JSONRPC != a2a.JSONRPCVersion || req.Method == "" {
		h.writeResponse(w, a2a.NewErrorResponse(req.ID, a2a.CodeInvalidRequest, "invalid request"))
		return
	}

	if req.Method == a2a.MethodMessageStream {
		h.handleStream(w, r, req)
		return
	}

	result, rpcErr := h.dispatch(r, req)
	if rpcErr != nil {
		h.writeResponse(w, &a2a.JSONRPCResponse{JSONRPC: a2a.JSONRPCVersion, ID: req.ID, Error: rpcErr})
		return
	}
	h.writeResponse(w, a2a.NewResponse(req.ID, result))
}

// dispatch routes a non-streaming method to the manager.
func (h *JSONRPCHandler) dispatch(r *http.Request, req a2a.JSONRPCRequest) (any, *a2a.JSONRPCError) {
	ctx := r.Context()

	switch req.Method {
	case a2a.MethodMessageSend:
		var params a2a.MessageSendParams
		if err := unmarshalParams(req.Params, &params); err != nil {
			return nil, err
		}
		task, err := h.mgr.SendMessage(ctx, params.Message)
		if err != nil {
			return nil, toRPCError(err)
		}
		return task, nil

	case a2a.MethodTasksGet:
		var params a2a.TaskIDParams
		if err := unmarshalParams(req.Params, &params); err != nil {
			return nil, err
		}
		task, err := h.mgr.GetTask(ctx, params.TaskID)
		if err != nil {
			return nil, toRPCError(err)
		}
		return task, nil

	case a2a.MethodTasksList:
		var params a2a.TaskListParams
		if len(req.Params) > 0 {
			if err := unmarshalParams(req.Params, &params); err != nil {
				return nil, err
			}
		}
		tasks, err := h.mgr.ListTasks(ctx, storage.TaskFilter{
			ContextID: params.ContextID,
			State:     params.State,
			Limit:     params.Limit,
		})
		if err != nil {
			return nil, toRPCError(err)
		}
		if tasks == nil {
			tasks = []a2a.Task{}
		}
		return tasks, nil

	case a2a.MethodTasksCancel:
		var params a2a.TaskIDParams
		if err := unmarshalParams(req.Params, &params); err != nil {
			return nil, err
		}
		task, err := h.mgr.CancelTask(ctx, params.TaskID)
		if err != nil {
			return nil, toRPCError(err)
		}
		return task, nil

	case a2a.MethodTasksFeedback:
		var params a2a.TaskFeedbackParams
		if err := unmarshalParams(req.Params, &params); err != nil {
			return nil, err
		}
		err := h.mgr.TaskFeedback(ctx, storage.Feedback{
			TaskID:   params.TaskID,
			Rating:   params.Rating,
			Feedback: params.Feedback,
			Metadata: params.Metadata,
		})
		if err != nil {
			return nil, toRPCError(err)
		}
		return map[string]any{"taskId": params.TaskID, "accepted": true}, nil

	case a2a.MethodContextsList:
		contexts, err := h.mgr.ListContexts(ctx)
		if err != nil {
			return nil, toRPCError(err)
		}
		if contexts == nil {
			contexts = []a2a.ContextSummary{}
		}
		return contexts, nil

	case a2a.MethodContextsClear:
		var params a2a.ContextClearParams
		if err := unmarshalParams(req.Params, &params); err != nil {
			return nil, err
		}
		if err := h.mgr.ClearContext(ctx, params.ContextID); err != nil {
			return nil, toRPCError(err)
		}
		return map[string]any{"contextId": params.ContextID, "cleared": true}, nil

	case a2a.MethodPushSet:
		var params a2a.TaskPushNotificationConfig
		if err := unmarshalParams(req.Params, &params); err != nil {
			return nil, err
		}
		set, err := h.mgr.SetPushConfig(ctx, params.TaskID, params.Config)
		if err != nil {
			return nil, toRPCError(err)
		}
		return set, nil

	case a2a.MethodPushGet:
		var params a2a.PushConfigGetParams
		if err := unmarshalParams(req.Params, &params); err != nil {
			return nil, err
		}
		cfg, err := h.mgr.GetPushConfig(ctx, params.TaskID, params.ConfigID)
		if err != nil {
			return nil, toRPCError(err)
		}
		return cfg, nil

	case a2a.MethodPushList:
		var params a2a.TaskIDParams
		if err := unmarshalParams(req.Params, &params); err != nil {
			return nil, err
		}
		configs, err := h.mgr.ListPushConfigs(ctx, params.TaskID)
		if err != nil {
			return nil, toRPCError(err)
		}
		return configs, nil

	case a2a.MethodPushDelete:
		var params a2a.PushConfigGetParams
		if err := unmarshalParams(req.Params, &params); err != nil {
			return nil, err
		}
		if err := h.mgr.DeletePushConfig(ctx, params.TaskID, params.ConfigID); err != nil {
			return nil, toRPCError(err)
		}
		return map[string]any{"taskId": params.TaskID, "deleted": true}, nil

	default:
		return nil, &a2a.JSONRPCError{Code: a2a.CodeMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)}
	}
}

// handleStream serves message/stream as Server-Sent Events. Each event's
// data line is the serialized TaskEvent; the stream ends after the final
// event.
func (h *JSONRPCHandler) handleStream(w http.ResponseWriter, r *http.Request, req a2a.JSONRPCRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeResponse(w, a2a.NewErrorResponse(req.ID, a2a.CodeInternal, "streaming not supported"))
		return
	}

	var params a2a.MessageSendParams
	if rpcErr := unmarshalParams(req.Params, &params); rpcErr != nil {
		h.writeResponse(w, &a2a.JSONRPCResponse{JSONRPC: a2a.JSONRPCVersion, ID: req.ID, Error: rpcErr})
		return
	}

	taskID, events, detach, err := h.mgr.StreamMessage(r.Context(), params.Message)
	if err != nil {
		h.writeResponse(w, &a2a.JSONRPCResponse{JSONRPC: a2a.JSONRPCVersion, ID: req.ID, Error: toRPCError(err)})
		return
	}
	defer detach()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log := h.log.With("taskId", taskID)
	for {
		select {
		case <-r.Context().Done():
			log.Debug("stream client disconnected")
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				log.Error("failed to marshal stream event", "error", err)
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
			if event.IsFinal() {
				return
			}
		}
	}
}

func (h *JSONRPCHandler) writeResponse(w http.ResponseWriter, resp *a2a.JSONRPCResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}

func unmarshalParams(raw json.RawMessage, into any) *a2a.JSONRPCError {
	if len(raw) == 0 {
		return &a2a.JSONRPCError{Code: a2a.CodeInvalidParams, Message: "params are required"}
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return &a2a.JSONRPCError{Code: a2a.CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}

func toRPCError(err error) *a2a.JSONRPCError {
	perr := a2a.AsError(err)
	return &a2a.JSONRPCError{Code: perr.JSONRPCCode(), Message: perr.Message}
}
