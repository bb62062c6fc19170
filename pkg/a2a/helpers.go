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
	"strings"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// HELPERS - constructors and content extraction
// ============================================================================

// NewTextMessage builds a user message with a single text part. Zero-valued
// ids are assigned by the manager on submission.
func NewTextMessage(role Role, text string) Message {
	return Message{
		MessageID: uuid.New(),
		Kind:      KindMessage,
		Role:      role,
		Parts:     []Part{NewTextPart(text)},
	}
}

// NewAgentMessage builds an agent message carrying the given parts, bound to
// a task and its context.
func NewAgentMessage(taskID, contextID uuid.UUID, parts ...Part) Message {
	return Message{
		MessageID: uuid.New(),
		ContextID: contextID,
		TaskID:    taskID,
		Kind:      KindMessage,
		Role:      RoleAgent,
		Parts:     parts,
	}
}

// NewTextPart builds a text part.
func NewTextPart(text string) Part {
	return Part{Kind: PartKindText, Text: text}
}

// NewDataPart builds a data part with the given mime type.
func NewDataPart(data any, mimeType string) Part {
	return Part{Kind: PartKindData, Data: data, MimeType: mimeType}
}

// NewFilePart builds a file part.
func NewFilePart(file FileContent) Part {
	return Part{Kind: PartKindFile, File: &file}
}

// ExtractText concatenates the text parts of a message, newline separated.
// Non-text parts are skipped.
func ExtractText(msg Message) string {
	var texts []string
	for _, p := range msg.Parts {
		if p.Kind == PartKindText && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// HistoryText renders a task history as "role: text" lines, one per message
// with textual content. Used to hand conversational context to handlers.
func HistoryText(history []Message) string {
	var lines []string
	for _, m := range history {
		if text := ExtractText(m); text != "" {
			lines = append(lines, string(m.Role)+": "+text)
		}
	}
	return strings.Join(lines, "\n")
}

// NewTask builds a freshly submitted task owned by the given context, seeded
// with the triggering message as the first history entry.
func NewTask(id, contextID uuid.UUID, msg Message) Task {
	return Task{
		ID:        id,
		ContextID: contextID,
		Kind:      KindTask,
		Status: TaskStatus{
			State:     TaskStateSubmitted,
			Timestamp: time.Now().UTC(),
		},
		History: []Message{msg},
	}
}
