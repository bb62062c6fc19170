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

// Package worker executes user handlers against task histories and turns
// their outcomes into persisted, published task events.
package worker

import (
	"context"

	"github.com/google/uuid"

	"github.com/getbindu/bindu-go/pkg/a2a"
)

// ChatMessage is one prior conversational turn handed to a handler.
type ChatMessage struct {
	Role    a2a.Role
	Content string
}

// Request is the handler's view of a task run: the latest user input plus
// the accumulated conversation.
type Request struct {
	TaskID    uuid.UUID
	ContextID uuid.UUID
	Input     string
	History   []ChatMessage
	Message   a2a.Message
}

// Handler is the user-supplied agent logic. It returns exactly one Result or
// an error; a canceled run context must be honored by returning ctx.Err().
type Handler interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) (*Result, error)

func (f HandlerFunc) Run(ctx context.Context, req Request) (*Result, error) { return f(ctx, req) }

type resultKind int

const (
	resultParts resultKind = iota
	resultStream
	resultInputRequired
)

// Result is the outcome of one handler run. Build it with Text, Data, Parts,
// Stream or InputRequired.
type Result struct {
	kind   resultKind
	parts  []a2a.Part
	stream <-chan []a2a.Part
	prompt string
}

// Text returns a plain text result.
func Text(text string) *Result {
	return &Result{kind: resultParts, parts: []a2a.Part{a2a.NewTextPart(text)}}
}

// Data returns a structured data result.
func Data(data any, mimeType string) *Result {
	return &Result{kind: resultParts, parts: []a2a.Part{a2a.NewDataPart(data, mimeType)}}
}

// Parts returns a result with explicit parts.
func Parts(parts ...a2a.Part) *Result {
	return &Result{kind: resultParts, parts: parts}
}

// Stream returns a chunked result. The handler closes the channel when the
// stream is complete; each element becomes one artifact chunk.
func Stream(ch <-chan []a2a.Part) *Result {
	return &Result{kind: resultStream, stream: ch}
}

// InputRequired halts the run and asks the client for more input with the
// given prompt.
func InputRequired(prompt string) *Result {
	return &Result{kind: resultInputRequired, prompt: prompt}
}
