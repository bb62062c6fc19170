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
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

// ============================================================================
// ERROR TAXONOMY
// Every fault the core surfaces belongs to one of these kinds; the kind
// determines both the JSON-RPC error code and the gRPC status code.
// ============================================================================

// ErrorKind classifies protocol-level failures.
type ErrorKind string

const (
	KindInvalidArgument    ErrorKind = "invalid-argument"
	KindIdentifierMismatch ErrorKind = "identifier-mismatch"
	KindNotFound           ErrorKind = "not-found"
	KindFailedPrecondition ErrorKind = "failed-precondition"
	KindUnauthenticated    ErrorKind = "unauthenticated"
	KindInternal           ErrorKind = "internal"
)

// JSON-RPC error codes used on the wire.
const (
	CodeParseError      = -32700
	CodeInvalidRequest  = -32600
	CodeMethodNotFound  = -32601
	CodeInvalidParams   = -32602
	CodeInternal        = -32000
	CodeTaskNotFound    = -32001
	CodeUnauthenticated = -32003
	CodePrecondition    = -32005
)

// Error is a classified protocol error.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

// JSONRPCCode maps the error kind to its JSON-RPC error code.
func (e *Error) JSONRPCCode() int {
	switch e.Kind {
	case KindInvalidArgument:
		return CodeInvalidParams
	case KindIdentifierMismatch, KindFailedPrecondition:
		return CodePrecondition
	case KindNotFound:
		return CodeTaskNotFound
	case KindUnauthenticated:
		return CodeUnauthenticated
	default:
		return CodeInternal
	}
}

// GRPCCode maps the error kind to its gRPC status code. Identifier mismatch
// and all other precondition failures collapse to FAILED_PRECONDITION.
func (e *Error) GRPCCode() codes.Code {
	switch e.Kind {
	case KindInvalidArgument:
		return codes.InvalidArgument
	case KindIdentifierMismatch, KindFailedPrecondition:
		return codes.FailedPrecondition
	case KindNotFound:
		return codes.NotFound
	case KindUnauthenticated:
		return codes.Unauthenticated
	default:
		return codes.Internal
	}
}

// Errorf builds a classified error.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts an *Error from err, wrapping unclassified errors as
// internal.
func AsError(err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return &Error{Kind: KindInternal, Message: err.Error()}
}

// Shared sentinel errors.
var (
	ErrTaskNotFound         = &Error{Kind: KindNotFound, Message: "task not found"}
	ErrContextNotFound      = &Error{Kind: KindNotFound, Message: "context not found"}
	ErrConfigNotFound       = &Error{Kind: KindNotFound, Message: "push notification config not found"}
	ErrIdentifierMismatch   = &Error{Kind: KindIdentifierMismatch, Message: "identifier mismatch"}
	ErrTaskTerminal         = &Error{Kind: KindFailedPrecondition, Message: "task is in a terminal state"}
	ErrTaskNotInterruptible = &Error{
		Kind:    KindFailedPrecondition,
		Message: "task is not in input-required state",
	}
)
