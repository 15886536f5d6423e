// Copyright 2025 The AWP Authors
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

// Package jsonrpc implements the JSON-RPC 2.0 wire shape of the protocol.
package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/awprotocol/awp-go/awp"
)

// JSON-RPC 2.0 protocol constants
const (
	Version = "2.0"

	// HTTP headers
	ContentJSON = "application/json"

	// JSON-RPC method names
	MethodMessageSend          = "SendMessage"
	MethodMessageStream        = "SendStreamingMessage"
	MethodTasksGet             = "GetTask"
	MethodTasksList            = "ListTasks"
	MethodTasksCancel          = "CancelTask"
	MethodTasksResubscribe     = "SubscribeToTask"
	MethodPushConfigGet        = "GetTaskPushConfig"
	MethodPushConfigCreate     = "CreateTaskPushConfig"
	MethodPushConfigList       = "ListTaskPushConfigs"
	MethodPushConfigDelete     = "DeleteTaskPushConfig"
	MethodGetExtendedAgentCard = "GetExtendedAgentCard"
)

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("jsonrpc error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

var codeToError = map[int]error{
	-32700: awp.ErrParseError,
	-32600: awp.ErrInvalidRequest,
	-32601: awp.ErrMethodNotFound,
	-32602: awp.ErrInvalidParams,
	-32603: awp.ErrInternal,
	-32001: awp.ErrTaskNotFound,
	-32002: awp.ErrTaskNotCancelable,
	-32003: awp.ErrPushNotificationNotSupported,
	-32004: awp.ErrUnsupportedOperation,
	-32005: awp.ErrUnsupportedContentType,
	-32006: awp.ErrInvalidAgentResponse,
	-32008: awp.ErrInvalidReference,
	-32009: awp.ErrTaskAlreadyTerminal,
	-32010: awp.ErrTransient,
	-32011: awp.ErrVersionNotSupported,
	-31401: awp.ErrUnauthenticated,
	-31403: awp.ErrUnauthorized,
}

// ToProtocolError converts a JSON-RPC error to an [awp.Error].
func (e *Error) ToProtocolError() error {
	err, ok := codeToError[e.Code]
	if !ok {
		err = awp.ErrInternal
	}

	msg := e.Message
	if len(msg) == 0 {
		msg = err.Error()
	}

	result := awp.NewError(err, msg)
	if len(e.Data) > 0 {
		result = result.WithDetails(e.Data)
	}
	return result
}

// ToJSONRPCError converts an error to a JSON-RPC [Error].
func ToJSONRPCError(err error) *Error {
	jsonrpcErr := &Error{}
	if errors.As(err, &jsonrpcErr) {
		return jsonrpcErr
	}

	var protoErr *awp.Error
	if errors.As(err, &protoErr) {
		code := -32603
		for c, target := range codeToError {
			if errors.Is(protoErr.Err, target) {
				code = c
				break
			}
		}
		return &Error{
			Code:    code,
			Message: protoErr.Error(),
			Data:    protoErr.Details,
		}
	}

	for code, sentinel := range codeToError {
		if errors.Is(err, sentinel) {
			return &Error{
				Code:    code,
				Message: sentinel.Error(),
				Data:    map[string]any{"error": err.Error()},
			}
		}
	}
	return &Error{
		Code:    -32603,
		Message: awp.ErrInternal.Error(),
		Data:    map[string]any{"error": err.Error()},
	}
}

// IsValidID checks if the given ID is valid for a JSON-RPC request.
func IsValidID(id any) bool {
	if id == nil {
		return true
	}
	switch id.(type) {
	case string, float64:
		return true
	default:
		return false
	}
}

// ServerRequest represents a JSON-RPC 2.0 server request.
type ServerRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id"`
}

// ServerResponse represents a JSON-RPC 2.0 server response.
type ServerResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// ClientRequest represents a JSON-RPC 2.0 client request.
type ClientRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      string `json:"id"`
}

// ClientResponse represents a JSON-RPC 2.0 client response.
type ClientResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}
