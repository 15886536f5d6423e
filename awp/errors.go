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

package awp

import "errors"

// Error taxonomy shared by every transport binding. Each binding maps these
// sentinels onto its own wire shape without changing their meaning.
var (
	// ErrParseError indicates the server received a payload that was not well-formed.
	ErrParseError = errors.New("parse error")

	// ErrInvalidRequest indicates a well-formed payload that is not a valid request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrMethodNotFound indicates the requested operation does not exist.
	ErrMethodNotFound = errors.New("method not found")

	// ErrInvalidParams indicates the operation parameters were invalid, e.g. a
	// missing required field.
	ErrInvalidParams = errors.New("invalid params")

	// ErrInternal indicates an unexpected server-side error.
	ErrInternal = errors.New("internal error")

	// ErrTransient indicates a store or queue infrastructure failure. Unlike
	// protocol errors the operation may succeed if retried.
	ErrTransient = errors.New("transient infrastructure error")

	// ErrTaskNotFound indicates no task exists with the provided ID.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidReference indicates a referenced task ID does not resolve to an
	// existing task.
	ErrInvalidReference = errors.New("invalid task reference")

	// ErrTaskAlreadyTerminal indicates an attempt to continue a task that has
	// already reached a terminal state.
	ErrTaskAlreadyTerminal = errors.New("task is already terminal")

	// ErrTaskNotCancelable indicates the task is in a state where cancellation
	// is meaningless.
	ErrTaskNotCancelable = errors.New("task cannot be canceled")

	// ErrInvalidStateTransition indicates an executor attempted a lifecycle
	// transition not permitted by the state graph.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrPushNotificationNotSupported indicates the agent does not support
	// webhook notifications.
	ErrPushNotificationNotSupported = errors.New("push notification not supported")

	// ErrUnsupportedOperation indicates the requested operation is not
	// supported by the agent.
	ErrUnsupportedOperation = errors.New("this operation is not supported")

	// ErrUnsupportedContentType indicates the requested content types are
	// incompatible with the agent's capabilities.
	ErrUnsupportedContentType = errors.New("incompatible content types")

	// ErrInvalidAgentResponse indicates the agent produced a response that does
	// not conform to the protocol for the current operation.
	ErrInvalidAgentResponse = errors.New("invalid agent response")

	// ErrVersionNotSupported indicates the protocol version requested via the
	// AWP-Version service parameter is not supported by the agent.
	ErrVersionNotSupported = errors.New("this version is not supported")

	// ErrUnauthenticated indicates the request lacks valid credentials.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUnauthorized indicates the caller may not perform the operation.
	ErrUnauthorized = errors.New("permission denied")
)

// Error controls the message and structured details returned to clients.
type Error struct {
	// Err is the underlying cause, used for transport-specific code selection.
	Err error
	// Message is the human-readable description returned to clients.
	Message string
	// Details carries additional structured information about the error.
	Details map[string]any
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "internal error"
}

// Unwrap provides access to the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a client-facing message.
func NewError(err error, message string) *Error {
	return &Error{Err: err, Message: message}
}

// WithDetails attaches structured data to the error.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}
