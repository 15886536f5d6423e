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

// Package rest provides the path layout and error shape of the HTTP+JSON binding.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/awprotocol/awp-go/awp"
)

// MakeListTasksPath returns the REST path for listing tasks.
func MakeListTasksPath() string {
	return "/tasks"
}

// MakeSendMessagePath returns the REST path for sending a message.
func MakeSendMessagePath() string {
	return "/message:send"
}

// MakeStreamMessagePath returns the REST path for streaming messages.
func MakeStreamMessagePath() string {
	return "/message:stream"
}

// MakeGetExtendedAgentCardPath returns the REST path for getting an extended agent card.
func MakeGetExtendedAgentCardPath() string {
	return "/extendedAgentCard"
}

// MakeGetTaskPath returns the REST path for getting a specific task.
func MakeGetTaskPath(taskID string) string {
	return "/tasks/" + taskID
}

// MakeCancelTaskPath returns the REST path for cancelling a task.
func MakeCancelTaskPath(taskID string) string {
	return "/tasks/" + taskID + ":cancel"
}

// MakeSubscribeTaskPath returns the REST path for subscribing to task updates.
func MakeSubscribeTaskPath(taskID string) string {
	return "/tasks/" + taskID + ":subscribe"
}

// MakeCreatePushConfigPath returns the REST path for creating a push notification config for a task.
func MakeCreatePushConfigPath(taskID string) string {
	return "/tasks/" + taskID + "/pushConfigs"
}

// MakeGetPushConfigPath returns the REST path for getting a specific push notification config for a task.
func MakeGetPushConfigPath(taskID, configID string) string {
	return "/tasks/" + taskID + "/pushConfigs/" + configID
}

// MakeListPushConfigsPath returns the REST path for listing push notification configs for a task.
func MakeListPushConfigsPath(taskID string) string {
	return "/tasks/" + taskID + "/pushConfigs"
}

// MakeDeletePushConfigPath returns the REST path for deleting a push notification config for a task.
func MakeDeletePushConfigPath(taskID, configID string) string {
	return "/tasks/" + taskID + "/pushConfigs/" + configID
}

// Error represents a problem detail as defined in RFC 7807.
type Error struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail"`
	TaskID    string `json:"taskId,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

type errorDetails struct {
	status int
	uri    string
	title  string
}

const errURIBase = "https://awprotocol.org/errors/"

var errToDetails = map[error]errorDetails{
	awp.ErrTaskNotFound: {
		status: http.StatusNotFound,
		uri:    errURIBase + "task-not-found",
		title:  "Task Not Found",
	},
	awp.ErrInvalidReference: {
		status: http.StatusBadRequest,
		uri:    errURIBase + "invalid-task-reference",
		title:  "Invalid Task Reference",
	},
	awp.ErrTaskNotCancelable: {
		status: http.StatusConflict,
		uri:    errURIBase + "task-not-cancelable",
		title:  "Task Not Cancelable",
	},
	awp.ErrTaskAlreadyTerminal: {
		status: http.StatusConflict,
		uri:    errURIBase + "task-already-terminal",
		title:  "Task Already Terminal",
	},
	awp.ErrPushNotificationNotSupported: {
		status: http.StatusBadRequest,
		uri:    errURIBase + "push-notification-not-supported",
		title:  "Push Notification Not Supported",
	},
	awp.ErrUnsupportedOperation: {
		status: http.StatusBadRequest,
		uri:    errURIBase + "unsupported-operation",
		title:  "Unsupported Operation",
	},
	awp.ErrUnsupportedContentType: {
		status: http.StatusUnsupportedMediaType,
		uri:    errURIBase + "content-type-not-supported",
		title:  "Content Type Not Supported",
	},
	awp.ErrInvalidAgentResponse: {
		status: http.StatusBadGateway,
		uri:    errURIBase + "invalid-agent-response",
		title:  "Invalid Agent Response",
	},
	awp.ErrVersionNotSupported: {
		status: http.StatusBadRequest,
		uri:    errURIBase + "version-not-supported",
		title:  "Version Not Supported",
	},
	awp.ErrParseError: {
		status: http.StatusBadRequest,
		uri:    errURIBase + "parse-error",
		title:  "Parse Error",
	},
	awp.ErrInvalidRequest: {
		status: http.StatusBadRequest,
		uri:    errURIBase + "invalid-request",
		title:  "Invalid Request",
	},
	awp.ErrInvalidParams: {
		status: http.StatusBadRequest,
		uri:    errURIBase + "invalid-params",
		title:  "Invalid Params",
	},
	awp.ErrMethodNotFound: {
		status: http.StatusNotFound,
		uri:    errURIBase + "method-not-found",
		title:  "Method Not Found",
	},
	awp.ErrUnauthenticated: {
		status: http.StatusUnauthorized,
		uri:    errURIBase + "unauthenticated",
		title:  "Unauthenticated",
	},
	awp.ErrUnauthorized: {
		status: http.StatusForbidden,
		uri:    errURIBase + "permission-denied",
		title:  "Permission Denied",
	},
	awp.ErrTransient: {
		status: http.StatusServiceUnavailable,
		uri:    errURIBase + "transient-error",
		title:  "Transient Error",
	},
}

// ToProtocolError maps an HTTP error response back onto the error taxonomy.
func ToProtocolError(resp *http.Response) error {
	contentType := resp.Header.Get("Content-Type")
	if contentType != "application/problem+json" {
		return awp.ErrInternal
	}

	var e Error
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		return fmt.Errorf("failed to decode error details: %w", err)
	}

	cause := awp.ErrInternal
	for err, details := range errToDetails {
		if e.Type == details.uri {
			cause = err
			break
		}
	}

	return fmt.Errorf("%s: %w", e.Detail, cause)
}

// ToRESTError converts an error and a [awp.TaskID] to a REST [Error].
// Wrapped sentinels are resolved with errors.Is; unrecognized errors map to
// Internal Server Error.
func ToRESTError(err error, taskID awp.TaskID) *Error {
	e := &Error{
		Type:      errURIBase + "internal-error",
		Title:     "Internal Server Error",
		Status:    http.StatusInternalServerError,
		Detail:    err.Error(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TaskID:    string(taskID),
	}

	for sentinel, details := range errToDetails {
		if errors.Is(err, sentinel) {
			e.Type = details.uri
			e.Title = details.title
			e.Status = details.status
			break
		}
	}

	return e
}
