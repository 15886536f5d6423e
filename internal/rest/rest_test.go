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

package rest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/awprotocol/awp-go/awp"
)

func TestToProtocolError(t *testing.T) {
	tests := []struct {
		name         string
		contentType  string
		responseBody string
		wantError    error
		wantDetail   string
	}{
		{
			name:        "Task Not Found",
			contentType: "application/problem+json",
			responseBody: `{
				"type": "https://awprotocol.org/errors/task-not-found",
				"title": "Task Not Found",
				"status": 404,
				"detail": "The specified task ID does not exist"
			}`,
			wantError:  awp.ErrTaskNotFound,
			wantDetail: "The specified task ID does not exist",
		},
		{
			name:        "Task Not Cancelable",
			contentType: "application/problem+json",
			responseBody: `{
				"type": "https://awprotocol.org/errors/task-not-cancelable",
				"title": "Task Not Cancelable",
				"status": 409,
				"detail": "The specified task is not cancelable"
			}`,
			wantError:  awp.ErrTaskNotCancelable,
			wantDetail: "The specified task is not cancelable",
		},
		{
			name:        "Task Already Terminal",
			contentType: "application/problem+json",
			responseBody: `{
				"type": "https://awprotocol.org/errors/task-already-terminal",
				"title": "Task Already Terminal",
				"status": 409,
				"detail": "The task has already finished"
			}`,
			wantError:  awp.ErrTaskAlreadyTerminal,
			wantDetail: "The task has already finished",
		},
		{
			name:        "Push Notification Not Supported",
			contentType: "application/problem+json",
			responseBody: `{
				"type": "https://awprotocol.org/errors/push-notification-not-supported",
				"title": "Push Not Supported",
				"status": 400,
				"detail": "This agent does not support push notifications"
			}`,
			wantError:  awp.ErrPushNotificationNotSupported,
			wantDetail: "This agent does not support push notifications",
		},
		{
			name:        "Unsupported Operation",
			contentType: "application/problem+json",
			responseBody: `{
				"type": "https://awprotocol.org/errors/unsupported-operation",
				"title": "Unsupported",
				"status": 400,
				"detail": "Operation not allowed"
			}`,
			wantError:  awp.ErrUnsupportedOperation,
			wantDetail: "Operation not allowed",
		},
		{
			name:        "Unsupported Content Type",
			contentType: "application/problem+json",
			responseBody: `{
				"type": "https://awprotocol.org/errors/content-type-not-supported",
				"title": "Unsupported",
				"status": 415,
				"detail": "Content type not allowed"
			}`,
			wantError:  awp.ErrUnsupportedContentType,
			wantDetail: "Content type not allowed",
		},
		{
			name:        "Invalid Agent Response",
			contentType: "application/problem+json",
			responseBody: `{
				"type": "https://awprotocol.org/errors/invalid-agent-response",
				"title": "Invalid Agent Response",
				"status": 502,
				"detail": "The agent response is not valid"
			}`,
			wantError:  awp.ErrInvalidAgentResponse,
			wantDetail: "The agent response is not valid",
		},
		{
			name:        "Version not supported",
			contentType: "application/problem+json",
			responseBody: `{
				"type": "https://awprotocol.org/errors/version-not-supported",
				"title": "Version not supported",
				"status": 400,
				"detail": "This version is not supported"
			}`,
			wantError:  awp.ErrVersionNotSupported,
			wantDetail: "This version is not supported",
		},
		{
			name:        "Unauthenticated",
			contentType: "application/problem+json",
			responseBody: `{
				"type": "https://awprotocol.org/errors/unauthenticated",
				"title": "Unauthenticated",
				"status": 401,
				"detail": "Missing credentials"
			}`,
			wantError:  awp.ErrUnauthenticated,
			wantDetail: "Missing credentials",
		},
		{
			name:        "Unknown Type defaults to internal error",
			contentType: "application/problem+json",
			responseBody: `{
				"type": "https://awprotocol.org/errors/unknown-error",
				"title": "Weird Error",
				"status": 500,
				"detail": "Something unexpected happened"
			}`,
			wantError:  awp.ErrInternal,
			wantDetail: "Something unexpected happened",
		},
		{
			name:         "Invalid Content-Type (Standard JSON)",
			contentType:  "application/json",
			responseBody: `{"error": "generic error"}`,
			wantError:    awp.ErrInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{
				Header: http.Header{"Content-Type": []string{tt.contentType}},
				Body:   io.NopCloser(bytes.NewBufferString(tt.responseBody)),
			}

			gotErr := ToProtocolError(resp)

			if !errors.Is(gotErr, tt.wantError) {
				t.Errorf("ToProtocolError() error = %v, want %v", gotErr, tt.wantError)
			}

			if tt.wantDetail != "" {
				if !strings.Contains(gotErr.Error(), tt.wantDetail) {
					t.Errorf("ToProtocolError() error message %q does not contain detail %q", gotErr.Error(), tt.wantDetail)
				}
			}
		})
	}
}

func TestToRESTError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		taskID     string
		wantStatus int
		wantType   string
		wantTitle  string
	}{
		{
			name:       "Task Not Found",
			err:        awp.ErrTaskNotFound,
			taskID:     "task-123",
			wantStatus: http.StatusNotFound,
			wantType:   "https://awprotocol.org/errors/task-not-found",
			wantTitle:  "Task Not Found",
		},
		{
			name:       "Task Not Found wrapped",
			err:        fmt.Errorf("looking up %q: %w", "task-123", awp.ErrTaskNotFound),
			taskID:     "task-123",
			wantStatus: http.StatusNotFound,
			wantType:   "https://awprotocol.org/errors/task-not-found",
			wantTitle:  "Task Not Found",
		},
		{
			name:       "Invalid Task Reference",
			err:        awp.ErrInvalidReference,
			taskID:     "task-123",
			wantStatus: http.StatusBadRequest,
			wantType:   "https://awprotocol.org/errors/invalid-task-reference",
			wantTitle:  "Invalid Task Reference",
		},
		{
			name:       "Task Not Cancelable",
			err:        awp.ErrTaskNotCancelable,
			taskID:     "task-123",
			wantStatus: http.StatusConflict,
			wantType:   "https://awprotocol.org/errors/task-not-cancelable",
			wantTitle:  "Task Not Cancelable",
		},
		{
			name:       "Task Already Terminal",
			err:        awp.ErrTaskAlreadyTerminal,
			taskID:     "task-123",
			wantStatus: http.StatusConflict,
			wantType:   "https://awprotocol.org/errors/task-already-terminal",
			wantTitle:  "Task Already Terminal",
		},
		{
			name:       "Push Notification Not Supported",
			err:        awp.ErrPushNotificationNotSupported,
			taskID:     "task-123",
			wantStatus: http.StatusBadRequest,
			wantType:   "https://awprotocol.org/errors/push-notification-not-supported",
			wantTitle:  "Push Notification Not Supported",
		},
		{
			name:       "Unsupported Operation",
			err:        awp.ErrUnsupportedOperation,
			taskID:     "task-123",
			wantStatus: http.StatusBadRequest,
			wantType:   "https://awprotocol.org/errors/unsupported-operation",
			wantTitle:  "Unsupported Operation",
		},
		{
			name:       "Content Type Not Supported",
			err:        awp.ErrUnsupportedContentType,
			taskID:     "task-123",
			wantStatus: http.StatusUnsupportedMediaType,
			wantType:   "https://awprotocol.org/errors/content-type-not-supported",
			wantTitle:  "Content Type Not Supported",
		},
		{
			name:       "Invalid Agent Response",
			err:        awp.ErrInvalidAgentResponse,
			wantStatus: http.StatusBadGateway,
			wantType:   "https://awprotocol.org/errors/invalid-agent-response",
			wantTitle:  "Invalid Agent Response",
		},
		{
			name:       "Version Not Supported",
			err:        awp.ErrVersionNotSupported,
			wantStatus: http.StatusBadRequest,
			wantType:   "https://awprotocol.org/errors/version-not-supported",
			wantTitle:  "Version Not Supported",
		},
		{
			name:       "Parse Error",
			err:        awp.ErrParseError,
			wantStatus: http.StatusBadRequest,
			wantType:   "https://awprotocol.org/errors/parse-error",
			wantTitle:  "Parse Error",
		},
		{
			name:       "Invalid Request",
			err:        awp.ErrInvalidRequest,
			wantStatus: http.StatusBadRequest,
			wantType:   "https://awprotocol.org/errors/invalid-request",
			wantTitle:  "Invalid Request",
		},
		{
			name:       "Unauthenticated",
			err:        awp.ErrUnauthenticated,
			wantStatus: http.StatusUnauthorized,
			wantType:   "https://awprotocol.org/errors/unauthenticated",
			wantTitle:  "Unauthenticated",
		},
		{
			name:       "Permission Denied",
			err:        awp.ErrUnauthorized,
			wantStatus: http.StatusForbidden,
			wantType:   "https://awprotocol.org/errors/permission-denied",
			wantTitle:  "Permission Denied",
		},
		{
			name:       "Transient Error",
			err:        awp.ErrTransient,
			wantStatus: http.StatusServiceUnavailable,
			wantType:   "https://awprotocol.org/errors/transient-error",
			wantTitle:  "Transient Error",
		},
		{
			name:       "Unknown error defaults to internal",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   "https://awprotocol.org/errors/internal-error",
			wantTitle:  "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToRESTError(tt.err, awp.TaskID(tt.taskID))

			if got.Status != tt.wantStatus {
				t.Errorf("ToRESTError() status = %v, want %v", got.Status, tt.wantStatus)
			}
			if got.Type != tt.wantType {
				t.Errorf("ToRESTError type = %v, want %v", got.Type, tt.wantType)
			}
			if got.Title != tt.wantTitle {
				t.Errorf("ToRESTError title = %v, want %v", got.Title, tt.wantTitle)
			}
			if got.TaskID != "" && got.TaskID != tt.taskID {
				t.Errorf("ToRESTError taskID = %v, want %v", got.TaskID, tt.taskID)
			}
			if got.Detail == "" {
				t.Error("ToRESTError() detail is empty")
			}
		})
	}
}
