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

// PushConfig registers a webhook for asynchronous task updates. It is
// supplied by the caller and never exposed back to other callers.
type PushConfig struct {
	// ID optionally distinguishes multiple callbacks registered for one task.
	// Generated by the server when empty.
	ID string `json:"id,omitempty"`

	// URL is the callback endpoint deliveries are POSTed to.
	URL string `json:"url"`

	// Secret is the shared HMAC key used to sign delivery payloads.
	Secret string `json:"secret,omitempty"`

	// Token optionally identifies this task or session to the receiver; echoed
	// back on every delivery.
	Token string `json:"token,omitempty"`

	// Auth optionally configures credentials for calling the endpoint.
	Auth *PushAuthInfo `json:"authentication,omitempty"`
}

// PushAuthInfo configures authentication against a webhook endpoint.
type PushAuthInfo struct {
	// Scheme is the authentication scheme, e.g. "Basic" or "Bearer".
	Scheme string `json:"scheme"`

	// Credentials are the scheme-specific credentials.
	Credentials string `json:"credentials,omitempty"`
}

// TaskPushConfig associates a push configuration with a task.
type TaskPushConfig struct {
	// TaskID is the task the configuration belongs to.
	TaskID TaskID `json:"taskId"`

	// Config is the webhook configuration.
	Config PushConfig `json:"config"`

	// Tenant optionally identifies the agent owner.
	Tenant string `json:"tenant,omitempty"`
}

// CreateTaskPushConfigRequest registers a webhook configuration for a task.
type CreateTaskPushConfigRequest struct {
	// TaskID is the task to attach the configuration to.
	TaskID TaskID `json:"taskId"`

	// Config is the webhook configuration.
	Config PushConfig `json:"config"`

	// Tenant optionally identifies the agent owner.
	Tenant string `json:"tenant,omitempty"`
}

// GetTaskPushConfigRequest fetches one webhook configuration of a task.
type GetTaskPushConfigRequest struct {
	// TaskID is the parent task.
	TaskID TaskID `json:"taskId"`

	// ID is the configuration to fetch.
	ID string `json:"id"`

	// Tenant optionally identifies the agent owner.
	Tenant string `json:"tenant,omitempty"`
}

// ListTaskPushConfigRequest lists the webhook configurations of a task.
type ListTaskPushConfigRequest struct {
	// TaskID is the parent task.
	TaskID TaskID `json:"taskId"`

	// PageSize caps the number of configurations returned.
	PageSize int `json:"pageSize,omitempty"`

	// PageToken resumes listing from a previous response's cursor.
	PageToken string `json:"pageToken,omitempty"`

	// Tenant optionally identifies the agent owner.
	Tenant string `json:"tenant,omitempty"`
}

// ListTaskPushConfigResponse is one page of webhook configurations.
type ListTaskPushConfigResponse struct {
	// Configs are the task's webhook configurations.
	Configs []*TaskPushConfig `json:"configs"`

	// NextPageToken resumes listing; empty when no further results exist.
	NextPageToken string `json:"nextPageToken,omitempty"`
}

// DeleteTaskPushConfigRequest removes one webhook configuration from a task.
type DeleteTaskPushConfigRequest struct {
	// TaskID is the parent task.
	TaskID TaskID `json:"taskId"`

	// ID is the configuration to delete.
	ID string `json:"id"`

	// Tenant optionally identifies the agent owner.
	Tenant string `json:"tenant,omitempty"`
}
