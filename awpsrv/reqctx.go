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

package awpsrv

import (
	"context"

	"github.com/awprotocol/awp-go/awp"
)

// ExecutorContextInterceptor defines an extension point for modifying the
// information which gets passed to the agent when it is invoked.
type ExecutorContextInterceptor interface {
	// Intercept can modify the [ExecutorContext] before it reaches the [AgentExecutor].
	Intercept(ctx context.Context, execCtx *ExecutorContext) (context.Context, error)
}

// WithExecutorContextInterceptor registers an interceptor applied before each
// agent invocation.
func WithExecutorContextInterceptor(interceptor ExecutorContextInterceptor) RequestHandlerOption {
	return func(ih *InterceptedHandler, h *defaultRequestHandler) {
		h.execCtxInterceptors = append(h.execCtxInterceptors, interceptor)
	}
}

// ExecutorContext provides information about an incoming request to [AgentExecutor].
type ExecutorContext struct {
	// Message is the message which triggered the execution, nil for a cancelation.
	Message *awp.Message
	// TaskID is the ID of the task, generated when the message referenced none.
	TaskID awp.TaskID
	// StoredTask is the persisted task state, present when the message
	// continued an existing task or for cancelations.
	StoredTask *awp.Task
	// RelatedTasks holds the resolved tasks named by the message's
	// referenceTaskIds, in reference order.
	RelatedTasks []*awp.Task
	// ContextID groups this task with related interactions. Matches the task's
	// ContextID.
	ContextID string
	// Metadata of the request which triggered the call.
	Metadata map[string]any
	// Tenant of the request, empty for single-tenant deployments.
	Tenant string
	// User who made the request which triggered the execution.
	User *User
	// ServiceParams of the request which triggered the execution.
	ServiceParams *ServiceParams
}

var _ awp.RefCarrier = (*ExecutorContext)(nil)

// Ref returns the identifiers used for associating events with the task.
func (ec *ExecutorContext) Ref() awp.TaskRef {
	return awp.TaskRef{TaskID: ec.TaskID, ContextID: ec.ContextID}
}
