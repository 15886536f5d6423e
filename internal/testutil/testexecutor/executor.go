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

// Package testexecutor provides mock agent executor implementations for testing.
package testexecutor

import (
	"context"

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/awpsrv"
)

// TestAgentExecutor is a mock of [awpsrv.AgentExecutor].
type TestAgentExecutor struct {
	ExecuteFn func(ctx context.Context, execCtx *awpsrv.ExecutorContext, updater *awpsrv.TaskUpdater) error
	CancelFn  func(ctx context.Context, execCtx *awpsrv.ExecutorContext, updater *awpsrv.TaskUpdater) error
}

var _ awpsrv.AgentExecutor = (*TestAgentExecutor)(nil)

// FromFunction creates a [TestAgentExecutor] from an execute function.
func FromFunction(fn func(ctx context.Context, execCtx *awpsrv.ExecutorContext, updater *awpsrv.TaskUpdater) error) *TestAgentExecutor {
	return &TestAgentExecutor{ExecuteFn: fn}
}

// Echo creates a [TestAgentExecutor] that completes every task with a single
// text reply.
func Echo(text string) *TestAgentExecutor {
	return FromFunction(func(ctx context.Context, execCtx *awpsrv.ExecutorContext, updater *awpsrv.TaskUpdater) error {
		return updater.Complete(ctx, awp.NewMessageForTask(awp.MessageRoleAgent, awp.TaskRef{
			TaskID:    execCtx.TaskID,
			ContextID: execCtx.ContextID,
		}, awp.NewTextPart(text)))
	})
}

// Replier creates a [TestAgentExecutor] that answers with a message and never
// creates a task.
func Replier(text string) *TestAgentExecutor {
	return FromFunction(func(ctx context.Context, execCtx *awpsrv.ExecutorContext, updater *awpsrv.TaskUpdater) error {
		return updater.Reply(ctx, awp.NewTextPart(text))
	})
}

// Execute implements [awpsrv.AgentExecutor] interface. Without an override the
// task is completed immediately.
func (e *TestAgentExecutor) Execute(ctx context.Context, execCtx *awpsrv.ExecutorContext, updater *awpsrv.TaskUpdater) error {
	if e.ExecuteFn != nil {
		return e.ExecuteFn(ctx, execCtx, updater)
	}
	return updater.Complete(ctx, nil)
}

// Cancel implements [awpsrv.AgentExecutor] interface. Without an override the
// cancelation is honored.
func (e *TestAgentExecutor) Cancel(ctx context.Context, execCtx *awpsrv.ExecutorContext, updater *awpsrv.TaskUpdater) error {
	if e.CancelFn != nil {
		return e.CancelFn(ctx, execCtx, updater)
	}
	return updater.Cancel(ctx, nil)
}
