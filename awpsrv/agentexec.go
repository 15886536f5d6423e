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
	"errors"
	"fmt"
	"slices"

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/awpsrv/push"
	"github.com/awprotocol/awp-go/awpsrv/taskstore"
	"github.com/awprotocol/awp-go/internal/eventpipe"
	"github.com/awprotocol/awp-go/internal/taskexec"
	"github.com/awprotocol/awp-go/internal/taskupdate"
)

// AgentExecutor is the contract between the runtime and agent logic. The
// runtime invokes Execute in a dedicated goroutine and the agent reports
// progress through the [TaskUpdater]:
//
//	func (a *agent) Execute(ctx context.Context, execCtx *awpsrv.ExecutorContext, updater *awpsrv.TaskUpdater) error {
//		if err := updater.StartWork(ctx); err != nil {
//			return err
//		}
//		for chunk := range produce(execCtx.Message) {
//			if _, err := updater.AddArtifact(ctx, awp.NewTextPart(chunk)); err != nil {
//				return err
//			}
//		}
//		return updater.Complete(ctx, nil)
//	}
//
// An execution must settle the task in a terminal state or suspend it with
// RequireInput/RequireAuth before returning; it can alternatively answer with
// a single updater.Reply without creating a task. Returning without either is
// treated as a contract violation and the task is failed. A returned error
// also fails the task, with the error text as the diagnostic.
type AgentExecutor interface {
	// Execute processes the request described by execCtx, publishing progress
	// through updater. ctx is canceled when the runtime force-terminates the
	// execution, cooperative agents should watch it.
	Execute(ctx context.Context, execCtx *ExecutorContext, updater *TaskUpdater) error

	// Cancel is called when a caller requests the agent to stop working on a
	// task. The simplest implementation calls updater.Cancel. An error should
	// be returned if the cancelation request cannot be honored.
	Cancel(ctx context.Context, execCtx *ExecutorContext, updater *TaskUpdater) error
}

type factory struct {
	taskStore       taskstore.Store
	pushSender      push.Sender
	pushConfigStore push.ConfigStore
	agent           AgentExecutor
	interceptors    []ExecutorContextInterceptor
	trackStatus     bool
}

var _ taskexec.Factory = (*factory)(nil)

// CreateExecutor creates the executor and processor pair for a send request.
func (f *factory) CreateExecutor(ctx context.Context, tid awp.TaskID, req *awp.SendMessageRequest) (taskexec.Executor, taskexec.Processor, error) {
	execCtx, err := f.loadExecutionContext(ctx, tid, req)
	if err != nil {
		return nil, nil, err
	}

	if callCtx, ok := CallContextFrom(ctx); ok {
		execCtx.ctx.User = callCtx.User
		execCtx.ctx.ServiceParams = callCtx.ServiceParams()
		if execCtx.ctx.Tenant == "" {
			execCtx.ctx.Tenant = callCtx.Tenant()
		}
	}

	if req.Config != nil && req.Config.PushConfig != nil {
		if f.pushConfigStore == nil || f.pushSender == nil {
			return nil, nil, awp.ErrPushNotificationNotSupported
		}
		if _, err := f.pushConfigStore.Save(ctx, tid, req.Config.PushConfig); err != nil {
			return nil, nil, fmt.Errorf("failed to save push config: %w", err)
		}
	}

	executor := &executor{agent: f.agent, execCtx: execCtx.ctx, interceptors: f.interceptors}
	processor := f.newProcessor(execCtx.ctx, execCtx.task)
	return executor, processor, nil
}

// CreateCanceler creates the canceler and processor pair for a cancel request.
func (f *factory) CreateCanceler(ctx context.Context, req *awp.CancelTaskRequest) (taskexec.Canceler, taskexec.Processor, error) {
	storedTask, err := f.taskStore.Get(ctx, req.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load a task: %w", err)
	}

	task := storedTask.Task
	execCtx := &ExecutorContext{
		TaskID:     task.ID,
		StoredTask: task,
		ContextID:  task.ContextID,
		Metadata:   req.Metadata,
		Tenant:     req.Tenant,
	}
	if callCtx, ok := CallContextFrom(ctx); ok {
		execCtx.User = callCtx.User
		execCtx.ServiceParams = callCtx.ServiceParams()
		if execCtx.Tenant == "" {
			execCtx.Tenant = callCtx.Tenant()
		}
	}

	canceler := &canceler{agent: f.agent, execCtx: execCtx, task: task, interceptors: f.interceptors}
	processor := f.newProcessor(execCtx, storedTask)
	return canceler, processor, nil
}

func (f *factory) newProcessor(execCtx *ExecutorContext, task *taskstore.StoredTask) *processor {
	updateManager := taskupdate.NewManager(f.taskStore, execCtx.Ref(), task)
	if f.trackStatus {
		updateManager.TrackTransitions()
	}
	return &processor{
		updateManager:   updateManager,
		pushConfigStore: f.pushConfigStore,
		pushSender:      f.pushSender,
		execCtx:         execCtx,
	}
}

type executionContext struct {
	ctx  *ExecutorContext
	task *taskstore.StoredTask
}

// loadExecutionContext gathers the information necessary for creating the
// agent executor and its event processor, validating the request against the
// stored state.
func (f *factory) loadExecutionContext(ctx context.Context, tid awp.TaskID, req *awp.SendMessageRequest) (*executionContext, error) {
	message := req.Message

	related, err := f.loadReferencedTasks(ctx, message)
	if err != nil {
		return nil, err
	}

	taskStoreTask, err := f.taskStore.Get(ctx, tid)
	if errors.Is(err, awp.ErrTaskNotFound) && message.TaskID == "" {
		return f.newExecutionContext(tid, req, related), nil
	}
	if errors.Is(err, awp.ErrTaskNotFound) {
		return nil, fmt.Errorf("message names task %q which does not exist: %w", message.TaskID, awp.ErrTaskNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("task loading failed: %w", err)
	}

	storedTask, lastVersion := taskStoreTask.Task, taskStoreTask.Version
	if message.ContextID != "" && message.ContextID != storedTask.ContextID {
		return nil, fmt.Errorf("message contextId differs from task contextId: %w", awp.ErrInvalidParams)
	}

	if storedTask.Status.State.Terminal() {
		return nil, fmt.Errorf("task in terminal state %q cannot accept messages: %w",
			storedTask.Status.State, awp.ErrTaskAlreadyTerminal)
	}

	// The message is already present when an execution is being retried.
	updateHistory := !slices.ContainsFunc(storedTask.History, func(m *awp.Message) bool {
		return m.ID == message.ID
	})
	if updateHistory {
		storedTask.History = append(storedTask.History, message)
		lastVersion, err = f.taskStore.Update(ctx, &taskstore.UpdateRequest{
			Task:        storedTask,
			Event:       message,
			PrevVersion: lastVersion,
		})
		if err != nil {
			return nil, fmt.Errorf("task message history update failed: %w", err)
		}
	}

	return &executionContext{
		ctx: &ExecutorContext{
			Message:      message,
			StoredTask:   storedTask,
			RelatedTasks: related,
			TaskID:       storedTask.ID,
			ContextID:    storedTask.ContextID,
			Metadata:     req.Metadata,
			Tenant:       req.Tenant,
		},
		task: &taskstore.StoredTask{
			Task:    storedTask,
			Version: lastVersion,
		},
	}, nil
}

func (f *factory) newExecutionContext(tid awp.TaskID, req *awp.SendMessageRequest, related []*awp.Task) *executionContext {
	msg := req.Message
	contextID := msg.ContextID
	if contextID == "" {
		contextID = awp.NewContextID()
	}
	execCtx := &ExecutorContext{
		Message:      msg,
		TaskID:       tid,
		ContextID:    contextID,
		RelatedTasks: related,
		Metadata:     req.Metadata,
		Tenant:       req.Tenant,
	}
	return &executionContext{ctx: execCtx, task: nil}
}

// loadReferencedTasks resolves the tasks named by the message's
// referenceTaskIds. Every reference must resolve, a dangling one rejects the
// whole request.
func (f *factory) loadReferencedTasks(ctx context.Context, msg *awp.Message) ([]*awp.Task, error) {
	if len(msg.ReferenceTasks) == 0 {
		return nil, nil
	}

	tasks := make([]*awp.Task, 0, len(msg.ReferenceTasks))
	for _, taskID := range msg.ReferenceTasks {
		storedTask, err := f.taskStore.Get(ctx, taskID)
		if errors.Is(err, awp.ErrTaskNotFound) {
			return nil, fmt.Errorf("referenced task %q does not exist: %w", taskID, awp.ErrInvalidReference)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load referenced task %q: %w", taskID, err)
		}
		tasks = append(tasks, storedTask.Task)
	}
	return tasks, nil
}

type executor struct {
	agent        AgentExecutor
	execCtx      *ExecutorContext
	interceptors []ExecutorContextInterceptor
}

var _ taskexec.Executor = (*executor)(nil)

// Execute invokes the agent with a [TaskUpdater] bound to the execution pipe.
func (e *executor) Execute(ctx context.Context, q eventpipe.Writer) error {
	var err error
	for _, interceptor := range e.interceptors {
		ctx, err = interceptor.Intercept(ctx, e.execCtx)
		if err != nil {
			return fmt.Errorf("interceptor failed: %w", err)
		}
	}
	return e.agent.Execute(ctx, e.execCtx, newTaskUpdater(e.execCtx, q))
}

type canceler struct {
	agent        AgentExecutor
	task         *awp.Task
	execCtx      *ExecutorContext
	interceptors []ExecutorContextInterceptor
}

var _ taskexec.Canceler = (*canceler)(nil)

// Cancel invokes the agent cancelation logic with a [TaskUpdater] bound to
// the execution pipe. Canceling a task that already settled is a no-op
// answering with the stored terminal snapshot.
func (c *canceler) Cancel(ctx context.Context, q eventpipe.Writer) error {
	if c.task.Status.State.Terminal() {
		return q.Write(ctx, c.task)
	}

	var err error
	for _, interceptor := range c.interceptors {
		ctx, err = interceptor.Intercept(ctx, c.execCtx)
		if err != nil {
			return fmt.Errorf("interceptor failed: %w", err)
		}
	}
	return c.agent.Cancel(ctx, c.execCtx, newTaskUpdater(c.execCtx, q))
}

// processor integrates one execution's events into persisted state and
// notifies push subscribers.
type processor struct {
	updateManager   *taskupdate.Manager
	pushConfigStore push.ConfigStore
	pushSender      push.Sender
	execCtx         *ExecutorContext

	processedCount int
}

var _ taskexec.Processor = (*processor)(nil)

// Process applies a single agent event. A nil result means processing
// continues; a result with ExecutionResult set ends the execution.
func (p *processor) Process(ctx context.Context, event awp.Event) (*taskexec.ProcessorResult, error) {
	versioned, err := p.updateManager.Process(ctx, event)
	if err != nil {
		return p.setTaskFailed(ctx, event, err)
	}
	p.processedCount++

	if msg, ok := event.(*awp.Message); ok {
		return &taskexec.ProcessorResult{ExecutionResult: msg}, nil
	}

	task := versioned.Task
	if err := p.sendPushNotifications(ctx, task); err != nil {
		return p.setTaskFailed(ctx, event, err)
	}

	result := &taskexec.ProcessorResult{TaskVersion: versioned.Version}
	if taskupdate.IsFinal(event) {
		result.ExecutionResult = task
	}
	return result, nil
}

// ProcessError settles the task in a failed state carrying the cause as a
// visible diagnostic, and makes the failed task the execution result.
func (p *processor) ProcessError(ctx context.Context, cause error) (awp.SendMessageResult, error) {
	if p.execCtx.StoredTask == nil && p.processedCount == 0 {
		// No task was persisted, propagate the error to the caller instead of
		// materializing a failed task.
		return nil, cause
	}

	versioned, err := p.updateManager.SetTaskFailed(ctx, nil, cause.Error())
	if err != nil {
		return nil, err
	}
	return versioned.Task, nil
}

func (p *processor) setTaskFailed(ctx context.Context, event awp.Event, cause error) (*taskexec.ProcessorResult, error) {
	versioned, err := p.updateManager.SetTaskFailed(ctx, event, cause.Error())
	if err != nil {
		return nil, err
	}
	return &taskexec.ProcessorResult{
		ExecutionResult: versioned.Task,
		EventOverride:   versioned.Task,
		TaskVersion:     versioned.Version,
	}, nil
}

func (p *processor) sendPushNotifications(ctx context.Context, task *awp.Task) error {
	if p.pushSender == nil || p.pushConfigStore == nil {
		return nil
	}

	configs, err := p.pushConfigStore.List(ctx, task.ID)
	if err != nil {
		return err
	}

	for _, config := range configs {
		if err := p.pushSender.SendPush(ctx, config, task); err != nil {
			return err
		}
	}
	return nil
}
