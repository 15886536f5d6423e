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

// Package awpsrv implements the transport-agnostic server runtime of the
// Agent Wire Protocol: request handling, agent execution, task lifecycle and
// discovery. Transport bindings (JSON-RPC, REST, gRPC) all route into the
// same [RequestHandler], which keeps their semantics equivalent.
package awpsrv

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/awpsrv/eventqueue"
	"github.com/awprotocol/awp-go/awpsrv/push"
	"github.com/awprotocol/awp-go/awpsrv/taskstore"
	"github.com/awprotocol/awp-go/internal/taskexec"
	"github.com/awprotocol/awp-go/log"
)

// RequestHandler defines a transport-agnostic interface for handling incoming
// protocol requests.
type RequestHandler interface {
	// GetTask handles the 'GetTask' protocol method.
	GetTask(context.Context, *awp.GetTaskRequest) (*awp.Task, error)

	// ListTasks handles the 'ListTasks' protocol method.
	ListTasks(context.Context, *awp.ListTasksRequest) (*awp.ListTasksResponse, error)

	// CancelTask handles the 'CancelTask' protocol method.
	CancelTask(context.Context, *awp.CancelTaskRequest) (*awp.Task, error)

	// SendMessage handles the 'SendMessage' protocol method (non-streaming).
	SendMessage(context.Context, *awp.SendMessageRequest) (awp.SendMessageResult, error)

	// SendStreamingMessage handles the 'SendStreamingMessage' protocol method (streaming).
	SendStreamingMessage(context.Context, *awp.SendMessageRequest) iter.Seq2[awp.Event, error]

	// SubscribeToTask handles the 'SubscribeToTask' protocol method.
	SubscribeToTask(context.Context, *awp.SubscribeToTaskRequest) iter.Seq2[awp.Event, error]

	// GetTaskPushConfig handles the 'GetTaskPushConfig' protocol method.
	GetTaskPushConfig(context.Context, *awp.GetTaskPushConfigRequest) (*awp.TaskPushConfig, error)

	// ListTaskPushConfigs handles the 'ListTaskPushConfigs' protocol method.
	ListTaskPushConfigs(context.Context, *awp.ListTaskPushConfigRequest) ([]*awp.TaskPushConfig, error)

	// CreateTaskPushConfig handles the 'CreateTaskPushConfig' protocol method.
	CreateTaskPushConfig(context.Context, *awp.CreateTaskPushConfigRequest) (*awp.TaskPushConfig, error)

	// DeleteTaskPushConfig handles the 'DeleteTaskPushConfig' protocol method.
	DeleteTaskPushConfig(context.Context, *awp.DeleteTaskPushConfigRequest) error

	// GetExtendedAgentCard handles the 'GetExtendedAgentCard' protocol method.
	GetExtendedAgentCard(context.Context, *awp.GetExtendedAgentCardRequest) (*awp.AgentCard, error)
}

// Implements awpsrv.RequestHandler.
type defaultRequestHandler struct {
	agentExecutor AgentExecutor
	execManager   taskexec.Manager
	panicHandler  taskexec.PanicHandlerFn

	pushSender        push.Sender
	queueManager      eventqueue.Manager
	concurrencyConfig taskexec.ConcurrencyConfig

	pushConfigStore     push.ConfigStore
	taskStore           taskstore.Store
	execCtxInterceptors []ExecutorContextInterceptor

	extendedCardProducer ExtendedAgentCardProducer
	capabilities         *awp.AgentCapabilities

	blockingTimeout   time.Duration
	cancelGracePeriod time.Duration
}

var _ RequestHandler = (*defaultRequestHandler)(nil)

// RequestHandlerOption customizes the default [RequestHandler] implementation.
type RequestHandlerOption func(*InterceptedHandler, *defaultRequestHandler)

// WithCapabilityChecks enables request validation against the provided
// capabilities: streaming, push notification and extended card methods are
// rejected when not advertised, and state transition history is recorded when
// advertised.
func WithCapabilityChecks(capabilities *awp.AgentCapabilities) RequestHandlerOption {
	return func(ih *InterceptedHandler, h *defaultRequestHandler) {
		h.capabilities = capabilities
	}
}

// WithLogger sets a custom logger. Request scoped parameters are attached to
// it on method invocations and injected dependencies can access it through
// the [github.com/awprotocol/awp-go/log] package. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) RequestHandlerOption {
	return func(ih *InterceptedHandler, h *defaultRequestHandler) {
		ih.Logger = logger
	}
}

// WithEventQueueManager overrides eventqueue.Manager with a custom implementation.
func WithEventQueueManager(manager eventqueue.Manager) RequestHandlerOption {
	return func(ih *InterceptedHandler, h *defaultRequestHandler) {
		h.queueManager = manager
	}
}

// WithExecutionPanicHandler sets a custom handler for panics during execution.
func WithExecutionPanicHandler(handler func(r any) error) RequestHandlerOption {
	return func(ih *InterceptedHandler, h *defaultRequestHandler) {
		h.panicHandler = handler
	}
}

// WithConcurrencyConfig limits the number of concurrent executions.
func WithConcurrencyConfig(config taskexec.ConcurrencyConfig) RequestHandlerOption {
	return func(ih *InterceptedHandler, h *defaultRequestHandler) {
		h.concurrencyConfig = config
	}
}

// WithPushNotifications adds support for push notifications. Without these
// dependencies push-related methods return awp.ErrPushNotificationNotSupported.
func WithPushNotifications(store push.ConfigStore, sender push.Sender) RequestHandlerOption {
	return func(ih *InterceptedHandler, h *defaultRequestHandler) {
		h.pushConfigStore = store
		h.pushSender = sender
	}
}

// WithTaskStore overrides the task store. Defaults to an in-memory implementation.
func WithTaskStore(store taskstore.Store) RequestHandlerOption {
	return func(ih *InterceptedHandler, h *defaultRequestHandler) {
		h.taskStore = store
	}
}

// WithExtendedAgentCardProducer enables the GetExtendedAgentCard method for
// authenticated callers.
func WithExtendedAgentCardProducer(producer ExtendedAgentCardProducer) RequestHandlerOption {
	return func(ih *InterceptedHandler, h *defaultRequestHandler) {
		h.extendedCardProducer = producer
	}
}

// WithBlockingTimeout bounds how long a blocking SendMessage waits for the
// execution to settle. On expiry the current task snapshot is returned, with
// the execution continuing in the background. Zero means wait indefinitely.
func WithBlockingTimeout(timeout time.Duration) RequestHandlerOption {
	return func(ih *InterceptedHandler, h *defaultRequestHandler) {
		h.blockingTimeout = timeout
	}
}

// WithCancelGracePeriod bounds how long CancelTask waits for a running
// execution to honor the cancelation before the task is forced to canceled.
// Zero selects the default of 10 seconds, a negative value disables forcing.
func WithCancelGracePeriod(period time.Duration) RequestHandlerOption {
	return func(ih *InterceptedHandler, h *defaultRequestHandler) {
		h.cancelGracePeriod = period
	}
}

// NewHandler creates a request handler driving the provided executor.
func NewHandler(executor AgentExecutor, options ...RequestHandlerOption) RequestHandler {
	h := &defaultRequestHandler{agentExecutor: executor}
	ih := &InterceptedHandler{Handler: h, Logger: slog.Default()}

	for _, option := range options {
		option(ih, h)
	}
	ih.capabilities = h.capabilities

	if h.queueManager == nil {
		h.queueManager = eventqueue.NewInMemoryManager()
	}
	if h.taskStore == nil {
		h.taskStore = taskstore.NewInMemory(nil)
	}

	execFactory := &factory{
		agent:           h.agentExecutor,
		taskStore:       h.taskStore,
		pushSender:      h.pushSender,
		pushConfigStore: h.pushConfigStore,
		interceptors:    h.execCtxInterceptors,
		trackStatus:     h.capabilities != nil && h.capabilities.StateTransitionHistory,
	}
	h.execManager = taskexec.NewLocalManager(taskexec.LocalManagerConfig{
		QueueManager:      h.queueManager,
		ConcurrencyConfig: h.concurrencyConfig,
		Factory:           execFactory,
		TaskStore:         h.taskStore,
		PanicHandler:      h.panicHandler,
		CancelGracePeriod: h.cancelGracePeriod,
	})

	return ih
}

// GetTask implements RequestHandler.
func (h *defaultRequestHandler) GetTask(ctx context.Context, req *awp.GetTaskRequest) (*awp.Task, error) {
	if req == nil || req.ID == "" {
		return nil, fmt.Errorf("missing task ID: %w", awp.ErrInvalidParams)
	}

	storedTask, err := h.taskStore.Get(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	task := storedTask.Task
	if req.HistoryLength != nil {
		historyLength := *req.HistoryLength

		if historyLength == 0 {
			task.History = []*awp.Message{}
		} else if historyLength > 0 && historyLength < len(task.History) {
			task.History = task.History[len(task.History)-historyLength:]
		}
	}

	return task, nil
}

// ListTasks implements RequestHandler.
func (h *defaultRequestHandler) ListTasks(ctx context.Context, req *awp.ListTasksRequest) (*awp.ListTasksResponse, error) {
	listResponse, err := h.taskStore.List(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return listResponse, nil
}

// CancelTask implements RequestHandler.
func (h *defaultRequestHandler) CancelTask(ctx context.Context, req *awp.CancelTaskRequest) (*awp.Task, error) {
	if req == nil || req.ID == "" {
		return nil, awp.ErrInvalidParams
	}

	response, err := h.execManager.Cancel(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel: %w", err)
	}
	return response, nil
}

// SendMessage implements RequestHandler.
func (h *defaultRequestHandler) SendMessage(ctx context.Context, req *awp.SendMessageRequest) (awp.SendMessageResult, error) {
	if existing, ok, err := h.findExistingResult(ctx, req); err != nil {
		return nil, err
	} else if ok {
		return existing, nil
	}

	subscription, err := h.handleSendMessage(ctx, req)
	if err != nil {
		return nil, err
	}

	waitCtx := ctx
	if h.blockingTimeout > 0 && isBlocking(req) {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, h.blockingTimeout)
		defer cancel()
	}

	var lastEvent awp.Event
	for event, err := range subscription.Events(waitCtx) {
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				log.Info(ctx, "blocking wait expired, returning in-flight task", "task_id", subscription.TaskID())
				return h.loadTask(ctx, subscription.TaskID())
			}
			return nil, err
		}

		if taskID, interrupt := shouldInterruptNonStreaming(req, event); interrupt {
			return h.loadTask(ctx, taskID)
		}
		lastEvent = event
	}

	if res, ok := lastEvent.(awp.SendMessageResult); ok {
		return res, nil
	}
	if lastEvent == nil {
		return nil, fmt.Errorf("execution produced no result: %w", awp.ErrInternal)
	}
	return h.loadTask(ctx, subscription.TaskID())
}

// SendStreamingMessage implements RequestHandler.
func (h *defaultRequestHandler) SendStreamingMessage(ctx context.Context, req *awp.SendMessageRequest) iter.Seq2[awp.Event, error] {
	return func(yield func(awp.Event, error) bool) {
		if h.capabilities != nil && !h.capabilities.Streaming {
			yield(nil, awp.ErrUnsupportedOperation)
			return
		}

		if existing, ok, err := h.findExistingResult(ctx, req); err != nil {
			yield(nil, err)
			return
		} else if ok {
			yield(existing.(awp.Event), nil)
			return
		}

		subscription, err := h.handleSendMessage(ctx, req)
		if err != nil {
			yield(nil, err)
			return
		}

		for ev, err := range subscription.Events(ctx) {
			if !yield(ev, err) {
				return
			}
		}
	}
}

// SubscribeToTask implements RequestHandler.
func (h *defaultRequestHandler) SubscribeToTask(ctx context.Context, req *awp.SubscribeToTaskRequest) iter.Seq2[awp.Event, error] {
	return func(yield func(awp.Event, error) bool) {
		if h.capabilities != nil && !h.capabilities.Streaming {
			yield(nil, awp.ErrUnsupportedOperation)
			return
		}
		if req == nil || req.ID == "" {
			yield(nil, awp.ErrInvalidParams)
			return
		}

		subscription, err := h.execManager.Resubscribe(ctx, req.ID)
		if err != nil {
			if errors.Is(err, awp.ErrTaskNotFound) {
				yield(nil, err)
				return
			}
			yield(nil, fmt.Errorf("%w: %w", awp.ErrTaskNotFound, err))
			return
		}

		for ev, err := range subscription.Events(ctx) {
			if !yield(ev, err) {
				return
			}
		}
	}
}

func (h *defaultRequestHandler) handleSendMessage(ctx context.Context, req *awp.SendMessageRequest) (taskexec.Subscription, error) {
	switch {
	case req == nil:
		return nil, fmt.Errorf("message send params are required: %w", awp.ErrInvalidParams)
	case req.Message == nil:
		return nil, fmt.Errorf("message is required: %w", awp.ErrInvalidParams)
	case req.Message.ID == "":
		return nil, fmt.Errorf("message ID is required: %w", awp.ErrInvalidParams)
	case len(req.Message.Parts) == 0:
		return nil, fmt.Errorf("message parts are required: %w", awp.ErrInvalidParams)
	case req.Message.Role == awp.MessageRoleUnspecified:
		return nil, fmt.Errorf("message role is required: %w", awp.ErrInvalidParams)
	}
	return h.execManager.Execute(ctx, req)
}

// findExistingResult implements message idempotency: a message ID that was
// already integrated into a task resolves to that task's current state
// instead of starting another execution.
func (h *defaultRequestHandler) findExistingResult(ctx context.Context, req *awp.SendMessageRequest) (awp.SendMessageResult, bool, error) {
	if req == nil || req.Message == nil || req.Message.ID == "" {
		return nil, false, nil
	}

	stored, err := h.taskStore.GetByMessageID(ctx, req.Message.ID)
	if errors.Is(err, awp.ErrTaskNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("idempotency lookup failed: %w", err)
	}

	log.Info(ctx, "duplicate message delivery, returning existing task",
		"message_id", req.Message.ID, "task_id", stored.Task.ID)
	return stored.Task, true, nil
}

func (h *defaultRequestHandler) loadTask(ctx context.Context, taskID awp.TaskID) (*awp.Task, error) {
	storedTask, err := h.taskStore.Get(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task state: %w", err)
	}
	return storedTask.Task, nil
}

// GetTaskPushConfig implements RequestHandler.
func (h *defaultRequestHandler) GetTaskPushConfig(ctx context.Context, req *awp.GetTaskPushConfigRequest) (*awp.TaskPushConfig, error) {
	if err := h.checkPushNotificationSupport(ctx); err != nil {
		return nil, err
	}
	config, err := h.pushConfigStore.Get(ctx, req.TaskID, req.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get push config: %w", err)
	}
	return &awp.TaskPushConfig{TaskID: req.TaskID, Config: *config}, nil
}

// ListTaskPushConfigs implements RequestHandler.
func (h *defaultRequestHandler) ListTaskPushConfigs(ctx context.Context, req *awp.ListTaskPushConfigRequest) ([]*awp.TaskPushConfig, error) {
	if err := h.checkPushNotificationSupport(ctx); err != nil {
		return nil, err
	}
	configs, err := h.pushConfigStore.List(ctx, req.TaskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list push configs: %w", err)
	}
	result := make([]*awp.TaskPushConfig, len(configs))
	for i, config := range configs {
		result[i] = &awp.TaskPushConfig{TaskID: req.TaskID, Config: *config}
	}
	return result, nil
}

// CreateTaskPushConfig implements RequestHandler.
func (h *defaultRequestHandler) CreateTaskPushConfig(ctx context.Context, req *awp.CreateTaskPushConfigRequest) (*awp.TaskPushConfig, error) {
	if err := h.checkPushNotificationSupport(ctx); err != nil {
		return nil, err
	}
	if _, err := h.taskStore.Get(ctx, req.TaskID); err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}

	saved, err := h.pushConfigStore.Save(ctx, req.TaskID, &req.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to save push config: %w", err)
	}
	return &awp.TaskPushConfig{TaskID: req.TaskID, Config: *saved}, nil
}

// DeleteTaskPushConfig implements RequestHandler.
func (h *defaultRequestHandler) DeleteTaskPushConfig(ctx context.Context, req *awp.DeleteTaskPushConfigRequest) error {
	if err := h.checkPushNotificationSupport(ctx); err != nil {
		return err
	}
	return h.pushConfigStore.Delete(ctx, req.TaskID, req.ID)
}

// GetExtendedAgentCard implements RequestHandler.
func (h *defaultRequestHandler) GetExtendedAgentCard(ctx context.Context, req *awp.GetExtendedAgentCardRequest) (*awp.AgentCard, error) {
	if h.capabilities != nil && !h.capabilities.ExtendedCard {
		return nil, awp.ErrUnsupportedOperation
	}
	if h.extendedCardProducer == nil {
		return nil, fmt.Errorf("extended card not configured: %w", awp.ErrUnsupportedOperation)
	}

	callCtx, ok := CallContextFrom(ctx)
	if !ok || callCtx.User == nil || !callCtx.User.Authenticated {
		return nil, fmt.Errorf("extended card requires authentication: %w", awp.ErrUnauthenticated)
	}

	return h.extendedCardProducer.ExtendedCard(ctx, req)
}

func (h *defaultRequestHandler) checkPushNotificationSupport(ctx context.Context) error {
	if h.capabilities != nil && !h.capabilities.PushNotifications {
		return awp.ErrPushNotificationNotSupported
	}
	if h.capabilities != nil && (h.pushConfigStore == nil || h.pushSender == nil) {
		log.Error(ctx, "push notifications are advertised but store or sender is not configured", awp.ErrInternal)
		return awp.ErrInternal
	}
	if h.pushConfigStore == nil || h.pushSender == nil {
		return awp.ErrPushNotificationNotSupported
	}
	return nil
}

func isBlocking(req *awp.SendMessageRequest) bool {
	return req.Config == nil || req.Config.Blocking == nil || *req.Config.Blocking
}

func shouldInterruptNonStreaming(req *awp.SendMessageRequest, event awp.Event) (awp.TaskID, bool) {
	// Non-blocking callers receive a result on the first task event. Blocking
	// defaults to true.
	if !isBlocking(req) {
		if _, ok := event.(*awp.Message); ok {
			return "", false
		}
		return event.(awp.RefCarrier).Ref().TaskID, true
	}

	// Blocking callers must be released when the task suspends on them.
	switch v := event.(type) {
	case *awp.Task:
		return v.ID, v.Status.State.Suspended()
	case *awp.TaskStatusUpdateEvent:
		return v.TaskID, v.Status.State.Suspended()
	}

	return "", false
}
