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
	"fmt"
	"iter"
	"log/slog"

	"github.com/google/uuid"

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/log"
)

// Request is the mutable view of a call passed to interceptors before the
// handler runs.
type Request struct {
	// Method is the protocol method name.
	Method string
	// Payload is the request object, e.g. *awp.SendMessageRequest.
	Payload any
}

// Response is the mutable view of a call outcome passed to interceptors.
type Response struct {
	// Payload is the result object produced by the handler, nil on error.
	Payload any
	// Err is the handler error, which interceptors may replace.
	Err error
}

// CallInterceptor observes and augments every protocol method invocation.
// Authentication middleware is the typical implementation: Before resolves
// credentials from [CallContext.ServiceParams] and sets [CallContext.User].
type CallInterceptor interface {
	// Before runs ahead of the handler. A returned error fails the call.
	Before(ctx context.Context, callCtx *CallContext, req *Request) (context.Context, error)

	// After runs once per response (per event for streaming methods). A
	// returned error replaces the outcome.
	After(ctx context.Context, callCtx *CallContext, resp *Response) error
}

// InterceptedHandler implements [RequestHandler]. It establishes the call
// context, request-scoped logging and protocol version validation for every
// method of the wrapped handler, and applies the registered interceptors.
type InterceptedHandler struct {
	// Handler is responsible for the actual processing of every call.
	Handler RequestHandler
	// Interceptors are applied around each call, in registration order.
	Interceptors []CallInterceptor
	// Logger is made accessible from request scope contexts through the log
	// package. Defaults to slog.Default() if not set.
	Logger *slog.Logger

	capabilities *awp.AgentCapabilities
}

var _ RequestHandler = (*InterceptedHandler)(nil)

// WithCallInterceptor registers an interceptor applied around every call.
func WithCallInterceptor(interceptor CallInterceptor) RequestHandlerOption {
	return func(ih *InterceptedHandler, h *defaultRequestHandler) {
		ih.Interceptors = append(ih.Interceptors, interceptor)
	}
}

// errMissingRequest rejects calls that arrive without a request object, which
// the wrappers below would otherwise dereference.
var errMissingRequest = fmt.Errorf("missing request: %w", awp.ErrInvalidParams)

// GetTask implements RequestHandler.
func (h *InterceptedHandler) GetTask(ctx context.Context, req *awp.GetTaskRequest) (*awp.Task, error) {
	if req == nil {
		return nil, errMissingRequest
	}
	ctx, callCtx := attachMethodCallContext(ctx, "GetTask", req.Tenant)
	ctx = h.withLoggerContext(ctx, slog.String("task_id", string(req.ID)))
	return doCall(ctx, callCtx, h, req, h.Handler.GetTask)
}

// ListTasks implements RequestHandler.
func (h *InterceptedHandler) ListTasks(ctx context.Context, req *awp.ListTasksRequest) (*awp.ListTasksResponse, error) {
	if req == nil {
		return nil, errMissingRequest
	}
	ctx, callCtx := attachMethodCallContext(ctx, "ListTasks", req.Tenant)
	ctx = h.withLoggerContext(ctx)
	return doCall(ctx, callCtx, h, req, h.Handler.ListTasks)
}

// CancelTask implements RequestHandler.
func (h *InterceptedHandler) CancelTask(ctx context.Context, req *awp.CancelTaskRequest) (*awp.Task, error) {
	if req == nil {
		return nil, errMissingRequest
	}
	ctx, callCtx := attachMethodCallContext(ctx, "CancelTask", req.Tenant)
	ctx = h.withLoggerContext(ctx, slog.String("task_id", string(req.ID)))
	return doCall(ctx, callCtx, h, req, h.Handler.CancelTask)
}

// SendMessage implements RequestHandler.
func (h *InterceptedHandler) SendMessage(ctx context.Context, req *awp.SendMessageRequest) (awp.SendMessageResult, error) {
	if req == nil {
		return nil, errMissingRequest
	}
	ctx, callCtx := attachMethodCallContext(ctx, "SendMessage", req.Tenant)
	ctx = h.withLoggerContext(ctx, messageAttrs(req)...)
	return doCall(ctx, callCtx, h, req, h.Handler.SendMessage)
}

// SendStreamingMessage implements RequestHandler.
func (h *InterceptedHandler) SendStreamingMessage(ctx context.Context, req *awp.SendMessageRequest) iter.Seq2[awp.Event, error] {
	return func(yield func(awp.Event, error) bool) {
		if req == nil {
			yield(nil, errMissingRequest)
			return
		}
		ctx, callCtx := attachMethodCallContext(ctx, "SendStreamingMessage", req.Tenant)
		ctx = h.withLoggerContext(ctx, messageAttrs(req)...)
		streamCall(ctx, callCtx, h, req, h.Handler.SendStreamingMessage, yield)
	}
}

// SubscribeToTask implements RequestHandler.
func (h *InterceptedHandler) SubscribeToTask(ctx context.Context, req *awp.SubscribeToTaskRequest) iter.Seq2[awp.Event, error] {
	return func(yield func(awp.Event, error) bool) {
		if req == nil {
			yield(nil, errMissingRequest)
			return
		}
		ctx, callCtx := attachMethodCallContext(ctx, "SubscribeToTask", req.Tenant)
		ctx = h.withLoggerContext(ctx, slog.String("task_id", string(req.ID)))
		streamCall(ctx, callCtx, h, req, h.Handler.SubscribeToTask, yield)
	}
}

// GetTaskPushConfig implements RequestHandler.
func (h *InterceptedHandler) GetTaskPushConfig(ctx context.Context, req *awp.GetTaskPushConfigRequest) (*awp.TaskPushConfig, error) {
	if req == nil {
		return nil, errMissingRequest
	}
	ctx, callCtx := attachMethodCallContext(ctx, "GetTaskPushConfig", req.Tenant)
	ctx = h.withLoggerContext(ctx, slog.String("task_id", string(req.TaskID)))
	return doCall(ctx, callCtx, h, req, h.Handler.GetTaskPushConfig)
}

// ListTaskPushConfigs implements RequestHandler.
func (h *InterceptedHandler) ListTaskPushConfigs(ctx context.Context, req *awp.ListTaskPushConfigRequest) ([]*awp.TaskPushConfig, error) {
	if req == nil {
		return nil, errMissingRequest
	}
	ctx, callCtx := attachMethodCallContext(ctx, "ListTaskPushConfigs", req.Tenant)
	ctx = h.withLoggerContext(ctx, slog.String("task_id", string(req.TaskID)))
	return doCall(ctx, callCtx, h, req, h.Handler.ListTaskPushConfigs)
}

// CreateTaskPushConfig implements RequestHandler.
func (h *InterceptedHandler) CreateTaskPushConfig(ctx context.Context, req *awp.CreateTaskPushConfigRequest) (*awp.TaskPushConfig, error) {
	if req == nil {
		return nil, errMissingRequest
	}
	ctx, callCtx := attachMethodCallContext(ctx, "CreateTaskPushConfig", req.Tenant)
	ctx = h.withLoggerContext(ctx, slog.String("task_id", string(req.TaskID)))
	return doCall(ctx, callCtx, h, req, h.Handler.CreateTaskPushConfig)
}

// DeleteTaskPushConfig implements RequestHandler.
func (h *InterceptedHandler) DeleteTaskPushConfig(ctx context.Context, req *awp.DeleteTaskPushConfigRequest) error {
	if req == nil {
		return errMissingRequest
	}
	ctx, callCtx := attachMethodCallContext(ctx, "DeleteTaskPushConfig", req.Tenant)
	ctx = h.withLoggerContext(ctx, slog.String("task_id", string(req.TaskID)))
	_, err := doCall(ctx, callCtx, h, req, func(ctx context.Context, req *awp.DeleteTaskPushConfigRequest) (struct{}, error) {
		return struct{}{}, h.Handler.DeleteTaskPushConfig(ctx, req)
	})
	return err
}

// GetExtendedAgentCard implements RequestHandler.
func (h *InterceptedHandler) GetExtendedAgentCard(ctx context.Context, req *awp.GetExtendedAgentCardRequest) (*awp.AgentCard, error) {
	if req == nil {
		return nil, errMissingRequest
	}
	ctx, callCtx := attachMethodCallContext(ctx, "GetExtendedAgentCard", req.Tenant)
	ctx = h.withLoggerContext(ctx)
	return doCall(ctx, callCtx, h, req, h.Handler.GetExtendedAgentCard)
}

func streamCall[Req any](
	ctx context.Context, callCtx *CallContext, h *InterceptedHandler, req Req,
	call func(context.Context, Req) iter.Seq2[awp.Event, error],
	yield func(awp.Event, error) bool,
) {
	ctx, err := h.before(ctx, callCtx, req)
	if err != nil {
		yield(nil, err)
		return
	}

	for event, err := range call(ctx, req) {
		event, err = h.afterEvent(ctx, callCtx, event, err)
		if err != nil {
			yield(nil, err)
			return
		}
		if !yield(event, nil) {
			return
		}
	}
}

func (h *InterceptedHandler) before(ctx context.Context, callCtx *CallContext, payload any) (context.Context, error) {
	if err := checkProtocolVersion(callCtx); err != nil {
		return ctx, err
	}
	var err error
	for _, interceptor := range h.Interceptors {
		ctx, err = interceptor.Before(ctx, callCtx, &Request{Method: callCtx.method, Payload: payload})
		if err != nil {
			return ctx, err
		}
	}
	return ctx, nil
}

func (h *InterceptedHandler) afterEvent(ctx context.Context, callCtx *CallContext, event awp.Event, callErr error) (awp.Event, error) {
	response := &Response{Payload: event, Err: callErr}
	for i := len(h.Interceptors) - 1; i >= 0; i-- {
		if err := h.Interceptors[i].After(ctx, callCtx, response); err != nil {
			return nil, err
		}
	}
	if response.Err != nil {
		return nil, response.Err
	}
	typed, ok := response.Payload.(awp.Event)
	if !ok {
		return nil, fmt.Errorf("event type changed from %T to %T", event, response.Payload)
	}
	return typed, nil
}

func doCall[Req any, Resp any](
	ctx context.Context, callCtx *CallContext, h *InterceptedHandler, req Req,
	transportCall func(context.Context, Req) (Resp, error),
) (Resp, error) {
	var zero Resp

	ctx, err := h.before(ctx, callCtx, req)
	if err != nil {
		return zero, err
	}

	resp, err := transportCall(ctx, req)
	response := &Response{Payload: resp, Err: err}
	for i := len(h.Interceptors) - 1; i >= 0; i-- {
		if err := h.Interceptors[i].After(ctx, callCtx, response); err != nil {
			return zero, err
		}
	}
	if response.Err != nil {
		return zero, response.Err
	}
	if response.Payload == nil {
		return zero, nil
	}
	typed, ok := response.Payload.(Resp)
	if !ok {
		return zero, fmt.Errorf("payload type changed from %T to %T", resp, response.Payload)
	}
	return typed, nil
}

// withLoggerContext attaches a request-scoped slog.Logger to the context.
func (h *InterceptedHandler) withLoggerContext(ctx context.Context, attrs ...any) context.Context {
	logger := h.Logger
	if logger == nil {
		logger = log.LoggerFrom(ctx)
	}
	requestID := uuid.NewString()
	withAttrs := logger.WithGroup("awp").With(attrs...).With(slog.String("request_id", requestID))
	return log.AttachLogger(ctx, withAttrs)
}

// attachMethodCallContext sets the method on the CallContext created by the
// transport, or initializes a fresh one for direct invocations.
func attachMethodCallContext(ctx context.Context, method string, tenant string) (context.Context, *CallContext) {
	callCtx, ok := CallContextFrom(ctx)
	if !ok {
		ctx, callCtx = NewCallContext(ctx, nil)
	}

	callCtx.method = method
	if tenant != "" {
		callCtx.tenant = tenant
	}
	return ctx, callCtx
}

func messageAttrs(req *awp.SendMessageRequest) []any {
	if req.Message == nil {
		return nil
	}
	msg := req.Message
	return []any{
		slog.String("message_id", msg.ID),
		slog.String("task_id", string(msg.TaskID)),
		slog.String("context_id", msg.ContextID),
	}
}
