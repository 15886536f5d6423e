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
	"iter"
	"reflect"
	"strings"
	"testing"

	"github.com/awprotocol/awp-go/awp"
)

type mockHandler struct {
	lastCallContext        *CallContext
	resultErr              error
	GetTaskFn              func(context.Context, *awp.GetTaskRequest) (*awp.Task, error)
	SendMessageFn          func(context.Context, *awp.SendMessageRequest) (awp.SendMessageResult, error)
	SendStreamingMessageFn func(context.Context, *awp.SendMessageRequest) iter.Seq2[awp.Event, error]
}

var _ RequestHandler = (*mockHandler)(nil)

func (h *mockHandler) GetTask(ctx context.Context, req *awp.GetTaskRequest) (*awp.Task, error) {
	h.lastCallContext, _ = CallContextFrom(ctx)
	if h.GetTaskFn != nil {
		return h.GetTaskFn(ctx, req)
	}
	if h.resultErr != nil {
		return nil, h.resultErr
	}
	return &awp.Task{}, nil
}

func (h *mockHandler) ListTasks(ctx context.Context, req *awp.ListTasksRequest) (*awp.ListTasksResponse, error) {
	h.lastCallContext, _ = CallContextFrom(ctx)
	if h.resultErr != nil {
		return nil, h.resultErr
	}
	return &awp.ListTasksResponse{}, nil
}

func (h *mockHandler) CancelTask(ctx context.Context, req *awp.CancelTaskRequest) (*awp.Task, error) {
	h.lastCallContext, _ = CallContextFrom(ctx)
	if h.resultErr != nil {
		return nil, h.resultErr
	}
	return &awp.Task{}, nil
}

func (h *mockHandler) SendMessage(ctx context.Context, req *awp.SendMessageRequest) (awp.SendMessageResult, error) {
	h.lastCallContext, _ = CallContextFrom(ctx)
	if h.SendMessageFn != nil {
		return h.SendMessageFn(ctx, req)
	}
	if h.resultErr != nil {
		return nil, h.resultErr
	}
	return &awp.Task{}, nil
}

func (h *mockHandler) SendStreamingMessage(ctx context.Context, req *awp.SendMessageRequest) iter.Seq2[awp.Event, error] {
	if h.SendStreamingMessageFn != nil {
		return h.SendStreamingMessageFn(ctx, req)
	}
	return func(yield func(awp.Event, error) bool) {
		h.lastCallContext, _ = CallContextFrom(ctx)
		if h.resultErr != nil {
			yield(nil, h.resultErr)
			return
		}
		yield(&awp.Task{}, nil)
	}
}

func (h *mockHandler) SubscribeToTask(ctx context.Context, req *awp.SubscribeToTaskRequest) iter.Seq2[awp.Event, error] {
	return func(yield func(awp.Event, error) bool) {
		h.lastCallContext, _ = CallContextFrom(ctx)
		if h.resultErr != nil {
			yield(nil, h.resultErr)
			return
		}
		yield(&awp.Task{}, nil)
	}
}

func (h *mockHandler) GetTaskPushConfig(ctx context.Context, req *awp.GetTaskPushConfigRequest) (*awp.TaskPushConfig, error) {
	h.lastCallContext, _ = CallContextFrom(ctx)
	if h.resultErr != nil {
		return nil, h.resultErr
	}
	return &awp.TaskPushConfig{}, nil
}

func (h *mockHandler) ListTaskPushConfigs(ctx context.Context, req *awp.ListTaskPushConfigRequest) ([]*awp.TaskPushConfig, error) {
	h.lastCallContext, _ = CallContextFrom(ctx)
	if h.resultErr != nil {
		return nil, h.resultErr
	}
	return []*awp.TaskPushConfig{{}}, nil
}

func (h *mockHandler) CreateTaskPushConfig(ctx context.Context, req *awp.CreateTaskPushConfigRequest) (*awp.TaskPushConfig, error) {
	h.lastCallContext, _ = CallContextFrom(ctx)
	if h.resultErr != nil {
		return nil, h.resultErr
	}
	return &awp.TaskPushConfig{}, nil
}

func (h *mockHandler) DeleteTaskPushConfig(ctx context.Context, req *awp.DeleteTaskPushConfigRequest) error {
	h.lastCallContext, _ = CallContextFrom(ctx)
	return h.resultErr
}

func (h *mockHandler) GetExtendedAgentCard(ctx context.Context, req *awp.GetExtendedAgentCardRequest) (*awp.AgentCard, error) {
	h.lastCallContext, _ = CallContextFrom(ctx)
	if h.resultErr != nil {
		return nil, h.resultErr
	}
	return &awp.AgentCard{}, nil
}

type mockInterceptor struct {
	beforeFn func(ctx context.Context, callCtx *CallContext, req *Request) (context.Context, error)
	afterFn  func(ctx context.Context, callCtx *CallContext, resp *Response) error
}

func (mi *mockInterceptor) Before(ctx context.Context, callCtx *CallContext, req *Request) (context.Context, error) {
	if mi.beforeFn != nil {
		return mi.beforeFn(ctx, callCtx, req)
	}
	return ctx, nil
}

func (mi *mockInterceptor) After(ctx context.Context, callCtx *CallContext, resp *Response) error {
	if mi.afterFn != nil {
		return mi.afterFn(ctx, callCtx, resp)
	}
	return nil
}

func handleSingleItemSeq(seq iter.Seq2[awp.Event, error]) (awp.Event, error) {
	count := 0
	var lastEvent awp.Event
	var lastErr error
	for ev, err := range seq {
		lastEvent, lastErr, count = ev, err, count+1
	}
	if count != 1 {
		return nil, fmt.Errorf("got %d events, want 1", count)
	}
	return lastEvent, lastErr
}

var methodCalls = []struct {
	method string
	call   func(ctx context.Context, h RequestHandler) (any, error)
}{
	{
		method: "GetTask",
		call: func(ctx context.Context, h RequestHandler) (any, error) {
			return h.GetTask(ctx, &awp.GetTaskRequest{})
		},
	},
	{
		method: "ListTasks",
		call: func(ctx context.Context, h RequestHandler) (any, error) {
			return h.ListTasks(ctx, &awp.ListTasksRequest{})
		},
	},
	{
		method: "CancelTask",
		call: func(ctx context.Context, h RequestHandler) (any, error) {
			return h.CancelTask(ctx, &awp.CancelTaskRequest{})
		},
	},
	{
		method: "SendMessage",
		call: func(ctx context.Context, h RequestHandler) (any, error) {
			return h.SendMessage(ctx, &awp.SendMessageRequest{})
		},
	},
	{
		method: "SendStreamingMessage",
		call: func(ctx context.Context, h RequestHandler) (any, error) {
			return handleSingleItemSeq(h.SendStreamingMessage(ctx, &awp.SendMessageRequest{}))
		},
	},
	{
		method: "SubscribeToTask",
		call: func(ctx context.Context, h RequestHandler) (any, error) {
			return handleSingleItemSeq(h.SubscribeToTask(ctx, &awp.SubscribeToTaskRequest{}))
		},
	},
	{
		method: "ListTaskPushConfigs",
		call: func(ctx context.Context, h RequestHandler) (any, error) {
			return h.ListTaskPushConfigs(ctx, &awp.ListTaskPushConfigRequest{})
		},
	},
	{
		method: "CreateTaskPushConfig",
		call: func(ctx context.Context, h RequestHandler) (any, error) {
			return h.CreateTaskPushConfig(ctx, &awp.CreateTaskPushConfigRequest{})
		},
	},
	{
		method: "GetTaskPushConfig",
		call: func(ctx context.Context, h RequestHandler) (any, error) {
			return h.GetTaskPushConfig(ctx, &awp.GetTaskPushConfigRequest{})
		},
	},
	{
		method: "DeleteTaskPushConfig",
		call: func(ctx context.Context, h RequestHandler) (any, error) {
			return nil, h.DeleteTaskPushConfig(ctx, &awp.DeleteTaskPushConfigRequest{})
		},
	},
	{
		method: "GetExtendedAgentCard",
		call: func(ctx context.Context, h RequestHandler) (any, error) {
			return h.GetExtendedAgentCard(ctx, &awp.GetExtendedAgentCardRequest{})
		},
	},
}

func TestInterceptedHandler_Auth(t *testing.T) {
	ctx := t.Context()
	mockHandler, mockInterceptor := &mockHandler{}, &mockInterceptor{}
	handler := &InterceptedHandler{Handler: mockHandler, Interceptors: []CallInterceptor{mockInterceptor}}

	var capturedCallCtx *CallContext
	mockHandler.SendMessageFn = func(ctx context.Context, req *awp.SendMessageRequest) (awp.SendMessageResult, error) {
		if callCtx, ok := CallContextFrom(ctx); ok {
			capturedCallCtx = callCtx
		}
		return awp.NewMessage(awp.MessageRoleAgent, awp.NewTextPart("Hi!")), nil
	}

	mockInterceptor.beforeFn = func(ctx context.Context, callCtx *CallContext, req *Request) (context.Context, error) {
		callCtx.User = NewAuthenticatedUser("test", nil)
		return ctx, nil
	}

	_, _ = handler.SendMessage(ctx, &awp.SendMessageRequest{})

	if !capturedCallCtx.User.Authenticated {
		t.Fatal("CallContext.User.Authenticated = false, want true")
	}
	if capturedCallCtx.User.Name != "test" {
		t.Fatalf("CallContext.User.Name = %s, want test", capturedCallCtx.User.Name)
	}
}

func TestInterceptedHandler_RequestResponseModification(t *testing.T) {
	ctx := t.Context()
	mockHandler, mockInterceptor := &mockHandler{}, &mockInterceptor{}
	handler := &InterceptedHandler{Handler: mockHandler, Interceptors: []CallInterceptor{mockInterceptor}}

	var capturedRequest *awp.SendMessageRequest
	mockHandler.SendMessageFn = func(ctx context.Context, req *awp.SendMessageRequest) (awp.SendMessageResult, error) {
		capturedRequest = req
		return awp.NewMessage(awp.MessageRoleAgent, awp.NewTextPart("Hi!")), nil
	}

	wantReqKey, wantReqVal := "reqKey", 42
	mockInterceptor.beforeFn = func(ctx context.Context, callCtx *CallContext, req *Request) (context.Context, error) {
		payload := req.Payload.(*awp.SendMessageRequest)
		payload.Metadata = map[string]any{wantReqKey: wantReqVal}
		return ctx, nil
	}

	wantRespKey, wantRespVal := "respKey", 43
	mockInterceptor.afterFn = func(ctx context.Context, callCtx *CallContext, resp *Response) error {
		payload := resp.Payload.(*awp.Message)
		payload.Metadata = map[string]any{wantRespKey: wantRespVal}
		return nil
	}

	request := &awp.SendMessageRequest{Message: awp.NewMessage(awp.MessageRoleUser, awp.NewTextPart("Hello!"))}
	response, err := handler.SendMessage(ctx, request)
	if mockHandler.lastCallContext.method != "SendMessage" {
		t.Fatalf("handler.SendMessage() CallContext = %v, want method=SendMessage", mockHandler.lastCallContext)
	}
	if err != nil {
		t.Fatalf("handler.SendMessage() error = %v, want nil", err)
	}
	if capturedRequest.Metadata[wantReqKey] != wantReqVal {
		t.Fatalf("SendMessage() Request.Metadata[%q] = %v, want %d", wantReqKey, capturedRequest.Metadata[wantReqKey], wantReqVal)
	}
	responseMsg := response.(*awp.Message)
	if responseMsg.Metadata[wantRespKey] != wantRespVal {
		t.Fatalf("SendMessage() Response.Metadata[%q] = %v, want %d", wantRespKey, responseMsg.Metadata[wantRespKey], wantRespVal)
	}
}

func TestInterceptedHandler_ResponseAndErrorModification(t *testing.T) {
	injectedErr := fmt.Errorf("injected error")
	handlerErr := fmt.Errorf("handler error")

	tests := []struct {
		name          string
		handlerResp   awp.SendMessageResult
		handlerErr    error
		interceptorFn func(ctx context.Context, callCtx *CallContext, resp *Response) error
		wantErr       error
		wantRespText  string
	}{
		{
			name:        "replace response object",
			handlerResp: awp.NewMessage(awp.MessageRoleAgent, awp.NewTextPart("Original!")),
			interceptorFn: func(ctx context.Context, callCtx *CallContext, resp *Response) error {
				resp.Payload = awp.NewMessage(awp.MessageRoleAgent, awp.NewTextPart("Modified!"))
				return nil
			},
			wantRespText: "Modified!",
		},
		{
			name:        "injected error: handler success, interceptor error",
			handlerResp: awp.NewMessage(awp.MessageRoleAgent, awp.NewTextPart("Success!")),
			interceptorFn: func(ctx context.Context, callCtx *CallContext, resp *Response) error {
				resp.Err = injectedErr
				return nil
			},
			wantErr: injectedErr,
		},
		{
			name:       "injected error: handler error, interceptor success",
			handlerErr: handlerErr,
			interceptorFn: func(ctx context.Context, callCtx *CallContext, resp *Response) error {
				if resp.Err != nil {
					resp.Err = nil
					resp.Payload = awp.NewMessage(awp.MessageRoleAgent, awp.NewTextPart("Recovered from error!"))
				}
				return nil
			},
			wantErr:      nil,
			wantRespText: "Recovered from error!",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := t.Context()
			mockHandler, mockInterceptor := &mockHandler{}, &mockInterceptor{}
			handler := &InterceptedHandler{Handler: mockHandler, Interceptors: []CallInterceptor{mockInterceptor}}

			mockHandler.SendMessageFn = func(ctx context.Context, req *awp.SendMessageRequest) (awp.SendMessageResult, error) {
				return tt.handlerResp, tt.handlerErr
			}

			mockInterceptor.afterFn = tt.interceptorFn

			resp, err := handler.SendMessage(ctx, &awp.SendMessageRequest{
				Message: awp.NewMessage(awp.MessageRoleUser, awp.NewTextPart("Hello!")),
			})

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("handler.SendMessage() error = %v, want %v", err, tt.wantErr)
			}

			if tt.wantErr == nil {
				if resp == nil {
					t.Errorf("handler.SendMessage() resp = nil, want %v", tt.wantRespText)
				}
				msg := resp.(*awp.Message)
				if string(msg.Parts[0].Content.(awp.Text)) != tt.wantRespText {
					t.Errorf("handler.SendMessage() resp.Text = %q, want %q", string(msg.Parts[0].Content.(awp.Text)), tt.wantRespText)
				}
			}
		})
	}
}

func TestInterceptedHandler_TypeSafety(t *testing.T) {
	ctx := t.Context()
	mockHandler, mockInterceptor := &mockHandler{}, &mockInterceptor{}
	handler := &InterceptedHandler{Handler: mockHandler, Interceptors: []CallInterceptor{mockInterceptor}}

	mockInterceptor.afterFn = func(ctx context.Context, callCtx *CallContext, resp *Response) error {
		resp.Payload = "not a task"
		return nil
	}

	_, err := handler.GetTask(ctx, &awp.GetTaskRequest{})

	if err == nil {
		t.Fatal("got nil error, want error due to payload type mismatch")
	}
	expectedErrorFragment := "payload type changed"
	if !strings.Contains(err.Error(), expectedErrorFragment) {
		t.Errorf("Error = %q, want it to contain %q", err.Error(), expectedErrorFragment)
	}
}

func TestInterceptedHandler_InterceptorOrdering(t *testing.T) {
	ctx := t.Context()
	mockHandler := &mockHandler{}

	beforeCalls := []int{}
	afterCalls := []int{}
	createInterceptor := func(pos int) *mockInterceptor {
		return &mockInterceptor{
			beforeFn: func(ctx context.Context, callCtx *CallContext, req *Request) (context.Context, error) {
				beforeCalls = append(beforeCalls, pos)
				return ctx, nil
			},
			afterFn: func(ctx context.Context, callCtx *CallContext, resp *Response) error {
				afterCalls = append(afterCalls, pos)
				return nil
			},
		}
	}

	interceptor1, interceptor2 := createInterceptor(1), createInterceptor(2)
	handler := &InterceptedHandler{Handler: mockHandler, Interceptors: []CallInterceptor{interceptor1, interceptor2}}

	_, _ = handler.GetTask(ctx, &awp.GetTaskRequest{})

	wantBefore := []int{1, 2}
	if !reflect.DeepEqual(beforeCalls, wantBefore) {
		t.Errorf("Before() invocation order = %v, want %v", beforeCalls, wantBefore)
	}
	wantAfter := []int{2, 1}
	if !reflect.DeepEqual(afterCalls, wantAfter) {
		t.Errorf("After() invocation order = %v, want %v", afterCalls, wantAfter)
	}
}

func TestInterceptedHandler_EveryStreamValueIntercepted(t *testing.T) {
	ctx := t.Context()
	mockHandler, mockInterceptor := &mockHandler{}, &mockInterceptor{}
	handler := &InterceptedHandler{Handler: mockHandler, Interceptors: []CallInterceptor{mockInterceptor}}

	totalCount := 5
	mockHandler.SendStreamingMessageFn = func(ctx context.Context, req *awp.SendMessageRequest) iter.Seq2[awp.Event, error] {
		return func(yield func(awp.Event, error) bool) {
			for range totalCount {
				if !yield(&awp.TaskStatusUpdateEvent{Metadata: map[string]any{"count": 0}}, nil) {
					return
				}
			}
		}
	}

	countKey := "count"
	afterCount := 0
	mockInterceptor.afterFn = func(ctx context.Context, callCtx *CallContext, resp *Response) error {
		ev := resp.Payload.(*awp.TaskStatusUpdateEvent)
		ev.Metadata[countKey] = afterCount
		afterCount++
		return nil
	}

	count := 0
	request := &awp.SendMessageRequest{Message: awp.NewMessage(awp.MessageRoleUser, awp.NewTextPart("Hello!"))}
	for ev, err := range handler.SendStreamingMessage(ctx, request) {
		if err != nil {
			t.Fatalf("handler.SendStreamingMessage() error %v, want nil", err)
		}
		update, ok := ev.(*awp.TaskStatusUpdateEvent)
		if !ok {
			t.Fatalf("handler.SendStreamingMessage() produced %T, want *awp.TaskStatusUpdateEvent", ev)
		}
		if update.Metadata[countKey] != count {
			t.Fatalf("event.Metadata[%q] = %v, want %v", countKey, update.Metadata[countKey], count)
		}
		count++
	}

	if count != afterCount {
		t.Fatalf("handler.SendStreamingMessage() produced %d events, want %d", count, totalCount)
	}
}

func TestInterceptedHandler_CallContextPropagation(t *testing.T) {
	for _, tc := range methodCalls {
		t.Run(tc.method, func(t *testing.T) {
			ctx := t.Context()
			mockHandler, mockInterceptor := &mockHandler{}, &mockInterceptor{}
			handler := &InterceptedHandler{Handler: mockHandler, Interceptors: []CallInterceptor{mockInterceptor}}

			var beforeCallCtx *CallContext
			mockInterceptor.beforeFn = func(ctx context.Context, callCtx *CallContext, req *Request) (context.Context, error) {
				beforeCallCtx = callCtx
				return ctx, nil
			}
			var afterCallCtx *CallContext
			mockInterceptor.afterFn = func(ctx context.Context, callCtx *CallContext, resp *Response) error {
				afterCallCtx = callCtx
				return nil
			}

			key := "x-test-param"
			wantVal := "test"
			meta := map[string][]string{key: {wantVal}}
			ctx, callCtx := NewCallContext(ctx, NewServiceParams(meta))
			_, _ = tc.call(ctx, handler)

			if beforeCallCtx != afterCallCtx {
				t.Error("want Before() CallContext to be the same as After() CallContext")
			}
			if beforeCallCtx != callCtx {
				t.Error("want CallContext to be the same as provided by the caller")
			}
			if beforeCallCtx.Method() != tc.method {
				t.Errorf("CallContext.Method() = %q, want %q", beforeCallCtx.Method(), tc.method)
			}
			gotVal, ok := beforeCallCtx.ServiceParams().Get(key)
			if !ok || len(gotVal) != 1 || gotVal[0] != wantVal {
				t.Errorf("%s() ServiceParams().Get(%s) = (%v, %v), want ([%q] true)", tc.method, key, gotVal, ok, wantVal)
			}
		})
	}
}

func TestInterceptedHandler_ContextDataPassing(t *testing.T) {
	for _, tc := range methodCalls {
		t.Run(tc.method, func(t *testing.T) {
			ctx := t.Context()
			mockHandler, mockInterceptor := &mockHandler{}, &mockInterceptor{}
			handler := &InterceptedHandler{Handler: mockHandler, Interceptors: []CallInterceptor{mockInterceptor}}

			type contextKey struct{}
			wantVal := 42
			mockInterceptor.beforeFn = func(ctx context.Context, callCtx *CallContext, req *Request) (context.Context, error) {
				return context.WithValue(ctx, contextKey{}, wantVal), nil
			}
			var gotVal any
			mockInterceptor.afterFn = func(ctx context.Context, callCtx *CallContext, resp *Response) error {
				gotVal = ctx.Value(contextKey{})
				return nil
			}
			_, _ = tc.call(ctx, handler)

			if gotVal != wantVal {
				t.Errorf("After() Context.Value() = %v, want %d", gotVal, wantVal)
			}
		})
	}
}

func TestInterceptedHandler_RejectRequest(t *testing.T) {
	for _, tc := range methodCalls {
		t.Run(tc.method, func(t *testing.T) {
			ctx := t.Context()
			mockHandler, mockInterceptor := &mockHandler{}, &mockInterceptor{}
			handler := &InterceptedHandler{Handler: mockHandler, Interceptors: []CallInterceptor{mockInterceptor}}

			wantErr := errors.New("rejected")
			mockInterceptor.beforeFn = func(ctx context.Context, callCtx *CallContext, req *Request) (context.Context, error) {
				return ctx, wantErr
			}
			_, gotErr := tc.call(ctx, handler)

			if mockHandler.lastCallContext != nil {
				t.Error("mockHandler was invoked, want Before to reject request")
			}
			if !errors.Is(gotErr, wantErr) {
				t.Errorf("%s() error = %v, want %v", tc.method, gotErr, wantErr)
			}
		})
	}
}

func TestInterceptedHandler_RejectResponse(t *testing.T) {
	for _, tc := range methodCalls {
		t.Run(tc.method, func(t *testing.T) {
			ctx := t.Context()
			mockHandler, mockInterceptor := &mockHandler{}, &mockInterceptor{}
			handler := &InterceptedHandler{Handler: mockHandler, Interceptors: []CallInterceptor{mockInterceptor}}

			wantInterceptErr := errors.New("ignored")
			mockHandler.resultErr = wantInterceptErr

			wantErr := errors.New("rejected")
			var interceptedErr error
			mockInterceptor.afterFn = func(ctx context.Context, callCtx *CallContext, resp *Response) error {
				interceptedErr = resp.Err
				return wantErr
			}

			_, gotErr := tc.call(ctx, handler)
			if mockHandler.lastCallContext.Method() != tc.method {
				t.Errorf("%s() CallContext.Method() = %v, want %s", tc.method, mockHandler.lastCallContext.Method(), tc.method)
			}
			if !errors.Is(interceptedErr, wantInterceptErr) {
				t.Errorf("After() Response.Err = %v, want %v", interceptedErr, wantInterceptErr)
			}
			if !errors.Is(gotErr, wantErr) {
				t.Errorf("%s() error = %v, want %v", tc.method, gotErr, wantErr)
			}
		})
	}
}

func TestInterceptedHandler_ProtocolVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantErr error
	}{
		{name: "no version param accepted", version: ""},
		{name: "current version accepted", version: string(awp.Version)},
		{name: "same major accepted", version: "1.3"},
		{name: "malformed version rejected", version: "not-a-version", wantErr: awp.ErrVersionNotSupported},
		{name: "different major rejected", version: "2.0", wantErr: awp.ErrVersionNotSupported},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := t.Context()
			mockHandler := &mockHandler{}
			handler := &InterceptedHandler{Handler: mockHandler}

			params := map[string][]string{}
			if tc.version != "" {
				params[VersionParam] = []string{tc.version}
			}
			ctx, _ = NewCallContext(ctx, NewServiceParams(params))

			_, err := handler.GetTask(ctx, &awp.GetTaskRequest{ID: "task-1"})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("GetTask() error = %v, want %v", err, tc.wantErr)
			}
			if tc.wantErr != nil && mockHandler.lastCallContext != nil {
				t.Fatal("handler was invoked, want version check to reject the call")
			}
		})
	}
}

func TestInterceptedHandler_NilRequest(t *testing.T) {
	nilCalls := []struct {
		method string
		call   func(ctx context.Context, h RequestHandler) error
	}{
		{"GetTask", func(ctx context.Context, h RequestHandler) error {
			_, err := h.GetTask(ctx, nil)
			return err
		}},
		{"ListTasks", func(ctx context.Context, h RequestHandler) error {
			_, err := h.ListTasks(ctx, nil)
			return err
		}},
		{"CancelTask", func(ctx context.Context, h RequestHandler) error {
			_, err := h.CancelTask(ctx, nil)
			return err
		}},
		{"SendMessage", func(ctx context.Context, h RequestHandler) error {
			_, err := h.SendMessage(ctx, nil)
			return err
		}},
		{"SendStreamingMessage", func(ctx context.Context, h RequestHandler) error {
			_, err := handleSingleItemSeq(h.SendStreamingMessage(ctx, nil))
			return err
		}},
		{"SubscribeToTask", func(ctx context.Context, h RequestHandler) error {
			_, err := handleSingleItemSeq(h.SubscribeToTask(ctx, nil))
			return err
		}},
		{"GetTaskPushConfig", func(ctx context.Context, h RequestHandler) error {
			_, err := h.GetTaskPushConfig(ctx, nil)
			return err
		}},
		{"ListTaskPushConfigs", func(ctx context.Context, h RequestHandler) error {
			_, err := h.ListTaskPushConfigs(ctx, nil)
			return err
		}},
		{"CreateTaskPushConfig", func(ctx context.Context, h RequestHandler) error {
			_, err := h.CreateTaskPushConfig(ctx, nil)
			return err
		}},
		{"DeleteTaskPushConfig", func(ctx context.Context, h RequestHandler) error {
			return h.DeleteTaskPushConfig(ctx, nil)
		}},
		{"GetExtendedAgentCard", func(ctx context.Context, h RequestHandler) error {
			_, err := h.GetExtendedAgentCard(ctx, nil)
			return err
		}},
	}

	for _, tc := range nilCalls {
		t.Run(tc.method, func(t *testing.T) {
			mockHandler := &mockHandler{}
			handler := &InterceptedHandler{Handler: mockHandler}

			err := tc.call(t.Context(), handler)
			if !errors.Is(err, awp.ErrInvalidParams) {
				t.Fatalf("%s(nil) error = %v, want %v", tc.method, err, awp.ErrInvalidParams)
			}
			if mockHandler.lastCallContext != nil {
				t.Fatalf("%s(nil) reached the wrapped handler", tc.method)
			}
		})
	}
}

func TestInterceptedHandler_TenantFromRequest(t *testing.T) {
	ctx := t.Context()
	mockHandler := &mockHandler{}
	handler := &InterceptedHandler{Handler: mockHandler}

	if _, err := handler.GetTask(ctx, &awp.GetTaskRequest{ID: "task-1", Tenant: "acme"}); err != nil {
		t.Fatalf("GetTask() error = %v, want nil", err)
	}
	if got := mockHandler.lastCallContext.Tenant(); got != "acme" {
		t.Fatalf("CallContext.Tenant() = %q, want %q", got, "acme")
	}
}
