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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/internal/rest"
	"github.com/awprotocol/awp-go/internal/sse"
	"github.com/awprotocol/awp-go/internal/testutil"
)

func restTestServer(t *testing.T, executor AgentExecutor, store *testutil.TestTaskStore, options ...RequestHandlerOption) *httptest.Server {
	t.Helper()
	options = append([]RequestHandlerOption{WithTaskStore(store)}, options...)
	server := httptest.NewServer(NewRESTHandler(NewHandler(executor, options...)))
	t.Cleanup(server.Close)
	return server
}

func doRESTRequest(t *testing.T, method, url string, body []byte) *http.Response {
	t.Helper()
	var reader *bytes.Buffer
	if body == nil {
		reader = bytes.NewBuffer(nil)
	} else {
		reader = bytes.NewBuffer(body)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, url, reader)
	if err != nil {
		t.Fatalf("http.NewRequestWithContext() error = %v", err)
	}
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		t.Fatalf("client.Do() error = %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeRESTError(t *testing.T, resp *http.Response) *rest.Error {
	t.Helper()
	if got := resp.Header.Get("Content-Type"); got != "application/problem+json" {
		t.Fatalf("error Content-Type = %q, want %q", got, "application/problem+json")
	}
	var restErr rest.Error
	if err := json.NewDecoder(resp.Body).Decode(&restErr); err != nil {
		t.Fatalf("json.Decode() error = %v", err)
	}
	return &restErr
}

func TestREST_GetTask(t *testing.T) {
	task := &awp.Task{
		ID:        "task-1",
		ContextID: "ctx-1",
		Status:    awp.TaskStatus{State: awp.TaskStateWorking},
		History: []*awp.Message{
			newTaskMessage("m1", "first"),
			newTaskMessage("m2", "second"),
		},
	}
	store := testutil.NewTestTaskStore().WithTasks(t, task)
	server := restTestServer(t, &mockAgentExecutor{}, store)

	t.Run("found", func(t *testing.T) {
		resp := doRESTRequest(t, http.MethodGet, server.URL+rest.MakeGetTaskPath("task-1"), nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var got awp.Task
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatalf("json.Decode() error = %v", err)
		}
		if diff := cmp.Diff(task, &got, eventDiffOpts); diff != "" {
			t.Fatalf("task mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("history length query param", func(t *testing.T) {
		resp := doRESTRequest(t, http.MethodGet, server.URL+rest.MakeGetTaskPath("task-1")+"?historyLength=1", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var got awp.Task
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatalf("json.Decode() error = %v", err)
		}
		if len(got.History) != 1 || got.History[0].ID != "m2" {
			t.Fatalf("history = %+v, want only the last message", got.History)
		}
	})

	t.Run("invalid history length", func(t *testing.T) {
		resp := doRESTRequest(t, http.MethodGet, server.URL+rest.MakeGetTaskPath("task-1")+"?historyLength=abc", nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("not found", func(t *testing.T) {
		resp := doRESTRequest(t, http.MethodGet, server.URL+rest.MakeGetTaskPath("ghost"), nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", resp.StatusCode)
		}
		restErr := decodeRESTError(t, resp)
		if restErr.Title != "Task Not Found" || restErr.TaskID != "ghost" {
			t.Fatalf("problem detail = %+v, want Task Not Found for ghost", restErr)
		}
	})
}

func TestREST_SendMessage(t *testing.T) {
	executor := &mockAgentExecutor{
		ExecuteFunc: func(ctx context.Context, execCtx *ExecutorContext, updater *TaskUpdater) error {
			return updater.Reply(ctx, awp.NewTextPart("hello"))
		},
	}
	server := restTestServer(t, executor, testutil.NewTestTaskStore())

	t.Run("message response", func(t *testing.T) {
		body := mustMarshal(t, &awp.SendMessageRequest{
			Message: awp.NewMessage(awp.MessageRoleUser, awp.NewTextPart("hi")),
		})
		resp := doRESTRequest(t, http.MethodPost, server.URL+rest.MakeSendMessagePath(), body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var envelope awp.StreamResponse
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			t.Fatalf("json.Decode() error = %v", err)
		}
		msg, ok := envelope.Event.(*awp.Message)
		if !ok {
			t.Fatalf("result type = %T, want *awp.Message", envelope.Event)
		}
		if string(msg.Parts[0].Content.(awp.Text)) != "hello" {
			t.Fatalf("message text = %q, want %q", msg.Parts[0].Content, "hello")
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		resp := doRESTRequest(t, http.MethodPost, server.URL+rest.MakeSendMessagePath(), []byte("{"))
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
		if restErr := decodeRESTError(t, resp); restErr.Title != "Parse Error" {
			t.Fatalf("problem title = %q, want %q", restErr.Title, "Parse Error")
		}
	})

	t.Run("validation error", func(t *testing.T) {
		body := mustMarshal(t, &awp.SendMessageRequest{})
		resp := doRESTRequest(t, http.MethodPost, server.URL+rest.MakeSendMessagePath(), body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestREST_StreamMessage(t *testing.T) {
	executor := &mockAgentExecutor{
		ExecuteFunc: func(ctx context.Context, execCtx *ExecutorContext, updater *TaskUpdater) error {
			if err := updater.Submit(ctx); err != nil {
				return err
			}
			return updater.Complete(ctx, nil)
		},
	}
	server := restTestServer(t, executor, testutil.NewTestTaskStore())

	body := mustMarshal(t, &awp.SendMessageRequest{
		Message: awp.NewMessage(awp.MessageRoleUser, awp.NewTextPart("hi")),
	})
	resp := doRESTRequest(t, http.MethodPost, server.URL+rest.MakeStreamMessagePath(), body)
	if got := resp.Header.Get("Content-Type"); got != sse.ContentEventStream {
		t.Fatalf("Content-Type = %q, want %q", got, sse.ContentEventStream)
	}

	var states []awp.TaskState
	for data, err := range sse.ParseDataStream(resp.Body) {
		if err != nil {
			t.Fatalf("sse.ParseDataStream() error = %v", err)
		}
		var envelope awp.StreamResponse
		if err := json.Unmarshal(data, &envelope); err != nil {
			t.Fatalf("json.Unmarshal(%q) error = %v", data, err)
		}
		switch ev := envelope.Event.(type) {
		case *awp.Task:
			states = append(states, ev.Status.State)
		case *awp.TaskStatusUpdateEvent:
			states = append(states, ev.Status.State)
		default:
			t.Fatalf("unexpected event type %T", envelope.Event)
		}
	}

	want := []awp.TaskState{awp.TaskStateSubmitted, awp.TaskStateCompleted}
	if diff := cmp.Diff(want, states); diff != "" {
		t.Fatalf("streamed states mismatch (-want +got):\n%s", diff)
	}
}

func TestREST_CancelTask(t *testing.T) {
	executor := &mockAgentExecutor{
		CancelFunc: func(ctx context.Context, execCtx *ExecutorContext, updater *TaskUpdater) error {
			return updater.Cancel(ctx, nil)
		},
	}
	store := testutil.NewTestTaskStore().WithTasks(t, newWorkingTask())
	server := restTestServer(t, executor, store)

	t.Run("canceled", func(t *testing.T) {
		resp := doRESTRequest(t, http.MethodPost, server.URL+rest.MakeCancelTaskPath("task-1"), nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var got awp.Task
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatalf("json.Decode() error = %v", err)
		}
		if got.Status.State != awp.TaskStateCanceled {
			t.Fatalf("task state = %q, want %q", got.Status.State, awp.TaskStateCanceled)
		}
	})

	t.Run("unknown task", func(t *testing.T) {
		resp := doRESTRequest(t, http.MethodPost, server.URL+rest.MakeCancelTaskPath("ghost"), nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		resp := doRESTRequest(t, http.MethodPost, server.URL+"/tasks/task-1:explode", nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestREST_SubscribeToTask(t *testing.T) {
	seed := &awp.Task{ID: "task-1", ContextID: "ctx-1", Status: awp.TaskStatus{State: awp.TaskStateCompleted}}
	store := testutil.NewTestTaskStore().WithTasks(t, seed)
	server := restTestServer(t, &mockAgentExecutor{}, store)

	t.Run("settled task snapshot", func(t *testing.T) {
		resp := doRESTRequest(t, http.MethodPost, server.URL+rest.MakeSubscribeTaskPath("task-1"), nil)
		var events []awp.Event
		for data, err := range sse.ParseDataStream(resp.Body) {
			if err != nil {
				t.Fatalf("sse.ParseDataStream() error = %v", err)
			}
			var envelope awp.StreamResponse
			if err := json.Unmarshal(data, &envelope); err != nil {
				t.Fatalf("json.Unmarshal(%q) error = %v", data, err)
			}
			events = append(events, envelope.Event)
		}
		if len(events) != 1 {
			t.Fatalf("received %d events, want 1", len(events))
		}
		task, ok := events[0].(*awp.Task)
		if !ok || task.Status.State != awp.TaskStateCompleted {
			t.Fatalf("event = %+v, want the completed task snapshot", events[0])
		}
	})

	t.Run("unknown task ends stream with problem detail", func(t *testing.T) {
		resp := doRESTRequest(t, http.MethodPost, server.URL+rest.MakeSubscribeTaskPath("ghost"), nil)
		var problems []rest.Error
		for data, err := range sse.ParseDataStream(resp.Body) {
			if err != nil {
				t.Fatalf("sse.ParseDataStream() error = %v", err)
			}
			var restErr rest.Error
			if err := json.Unmarshal(data, &restErr); err != nil {
				t.Fatalf("json.Unmarshal(%q) error = %v", data, err)
			}
			problems = append(problems, restErr)
		}
		if len(problems) != 1 || problems[0].Title != "Task Not Found" {
			t.Fatalf("problems = %+v, want a single Task Not Found detail", problems)
		}
	})
}

func TestREST_ListTasks(t *testing.T) {
	t1 := &awp.Task{ID: "t1", ContextID: "ctx-a", Status: awp.TaskStatus{State: awp.TaskStateCompleted}}
	t2 := &awp.Task{ID: "t2", ContextID: "ctx-b", Status: awp.TaskStatus{State: awp.TaskStateWorking}}
	store := testutil.NewTestTaskStore().WithTasks(t, t1, t2)
	server := restTestServer(t, &mockAgentExecutor{}, store)

	t.Run("filter by context", func(t *testing.T) {
		resp := doRESTRequest(t, http.MethodGet, server.URL+rest.MakeListTasksPath()+"?contextId=ctx-a", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var got awp.ListTasksResponse
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatalf("json.Decode() error = %v", err)
		}
		if len(got.Tasks) != 1 || got.Tasks[0].ID != "t1" {
			t.Fatalf("tasks = %+v, want [t1]", got.Tasks)
		}
	})

	t.Run("filter by status", func(t *testing.T) {
		resp := doRESTRequest(t, http.MethodGet, server.URL+rest.MakeListTasksPath()+"?status=working", nil)
		var got awp.ListTasksResponse
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatalf("json.Decode() error = %v", err)
		}
		if len(got.Tasks) != 1 || got.Tasks[0].ID != "t2" {
			t.Fatalf("tasks = %+v, want [t2]", got.Tasks)
		}
	})

	t.Run("invalid page size", func(t *testing.T) {
		resp := doRESTRequest(t, http.MethodGet, server.URL+rest.MakeListTasksPath()+"?pageSize=abc", nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestREST_PushConfigs(t *testing.T) {
	store := testutil.NewTestTaskStore().WithTasks(t, newWorkingTask())
	server := restTestServer(t, &mockAgentExecutor{}, store,
		WithPushNotifications(testutil.NewTestPushConfigStore(), testutil.NewTestPushSender(t)))

	body := mustMarshal(t, &awp.PushConfig{URL: "https://hooks.example.com/cb"})
	resp := doRESTRequest(t, http.MethodPost, server.URL+rest.MakeCreatePushConfigPath("task-1"), body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create status = %d, want 200", resp.StatusCode)
	}
	var created awp.TaskPushConfig
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("json.Decode() error = %v", err)
	}
	if created.TaskID != "task-1" || created.Config.ID == "" {
		t.Fatalf("created = %+v, want a config with a generated ID", created)
	}

	resp = doRESTRequest(t, http.MethodGet, server.URL+rest.MakeGetPushConfigPath("task-1", created.Config.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}
	var got awp.TaskPushConfig
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("json.Decode() error = %v", err)
	}
	if diff := cmp.Diff(&created, &got); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	resp = doRESTRequest(t, http.MethodGet, server.URL+rest.MakeListPushConfigsPath("task-1"), nil)
	var listed []*awp.TaskPushConfig
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		t.Fatalf("json.Decode() error = %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("listed %d configs, want 1", len(listed))
	}

	resp = doRESTRequest(t, http.MethodDelete, server.URL+rest.MakeDeletePushConfigPath("task-1", created.Config.ID), nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}

	resp = doRESTRequest(t, http.MethodGet, server.URL+rest.MakeGetPushConfigPath("task-1", created.Config.ID), nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("get after delete status = %d, want 500", resp.StatusCode)
	}
}

func TestREST_GetExtendedAgentCard(t *testing.T) {
	server := restTestServer(t, &mockAgentExecutor{}, testutil.NewTestTaskStore(),
		WithExtendedAgentCard(newTestCard()))

	resp := doRESTRequest(t, http.MethodGet, server.URL+rest.MakeGetExtendedAgentCardPath(), nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for unauthenticated caller", resp.StatusCode)
	}
	if restErr := decodeRESTError(t, resp); restErr.Title != "Unauthenticated" {
		t.Fatalf("problem title = %q, want %q", restErr.Title, "Unauthenticated")
	}
}

func TestREST_TenantHandler(t *testing.T) {
	task := newWorkingTask()
	store := testutil.NewTestTaskStore().WithTasks(t, task)

	tenants := make(chan string, 1)
	interceptor := &mockInterceptor{
		beforeFn: func(ctx context.Context, callCtx *CallContext, req *Request) (context.Context, error) {
			tenants <- callCtx.Tenant()
			return ctx, nil
		},
	}
	handler := NewHandler(&mockAgentExecutor{}, WithTaskStore(store), WithCallInterceptor(interceptor))
	server := httptest.NewServer(NewTenantRESTHandler("/{*}", handler))
	t.Cleanup(server.Close)

	resp := doRESTRequest(t, http.MethodGet, server.URL+"/acme"+rest.MakeGetTaskPath("task-1"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := <-tenants; got != "acme" {
		t.Fatalf("tenant = %q, want %q", got, "acme")
	}

	resp = doRESTRequest(t, http.MethodGet, server.URL+rest.MakeGetTaskPath("task-1"), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status for unmatched path = %d, want 404", resp.StatusCode)
	}
}
