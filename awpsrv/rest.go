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
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/internal/pathtemplate"
	"github.com/awprotocol/awp-go/internal/rest"
	"github.com/awprotocol/awp-go/internal/sse"
	"github.com/awprotocol/awp-go/log"
)

// NewRESTHandler creates an [http.Handler] which implements the HTTP+JSON
// protocol binding. Streaming operations respond with SSE.
func NewRESTHandler(handler RequestHandler, options ...TransportOption) http.Handler {
	config := &TransportConfig{}
	for _, option := range options {
		option(config)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+rest.MakeSendMessagePath(), handleSendMessage(handler))
	mux.HandleFunc("POST "+rest.MakeStreamMessagePath(), handleStreamMessage(handler, config))
	mux.HandleFunc("GET "+rest.MakeGetTaskPath("{id}"), handleGetTask(handler))
	mux.HandleFunc("GET "+rest.MakeListTasksPath(), handleListTasks(handler))
	mux.HandleFunc("POST /tasks/{idAndAction}", handlePOSTTasks(handler, config))
	mux.HandleFunc("POST "+rest.MakeCreatePushConfigPath("{id}"), handleCreateTaskPushConfig(handler))
	mux.HandleFunc("GET "+rest.MakeGetPushConfigPath("{id}", "{configId}"), handleGetTaskPushConfig(handler))
	mux.HandleFunc("GET "+rest.MakeListPushConfigsPath("{id}"), handleListTaskPushConfigs(handler))
	mux.HandleFunc("DELETE "+rest.MakeDeletePushConfigPath("{id}", "{configId}"), handleDeleteTaskPushConfig(handler))
	mux.HandleFunc("GET "+rest.MakeGetExtendedAgentCardPath(), handleGetExtendedAgentCard(handler))

	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		ctx, _ := NewCallContext(req.Context(), NewServiceParams(req.Header))
		mux.ServeHTTP(rw, req.WithContext(ctx))
	})
}

// NewTenantRESTHandler creates an [http.Handler] which implements the
// HTTP+JSON protocol binding for multi-tenant deployments. It extracts tenant
// information from the URL path based on the provided template, strips the
// prefix, and attaches the tenant ID (the part inside {}) to the request
// context. Examples of templates:
//   - "/{*}"
//   - "/locations/*/projects/{*}"
//   - "/{locations/*/projects/*}"
func NewTenantRESTHandler(tenantTemplate string, handler RequestHandler, options ...TransportOption) http.Handler {
	compiledTemplate, err := pathtemplate.New(tenantTemplate)
	if err != nil {
		panic(fmt.Errorf("invalid template: %w", err))
	}
	restHandler := NewRESTHandler(handler, options...)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		matchResult, ok := compiledTemplate.Match(r.URL.Path)
		if !ok {
			http.NotFound(w, r)
			return
		}

		r2 := new(http.Request)
		*r2 = *r
		r2 = r2.WithContext(attachTenant(r.Context(), matchResult.Captured))
		r2.URL = new(url.URL)
		*r2.URL = *r.URL
		r2.URL.Path = matchResult.Rest
		r2.URL.RawPath = ""
		restHandler.ServeHTTP(w, r2)
	})
}

func handleSendMessage(handler RequestHandler) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		var message awp.SendMessageRequest
		if err := json.NewDecoder(req.Body).Decode(&message); err != nil {
			writeRESTError(ctx, rw, awp.ErrParseError, awp.TaskID(""))
			return
		}
		fillTenant(ctx, &message.Tenant)

		result, err := handler.SendMessage(ctx, &message)
		if err != nil {
			writeRESTError(ctx, rw, err, awp.TaskID(""))
			return
		}

		if err := json.NewEncoder(rw).Encode(awp.StreamResponse{Event: result}); err != nil {
			log.Error(ctx, "failed to encode response", err)
		}
	}
}

func handleStreamMessage(handler RequestHandler, config *TransportConfig) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		var message awp.SendMessageRequest
		if err := json.NewDecoder(req.Body).Decode(&message); err != nil {
			writeRESTError(ctx, rw, awp.ErrParseError, awp.TaskID(""))
			return
		}
		fillTenant(ctx, &message.Tenant)
		serveEventStream(handler.SendStreamingMessage(ctx, &message), rw, req, config)
	}
}

func handleGetTask(handler RequestHandler) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		taskID := req.PathValue("id")
		if taskID == "" {
			writeRESTError(ctx, rw, awp.ErrInvalidRequest, awp.TaskID(""))
			return
		}
		var historyLength *int
		if raw := req.URL.Query().Get("historyLength"); raw != "" {
			val, err := strconv.Atoi(raw)
			if err != nil {
				writeRESTError(ctx, rw, awp.ErrInvalidRequest, awp.TaskID(taskID))
				return
			}
			historyLength = &val
		}
		params := &awp.GetTaskRequest{
			ID:            awp.TaskID(taskID),
			HistoryLength: historyLength,
		}
		fillTenant(ctx, &params.Tenant)

		result, err := handler.GetTask(ctx, params)
		if err != nil {
			writeRESTError(ctx, rw, err, awp.TaskID(taskID))
			return
		}

		if err := json.NewEncoder(rw).Encode(result); err != nil {
			log.Error(ctx, "failed to encode response", err)
		}
	}
}

func handleListTasks(handler RequestHandler) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		query := req.URL.Query()
		request := &awp.ListTasksRequest{}
		var err error
		parse := func(key string, target any) {
			val := query.Get(key)
			if val == "" {
				return
			}
			switch t := target.(type) {
			case *string:
				*t = val
			case *awp.TaskState:
				*t = awp.TaskState(val)
			case *int:
				*t, err = strconv.Atoi(val)
			case **int:
				var parsed int
				parsed, err = strconv.Atoi(val)
				*t = &parsed
			case *bool:
				*t, err = strconv.ParseBool(val)
			case **time.Time:
				var parsed time.Time
				parsed, err = time.Parse(time.RFC3339, val)
				*t = &parsed
			}
		}
		parse("contextId", &request.ContextID)
		parse("status", &request.Status)
		parse("pageSize", &request.PageSize)
		parse("pageToken", &request.PageToken)
		parse("historyLength", &request.HistoryLength)
		parse("statusTimestampAfter", &request.StatusTimestampAfter)
		parse("includeArtifacts", &request.IncludeArtifacts)
		fillTenant(ctx, &request.Tenant)
		if err != nil {
			writeRESTError(ctx, rw, awp.ErrInvalidRequest, awp.TaskID(""))
			return
		}
		result, err := handler.ListTasks(ctx, request)
		if err != nil {
			writeRESTError(ctx, rw, err, awp.TaskID(""))
			return
		}
		if err := json.NewEncoder(rw).Encode(result); err != nil {
			log.Error(ctx, "failed to encode response", err)
		}
	}
}

func handlePOSTTasks(handler RequestHandler, config *TransportConfig) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		idAndAction := req.PathValue("idAndAction")
		if idAndAction == "" {
			writeRESTError(ctx, rw, awp.ErrInvalidRequest, awp.TaskID(""))
			return
		}

		if taskID, ok := strings.CutSuffix(idAndAction, ":cancel"); ok {
			handleCancelTask(handler, taskID, rw, req)
		} else if taskID, ok := strings.CutSuffix(idAndAction, ":subscribe"); ok {
			subReq := &awp.SubscribeToTaskRequest{ID: awp.TaskID(taskID)}
			fillTenant(ctx, &subReq.Tenant)
			serveEventStream(handler.SubscribeToTask(ctx, subReq), rw, req, config)
		} else {
			writeRESTError(ctx, rw, awp.ErrInvalidRequest, awp.TaskID(""))
		}
	}
}

func handleCancelTask(handler RequestHandler, taskID string, rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	params := &awp.CancelTaskRequest{ID: awp.TaskID(taskID)}
	fillTenant(ctx, &params.Tenant)

	result, err := handler.CancelTask(ctx, params)
	if err != nil {
		writeRESTError(ctx, rw, err, awp.TaskID(taskID))
		return
	}

	if err := json.NewEncoder(rw).Encode(result); err != nil {
		log.Error(ctx, "failed to encode response", err)
	}
}

// serveEventStream writes an event sequence as SSE. Errors from the sequence
// are delivered as a problem-detail data block terminating the stream.
func serveEventStream(eventSequence iter.Seq2[awp.Event, error], rw http.ResponseWriter, req *http.Request, config *TransportConfig) {
	ctx := req.Context()

	sseWriter, err := sse.NewWriter(rw)
	if err != nil {
		writeRESTError(ctx, rw, err, awp.TaskID(""))
		return
	}
	sseWriter.WriteHeaders()

	sseChan, panicChan := make(chan []byte), make(chan error)
	requestCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				panicChan <- fmt.Errorf("%v\n%s", r, debug.Stack())
			} else {
				close(sseChan)
			}
		}()

		emit := func(data []byte) bool {
			select {
			case <-requestCtx.Done():
				return false
			case sseChan <- data:
				return true
			}
		}

		for event, err := range eventSequence {
			if err != nil {
				if data, marshalErr := json.Marshal(rest.ToRESTError(err, awp.TaskID(""))); marshalErr == nil {
					emit(data)
				}
				return
			}

			data, err := json.Marshal(awp.StreamResponse{Event: event})
			if err != nil {
				if data, marshalErr := json.Marshal(rest.ToRESTError(err, awp.TaskID(""))); marshalErr == nil {
					emit(data)
				}
				return
			}
			if !emit(data) {
				return
			}
		}
	}()

	var keepAliveChan <-chan time.Time
	if config.KeepAliveInterval > 0 {
		ticker := time.NewTicker(config.KeepAliveInterval)
		defer ticker.Stop()
		keepAliveChan = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-panicChan:
			if config.PanicHandler == nil {
				panic(err)
			}
			data, marshalErr := json.Marshal(rest.ToRESTError(config.PanicHandler(err), awp.TaskID("")))
			if marshalErr != nil {
				log.Error(ctx, "failed to marshal error response", marshalErr)
				return
			}
			if err := sseWriter.WriteData(ctx, data); err != nil {
				log.Error(ctx, "failed to write SSE data", err)
			}
			return
		case <-keepAliveChan:
			if err := sseWriter.WriteKeepAlive(ctx); err != nil {
				log.Error(ctx, "failed to write keep-alive", err)
				return
			}
		case data, ok := <-sseChan:
			if !ok {
				return
			}
			if err := sseWriter.WriteData(ctx, data); err != nil {
				log.Error(ctx, "failed to write SSE data", err)
				return
			}
		}
	}
}

func handleCreateTaskPushConfig(handler RequestHandler) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		taskID := req.PathValue("id")
		if taskID == "" {
			writeRESTError(ctx, rw, awp.ErrInvalidRequest, awp.TaskID(taskID))
			return
		}

		config := &awp.PushConfig{}
		if err := json.NewDecoder(req.Body).Decode(config); err != nil {
			writeRESTError(ctx, rw, awp.ErrParseError, awp.TaskID(taskID))
			return
		}

		params := &awp.CreateTaskPushConfigRequest{
			TaskID: awp.TaskID(taskID),
			Config: *config,
		}
		fillTenant(ctx, &params.Tenant)

		result, err := handler.CreateTaskPushConfig(ctx, params)
		if err != nil {
			writeRESTError(ctx, rw, err, awp.TaskID(taskID))
			return
		}

		if err := json.NewEncoder(rw).Encode(result); err != nil {
			log.Error(ctx, "failed to encode response", err)
		}
	}
}

func handleGetTaskPushConfig(handler RequestHandler) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		taskID := req.PathValue("id")
		configID := req.PathValue("configId")
		if taskID == "" || configID == "" {
			writeRESTError(ctx, rw, awp.ErrInvalidRequest, awp.TaskID(taskID))
			return
		}

		params := &awp.GetTaskPushConfigRequest{
			TaskID: awp.TaskID(taskID),
			ID:     configID,
		}
		fillTenant(ctx, &params.Tenant)

		result, err := handler.GetTaskPushConfig(ctx, params)
		if err != nil {
			writeRESTError(ctx, rw, err, awp.TaskID(taskID))
			return
		}

		if err := json.NewEncoder(rw).Encode(result); err != nil {
			log.Error(ctx, "failed to encode response", err)
		}
	}
}

func handleListTaskPushConfigs(handler RequestHandler) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		taskID := req.PathValue("id")
		if taskID == "" {
			writeRESTError(ctx, rw, awp.ErrInvalidRequest, awp.TaskID(taskID))
			return
		}

		params := &awp.ListTaskPushConfigRequest{
			TaskID: awp.TaskID(taskID),
		}
		fillTenant(ctx, &params.Tenant)

		result, err := handler.ListTaskPushConfigs(ctx, params)
		if err != nil {
			writeRESTError(ctx, rw, err, awp.TaskID(taskID))
			return
		}

		if err := json.NewEncoder(rw).Encode(result); err != nil {
			log.Error(ctx, "failed to encode response", err)
		}
	}
}

func handleDeleteTaskPushConfig(handler RequestHandler) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		taskID := req.PathValue("id")
		configID := req.PathValue("configId")
		if taskID == "" || configID == "" {
			writeRESTError(ctx, rw, awp.ErrInvalidRequest, awp.TaskID(taskID))
			return
		}

		params := &awp.DeleteTaskPushConfigRequest{
			TaskID: awp.TaskID(taskID),
			ID:     configID,
		}
		fillTenant(ctx, &params.Tenant)

		if err := handler.DeleteTaskPushConfig(ctx, params); err != nil {
			writeRESTError(ctx, rw, err, awp.TaskID(taskID))
			return
		}
		rw.WriteHeader(http.StatusNoContent)
	}
}

func handleGetExtendedAgentCard(handler RequestHandler) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		params := &awp.GetExtendedAgentCardRequest{}
		fillTenant(ctx, &params.Tenant)
		result, err := handler.GetExtendedAgentCard(ctx, params)
		if err != nil {
			writeRESTError(ctx, rw, err, awp.TaskID(""))
			return
		}

		if err := json.NewEncoder(rw).Encode(result); err != nil {
			log.Error(ctx, "failed to encode response", err)
		}
	}
}

func writeRESTError(ctx context.Context, rw http.ResponseWriter, err error, taskID awp.TaskID) {
	errResp := rest.ToRESTError(err, taskID)
	rw.Header().Set("Content-Type", "application/problem+json")
	rw.WriteHeader(errResp.Status)

	if err := json.NewEncoder(rw).Encode(errResp); err != nil {
		log.Error(ctx, "failed to write error response", err)
	}
}

type tenantKeyType struct{}

func fillTenant(ctx context.Context, tenant *string) {
	if t := tenantFromContext(ctx); t != "" {
		*tenant = t
	}
}

func attachTenant(parent context.Context, tenant string) context.Context {
	return context.WithValue(parent, tenantKeyType{}, tenant)
}

func tenantFromContext(ctx context.Context) string {
	if tenant, ok := ctx.Value(tenantKeyType{}).(string); ok {
		return tenant
	}
	return ""
}
