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
	"errors"
	"fmt"
	"iter"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/internal/jsonrpc"
	"github.com/awprotocol/awp-go/internal/sse"
	"github.com/awprotocol/awp-go/log"
)

type jsonrpcHandler struct {
	handler           RequestHandler
	keepAliveInterval time.Duration
	panicHandler      func(r any) error
}

// NewJSONRPCHandler creates an [http.Handler] serving the protocol over
// JSON-RPC 2.0, with SSE responses for the streaming methods.
func NewJSONRPCHandler(handler RequestHandler, options ...TransportOption) http.Handler {
	config := &TransportConfig{}
	for _, option := range options {
		option(config)
	}
	return &jsonrpcHandler{
		handler:           handler,
		keepAliveInterval: config.KeepAliveInterval,
		panicHandler:      config.PanicHandler,
	}
}

func (h *jsonrpcHandler) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	ctx, _ = NewCallContext(ctx, NewServiceParams(req.Header))

	if req.Method != http.MethodPost {
		h.writeJSONRPCError(ctx, rw, awp.ErrInvalidRequest, nil)
		return
	}

	defer func() {
		if err := req.Body.Close(); err != nil {
			log.Error(ctx, "failed to close request body", err)
		}
	}()

	var payload jsonrpc.ServerRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		h.writeJSONRPCError(ctx, rw, handleUnmarshalError(err), nil)
		return
	}

	if !jsonrpc.IsValidID(payload.ID) {
		h.writeJSONRPCError(ctx, rw, awp.ErrInvalidRequest, nil)
		return
	}

	if payload.JSONRPC != jsonrpc.Version {
		h.writeJSONRPCError(ctx, rw, awp.ErrInvalidRequest, payload.ID)
		return
	}

	if payload.Method == jsonrpc.MethodTasksResubscribe || payload.Method == jsonrpc.MethodMessageStream {
		h.handleStreamingRequest(ctx, rw, &payload)
	} else {
		h.handleRequest(ctx, rw, &payload)
	}
}

func (h *jsonrpcHandler) handleRequest(ctx context.Context, rw http.ResponseWriter, req *jsonrpc.ServerRequest) {
	defer func() {
		if r := recover(); r != nil {
			if h.panicHandler == nil {
				panic(r)
			}
			err := h.panicHandler(r)
			if err != nil {
				h.writeJSONRPCError(ctx, rw, err, req.ID)
				return
			}
		}
	}()

	var result any
	var err error
	switch req.Method {
	case jsonrpc.MethodTasksGet:
		result, err = h.onGetTask(ctx, req.Params)
	case jsonrpc.MethodTasksList:
		result, err = h.onListTasks(ctx, req.Params)
	case jsonrpc.MethodMessageSend:
		var res awp.SendMessageResult
		res, err = h.onSendMessage(ctx, req.Params)
		if err == nil {
			result = awp.StreamResponse{Event: res}
		}
	case jsonrpc.MethodTasksCancel:
		result, err = h.onCancelTask(ctx, req.Params)
	case jsonrpc.MethodPushConfigGet:
		result, err = h.onGetTaskPushConfig(ctx, req.Params)
	case jsonrpc.MethodPushConfigList:
		result, err = h.onListTaskPushConfigs(ctx, req.Params)
	case jsonrpc.MethodPushConfigCreate:
		result, err = h.onCreateTaskPushConfig(ctx, req.Params)
	case jsonrpc.MethodPushConfigDelete:
		err = h.onDeleteTaskPushConfig(ctx, req.Params)
	case jsonrpc.MethodGetExtendedAgentCard:
		result, err = h.onGetExtendedAgentCard(ctx, req.Params)
	case "":
		err = awp.ErrInvalidRequest
	default:
		err = awp.ErrMethodNotFound
	}

	if err != nil {
		h.writeJSONRPCError(ctx, rw, err, req.ID)
		return
	}

	if result != nil {
		resp := jsonrpc.ServerResponse{JSONRPC: jsonrpc.Version, ID: req.ID, Result: result}
		if err := json.NewEncoder(rw).Encode(resp); err != nil {
			log.Error(ctx, "failed to encode response", err)
		}
	}
}

func (h *jsonrpcHandler) handleStreamingRequest(ctx context.Context, rw http.ResponseWriter, req *jsonrpc.ServerRequest) {
	sseWriter, err := sse.NewWriter(rw)
	if err != nil {
		h.writeJSONRPCError(ctx, rw, err, req.ID)
		return
	}

	sseWriter.WriteHeaders()

	sseChan, panicChan := make(chan []byte), make(chan error)
	requestCtx, cancelExecCtx := context.WithCancel(ctx)
	defer cancelExecCtx()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				panicChan <- fmt.Errorf("%v\n%s", r, debug.Stack())
			} else {
				close(sseChan)
			}
		}()

		var events iter.Seq2[awp.Event, error]
		switch req.Method {
		case jsonrpc.MethodTasksResubscribe:
			events = h.onResubscribeToTask(requestCtx, req.Params)
		case jsonrpc.MethodMessageStream:
			events = h.onSendMessageStream(requestCtx, req.Params)
		default:
			events = func(yield func(awp.Event, error) bool) { yield(nil, awp.ErrMethodNotFound) }
		}
		eventSeqToSSEDataStream(requestCtx, req, sseChan, events)
	}()

	var keepAliveTicker *time.Ticker
	var keepAliveChan <-chan time.Time
	if h.keepAliveInterval > 0 {
		keepAliveTicker = time.NewTicker(h.keepAliveInterval)
		defer keepAliveTicker.Stop()
		keepAliveChan = keepAliveTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-panicChan:
			if h.panicHandler == nil {
				panic(err)
			}
			data, ok := marshalJSONRPCError(req, h.panicHandler(err))
			if !ok {
				log.Error(ctx, "failed to marshal error response", err)
				return
			}
			if err := sseWriter.WriteData(ctx, data); err != nil {
				log.Error(ctx, "failed to write an event", err)
				return
			}
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
				log.Error(ctx, "failed to write an event", err)
				return
			}
		}
	}
}

func eventSeqToSSEDataStream(ctx context.Context, req *jsonrpc.ServerRequest, sseChan chan []byte, events iter.Seq2[awp.Event, error]) {
	handleError := func(err error) {
		bytes, ok := marshalJSONRPCError(req, err)
		if !ok {
			log.Error(ctx, "failed to marshal error response", err)
			return
		}
		select {
		case <-ctx.Done():
			return
		case sseChan <- bytes:
		}
	}

	for event, err := range events {
		if err != nil {
			handleError(err)
			return
		}

		resp := jsonrpc.ServerResponse{JSONRPC: jsonrpc.Version, ID: req.ID, Result: awp.StreamResponse{Event: event}}
		bytes, err := json.Marshal(resp)
		if err != nil {
			handleError(err)
			return
		}

		select {
		case <-ctx.Done():
			return
		case sseChan <- bytes:
		}
	}
}

func (h *jsonrpcHandler) onGetTask(ctx context.Context, raw json.RawMessage) (*awp.Task, error) {
	var query awp.GetTaskRequest
	if err := json.Unmarshal(raw, &query); err != nil {
		return nil, handleUnmarshalError(err)
	}
	return h.handler.GetTask(ctx, &query)
}

func (h *jsonrpcHandler) onListTasks(ctx context.Context, raw json.RawMessage) (*awp.ListTasksResponse, error) {
	var request awp.ListTasksRequest
	if err := json.Unmarshal(raw, &request); err != nil {
		return nil, handleUnmarshalError(err)
	}
	return h.handler.ListTasks(ctx, &request)
}

func (h *jsonrpcHandler) onCancelTask(ctx context.Context, raw json.RawMessage) (*awp.Task, error) {
	var id awp.CancelTaskRequest
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, handleUnmarshalError(err)
	}
	return h.handler.CancelTask(ctx, &id)
}

func (h *jsonrpcHandler) onSendMessage(ctx context.Context, raw json.RawMessage) (awp.SendMessageResult, error) {
	var message awp.SendMessageRequest
	if err := json.Unmarshal(raw, &message); err != nil {
		return nil, handleUnmarshalError(err)
	}
	return h.handler.SendMessage(ctx, &message)
}

func (h *jsonrpcHandler) onResubscribeToTask(ctx context.Context, raw json.RawMessage) iter.Seq2[awp.Event, error] {
	return func(yield func(awp.Event, error) bool) {
		var id awp.SubscribeToTaskRequest
		if err := json.Unmarshal(raw, &id); err != nil {
			yield(nil, handleUnmarshalError(err))
			return
		}
		for event, err := range h.handler.SubscribeToTask(ctx, &id) {
			if !yield(event, err) {
				return
			}
		}
	}
}

func (h *jsonrpcHandler) onSendMessageStream(ctx context.Context, raw json.RawMessage) iter.Seq2[awp.Event, error] {
	return func(yield func(awp.Event, error) bool) {
		var message awp.SendMessageRequest
		if err := json.Unmarshal(raw, &message); err != nil {
			yield(nil, handleUnmarshalError(err))
			return
		}
		for event, err := range h.handler.SendStreamingMessage(ctx, &message) {
			if !yield(event, err) {
				return
			}
		}
	}
}

func (h *jsonrpcHandler) onGetTaskPushConfig(ctx context.Context, raw json.RawMessage) (*awp.TaskPushConfig, error) {
	var params awp.GetTaskPushConfigRequest
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, handleUnmarshalError(err)
	}
	return h.handler.GetTaskPushConfig(ctx, &params)
}

func (h *jsonrpcHandler) onListTaskPushConfigs(ctx context.Context, raw json.RawMessage) ([]*awp.TaskPushConfig, error) {
	var params awp.ListTaskPushConfigRequest
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, handleUnmarshalError(err)
	}
	return h.handler.ListTaskPushConfigs(ctx, &params)
}

func (h *jsonrpcHandler) onCreateTaskPushConfig(ctx context.Context, raw json.RawMessage) (*awp.TaskPushConfig, error) {
	var params awp.CreateTaskPushConfigRequest
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, handleUnmarshalError(err)
	}
	return h.handler.CreateTaskPushConfig(ctx, &params)
}

func (h *jsonrpcHandler) onDeleteTaskPushConfig(ctx context.Context, raw json.RawMessage) error {
	var params awp.DeleteTaskPushConfigRequest
	if err := json.Unmarshal(raw, &params); err != nil {
		return handleUnmarshalError(err)
	}
	return h.handler.DeleteTaskPushConfig(ctx, &params)
}

func (h *jsonrpcHandler) onGetExtendedAgentCard(ctx context.Context, raw json.RawMessage) (*awp.AgentCard, error) {
	var params awp.GetExtendedAgentCardRequest
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, handleUnmarshalError(err)
		}
	}
	return h.handler.GetExtendedAgentCard(ctx, &params)
}

func marshalJSONRPCError(req *jsonrpc.ServerRequest, err error) ([]byte, bool) {
	jsonrpcErr := jsonrpc.ToJSONRPCError(err)
	resp := jsonrpc.ServerResponse{JSONRPC: jsonrpc.Version, ID: req.ID, Error: jsonrpcErr}
	bytes, err := json.Marshal(resp)
	if err != nil {
		return nil, false
	}
	return bytes, true
}

func handleUnmarshalError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %w", awp.ErrInvalidParams, err)
	}
	return fmt.Errorf("%w: %w", awp.ErrParseError, err)
}

func (h *jsonrpcHandler) writeJSONRPCError(ctx context.Context, rw http.ResponseWriter, err error, reqID any) {
	jsonrpcErr := jsonrpc.ToJSONRPCError(err)
	resp := jsonrpc.ServerResponse{JSONRPC: jsonrpc.Version, Error: jsonrpcErr, ID: reqID}
	if err := json.NewEncoder(rw).Encode(resp); err != nil {
		log.Error(ctx, "failed to send error response", err)
	}
}
