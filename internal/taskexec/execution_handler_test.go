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

package taskexec

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/internal/eventpipe"
)

func TestRunProducerConsumer(t *testing.T) {
	panicFn := func(str string) error { panic(str) }
	msg := awp.NewMessage(awp.MessageRoleUser)

	testCases := []struct {
		name         string
		producer     eventProducerFn
		consumer     eventConsumerFn
		panicHandler PanicHandlerFn
		wantErr      error
	}{
		{
			name:     "success",
			producer: func(ctx context.Context) error { return nil },
			consumer: func(ctx context.Context) (awp.SendMessageResult, error) { return msg, nil },
		},
		{
			name:     "producer panic",
			producer: func(ctx context.Context) error { return panicFn("panic!") },
			consumer: func(ctx context.Context) (awp.SendMessageResult, error) {
				<-ctx.Done()
				return nil, nil
			},
			wantErr: fmt.Errorf("execution panic: panic!"),
		},
		{
			name:     "consumer panic",
			producer: func(ctx context.Context) error { return nil },
			consumer: func(ctx context.Context) (awp.SendMessageResult, error) { return nil, panicFn("panic!") },
			wantErr:  fmt.Errorf("execution panic: panic!"),
		},
		{
			name:     "producer error",
			producer: func(ctx context.Context) error { return fmt.Errorf("error") },
			consumer: func(ctx context.Context) (awp.SendMessageResult, error) {
				<-ctx.Done()
				return nil, nil
			},
			wantErr: fmt.Errorf("error"),
		},
		{
			name:     "producer error override by consumer result",
			producer: func(ctx context.Context) error { return fmt.Errorf("error") },
			consumer: func(ctx context.Context) (awp.SendMessageResult, error) {
				<-ctx.Done()
				return &awp.Task{Status: awp.TaskStatus{State: awp.TaskStateFailed}}, nil
			},
		},
		{
			name:     "consumer error",
			producer: func(ctx context.Context) error { return nil },
			consumer: func(ctx context.Context) (awp.SendMessageResult, error) { return nil, fmt.Errorf("error") },
			wantErr:  fmt.Errorf("error"),
		},
		{
			name:     "nil consumer result",
			producer: func(ctx context.Context) error { return nil },
			consumer: func(ctx context.Context) (awp.SendMessageResult, error) { return nil, nil },
			wantErr:  fmt.Errorf("execution finished without a result"),
		},
		{
			name: "producer context canceled on consumer non-nil result",
			producer: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
			consumer: func(ctx context.Context) (awp.SendMessageResult, error) { return msg, nil },
		},
		{
			name: "producer context canceled on consumer error result",
			producer: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
			consumer: func(ctx context.Context) (awp.SendMessageResult, error) { return nil, fmt.Errorf("error") },
			wantErr:  fmt.Errorf("error"),
		},
		{
			name:         "consumer panic custom handler",
			producer:     func(ctx context.Context) error { return nil },
			consumer:     func(ctx context.Context) (awp.SendMessageResult, error) { return nil, panicFn("panic!") },
			panicHandler: func(err any) error { return fmt.Errorf("custom error") },
			wantErr:      fmt.Errorf("custom error"),
		},
		{
			name:     "producer panic custom handler",
			producer: func(ctx context.Context) error { return panicFn("panic!") },
			consumer: func(ctx context.Context) (awp.SendMessageResult, error) {
				<-ctx.Done()
				return nil, nil
			},
			panicHandler: func(err any) error { return fmt.Errorf("custom error") },
			wantErr:      fmt.Errorf("custom error"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := runProducerConsumer(t.Context(), tc.producer, func() {}, tc.consumer, tc.panicHandler)
			if tc.wantErr != nil && err == nil {
				t.Fatalf("expected error, got %v", result)
			}
			if tc.wantErr == nil && err != nil {
				t.Fatalf("expected result, got %v, %v", result, err)
			}
			if tc.wantErr != nil && !strings.Contains(err.Error(), tc.wantErr.Error()) {
				t.Fatalf("expected error = %s, got %s", tc.wantErr.Error(), err.Error())
			}
			if result == nil && err == nil {
				t.Fatalf("expected non-nil error when result is nil")
			}
		})
	}
}

func TestRunProducerConsumer_ClosedPipeFailsExecution(t *testing.T) {
	t.Parallel()
	pipe := eventpipe.NewLocal()
	handler := &executionHandler{
		agentEvents: pipe.Reader,
		handleEventFn: func(ctx context.Context, event awp.Event) (*ProcessorResult, error) {
			return nil, nil
		},
	}

	_, err := runProducerConsumer(
		t.Context(),
		func(ctx context.Context) error { return nil },
		pipe.Close,
		handler.processEvents,
		nil,
	)
	if !errors.Is(err, awp.ErrInvalidAgentResponse) {
		t.Fatalf("runProducerConsumer() error = %v, want %v", err, awp.ErrInvalidAgentResponse)
	}
}

func TestRunProducerConsumer_ProcessErrorSettlesResult(t *testing.T) {
	t.Parallel()
	pipe := eventpipe.NewLocal()
	want := &awp.Task{ID: "t1", ContextID: "ctx", Status: awp.TaskStatus{State: awp.TaskStateFailed}}
	handler := &executionHandler{
		agentEvents: pipe.Reader,
		handleErrorFn: func(ctx context.Context, cause error) (awp.SendMessageResult, error) {
			return want, nil
		},
	}

	result, err := runProducerConsumer(
		t.Context(),
		func(ctx context.Context) error { return errors.New("agent crashed") },
		pipe.Close,
		handler.processEvents,
		nil,
	)
	if err != nil {
		t.Fatalf("runProducerConsumer() error = %v, want nil", err)
	}
	if result != want {
		t.Fatalf("runProducerConsumer() = %v, want %v", result, want)
	}
}
