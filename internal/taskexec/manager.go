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

// Package taskexec coordinates task executions: it owns the producer and
// consumer goroutines of an execution, serializes executions and cancelations
// of the same task, and exposes the resulting event stream as subscriptions.
package taskexec

import (
	"context"
	"errors"
	"iter"

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/awpsrv/taskstore"
	"github.com/awprotocol/awp-go/internal/eventpipe"
)

var (
	// ErrExecutionInProgress is returned when a caller attempts to start an execution
	// for a task concurrently with another execution.
	ErrExecutionInProgress = errors.New("task execution is already in progress")
	// ErrCancelationInProgress is returned when a caller attempts to start an execution
	// for a task concurrently with its cancelation.
	ErrCancelationInProgress = errors.New("task cancelation is in progress")
)

// Executor produces the events of one task execution, writing them to the pipe
// consumed by the event processor.
type Executor interface {
	Execute(ctx context.Context, events eventpipe.Writer) error
}

// Canceler produces the events of one task cancelation.
type Canceler interface {
	Cancel(ctx context.Context, events eventpipe.Writer) error
}

// ProcessorResult carries the outcome of processing a single event.
type ProcessorResult struct {
	// ExecutionResult, when set, terminates the execution and becomes its result.
	ExecutionResult awp.SendMessageResult
	// EventOverride, when set, is broadcast to subscribers instead of the
	// processed event.
	EventOverride awp.Event
	// TaskVersion is the store version produced by applying the event.
	TaskVersion taskstore.TaskVersion
}

// Processor integrates executor events into persisted task state.
type Processor interface {
	// Process applies a single event. A nil result means processing continues.
	Process(ctx context.Context, event awp.Event) (*ProcessorResult, error)

	// ProcessError converts an execution failure into a result, typically by
	// moving the task to the failed state with a diagnostic message.
	ProcessError(ctx context.Context, cause error) (awp.SendMessageResult, error)
}

// Factory creates the executor and processor pair for a request.
type Factory interface {
	CreateExecutor(ctx context.Context, tid awp.TaskID, req *awp.SendMessageRequest) (Executor, Processor, error)
	CreateCanceler(ctx context.Context, req *awp.CancelTaskRequest) (Canceler, Processor, error)
}

// Subscription is a single-consumer view of an execution's event stream.
type Subscription interface {
	// TaskID returns the ID of the task the subscription is attached to.
	TaskID() awp.TaskID

	// Events yields the events of the execution in order. The sequence can be
	// consumed at most once.
	Events(ctx context.Context) iter.Seq2[awp.Event, error]
}

// PanicHandlerFn converts a recovered panic value into the error reported as
// the execution failure cause.
type PanicHandlerFn func(recovered any) error

// Manager starts, cancels and attaches to task executions.
type Manager interface {
	// Execute starts handling of a send message request and returns a
	// subscription to the resulting events.
	Execute(ctx context.Context, req *awp.SendMessageRequest) (Subscription, error)

	// Cancel requests cancelation of a task and waits for it to take effect.
	Cancel(ctx context.Context, req *awp.CancelTaskRequest) (*awp.Task, error)

	// Resubscribe attaches to the event stream of a task. For tasks without an
	// active execution a snapshot of the stored state is yielded.
	Resubscribe(ctx context.Context, taskID awp.TaskID) (Subscription, error)
}
