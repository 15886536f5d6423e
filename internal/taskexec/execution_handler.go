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

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/awpsrv/eventqueue"
	"github.com/awprotocol/awp-go/awpsrv/taskstore"
	"github.com/awprotocol/awp-go/internal/eventpipe"
	"github.com/awprotocol/awp-go/log"
)

// executionHandler is the consumer side of one execution. It reads events
// produced by the executor, hands them to the processor and broadcasts the
// applied events to subscribers.
type executionHandler struct {
	agentEvents       eventpipe.Reader
	handledEventQueue eventqueue.Writer

	handleEventFn func(ctx context.Context, event awp.Event) (*ProcessorResult, error)
	handleErrorFn func(ctx context.Context, cause error) (awp.SendMessageResult, error)
}

// processEvents consumes executor events until a result is produced. A closed
// pipe without a preceding final event is an executor contract violation and
// is converted to a failure result.
func (h *executionHandler) processEvents(ctx context.Context) (awp.SendMessageResult, error) {
	for {
		event, err := h.agentEvents.Read(ctx)
		if errors.Is(err, eventqueue.ErrQueueClosed) {
			cause := fmt.Errorf("execution finished without a terminal or suspended state: %w", awp.ErrInvalidAgentResponse)
			return h.handleError(ctx, cause)
		}
		if err != nil {
			return h.handleError(ctx, err)
		}

		result, err := h.handleEventFn(ctx, event)
		if err != nil {
			return h.handleError(ctx, err)
		}
		if result == nil {
			continue
		}

		h.broadcast(ctx, event, result)
		if result.ExecutionResult != nil {
			return result.ExecutionResult, nil
		}
	}
}

// handleError gives the processor a chance to settle the task in a failed
// state. The failure is persisted with a detached context so that a canceled
// execution context does not prevent recording the outcome.
func (h *executionHandler) handleError(ctx context.Context, cause error) (awp.SendMessageResult, error) {
	if h.handleErrorFn == nil {
		return nil, cause
	}

	detached := context.WithoutCancel(ctx)
	result, err := h.handleErrorFn(detached, cause)
	if err != nil || result == nil {
		return nil, cause
	}

	// Broadcast with no version attached, subscribers always deliver such
	// messages instead of deduplicating them.
	if task, ok := result.(*awp.Task); ok {
		h.broadcast(detached, task, &ProcessorResult{TaskVersion: taskstore.TaskVersionMissing})
	}
	return result, nil
}

func (h *executionHandler) broadcast(ctx context.Context, event awp.Event, result *ProcessorResult) {
	if h.handledEventQueue == nil {
		return
	}
	if result.EventOverride != nil {
		event = result.EventOverride
	}
	msg := &eventqueue.Message{Event: event, TaskVersion: result.TaskVersion, Protocol: awp.Version}
	if err := h.handledEventQueue.Write(ctx, msg); err != nil && !errors.Is(err, eventqueue.ErrQueueClosed) {
		log.Warn(ctx, "event broadcast failed", "error", err)
	}
}

type eventProducerFn func(ctx context.Context) error

type eventConsumerFn func(ctx context.Context) (awp.SendMessageResult, error)

// runProducerConsumer runs the event producer and the event consumer, tied
// together by the execution pipe. The producer context is canceled once the
// consumer returns, a producer failure closes the pipe and stops the consumer.
// A consumer result takes precedence over a producer error, which lets the
// processor settle the task in a failed state and report it as the outcome.
func runProducerConsumer(
	ctx context.Context,
	produce eventProducerFn,
	closeProduced func(),
	consume eventConsumerFn,
	panicHandler PanicHandlerFn,
) (awp.SendMessageResult, error) {
	produceCtx, stopProduce := context.WithCancel(ctx)
	defer stopProduce()
	consumeCtx, stopConsume := context.WithCancel(ctx)
	defer stopConsume()

	produceDone := make(chan error, 1)
	go func() {
		var err error
		defer func() {
			closeProduced()
			if err != nil {
				stopConsume()
			}
			produceDone <- err
		}()
		defer recoverExecutionPanic(&err, panicHandler)
		err = produce(produceCtx)
	}()

	var result awp.SendMessageResult
	var consumeErr error
	func() {
		defer recoverExecutionPanic(&consumeErr, panicHandler)
		result, consumeErr = consume(consumeCtx)
	}()

	stopProduce()
	produceErr := <-produceDone

	if consumeErr == nil && result != nil {
		return result, nil
	}
	if produceErr != nil && !errors.Is(produceErr, context.Canceled) {
		return nil, produceErr
	}
	if consumeErr != nil {
		return nil, consumeErr
	}
	return nil, fmt.Errorf("execution finished without a result: %w", awp.ErrInvalidAgentResponse)
}

func recoverExecutionPanic(err *error, panicHandler PanicHandlerFn) {
	r := recover()
	if r == nil {
		return
	}
	if panicHandler != nil {
		*err = panicHandler(r)
		return
	}
	*err = fmt.Errorf("execution panic: %v", r)
}
