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
	"sync"
	"time"

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/awpsrv/eventqueue"
	"github.com/awprotocol/awp-go/awpsrv/taskstore"
	"github.com/awprotocol/awp-go/internal/eventpipe"
	"github.com/awprotocol/awp-go/internal/taskupdate"
	"github.com/awprotocol/awp-go/log"
)

const defaultCancelGracePeriod = 10 * time.Second

// localManager executes and cancels tasks within a single process, ensuring
// concurrent calls for the same task don't interfere with one another.
// The following guarantees are provided:
//   - If a task is being canceled, a concurrent execution can't be started.
//   - If a task is being canceled, a concurrent cancelation awaits the existing one.
//   - If a task is being executed, a concurrent cancelation resolves with the
//     execution result, or forces the task to canceled after the grace period.
//   - If a task is being executed, a concurrent execution is rejected.
//
// Cancelations and executions run in detached contexts until completion.
type localManager struct {
	queueManager eventqueue.Manager
	factory      Factory
	store        taskstore.Store
	panicHandler PanicHandlerFn
	cancelGrace  time.Duration

	mu           sync.Mutex
	executions   map[awp.TaskID]*localExecution
	cancelations map[awp.TaskID]*cancelation
	limiter      *concurrencyLimiter
}

type cancelation struct {
	req    *awp.CancelTaskRequest
	result *promise
}

type localExecution struct {
	tid    awp.TaskID
	req    *awp.SendMessageRequest
	result *promise

	pipe  *eventpipe.Local
	store taskstore.Store

	// interrupt cancels the producer context. Set before the producer starts.
	interruptOnce sync.Once
	interruptFn   context.CancelFunc
}

// interrupt aborts the executor goroutine via its context.
func (e *localExecution) interrupt() {
	e.interruptOnce.Do(func() {
		if e.interruptFn != nil {
			e.interruptFn()
		}
	})
}

var _ Manager = (*localManager)(nil)

// LocalManagerConfig contains in-process execution manager configuration.
type LocalManagerConfig struct {
	QueueManager      eventqueue.Manager
	ConcurrencyConfig ConcurrencyConfig
	Factory           Factory
	TaskStore         taskstore.Store
	PanicHandler      PanicHandlerFn

	// CancelGracePeriod bounds how long a cancelation waits for the running
	// execution to settle before the task is forced to canceled. Zero means
	// the default, a negative value disables forcing.
	CancelGracePeriod time.Duration
}

// NewLocalManager creates a single-process [Manager].
func NewLocalManager(cfg LocalManagerConfig) Manager {
	manager := &localManager{
		queueManager: cfg.QueueManager,
		factory:      cfg.Factory,
		store:        cfg.TaskStore,
		panicHandler: cfg.PanicHandler,
		cancelGrace:  cfg.CancelGracePeriod,
		limiter:      newConcurrencyLimiter(cfg.ConcurrencyConfig),
		executions:   make(map[awp.TaskID]*localExecution),
		cancelations: make(map[awp.TaskID]*cancelation),
	}
	if manager.queueManager == nil {
		manager.queueManager = eventqueue.NewInMemoryManager()
	}
	if manager.cancelGrace == 0 {
		manager.cancelGrace = defaultCancelGracePeriod
	}
	return manager
}

func newCancelation(req *awp.CancelTaskRequest) *cancelation {
	return &cancelation{req: req, result: newPromise()}
}

func newLocalExecution(store taskstore.Store, tid awp.TaskID, req *awp.SendMessageRequest) *localExecution {
	return &localExecution{
		tid:    tid,
		req:    req,
		store:  store,
		pipe:   eventpipe.NewLocal(),
		result: newPromise(),
	}
}

// Execute starts two goroutines in a detached context. One invokes the
// [Executor] for event production, the other processes events until a result
// or error is produced. There can only be a single active execution per task.
func (m *localManager) Execute(ctx context.Context, req *awp.SendMessageRequest) (Subscription, error) {
	var tid awp.TaskID
	if req.Message == nil || len(req.Message.TaskID) == 0 {
		tid = awp.NewTaskID()
	} else {
		tid = req.Message.TaskID
	}

	execution, err := m.createExecution(tid, req)
	if err != nil {
		return nil, err
	}

	eventBroadcastQueue, err := m.queueManager.CreateWriter(ctx, tid)
	if err != nil {
		m.cleanupExecution(ctx, execution)
		return nil, fmt.Errorf("failed to create a queue: %w", err)
	}

	defaultSubReadQueue, err := m.queueManager.CreateReader(ctx, tid)
	if err != nil {
		m.cleanupExecution(ctx, execution)
		return nil, fmt.Errorf("failed to create a default subscription queue: %w", err)
	}

	detachedCtx := context.WithoutCancel(ctx)

	go m.handleExecution(detachedCtx, execution, eventBroadcastQueue)

	return newLocalSubscription(execution, defaultSubReadQueue), nil
}

func (m *localManager) createExecution(tid awp.TaskID, req *awp.SendMessageRequest) (*localExecution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.executions[tid]; ok {
		return nil, ErrExecutionInProgress
	}
	if _, ok := m.cancelations[tid]; ok {
		return nil, ErrCancelationInProgress
	}

	if err := m.limiter.acquireQuotaLocked(); err != nil {
		return nil, err
	}

	execution := newLocalExecution(m.store, tid, req)
	m.executions[tid] = execution

	return execution, nil
}

// Cancel signals task cancelation through the [Canceler] and waits for it to
// take effect. A cancelation in progress is awaited instead of starting a new
// one. With an active execution the canceler writes to the execution's event
// pipe so subscribers observe the cancelation in stream order; if the
// execution doesn't settle within the grace period the task is forced to
// canceled in the store.
func (m *localManager) Cancel(ctx context.Context, req *awp.CancelTaskRequest) (*awp.Task, error) {
	m.mu.Lock()
	tid := req.ID
	execution := m.executions[tid]
	cancel, cancelInProgress := m.cancelations[tid]

	if cancel == nil {
		cancel = newCancelation(req)
		m.cancelations[tid] = cancel
	}
	m.mu.Unlock()

	if !cancelInProgress {
		detachedCtx := context.WithoutCancel(ctx)
		if execution != nil {
			go m.handleCancelWithConcurrentRun(detachedCtx, cancel, execution)
		} else {
			go m.handleCancel(detachedCtx, cancel)
		}
	}

	result, err := cancel.result.wait(ctx)
	return convertToCancelationResult(result, err)
}

func (m *localManager) Resubscribe(ctx context.Context, taskID awp.TaskID) (Subscription, error) {
	m.mu.Lock()
	execution := m.executions[taskID]
	m.mu.Unlock()

	if execution != nil {
		queue, err := m.queueManager.CreateReader(ctx, taskID)
		if err != nil {
			return nil, fmt.Errorf("failed to attach to active execution: %w", err)
		}
		subscription := newLocalSubscription(execution, queue)
		subscription.startWithTask = true
		return subscription, nil
	}

	// No live execution: serve a snapshot of the stored state.
	storedTask, err := m.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return newSnapshotSubscription(taskID, storedTask.Task), nil
}

func (m *localManager) cleanupExecution(ctx context.Context, execution *localExecution) {
	m.destroyQueue(ctx, execution.tid)
	execution.pipe.Close()

	m.mu.Lock()
	m.limiter.releaseQuotaLocked()
	delete(m.executions, execution.tid)
	execution.result.signalDone()
	m.mu.Unlock()
}

func (m *localManager) handleExecution(ctx context.Context, execution *localExecution, eventBroadcast eventqueue.Writer) {
	defer m.cleanupExecution(ctx, execution)

	executor, processor, err := m.factory.CreateExecutor(ctx, execution.tid, execution.req)
	if err != nil {
		execution.result.setError(fmt.Errorf("setup failed: %w", err))
		return
	}

	produceCtx, interrupt := context.WithCancel(ctx)
	defer interrupt()
	execution.interruptFn = interrupt

	handler := &executionHandler{
		agentEvents:       execution.pipe.Reader,
		handledEventQueue: eventBroadcast,
		handleEventFn:     processor.Process,
		handleErrorFn:     processor.ProcessError,
	}
	result, err := runProducerConsumer(
		produceCtx,
		func(ctx context.Context) error { return executor.Execute(ctx, execution.pipe.Writer) },
		execution.pipe.Close,
		handler.processEvents,
		m.panicHandler,
	)

	if err != nil {
		execution.result.setError(err)
		return
	}
	execution.result.setValue(result)
}

// handleCancel processes a cancelation for a task without an active execution.
func (m *localManager) handleCancel(ctx context.Context, cancel *cancelation) {
	defer m.finishCancelation(cancel)

	canceler, processor, err := m.factory.CreateCanceler(ctx, cancel.req)
	if err != nil {
		cancel.result.setError(fmt.Errorf("setup failed: %w", err))
		return
	}

	pipe := eventpipe.NewLocal()

	handler := &executionHandler{agentEvents: pipe.Reader, handleEventFn: processor.Process}
	result, err := runProducerConsumer(
		ctx,
		func(ctx context.Context) error { return canceler.Cancel(ctx, pipe.Writer) },
		pipe.Close,
		handler.processEvents,
		m.panicHandler,
	)
	if err != nil {
		cancel.result.setError(err)
		return
	}
	cancel.result.setValue(result)
}

// handleCancelWithConcurrentRun sends a cancelation signal on the pipe used by
// the active execution, then waits for the execution to resolve. Executions
// that keep running past the grace period are forced to canceled directly in
// the store, leaving the executor goroutine to fail its next update on the
// version check.
func (m *localManager) handleCancelWithConcurrentRun(ctx context.Context, cancel *cancelation, run *localExecution) {
	defer func() {
		if r := recover(); r != nil {
			cancel.result.setError(fmt.Errorf("task cancelation panic: %v", r))
		}
	}()
	defer m.finishCancelation(cancel)

	canceler, _, err := m.factory.CreateCanceler(ctx, cancel.req)
	if err != nil {
		cancel.result.setError(fmt.Errorf("setup failed: %w", err))
		return
	}

	if err := canceler.Cancel(ctx, run.pipe.Writer); err != nil && !errors.Is(err, eventqueue.ErrQueueClosed) {
		cancel.result.setError(err)
		return
	}

	waitCtx := ctx
	if m.cancelGrace > 0 {
		var stopTimer context.CancelFunc
		waitCtx, stopTimer = context.WithTimeout(ctx, m.cancelGrace)
		defer stopTimer()
	}

	result, err := run.result.wait(waitCtx)
	if err != nil && waitCtx.Err() != nil && ctx.Err() == nil {
		log.Warn(ctx, "execution did not settle within the cancelation grace period", "task_id", run.tid)
		run.interrupt()
		result, err = m.forceCancel(ctx, run.tid)
	}
	// The execution may have settled in a suspended state before it saw the
	// cancelation signal. The task is still live, cancel it directly.
	if err == nil {
		if task, ok := result.(*awp.Task); ok && !task.Status.State.Terminal() {
			result, err = m.forceCancel(ctx, run.tid)
		}
	}
	if err != nil {
		cancel.result.setError(err)
		return
	}
	cancel.result.setValue(result)
}

// forceCancel moves the task to canceled directly through the store, bypassing
// the unresponsive execution, and notifies live subscribers.
func (m *localManager) forceCancel(ctx context.Context, tid awp.TaskID) (awp.SendMessageResult, error) {
	storedTask, err := m.store.Get(ctx, tid)
	if err != nil {
		return nil, fmt.Errorf("failed to load task for forced cancelation: %w", err)
	}

	task := storedTask.Task
	if task.Status.State == awp.TaskStateCanceled {
		return task, nil
	}
	if task.Status.State.Terminal() {
		return nil, fmt.Errorf("task settled in state %q: %w", task.Status.State, awp.ErrTaskAlreadyTerminal)
	}

	updater := taskupdate.NewManager(m.store, task.Ref(), storedTask)
	event := awp.NewStatusUpdateEvent(task, awp.TaskStateCanceled, nil)
	updated, err := updater.Process(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("forced cancelation failed: %w", err)
	}

	if writer, werr := m.queueManager.CreateWriter(ctx, tid); werr == nil {
		msg := &eventqueue.Message{Event: event, TaskVersion: updated.Version, Protocol: awp.Version}
		if werr := writer.Write(ctx, msg); werr != nil && !errors.Is(werr, eventqueue.ErrQueueClosed) {
			log.Warn(ctx, "failed to broadcast forced cancelation", "error", werr)
		}
		_ = writer.Close()
	}

	return updated.Task, nil
}

func (m *localManager) finishCancelation(cancel *cancelation) {
	m.mu.Lock()
	delete(m.cancelations, cancel.req.ID)
	cancel.result.signalDone()
	m.mu.Unlock()
}

func (m *localManager) destroyQueue(ctx context.Context, tid awp.TaskID) {
	if err := m.queueManager.Destroy(ctx, tid); err != nil {
		log.Error(ctx, "failed to destroy a queue", err)
	}
}

func convertToCancelationResult(result awp.SendMessageResult, err error) (*awp.Task, error) {
	if err != nil {
		return nil, err
	}
	task, ok := result.(*awp.Task)
	if !ok {
		return nil, fmt.Errorf("cancelation resolved to %T: %w", result, awp.ErrInvalidAgentResponse)
	}
	return task, nil
}
