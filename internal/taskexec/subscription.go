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
	"iter"

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/awpsrv/eventqueue"
	"github.com/awprotocol/awp-go/awpsrv/taskstore"
	"github.com/awprotocol/awp-go/internal/taskupdate"
	"github.com/awprotocol/awp-go/log"
)

// localSubscription streams the events of an active in-process execution.
// With startWithTask set it first yields a snapshot of the stored task and
// deduplicates queued events against the snapshot version.
type localSubscription struct {
	execution     *localExecution
	queue         eventqueue.Reader
	store         taskstore.Store
	startWithTask bool
	consumed      bool
}

var _ Subscription = (*localSubscription)(nil)

func newLocalSubscription(e *localExecution, q eventqueue.Reader) *localSubscription {
	return &localSubscription{execution: e, queue: q, store: e.store}
}

func (s *localSubscription) TaskID() awp.TaskID {
	return s.execution.tid
}

func (s *localSubscription) Events(ctx context.Context) iter.Seq2[awp.Event, error] {
	return func(yield func(awp.Event, error) bool) {
		if s.consumed {
			yield(nil, fmt.Errorf("subscription already consumed"))
			return
		}
		s.consumed = true

		defer func() {
			if err := s.queue.Close(); err != nil {
				log.Warn(ctx, "subscription queue close failed", "error", err)
			}
		}()

		emittedTaskVersion := taskstore.TaskVersionMissing
		if s.startWithTask {
			storedTask, err := s.store.Get(ctx, s.execution.tid)
			if err != nil && !errors.Is(err, awp.ErrTaskNotFound) {
				yield(nil, fmt.Errorf("task snapshot loading failed: %w", err))
				return
			}
			if storedTask != nil {
				if !yield(storedTask.Task, nil) {
					return
				}
				if storedTask.Task.Status.State.Terminal() {
					return
				}
				emittedTaskVersion = storedTask.Version
			}
		}

		for {
			msg, err := s.queue.Read(ctx)
			if errors.Is(err, eventqueue.ErrQueueClosed) {
				break
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if msg.TaskVersion != taskstore.TaskVersionMissing && !msg.TaskVersion.After(emittedTaskVersion) {
				log.Debug(ctx, "skipping old event", "version", msg.TaskVersion, "emitted", emittedTaskVersion)
				continue
			}
			if !yield(msg.Event, nil) {
				return
			}
			if taskupdate.IsFinal(msg.Event) {
				return
			}
		}

		// The queue closed without a final event, which happens when the
		// producer fails before settling the task. Fall back to the execution
		// result so the consumer learns the outcome.
		if result, err := s.execution.result.wait(ctx); err != nil || result != nil {
			yield(result, err)
		}
	}
}

// snapshotSubscription serves the stored state of a task that has no live
// execution: one task snapshot and the end of the stream.
type snapshotSubscription struct {
	tid      awp.TaskID
	task     *awp.Task
	consumed bool
}

var _ Subscription = (*snapshotSubscription)(nil)

func newSnapshotSubscription(tid awp.TaskID, task *awp.Task) *snapshotSubscription {
	return &snapshotSubscription{tid: tid, task: task}
}

func (s *snapshotSubscription) TaskID() awp.TaskID {
	return s.tid
}

func (s *snapshotSubscription) Events(ctx context.Context) iter.Seq2[awp.Event, error] {
	return func(yield func(awp.Event, error) bool) {
		if s.consumed {
			yield(nil, fmt.Errorf("subscription already consumed"))
			return
		}
		s.consumed = true
		yield(s.task, nil)
	}
}
