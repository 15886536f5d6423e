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

// Package taskstore defines the persistence contract for tasks and provides
// in-memory and MySQL implementations. Stores are swappable behind the
// [Store] interface; the runtime never depends on a concrete engine.
package taskstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/awprotocol/awp-go/awp"
)

// ErrTaskAlreadyExists indicates that a task with the provided ID already exists.
var ErrTaskAlreadyExists = errors.New("task already exists")

// ErrConcurrentModification indicates that optimistic concurrency control
// failed. Store implementations must return it when [UpdateRequest.PrevVersion]
// does not match the latest stored version.
var ErrConcurrentModification = errors.New("concurrent modification")

// TaskVersion is a monotonically increasing version of a stored task.
type TaskVersion int64

// TaskVersionMissing denotes that the task version is not being tracked.
var TaskVersionMissing TaskVersion = 0

// After reports whether v is newer than another. Untracked versions compare
// as latest from both sides:
//
//	v1 := TaskVersionMissing
//	v2 := TaskVersionMissing
//	v1.After(v2) == v2.After(v1)
func (v TaskVersion) After(another TaskVersion) bool {
	if another == TaskVersionMissing {
		return true
	}
	if v == TaskVersionMissing {
		return false
	}
	return another < v
}

// StoredTask is a task snapshot together with its store version.
type StoredTask struct {
	// Task is the stored data.
	Task *awp.Task
	// Version tracks task modifications for optimistic concurrency.
	Version TaskVersion
}

// UpdateRequest describes one whole-task update.
type UpdateRequest struct {
	// Task is the desired state of the task in the store.
	Task *awp.Task
	// Event is the event that triggered the update, e.g. a user message that
	// was appended to the task history. Stores index messages by ID so
	// redelivered messages can be detected.
	Event awp.Event
	// PrevVersion is the version the update was computed against. When it does
	// not match the latest stored version the update must be rejected with
	// [ErrConcurrentModification]. [TaskVersionMissing] skips the check.
	PrevVersion TaskVersion
}

// Store is the persistence contract used by the server stack. All mutating
// operations are atomic per task: concurrent writers to the same task are
// serialized through version checks, and readers always observe a consistent
// snapshot.
type Store interface {
	// Create stores a new task. Returns [ErrTaskAlreadyExists] when a task
	// with the same ID is already stored.
	Create(ctx context.Context, task *awp.Task) (TaskVersion, error)

	// Update replaces the stored task. Returns [awp.ErrTaskNotFound] when the
	// task does not exist.
	Update(ctx context.Context, update *UpdateRequest) (TaskVersion, error)

	// Get retrieves a task by ID. Returns [awp.ErrTaskNotFound] when the task
	// does not exist.
	Get(ctx context.Context, taskID awp.TaskID) (*StoredTask, error)

	// GetByMessageID retrieves the task that recorded a message with the given
	// ID, used for idempotent message delivery. Returns [awp.ErrTaskNotFound]
	// when no task recorded the message.
	GetByMessageID(ctx context.Context, messageID string) (*StoredTask, error)

	// List retrieves tasks matching the request filters, newest first.
	List(ctx context.Context, req *awp.ListTasksRequest) (*awp.ListTasksResponse, error)
}

func validateTask(task *awp.Task) error {
	if task == nil {
		return fmt.Errorf("task is required: %w", awp.ErrInvalidParams)
	}
	if task.ID == "" {
		return fmt.Errorf("task ID is required: %w", awp.ErrInvalidParams)
	}
	if task.ContextID == "" {
		return fmt.Errorf("task context ID is required: %w", awp.ErrInvalidParams)
	}
	return nil
}
