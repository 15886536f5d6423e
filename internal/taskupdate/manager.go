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

// Package taskupdate turns executor events into validated, persisted task
// state. It is the single writer of task records: every status transition is
// checked against the lifecycle graph before it is stored.
package taskupdate

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/awpsrv/taskstore"
	"github.com/awprotocol/awp-go/internal/utils"
	"github.com/awprotocol/awp-go/log"
)

const maxCancelationAttempts = 10

// Manager processes the events of one task execution, updating the task and
// persisting the new state through [taskstore.Store].
type Manager struct {
	taskRef    awp.TaskRef
	lastStored *taskstore.StoredTask
	store      taskstore.Store

	// trackTransitions records prior statuses on the task, enabled when the
	// agent advertises state transition history.
	trackTransitions bool
}

// NewManager creates a [Manager] for the task identified by ref. task may be
// nil when no task exists yet.
func NewManager(store taskstore.Store, ref awp.TaskRef, task *taskstore.StoredTask) *Manager {
	return &Manager{
		taskRef:    ref,
		lastStored: task,
		store:      store,
	}
}

// TrackTransitions enables recording of prior statuses on the task.
func (mgr *Manager) TrackTransitions() {
	mgr.trackTransitions = true
}

// SetTaskFailed moves the task to the failed state, recording the diagnostic
// in the status message so callers can determine the outcome via tasks/get.
func (mgr *Manager) SetTaskFailed(ctx context.Context, event awp.Event, diagnostic string) (*taskstore.StoredTask, error) {
	if mgr.lastStored == nil {
		return nil, fmt.Errorf("execution failed before a task was created: %s", diagnostic)
	}

	task := *mgr.lastStored.Task // copy to update task status
	now := time.Now()

	var msg *awp.Message
	if diagnostic != "" {
		msg = awp.NewMessageForTask(awp.MessageRoleAgent, &task, awp.NewTextPart(diagnostic))
	}
	mgr.recordTransition(&task)
	task.Status = awp.TaskStatus{State: awp.TaskStateFailed, Message: msg, Timestamp: &now}

	if _, err := mgr.saveTask(ctx, &task, event); err != nil {
		return nil, fmt.Errorf("failed to store failed task state: %w", err)
	}

	log.Info(ctx, "task moved to failed state", "diagnostic", diagnostic)
	return mgr.lastStored, nil
}

// Process validates the event against the managed task and integrates the
// new state into it.
func (mgr *Manager) Process(ctx context.Context, event awp.Event) (*taskstore.StoredTask, error) {
	if _, ok := event.(*awp.Message); ok {
		if mgr.lastStored != nil {
			return nil, fmt.Errorf("message not allowed after task was stored: %w", awp.ErrInvalidAgentResponse)
		}
		return nil, nil
	}

	if v, ok := event.(*awp.Task); ok {
		if err := mgr.validate(v); err != nil {
			return nil, err
		}
		return mgr.saveTask(ctx, v, event)
	}

	if mgr.lastStored == nil {
		return nil, fmt.Errorf("first event must be a Task or a message: %w", awp.ErrInvalidAgentResponse)
	}

	switch v := event.(type) {
	case *awp.TaskArtifactUpdateEvent:
		if err := mgr.validate(v); err != nil {
			return nil, err
		}
		if v.Artifact == nil || len(v.Artifact.Parts) == 0 {
			return nil, fmt.Errorf("artifact cannot be empty: %w", awp.ErrInvalidAgentResponse)
		}
		return mgr.updateArtifact(ctx, v)

	case *awp.TaskStatusUpdateEvent:
		if err := mgr.validate(v); err != nil {
			return nil, err
		}
		return mgr.updateStatus(ctx, v)

	default:
		return nil, fmt.Errorf("unexpected event type %T", v)
	}
}

func (mgr *Manager) updateArtifact(ctx context.Context, event *awp.TaskArtifactUpdateEvent) (*taskstore.StoredTask, error) {
	task := mgr.lastStored.Task
	if task.Status.State.Terminal() {
		return nil, fmt.Errorf("cannot append artifact to task in state %q: %w", task.Status.State, awp.ErrTaskAlreadyTerminal)
	}

	// The event is passed on to subscriber goroutines while the stored
	// artifact keeps being modified here, so the content must be copied.
	artifact, err := utils.DeepCopy(event.Artifact)
	if err != nil {
		return nil, fmt.Errorf("failed to copy artifact: %w", err)
	}

	updateIdx := slices.IndexFunc(task.Artifacts, func(a *awp.Artifact) bool {
		return a.ID == artifact.ID
	})

	if updateIdx < 0 {
		if event.Append {
			return nil, fmt.Errorf("no artifact found for update")
		}
		artifact.LastChunk = event.LastChunk
		task.Artifacts = append(task.Artifacts, artifact)
		return mgr.saveTask(ctx, task, event)
	}

	if task.Artifacts[updateIdx].LastChunk {
		return nil, fmt.Errorf("artifact %q received its last chunk and is closed: %w",
			artifact.ID, awp.ErrInvalidAgentResponse)
	}

	if !event.Append {
		artifact.LastChunk = event.LastChunk
		task.Artifacts[updateIdx] = artifact
		return mgr.saveTask(ctx, task, event)
	}

	toUpdate := task.Artifacts[updateIdx]
	toUpdate.Parts = append(toUpdate.Parts, artifact.Parts...)
	if toUpdate.Metadata == nil && artifact.Metadata != nil {
		toUpdate.Metadata = make(map[string]any, len(artifact.Metadata))
	}
	maps.Copy(toUpdate.Metadata, artifact.Metadata)
	toUpdate.LastChunk = event.LastChunk
	return mgr.saveTask(ctx, task, event)
}

func (mgr *Manager) updateStatus(ctx context.Context, event *awp.TaskStatusUpdateEvent) (*taskstore.StoredTask, error) {
	lastStored, err := utils.DeepCopy(mgr.lastStored)
	if err != nil {
		return nil, err
	}

	for range maxCancelationAttempts {
		task := lastStored.Task
		if !task.Status.State.CanTransitionTo(event.Status.State) {
			return nil, fmt.Errorf("transition %q -> %q is not permitted: %w",
				task.Status.State, event.Status.State, awp.ErrInvalidStateTransition)
		}
		if task.Status.Message != nil {
			task.History = append(task.History, task.Status.Message)
		}
		if event.Metadata != nil {
			if task.Metadata == nil {
				task.Metadata = make(map[string]any)
			}
			maps.Copy(task.Metadata, event.Metadata)
		}
		mgr.recordTransition(task)
		task.Status = event.Status

		vt, err := mgr.saveVersionedTask(ctx, task, event, lastStored.Version)
		if err == nil {
			return vt, nil
		}

		// Cancellation races with the running execution's own writes, so it
		// is retried against the fresh state until one side settles the task.
		if !errors.Is(err, taskstore.ErrConcurrentModification) || event.Status.State != awp.TaskStateCanceled {
			return nil, err
		}

		storedTask, getErr := mgr.store.Get(ctx, event.TaskID)
		if getErr != nil {
			return nil, fmt.Errorf("failed to get task: %w", getErr)
		}

		if storedTask.Task.Status.State == awp.TaskStateCanceled {
			mgr.lastStored = storedTask
			return mgr.lastStored, nil
		}
		if storedTask.Task.Status.State.Terminal() {
			return nil, fmt.Errorf("task moved to %q before it could be canceled: %w",
				storedTask.Task.Status.State, awp.ErrTaskAlreadyTerminal)
		}

		lastStored = storedTask
	}

	return nil, fmt.Errorf("max task cancelation attempts reached")
}

func (mgr *Manager) recordTransition(task *awp.Task) {
	if !mgr.trackTransitions || task.Status.State == awp.TaskStateUnspecified {
		return
	}
	task.Transitions = append(task.Transitions, task.Status)
}

func (mgr *Manager) saveTask(ctx context.Context, task *awp.Task, event awp.Event) (*taskstore.StoredTask, error) {
	version := taskstore.TaskVersionMissing
	if mgr.lastStored != nil {
		version = mgr.lastStored.Version
	}
	return mgr.saveVersionedTask(ctx, task, event, version)
}

func (mgr *Manager) saveVersionedTask(ctx context.Context, task *awp.Task, event awp.Event, prevVersion taskstore.TaskVersion) (*taskstore.StoredTask, error) {
	var version taskstore.TaskVersion
	var err error
	if mgr.lastStored == nil {
		version, err = mgr.store.Create(ctx, task)
	} else {
		version, err = mgr.store.Update(ctx, &taskstore.UpdateRequest{
			Task:        task,
			Event:       event,
			PrevVersion: prevVersion,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save task state: %w", err)
	}
	mgr.lastStored = &taskstore.StoredTask{Task: task, Version: version}
	return mgr.lastStored, nil
}

func (mgr *Manager) validate(carrier awp.RefCarrier) error {
	ref := carrier.Ref()
	if mgr.taskRef.TaskID != ref.TaskID {
		return fmt.Errorf("task IDs don't match: %s != %s", ref.TaskID, mgr.taskRef.TaskID)
	}
	if mgr.taskRef.ContextID != ref.ContextID {
		return fmt.Errorf("context IDs don't match: %s != %s", ref.ContextID, mgr.taskRef.ContextID)
	}
	return nil
}
