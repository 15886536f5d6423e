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
	"fmt"

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/internal/eventpipe"
)

// TaskUpdater is the handle an [AgentExecutor] uses to publish progress.
// Every method emits a lifecycle event into the execution's event stream,
// where it is validated against the task state machine and persisted before
// subscribers observe it.
//
// The first status or artifact emitted for a brand new task implicitly
// submits it, so the simplest executor can go straight to StartWork.
// A TaskUpdater is bound to a single execution and must not be used after
// Execute or Cancel returns.
type TaskUpdater struct {
	execCtx *ExecutorContext
	events  eventpipe.Writer
	started bool
}

func newTaskUpdater(execCtx *ExecutorContext, events eventpipe.Writer) *TaskUpdater {
	return &TaskUpdater{
		execCtx: execCtx,
		events:  events,
		started: execCtx.StoredTask != nil,
	}
}

// TaskID returns the ID of the task being executed.
func (u *TaskUpdater) TaskID() awp.TaskID { return u.execCtx.TaskID }

// ContextID returns the context the task belongs to.
func (u *TaskUpdater) ContextID() string { return u.execCtx.ContextID }

// Submit emits the initial task snapshot in the submitted state. Calling it
// for a task that already exists is an error.
func (u *TaskUpdater) Submit(ctx context.Context) error {
	if u.started {
		return fmt.Errorf("task %q was already submitted", u.execCtx.TaskID)
	}
	u.started = true
	return u.events.Write(ctx, awp.NewSubmittedTask(u.execCtx, u.execCtx.Message))
}

// StartWork moves the task to the working state.
func (u *TaskUpdater) StartWork(ctx context.Context) error {
	return u.UpdateStatus(ctx, awp.TaskStateWorking, nil)
}

// RequireInput suspends the task until the caller provides more input. msg
// should explain what is needed.
func (u *TaskUpdater) RequireInput(ctx context.Context, msg *awp.Message) error {
	return u.UpdateStatus(ctx, awp.TaskStateInputRequired, msg)
}

// RequireAuth suspends the task until the caller completes an out-of-band
// authentication step described by msg.
func (u *TaskUpdater) RequireAuth(ctx context.Context, msg *awp.Message) error {
	return u.UpdateStatus(ctx, awp.TaskStateAuthRequired, msg)
}

// Complete settles the task in the completed state.
func (u *TaskUpdater) Complete(ctx context.Context, msg *awp.Message) error {
	return u.UpdateStatus(ctx, awp.TaskStateCompleted, msg)
}

// Fail settles the task in the failed state.
func (u *TaskUpdater) Fail(ctx context.Context, msg *awp.Message) error {
	return u.UpdateStatus(ctx, awp.TaskStateFailed, msg)
}

// Cancel settles the task in the canceled state.
func (u *TaskUpdater) Cancel(ctx context.Context, msg *awp.Message) error {
	return u.UpdateStatus(ctx, awp.TaskStateCanceled, msg)
}

// Reject settles the task in the rejected state, used when the agent declines
// to act on the request.
func (u *TaskUpdater) Reject(ctx context.Context, msg *awp.Message) error {
	return u.UpdateStatus(ctx, awp.TaskStateRejected, msg)
}

// UpdateStatus emits a status update event with the given state and optional
// agent message.
func (u *TaskUpdater) UpdateStatus(ctx context.Context, state awp.TaskState, msg *awp.Message) error {
	if err := u.ensureSubmitted(ctx); err != nil {
		return err
	}
	return u.events.Write(ctx, awp.NewStatusUpdateEvent(u.execCtx, state, msg))
}

// AddArtifact emits a new artifact assembled from parts and returns its ID,
// which can be used to stream further chunks.
func (u *TaskUpdater) AddArtifact(ctx context.Context, parts ...*awp.Part) (awp.ArtifactID, error) {
	if err := u.ensureSubmitted(ctx); err != nil {
		return "", err
	}
	event := awp.NewArtifactEvent(u.execCtx, parts...)
	if err := u.events.Write(ctx, event); err != nil {
		return "", err
	}
	return event.Artifact.ID, nil
}

// AddArtifactChunk appends parts to a previously emitted artifact. lastChunk
// closes the artifact's content stream.
func (u *TaskUpdater) AddArtifactChunk(ctx context.Context, id awp.ArtifactID, lastChunk bool, parts ...*awp.Part) error {
	if err := u.ensureSubmitted(ctx); err != nil {
		return err
	}
	event := awp.NewArtifactChunkEvent(u.execCtx, id, parts...)
	event.LastChunk = lastChunk
	return u.events.Write(ctx, event)
}

// Reply responds with a plain message instead of creating a task. Only valid
// as the sole output of an execution.
func (u *TaskUpdater) Reply(ctx context.Context, parts ...*awp.Part) error {
	if u.started {
		return fmt.Errorf("cannot reply with a message after task %q was created: %w",
			u.execCtx.TaskID, awp.ErrInvalidAgentResponse)
	}
	msg := awp.NewMessageForTask(awp.MessageRoleAgent, u.execCtx, parts...)
	msg.TaskID = ""
	return u.events.Write(ctx, msg)
}

func (u *TaskUpdater) ensureSubmitted(ctx context.Context) error {
	if u.started {
		return nil
	}
	return u.Submit(ctx)
}
