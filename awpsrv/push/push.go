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

// Package push delivers task lifecycle notifications to caller-registered
// webhooks and stores the per-task webhook configurations.
package push

import (
	"context"
	"errors"

	"github.com/awprotocol/awp-go/awp"
)

// ErrPushConfigNotFound indicates the referenced push config does not exist.
var ErrPushConfigNotFound = errors.New("push config not found")

// ConfigStore persists the push configurations registered for tasks.
type ConfigStore interface {
	// Save stores the config for the task, assigning an ID when the config has
	// none, and returns the stored copy.
	Save(ctx context.Context, taskID awp.TaskID, config *awp.PushConfig) (*awp.PushConfig, error)

	// Get returns the config with the given ID, or [ErrPushConfigNotFound].
	Get(ctx context.Context, taskID awp.TaskID, configID string) (*awp.PushConfig, error)

	// List returns all configs registered for the task.
	List(ctx context.Context, taskID awp.TaskID) ([]*awp.PushConfig, error)

	// Delete removes the config with the given ID. Unknown IDs are a no-op.
	Delete(ctx context.Context, taskID awp.TaskID, configID string) error

	// DeleteAll removes every config of the task.
	DeleteAll(ctx context.Context, taskID awp.TaskID) error
}

// Sender delivers a task state notification to one webhook.
type Sender interface {
	// SendPush notifies the config's endpoint about the task's current state.
	SendPush(ctx context.Context, config *awp.PushConfig, task *awp.Task) error
}
