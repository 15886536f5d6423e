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
	"sync"

	"github.com/awprotocol/awp-go/awp"
)

// SkillIDMetadataKey is the message metadata key carrying the target skill id.
const SkillIDMetadataKey = "skillId"

// SkillMux is an [AgentExecutor] that routes each inbound message to the
// handler registered for the message's skill. Callers select a skill through
// the "skillId" message metadata key; messages without one go to the handler
// registered via [SkillMux.Default].
//
// The zero value is not usable, create instances with [NewSkillMux].
type SkillMux struct {
	mu       sync.RWMutex
	handlers map[string]AgentExecutor
	fallback AgentExecutor
}

var _ AgentExecutor = (*SkillMux)(nil)

// NewSkillMux creates an empty mux.
func NewSkillMux() *SkillMux {
	return &SkillMux{handlers: make(map[string]AgentExecutor)}
}

// Handle registers the executor for the given skill id, replacing any previous
// registration. It returns the mux for chaining.
func (m *SkillMux) Handle(skillID string, executor AgentExecutor) *SkillMux {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[skillID] = executor
	return m
}

// Default registers the executor used for messages carrying no skill id, or an
// id without a registration. It returns the mux for chaining.
func (m *SkillMux) Default(executor AgentExecutor) *SkillMux {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = executor
	return m
}

// Execute implements [AgentExecutor]. Unroutable messages are rejected with
// [awp.ErrInvalidParams] naming the unknown skill.
func (m *SkillMux) Execute(ctx context.Context, execCtx *ExecutorContext, updater *TaskUpdater) error {
	executor, err := m.resolve(execCtx)
	if err != nil {
		return err
	}
	return executor.Execute(ctx, execCtx, updater)
}

// Cancel implements [AgentExecutor], routing to the handler that served the
// task's original message.
func (m *SkillMux) Cancel(ctx context.Context, execCtx *ExecutorContext, updater *TaskUpdater) error {
	executor, err := m.resolve(execCtx)
	if err != nil {
		return err
	}
	return executor.Cancel(ctx, execCtx, updater)
}

// resolve picks the handler for the execution context: the inbound message's
// skill id first, then the skill of the task's original message, then the
// default.
func (m *SkillMux) resolve(execCtx *ExecutorContext) (AgentExecutor, error) {
	skillID := skillIDOf(execCtx)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if skillID != "" {
		if executor, ok := m.handlers[skillID]; ok {
			return executor, nil
		}
		if m.fallback == nil {
			return nil, fmt.Errorf("%w: unknown skill %q", awp.ErrInvalidParams, skillID)
		}
	}
	if m.fallback == nil {
		return nil, fmt.Errorf("%w: no skill selected and no default handler registered", awp.ErrInvalidParams)
	}
	return m.fallback, nil
}

func skillIDOf(execCtx *ExecutorContext) string {
	if execCtx.Message != nil {
		if id, ok := execCtx.Message.Metadata[SkillIDMetadataKey].(string); ok && id != "" {
			return id
		}
	}
	if execCtx.StoredTask != nil {
		for _, msg := range execCtx.StoredTask.History {
			if id, ok := msg.Metadata[SkillIDMetadataKey].(string); ok && id != "" {
				return id
			}
		}
	}
	return ""
}
