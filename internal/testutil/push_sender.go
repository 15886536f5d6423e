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

package testutil

import (
	"context"
	"testing"

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/awpsrv/push"
)

// TestPushSender is a mock of push.Sender.
type TestPushSender struct {
	*push.HTTPPushSender

	PushedTasks   []*awp.Task
	PushedConfigs []*awp.PushConfig

	SendPushFunc func(ctx context.Context, config *awp.PushConfig, task *awp.Task) error
}

// SendPush calls the underlying SendPushFunc if it's set. If not,
// it calls the embedded HTTPPushSender's SendPush method.
func (m *TestPushSender) SendPush(ctx context.Context, config *awp.PushConfig, task *awp.Task) error {
	m.PushedConfigs = append(m.PushedConfigs, config)
	m.PushedTasks = append(m.PushedTasks, task)

	if m.SendPushFunc != nil {
		return m.SendPushFunc(ctx, config, task)
	}

	return m.HTTPPushSender.SendPush(ctx, config, task)
}

// SetSendPushError overrides SendPush execution with given error
func (m *TestPushSender) SetSendPushError(err error) *TestPushSender {
	m.SendPushFunc = func(ctx context.Context, config *awp.PushConfig, task *awp.Task) error {
		return err
	}
	return m
}

// NewTestPushSender creates a new TestPushSender.
func NewTestPushSender(t *testing.T) *TestPushSender {
	return &TestPushSender{
		HTTPPushSender: push.NewHTTPPushSender(nil),

		PushedTasks:   make([]*awp.Task, 0),
		PushedConfigs: make([]*awp.PushConfig, 0),
	}
}
