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

// Package eventqueue provides the per-task event channel: an ordered,
// multi-subscriber broker that fans lifecycle events out to live streams and
// the push notifier. Every subscriber of a task observes events in publish
// order; once a terminal event is published the task's broker is destroyed
// and no further events flow.
package eventqueue

import (
	"context"
	"errors"

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/awpsrv/taskstore"
)

// ErrQueueClosed indicates that the event queue has been closed.
var ErrQueueClosed = errors.New("queue is closed")

// Message is the unit broadcast to event subscribers.
type Message struct {
	// Event is the event that was applied to the task store.
	Event awp.Event
	// TaskVersion is the version of the task after the event was applied.
	// Subscribers use it to discard events they already observed.
	TaskVersion taskstore.TaskVersion
	// Protocol is the protocol version of the emitting process.
	Protocol awp.ProtocolVersion
}

// Reader reads events from a task's queue.
type Reader interface {
	// Read dequeues the next message, blocking while the queue is empty.
	// Returns [ErrQueueClosed] once the queue is closed and drained.
	Read(ctx context.Context) (*Message, error)

	// Close detaches from the queue.
	Close() error
}

// Writer writes events to a task's queue.
type Writer interface {
	// Write enqueues a message, blocking while subscriber buffers are full.
	Write(ctx context.Context, msg *Message) error

	// Close detaches from the queue.
	Close() error
}

// Manager owns one event channel per live task.
type Manager interface {
	// CreateReader attaches a new subscriber to the task's channel. The
	// subscriber receives only events published after attachment.
	CreateReader(ctx context.Context, taskID awp.TaskID) (Reader, error)

	// CreateWriter attaches a new producer to the task's channel.
	CreateWriter(ctx context.Context, taskID awp.TaskID) (Writer, error)

	// Destroy closes the task's channel and every attached queue. Buffered
	// messages may still be drained by readers. Destroying an unknown task is
	// a no-op.
	Destroy(ctx context.Context, taskID awp.TaskID) error
}
