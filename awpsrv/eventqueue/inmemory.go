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

package eventqueue

import (
	"context"
	"sync"

	"github.com/awprotocol/awp-go/awp"
)

const defaultQueueBufferSize = 32

// MemManagerOption configures an in-memory event manager.
type MemManagerOption func(*inMemoryManager)

// WithQueueBufferSize configures the per-subscriber buffer size.
func WithQueueBufferSize(size int) MemManagerOption {
	return func(m *inMemoryManager) {
		m.bufferSize = size
	}
}

type inMemoryManager struct {
	mu      sync.Mutex
	brokers map[awp.TaskID]*memBroker

	bufferSize int
}

var _ Manager = (*inMemoryManager)(nil)

// NewInMemoryManager creates an in-memory [Manager].
//
// A broker is created when the first queue for a task ID is requested; all
// queues created before Destroy share it. A queue never receives messages it
// wrote itself. Destroy closes every attached queue; buffered messages may
// still be drained by readers afterwards.
func NewInMemoryManager(options ...MemManagerOption) Manager {
	m := &inMemoryManager{
		brokers:    make(map[awp.TaskID]*memBroker),
		bufferSize: defaultQueueBufferSize,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *inMemoryManager) CreateReader(ctx context.Context, taskID awp.TaskID) (Reader, error) {
	return m.connect(taskID)
}

func (m *inMemoryManager) CreateWriter(ctx context.Context, taskID awp.TaskID) (Writer, error) {
	return m.connect(taskID)
}

func (m *inMemoryManager) connect(taskID awp.TaskID) (*memQueue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	broker, ok := m.brokers[taskID]
	if !ok {
		broker = &memBroker{bufferSize: m.bufferSize}
		m.brokers[taskID] = broker
	}
	return broker.connect()
}

func (m *inMemoryManager) Destroy(ctx context.Context, taskID awp.TaskID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	broker, ok := m.brokers[taskID]
	if !ok {
		return nil
	}
	broker.destroy()
	delete(m.brokers, taskID)
	return nil
}

type memBroker struct {
	mu     sync.Mutex
	queues []*memQueue
	closed bool

	bufferSize int
}

func (b *memBroker) connect() (*memQueue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrQueueClosed
	}
	q := &memQueue{
		broker: b,
		ch:     make(chan *Message, b.bufferSize),
		done:   make(chan struct{}),
	}
	b.queues = append(b.queues, q)
	return q, nil
}

func (b *memBroker) destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for _, q := range b.queues {
		q.closeOnce.Do(func() { close(q.done) })
	}
	b.queues = nil
}

func (b *memBroker) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *memBroker) detach(q *memQueue) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, other := range b.queues {
		if other == q {
			b.queues = append(b.queues[:i], b.queues[i+1:]...)
			return
		}
	}
}

// subscribersFor snapshots the queues a message from sender fans out to.
func (b *memBroker) subscribersFor(sender *memQueue) ([]*memQueue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrQueueClosed
	}
	subscribers := make([]*memQueue, 0, len(b.queues))
	for _, q := range b.queues {
		if q != sender {
			subscribers = append(subscribers, q)
		}
	}
	return subscribers, nil
}

type memQueue struct {
	broker    *memBroker
	ch        chan *Message
	done      chan struct{}
	closeOnce sync.Once
}

var (
	_ Reader = (*memQueue)(nil)
	_ Writer = (*memQueue)(nil)
)

// Read implements [Reader] interface.
func (q *memQueue) Read(ctx context.Context) (*Message, error) {
	// Buffered messages are drained even after close.
	select {
	case msg := <-q.ch:
		return msg, nil
	default:
	}
	select {
	case msg := <-q.ch:
		return msg, nil
	case <-q.done:
		select {
		case msg := <-q.ch:
			return msg, nil
		default:
			return nil, ErrQueueClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Write implements [Writer] interface.
func (q *memQueue) Write(ctx context.Context, msg *Message) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	subscribers, err := q.broker.subscribersFor(q)
	if err != nil {
		return err
	}
	for _, sub := range subscribers {
		select {
		case sub.ch <- msg:
		case <-sub.done:
			// The subscriber went away while the write was blocked. That is
			// fine for an individual close, but a destroyed broker fails the
			// whole write.
			if q.broker.isClosed() {
				return ErrQueueClosed
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close implements [Reader] and [Writer] interfaces.
func (q *memQueue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	q.broker.detach(q)
	return nil
}
