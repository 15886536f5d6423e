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

// Package eventpipe connects a running executor to the event processor that
// persists and broadcasts its events.
package eventpipe

import (
	"context"
	"sync/atomic"

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/awpsrv/eventqueue"
)

const defaultBufferSize = 1024

// Reader reads events from the pipe.
type Reader interface {
	// Read dequeues an event, blocking while the pipe is empty.
	Read(ctx context.Context) (awp.Event, error)
}

// Writer writes events to the pipe.
type Writer interface {
	// Write enqueues an event, blocking while the pipe is full.
	Write(ctx context.Context, event awp.Event) error
}

type localOptions struct {
	bufferSize int
}

// LocalPipeOption configures a local pipe.
type LocalPipeOption func(*localOptions)

// WithBufferSize configures the event buffer size of a local pipe.
func WithBufferSize(size int) LocalPipeOption {
	return func(opts *localOptions) {
		opts.bufferSize = size
	}
}

// Local is an in-process event pipe with a reader and a writer end.
type Local struct {
	Reader Reader
	Writer Writer

	closeWriter func()
}

// NewLocal creates a local event pipe.
func NewLocal(opts ...LocalPipeOption) *Local {
	options := &localOptions{bufferSize: defaultBufferSize}
	for _, opt := range opts {
		opt(options)
	}
	events := make(chan awp.Event, options.bufferSize)
	closeChan := make(chan struct{})

	writer := &pipeWriter{events: events, closeChan: closeChan}
	return &Local{
		Writer:      writer,
		Reader:      &pipeReader{events: events, closeChan: closeChan},
		closeWriter: writer.close,
	}
}

// Close closes the writer end of the pipe. Readers may drain buffered events.
func (p *Local) Close() {
	p.closeWriter()
}

type pipeWriter struct {
	events chan awp.Event

	closed    atomic.Bool
	closeChan chan struct{}
}

var _ Writer = (*pipeWriter)(nil)

func (w *pipeWriter) Write(ctx context.Context, event awp.Event) error {
	if w.closed.Load() {
		return eventqueue.ErrQueueClosed
	}

	select {
	case w.events <- event:
		return nil
	case <-w.closeChan:
		return eventqueue.ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *pipeWriter) close() {
	if w.closed.CompareAndSwap(false, true) {
		close(w.closeChan)
	}
}

type pipeReader struct {
	events    chan awp.Event
	closeChan chan struct{}
}

var _ Reader = (*pipeReader)(nil)

func (r *pipeReader) Read(ctx context.Context) (awp.Event, error) {
	select {
	case event := <-r.events:
		return event, nil
	default:
	}

	select {
	case event := <-r.events:
		return event, nil
	case <-r.closeChan:
		// A write may have landed right before the close, drain it first.
		select {
		case event := <-r.events:
			return event, nil
		default:
			return nil, eventqueue.ErrQueueClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
