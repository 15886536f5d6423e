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
	"sync"

	"github.com/awprotocol/awp-go/awp"
)

var errNoResult = errors.New("execution finished without a result")

// promise is a write-once container for an execution result which multiple
// goroutines can await.
type promise struct {
	mu     sync.Mutex
	result awp.SendMessageResult
	err    error
	set    bool

	done chan struct{}
}

func newPromise() *promise {
	return &promise{done: make(chan struct{})}
}

func (p *promise) setValue(result awp.SendMessageResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.set {
		return
	}
	p.result, p.set = result, true
}

func (p *promise) setError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.set {
		return
	}
	p.err, p.set = err, true
}

// signalDone unblocks waiters. Must be called after the final setValue or
// setError.
func (p *promise) signalDone() {
	close(p.done)
}

// wait blocks until the promise is resolved or ctx expires.
func (p *promise) wait(ctx context.Context) (awp.SendMessageResult, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.set {
		return nil, errNoResult
	}
	return p.result, p.err
}
