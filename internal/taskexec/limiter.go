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

import "errors"

// ErrQuotaExceeded is returned when starting an execution would exceed the
// configured concurrency limit.
var ErrQuotaExceeded = errors.New("execution quota exhausted")

// ConcurrencyConfig limits the number of simultaneously running executions.
type ConcurrencyConfig struct {
	// MaxConcurrentExecutions caps in-flight executions. Zero means unlimited.
	MaxConcurrentExecutions int
}

// concurrencyLimiter tracks in-flight executions. Callers must hold the
// manager mutex, the limiter has no synchronization of its own.
type concurrencyLimiter struct {
	max      int
	inFlight int
}

func newConcurrencyLimiter(cfg ConcurrencyConfig) *concurrencyLimiter {
	return &concurrencyLimiter{max: cfg.MaxConcurrentExecutions}
}

func (l *concurrencyLimiter) acquireQuotaLocked() error {
	if l.max > 0 && l.inFlight >= l.max {
		return ErrQuotaExceeded
	}
	l.inFlight++
	return nil
}

func (l *concurrencyLimiter) releaseQuotaLocked() {
	if l.inFlight > 0 {
		l.inFlight--
	}
}
