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

package push

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/awpsrv/taskstore"
	"github.com/awprotocol/awp-go/log"
)

const (
	tokenHeader     = "X-AWP-Notification-Token"
	signatureHeader = "X-AWP-Signature"
	timestampHeader = "X-AWP-Timestamp"
	taskIDHeader    = "X-AWP-Task-ID"

	// pushFailureMetaKey is the task metadata key recording a delivery that
	// exhausted its retries.
	pushFailureMetaKey = "pushFailure"

	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 3
	defaultRetryDelay  = 200 * time.Millisecond
	maxRetryDelay      = 5 * time.Second
	previewLimit       = 256
)

// notification is the JSON document delivered to webhooks. It intentionally
// carries a compact summary rather than the full task so that the endpoint
// fetches the authoritative state over the authenticated API.
type notification struct {
	TaskID    awp.TaskID    `json:"taskId"`
	Status    awp.TaskState `json:"status"`
	Timestamp string        `json:"timestamp"`
	Preview   string        `json:"preview,omitempty"`
}

// HTTPSenderConfig configures [HTTPPushSender].
type HTTPSenderConfig struct {
	// Timeout for a single delivery attempt. Defaults to 30s.
	Timeout time.Duration
	// FailOnError surfaces delivery errors to the caller. When false delivery
	// errors are logged and recorded but do not fail the triggering operation.
	FailOnError bool
	// MaxAttempts per notification, retried with capped exponential backoff.
	// Defaults to 3.
	MaxAttempts int
	// RetryDelay is the backoff base delay. Defaults to 200ms.
	RetryDelay time.Duration
	// MaxConcurrent enables asynchronous delivery through a bounded worker
	// pool. Zero keeps delivery synchronous.
	MaxConcurrent int
	// TaskStore, when provided, records exhausted deliveries in the task's
	// metadata under the "pushFailure" key.
	TaskStore taskstore.Store
}

// HTTPPushSender delivers notifications over HTTP POST, signing each payload
// with the config's shared secret.
type HTTPPushSender struct {
	client      *http.Client
	failOnError bool
	maxAttempts int
	retryDelay  time.Duration
	store       taskstore.Store

	workers *errgroup.Group
}

var _ Sender = (*HTTPPushSender)(nil)

// NewHTTPPushSender creates an [HTTPPushSender]. A nil config selects the
// defaults: synchronous delivery, 3 attempts, 30s per-attempt timeout.
func NewHTTPPushSender(config *HTTPSenderConfig) *HTTPPushSender {
	if config == nil {
		config = &HTTPSenderConfig{}
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	attempts := config.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	delay := config.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	sender := &HTTPPushSender{
		client:      &http.Client{Timeout: timeout},
		failOnError: config.FailOnError,
		maxAttempts: attempts,
		retryDelay:  delay,
		store:       config.TaskStore,
	}
	if config.MaxConcurrent > 0 {
		sender.workers = &errgroup.Group{}
		sender.workers.SetLimit(config.MaxConcurrent)
	}
	return sender
}

// SendPush implements [Sender]. With a worker pool configured the delivery is
// queued and the call returns immediately; otherwise it blocks through the
// retry schedule.
func (s *HTTPPushSender) SendPush(ctx context.Context, config *awp.PushConfig, task *awp.Task) error {
	if s.workers != nil {
		detached := context.WithoutCancel(ctx)
		s.workers.Go(func() error {
			if err := s.deliver(detached, config, task); err != nil {
				log.Error(detached, "push notification delivery failed", err, "task_id", task.ID)
			}
			return nil
		})
		return nil
	}

	err := s.deliver(ctx, config, task)
	if err != nil && !s.failOnError {
		log.Error(ctx, "push notification delivery failed", err, "task_id", task.ID)
		return nil
	}
	return err
}

// Wait blocks until queued asynchronous deliveries complete.
func (s *HTTPPushSender) Wait() {
	if s.workers != nil {
		_ = s.workers.Wait()
	}
}

func (s *HTTPPushSender) deliver(ctx context.Context, config *awp.PushConfig, task *awp.Task) error {
	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := min(s.retryDelay<<(attempt-1), maxRetryDelay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = s.post(ctx, config, task)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		log.Warn(ctx, "push notification attempt failed", "attempt", attempt+1, "error", lastErr)
	}

	s.recordFailure(ctx, config, task.ID, lastErr)
	return lastErr
}

func (s *HTTPPushSender) post(ctx context.Context, config *awp.PushConfig, task *awp.Task) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	payload := &notification{
		TaskID:    task.ID,
		Status:    task.Status.State,
		Timestamp: now,
		Preview:   previewOf(task),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize notification to JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(timestampHeader, now)
	req.Header.Set(taskIDHeader, string(task.ID))
	if config.Token != "" {
		req.Header.Set(tokenHeader, config.Token)
	}
	if config.Secret != "" {
		req.Header.Set(signatureHeader, "sha256="+Sign(config.Secret, now, body))
	}
	if config.Auth != nil && config.Auth.Scheme != "" {
		req.Header.Set("Authorization", config.Auth.Scheme+" "+config.Auth.Credentials)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push notification endpoint returned non-success status: %s", resp.Status)
	}
	return nil
}

// recordFailure stamps the delivery failure on the task's metadata without
// touching its lifecycle state. Best effort: a concurrent modification is
// retried a few times, further failures are only logged.
func (s *HTTPPushSender) recordFailure(ctx context.Context, config *awp.PushConfig, taskID awp.TaskID, cause error) {
	if s.store == nil {
		return
	}

	for range 3 {
		stored, err := s.store.Get(ctx, taskID)
		if err != nil {
			log.Warn(ctx, "failed to load task for push failure recording", "error", err)
			return
		}
		stored.Task.SetMeta(pushFailureMetaKey, map[string]any{
			"configId": config.ID,
			"url":      config.URL,
			"error":    cause.Error(),
			"at":       time.Now().UTC().Format(time.RFC3339Nano),
		})
		_, err = s.store.Update(ctx, &taskstore.UpdateRequest{
			Task:        stored.Task,
			PrevVersion: stored.Version,
		})
		if err == nil {
			return
		}
		if !errors.Is(err, taskstore.ErrConcurrentModification) {
			log.Warn(ctx, "failed to record push failure", "error", err)
			return
		}
	}
}

// Sign computes the hex HMAC-SHA256 of the timestamp and body under the
// shared secret. Covering the timestamp lets receivers reject replays.
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches the payload under the shared
// secret. Receivers should also bound the timestamp's age.
func Verify(secret, timestamp string, body []byte, signature string) bool {
	expected := Sign(secret, timestamp, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func previewOf(task *awp.Task) string {
	var text string
	if msg := task.Status.Message; msg != nil {
		for _, part := range msg.Parts {
			if part.Kind() == awp.PartKindText {
				text = part.Text()
				break
			}
		}
	}
	if text == "" && len(task.Artifacts) > 0 {
		last := task.Artifacts[len(task.Artifacts)-1]
		for _, part := range last.Parts {
			if part.Kind() == awp.PartKindText {
				text = part.Text()
				break
			}
		}
	}
	if len(text) > previewLimit {
		text = text[:previewLimit]
	}
	return text
}
