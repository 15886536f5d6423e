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
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/awprotocol/awp-go/awp"
)

// InMemoryStore is a [ConfigStore] backed by process memory, suitable for
// tests and single-instance deployments.
type InMemoryStore struct {
	mu      sync.RWMutex
	configs map[awp.TaskID]map[string]*awp.PushConfig
}

var _ ConfigStore = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty [InMemoryStore].
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{configs: make(map[awp.TaskID]map[string]*awp.PushConfig)}
}

// Save implements [ConfigStore].
func (s *InMemoryStore) Save(ctx context.Context, taskID awp.TaskID, config *awp.PushConfig) (*awp.PushConfig, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	toStore := *config
	if toStore.ID == "" {
		toStore.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.configs[taskID]
	if !ok {
		byID = make(map[string]*awp.PushConfig)
		s.configs[taskID] = byID
	}
	byID[toStore.ID] = &toStore

	result := toStore
	return &result, nil
}

// Get implements [ConfigStore].
func (s *InMemoryStore) Get(ctx context.Context, taskID awp.TaskID, configID string) (*awp.PushConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	config, ok := s.configs[taskID][configID]
	if !ok {
		return nil, ErrPushConfigNotFound
	}
	result := *config
	return &result, nil
}

// List implements [ConfigStore].
func (s *InMemoryStore) List(ctx context.Context, taskID awp.TaskID) ([]*awp.PushConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	configs := make([]*awp.PushConfig, 0, len(s.configs[taskID]))
	for _, config := range s.configs[taskID] {
		result := *config
		configs = append(configs, &result)
	}
	return configs, nil
}

// Delete implements [ConfigStore].
func (s *InMemoryStore) Delete(ctx context.Context, taskID awp.TaskID, configID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.configs[taskID], configID)
	return nil
}

// DeleteAll implements [ConfigStore].
func (s *InMemoryStore) DeleteAll(ctx context.Context, taskID awp.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.configs, taskID)
	return nil
}

func validateConfig(config *awp.PushConfig) error {
	if config == nil {
		return fmt.Errorf("%w: push config cannot be nil", awp.ErrInvalidParams)
	}
	if config.URL == "" {
		return fmt.Errorf("%w: push config endpoint cannot be empty", awp.ErrInvalidParams)
	}
	if _, err := url.ParseRequestURI(config.URL); err != nil {
		return fmt.Errorf("%w: invalid push config endpoint URL: %v", awp.ErrInvalidParams, err)
	}
	return nil
}
