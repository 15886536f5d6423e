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

package taskstore

import (
	"context"
	"encoding/base64"
	"encoding/gob"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/internal/utils"
)

type storedTask struct {
	task        *awp.Task
	version     TaskVersion
	lastUpdated time.Time
}

// InMemoryConfig configures an [InMemory] store.
type InMemoryConfig struct {
	// TimeProvider supplies timestamps for ordering; defaults to time.Now.
	TimeProvider func() time.Time
}

// InMemory is a [Store] keeping everything in process memory. Contents do
// not survive restarts; intended for tests and single-node deployments.
type InMemory struct {
	mu       sync.RWMutex
	tasks    map[awp.TaskID]*storedTask
	messages map[string]awp.TaskID

	config InMemoryConfig
}

var _ Store = (*InMemory)(nil)

func init() {
	gob.Register(map[string]any{})
	gob.Register([]any{})
}

// NewInMemory creates an empty [InMemory] store.
func NewInMemory(config *InMemoryConfig) *InMemory {
	s := &InMemory{
		tasks:    make(map[awp.TaskID]*storedTask),
		messages: make(map[string]awp.TaskID),
	}
	if config != nil {
		s.config = *config
	}
	if s.config.TimeProvider == nil {
		s.config.TimeProvider = time.Now
	}
	return s
}

// Create implements [Store] interface.
func (s *InMemory) Create(ctx context.Context, task *awp.Task) (TaskVersion, error) {
	if err := validateTask(task); err != nil {
		return TaskVersionMissing, err
	}

	copy, err := utils.DeepCopy(task)
	if err != nil {
		return TaskVersionMissing, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if stored := s.tasks[task.ID]; stored != nil {
		return TaskVersionMissing, ErrTaskAlreadyExists
	}

	version := TaskVersion(1)
	s.tasks[task.ID] = &storedTask{
		task:        copy,
		version:     version,
		lastUpdated: s.config.TimeProvider(),
	}
	s.indexMessages(copy)
	return version, nil
}

// Update implements [Store] interface.
func (s *InMemory) Update(ctx context.Context, req *UpdateRequest) (TaskVersion, error) {
	if err := validateTask(req.Task); err != nil {
		return TaskVersionMissing, err
	}

	copy, err := utils.DeepCopy(req.Task)
	if err != nil {
		return TaskVersionMissing, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.tasks[req.Task.ID]
	if stored == nil {
		return TaskVersionMissing, awp.ErrTaskNotFound
	}

	if req.PrevVersion != TaskVersionMissing && stored.version != req.PrevVersion {
		return TaskVersionMissing, ErrConcurrentModification
	}

	version := stored.version + 1
	s.tasks[req.Task.ID] = &storedTask{
		task:        copy,
		version:     version,
		lastUpdated: s.config.TimeProvider(),
	}
	s.indexMessages(copy)
	return version, nil
}

// indexMessages records task history message IDs for redelivery detection.
// Callers must hold the write lock.
func (s *InMemory) indexMessages(task *awp.Task) {
	for _, msg := range task.History {
		if msg.ID != "" {
			s.messages[msg.ID] = task.ID
		}
	}
}

// Get implements [Store] interface.
func (s *InMemory) Get(ctx context.Context, taskID awp.TaskID) (*StoredTask, error) {
	s.mu.RLock()
	stored, ok := s.tasks[taskID]
	s.mu.RUnlock()

	if !ok {
		return nil, awp.ErrTaskNotFound
	}

	task, err := utils.DeepCopy(stored.task)
	if err != nil {
		return nil, fmt.Errorf("task copy failed: %w", err)
	}
	return &StoredTask{Task: task, Version: stored.version}, nil
}

// GetByMessageID implements [Store] interface.
func (s *InMemory) GetByMessageID(ctx context.Context, messageID string) (*StoredTask, error) {
	s.mu.RLock()
	taskID, ok := s.messages[messageID]
	s.mu.RUnlock()

	if !ok {
		return nil, awp.ErrTaskNotFound
	}
	return s.Get(ctx, taskID)
}

// List implements [Store] interface.
func (s *InMemory) List(ctx context.Context, req *awp.ListTasksRequest) (*awp.ListTasksResponse, error) {
	const defaultPageSize = 50

	pageSize := req.PageSize
	if pageSize == 0 {
		pageSize = defaultPageSize
	} else if pageSize < 1 || pageSize > 100 {
		return nil, fmt.Errorf("page size must be between 1 and 100 inclusive, got %d: %w", pageSize, awp.ErrInvalidRequest)
	}

	s.mu.RLock()
	filtered := filterTasks(s.tasks, req)
	s.mu.RUnlock()

	totalSize := len(filtered)
	slices.SortFunc(filtered, func(a, b *storedTask) int {
		if timeCmp := b.lastUpdated.Compare(a.lastUpdated); timeCmp != 0 {
			return timeCmp
		}
		return strings.Compare(string(b.task.ID), string(a.task.ID))
	})

	page, nextPageToken, err := applyPagination(filtered, pageSize, req)
	if err != nil {
		return nil, err
	}

	tasks, err := toListedTasks(page, req)
	if err != nil {
		return nil, err
	}

	return &awp.ListTasksResponse{
		Tasks:         tasks,
		TotalSize:     totalSize,
		PageSize:      pageSize,
		NextPageToken: nextPageToken,
	}, nil
}

func filterTasks(tasks map[awp.TaskID]*storedTask, req *awp.ListTasksRequest) []*storedTask {
	var filtered []*storedTask
	for _, stored := range tasks {
		if req.ContextID != "" && stored.task.ContextID != req.ContextID {
			continue
		}
		if req.Status != awp.TaskStateUnspecified && stored.task.Status.State != req.Status {
			continue
		}
		if req.StatusTimestampAfter != nil && stored.task.Status.Timestamp != nil {
			if stored.task.Status.Timestamp.Before(*req.StatusTimestampAfter) {
				continue
			}
		}
		filtered = append(filtered, stored)
	}
	return filtered
}

func applyPagination(filtered []*storedTask, pageSize int, req *awp.ListTasksRequest) ([]*storedTask, string, error) {
	page := filtered
	if req.PageToken != "" {
		cursorTime, cursorTaskID, err := decodePageToken(req.PageToken)
		if err != nil {
			return nil, "", err
		}
		start := sort.Search(len(filtered), func(i int) bool {
			task := filtered[i]
			timeCmp := task.lastUpdated.Compare(cursorTime)
			if timeCmp < 0 {
				return true
			}
			if timeCmp > 0 {
				return false
			}
			return strings.Compare(string(task.task.ID), string(cursorTaskID)) < 0
		})
		page = filtered[start:]
	}

	var nextPageToken string
	if pageSize >= len(page) {
		pageSize = len(page)
	} else {
		last := page[pageSize-1]
		nextPageToken = encodePageToken(last.lastUpdated, last.task.ID)
	}
	return page[:pageSize], nextPageToken, nil
}

func toListedTasks(page []*storedTask, req *awp.ListTasksRequest) ([]*awp.Task, error) {
	const defaultMaxHistoryLength = 100
	var result []*awp.Task
	for _, stored := range page {
		taskCopy, err := utils.DeepCopy(stored.task)
		if err != nil {
			return nil, err
		}
		historyLength := defaultMaxHistoryLength
		if req.HistoryLength != nil {
			historyLength = *req.HistoryLength
		}
		if historyLength == 0 {
			taskCopy.History = []*awp.Message{}
		} else if historyLength > 0 && len(taskCopy.History) > historyLength {
			taskCopy.History = taskCopy.History[len(taskCopy.History)-historyLength:]
		}
		if !req.IncludeArtifacts {
			taskCopy.Artifacts = nil
		}
		result = append(result, taskCopy)
	}
	return result, nil
}

func encodePageToken(updatedTime time.Time, taskID awp.TaskID) string {
	timeStrNano := updatedTime.Format(time.RFC3339Nano)
	return base64.URLEncoding.EncodeToString(fmt.Appendf(nil, "%s_%s", timeStrNano, taskID))
}

func decodePageToken(token string) (time.Time, awp.TaskID, error) {
	decoded, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", awp.ErrParseError
	}

	parts := strings.SplitN(string(decoded), "_", 2)
	if len(parts) != 2 {
		return time.Time{}, "", awp.ErrParseError
	}

	updatedTime, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", awp.ErrParseError
	}
	return updatedTime, awp.TaskID(parts[1]), nil
}
