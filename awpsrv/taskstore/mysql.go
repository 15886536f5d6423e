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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/awprotocol/awp-go/awp"
)

const mysqlDuplicateEntry = 1062

// MySQL is a [Store] backed by a MySQL database. Tasks are stored as JSON
// documents versioned by a counter column; message IDs are indexed in a side
// table for redelivery detection.
type MySQL struct {
	db *sql.DB
}

var _ Store = (*MySQL)(nil)

// NewMySQL creates a [MySQL] store on top of an open database handle.
func NewMySQL(db *sql.DB) *MySQL {
	return &MySQL{db: db}
}

// Init creates the store tables if they do not exist yet.
func (s *MySQL) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id VARCHAR(64) NOT NULL PRIMARY KEY,
			context_id VARCHAR(64) NOT NULL,
			state VARCHAR(32) NOT NULL,
			status_timestamp DATETIME(6) NULL,
			data MEDIUMTEXT NOT NULL,
			version BIGINT NOT NULL,
			last_updated DATETIME(6) NOT NULL,
			INDEX idx_tasks_context (context_id),
			INDEX idx_tasks_listing (last_updated, id)
		)`,
		`CREATE TABLE IF NOT EXISTS task_messages (
			message_id VARCHAR(64) NOT NULL PRIMARY KEY,
			task_id VARCHAR(64) NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: failed to initialize task tables: %v", awp.ErrTransient, err)
		}
	}
	return nil
}

// Create implements [Store] interface.
func (s *MySQL) Create(ctx context.Context, task *awp.Task) (TaskVersion, error) {
	if err := validateTask(task); err != nil {
		return TaskVersionMissing, err
	}

	data, err := json.Marshal(task)
	if err != nil {
		return TaskVersionMissing, fmt.Errorf("failed to encode task: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return TaskVersionMissing, fmt.Errorf("%w: %v", awp.ErrTransient, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tasks (id, context_id, state, status_timestamp, data, version, last_updated)
		 VALUES (?, ?, ?, ?, ?, 1, ?)`,
		task.ID, task.ContextID, task.Status.State, task.Status.Timestamp, data, time.Now().UTC())
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return TaskVersionMissing, ErrTaskAlreadyExists
		}
		return TaskVersionMissing, fmt.Errorf("%w: %v", awp.ErrTransient, err)
	}

	if err := indexMessagesTx(ctx, tx, task); err != nil {
		return TaskVersionMissing, err
	}
	if err := tx.Commit(); err != nil {
		return TaskVersionMissing, fmt.Errorf("%w: %v", awp.ErrTransient, err)
	}
	return TaskVersion(1), nil
}

// Update implements [Store] interface.
func (s *MySQL) Update(ctx context.Context, req *UpdateRequest) (TaskVersion, error) {
	if err := validateTask(req.Task); err != nil {
		return TaskVersionMissing, err
	}

	data, err := json.Marshal(req.Task)
	if err != nil {
		return TaskVersionMissing, fmt.Errorf("failed to encode task: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return TaskVersionMissing, fmt.Errorf("%w: %v", awp.ErrTransient, err)
	}
	defer tx.Rollback()

	query := `UPDATE tasks SET state = ?, status_timestamp = ?, data = ?, version = version + 1, last_updated = ? WHERE id = ?`
	args := []any{req.Task.Status.State, req.Task.Status.Timestamp, data, time.Now().UTC(), req.Task.ID}
	if req.PrevVersion != TaskVersionMissing {
		query += ` AND version = ?`
		args = append(args, req.PrevVersion)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return TaskVersionMissing, fmt.Errorf("%w: %v", awp.ErrTransient, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return TaskVersionMissing, fmt.Errorf("%w: %v", awp.ErrTransient, err)
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tasks WHERE id = ?)`, req.Task.ID).Scan(&exists); err != nil {
			return TaskVersionMissing, fmt.Errorf("%w: %v", awp.ErrTransient, err)
		}
		if !exists {
			return TaskVersionMissing, awp.ErrTaskNotFound
		}
		return TaskVersionMissing, ErrConcurrentModification
	}

	var version TaskVersion
	if err := tx.QueryRowContext(ctx, `SELECT version FROM tasks WHERE id = ?`, req.Task.ID).Scan(&version); err != nil {
		return TaskVersionMissing, fmt.Errorf("%w: %v", awp.ErrTransient, err)
	}

	if err := indexMessagesTx(ctx, tx, req.Task); err != nil {
		return TaskVersionMissing, err
	}
	if err := tx.Commit(); err != nil {
		return TaskVersionMissing, fmt.Errorf("%w: %v", awp.ErrTransient, err)
	}
	return version, nil
}

func indexMessagesTx(ctx context.Context, tx *sql.Tx, task *awp.Task) error {
	for _, msg := range task.History {
		if msg.ID == "" {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT IGNORE INTO task_messages (message_id, task_id) VALUES (?, ?)`, msg.ID, task.ID)
		if err != nil {
			return fmt.Errorf("%w: %v", awp.ErrTransient, err)
		}
	}
	return nil
}

// Get implements [Store] interface.
func (s *MySQL) Get(ctx context.Context, taskID awp.TaskID) (*StoredTask, error) {
	var data []byte
	var version TaskVersion
	err := s.db.QueryRowContext(ctx, `SELECT data, version FROM tasks WHERE id = ?`, taskID).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, awp.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", awp.ErrTransient, err)
	}

	var task awp.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to decode task: %w", err)
	}
	return &StoredTask{Task: &task, Version: version}, nil
}

// GetByMessageID implements [Store] interface.
func (s *MySQL) GetByMessageID(ctx context.Context, messageID string) (*StoredTask, error) {
	var taskID awp.TaskID
	err := s.db.QueryRowContext(ctx, `SELECT task_id FROM task_messages WHERE message_id = ?`, messageID).Scan(&taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, awp.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", awp.ErrTransient, err)
	}
	return s.Get(ctx, taskID)
}

// List implements [Store] interface.
func (s *MySQL) List(ctx context.Context, req *awp.ListTasksRequest) (*awp.ListTasksResponse, error) {
	const defaultPageSize = 50

	pageSize := req.PageSize
	if pageSize == 0 {
		pageSize = defaultPageSize
	} else if pageSize < 1 || pageSize > 100 {
		return nil, fmt.Errorf("page size must be between 1 and 100 inclusive, got %d: %w", pageSize, awp.ErrInvalidRequest)
	}

	var conds []string
	var args []any
	if req.ContextID != "" {
		conds = append(conds, "context_id = ?")
		args = append(args, req.ContextID)
	}
	if req.Status != awp.TaskStateUnspecified {
		conds = append(conds, "state = ?")
		args = append(args, req.Status)
	}
	if req.StatusTimestampAfter != nil {
		conds = append(conds, "(status_timestamp IS NULL OR status_timestamp >= ?)")
		args = append(args, req.StatusTimestampAfter.UTC())
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var totalSize int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`+where, args...).Scan(&totalSize); err != nil {
		return nil, fmt.Errorf("%w: %v", awp.ErrTransient, err)
	}

	query := `SELECT data, version, last_updated FROM tasks` + where
	pageArgs := args
	if req.PageToken != "" {
		cursorTime, cursorTaskID, err := decodePageToken(req.PageToken)
		if err != nil {
			return nil, err
		}
		if where == "" {
			query += " WHERE"
		} else {
			query += " AND"
		}
		query += " (last_updated < ? OR (last_updated = ? AND id < ?))"
		pageArgs = append(pageArgs, cursorTime.UTC(), cursorTime.UTC(), cursorTaskID)
	}
	query += " ORDER BY last_updated DESC, id DESC LIMIT ?"
	pageArgs = append(pageArgs, pageSize+1)

	rows, err := s.db.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", awp.ErrTransient, err)
	}
	defer rows.Close()

	type row struct {
		task        *awp.Task
		lastUpdated time.Time
	}
	var page []row
	for rows.Next() {
		var data []byte
		var version TaskVersion
		var lastUpdated time.Time
		if err := rows.Scan(&data, &version, &lastUpdated); err != nil {
			return nil, fmt.Errorf("%w: %v", awp.ErrTransient, err)
		}
		var task awp.Task
		if err := json.Unmarshal(data, &task); err != nil {
			return nil, fmt.Errorf("failed to decode task: %w", err)
		}
		page = append(page, row{task: &task, lastUpdated: lastUpdated})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", awp.ErrTransient, err)
	}

	var nextPageToken string
	if len(page) > pageSize {
		last := page[pageSize-1]
		nextPageToken = encodePageToken(last.lastUpdated, last.task.ID)
		page = page[:pageSize]
	}

	const defaultMaxHistoryLength = 100
	var tasks []*awp.Task
	for _, r := range page {
		task := r.task
		historyLength := defaultMaxHistoryLength
		if req.HistoryLength != nil {
			historyLength = *req.HistoryLength
		}
		if historyLength == 0 {
			task.History = []*awp.Message{}
		} else if historyLength > 0 && len(task.History) > historyLength {
			task.History = task.History[len(task.History)-historyLength:]
		}
		if !req.IncludeArtifacts {
			task.Artifacts = nil
		}
		tasks = append(tasks, task)
	}

	return &awp.ListTasksResponse{
		Tasks:         tasks,
		TotalSize:     totalSize,
		PageSize:      pageSize,
		NextPageToken: nextPageToken,
	}, nil
}
