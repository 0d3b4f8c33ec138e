package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

var _ model.TaskStore = (*SQLiteStore)(nil)

// CreateTask inserts a new task.
func (s *SQLiteStore) CreateTask(ctx context.Context, task model.AnalysisTask) error {
	if task.CreatedAt.IsZero() {
		task.CreatedAt = s.now()
	}
	if task.Status == "" {
		task.Status = model.TaskPending
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, kind, content, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		task.ID, string(task.Kind), task.Content, string(task.Status), toNanos(task.CreatedAt))
	if err != nil {
		return fmt.Errorf("creating task %s: %w", task.ID, err)
	}
	return nil
}

// GetTask loads a task by id.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (model.AnalysisTask, error) {
	var (
		task        model.AnalysisTask
		kind        string
		status      string
		result      sql.NullString
		errMsg      sql.NullString
		createdAt   int64
		startedAt   sql.NullInt64
		completedAt sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, kind, content, status, result, error, created_at, started_at, completed_at
		 FROM tasks WHERE id = ?`, id).
		Scan(&task.ID, &kind, &task.Content, &status, &result, &errMsg, &createdAt, &startedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AnalysisTask{}, fmt.Errorf("loading task %s: %w", id, model.ErrTaskNotFound)
	}
	if err != nil {
		return model.AnalysisTask{}, fmt.Errorf("loading task %s: %w", id, err)
	}

	task.Kind = model.TaskKind(kind)
	task.Status = model.TaskStatus(status)
	task.Error = errMsg.String
	task.CreatedAt = fromNanos(createdAt)
	task.StartedAt = fromNullNanos(startedAt)
	task.CompletedAt = fromNullNanos(completedAt)

	if result.Valid && result.String != "" {
		var r model.AnalysisResult
		if err := json.Unmarshal([]byte(result.String), &r); err != nil {
			return model.AnalysisTask{}, fmt.Errorf("decoding result of task %s: %w", id, err)
		}
		task.Result = &r
	}
	return task, nil
}

// MarkRunning moves the task to running and clears any error left by a
// previous failed attempt. Completed tasks are never reopened.
func (s *SQLiteStore) MarkRunning(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, started_at = ?, error = NULL, result = NULL, completed_at = NULL
		 WHERE id = ? AND status != ?`,
		string(model.TaskRunning), toNanos(s.now()), id, string(model.TaskCompleted))
	if err != nil {
		return fmt.Errorf("marking task %s running: %w", id, err)
	}
	return s.checkTransition(ctx, res, id)
}

// MarkCompleted stores the result and moves the task to completed.
func (s *SQLiteStore) MarkCompleted(ctx context.Context, id string, result model.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result of task %s: %w", id, err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, result = ?, error = NULL, completed_at = ? WHERE id = ?`,
		string(model.TaskCompleted), string(data), toNanos(s.now()), id)
	if err != nil {
		return fmt.Errorf("marking task %s completed: %w", id, err)
	}
	return s.checkTransition(ctx, res, id)
}

// MarkFailed records the failure message. A completed task keeps its result.
func (s *SQLiteStore) MarkFailed(ctx context.Context, id string, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, error = ?, result = NULL, completed_at = ?
		 WHERE id = ? AND status != ?`,
		string(model.TaskFailed), message, toNanos(s.now()), id, string(model.TaskCompleted))
	if err != nil {
		return fmt.Errorf("marking task %s failed: %w", id, err)
	}
	return s.checkTransition(ctx, res, id)
}

// checkTransition turns a zero-row update into ErrTaskNotFound or ErrTaskCompleted.
func (s *SQLiteStore) checkTransition(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update of task %s: %w", id, err)
	}
	if n > 0 {
		return nil
	}
	var status string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("updating task %s: %w", id, model.ErrTaskNotFound)
	}
	if err != nil {
		return fmt.Errorf("updating task %s: %w", id, err)
	}
	return fmt.Errorf("updating task %s: %w", id, model.ErrTaskCompleted)
}
