package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hearthhq/hearth/internal/domain"
	"github.com/hearthhq/hearth/internal/domain/task"
)

const taskColumns = `id, title, description, assigned_to, created_by, status, priority,
	due_date, handoff_to, handoff_reason, result, skills_required, tags, version,
	created_at, updated_at`

func scanTask(row scannable) (task.Task, error) {
	var t task.Task
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.AssignedTo, &t.CreatedBy,
		&t.Status, &t.Priority, &t.DueDate, &t.HandoffTo, &t.HandoffReason,
		&t.Result, &t.SkillsRequired, &t.Tags, &t.Version,
		&t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

// wrapTaskErr translates driver errors into domain error kinds.
func wrapTaskErr(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case isUndefinedTable(err):
		return fmt.Errorf("%s: %w", op, domain.ErrNotProvisioned)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ListTasks returns all tasks, newest first.
func (s *Store) ListTasks(ctx context.Context) ([]task.Task, error) {
	return s.listTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC`)
}

// ListTasksByAgent returns all tasks assigned to the given agent, newest first.
func (s *Store) ListTasksByAgent(ctx context.Context, agentID string) ([]task.Task, error) {
	return s.listTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE assigned_to = $1 ORDER BY created_at DESC`,
		agentID)
}

func (s *Store) listTasks(ctx context.Context, query string, args ...any) ([]task.Task, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapTaskErr("list tasks", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	// Query errors surface here, not at Query time.
	if err := rows.Err(); err != nil {
		return nil, wrapTaskErr("list tasks", err)
	}
	return tasks, nil
}

// GetTask returns a single task by id.
func (s *Store) GetTask(ctx context.Context, id string) (*task.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)

	t, err := scanTask(row)
	if err != nil {
		return nil, wrapTaskErr("get task "+id, err)
	}
	return &t, nil
}

// CreateTask inserts a new task in pending status. The id and timestamps are
// assigned here; the caller never supplies them.
func (s *Store) CreateTask(ctx context.Context, req task.CreateRequest) (*task.Task, error) {
	priority := req.Priority
	if priority == "" {
		priority = task.PriorityMedium
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO tasks (id, title, description, assigned_to, created_by, status, priority, due_date, skills_required, tags)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+taskColumns,
		uuid.NewString(), req.Title, req.Description, req.AssignedTo, req.CreatedBy,
		task.StatusPending, priority, nullTime(req.DueDate),
		textArray(req.SkillsRequired), textArray(req.Tags))

	t, err := scanTask(row)
	if err != nil {
		return nil, wrapTaskErr("create task", err)
	}
	return &t, nil
}

// UpdateTask applies a partial update inside a transaction. A non-zero
// expectedVersion makes the update conditional: if another writer bumped the
// version in between, domain.ErrConflict is returned and nothing is written.
// updated_at is refreshed on every successful update.
func (s *Store) UpdateTask(ctx context.Context, id string, req task.UpdateRequest, expectedVersion int) (*task.Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, wrapTaskErr("update task "+id, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id)
	t, err := scanTask(row)
	if err != nil {
		return nil, wrapTaskErr("update task "+id, err)
	}

	if expectedVersion != 0 && t.Version != expectedVersion {
		return nil, fmt.Errorf("update task %s: %w", id, domain.ErrConflict)
	}

	req.Apply(&t)
	t.Version++

	row = tx.QueryRow(ctx,
		`UPDATE tasks
		 SET title = $2, description = $3, assigned_to = $4, status = $5,
		     priority = $6, due_date = $7, handoff_to = $8, handoff_reason = $9,
		     result = $10, skills_required = $11, tags = $12, version = $13,
		     updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		t.ID, t.Title, t.Description, t.AssignedTo, t.Status,
		t.Priority, nullTime(t.DueDate), t.HandoffTo, t.HandoffReason,
		t.Result, textArray(t.SkillsRequired), textArray(t.Tags), t.Version)
	if err := row.Scan(&t.UpdatedAt); err != nil {
		return nil, wrapTaskErr("update task "+id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrapTaskErr("update task "+id, err)
	}
	return &t, nil
}

// DeleteTask removes a task by id.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return wrapTaskErr("delete task "+id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete task %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
