// Package service holds the business logic of the assignment and handoff
// engine, built over the database, cache, queue and memory-service ports.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hearthhq/hearth/internal/domain"
	"github.com/hearthhq/hearth/internal/domain/task"
	"github.com/hearthhq/hearth/internal/port/database"
	"github.com/hearthhq/hearth/internal/port/messagequeue"
	"github.com/hearthhq/hearth/internal/resilience"
)

// tasksTable is the relation probed before every task operation.
const tasksTable = "tasks"

// TaskService wraps the task store with the availability policy the dashboard
// relies on: an existence probe before every operation, bounded retries on
// reads, and empty results instead of errors while the store is not set up.
// Writes fail fast and surface sentinel error kinds.
type TaskService struct {
	store database.Store
	queue messagequeue.Queue // nil disables event publishing
	retry resilience.Policy
}

// NewTaskService creates a new TaskService.
func NewTaskService(store database.Store, queue messagequeue.Queue, retry resilience.Policy) *TaskService {
	return &TaskService{store: store, queue: queue, retry: retry}
}

// List returns all tasks, newest first. The result is empty (never nil) when
// the store is not provisioned or reads keep failing.
func (s *TaskService) List(ctx context.Context) []task.Task {
	return s.readList(ctx, func() ([]task.Task, error) {
		return s.store.ListTasks(ctx)
	})
}

// ListByAgent returns all tasks assigned to the given agent, newest first.
func (s *TaskService) ListByAgent(ctx context.Context, agentID string) []task.Task {
	return s.readList(ctx, func() ([]task.Task, error) {
		return s.store.ListTasksByAgent(ctx, agentID)
	})
}

// Get returns a task by id. The error is domain.ErrNotFound for a missing
// task and domain.ErrNotProvisioned when the store is absent or reads were
// exhausted.
func (s *TaskService) Get(ctx context.Context, id string) (*task.Task, error) {
	if !s.provisioned(ctx) {
		return nil, fmt.Errorf("get task %s: %w", id, domain.ErrNotProvisioned)
	}

	var t *task.Task
	err := s.retry.Do(ctx, func() error {
		var e error
		t, e = s.store.GetTask(ctx, id)
		return e
	}, retryableRead)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrNotProvisioned) {
			return nil, err
		}
		slog.Warn("task read failed after retries", "task_id", id, "error", err)
		return nil, fmt.Errorf("get task %s: %w", id, domain.ErrNotProvisioned)
	}
	return t, nil
}

// Create inserts a new task in pending status and announces it on the queue.
// Writes are not retried.
func (s *TaskService) Create(ctx context.Context, req task.CreateRequest) (*task.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !s.provisioned(ctx) {
		return nil, fmt.Errorf("create task: %w", domain.ErrNotProvisioned)
	}

	t, err := s.store.CreateTask(ctx, req)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, messagequeue.SubjectTaskCreated, messagequeue.TaskCreatedEvent{
		TaskID:     t.ID,
		Title:      t.Title,
		AssignedTo: t.AssignedTo,
		Priority:   string(t.Priority),
	})
	return t, nil
}

// Update applies a partial update. A non-zero expectedVersion turns the
// update into a compare-and-set; domain.ErrConflict reports a lost race.
// A status change is announced on the queue after the write commits.
func (s *TaskService) Update(ctx context.Context, id string, req task.UpdateRequest, expectedVersion int) (*task.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !s.provisioned(ctx) {
		return nil, fmt.Errorf("update task %s: %w", id, domain.ErrNotProvisioned)
	}

	t, err := s.store.UpdateTask(ctx, id, req, expectedVersion)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		s.publish(ctx, messagequeue.SubjectTaskStatus, messagequeue.TaskStatusEvent{
			TaskID:     t.ID,
			Status:     string(t.Status),
			AssignedTo: t.AssignedTo,
		})
	}
	return t, nil
}

// Delete removes a task by id.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	if !s.provisioned(ctx) {
		return fmt.Errorf("delete task %s: %w", id, domain.ErrNotProvisioned)
	}
	return s.store.DeleteTask(ctx, id)
}

// provisioned runs the existence probe. Probe failures are treated as "not
// provisioned" so a flaky connection degrades to empty results instead of
// surfacing errors before setup completes.
func (s *TaskService) provisioned(ctx context.Context) bool {
	ok, err := s.store.Provisioned(ctx, tasksTable)
	if err != nil {
		slog.Warn("task table probe failed", "error", err)
		return false
	}
	if !ok {
		slog.Debug("tasks table not provisioned")
	}
	return ok
}

func (s *TaskService) readList(ctx context.Context, fetch func() ([]task.Task, error)) []task.Task {
	if !s.provisioned(ctx) {
		return []task.Task{}
	}

	var tasks []task.Task
	err := s.retry.Do(ctx, func() error {
		var e error
		tasks, e = fetch()
		return e
	}, retryableRead)
	if err != nil {
		if !errors.Is(err, domain.ErrNotProvisioned) {
			slog.Warn("task list failed after retries", "error", err)
		}
		return []task.Task{}
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return tasks
}

// publish sends a task event best-effort. Losing an event never fails the
// operation that produced it.
func (s *TaskService) publish(ctx context.Context, subject string, payload any) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal task event", "subject", subject, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Error("publish task event", "subject", subject, "error", err)
	}
}
