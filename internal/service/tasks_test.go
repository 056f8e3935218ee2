package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hearthhq/hearth/internal/domain"
	"github.com/hearthhq/hearth/internal/domain/task"
	"github.com/hearthhq/hearth/internal/port/messagequeue"
)

func TestTaskListEmptyWhenNotProvisioned(t *testing.T) {
	store := newMockStore()
	store.unprovisioned["tasks"] = true
	svc := NewTaskService(store, nil, testRetry())

	tasks := svc.List(context.Background())
	if tasks == nil {
		t.Fatal("list must return an empty slice, not nil")
	}
	if len(tasks) != 0 {
		t.Fatalf("expected no tasks, got %d", len(tasks))
	}
	if store.listTasksCalls != 0 {
		t.Fatal("probe failure must short-circuit before the read")
	}
}

func TestTaskListEmptyWhenProbeFails(t *testing.T) {
	store := newMockStore()
	store.probeErr = errors.New("connection refused")
	svc := NewTaskService(store, nil, testRetry())

	if got := svc.List(context.Background()); len(got) != 0 {
		t.Fatalf("expected empty list on probe failure, got %d", len(got))
	}
}

func TestTaskListRetriesThenSucceeds(t *testing.T) {
	store := newMockStore()
	store.addTask(task.Task{ID: "t1", Title: "one", Status: task.StatusPending, Version: 1})
	store.failReads(2, errors.New("timeout"))
	svc := NewTaskService(store, nil, testRetry())

	tasks := svc.List(context.Background())
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task after retries, got %d", len(tasks))
	}
	if store.listTasksCalls != 3 {
		t.Fatalf("expected 3 attempts, got %d", store.listTasksCalls)
	}
}

func TestTaskListEmptyAfterExhaustedRetries(t *testing.T) {
	store := newMockStore()
	store.addTask(task.Task{ID: "t1", Title: "one", Status: task.StatusPending, Version: 1})
	store.failReads(10, errors.New("timeout"))
	svc := NewTaskService(store, nil, testRetry())

	if got := svc.List(context.Background()); len(got) != 0 {
		t.Fatalf("expected empty list after exhausted retries, got %d", len(got))
	}
	if store.listTasksCalls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", store.listTasksCalls)
	}
}

func TestTaskListByAgentFilters(t *testing.T) {
	store := newMockStore()
	store.addTask(task.Task{ID: "t1", Title: "one", AssignedTo: "stan", Status: task.StatusAssigned, Version: 1})
	store.addTask(task.Task{ID: "t2", Title: "two", AssignedTo: "luna", Status: task.StatusAssigned, Version: 1})
	svc := NewTaskService(store, nil, testRetry())

	tasks := svc.ListByAgent(context.Background(), "stan")
	if len(tasks) != 1 || tasks[0].ID != "t1" {
		t.Fatalf("expected only stan's task, got %+v", tasks)
	}
}

func TestTaskGetNotFound(t *testing.T) {
	svc := NewTaskService(newMockStore(), nil, testRetry())
	_, err := svc.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTaskGetNotProvisioned(t *testing.T) {
	store := newMockStore()
	store.unprovisioned["tasks"] = true
	svc := NewTaskService(store, nil, testRetry())

	_, err := svc.Get(context.Background(), "t1")
	if !errors.Is(err, domain.ErrNotProvisioned) {
		t.Fatalf("expected ErrNotProvisioned, got %v", err)
	}
}

func TestTaskCreate(t *testing.T) {
	store := newMockStore()
	queue := &mockQueue{}
	svc := NewTaskService(store, queue, testRetry())

	created, err := svc.Create(context.Background(), task.CreateRequest{
		Title:          "Fix the wifi",
		Description:    "router keeps dropping",
		CreatedBy:      "dad",
		SkillsRequired: []string{"home networking"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != task.StatusPending {
		t.Fatalf("new tasks start pending, got %q", created.Status)
	}
	if created.Priority != task.PriorityMedium {
		t.Fatalf("default priority is medium, got %q", created.Priority)
	}
	if created.Version != 1 {
		t.Fatalf("new tasks start at version 1, got %d", created.Version)
	}

	if len(queue.published) != 1 || queue.published[0].subject != messagequeue.SubjectTaskCreated {
		t.Fatalf("expected one %s event, got %v", messagequeue.SubjectTaskCreated, queue.subjects())
	}
	var evt messagequeue.TaskCreatedEvent
	if err := json.Unmarshal(queue.published[0].data, &evt); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if evt.TaskID != created.ID || evt.Title != "Fix the wifi" {
		t.Fatalf("unexpected event payload: %+v", evt)
	}
}

func TestTaskCreateValidation(t *testing.T) {
	svc := NewTaskService(newMockStore(), nil, testRetry())

	cases := []struct {
		name string
		req  task.CreateRequest
	}{
		{"missing title", task.CreateRequest{Description: "no title"}},
		{"bad priority", task.CreateRequest{Title: "x", Priority: "urgent"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tc.req); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestTaskCreateNotProvisioned(t *testing.T) {
	store := newMockStore()
	store.unprovisioned["tasks"] = true
	svc := NewTaskService(store, nil, testRetry())

	_, err := svc.Create(context.Background(), task.CreateRequest{Title: "x"})
	if !errors.Is(err, domain.ErrNotProvisioned) {
		t.Fatalf("writes must fail fast when not provisioned, got %v", err)
	}
}

func TestTaskCreateSurvivesQueueFailure(t *testing.T) {
	store := newMockStore()
	queue := &mockQueue{publishErr: errors.New("nats down")}
	svc := NewTaskService(store, queue, testRetry())

	if _, err := svc.Create(context.Background(), task.CreateRequest{Title: "x"}); err != nil {
		t.Fatalf("a lost event must not fail the create: %v", err)
	}
}

func TestTaskUpdatePublishesStatusChange(t *testing.T) {
	store := newMockStore()
	store.addTask(task.Task{ID: "t1", Title: "one", Status: task.StatusPending, Version: 1})
	queue := &mockQueue{}
	svc := NewTaskService(store, queue, testRetry())

	status := task.StatusAssigned
	agentID := "stan"
	updated, err := svc.Update(context.Background(), "t1", task.UpdateRequest{Status: &status, AssignedTo: &agentID}, 0)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Version != 2 {
		t.Fatalf("update must bump the version, got %d", updated.Version)
	}
	if len(queue.published) != 1 || queue.published[0].subject != messagequeue.SubjectTaskStatus {
		t.Fatalf("expected one %s event, got %v", messagequeue.SubjectTaskStatus, queue.subjects())
	}

	// A field-only update carries no status event.
	title := "renamed"
	if _, err := svc.Update(context.Background(), "t1", task.UpdateRequest{Title: &title}, 0); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(queue.published) != 1 {
		t.Fatalf("field-only updates must not publish, got %v", queue.subjects())
	}
}

func TestTaskUpdateVersionConflict(t *testing.T) {
	store := newMockStore()
	store.addTask(task.Task{ID: "t1", Title: "one", Status: task.StatusPending, Version: 3})
	svc := NewTaskService(store, nil, testRetry())

	title := "stale write"
	_, err := svc.Update(context.Background(), "t1", task.UpdateRequest{Title: &title}, 2)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict on version mismatch, got %v", err)
	}
}

func TestTaskUpdateRejectsUnknownStatus(t *testing.T) {
	store := newMockStore()
	store.addTask(task.Task{ID: "t1", Title: "one", Status: task.StatusPending, Version: 1})
	svc := NewTaskService(store, nil, testRetry())

	bad := task.Status("archived")
	if _, err := svc.Update(context.Background(), "t1", task.UpdateRequest{Status: &bad}, 0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestTaskDelete(t *testing.T) {
	store := newMockStore()
	store.addTask(task.Task{ID: "t1", Title: "one", Status: task.StatusPending, Version: 1})
	svc := NewTaskService(store, nil, testRetry())

	if err := svc.Delete(context.Background(), "t1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(context.Background(), "t1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
