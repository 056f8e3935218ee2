package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	otelx "github.com/hearthhq/hearth/internal/adapter/otel"
	"github.com/hearthhq/hearth/internal/domain"
	"github.com/hearthhq/hearth/internal/domain/agent"
	"github.com/hearthhq/hearth/internal/domain/memory"
	"github.com/hearthhq/hearth/internal/domain/task"
	"github.com/hearthhq/hearth/internal/port/memoryservice"
	"github.com/hearthhq/hearth/internal/port/messagequeue"
)

// ExecutionResult is the structured outcome of an Execute call.
type ExecutionResult struct {
	Success bool   `json:"success"`
	Result  string `json:"result"`
}

// Runner drives tasks through the lifecycle state machine: auto-assignment,
// agent-to-agent handoffs, and execution to a terminal status.
type Runner struct {
	tasks    *TaskService
	dir      *Directory
	assigner *Assigner
	memories memoryservice.Service // nil disables memory context
	queue    messagequeue.Queue    // nil disables event publishing
	metrics  *otelx.Metrics
}

// NewRunner creates a new Runner.
func NewRunner(tasks *TaskService, dir *Directory, assigner *Assigner, memories memoryservice.Service, queue messagequeue.Queue) *Runner {
	return &Runner{
		tasks:    tasks,
		dir:      dir,
		assigner: assigner,
		memories: memories,
		queue:    queue,
	}
}

// SetMetrics attaches metric instruments to the runner.
func (r *Runner) SetMetrics(m *otelx.Metrics) {
	r.metrics = m
}

// Assign runs the assignment engine for the task and persists the winner.
// When no agent scores above zero the task is returned unchanged with a nil
// agent; that is not an error.
func (r *Runner) Assign(ctx context.Context, taskID string) (*task.Task, *agent.Agent, error) {
	t, err := r.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}

	best := r.assigner.FindBestAgent(ctx, t)
	if best == nil {
		return t, nil, nil
	}

	status := task.StatusAssigned
	updated, err := r.tasks.Update(ctx, t.ID, task.UpdateRequest{
		AssignedTo: &best.ID,
		Status:     &status,
	}, t.Version)
	if err != nil {
		return nil, nil, err
	}

	if r.metrics != nil {
		r.metrics.TasksAssigned.Add(ctx, 1)
	}
	slog.Info("task assigned", "task_id", updated.ID, "agent_id", best.ID)
	return updated, best, nil
}

// Handoff reassigns a task to another agent, recording the reason. The
// handoff is committed once the task update succeeds; the two memory entries
// (one for the outgoing agent, one for the incoming) are best-effort and
// never fail the handoff. Handoff is allowed from any state and is
// re-entrant.
func (r *Runner) Handoff(ctx context.Context, taskID, fromID, toID, reason string) (*task.Task, error) {
	if toID == "" {
		return nil, fmt.Errorf("%w: handoff target is required", domain.ErrValidation)
	}

	status := task.StatusHandoff
	updated, err := r.tasks.Update(ctx, taskID, task.UpdateRequest{
		AssignedTo:    &toID,
		Status:        &status,
		HandoffTo:     &toID,
		HandoffReason: &reason,
	}, 0)
	if err != nil {
		return nil, err
	}

	r.recordHandoffMemories(ctx, updated, fromID, toID, reason)
	r.publishHandoff(ctx, updated, fromID, toID, reason)

	if r.metrics != nil {
		r.metrics.Handoffs.Add(ctx, 1)
	}
	slog.Info("task handed off", "task_id", updated.ID, "from", fromID, "to", toID)
	return updated, nil
}

// Execute drives a task to a terminal status on behalf of an agent. When the
// initial lookup fails the task is left untouched and the error is returned;
// after that point every outcome is persisted: completed with the generated
// result, or failed with the error text.
func (r *Runner) Execute(ctx context.Context, taskID, agentID string) (ExecutionResult, error) {
	start := time.Now()

	t, err := r.tasks.Get(ctx, taskID)
	if err != nil {
		return ExecutionResult{}, err
	}
	a, ok := r.dir.GetAgent(ctx, agentID)
	if !ok {
		return ExecutionResult{}, fmt.Errorf("agent %s: %w", agentID, domain.ErrNotFound)
	}

	result, err := r.run(ctx, t, a)

	if r.metrics != nil {
		r.metrics.ExecuteDuration.Record(ctx, time.Since(start).Seconds())
	}

	if err != nil {
		msg := "Error: " + err.Error()
		r.failTask(ctx, t.ID, msg)
		if r.metrics != nil {
			r.metrics.ExecutionsFail.Add(ctx, 1)
		}
		slog.Warn("task execution failed", "task_id", t.ID, "agent_id", agentID, "error", err)
		return ExecutionResult{Success: false, Result: msg}, nil
	}

	if r.metrics != nil {
		r.metrics.ExecutionsOK.Add(ctx, 1)
	}
	slog.Info("task executed", "task_id", t.ID, "agent_id", agentID)
	return ExecutionResult{Success: true, Result: result}, nil
}

// run is the happy path of the execute sequence: in_progress, memory recall,
// result synthesis, completed. Any error aborts and is handled by Execute.
func (r *Runner) run(ctx context.Context, t *task.Task, a *agent.Agent) (string, error) {
	if !t.Status.Startable() {
		slog.Debug("re-executing task", "task_id", t.ID, "status", t.Status)
	}

	status := task.StatusInProgress
	cur, err := r.tasks.Update(ctx, t.ID, task.UpdateRequest{Status: &status}, t.Version)
	if err != nil {
		return "", err
	}

	var entries []memory.Entry
	if r.memories != nil {
		entries, err = r.memories.Recall(ctx, a.ID, t.Description, memory.DefaultRecallLimit)
		if err != nil {
			// No relevant context is fine; the execution proceeds without it.
			slog.Warn("memory recall failed", "agent_id", a.ID, "error", err)
			entries = nil
		}
	}

	result := composeResult(cur, a, entries)

	done := task.StatusCompleted
	if _, err := r.tasks.Update(ctx, t.ID, task.UpdateRequest{Status: &done, Result: &result}, cur.Version); err != nil {
		return "", err
	}
	return result, nil
}

// composeResult assembles the execution outcome text. This is the seam where
// the actual assistant invocation belongs; the engine's obligation is to
// gather the context and record a result.
func composeResult(t *task.Task, a *agent.Agent, entries []memory.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) completed task %q.", a.Name, a.Role, t.Title)
	if len(entries) > 0 {
		fmt.Fprintf(&b, " Context: %d relevant memories applied.", len(entries))
	}
	return b.String()
}

// failTask persists the failed terminal status best-effort. A task id we
// already resolved should stay reachable, but if the write fails there is
// nothing more to do than log it.
func (r *Runner) failTask(ctx context.Context, id, msg string) {
	status := task.StatusFailed
	if _, err := r.tasks.Update(ctx, id, task.UpdateRequest{Status: &status, Result: &msg}, 0); err != nil {
		slog.Error("persist failed status", "task_id", id, "error", err)
	}
}

func (r *Runner) recordHandoffMemories(ctx context.Context, t *task.Task, fromID, toID, reason string) {
	if r.memories == nil {
		return
	}
	if fromID != "" {
		text := fmt.Sprintf("Handed off task %q to %s. Reason: %s", t.Title, toID, reason)
		if err := r.memories.Record(ctx, fromID, text); err != nil {
			slog.Warn("record handoff memory failed", "agent_id", fromID, "error", err)
		}
	}
	text := fmt.Sprintf("Received task %q from %s. Reason: %s", t.Title, fromID, reason)
	if err := r.memories.Record(ctx, toID, text); err != nil {
		slog.Warn("record handoff memory failed", "agent_id", toID, "error", err)
	}
}

func (r *Runner) publishHandoff(ctx context.Context, t *task.Task, fromID, toID, reason string) {
	if r.queue == nil {
		return
	}
	data, err := json.Marshal(messagequeue.TaskHandoffEvent{
		TaskID: t.ID,
		From:   fromID,
		To:     toID,
		Reason: reason,
	})
	if err != nil {
		slog.Error("marshal handoff event", "error", err)
		return
	}
	if err := r.queue.Publish(ctx, messagequeue.SubjectTaskHandoff, data); err != nil {
		slog.Error("publish handoff event", "error", err)
	}
}
