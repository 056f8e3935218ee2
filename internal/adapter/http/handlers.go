package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/hearthhq/hearth/internal/adapter/ws"
	"github.com/hearthhq/hearth/internal/domain/crew"
	"github.com/hearthhq/hearth/internal/domain/task"
	"github.com/hearthhq/hearth/internal/port/messagequeue"
	"github.com/hearthhq/hearth/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Directory *service.Directory
	Tasks     *service.TaskService
	Crews     *service.CrewService
	Runner    *service.Runner
	Hub       *ws.Hub
	Queue     messagequeue.Queue // nil when events are disabled

	started time.Time
}

// NewHandlers creates the handler set.
func NewHandlers(dir *service.Directory, tasks *service.TaskService, crews *service.CrewService, runner *service.Runner, hub *ws.Hub, queue messagequeue.Queue) *Handlers {
	return &Handlers{
		Directory: dir,
		Tasks:     tasks,
		Crews:     crews,
		Runner:    runner,
		Hub:       hub,
		Queue:     queue,
		started:   time.Now(),
	}
}

// Health reports process liveness and the state of the event pipeline.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	}
	if h.Hub != nil {
		resp["ws_connections"] = h.Hub.ConnectionCount()
	}
	if h.Queue != nil {
		resp["nats_connected"] = h.Queue.IsConnected()
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListAgents returns every agent profile, defaults included.
func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Directory.ListAgents(r.Context()))
}

// GetAgent returns a single agent profile.
func (h *Handlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	a, ok := h.Directory.GetAgent(r.Context(), urlParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ListAgentTasks returns the tasks assigned to an agent.
func (h *Handlers) ListAgentTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Tasks.ListByAgent(r.Context(), urlParam(r, "id")))
}

// ListTasks returns all tasks, optionally filtered by ?status=.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks := h.Tasks.List(r.Context())

	if raw := r.URL.Query().Get("status"); raw != "" {
		status := task.Status(raw)
		if !slices.Contains(task.ValidStatuses, status) {
			writeError(w, http.StatusBadRequest, "unknown status filter")
			return
		}
		filtered := make([]task.Task, 0, len(tasks))
		for _, t := range tasks {
			if t.Status == status {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}

	writeJSON(w, http.StatusOK, tasks)
}

// CreateTask creates a new pending task.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[task.CreateRequest](w, r)
	if !ok {
		return
	}
	t, err := h.Tasks.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// GetTask returns a task by id.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tasks.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type updateTaskRequest struct {
	task.UpdateRequest
	// ExpectedVersion turns the update into a compare-and-set when non-zero.
	ExpectedVersion int `json:"expected_version,omitempty"`
}

// UpdateTask applies a partial update to a task.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[updateTaskRequest](w, r)
	if !ok {
		return
	}
	t, err := h.Tasks.Update(r.Context(), urlParam(r, "id"), req.UpdateRequest, req.ExpectedVersion)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTask removes a task.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.Tasks.Delete(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignResponse struct {
	Task  *task.Task `json:"task"`
	Agent any        `json:"agent"` // nil when no agent qualified
}

// AssignTask runs the assignment engine for a task. A response with a null
// agent means no profile scored above zero; the task stays as it was.
func (h *Handlers) AssignTask(w http.ResponseWriter, r *http.Request) {
	t, winner, err := h.Runner.Assign(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	resp := assignResponse{Task: t}
	if winner != nil {
		resp.Agent = winner
	}
	writeJSON(w, http.StatusOK, resp)
}

type executeTaskRequest struct {
	AgentID string `json:"agent_id,omitempty"`
}

// ExecuteTask runs a task to a terminal status. The body may name the
// executing agent; it defaults to the task's current assignee.
func (h *Handlers) ExecuteTask(w http.ResponseWriter, r *http.Request) {
	var req executeTaskRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := urlParam(r, "id")
	agentID := req.AgentID
	if agentID == "" {
		t, err := h.Tasks.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err, "task not found")
			return
		}
		agentID = t.AssignedTo
	}
	if agentID == "" {
		writeError(w, http.StatusBadRequest, "agent_id is required for unassigned tasks")
		return
	}

	res, err := h.Runner.Execute(r.Context(), id, agentID)
	if err != nil {
		writeDomainError(w, err, "task or agent not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type handoffRequest struct {
	From   string `json:"from,omitempty"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}

// HandoffTask reassigns a task to another agent. The source defaults to the
// task's current assignee.
func (h *Handlers) HandoffTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[handoffRequest](w, r)
	if !ok {
		return
	}

	id := urlParam(r, "id")
	if req.From == "" {
		t, err := h.Tasks.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err, "task not found")
			return
		}
		req.From = t.AssignedTo
	}

	t, err := h.Runner.Handoff(r.Context(), id, req.From, req.To, req.Reason)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ListCrews returns all crews.
func (h *Handlers) ListCrews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Crews.List(r.Context()))
}

// GetCrew returns a crew by id.
func (h *Handlers) GetCrew(w http.ResponseWriter, r *http.Request) {
	c, err := h.Crews.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "crew not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateCrew creates a new crew.
func (h *Handlers) CreateCrew(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[crew.CreateRequest](w, r)
	if !ok {
		return
	}
	c, err := h.Crews.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "crew not found")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
