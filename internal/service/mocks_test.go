package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hearthhq/hearth/internal/domain"
	"github.com/hearthhq/hearth/internal/domain/agent"
	"github.com/hearthhq/hearth/internal/domain/crew"
	"github.com/hearthhq/hearth/internal/domain/memory"
	"github.com/hearthhq/hearth/internal/domain/task"
	"github.com/hearthhq/hearth/internal/port/messagequeue"
	"github.com/hearthhq/hearth/internal/resilience"
)

// noSleep makes retry-based tests instant.
func noSleep(context.Context, time.Duration) error { return nil }

func testRetry() resilience.Policy {
	return resilience.Policy{MaxRetries: 2, BaseDelay: time.Millisecond, Sleep: noSleep}
}

// mockStore is an in-memory database.Store with fault injection for the
// availability-policy tests.
type mockStore struct {
	mu sync.Mutex

	agents    []agent.Agent
	tasks     map[string]*task.Task
	taskOrder []string
	crews     map[string]*crew.Crew

	// unprovisioned tables report false from the existence probe and
	// domain.ErrNotProvisioned from row operations.
	unprovisioned map[string]bool
	probeErr      error

	// readFailures counts down: while positive, every read errors with readErr.
	readFailures int
	readErr      error

	// updateFailAt errors the nth UpdateTask call (1-based) with updateErr.
	updateFailAt int
	updateErr    error

	listAgentsCalls int
	listTasksCalls  int
	updateCalls     int
	nextID          int
}

func newMockStore() *mockStore {
	return &mockStore{
		tasks:         make(map[string]*task.Task),
		crews:         make(map[string]*crew.Crew),
		unprovisioned: make(map[string]bool),
	}
}

func (m *mockStore) addTask(t task.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := t
	m.tasks[t.ID] = &cp
	m.taskOrder = append(m.taskOrder, t.ID)
}

func (m *mockStore) taskByID(id string) task.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.tasks[id]
}

func (m *mockStore) failReads(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readFailures = n
	m.readErr = err
}

func (m *mockStore) readErrNow() error {
	if m.readFailures > 0 {
		m.readFailures--
		return m.readErr
	}
	return nil
}

func (m *mockStore) ListAgents(ctx context.Context) ([]agent.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listAgentsCalls++
	if m.unprovisioned["agents"] {
		return nil, domain.ErrNotProvisioned
	}
	if err := m.readErrNow(); err != nil {
		return nil, err
	}
	return append([]agent.Agent(nil), m.agents...), nil
}

func (m *mockStore) GetAgent(ctx context.Context, id string) (*agent.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.agents {
		if m.agents[i].ID == id {
			cp := m.agents[i]
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListTasks(ctx context.Context) ([]task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listTasksCalls++
	if m.unprovisioned["tasks"] {
		return nil, domain.ErrNotProvisioned
	}
	if err := m.readErrNow(); err != nil {
		return nil, err
	}
	out := make([]task.Task, 0, len(m.taskOrder))
	for i := len(m.taskOrder) - 1; i >= 0; i-- {
		out = append(out, *m.tasks[m.taskOrder[i]])
	}
	return out, nil
}

func (m *mockStore) ListTasksByAgent(ctx context.Context, agentID string) ([]task.Task, error) {
	all, err := m.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]task.Task, 0, len(all))
	for _, t := range all {
		if t.AssignedTo == agentID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockStore) GetTask(ctx context.Context, id string) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unprovisioned["tasks"] {
		return nil, domain.ErrNotProvisioned
	}
	if err := m.readErrNow(); err != nil {
		return nil, err
	}
	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (m *mockStore) CreateTask(ctx context.Context, req task.CreateRequest) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	now := time.Now()
	priority := req.Priority
	if priority == "" {
		priority = task.PriorityMedium
	}
	t := &task.Task{
		ID:             fmt.Sprintf("task-%d", m.nextID),
		Title:          req.Title,
		Description:    req.Description,
		CreatedBy:      req.CreatedBy,
		AssignedTo:     req.AssignedTo,
		Status:         task.StatusPending,
		Priority:       priority,
		DueDate:        req.DueDate,
		SkillsRequired: req.SkillsRequired,
		Tags:           req.Tags,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.tasks[t.ID] = t
	m.taskOrder = append(m.taskOrder, t.ID)
	cp := *t
	return &cp, nil
}

func (m *mockStore) UpdateTask(ctx context.Context, id string, req task.UpdateRequest, expectedVersion int) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.updateFailAt != 0 && m.updateCalls == m.updateFailAt {
		return nil, m.updateErr
	}
	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	if expectedVersion != 0 && t.Version != expectedVersion {
		return nil, fmt.Errorf("task %s version %d: %w", id, t.Version, domain.ErrConflict)
	}
	req.Apply(t)
	t.Version++
	t.UpdatedAt = time.Now()
	cp := *t
	return &cp, nil
}

func (m *mockStore) DeleteTask(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	delete(m.tasks, id)
	return nil
}

func (m *mockStore) ListCrews(ctx context.Context) ([]crew.Crew, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unprovisioned["crews"] {
		return nil, domain.ErrNotProvisioned
	}
	out := make([]crew.Crew, 0, len(m.crews))
	for _, c := range m.crews {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockStore) GetCrew(ctx context.Context, id string) (*crew.Crew, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.crews[id]
	if !ok {
		return nil, fmt.Errorf("crew %s: %w", id, domain.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (m *mockStore) CreateCrew(ctx context.Context, req crew.CreateRequest) (*crew.Crew, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	now := time.Now()
	c := &crew.Crew{
		ID:          fmt.Sprintf("crew-%d", m.nextID),
		Name:        req.Name,
		Description: req.Description,
		AgentIDs:    req.AgentIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.crews[c.ID] = c
	cp := *c
	return &cp, nil
}

func (m *mockStore) Provisioned(ctx context.Context, table string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.probeErr != nil {
		return false, m.probeErr
	}
	return !m.unprovisioned[table], nil
}

// mockQueue records published messages.
type mockQueue struct {
	mu         sync.Mutex
	published  []publishedMsg
	subscribed []string
	handler    messagequeue.Handler
	publishErr error
}

type publishedMsg struct {
	subject string
	data    []byte
}

func (m *mockQueue) Publish(ctx context.Context, subject string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, publishedMsg{subject: subject, data: data})
	return nil
}

func (m *mockQueue) Subscribe(ctx context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribed = append(m.subscribed, subject)
	m.handler = handler
	return func() {}, nil
}

func (m *mockQueue) Drain() error      { return nil }
func (m *mockQueue) Close() error      { return nil }
func (m *mockQueue) IsConnected() bool { return true }

func (m *mockQueue) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.published))
	for i, p := range m.published {
		out[i] = p.subject
	}
	return out
}

// mockMemory records Record calls and serves canned Recall results.
type mockMemory struct {
	mu        sync.Mutex
	records   []recordedMemory
	entries   []memory.Entry
	recordErr error
	recallErr error
}

type recordedMemory struct {
	agentID string
	text    string
}

func (m *mockMemory) Record(ctx context.Context, agentID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	m.records = append(m.records, recordedMemory{agentID: agentID, text: text})
	return nil
}

func (m *mockMemory) Recall(ctx context.Context, agentID, query string, limit int) ([]memory.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recallErr != nil {
		return nil, m.recallErr
	}
	return m.entries, nil
}

// mockCache is a plain map-backed cache.
type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
	hits int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if ok {
		m.hits++
	}
	return v, ok, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
