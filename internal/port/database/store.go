// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/hearthhq/hearth/internal/domain/agent"
	"github.com/hearthhq/hearth/internal/domain/crew"
	"github.com/hearthhq/hearth/internal/domain/task"
)

// Store is the port interface for database operations.
//
// Implementations report a missing backing table as domain.ErrNotProvisioned
// so the service layer can distinguish "not set up yet" from real failures.
type Store interface {
	// Agents (read-only; agent CRUD is an external admin concern)
	ListAgents(ctx context.Context) ([]agent.Agent, error)
	GetAgent(ctx context.Context, id string) (*agent.Agent, error)

	// Tasks
	ListTasks(ctx context.Context) ([]task.Task, error)
	ListTasksByAgent(ctx context.Context, agentID string) ([]task.Task, error)
	GetTask(ctx context.Context, id string) (*task.Task, error)
	CreateTask(ctx context.Context, req task.CreateRequest) (*task.Task, error)
	// UpdateTask applies a partial update. A non-zero expectedVersion turns
	// the update into a compare-and-set; domain.ErrConflict is returned when
	// the row was modified concurrently.
	UpdateTask(ctx context.Context, id string, req task.UpdateRequest, expectedVersion int) (*task.Task, error)
	DeleteTask(ctx context.Context, id string) error

	// Crews
	ListCrews(ctx context.Context) ([]crew.Crew, error)
	GetCrew(ctx context.Context, id string) (*crew.Crew, error)
	CreateCrew(ctx context.Context, req crew.CreateRequest) (*crew.Crew, error)

	// Provisioned is the existence probe: it reports whether the named table
	// has been created, without touching its rows.
	Provisioned(ctx context.Context, table string) (bool, error)
}
