package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hearthhq/hearth/internal/domain"
	"github.com/hearthhq/hearth/internal/domain/agent"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Provisioned reports whether the named table exists, without touching its
// rows. to_regclass returns NULL for unknown relations instead of erroring.
func (s *Store) Provisioned(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT to_regclass('public.' || $1) IS NOT NULL`, table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("probe %s: %w", table, err)
	}
	return exists, nil
}

// --- Agents ---

const agentColumns = `id, name, role, specialty, skills, description, avatar_url, created_at, updated_at`

func scanAgent(row scannable) (agent.Agent, error) {
	var a agent.Agent
	err := row.Scan(
		&a.ID, &a.Name, &a.Role, &a.Specialty, &a.Skills,
		&a.Description, &a.AvatarURL, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

// ListAgents returns all agent profiles ordered by name.
func (s *Store) ListAgents(ctx context.Context) ([]agent.Agent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+agentColumns+` FROM agents ORDER BY name ASC`)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, fmt.Errorf("list agents: %w", domain.ErrNotProvisioned)
		}
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []agent.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	// Query errors surface here, not at Query time.
	if err := rows.Err(); err != nil {
		if isUndefinedTable(err) {
			return nil, fmt.Errorf("list agents: %w", domain.ErrNotProvisioned)
		}
		return nil, fmt.Errorf("list agents: %w", err)
	}
	return agents, nil
}

// GetAgent returns a single agent profile by id.
func (s *Store) GetAgent(ctx context.Context, id string) (*agent.Agent, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)

	a, err := scanAgent(row)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, fmt.Errorf("get agent %s: %w", id, domain.ErrNotFound)
		case isUndefinedTable(err):
			return nil, fmt.Errorf("get agent %s: %w", id, domain.ErrNotProvisioned)
		}
		return nil, fmt.Errorf("get agent %s: %w", id, err)
	}
	return &a, nil
}
