package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hearthhq/hearth/internal/domain"
	"github.com/hearthhq/hearth/internal/domain/crew"
)

const crewColumns = `id, name, description, agent_ids, created_at, updated_at`

func scanCrew(row scannable) (crew.Crew, error) {
	var c crew.Crew
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.AgentIDs, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// ListCrews returns all crews ordered by name.
func (s *Store) ListCrews(ctx context.Context) ([]crew.Crew, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+crewColumns+` FROM crews ORDER BY name ASC`)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, fmt.Errorf("list crews: %w", domain.ErrNotProvisioned)
		}
		return nil, fmt.Errorf("list crews: %w", err)
	}
	defer rows.Close()

	var crews []crew.Crew
	for rows.Next() {
		c, err := scanCrew(rows)
		if err != nil {
			return nil, fmt.Errorf("scan crew: %w", err)
		}
		crews = append(crews, c)
	}
	// Query errors surface here, not at Query time.
	if err := rows.Err(); err != nil {
		if isUndefinedTable(err) {
			return nil, fmt.Errorf("list crews: %w", domain.ErrNotProvisioned)
		}
		return nil, fmt.Errorf("list crews: %w", err)
	}
	return crews, nil
}

// GetCrew returns a single crew by id.
func (s *Store) GetCrew(ctx context.Context, id string) (*crew.Crew, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+crewColumns+` FROM crews WHERE id = $1`, id)

	c, err := scanCrew(row)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, fmt.Errorf("get crew %s: %w", id, domain.ErrNotFound)
		case isUndefinedTable(err):
			return nil, fmt.Errorf("get crew %s: %w", id, domain.ErrNotProvisioned)
		}
		return nil, fmt.Errorf("get crew %s: %w", id, err)
	}
	return &c, nil
}

// CreateCrew inserts a new crew.
func (s *Store) CreateCrew(ctx context.Context, req crew.CreateRequest) (*crew.Crew, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO crews (id, name, description, agent_ids)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+crewColumns,
		uuid.NewString(), req.Name, req.Description, textArray(req.AgentIDs))

	c, err := scanCrew(row)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, fmt.Errorf("create crew: %w", domain.ErrNotProvisioned)
		}
		return nil, fmt.Errorf("create crew: %w", err)
	}
	return &c, nil
}
