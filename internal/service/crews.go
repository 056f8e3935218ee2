package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hearthhq/hearth/internal/domain"
	"github.com/hearthhq/hearth/internal/domain/crew"
	"github.com/hearthhq/hearth/internal/port/database"
	"github.com/hearthhq/hearth/internal/resilience"
)

const crewsTable = "crews"

// CrewService manages crew groupings. Crews are create/read only; no
// assignment logic operates over them.
type CrewService struct {
	store database.Store
	retry resilience.Policy
}

// NewCrewService creates a new CrewService.
func NewCrewService(store database.Store, retry resilience.Policy) *CrewService {
	return &CrewService{store: store, retry: retry}
}

// List returns all crews, or an empty slice when the store is not provisioned
// or reads keep failing.
func (s *CrewService) List(ctx context.Context) []crew.Crew {
	var crews []crew.Crew
	err := s.retry.Do(ctx, func() error {
		var e error
		crews, e = s.store.ListCrews(ctx)
		return e
	}, retryableRead)
	if err != nil {
		if !errors.Is(err, domain.ErrNotProvisioned) {
			slog.Warn("crew list failed after retries", "error", err)
		}
		return []crew.Crew{}
	}
	if crews == nil {
		crews = []crew.Crew{}
	}
	return crews
}

// Get returns a crew by id.
func (s *CrewService) Get(ctx context.Context, id string) (*crew.Crew, error) {
	return s.store.GetCrew(ctx, id)
}

// Create inserts a new crew.
func (s *CrewService) Create(ctx context.Context, req crew.CreateRequest) (*crew.Crew, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ok, err := s.store.Provisioned(ctx, crewsTable)
	if err != nil || !ok {
		return nil, fmt.Errorf("create crew: %w", domain.ErrNotProvisioned)
	}

	return s.store.CreateCrew(ctx, req)
}
