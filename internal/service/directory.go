package service

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hearthhq/hearth/internal/domain"
	"github.com/hearthhq/hearth/internal/domain/agent"
	"github.com/hearthhq/hearth/internal/port/cache"
	"github.com/hearthhq/hearth/internal/port/database"
	"github.com/hearthhq/hearth/internal/resilience"
)

//go:embed default_agents.yaml
var defaultAgentsYAML []byte

// directoryCacheKey is the cache key for the merged agent list.
const directoryCacheKey = "directory/agents"

// DefaultAgents parses the embedded fallback profiles. The fallback set lives
// in a YAML resource so it can change without touching directory logic.
func DefaultAgents() ([]agent.Agent, error) {
	var doc struct {
		Agents []agent.Agent `yaml:"agents"`
	}
	if err := yaml.Unmarshal(defaultAgentsYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse default agents: %w", err)
	}
	return doc.Agents, nil
}

// Directory resolves assistant profiles. It reads from the database and falls
// back to the embedded defaults when the store is empty or unreachable, so
// callers always get a usable (possibly default-backed) list and never an
// error.
type Directory struct {
	store    database.Store
	cache    cache.Cache // nil disables caching
	ttl      time.Duration
	retry    resilience.Policy
	defaults []agent.Agent
}

// NewDirectory creates a Directory with the embedded default profiles.
func NewDirectory(store database.Store, c cache.Cache, ttl time.Duration, retry resilience.Policy) (*Directory, error) {
	defaults, err := DefaultAgents()
	if err != nil {
		return nil, err
	}
	return &Directory{
		store:    store,
		cache:    c,
		ttl:      ttl,
		retry:    retry,
		defaults: defaults,
	}, nil
}

// ListAgents returns every known agent profile. Persisted rows win over the
// defaults, except that a persisted row without skills inherits the default
// profile's skills for the same id (merge-on-read). Errors are logged and
// swallowed; the defaults are the floor.
func (d *Directory) ListAgents(ctx context.Context) []agent.Agent {
	if cached, ok := d.fromCache(ctx); ok {
		return cached
	}

	var rows []agent.Agent
	err := d.retry.Do(ctx, func() error {
		var e error
		rows, e = d.store.ListAgents(ctx)
		return e
	}, retryableRead)

	if err != nil {
		if !errors.Is(err, domain.ErrNotProvisioned) {
			slog.Warn("agent directory read failed, using defaults", "error", err)
		}
		return cloneAgents(d.defaults)
	}
	if len(rows) == 0 {
		return cloneAgents(d.defaults)
	}

	merged := d.mergeSkills(rows)
	d.toCache(ctx, merged)
	return merged
}

// GetAgent returns the agent with the given id, honoring the same fallback
// and merge semantics as ListAgents.
func (d *Directory) GetAgent(ctx context.Context, id string) (*agent.Agent, bool) {
	for _, a := range d.ListAgents(ctx) {
		if a.ID == id {
			return &a, true
		}
	}
	return nil, false
}

// mergeSkills enriches persisted rows that lack skills with the default
// profile's skills for the same id.
func (d *Directory) mergeSkills(rows []agent.Agent) []agent.Agent {
	byID := make(map[string][]string, len(d.defaults))
	for _, def := range d.defaults {
		byID[def.ID] = def.Skills
	}

	for i := range rows {
		if len(rows[i].Skills) == 0 {
			if skills, ok := byID[rows[i].ID]; ok {
				rows[i].Skills = append([]string(nil), skills...)
			}
		}
	}
	return rows
}

func (d *Directory) fromCache(ctx context.Context) ([]agent.Agent, bool) {
	if d.cache == nil {
		return nil, false
	}
	data, ok, err := d.cache.Get(ctx, directoryCacheKey)
	if err != nil || !ok {
		return nil, false
	}
	var agents []agent.Agent
	if err := json.Unmarshal(data, &agents); err != nil {
		return nil, false
	}
	return agents, true
}

func (d *Directory) toCache(ctx context.Context, agents []agent.Agent) {
	if d.cache == nil {
		return
	}
	data, err := json.Marshal(agents)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, directoryCacheKey, data, d.ttl); err != nil {
		slog.Debug("directory cache set failed", "error", err)
	}
}

// cloneAgents guards the embedded defaults against caller mutation.
func cloneAgents(agents []agent.Agent) []agent.Agent {
	out := make([]agent.Agent, len(agents))
	copy(out, agents)
	for i := range out {
		out[i].Skills = append([]string(nil), agents[i].Skills...)
	}
	return out
}

// retryableRead reports whether a read error is worth retrying. A missing
// table means the store is not provisioned yet; retrying cannot help.
func retryableRead(err error) bool {
	return !errors.Is(err, domain.ErrNotProvisioned) && !errors.Is(err, domain.ErrNotFound)
}
