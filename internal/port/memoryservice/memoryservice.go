// Package memoryservice defines the port for the external vector-memory API.
package memoryservice

import (
	"context"

	"github.com/hearthhq/hearth/internal/domain/memory"
)

// Service is the port interface for the hosted memory service.
//
// Record and Recall are both best-effort from the core's point of view:
// callers log and continue when either fails.
type Service interface {
	// Record stores a new free-text memory attributed to an agent.
	Record(ctx context.Context, agentID, text string) error

	// Recall returns up to limit memories for the agent, ranked by semantic
	// similarity to the query. An empty result is not an error.
	Recall(ctx context.Context, agentID, query string, limit int) ([]memory.Entry, error)
}
