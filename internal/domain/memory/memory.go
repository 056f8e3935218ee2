// Package memory defines the types exchanged with the external
// vector-memory service. The service itself is opaque: it stores free-text
// entries per agent and answers approximate similarity queries.
package memory

import "time"

// Entry is one recalled memory, as returned by the memory service.
type Entry struct {
	ID        string    `json:"id,omitempty"`
	AgentID   string    `json:"agent_id"`
	Memory    string    `json:"memory"`
	Score     float64   `json:"score,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// DefaultRecallLimit caps how many entries a recall returns when the caller
// does not ask for a specific limit.
const DefaultRecallLimit = 5
