// Package agent defines the assistant profile domain entity.
package agent

import (
	"strings"
	"time"
)

// Agent represents one AI family member: an assistant profile with declared
// skills and a specialty, a candidate for task assignment. Profiles are
// read-only from the assignment engine's perspective.
type Agent struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Role        string    `json:"role" yaml:"role"`
	Specialty   string    `json:"specialty" yaml:"specialty"`
	Skills      []string  `json:"skills" yaml:"skills"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty" yaml:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty" yaml:"-"`
	UpdatedAt   time.Time `json:"updated_at,omitempty" yaml:"-"`
}

// HasSkill reports whether any of the agent's skills case-insensitively
// substring-matches the required skill, in either direction.
// "debugging" matches a declared "Debugging tools" and vice versa.
func (a *Agent) HasSkill(required string) bool {
	req := strings.ToLower(strings.TrimSpace(required))
	if req == "" {
		return false
	}
	for _, s := range a.Skills {
		own := strings.ToLower(strings.TrimSpace(s))
		if own == "" {
			continue
		}
		if strings.Contains(own, req) || strings.Contains(req, own) {
			return true
		}
	}
	return false
}
