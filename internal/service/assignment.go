package service

import (
	"context"
	"strings"

	"github.com/hearthhq/hearth/internal/domain/agent"
	"github.com/hearthhq/hearth/internal/domain/task"
)

// Assigner scores agents against a task's declared skill requirements and
// picks the best match. It is deterministic and side-effect free: given the
// same directory contents and task, it always returns the same agent.
type Assigner struct {
	dir *Directory
}

// NewAssigner creates a new Assigner over the given directory.
func NewAssigner(dir *Directory) *Assigner {
	return &Assigner{dir: dir}
}

// FindBestAgent returns the agent with the strictly highest score for the
// task, or nil when no agent scores above zero. Tasks without declared skill
// requirements are never auto-assigned. Ties break to the first agent in
// directory order.
func (a *Assigner) FindBestAgent(ctx context.Context, t *task.Task) *agent.Agent {
	if t == nil || len(t.SkillsRequired) == 0 {
		return nil
	}

	agents := a.dir.ListAgents(ctx)

	var best *agent.Agent
	bestScore := 0
	for i := range agents {
		if score := scoreAgent(t, &agents[i]); score > bestScore {
			best = &agents[i]
			bestScore = score
		}
	}
	return best
}

// scoreAgent computes the match score: +1 for each required skill the agent
// covers, +2 when the task description mentions the agent's specialty.
func scoreAgent(t *task.Task, a *agent.Agent) int {
	score := 0
	for _, required := range t.SkillsRequired {
		if a.HasSkill(required) {
			score++
		}
	}
	if a.Specialty != "" &&
		strings.Contains(strings.ToLower(t.Description), strings.ToLower(a.Specialty)) {
		score += 2
	}
	return score
}
