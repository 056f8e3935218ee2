// Package task defines the Task domain entity and its lifecycle states.
package task

import (
	"fmt"
	"slices"
	"time"

	"github.com/hearthhq/hearth/internal/domain"
)

// Status represents the current lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusHandoff    Status = "handoff"
)

// ValidStatuses lists every status a task may hold.
var ValidStatuses = []Status{
	StatusPending, StatusAssigned, StatusInProgress,
	StatusCompleted, StatusFailed, StatusHandoff,
}

// Terminal reports whether the status ends the task lifecycle.
// Handoff is deliberately not terminal: a task may be handed off repeatedly.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Startable reports whether a task in this status may begin execution.
func (s Status) Startable() bool {
	return s == StatusPending || s == StatusAssigned || s == StatusHandoff
}

// Priority orders tasks for the dashboard.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidPriorities lists every accepted priority.
var ValidPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Task represents a unit of work, optionally assigned to an agent.
// AssignedTo and HandoffTo are weak references: they are not validated
// against the agent directory at write time.
type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	AssignedTo     string     `json:"assigned_to,omitempty"`
	CreatedBy      string     `json:"created_by"`
	Status         Status     `json:"status"`
	Priority       Priority   `json:"priority"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	HandoffTo      string     `json:"handoff_to,omitempty"`
	HandoffReason  string     `json:"handoff_reason,omitempty"`
	Result         string     `json:"result,omitempty"`
	SkillsRequired []string   `json:"skills_required,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	Version        int        `json:"version"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CreateRequest holds the fields needed to create a new task.
// ID and timestamps are assigned by the store.
type CreateRequest struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	CreatedBy      string     `json:"created_by"`
	AssignedTo     string     `json:"assigned_to,omitempty"`
	Priority       Priority   `json:"priority,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	SkillsRequired []string   `json:"skills_required,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
}

// Validate checks that a CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if r.Priority != "" && !slices.Contains(ValidPriorities, r.Priority) {
		return fmt.Errorf("%w: priority must be low, medium or high", domain.ErrValidation)
	}
	return nil
}

// UpdateRequest is a partial update: nil fields are left untouched.
type UpdateRequest struct {
	Title          *string    `json:"title,omitempty"`
	Description    *string    `json:"description,omitempty"`
	AssignedTo     *string    `json:"assigned_to,omitempty"`
	Status         *Status    `json:"status,omitempty"`
	Priority       *Priority  `json:"priority,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	HandoffTo      *string    `json:"handoff_to,omitempty"`
	HandoffReason  *string    `json:"handoff_reason,omitempty"`
	Result         *string    `json:"result,omitempty"`
	SkillsRequired []string   `json:"skills_required,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
}

// Validate checks that an UpdateRequest only carries known enum values.
func (r *UpdateRequest) Validate() error {
	if r.Status != nil && !slices.Contains(ValidStatuses, *r.Status) {
		return fmt.Errorf("%w: unknown status %q", domain.ErrValidation, *r.Status)
	}
	if r.Priority != nil && !slices.Contains(ValidPriorities, *r.Priority) {
		return fmt.Errorf("%w: unknown priority %q", domain.ErrValidation, *r.Priority)
	}
	return nil
}

// Apply copies the non-nil fields of the request onto t.
func (r *UpdateRequest) Apply(t *Task) {
	if r.Title != nil {
		t.Title = *r.Title
	}
	if r.Description != nil {
		t.Description = *r.Description
	}
	if r.AssignedTo != nil {
		t.AssignedTo = *r.AssignedTo
	}
	if r.Status != nil {
		t.Status = *r.Status
	}
	if r.Priority != nil {
		t.Priority = *r.Priority
	}
	if r.DueDate != nil {
		t.DueDate = r.DueDate
	}
	if r.HandoffTo != nil {
		t.HandoffTo = *r.HandoffTo
	}
	if r.HandoffReason != nil {
		t.HandoffReason = *r.HandoffReason
	}
	if r.Result != nil {
		t.Result = *r.Result
	}
	if r.SkillsRequired != nil {
		t.SkillsRequired = r.SkillsRequired
	}
	if r.Tags != nil {
		t.Tags = r.Tags
	}
}
