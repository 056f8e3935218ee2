package messagequeue

// TaskCreatedEvent is published on SubjectTaskCreated.
type TaskCreatedEvent struct {
	TaskID     string `json:"task_id"`
	Title      string `json:"title"`
	AssignedTo string `json:"assigned_to,omitempty"`
	Priority   string `json:"priority"`
}

// TaskStatusEvent is published on SubjectTaskStatus whenever a task's
// status changes.
type TaskStatusEvent struct {
	TaskID     string `json:"task_id"`
	Status     string `json:"status"`
	AssignedTo string `json:"assigned_to,omitempty"`
}

// TaskHandoffEvent is published on SubjectTaskHandoff.
type TaskHandoffEvent struct {
	TaskID string `json:"task_id"`
	From   string `json:"from,omitempty"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}
