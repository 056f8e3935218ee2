package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventTaskCreated = "task.created"
	EventTaskStatus  = "task.status"
	EventTaskHandoff = "task.handoff"
)

// TaskStatusEvent is broadcast when a task's status changes.
type TaskStatusEvent struct {
	TaskID     string `json:"task_id"`
	Status     string `json:"status"`
	AssignedTo string `json:"assigned_to,omitempty"`
}

// TaskHandoffEvent is broadcast when a task is handed to another agent.
type TaskHandoffEvent struct {
	TaskID string `json:"task_id"`
	From   string `json:"from,omitempty"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}

// BroadcastEvent marshals a typed event and broadcasts it to all clients.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}

// BroadcastRaw forwards an already-encoded payload under the given event type.
// Used by the NATS bridge, which receives payloads as wire bytes.
func (h *Hub) BroadcastRaw(ctx context.Context, eventType string, payload []byte) {
	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(payload),
	})
}
