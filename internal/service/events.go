package service

import (
	"context"
	"log/slog"

	"github.com/hearthhq/hearth/internal/adapter/ws"
	"github.com/hearthhq/hearth/internal/port/messagequeue"
)

// EventBridge forwards task lifecycle events from the queue to connected
// dashboard WebSocket clients.
type EventBridge struct {
	queue messagequeue.Queue
	hub   *ws.Hub
}

// NewEventBridge creates a new EventBridge.
func NewEventBridge(queue messagequeue.Queue, hub *ws.Hub) *EventBridge {
	return &EventBridge{queue: queue, hub: hub}
}

// Start subscribes to all task subjects and re-broadcasts each event.
// The returned function cancels the subscription.
func (b *EventBridge) Start(ctx context.Context) (func(), error) {
	return b.queue.Subscribe(ctx, "tasks.>", func(ctx context.Context, subject string, data []byte) error {
		eventType, ok := eventTypeFor(subject)
		if !ok {
			slog.Debug("ignoring unknown task subject", "subject", subject)
			return nil
		}
		b.hub.BroadcastRaw(ctx, eventType, data)
		return nil
	})
}

func eventTypeFor(subject string) (string, bool) {
	switch subject {
	case messagequeue.SubjectTaskCreated:
		return ws.EventTaskCreated, true
	case messagequeue.SubjectTaskStatus:
		return ws.EventTaskStatus, true
	case messagequeue.SubjectTaskHandoff:
		return ws.EventTaskHandoff, true
	}
	return "", false
}
