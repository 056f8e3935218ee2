package service

import (
	"context"
	"testing"

	"github.com/hearthhq/hearth/internal/adapter/ws"
	"github.com/hearthhq/hearth/internal/port/messagequeue"
)

func TestEventBridgeSubscribesToAllTaskSubjects(t *testing.T) {
	queue := &mockQueue{}
	bridge := NewEventBridge(queue, ws.NewHub())

	cancel, err := bridge.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer cancel()

	if len(queue.subscribed) != 1 || queue.subscribed[0] != "tasks.>" {
		t.Fatalf("expected a single tasks.> subscription, got %v", queue.subscribed)
	}

	// Unknown subjects are dropped without error.
	if err := queue.handler(context.Background(), "tasks.unknown", []byte("{}")); err != nil {
		t.Fatalf("unknown subject must be ignored, got %v", err)
	}
	if err := queue.handler(context.Background(), messagequeue.SubjectTaskCreated, []byte("{}")); err != nil {
		t.Fatalf("handler: %v", err)
	}
}

func TestEventTypeMapping(t *testing.T) {
	cases := []struct {
		subject string
		event   string
		ok      bool
	}{
		{messagequeue.SubjectTaskCreated, ws.EventTaskCreated, true},
		{messagequeue.SubjectTaskStatus, ws.EventTaskStatus, true},
		{messagequeue.SubjectTaskHandoff, ws.EventTaskHandoff, true},
		{"tasks.other", "", false},
	}
	for _, tc := range cases {
		got, ok := eventTypeFor(tc.subject)
		if got != tc.event || ok != tc.ok {
			t.Fatalf("eventTypeFor(%q) = %q,%v; want %q,%v", tc.subject, got, ok, tc.event, tc.ok)
		}
	}
}
