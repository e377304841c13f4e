package notify

import (
	"context"
	"time"
)

// EventType names a notification kind
type EventType string

const (
	EventTaskStarted    EventType = "task_started"
	EventProgressUpdate EventType = "progress_update"
	EventTaskCompleted  EventType = "task_completed"
	EventTaskFailed     EventType = "task_failed"
	EventQueueStatus    EventType = "queue_status"
)

// Event is one message pushed to real-time subscribers
type Event struct {
	Type       EventType `json:"type"`
	Identifier string    `json:"identifier,omitempty"`
	JobID      string    `json:"job_id,omitempty"`
	Percent    float64   `json:"percent,omitempty"`
	Speed      string    `json:"speed,omitempty"`
	ETA        string    `json:"eta,omitempty"`
	Error      string    `json:"error,omitempty"`
	Queue      any       `json:"queue,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher delivers events to subscribers. Delivery is best-effort.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Discard drops every event
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }

func stamp(event Event) Event {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return event
}
