package model

import "time"

// EventType is the kind of a progress event.
type EventType string

const (
	EventConnected     EventType = "connected"
	EventStatusUpdate  EventType = "status_update"
	EventStepProgress  EventType = "step_progress"
	EventError         EventType = "error"
	EventCompleted     EventType = "completed"
	EventSaveCompleted EventType = "save_completed"
)

// Terminal reports whether the event ends a task run.
func (t EventType) Terminal() bool {
	return t == EventError || t == EventCompleted || t == EventSaveCompleted
}

// ProgressEvent is a transient task lifecycle message. It is never persisted.
type ProgressEvent struct {
	TaskID         string    `json:"task_id"`
	Type           EventType `json:"type"`
	Message        string    `json:"message,omitempty"`
	Status         string    `json:"status,omitempty"`
	Step           string    `json:"step,omitempty"`
	Progress       int       `json:"progress,omitempty"` // percent, 0-100
	RedirectURL    string    `json:"redirect_url,omitempty"`
	RetryAvailable bool      `json:"retry_available,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Publisher delivers progress events to whoever is subscribed to the
// event's task. Publish must not block on slow subscribers.
type Publisher interface {
	Publish(ev ProgressEvent)
}
