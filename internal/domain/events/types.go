// Package events defines all event types used in warden.
package events

import (
	"encoding/json"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Process lifecycle events, raised by the watchdog. One event per transition.
	EventTypeProcessExisting    EventType = "process_existing"
	EventTypeProcessUnavailable EventType = "process_unavailable"
	EventTypeProcessStarted     EventType = "process_started"
	EventTypeProcessDied        EventType = "process_died"
	EventTypeProcessRestarted   EventType = "process_restarted"

	// Server interface events
	EventTypeInterfaceOpened EventType = "interface_opened"
	EventTypeInterfaceClosed EventType = "interface_closed"
)

// Event is the base interface for all events.
type Event interface {
	// Type returns the event type.
	Type() EventType

	// Timestamp returns when the event occurred.
	Timestamp() time.Time

	// ToJSON serializes the event to JSON.
	ToJSON() ([]byte, error)

	// GetSource returns the component or server that raised the event (may be empty).
	GetSource() string
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventType EventType   `json:"event"`
	EventTime time.Time   `json:"timestamp"`
	Source    string      `json:"source,omitempty"`
	Payload   interface{} `json:"payload"`
}

// GetSource returns the event source.
func (e *BaseEvent) GetSource() string {
	return e.Source
}

// Type returns the event type.
func (e *BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e *BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// ToJSON serializes the event to JSON.
func (e *BaseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// NewEvent creates a new base event with the given type and payload.
func NewEvent(eventType EventType, payload interface{}) *BaseEvent {
	return &BaseEvent{
		EventType: eventType,
		EventTime: time.Now().UTC(),
		Payload:   payload,
	}
}

// NewEventWithSource creates a new event attributed to a source.
func NewEventWithSource(eventType EventType, payload interface{}, source string) *BaseEvent {
	return &BaseEvent{
		EventType: eventType,
		EventTime: time.Now().UTC(),
		Source:    source,
		Payload:   payload,
	}
}
