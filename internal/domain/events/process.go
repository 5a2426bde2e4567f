package events

// ProcessPayload is the payload for process lifecycle events.
type ProcessPayload struct {
	Image       string `json:"image"`
	PID         int    `json:"pid,omitempty"`
	PreviousPID int    `json:"previous_pid,omitempty"`
}

// NewProcessEvent creates a process lifecycle event of the given type.
func NewProcessEvent(eventType EventType, image string, pid, previousPID int) *BaseEvent {
	return NewEventWithSource(eventType, ProcessPayload{
		Image:       image,
		PID:         pid,
		PreviousPID: previousPID,
	}, "watchdog")
}

// InterfacePayload is the payload for server interface open/close events.
type InterfacePayload struct {
	Backend string `json:"backend"`
	Reason  string `json:"reason,omitempty"`
}

// NewInterfaceOpenedEvent creates an interface_opened event.
func NewInterfaceOpenedEvent(backend string) *BaseEvent {
	return NewEventWithSource(EventTypeInterfaceOpened, InterfacePayload{Backend: backend}, backend)
}

// NewInterfaceClosedEvent creates an interface_closed event.
func NewInterfaceClosedEvent(backend, reason string) *BaseEvent {
	return NewEventWithSource(EventTypeInterfaceClosed, InterfacePayload{
		Backend: backend,
		Reason:  reason,
	}, backend)
}

// IsProcessEvent reports whether t is one of the watchdog lifecycle events.
func IsProcessEvent(t EventType) bool {
	switch t {
	case EventTypeProcessExisting, EventTypeProcessUnavailable, EventTypeProcessStarted,
		EventTypeProcessDied, EventTypeProcessRestarted:
		return true
	}
	return false
}
