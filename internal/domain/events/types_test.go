package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBaseEvent_Type(t *testing.T) {
	tests := []struct {
		name      string
		eventType EventType
	}{
		{"process_existing", EventTypeProcessExisting},
		{"process_unavailable", EventTypeProcessUnavailable},
		{"process_started", EventTypeProcessStarted},
		{"process_died", EventTypeProcessDied},
		{"process_restarted", EventTypeProcessRestarted},
		{"interface_opened", EventTypeInterfaceOpened},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := NewEvent(tt.eventType, nil)

			if event.Type() != tt.eventType {
				t.Errorf("Type() = %v, want %v", event.Type(), tt.eventType)
			}
			if string(event.Type()) != tt.name {
				t.Errorf("string(Type()) = %q, want %q", event.Type(), tt.name)
			}
		})
	}
}

func TestBaseEvent_Timestamp(t *testing.T) {
	before := time.Now().UTC()
	event := NewEvent(EventTypeProcessDied, nil)
	after := time.Now().UTC()

	ts := event.Timestamp()

	if ts.Before(before) {
		t.Errorf("Timestamp() = %v, should be >= %v", ts, before)
	}
	if ts.After(after) {
		t.Errorf("Timestamp() = %v, should be <= %v", ts, after)
	}
}

func TestProcessEvent_ToJSON(t *testing.T) {
	event := NewProcessEvent(EventTypeProcessRestarted, "ioq3ded", 4242, 4100)

	jsonBytes, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &parsed); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	if parsed["event"] != "process_restarted" {
		t.Errorf("event = %v, want process_restarted", parsed["event"])
	}
	if parsed["source"] != "watchdog" {
		t.Errorf("source = %v, want watchdog", parsed["source"])
	}

	payload, ok := parsed["payload"].(map[string]interface{})
	if !ok {
		t.Fatalf("payload type = %T, want object", parsed["payload"])
	}
	if payload["image"] != "ioq3ded" {
		t.Errorf("payload.image = %v, want ioq3ded", payload["image"])
	}
	if payload["pid"] != float64(4242) {
		t.Errorf("payload.pid = %v, want 4242", payload["pid"])
	}
	if payload["previous_pid"] != float64(4100) {
		t.Errorf("payload.previous_pid = %v, want 4100", payload["previous_pid"])
	}
}

func TestIsProcessEvent(t *testing.T) {
	if !IsProcessEvent(EventTypeProcessDied) {
		t.Error("IsProcessEvent(process_died) = false, want true")
	}
	if IsProcessEvent(EventTypeInterfaceClosed) {
		t.Error("IsProcessEvent(interface_closed) = true, want false")
	}
}

func TestLogMessageConstructors(t *testing.T) {
	live := NewLogMessage("say: hello")
	if live.IsBacklog {
		t.Error("NewLogMessage().IsBacklog = true, want false")
	}

	old := NewBacklogMessage("say: hello")
	if !old.IsBacklog {
		t.Error("NewBacklogMessage().IsBacklog = false, want true")
	}
	if old.Content != live.Content {
		t.Errorf("Content = %q, want %q", old.Content, live.Content)
	}
}
