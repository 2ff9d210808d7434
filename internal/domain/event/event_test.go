package event

import (
	"testing"
	"time"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"claim transitioned", TypeClaimTransitioned, true},
		{"transition failed", TypeTransitionFailed, true},
		{"totals recomputed", TypeTotalsRecomputed, true},
		{"assessment decided", TypeAssessmentDecided, true},
		{"archived by timer", TypeClaimArchivedByTimer, true},
		{"unknown type", Type("unknown.type"), false},
		{"empty string", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	payload := map[string]interface{}{
		"from": "submitted",
		"to":   "allocated",
	}

	event := NewEvent(TypeClaimTransitioned, "claim-123", payload)

	if event == nil {
		t.Fatal("NewEvent() returned nil")
	}
	if event.ID == "" {
		t.Error("Event ID should not be empty")
	}
	if event.Type != TypeClaimTransitioned {
		t.Errorf("Event Type = %v, want %v", event.Type, TypeClaimTransitioned)
	}
	if event.ClaimID != "claim-123" {
		t.Errorf("Event ClaimID = %v, want %v", event.ClaimID, "claim-123")
	}
	if event.Payload["to"] != "allocated" {
		t.Errorf("Event Payload[to] = %v, want %v", event.Payload["to"], "allocated")
	}
	if event.CorrelationID == "" || event.CorrelationID == event.ID {
		t.Error("Event CorrelationID should be set independently of ID")
	}
	if time.Since(event.Timestamp) > time.Second {
		t.Error("Event Timestamp should be recent")
	}
}

func TestNewEventWithCorrelation(t *testing.T) {
	event := NewEventWithCorrelation(TypeTotalsRecomputed, "claim-9", nil, "corr-1")

	if event.CorrelationID != "corr-1" {
		t.Errorf("Event CorrelationID = %v, want %v", event.CorrelationID, "corr-1")
	}
	if event.ClaimID != "claim-9" {
		t.Errorf("Event ClaimID = %v, want %v", event.ClaimID, "claim-9")
	}
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeClaimTransitioned, "claim-1", map[string]interface{}{
		"event": "submit",
	})

	modified := original.WithPayload("reason_code", "timed_transition")

	if _, exists := original.Payload["reason_code"]; exists {
		t.Error("Original event should not be modified")
	}
	if modified.GetPayloadString("reason_code") != "timed_transition" {
		t.Errorf("reason_code = %v, want timed_transition", modified.Payload["reason_code"])
	}
	if modified.GetPayloadString("event") != "submit" {
		t.Error("Existing payload entries should be preserved")
	}
	if modified.ID != original.ID {
		t.Error("Event ID should be preserved")
	}
}

type stringer string

func (s stringer) String() string { return string(s) }

func TestEvent_GetPayload(t *testing.T) {
	event := NewEvent(TypeClaimTransitioned, "claim-1", map[string]interface{}{
		"state":    stringer("allocated"),
		"hardship": true,
		"count":    3,
	})

	if got := event.GetPayloadString("state"); got != "allocated" {
		t.Errorf("GetPayloadString(state) = %v, want allocated", got)
	}
	if got := event.GetPayloadString("count"); got != "" {
		t.Errorf("GetPayloadString(count) = %v, want empty", got)
	}
	if !event.GetPayloadBool("hardship") {
		t.Error("GetPayloadBool(hardship) should be true")
	}
	if event.GetPayloadBool("missing") {
		t.Error("GetPayloadBool(missing) should be false")
	}
}

func TestEvent_MarshalRoundTrip(t *testing.T) {
	event := NewEvent(TypeClaimTransitioned, "claim-1", map[string]interface{}{"to": "submitted"})

	data, err := event.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	decoded, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.ClaimID != event.ClaimID || decoded.Type != event.Type {
		t.Errorf("decoded = %+v, want %+v", decoded, event)
	}
	if decoded.GetPayloadString("to") != "submitted" {
		t.Errorf("decoded payload = %v", decoded.Payload)
	}
}
