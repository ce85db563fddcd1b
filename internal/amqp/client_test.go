package amqp

import (
	"testing"
	"time"
)

func TestNewExpenseEventMessage(t *testing.T) {
	msg := NewExpenseEventMessage(12345, 7, 2, ActionUpdated)

	if msg.ExpenseID != 12345 {
		t.Errorf("ExpenseID = %v, want 12345", msg.ExpenseID)
	}
	if msg.OwnerID != 7 {
		t.Errorf("OwnerID = %v, want 7", msg.OwnerID)
	}
	if msg.ActorID != 2 {
		t.Errorf("ActorID = %v, want 2", msg.ActorID)
	}
	if msg.Action != ActionUpdated {
		t.Errorf("Action = %v, want %v", msg.Action, ActionUpdated)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestExpenseEventMessage_JSON(t *testing.T) {
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &ExpenseEventMessage{
		ExpenseID: 12345,
		OwnerID:   7,
		ActorID:   2,
		Action:    ActionDeleted,
		Timestamp: timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := ExpenseEventMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("ExpenseEventMessageFromJSON() error = %v", err)
	}

	if parsed.ExpenseID != msg.ExpenseID {
		t.Errorf("Parsed ExpenseID = %v, want %v", parsed.ExpenseID, msg.ExpenseID)
	}
	if parsed.OwnerID != msg.OwnerID {
		t.Errorf("Parsed OwnerID = %v, want %v", parsed.OwnerID, msg.OwnerID)
	}
	if parsed.ActorID != msg.ActorID {
		t.Errorf("Parsed ActorID = %v, want %v", parsed.ActorID, msg.ActorID)
	}
	if parsed.Action != msg.Action {
		t.Errorf("Parsed Action = %v, want %v", parsed.Action, msg.Action)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestExpenseEventMessage_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"expense_id": "not_a_number", "action": 3}`)

	if _, err := ExpenseEventMessageFromJSON(invalidJSON); err == nil {
		t.Error("ExpenseEventMessageFromJSON() should fail with invalid JSON")
	}
}
