package amqp

import (
	"testing"
)

func TestExpenseEventRoundTrip(t *testing.T) {
	msg := NewExpenseEvent(42, ActionUpdated)
	if msg.Timestamp.IsZero() {
		t.Error("timestamp should be set on construction")
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	got, err := ExpenseEventFromJSON(data)
	if err != nil {
		t.Fatalf("ExpenseEventFromJSON() error = %v", err)
	}
	if got.ID != 42 || got.Action != ActionUpdated {
		t.Errorf("got %+v", got)
	}
	if !got.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, msg.Timestamp)
	}
}

func TestExpenseEventFromJSONMalformed(t *testing.T) {
	if _, err := ExpenseEventFromJSON([]byte(`{"id": "not a number"}`)); err == nil {
		t.Error("malformed payload should fail to decode")
	}
}
