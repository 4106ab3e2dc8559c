package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names a roster change.
type EventType string

const (
	EventStudentAdded     EventType = "student.added"
	EventStudentUpdated   EventType = "student.updated"
	EventStudentDeleted   EventType = "student.deleted"
	EventStudentRestored  EventType = "student.restored"
	EventPaymentAdded     EventType = "payment.added"
	EventPaymentConfirmed EventType = "payment.confirmed"
	EventPaymentDeleted   EventType = "payment.deleted"
)

// EventTypes lists every known event type.
var EventTypes = []EventType{
	EventStudentAdded, EventStudentUpdated, EventStudentDeleted, EventStudentRestored,
	EventPaymentAdded, EventPaymentConfirmed, EventPaymentDeleted,
}

// IsValid reports whether t is a known event type.
func (t EventType) IsValid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// RosterEvent is a lightweight notification that the roster changed.
// Consumers read the full state from the persisted snapshot.
type RosterEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	StudentID   string    `json:"student_id"`
	PaymentID   string    `json:"payment_id,omitempty"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	Version     uint64    `json:"version"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewRosterEvent creates an event with a fresh id and the current time.
func NewRosterEvent(t EventType, studentID string, version uint64) *RosterEvent {
	return &RosterEvent{
		ID:        uuid.NewString(),
		Type:      t,
		StudentID: studentID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// WithPayment attaches payment details.
func (m *RosterEvent) WithPayment(paymentID string, amountCents int64) *RosterEvent {
	m.PaymentID = paymentID
	m.AmountCents = amountCents
	return m
}

// ToJSON converts the message to JSON bytes
func (m *RosterEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RosterEventFromJSON decodes and validates a message.
func RosterEventFromJSON(data []byte) (*RosterEvent, error) {
	var msg RosterEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("roster event without id")
	}
	if !msg.Type.IsValid() {
		return nil, fmt.Errorf("unknown roster event type %q", msg.Type)
	}
	return &msg, nil
}
