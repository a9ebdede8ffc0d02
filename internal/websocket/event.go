package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents what happened to an entity
type EventType string

const (
	EventTypeCreated   EventType = "created"
	EventTypeUpdated   EventType = "updated"
	EventTypeDeleted   EventType = "deleted"
	EventTypeActivated EventType = "activated"
	EventTypeExported  EventType = "exported"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeTransaction EntityType = "transaction"
	EntityTypeLoan        EntityType = "loan"
	EntityTypeLoanPayment EntityType = "loan_payment"
	EntityTypeProfile     EntityType = "profile"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "loan.created"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "loan"
	Payload   interface{} `json:"payload"`   // Full entity data
	Timestamp time.Time   `json:"timestamp"` // Event timestamp
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionCreated creates a transaction.created event
func TransactionCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeTransaction, payload)
}

// TransactionUpdated creates a transaction.updated event
func TransactionUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeTransaction, payload)
}

// TransactionDeleted creates a transaction.deleted event
func TransactionDeleted(payload interface{}) Event {
	return NewEvent(EventTypeDeleted, EntityTypeTransaction, payload)
}

// TransactionsExported creates a transaction.exported event
func TransactionsExported(payload interface{}) Event {
	return NewEvent(EventTypeExported, EntityTypeTransaction, payload)
}

// LoanCreated creates a loan.created event
func LoanCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeLoan, payload)
}

// LoanUpdated creates a loan.updated event
func LoanUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeLoan, payload)
}

// LoanDeleted creates a loan.deleted event
func LoanDeleted(payload interface{}) Event {
	return NewEvent(EventTypeDeleted, EntityTypeLoan, payload)
}

// LoanActivated creates a loan.activated event
func LoanActivated(payload interface{}) Event {
	return NewEvent(EventTypeActivated, EntityTypeLoan, payload)
}

// LoanPaymentCreated creates a loan_payment.created event
func LoanPaymentCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeLoanPayment, payload)
}

// ProfileUpdated creates a profile.updated event
func ProfileUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeProfile, payload)
}
