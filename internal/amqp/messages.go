package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names a ledger write that other processes may react to.
type EventType string

const (
	EventExpenseRecorded EventType = "expense.recorded"
	EventGoalContributed EventType = "goal.contributed"
	EventIncomeRecorded  EventType = "income.recorded"
)

// LedgerEvent is published after a ledger write commits. EntityID is the
// category of an expense or the goal of a contribution.
type LedgerEvent struct {
	Type          EventType `json:"type"`
	UserID        string    `json:"userId"`
	EntityID      string    `json:"entityId,omitempty"`
	TransactionID string    `json:"transactionId"`
	AmountCents   int64     `json:"amountCents"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerEvent creates an event stamped with the current time.
func NewLedgerEvent(typ EventType, userID, entityID, transactionID string, amountCents int64) *LedgerEvent {
	return &LedgerEvent{
		Type:          typ,
		UserID:        userID,
		EntityID:      entityID,
		TransactionID: transactionID,
		AmountCents:   amountCents,
		Timestamp:     time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and checks an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case EventExpenseRecorded, EventGoalContributed, EventIncomeRecorded:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.UserID == "" || msg.TransactionID == "" {
		return nil, fmt.Errorf("event %s is missing userId or transactionId", msg.Type)
	}
	return &msg, nil
}
