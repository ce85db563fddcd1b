package amqp

import (
	"encoding/json"
	"time"
)

// Expense event actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ExpenseEventMessage announces one expense mutation. It carries who
// owns the row and who performed the action so the audit trail can
// record admin edits of other users' expenses.
type ExpenseEventMessage struct {
	ExpenseID int64     `json:"expense_id"`
	OwnerID   int64     `json:"owner_id"`
	ActorID   int64     `json:"actor_id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseEventMessage creates an event stamped with the current time.
func NewExpenseEventMessage(expenseID, ownerID, actorID int64, action string) *ExpenseEventMessage {
	return &ExpenseEventMessage{
		ExpenseID: expenseID,
		OwnerID:   ownerID,
		ActorID:   actorID,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ExpenseEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventMessageFromJSON creates a message from JSON bytes.
func ExpenseEventMessageFromJSON(data []byte) (*ExpenseEventMessage, error) {
	var msg ExpenseEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
