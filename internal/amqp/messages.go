package amqp

import (
	"encoding/json"
	"time"

	"expensetracker/internal/core"
)

// RoutingKeyExpenseCreated is the routing key every expense.created event is
// published with.
const RoutingKeyExpenseCreated = "expense.created"

// ExpenseCreatedMessage announces a row appended to the expenses table. It
// carries the full record so consumers never have to read the store.
type ExpenseCreatedMessage struct {
	ID          int64     `json:"id"`
	Date        string    `json:"date"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory"`
	Note        string    `json:"note"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewExpenseCreatedMessage builds the event for an expense that was stored
// under id.
func NewExpenseCreatedMessage(id int64, e core.Expense) *ExpenseCreatedMessage {
	return &ExpenseCreatedMessage{
		ID:          id,
		Date:        e.Date,
		Amount:      e.Amount,
		Category:    e.Category,
		Subcategory: e.Subcategory,
		Note:        e.Note,
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
