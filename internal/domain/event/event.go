package event

import (
	"time"

	"github.com/google/uuid"
)

// Event describes one applied lifecycle transition. It is emitted after the
// status write and history append have committed, and feeds the notification
// fan-out and the live-push channel.
type Event struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	OrderID     int64     `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Action      string    `json:"action"`
	FromStatus  string    `json:"from_status,omitempty"`
	ToStatus    string    `json:"to_status"`
	ActorID     string    `json:"actor_id"`
	Reason      string    `json:"reason,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// New creates a lifecycle event with a generated id and current timestamp
func New(eventType Type, orderID int64, orderNumber string) *Event {
	return &Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		OrderID:     orderID,
		OrderNumber: orderNumber,
		Timestamp:   time.Now(),
	}
}
