package entity

import "time"

// Notification is one message targeted at one recipient. It is created by the
// fan-out as a transition side effect and afterwards belongs to the recipient
// alone: marking it read or deleting it never touches the order or its history.
type Notification struct {
	ID          int64      `json:"id"`
	RecipientID string     `json:"recipient_id"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Type        string     `json:"type"`
	OrderID     int64      `json:"order_id,omitempty"`
	Read        bool       `json:"read"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
