package entity

import "time"

// HistoryEntry is one immutable audit record. Exactly one entry is appended
// per successful transition, in the same transaction as the status write.
type HistoryEntry struct {
	ID         int64         `json:"id"`
	OrderID    int64         `json:"order_id"`
	Action     string        `json:"action"`
	FromStatus string        `json:"from_status,omitempty"`
	ToStatus   string        `json:"to_status,omitempty"`
	ActorID    string        `json:"actor_id"`
	Reason     string        `json:"reason,omitempty"`
	Notes      string        `json:"notes,omitempty"`
	Changes    []FieldChange `json:"changes,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// FieldChange records one field of a structured diff, ordered as captured
type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}
