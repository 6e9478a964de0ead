package event

// Type identifies the type of order lifecycle event
type Type string

const (
	TypeOrderCreated      Type = "order.created"
	TypeOrderTransitioned Type = "order.transitioned"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeOrderCreated, TypeOrderTransitioned:
		return true
	default:
		return false
	}
}
