package workflow

// Status represents an order status in the approval lifecycle
type Status string

const (
	StatusPending            Status = "pending"
	StatusApproved           Status = "approved"
	StatusEditRequested      Status = "edit_requested"
	StatusRejected           Status = "rejected"
	StatusWarehouseConfirmed Status = "warehouse_confirmed"
	StatusWarehouseRejected  Status = "warehouse_rejected"
	StatusShipped            Status = "shipped"
	StatusCompleted          Status = "completed"
	StatusPartialComplete    Status = "partial_complete"
	StatusFailed             Status = "failed"
	StatusCancelled          Status = "cancelled"
)

var validStatuses = map[Status]bool{
	StatusPending:            true,
	StatusApproved:           true,
	StatusEditRequested:      true,
	StatusRejected:           true,
	StatusWarehouseConfirmed: true,
	StatusWarehouseRejected:  true,
	StatusShipped:            true,
	StatusCompleted:          true,
	StatusPartialComplete:    true,
	StatusFailed:             true,
	StatusCancelled:          true,
}

// Terminal statuses accept no further transition. failed is not terminal:
// sales may still resubmit or cancel a failed order.
var terminalStatuses = map[Status]bool{
	StatusRejected:        true,
	StatusCompleted:       true,
	StatusPartialComplete: true,
	StatusCancelled:       true,
}

// IsTerminal returns true if no further transition is allowed from the status
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsValid returns true if the status is one of the defined lifecycle statuses
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// AllStatuses returns every defined lifecycle status
func AllStatuses() []Status {
	return []Status{
		StatusPending,
		StatusApproved,
		StatusEditRequested,
		StatusRejected,
		StatusWarehouseConfirmed,
		StatusWarehouseRejected,
		StatusShipped,
		StatusCompleted,
		StatusPartialComplete,
		StatusFailed,
		StatusCancelled,
	}
}

// NonTerminalStatuses returns the statuses an order can still leave
func NonTerminalStatuses() []Status {
	var out []Status
	for _, s := range AllStatuses() {
		if !s.IsTerminal() {
			out = append(out, s)
		}
	}
	return out
}
