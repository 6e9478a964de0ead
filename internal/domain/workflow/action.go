package workflow

// Action represents a request to move an order through the lifecycle
type Action string

const (
	ActionCreate           Action = "create"
	ActionApprove          Action = "approve"
	ActionReject           Action = "reject"
	ActionRequestEdit      Action = "request_edit"
	ActionResubmit         Action = "resubmit"
	ActionCancel           Action = "cancel"
	ActionWarehouseConfirm Action = "confirm"
	ActionWarehouseReject  Action = "warehouse_reject"
	ActionShip             Action = "ship"
	ActionComplete         Action = "complete"
	ActionPartialComplete  Action = "partial_complete"
	ActionFail             Action = "fail"
	ActionAmend            Action = "amend"
)

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}

// IsValid returns true if the action is one of the defined lifecycle actions
func (a Action) IsValid() bool {
	switch a {
	case ActionCreate,
		ActionApprove,
		ActionReject,
		ActionRequestEdit,
		ActionResubmit,
		ActionCancel,
		ActionWarehouseConfirm,
		ActionWarehouseReject,
		ActionShip,
		ActionComplete,
		ActionPartialComplete,
		ActionFail,
		ActionAmend:
		return true
	default:
		return false
	}
}
