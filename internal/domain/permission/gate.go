package permission

import "github.com/minhvu/order-approval/internal/domain/workflow"

// Gate answers whether a role may perform a lifecycle action. Every transition
// request goes through the gate before the state machine is consulted.
type Gate interface {
	Allowed(role Role, action workflow.Action) bool
}

// capabilities is the static role x action table. Admin shares the
// accountant's cancel/amend override but does not take part in the normal
// review chain.
var capabilities = map[Role]map[workflow.Action]bool{
	RoleSales: {
		workflow.ActionCreate:   true,
		workflow.ActionResubmit: true,
		workflow.ActionCancel:   true,
	},
	RoleAccountant: {
		workflow.ActionApprove:     true,
		workflow.ActionReject:      true,
		workflow.ActionRequestEdit: true,
		workflow.ActionCancel:      true,
		workflow.ActionAmend:       true,
	},
	RoleWarehouse: {
		workflow.ActionWarehouseConfirm: true,
		workflow.ActionWarehouseReject:  true,
	},
	RoleShipper: {
		workflow.ActionShip:            true,
		workflow.ActionComplete:        true,
		workflow.ActionPartialComplete: true,
		workflow.ActionFail:            true,
	},
	RoleAdmin: {
		workflow.ActionCancel: true,
		workflow.ActionAmend:  true,
	},
}

type staticGate struct{}

// NewGate returns the capability-table gate
func NewGate() Gate {
	return staticGate{}
}

// Allowed reports whether the role may perform the action
func (staticGate) Allowed(role Role, action workflow.Action) bool {
	return capabilities[role][action]
}
