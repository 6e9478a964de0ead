package permission

import "github.com/minhvu/order-approval/internal/domain/workflow"

// roleViews declares which order statuses each role sees. The same table
// drives both order listing and the dashboard reducer so the two can never
// disagree.
var roleViews = map[Role][]workflow.Status{
	RoleSales:      workflow.AllStatuses(),
	RoleAccountant: workflow.AllStatuses(),
	RoleAdmin:      workflow.AllStatuses(),
	RoleWarehouse: {
		workflow.StatusApproved,
		workflow.StatusWarehouseConfirmed,
		workflow.StatusShipped,
		workflow.StatusCompleted,
		workflow.StatusPartialComplete,
	},
	RoleShipper: {
		workflow.StatusWarehouseConfirmed,
		workflow.StatusShipped,
		workflow.StatusCompleted,
		workflow.StatusPartialComplete,
		workflow.StatusFailed,
	},
}

// actionableStatuses declares which statuses a role is expected to act on;
// the dashboard's priority queue draws from these.
var actionableStatuses = map[Role][]workflow.Status{
	RoleSales:      {workflow.StatusEditRequested, workflow.StatusFailed},
	RoleAccountant: {workflow.StatusPending},
	RoleWarehouse:  {workflow.StatusApproved},
	RoleShipper:    {workflow.StatusWarehouseConfirmed, workflow.StatusShipped},
	RoleAdmin:      {workflow.StatusPending},
}

// ViewFor returns the statuses visible to the role
func ViewFor(role Role) []workflow.Status {
	return roleViews[role]
}

// ActionableFor returns the statuses the role is expected to act on
func ActionableFor(role Role) []workflow.Status {
	return actionableStatuses[role]
}

// CanSee returns true if the role's view includes the status
func CanSee(role Role, status workflow.Status) bool {
	for _, s := range roleViews[role] {
		if s == status {
			return true
		}
	}
	return false
}
