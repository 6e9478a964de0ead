package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/minhvu/order-approval/internal/domain/workflow"
)

func TestGateAllowed(t *testing.T) {
	gate := NewGate()

	tests := []struct {
		role    Role
		action  workflow.Action
		allowed bool
	}{
		{RoleSales, workflow.ActionCreate, true},
		{RoleSales, workflow.ActionResubmit, true},
		{RoleSales, workflow.ActionCancel, true},
		{RoleSales, workflow.ActionApprove, false},
		{RoleSales, workflow.ActionShip, false},

		{RoleAccountant, workflow.ActionApprove, true},
		{RoleAccountant, workflow.ActionReject, true},
		{RoleAccountant, workflow.ActionRequestEdit, true},
		{RoleAccountant, workflow.ActionAmend, true},
		{RoleAccountant, workflow.ActionCreate, false},
		{RoleAccountant, workflow.ActionWarehouseConfirm, false},

		{RoleWarehouse, workflow.ActionWarehouseConfirm, true},
		{RoleWarehouse, workflow.ActionWarehouseReject, true},
		{RoleWarehouse, workflow.ActionApprove, false},
		{RoleWarehouse, workflow.ActionCancel, false},

		{RoleShipper, workflow.ActionShip, true},
		{RoleShipper, workflow.ActionComplete, true},
		{RoleShipper, workflow.ActionPartialComplete, true},
		{RoleShipper, workflow.ActionFail, true},
		{RoleShipper, workflow.ActionApprove, false},

		{RoleAdmin, workflow.ActionCancel, true},
		{RoleAdmin, workflow.ActionAmend, true},
		{RoleAdmin, workflow.ActionApprove, false},
		{RoleAdmin, workflow.ActionCreate, false},
	}

	for _, tt := range tests {
		got := gate.Allowed(tt.role, tt.action)
		assert.Equal(t, tt.allowed, got, "role %s action %s", tt.role, tt.action)
	}
}

func TestGateUnknownRole(t *testing.T) {
	gate := NewGate()
	assert.False(t, gate.Allowed(Role("intern"), workflow.ActionApprove))
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("warehouse")
	assert.NoError(t, err)
	assert.Equal(t, RoleWarehouse, role)

	_, err = ParseRole("janitor")
	assert.Error(t, err)
}

func TestViewFor(t *testing.T) {
	// sales, accountant, and admin see the whole lifecycle
	for _, role := range []Role{RoleSales, RoleAccountant, RoleAdmin} {
		assert.ElementsMatch(t, workflow.AllStatuses(), ViewFor(role), "role %s", role)
	}

	assert.ElementsMatch(t, []workflow.Status{
		workflow.StatusApproved,
		workflow.StatusWarehouseConfirmed,
		workflow.StatusShipped,
		workflow.StatusCompleted,
		workflow.StatusPartialComplete,
	}, ViewFor(RoleWarehouse))

	assert.ElementsMatch(t, []workflow.Status{
		workflow.StatusWarehouseConfirmed,
		workflow.StatusShipped,
		workflow.StatusCompleted,
		workflow.StatusPartialComplete,
		workflow.StatusFailed,
	}, ViewFor(RoleShipper))
}

func TestCanSee(t *testing.T) {
	assert.True(t, CanSee(RoleAccountant, workflow.StatusPending))
	assert.True(t, CanSee(RoleWarehouse, workflow.StatusApproved))
	assert.False(t, CanSee(RoleWarehouse, workflow.StatusPending))
	assert.False(t, CanSee(RoleShipper, workflow.StatusPending))
	assert.False(t, CanSee(RoleShipper, workflow.StatusRejected))
}

func TestActionableFor(t *testing.T) {
	tests := []struct {
		role Role
		want []workflow.Status
	}{
		{RoleSales, []workflow.Status{workflow.StatusEditRequested, workflow.StatusFailed}},
		{RoleAccountant, []workflow.Status{workflow.StatusPending}},
		{RoleWarehouse, []workflow.Status{workflow.StatusApproved}},
		{RoleShipper, []workflow.Status{workflow.StatusWarehouseConfirmed, workflow.StatusShipped}},
		{RoleAdmin, []workflow.Status{workflow.StatusPending}},
	}
	for _, tt := range tests {
		assert.ElementsMatch(t, tt.want, ActionableFor(tt.role), "role %s", tt.role)
	}
}
