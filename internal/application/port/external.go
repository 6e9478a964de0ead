package port

import (
	"context"

	"github.com/minhvu/order-approval/internal/domain/permission"
)

// IdentityService resolves actors to roles and roles to their members. It is
// an external collaborator: this core never provisions accounts.
type IdentityService interface {
	// RoleOf returns the actor's role; ErrNotFound for unknown actors
	RoleOf(ctx context.Context, userID string) (permission.Role, error)

	// UsersWithRole returns the ids of every user holding the role
	UsersWithRole(ctx context.Context, role permission.Role) ([]string, error)
}

// Push is the payload handed to the delivery channel for live updates
type Push struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// DeliveryChannel pushes events to connected recipients. All methods are
// best-effort: a returned error is logged by the caller and never rolls back
// the transition that produced the push. The durable Notification row is the
// reliable record; the push is an at-most-once live hint.
type DeliveryChannel interface {
	SendToUser(ctx context.Context, userID string, push Push) error
	SendToRole(ctx context.Context, role permission.Role, push Push, excludeID string) error
	Broadcast(ctx context.Context, push Push, excludeID string) error
}
