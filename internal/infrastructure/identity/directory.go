package identity

import (
	"context"
	"fmt"

	"github.com/minhvu/order-approval/internal/application/port"
	"github.com/minhvu/order-approval/internal/domain/permission"
)

// User is one provisioned account known to the directory
type User struct {
	ID   string
	Name string
	Role permission.Role
}

// Directory is a config-backed implementation of port.IdentityService.
// Account provisioning itself lives outside this system; the directory only
// answers who holds which role.
type Directory struct {
	byID   map[string]User
	byRole map[permission.Role][]string
}

// NewDirectory builds the directory from the configured user list, rejecting
// unknown roles and duplicate ids
func NewDirectory(users []User) (*Directory, error) {
	d := &Directory{
		byID:   make(map[string]User, len(users)),
		byRole: make(map[permission.Role][]string),
	}
	for _, u := range users {
		if u.ID == "" {
			return nil, fmt.Errorf("identity: user with empty id")
		}
		if !u.Role.IsValid() {
			return nil, fmt.Errorf("identity: user %s has unknown role %q", u.ID, u.Role)
		}
		if _, exists := d.byID[u.ID]; exists {
			return nil, fmt.Errorf("identity: duplicate user id %s", u.ID)
		}
		d.byID[u.ID] = u
		d.byRole[u.Role] = append(d.byRole[u.Role], u.ID)
	}
	return d, nil
}

// RoleOf returns the user's role
func (d *Directory) RoleOf(ctx context.Context, userID string) (permission.Role, error) {
	u, ok := d.byID[userID]
	if !ok {
		return "", fmt.Errorf("user %s: %w", userID, port.ErrNotFound)
	}
	return u.Role, nil
}

// UsersWithRole returns the ids of every user holding the role
func (d *Directory) UsersWithRole(ctx context.Context, role permission.Role) ([]string, error) {
	return append([]string(nil), d.byRole[role]...), nil
}

// Verify interface compliance
var _ port.IdentityService = (*Directory)(nil)
