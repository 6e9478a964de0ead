package permission

import "fmt"

// Role is the closed set of actor roles known to the system
type Role string

const (
	RoleSales      Role = "sales"
	RoleAccountant Role = "accountant"
	RoleWarehouse  Role = "warehouse"
	RoleShipper    Role = "shipper"
	RoleAdmin      Role = "admin"
)

var validRoles = map[Role]bool{
	RoleSales:      true,
	RoleAccountant: true,
	RoleWarehouse:  true,
	RoleShipper:    true,
	RoleAdmin:      true,
}

// IsValid returns true if the role is one of the defined roles
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// ParseRole converts a raw string into a Role, rejecting unknown values
func ParseRole(raw string) (Role, error) {
	role := Role(raw)
	if !role.IsValid() {
		return "", fmt.Errorf("unknown role: %q", raw)
	}
	return role, nil
}

// AllRoles returns every defined role
func AllRoles() []Role {
	return []Role{RoleSales, RoleAccountant, RoleWarehouse, RoleShipper, RoleAdmin}
}
