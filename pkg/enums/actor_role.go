package enums

import "fmt"

// ActorRole identifies who is acting on behalf of a tenant.
type ActorRole string

const (
	ActorRoleDistributorAdmin ActorRole = "distributor_admin"
	ActorRoleDistributorStaff ActorRole = "distributor_staff"
	ActorRoleBuyer            ActorRole = "buyer"
)

var validActorRoles = []ActorRole{
	ActorRoleDistributorAdmin,
	ActorRoleDistributorStaff,
	ActorRoleBuyer,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsDistributor reports whether the role acts for the selling tenant.
func (r ActorRole) IsDistributor() bool {
	return r == ActorRoleDistributorAdmin || r == ActorRoleDistributorStaff
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
