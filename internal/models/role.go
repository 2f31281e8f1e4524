package models

// Role is the closed set of caller roles.
type Role string

const (
	// RoleStaff is a regular tenant user.
	RoleStaff Role = "staff"
	// RoleAdmin administers one tenant.
	RoleAdmin Role = "admin"
	// RoleOwner is the global platform owner; owner identity is not
	// tenant-bound.
	RoleOwner Role = "owner"
	// RolePlatform is a platform service identity used for cross-tenant
	// maintenance.
	RolePlatform Role = "platform"
)

// IsAdministrative reports whether the role bypasses fine-grained permission
// checks.
func (r Role) IsAdministrative() bool {
	return r == RoleAdmin || r == RoleOwner
}

// IsPlatformRole reports whether the role may open cross-tenant platform
// collections.
func (r Role) IsPlatformRole() bool {
	return r == RoleOwner || r == RolePlatform
}

func (r Role) Valid() bool {
	switch r {
	case RoleStaff, RoleAdmin, RoleOwner, RolePlatform:
		return true
	}
	return false
}
