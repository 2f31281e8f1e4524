package models

// AuthContext is the per-request identity resolved from a validated session
// token. It is constructed once by the guard chain and immutable for the
// request's duration. The tenant key here is the only tenant identity the
// rest of the system trusts.
type AuthContext struct {
	UserID      string
	TenantKey   string
	Role        Role
	Permissions []string
}

// HasPermission reports whether the caller holds a permission key.
// Administrative roles bypass the check.
func (a *AuthContext) HasPermission(key string) bool {
	if a.Role.IsAdministrative() {
		return true
	}
	for _, p := range a.Permissions {
		if p == key {
			return true
		}
	}
	return false
}
