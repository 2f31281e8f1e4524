package models

import (
	"time"
)

// Tenant lifecycle status. Tenants are never hard-deleted; deactivation is a
// status change.
const (
	TenantStatusActive  = "active"
	TenantStatusBlocked = "blocked"
)

// Tenant is a platform-registry record describing one customer organization.
// DBName may be empty, in which case the database name is derived
// deterministically from the tenant key.
type Tenant struct {
	TenantKey    string               `json:"tenantKey" bson:"tenantId"`
	Name         string               `json:"name" bson:"name"`
	DBName       string               `json:"dbName,omitempty" bson:"dbName,omitempty"`
	Status       string               `json:"status" bson:"status"`
	Entitlements map[PlatformKey]bool `json:"entitlements" bson:"entitlements"`
	MaxUsers     int                  `json:"maxUsers" bson:"maxUsers"`
	CreatedAt    time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// DefaultEntitlementPolicy computes a user's effective platform entitlements:
// the intersection of what the tenant purchased and what the user is allowed
// within the tenant. A user with no per-user access record falls back to the
// full tenant entitlements so that missing data never locks a tenant out.
// Missing tenant flags default to the base platforms (compliance and
// clinical_ops) enabled and the add-on platforms disabled.
func DefaultEntitlementPolicy(tenant map[PlatformKey]bool, user map[PlatformKey]bool) map[PlatformKey]bool {
	effective := make(map[PlatformKey]bool, len(validPlatformKeys))
	for _, key := range AllPlatformKeys() {
		enabled, present := tenant[key]
		if !present {
			enabled = key == PlatformCompliance || key == PlatformClinicalOps
		}
		if user != nil {
			userAllowed, userPresent := user[key]
			if userPresent {
				enabled = enabled && userAllowed
			}
		}
		effective[key] = enabled
	}
	return effective
}
