package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultEntitlementPolicy_Intersection(t *testing.T) {
	tenant := map[PlatformKey]bool{
		PlatformCompliance:  true,
		PlatformClinicalOps: true,
		PlatformEquipment:   true,
	}
	user := map[PlatformKey]bool{
		PlatformCompliance: true,
		PlatformEquipment:  false,
	}

	effective := DefaultEntitlementPolicy(tenant, user)

	assert.True(t, effective[PlatformCompliance])
	// Not listed for the user, so the tenant flag stands.
	assert.True(t, effective[PlatformClinicalOps])
	// User explicitly denied.
	assert.False(t, effective[PlatformEquipment])
}

func TestDefaultEntitlementPolicy_NilUserFallsBackToTenant(t *testing.T) {
	tenant := map[PlatformKey]bool{
		PlatformCompliance:        false,
		PlatformPatientExperience: true,
	}

	effective := DefaultEntitlementPolicy(tenant, nil)

	assert.False(t, effective[PlatformCompliance])
	assert.True(t, effective[PlatformPatientExperience])
}

func TestDefaultEntitlementPolicy_MissingTenantFlagsDefaultToBasePlatforms(t *testing.T) {
	effective := DefaultEntitlementPolicy(map[PlatformKey]bool{}, nil)

	assert.True(t, effective[PlatformCompliance])
	assert.True(t, effective[PlatformClinicalOps])
	assert.False(t, effective[PlatformPatientExperience])
	assert.False(t, effective[PlatformEquipment])
}

func TestDefaultEntitlementPolicy_UserCannotGrantBeyondTenant(t *testing.T) {
	tenant := map[PlatformKey]bool{PlatformEquipment: false}
	user := map[PlatformKey]bool{PlatformEquipment: true}

	effective := DefaultEntitlementPolicy(tenant, user)

	assert.False(t, effective[PlatformEquipment])
}

func TestAuthContext_HasPermission(t *testing.T) {
	staff := &AuthContext{Role: RoleStaff, Permissions: []string{"policies.write"}}
	assert.True(t, staff.HasPermission("policies.write"))
	assert.False(t, staff.HasPermission("policies.read"))

	admin := &AuthContext{Role: RoleAdmin}
	assert.True(t, admin.HasPermission("anything.at.all"))
}
