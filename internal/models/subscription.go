package models

import (
	"time"
)

// Contract lifecycle status. Transitions are monotonic
// (active -> expired -> blocked) except explicit reactivation by an admin.
const (
	ContractStatusActive  = "active"
	ContractStatusBlocked = "blocked"
	ContractStatusExpired = "expired"
)

// ContractQuotas are the usage ceilings attached to a contract.
type ContractQuotas struct {
	MaxUsers           int `json:"maxUsers" bson:"maxUsers"`
	MaxAICallsPerMonth int `json:"maxAiCallsPerMonth" bson:"maxAiCallsPerMonth"`
	MaxStorageMB       int `json:"maxStorageMb" bson:"maxStorageMb"`
}

// SubscriptionContract is the commercial record governing a tenant's access.
// Exactly one contract exists per tenant.
type SubscriptionContract struct {
	TenantKey          string               `json:"tenantKey" bson:"tenantId"`
	Status             string               `json:"status" bson:"status"`
	EnabledPlatforms   map[PlatformKey]bool `json:"enabledPlatforms" bson:"enabledPlatforms"`
	EnabledFeatures    map[string]bool      `json:"enabledFeatures" bson:"enabledFeatures"`
	StartDate          time.Time            `json:"startDate" bson:"startDate"`
	EndDate            time.Time            `json:"endDate" bson:"endDate"`
	GracePeriodEnabled bool                 `json:"gracePeriodEnabled" bson:"gracePeriodEnabled"`
	GraceEndDate       time.Time            `json:"graceEndDate,omitempty" bson:"graceEndDate,omitempty"`
	Quotas             ContractQuotas       `json:"quotas" bson:"quotas"`
	CreatedAt          time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// SubscriptionDecision is the access decision produced by evaluating a
// contract snapshot at a point in time.
type SubscriptionDecision struct {
	Allowed  bool   `json:"allowed"`
	ReadOnly bool   `json:"readOnly"`
	Reason   string `json:"reason,omitempty"`
}

// Decision reasons surfaced to callers in 403 responses.
const (
	ReasonExpired    = "expired"
	ReasonBlocked    = "blocked"
	ReasonNoContract = "no contract"
)
