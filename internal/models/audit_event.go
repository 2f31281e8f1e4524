package models

import (
	"time"

	"github.com/google/uuid"
)

// JSONB represents a JSONB column payload.
type JSONB map[string]interface{}

// Audit event types. The set is closed; new types require a schema review.
const (
	EventUnauthorizedAccess       = "unauthorized_access"
	EventPermissionViolation      = "permission_violation"
	EventTenantBoundaryViolation  = "tenant_boundary_violation"
	EventOwnerSeparationViolation = "owner_separation_violation"
	EventEscapeHatchUsed          = "escape_hatch_used"
	EventRequestActivity          = "request_activity"
)

// AuditEvent is an append-only record of a security-relevant occurrence.
// Events are never mutated after insert.
type AuditEvent struct {
	ID          uuid.UUID `json:"id" db:"id"`
	EventType   string    `json:"eventType" db:"event_type"`
	ActorUserID string    `json:"actorUserId" db:"actor_user_id"`
	ActorRole   string    `json:"actorRole" db:"actor_role"`
	TenantKey   string    `json:"tenantKey" db:"tenant_key"`
	Route       string    `json:"route" db:"route"`
	Method      string    `json:"method" db:"method"`
	IP          string    `json:"ip,omitempty" db:"ip"`
	UserAgent   string    `json:"userAgent,omitempty" db:"user_agent"`
	Success     bool      `json:"success" db:"success"`
	Details     JSONB     `json:"details,omitempty" db:"details"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// AuditEventFilters narrows audit event queries.
type AuditEventFilters struct {
	EventType string
	TenantKey string
	ActorID   string
	Since     *time.Time
	Until     *time.Time
	Limit     int
	Offset    int
}
