package services

import (
	"context"

	"hospitalops/internal/common"
	"hospitalops/internal/models"
	"hospitalops/internal/repositories"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AuditEventsService writes and reads the append-only security audit trail.
// Writing never fails the request that triggered it: a storage error is
// logged and swallowed, the rejection itself already happened upstream.
type AuditEventsService interface {
	LogEvent(ctx context.Context, event *models.AuditEvent)
	LogViolation(ctx context.Context, eventType string, auth *models.AuthContext, route, method string, details models.JSONB)
	List(ctx context.Context, filters *models.AuditEventFilters) ([]*models.AuditEvent, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuditEvent, error)

	// RecordEscapeHatch implements tenancy.EscapeHatchRecorder.
	RecordEscapeHatch(ctx context.Context, tenantKey, collection, label string)
}

type auditEventsService struct {
	repo repositories.AuditEventsRepository
	log  *logrus.Entry
}

// NewAuditEventsService creates a new audit events service.
func NewAuditEventsService(repo repositories.AuditEventsRepository) AuditEventsService {
	return &auditEventsService{
		repo: repo,
		log:  logrus.WithField("component", "audit"),
	}
}

func (s *auditEventsService) LogEvent(ctx context.Context, event *models.AuditEvent) {
	if err := s.repo.Create(ctx, event); err != nil {
		s.log.WithError(err).WithField("event_type", event.EventType).Error("failed to write audit event")
	}
}

// LogViolation records a security-boundary violation. Violations are both
// rejected and logged; the audit trail is a first-class deliverable.
func (s *auditEventsService) LogViolation(ctx context.Context, eventType string, auth *models.AuthContext, route, method string, details models.JSONB) {
	event := &models.AuditEvent{
		EventType: eventType,
		Route:     route,
		Method:    method,
		Success:   false,
		Details:   details,
	}
	if auth != nil {
		event.ActorUserID = auth.UserID
		event.ActorRole = string(auth.Role)
		event.TenantKey = auth.TenantKey
	} else {
		event.ActorUserID = "unknown"
		event.ActorRole = "unknown"
	}
	s.LogEvent(ctx, event)
}

func (s *auditEventsService) List(ctx context.Context, filters *models.AuditEventFilters) ([]*models.AuditEvent, error) {
	return s.repo.List(ctx, filters)
}

func (s *auditEventsService) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditEvent, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *auditEventsService) RecordEscapeHatch(ctx context.Context, tenantKey, collection, label string) {
	actor := "unknown"
	if userID, ok := common.GetUserIDFromContext(ctx); ok {
		actor = userID
	}
	s.LogEvent(ctx, &models.AuditEvent{
		EventType:   models.EventEscapeHatchUsed,
		ActorUserID: actor,
		TenantKey:   tenantKey,
		Route:       label,
		Success:     true,
		Details: models.JSONB{
			"collection": collection,
			"label":      label,
		},
	})
}
