package middleware

import (
	"time"

	"hospitalops/internal/common"
	"hospitalops/internal/models"
	"hospitalops/internal/services"

	"github.com/labstack/echo/v4"
)

// AuditMiddleware records request activity into the audit trail.
type AuditMiddleware struct {
	auditService services.AuditEventsService
}

func NewAuditMiddleware(auditService services.AuditEventsService) *AuditMiddleware {
	return &AuditMiddleware{auditService: auditService}
}

// AuditRequest logs mutating and failed requests after the handler runs.
// Recording is best-effort and never changes the response.
func (m *AuditMiddleware) AuditRequest() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			ctx := c.Request().Context()
			authCtx, ok := common.GetAuthContext(ctx)
			if !ok {
				// Unauthenticated traffic is recorded by the guard when it
				// matters; nothing to attribute here.
				return err
			}

			method := c.Request().Method
			if !mutatingMethod(method) && err == nil {
				return err
			}

			details := models.JSONB{
				"method":     method,
				"path":       c.Path(),
				"status":     c.Response().Status,
				"durationMs": time.Since(start).Milliseconds(),
			}
			if err != nil {
				details["error"] = err.Error()
			}

			m.auditService.LogEvent(ctx, &models.AuditEvent{
				EventType:   models.EventRequestActivity,
				TenantKey:   authCtx.TenantKey,
				ActorUserID: authCtx.UserID,
				ActorRole:   string(authCtx.Role),
				Route:       c.Path(),
				Method:      method,
				IP:          c.RealIP(),
				UserAgent:   c.Request().UserAgent(),
				Success:     err == nil,
				Details:     details,
			})
			return err
		}
	}
}
