package handlers

import (
	"net/http"
	"time"

	"hospitalops/internal/models"
	"hospitalops/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// AuditHandlers exposes the audit trail to platform owners. Read-only; the
// trail is append-only and events are only ever written by the guard, the
// boundary scan, and the escape hatch.
type AuditHandlers struct {
	audit services.AuditEventsService
}

func NewAuditHandlers(audit services.AuditEventsService) *AuditHandlers {
	return &AuditHandlers{audit: audit}
}

type listAuditEventsRequest struct {
	EventType string `query:"eventType"`
	Since     string `query:"since"`
	Until     string `query:"until"`
	Limit     int    `query:"limit"`
	Offset    int    `query:"offset"`
}

func (h *AuditHandlers) buildFilters(c echo.Context) (*models.AuditEventFilters, error) {
	var req listAuditEventsRequest
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}
	if req.Limit <= 0 {
		req.Limit = 100
	}
	if req.Limit > 500 {
		req.Limit = 500
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	filters := &models.AuditEventFilters{
		EventType: req.EventType,
		Limit:     req.Limit,
		Offset:    req.Offset,
	}
	if req.Since != "" {
		t, err := time.Parse(time.RFC3339, req.Since)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "since must be RFC 3339")
		}
		filters.Since = &t
	}
	if req.Until != "" {
		t, err := time.Parse(time.RFC3339, req.Until)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "until must be RFC 3339")
		}
		filters.Until = &t
	}
	return filters, nil
}

// ListEvents returns audit events across all tenants.
func (h *AuditHandlers) ListEvents(c echo.Context) error {
	filters, err := h.buildFilters(c)
	if err != nil {
		return err
	}
	events, err := h.audit.List(c.Request().Context(), filters)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list audit events")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"events": events,
		"limit":  filters.Limit,
		"offset": filters.Offset,
	})
}

// ListTenantEvents returns audit events for the tenant named in the path.
func (h *AuditHandlers) ListTenantEvents(c echo.Context) error {
	filters, err := h.buildFilters(c)
	if err != nil {
		return err
	}
	filters.TenantKey = c.Param("tenantKey")

	events, err := h.audit.List(c.Request().Context(), filters)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list audit events")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"events": events,
		"limit":  filters.Limit,
		"offset": filters.Offset,
	})
}

// GetEvent returns a single audit event by id.
func (h *AuditHandlers) GetEvent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid event id")
	}
	event, err := h.audit.GetByID(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Audit event not found")
	}
	return c.JSON(http.StatusOK, event)
}
