package handlers

import (
	"errors"
	"net/http"
	"time"

	"hospitalops/internal/models"
	"hospitalops/internal/repositories"
	"hospitalops/internal/tenancy"

	"github.com/labstack/echo/v4"
)

// TenantAdminHandlers implements the owner-scoped tenant registry API.
// Managed tenants are addressed by path parameter; tenant keys never travel
// in query strings or bodies.
type TenantAdminHandlers struct {
	registry repositories.TenantRegistryRepository
}

func NewTenantAdminHandlers(registry repositories.TenantRegistryRepository) *TenantAdminHandlers {
	return &TenantAdminHandlers{registry: registry}
}

// CreateTenantRequest is the onboarding payload.
type CreateTenantRequest struct {
	Key          string          `json:"key"`
	Name         string          `json:"name"`
	DBName       string          `json:"dbName"`
	MaxUsers     int             `json:"maxUsers"`
	Entitlements map[string]bool `json:"entitlements"`
}

// CreateTenant onboards a new tenant. The database name is validated here,
// at the only point where a bad name is still a client error rather than an
// operational incident.
func (h *TenantAdminHandlers) CreateTenant(c echo.Context) error {
	var req CreateTenantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Key == "" || req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Key and name are required")
	}

	dbName, err := tenancy.ResolveDBName(req.Key, req.DBName)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	entitlements := make(map[models.PlatformKey]bool, len(req.Entitlements))
	for raw, enabled := range req.Entitlements {
		key, err := models.NormalizePlatformKey(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		entitlements[key] = enabled
	}

	ctx := c.Request().Context()
	if _, err := h.registry.GetByKey(ctx, req.Key); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "Tenant already exists")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to check tenant")
	}

	now := time.Now()
	tenant := &models.Tenant{
		TenantKey:    req.Key,
		Name:         req.Name,
		DBName:       dbName,
		Status:       models.TenantStatusActive,
		Entitlements: entitlements,
		MaxUsers:     req.MaxUsers,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.registry.Create(ctx, tenant); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create tenant")
	}
	return c.JSON(http.StatusCreated, tenant)
}

type listTenantsRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

func (h *TenantAdminHandlers) ListTenants(c echo.Context) error {
	var req listTenantsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}
	if req.Limit <= 0 {
		req.Limit = 50
	}
	if req.Limit > 200 {
		req.Limit = 200
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	tenants, err := h.registry.List(c.Request().Context(), req.Limit, req.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list tenants")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"tenants": tenants,
		"limit":   req.Limit,
		"offset":  req.Offset,
	})
}

func (h *TenantAdminHandlers) GetTenant(c echo.Context) error {
	key := c.Param("tenantKey")
	tenant, err := h.registry.GetByKey(c.Request().Context(), key)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Tenant not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get tenant")
	}
	return c.JSON(http.StatusOK, tenant)
}

// UpdateTenantStatus activates or blocks a tenant. Tenants are never deleted.
func (h *TenantAdminHandlers) UpdateTenantStatus(c echo.Context) error {
	key := c.Param("tenantKey")

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Status != models.TenantStatusActive && req.Status != models.TenantStatusBlocked {
		return echo.NewHTTPError(http.StatusBadRequest, "Status must be active or blocked")
	}

	if err := h.registry.UpdateStatus(c.Request().Context(), key, req.Status); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Tenant not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update tenant status")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": req.Status})
}

// UpdateTenantEntitlements replaces a tenant's platform entitlement flags.
func (h *TenantAdminHandlers) UpdateTenantEntitlements(c echo.Context) error {
	key := c.Param("tenantKey")

	var req struct {
		Entitlements map[string]bool `json:"entitlements"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	entitlements := make(map[models.PlatformKey]bool, len(req.Entitlements))
	for raw, enabled := range req.Entitlements {
		platformKey, err := models.NormalizePlatformKey(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		entitlements[platformKey] = enabled
	}

	ctx := c.Request().Context()
	tenant, err := h.registry.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Tenant not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get tenant")
	}

	tenant.Entitlements = entitlements
	tenant.UpdatedAt = time.Now()
	if err := h.registry.Update(ctx, tenant); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update tenant")
	}
	return c.JSON(http.StatusOK, tenant)
}
