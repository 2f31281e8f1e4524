package handlers

import (
	"errors"
	"net/http"
	"time"

	"hospitalops/internal/common"
	"hospitalops/internal/models"
	"hospitalops/internal/repositories"
	"hospitalops/internal/services"

	"github.com/labstack/echo/v4"
)

// ContractHandlers exposes subscription contracts: owner-scoped upsert and
// the tenant-facing "my subscription" view.
type ContractHandlers struct {
	contracts     repositories.ContractRepository
	subscriptions services.SubscriptionService
}

func NewContractHandlers(contracts repositories.ContractRepository, subscriptions services.SubscriptionService) *ContractHandlers {
	return &ContractHandlers{contracts: contracts, subscriptions: subscriptions}
}

// UpsertContractRequest carries the commercial terms for one tenant.
type UpsertContractRequest struct {
	Status             string                `json:"status"`
	EnabledPlatforms   map[string]bool       `json:"enabledPlatforms"`
	EnabledFeatures    map[string]bool       `json:"enabledFeatures"`
	StartDate          time.Time             `json:"startDate"`
	EndDate            time.Time             `json:"endDate"`
	GracePeriodEnabled bool                  `json:"gracePeriodEnabled"`
	GraceEndDate       time.Time             `json:"graceEndDate"`
	Quotas             models.ContractQuotas `json:"quotas"`
}

// UpsertContract creates or replaces the contract for the tenant named in the
// path. Owner-scoped.
func (h *ContractHandlers) UpsertContract(c echo.Context) error {
	tenantKey := c.Param("tenantKey")

	var req UpsertContractRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	switch req.Status {
	case models.ContractStatusActive, models.ContractStatusBlocked, models.ContractStatusExpired:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "Status must be active, blocked, or expired")
	}
	if !req.EndDate.After(req.StartDate) {
		return echo.NewHTTPError(http.StatusBadRequest, "End date must be after start date")
	}

	platforms := make(map[models.PlatformKey]bool, len(req.EnabledPlatforms))
	for raw, enabled := range req.EnabledPlatforms {
		key, err := models.NormalizePlatformKey(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		platforms[key] = enabled
	}

	contract := &models.SubscriptionContract{
		TenantKey:          tenantKey,
		Status:             req.Status,
		EnabledPlatforms:   platforms,
		EnabledFeatures:    req.EnabledFeatures,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		GracePeriodEnabled: req.GracePeriodEnabled,
		GraceEndDate:       req.GraceEndDate,
		Quotas:             req.Quotas,
		UpdatedAt:          time.Now(),
	}
	if err := h.contracts.Upsert(c.Request().Context(), contract); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save contract")
	}
	return c.JSON(http.StatusOK, contract)
}

// GetContract returns the stored contract for the tenant named in the path.
// Owner-scoped.
func (h *ContractHandlers) GetContract(c echo.Context) error {
	tenantKey := c.Param("tenantKey")
	contract, err := h.contracts.GetByTenantKey(c.Request().Context(), tenantKey)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Contract not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get contract")
	}
	return c.JSON(http.StatusOK, contract)
}

// MySubscription reports the caller's own subscription state: the current
// decision plus quota headroom. The tenant key comes from the session.
func (h *ContractHandlers) MySubscription(c echo.Context) error {
	ctx := c.Request().Context()
	tenantKey, ok := common.GetTenantKeyFromContext(ctx)
	if !ok || tenantKey == "" {
		return echo.NewHTTPError(http.StatusForbidden, "No tenant-bound session")
	}

	decision, err := h.subscriptions.CheckSubscription(ctx, tenantKey)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to check subscription")
	}

	resp := map[string]interface{}{
		"decision": decision,
	}
	if quota, err := h.subscriptions.CheckUserLimit(ctx, tenantKey); err == nil {
		resp["userQuota"] = quota
	}
	return c.JSON(http.StatusOK, resp)
}

// MyPlatformStatus reports whether one platform is enabled for the caller's
// tenant, subscription state included.
func (h *ContractHandlers) MyPlatformStatus(c echo.Context) error {
	ctx := c.Request().Context()
	tenantKey, ok := common.GetTenantKeyFromContext(ctx)
	if !ok || tenantKey == "" {
		return echo.NewHTTPError(http.StatusForbidden, "No tenant-bound session")
	}

	platform, err := models.NormalizePlatformKey(c.Param("platform"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	enabled, err := h.subscriptions.IsPlatformEnabled(ctx, tenantKey, platform)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to check platform")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"platform": platform,
		"enabled":  enabled,
	})
}
