package handlers

import (
	"net/http"

	"hospitalops/internal/jobs"
	"hospitalops/internal/services"

	"github.com/labstack/echo/v4"
)

// QualityHandlers exposes the verification checks: an on-demand gate run for
// admins and the last sweep report for owners.
type QualityHandlers struct {
	quality services.QualityService
	sweep   *jobs.QualitySweep
}

func NewQualityHandlers(quality services.QualityService, sweep *jobs.QualitySweep) *QualityHandlers {
	return &QualityHandlers{quality: quality, sweep: sweep}
}

// RunGate evaluates every check in the context of the current request.
func (h *QualityHandlers) RunGate(c echo.Context) error {
	report := h.quality.RunQualityGate(c)
	status := http.StatusOK
	if !report.Passed {
		status = http.StatusConflict
	}
	return c.JSON(status, report)
}

// LastSweep returns the most recent scheduled sweep report.
func (h *QualityHandlers) LastSweep(c echo.Context) error {
	report, ranAt := h.sweep.LastReport()
	if report == nil {
		return echo.NewHTTPError(http.StatusNotFound, "No sweep has run yet")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"ranAt":  ranAt,
		"report": report,
	})
}
