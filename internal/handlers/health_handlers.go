package handlers

import (
	"context"
	"net/http"
	"time"

	"hospitalops/internal/caching"
	"hospitalops/internal/database"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// PgPinger is the slice of the Postgres pool the health check needs.
type PgPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlers reports liveness of the document store, the audit store,
// and redis.
type HealthHandlers struct {
	connCache      *database.ConnectionCache
	platformDBName string
	pg             PgPinger
	cache          caching.CacheService
}

func NewHealthHandlers(connCache *database.ConnectionCache, platformDBName string, pg PgPinger, cache caching.CacheService) *HealthHandlers {
	return &HealthHandlers{
		connCache:      connCache,
		platformDBName: platformDBName,
		pg:             pg,
		cache:          cache,
	}
}

// HealthStatus is the health check payload.
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// HealthCheck pings each backing service with a short deadline.
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
	}

	mark := func(name string, err error) {
		if err != nil {
			health.Services[name] = "unhealthy"
			health.Status = "degraded"
		} else {
			health.Services[name] = "healthy"
		}
	}

	mark("documentStore", h.checkDocumentStore(ctx))
	mark("auditStore", h.pg.Ping(ctx))
	mark("redis", h.cache.Ping(ctx))

	statusCode := http.StatusOK
	if health.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	return c.JSON(statusCode, health)
}

func (h *HealthHandlers) checkDocumentStore(ctx context.Context) error {
	handle, err := h.connCache.Get(ctx, h.platformDBName)
	if err != nil {
		return err
	}
	return handle.Client().Ping(ctx, readpref.Primary())
}

// ReadyCheck is a cheap liveness probe that touches nothing.
func (h *HealthHandlers) ReadyCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}
