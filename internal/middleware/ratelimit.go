package middleware

import (
	"net/http"
	"time"

	"hospitalops/internal/caching"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// RateLimit enforces a fixed-window request limit per client IP and path.
// A cache failure lets the request through; availability beats strictness
// for a limiter that only protects against accidental floods.
func RateLimit(cache caching.CacheService, limit int, window time.Duration) echo.MiddlewareFunc {
	log := logrus.WithField("component", "ratelimit")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP() + ":" + c.Path()
			ctx := c.Request().Context()

			limited, err := cache.IsRateLimited(ctx, key, limit, window)
			if err != nil {
				log.WithError(err).Warn("rate limit check failed")
				return next(c)
			}
			if limited {
				return echo.NewHTTPError(http.StatusTooManyRequests, "Rate limit exceeded")
			}
			if err := cache.IncrementRateLimit(ctx, key, window); err != nil {
				log.WithError(err).Warn("rate limit increment failed")
			}
			return next(c)
		}
	}
}
