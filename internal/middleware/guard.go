package middleware

import (
	"fmt"
	"net/http"

	"hospitalops/internal/common"
	"hospitalops/internal/models"
	"hospitalops/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// GuardOptions declares what a route requires. The zero value means
// "authenticated tenant user, no further checks".
type GuardOptions struct {
	// Public skips the entire chain.
	Public bool
	// OwnerScoped restricts the route to the global owner role and skips
	// tenant-level checks, which have no meaning without a tenant.
	OwnerScoped bool
	// RequiredPlatform gates the route on a platform entitlement.
	RequiredPlatform models.PlatformKey
	// RequiredPermission gates the route on a fine-grained permission key.
	// Administrative roles bypass this check.
	RequiredPermission string
}

// Guard wraps handlers with the ordered authorization chain:
// authentication, subscription gate, platform entitlement, permission.
// Each link runs only when the previous one passed.
type Guard struct {
	auth          *Authenticator
	subscriptions services.SubscriptionService
	audit         services.AuditEventsService
	log           *logrus.Entry
}

func NewGuard(auth *Authenticator, subscriptions services.SubscriptionService, audit services.AuditEventsService) *Guard {
	return &Guard{
		auth:          auth,
		subscriptions: subscriptions,
		audit:         audit,
		log:           logrus.WithField("component", "guard"),
	}
}

func mutatingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// WithGuard wraps next with the authorization chain described by opts.
func (g *Guard) WithGuard(next echo.HandlerFunc, opts GuardOptions) echo.HandlerFunc {
	return func(c echo.Context) error {
		if opts.Public {
			return next(c)
		}

		authCtx, err := g.auth.Authenticate(c)
		if err != nil {
			return err
		}

		// Attach identity before any check that might log a violation so the
		// audit trail names the actor.
		ctx := common.WithAuthContext(c.Request().Context(), authCtx)
		c.SetRequest(c.Request().WithContext(ctx))

		if opts.OwnerScoped {
			if authCtx.Role != models.RoleOwner {
				g.recordViolation(c, models.EventOwnerSeparationViolation, authCtx, "owner route accessed by non-owner role "+string(authCtx.Role))
				return echo.NewHTTPError(http.StatusForbidden, "Owner access required")
			}
			return next(c)
		}

		decision, err := g.subscriptions.CheckSubscription(ctx, authCtx.TenantKey)
		if err != nil {
			g.log.WithError(err).WithField("tenant", authCtx.TenantKey).Error("subscription check failed")
			return echo.NewHTTPError(http.StatusInternalServerError, "Subscription check failed")
		}
		if !decision.Allowed {
			g.recordViolation(c, models.EventUnauthorizedAccess, authCtx, "subscription denied: "+decision.Reason)
			return echo.NewHTTPError(http.StatusForbidden, fmt.Sprintf("Subscription %s", decision.Reason))
		}
		if decision.ReadOnly && mutatingMethod(c.Request().Method) {
			return echo.NewHTTPError(http.StatusForbidden, "Subscription is read-only during the grace period")
		}

		if opts.RequiredPlatform != "" {
			enabled, err := g.subscriptions.IsPlatformEnabled(ctx, authCtx.TenantKey, opts.RequiredPlatform)
			if err != nil {
				g.log.WithError(err).WithField("tenant", authCtx.TenantKey).Error("platform entitlement check failed")
				return echo.NewHTTPError(http.StatusInternalServerError, "Entitlement check failed")
			}
			if !enabled {
				g.recordViolation(c, models.EventPermissionViolation, authCtx, "platform not enabled: "+string(opts.RequiredPlatform))
				return echo.NewHTTPError(http.StatusForbidden, fmt.Sprintf("Platform %s is not enabled for this tenant", opts.RequiredPlatform))
			}
		}

		if opts.RequiredPermission != "" && !authCtx.HasPermission(opts.RequiredPermission) {
			g.recordViolation(c, models.EventPermissionViolation, authCtx, "missing permission: "+opts.RequiredPermission)
			return echo.NewHTTPError(http.StatusForbidden, fmt.Sprintf("Missing permission %s", opts.RequiredPermission))
		}

		return next(c)
	}
}

func (g *Guard) recordViolation(c echo.Context, eventType string, auth *models.AuthContext, detail string) {
	if g.audit == nil {
		return
	}
	g.audit.LogViolation(c.Request().Context(), eventType, auth, c.Request().URL.Path, c.Request().Method, models.JSONB{
		"detail": detail,
	})
}
