package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"hospitalops/internal/caching"
	"hospitalops/internal/config"
	"hospitalops/internal/database"
	"hospitalops/internal/handlers"
	"hospitalops/internal/jobs"
	"hospitalops/internal/middleware"
	"hospitalops/internal/models"
	"hospitalops/internal/repositories"
	"hospitalops/internal/services"
	"hospitalops/internal/tenancy"
)

// routeTable registers guarded routes and records their declared guard
// configuration so the quality scan inspects exactly what was wired.
type routeTable struct {
	e     *echo.Echo
	guard *middleware.Guard
	specs []services.RouteSpec
}

func (rt *routeTable) add(method, path string, h echo.HandlerFunc, opts middleware.GuardOptions) {
	rt.e.Add(method, path, rt.guard.WithGuard(h, opts))
	rt.specs = append(rt.specs, services.RouteSpec{
		Method:             method,
		Path:               path,
		Public:             opts.Public,
		OwnerScoped:        opts.OwnerScoped,
		RequiredPlatform:   opts.RequiredPlatform,
		RequiredPermission: opts.RequiredPermission,
	})
}

func (rt *routeTable) Specs() []services.RouteSpec {
	specs := make([]services.RouteSpec, len(rt.specs))
	copy(specs, rt.specs)
	return specs
}

func main() {
	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to audit store: %v", err)
	}
	defer pool.Close()

	cacheSvc := caching.NewRedisCacheService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	connCache := database.NewConnectionCache(cfg.MongoURL)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := connCache.ResetAll(shutdownCtx); err != nil {
			log.Warnf("failed to close document store connections: %v", err)
		}
	}()

	platformHandle, err := connCache.Get(ctx, cfg.PlatformDBName)
	if err != nil {
		log.Fatalf("failed to connect to platform database: %v", err)
	}
	platformDB := platformHandle.Database()

	// Repositories
	registryRepo := repositories.NewTenantRegistryRepo(platformDB)
	contractRepo := repositories.NewContractRepo(platformDB)
	auditRepo := repositories.NewAuditEventsRepo(pool)

	// Services
	auditSvc := services.NewAuditEventsService(auditRepo)
	resolver := tenancy.NewResolver(registryRepo, connCache)
	store := tenancy.NewStore(resolver, connCache, cfg.PlatformDBName, auditSvc)
	userCounter := tenancy.NewUserCounter(resolver)
	subscriptionSvc := services.NewSubscriptionService(contractRepo, userCounter)

	authenticator, err := middleware.NewAuthenticator(cfg.JWTSecret, cfg.JWKSURL, cacheSvc)
	if err != nil {
		log.Fatalf("failed to initialize authenticator: %v", err)
	}
	guard := middleware.NewGuard(authenticator, subscriptionSvc, auditSvc)
	auditMw := middleware.NewAuditMiddleware(auditSvc)

	e := echo.New()
	e.HideBanner = true

	rt := &routeTable{e: e, guard: guard}
	qualitySvc := services.NewQualityService(subscriptionSvc, auditSvc, rt.Specs)

	sweep, err := jobs.NewQualitySweep(qualitySvc, cfg.SweepInterval)
	if err != nil {
		log.Fatalf("failed to initialize quality sweep: %v", err)
	}

	// Handlers
	healthHandlers := handlers.NewHealthHandlers(connCache, cfg.PlatformDBName, pool, cacheSvc)
	tenantAdminHandlers := handlers.NewTenantAdminHandlers(registryRepo)
	contractHandlers := handlers.NewContractHandlers(contractRepo, subscriptionSvc)
	auditHandlers := handlers.NewAuditHandlers(auditSvc)
	policyHandlers := handlers.NewPolicyHandlers(store)
	qualityHandlers := handlers.NewQualityHandlers(qualitySvc, sweep)

	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RemoveTrailingSlash())
	e.Use(middleware.RateLimit(cacheSvc, 300, time.Minute))
	e.Use(qualitySvc.BoundaryScanMiddleware())
	e.Use(auditMw.AuditRequest())

	public := middleware.GuardOptions{Public: true}
	owner := middleware.GuardOptions{OwnerScoped: true}

	// Health
	rt.add(http.MethodGet, "/health", healthHandlers.HealthCheck, public)
	rt.add(http.MethodGet, "/ready", healthHandlers.ReadyCheck, public)

	// Tenant-facing API
	rt.add(http.MethodGet, "/v1/subscription", contractHandlers.MySubscription, middleware.GuardOptions{})
	rt.add(http.MethodGet, "/v1/subscription/platforms/:platform", contractHandlers.MyPlatformStatus, middleware.GuardOptions{})

	compliance := models.PlatformCompliance
	rt.add(http.MethodGet, "/v1/policies", policyHandlers.ListPolicies,
		middleware.GuardOptions{RequiredPlatform: compliance, RequiredPermission: "policies.read"})
	rt.add(http.MethodGet, "/v1/policies/:id", policyHandlers.GetPolicy,
		middleware.GuardOptions{RequiredPlatform: compliance, RequiredPermission: "policies.read"})
	rt.add(http.MethodPost, "/v1/policies", policyHandlers.CreatePolicy,
		middleware.GuardOptions{RequiredPlatform: compliance, RequiredPermission: "policies.write"})
	rt.add(http.MethodPut, "/v1/policies/:id", policyHandlers.UpdatePolicy,
		middleware.GuardOptions{RequiredPlatform: compliance, RequiredPermission: "policies.write"})
	rt.add(http.MethodDelete, "/v1/policies/:id", policyHandlers.DeletePolicy,
		middleware.GuardOptions{RequiredPlatform: compliance, RequiredPermission: "policies.write"})

	rt.add(http.MethodPost, "/v1/quality/run", qualityHandlers.RunGate,
		middleware.GuardOptions{RequiredPermission: "quality.run"})

	// Owner namespace
	rt.add(http.MethodPost, "/v1/owner/tenants", tenantAdminHandlers.CreateTenant, owner)
	rt.add(http.MethodGet, "/v1/owner/tenants", tenantAdminHandlers.ListTenants, owner)
	rt.add(http.MethodGet, "/v1/owner/tenants/:tenantKey", tenantAdminHandlers.GetTenant, owner)
	rt.add(http.MethodPatch, "/v1/owner/tenants/:tenantKey/status", tenantAdminHandlers.UpdateTenantStatus, owner)
	rt.add(http.MethodPut, "/v1/owner/tenants/:tenantKey/entitlements", tenantAdminHandlers.UpdateTenantEntitlements, owner)
	rt.add(http.MethodPut, "/v1/owner/tenants/:tenantKey/contract", contractHandlers.UpsertContract, owner)
	rt.add(http.MethodGet, "/v1/owner/tenants/:tenantKey/contract", contractHandlers.GetContract, owner)
	rt.add(http.MethodGet, "/v1/owner/tenants/:tenantKey/audit-events", auditHandlers.ListTenantEvents, owner)
	rt.add(http.MethodGet, "/v1/owner/audit-events", auditHandlers.ListEvents, owner)
	rt.add(http.MethodGet, "/v1/owner/audit-events/:id", auditHandlers.GetEvent, owner)
	rt.add(http.MethodGet, "/v1/owner/quality/sweep", qualityHandlers.LastSweep, owner)

	if findings := services.ScanRoutes(rt.Specs()); len(findings) > 0 {
		for _, f := range findings {
			log.Errorf("route scan: %s %s: %s", f.Method, f.Path, f.Problem)
		}
		log.Fatal("route configuration failed the static scan")
	}

	sweep.Start()
	defer func() {
		if err := sweep.Stop(); err != nil {
			log.Warnf("failed to stop quality sweep: %v", err)
		}
	}()

	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", cfg.Port)))
}
