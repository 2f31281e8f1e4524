package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hospitalops/internal/common"
	"hospitalops/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingAudit captures violation events for assertions.
type recordingAudit struct {
	violations []string
}

func (r *recordingAudit) LogEvent(ctx context.Context, event *models.AuditEvent) {}

func (r *recordingAudit) LogViolation(ctx context.Context, eventType string, auth *models.AuthContext, route, method string, details models.JSONB) {
	r.violations = append(r.violations, eventType)
}

func (r *recordingAudit) List(ctx context.Context, filters *models.AuditEventFilters) ([]*models.AuditEvent, error) {
	return nil, nil
}

func (r *recordingAudit) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditEvent, error) {
	return nil, nil
}

func (r *recordingAudit) RecordEscapeHatch(ctx context.Context, tenantKey, collection, label string) {}

// stubSubscription returns a fixed decision.
type stubSubscription struct {
	decision models.SubscriptionDecision
}

func (s *stubSubscription) CheckSubscription(ctx context.Context, tenantKey string) (models.SubscriptionDecision, error) {
	return s.decision, nil
}

func (s *stubSubscription) IsPlatformEnabled(ctx context.Context, tenantKey string, platform models.PlatformKey) (bool, error) {
	return s.decision.Allowed, nil
}

func (s *stubSubscription) IsFeatureEnabled(ctx context.Context, tenantKey, featureKey string) (bool, error) {
	return s.decision.Allowed, nil
}

func (s *stubSubscription) CheckUserLimit(ctx context.Context, tenantKey string) (*QuotaStatus, error) {
	return &QuotaStatus{Allowed: s.decision.Allowed}, nil
}

func newQualityHarness(decision models.SubscriptionDecision, routes []RouteSpec) (QualityService, *recordingAudit) {
	audit := &recordingAudit{}
	svc := NewQualityService(&stubSubscription{decision: decision}, audit, func() []RouteSpec { return routes })
	return svc, audit
}

func requestContext(method, target, body string, auth *models.AuthContext) echo.Context {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if auth != nil {
		req = req.WithContext(common.WithAuthContext(req.Context(), auth))
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func TestBoundaryScan_TenantKeyInQuery(t *testing.T) {
	svc, audit := newQualityHarness(models.SubscriptionDecision{Allowed: true}, nil)
	c := requestContext(http.MethodGet, "/v1/policies?tenantId=acme", "", nil)

	handlerRan := false
	err := svc.BoundaryScanMiddleware()(func(c echo.Context) error {
		handlerRan = true
		return nil
	})(c)

	require.Error(t, err)
	he := err.(*echo.HTTPError)
	assert.Equal(t, http.StatusForbidden, he.Code)
	assert.False(t, handlerRan)
	assert.Equal(t, []string{models.EventTenantBoundaryViolation}, audit.violations)
}

func TestBoundaryScan_TenantKeyInBody(t *testing.T) {
	svc, audit := newQualityHarness(models.SubscriptionDecision{Allowed: true}, nil)
	c := requestContext(http.MethodPost, "/v1/policies", `{"tenantId":"other-tenant","title":"x"}`, nil)

	err := svc.BoundaryScanMiddleware()(func(c echo.Context) error { return nil })(c)

	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, err.(*echo.HTTPError).Code)
	assert.Len(t, audit.violations, 1)
}

func TestBoundaryScan_OwnTenantValueStillRejected(t *testing.T) {
	// Presence is the violation; matching the caller's real tenant does not
	// make it acceptable.
	svc, _ := newQualityHarness(models.SubscriptionDecision{Allowed: true}, nil)
	auth := &models.AuthContext{UserID: "u1", TenantKey: "acme", Role: models.RoleStaff}
	c := requestContext(http.MethodPost, "/v1/policies", `{"tenantId":"acme"}`, auth)

	err := svc.BoundaryScanMiddleware()(func(c echo.Context) error { return nil })(c)

	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, err.(*echo.HTTPError).Code)
}

func TestBoundaryScan_AlternateFieldSpellings(t *testing.T) {
	svc, _ := newQualityHarness(models.SubscriptionDecision{Allowed: true}, nil)
	for _, target := range []string{"/x?tenant=a", "/x?tenantKey=a", "/x?tenantId=a"} {
		c := requestContext(http.MethodGet, target, "", nil)
		err := svc.BoundaryScanMiddleware()(func(c echo.Context) error { return nil })(c)
		assert.Error(t, err, "target %s", target)
	}
}

func TestBoundaryScan_CleanRequestPasses(t *testing.T) {
	svc, audit := newQualityHarness(models.SubscriptionDecision{Allowed: true}, nil)
	c := requestContext(http.MethodPost, "/v1/policies?category=hygiene", `{"title":"x"}`, nil)

	handlerRan := false
	err := svc.BoundaryScanMiddleware()(func(c echo.Context) error {
		handlerRan = true
		return nil
	})(c)

	require.NoError(t, err)
	assert.True(t, handlerRan)
	assert.Empty(t, audit.violations)
}

func TestBoundaryScan_BodyRemainsReadable(t *testing.T) {
	svc, _ := newQualityHarness(models.SubscriptionDecision{Allowed: true}, nil)
	c := requestContext(http.MethodPost, "/v1/policies", `{"title":"x"}`, nil)

	var got struct {
		Title string `json:"title"`
	}
	err := svc.BoundaryScanMiddleware()(func(c echo.Context) error {
		return c.Bind(&got)
	})(c)

	require.NoError(t, err)
	assert.Equal(t, "x", got.Title)
}

func TestRunQualityGate_AllChecksPass(t *testing.T) {
	routes := []RouteSpec{
		{Method: http.MethodGet, Path: "/health", Public: true},
		{Method: http.MethodPost, Path: "/v1/policies", RequiredPermission: "policies.write"},
		{Method: http.MethodGet, Path: "/v1/owner/tenants", OwnerScoped: true},
	}
	svc, _ := newQualityHarness(models.SubscriptionDecision{Allowed: true}, routes)
	auth := &models.AuthContext{UserID: "u1", TenantKey: "acme", Role: models.RoleStaff}
	c := requestContext(http.MethodGet, "/v1/policies", "", auth)

	report := svc.RunQualityGate(c)

	assert.True(t, report.Passed)
	assert.Empty(t, report.RouteScan)
	for _, probe := range report.CrossTenantTests {
		assert.True(t, probe.Passed, probe.Name)
	}
}

func TestRunQualityGate_SubscriptionProbeFails(t *testing.T) {
	svc, _ := newQualityHarness(models.SubscriptionDecision{Allowed: false, Reason: models.ReasonBlocked}, nil)
	auth := &models.AuthContext{UserID: "u1", TenantKey: "acme", Role: models.RoleStaff}
	c := requestContext(http.MethodGet, "/v1/policies", "", auth)

	report := svc.RunQualityGate(c)

	assert.False(t, report.Passed)
	found := false
	for _, r := range report.Results {
		if r.Name == "subscription_probe" {
			found = true
			assert.False(t, r.Passed)
		}
	}
	assert.True(t, found)
}

func TestRunQualityGate_OwnerOutsideNamespaceFlagged(t *testing.T) {
	svc, audit := newQualityHarness(models.SubscriptionDecision{Allowed: true}, nil)
	auth := &models.AuthContext{UserID: "u1", Role: models.RoleOwner}
	c := requestContext(http.MethodGet, "/v1/policies", "", auth)

	report := svc.RunQualityGate(c)

	assert.False(t, report.Passed)
	assert.Contains(t, audit.violations, models.EventOwnerSeparationViolation)
}

func TestRunQualityGate_OwnerInsideNamespacePasses(t *testing.T) {
	svc, _ := newQualityHarness(models.SubscriptionDecision{Allowed: true}, nil)
	auth := &models.AuthContext{UserID: "u1", Role: models.RoleOwner}
	c := requestContext(http.MethodGet, "/v1/owner/tenants", "", auth)

	report := svc.RunQualityGate(c)

	for _, r := range report.Results {
		if r.Name == "owner_separation_probe" {
			assert.True(t, r.Passed)
		}
	}
}

func TestScanRoutes(t *testing.T) {
	findings := ScanRoutes([]RouteSpec{
		{Method: http.MethodPost, Path: "/v1/things"},                          // mutating, no permission
		{Method: http.MethodGet, Path: "/v1/owner/tenants"},                    // owner namespace, not owner-scoped
		{Method: http.MethodGet, Path: "/v1/things", OwnerScoped: true},        // owner-scoped outside namespace
		{Method: http.MethodDelete, Path: "/v1/purge", Public: true},           // public mutating
		{Method: http.MethodGet, Path: "/health", Public: true},                // fine
		{Method: http.MethodPut, Path: "/v1/x", RequiredPermission: "x.write"}, // fine
	})

	problems := make(map[string]bool)
	for _, f := range findings {
		problems[f.Method+" "+f.Path] = true
	}
	assert.Len(t, findings, 4)
	assert.True(t, problems["POST /v1/things"])
	assert.True(t, problems["GET /v1/owner/tenants"])
	assert.True(t, problems["GET /v1/things"])
	assert.True(t, problems["DELETE /v1/purge"])
}

func TestRunOfflineChecks_CrossTenantProbesDoNotPolluteAuditTrail(t *testing.T) {
	svc, audit := newQualityHarness(models.SubscriptionDecision{Allowed: true}, nil)

	report := svc.RunOfflineChecks()

	assert.True(t, report.Passed)
	assert.Len(t, report.CrossTenantTests, 3)
	assert.Empty(t, audit.violations, "synthetic probes must not become audit events")
}
