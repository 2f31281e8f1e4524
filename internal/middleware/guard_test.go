package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hospitalops/internal/common"
	"hospitalops/internal/models"
	"hospitalops/internal/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const testSecret = "guard-test-secret"

type stubSubscriptions struct {
	decision  models.SubscriptionDecision
	platforms map[models.PlatformKey]bool
	calls     int
}

func (s *stubSubscriptions) CheckSubscription(ctx context.Context, tenantKey string) (models.SubscriptionDecision, error) {
	s.calls++
	return s.decision, nil
}

func (s *stubSubscriptions) IsPlatformEnabled(ctx context.Context, tenantKey string, platform models.PlatformKey) (bool, error) {
	if !s.decision.Allowed {
		return false, nil
	}
	return s.platforms[platform], nil
}

func (s *stubSubscriptions) IsFeatureEnabled(ctx context.Context, tenantKey, featureKey string) (bool, error) {
	return s.decision.Allowed, nil
}

func (s *stubSubscriptions) CheckUserLimit(ctx context.Context, tenantKey string) (*services.QuotaStatus, error) {
	return &services.QuotaStatus{Allowed: true}, nil
}

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

func signToken(t *testing.T, claims SessionClaims) string {
	t.Helper()
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

type GuardTestSuite struct {
	suite.Suite
	subs         *stubSubscriptions
	audit        *recordingAudit
	guard        *Guard
	e            *echo.Echo
	handlerCalls int
}

func (suite *GuardTestSuite) SetupTest() {
	auth, err := NewAuthenticator(testSecret, "", nil)
	require.NoError(suite.T(), err)

	suite.subs = &stubSubscriptions{
		decision:  models.SubscriptionDecision{Allowed: true},
		platforms: map[models.PlatformKey]bool{models.PlatformCompliance: true},
	}
	suite.audit = &recordingAudit{}
	suite.guard = NewGuard(auth, suite.subs, suite.audit)
	suite.e = echo.New()
	suite.handlerCalls = 0
}

func (suite *GuardTestSuite) handler(c echo.Context) error {
	suite.handlerCalls++
	return c.NoContent(http.StatusOK)
}

func (suite *GuardTestSuite) do(method, path, token string, opts GuardOptions) error {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	c := suite.e.NewContext(req, httptest.NewRecorder())
	return suite.guard.WithGuard(suite.handler, opts)(c)
}

func (suite *GuardTestSuite) staffToken(permissions ...string) string {
	return signToken(suite.T(), SessionClaims{
		TenantKey:   "acme",
		Role:        string(models.RoleStaff),
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "user-1",
		},
	})
}

func (suite *GuardTestSuite) TestPublicRouteBypassesEverything() {
	err := suite.do(http.MethodGet, "/health", "", GuardOptions{Public: true})

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, suite.handlerCalls)
	assert.Equal(suite.T(), 0, suite.subs.calls)
}

func (suite *GuardTestSuite) TestMissingTokenNeverReachesLaterChecks() {
	err := suite.do(http.MethodGet, "/v1/policies", "", GuardOptions{RequiredPermission: "policies.read"})

	require.Error(suite.T(), err)
	assert.Equal(suite.T(), http.StatusUnauthorized, err.(*echo.HTTPError).Code)
	assert.Equal(suite.T(), 0, suite.handlerCalls)
	assert.Equal(suite.T(), 0, suite.subs.calls, "a failed authentication must short-circuit the chain")
}

func (suite *GuardTestSuite) TestGarbageTokenRejected() {
	err := suite.do(http.MethodGet, "/v1/policies", "not-a-jwt", GuardOptions{})

	require.Error(suite.T(), err)
	assert.Equal(suite.T(), http.StatusUnauthorized, err.(*echo.HTTPError).Code)
}

func (suite *GuardTestSuite) TestAuthenticatedRequestReachesHandler() {
	err := suite.do(http.MethodGet, "/v1/subscription", suite.staffToken(), GuardOptions{})

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, suite.handlerCalls)
	assert.Equal(suite.T(), 1, suite.subs.calls)
}

func (suite *GuardTestSuite) TestSubscriptionDenied403NamesReason() {
	suite.subs.decision = models.SubscriptionDecision{Allowed: false, Reason: models.ReasonBlocked}

	err := suite.do(http.MethodGet, "/v1/policies", suite.staffToken("policies.read"), GuardOptions{RequiredPermission: "policies.read"})

	require.Error(suite.T(), err)
	he := err.(*echo.HTTPError)
	assert.Equal(suite.T(), http.StatusForbidden, he.Code)
	assert.Contains(suite.T(), he.Message, "blocked")
	assert.Equal(suite.T(), 0, suite.handlerCalls)
	assert.Contains(suite.T(), suite.audit.violations, models.EventUnauthorizedAccess)
}

func (suite *GuardTestSuite) TestReadOnlyGraceBlocksMutations() {
	suite.subs.decision = models.SubscriptionDecision{Allowed: true, ReadOnly: true}

	err := suite.do(http.MethodPost, "/v1/policies", suite.staffToken("policies.write"), GuardOptions{RequiredPermission: "policies.write"})

	require.Error(suite.T(), err)
	he := err.(*echo.HTTPError)
	assert.Equal(suite.T(), http.StatusForbidden, he.Code)
	assert.Contains(suite.T(), he.Message, "read-only")
	assert.Equal(suite.T(), 0, suite.handlerCalls)
}

func (suite *GuardTestSuite) TestReadOnlyGraceAllowsReads() {
	suite.subs.decision = models.SubscriptionDecision{Allowed: true, ReadOnly: true}

	err := suite.do(http.MethodGet, "/v1/policies", suite.staffToken("policies.read"), GuardOptions{RequiredPermission: "policies.read"})

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, suite.handlerCalls)
}

func (suite *GuardTestSuite) TestMissingPlatform403NamesPlatform() {
	err := suite.do(http.MethodGet, "/v1/equipment", suite.staffToken(), GuardOptions{RequiredPlatform: models.PlatformEquipment})

	require.Error(suite.T(), err)
	he := err.(*echo.HTTPError)
	assert.Equal(suite.T(), http.StatusForbidden, he.Code)
	assert.Contains(suite.T(), he.Message, string(models.PlatformEquipment))
	assert.Equal(suite.T(), 0, suite.handlerCalls)
}

func (suite *GuardTestSuite) TestMissingPermission403NamesPermission() {
	// Caller holds policies.write, route demands policies.read.
	err := suite.do(http.MethodGet, "/v1/policies", suite.staffToken("policies.write"), GuardOptions{RequiredPermission: "policies.read"})

	require.Error(suite.T(), err)
	he := err.(*echo.HTTPError)
	assert.Equal(suite.T(), http.StatusForbidden, he.Code)
	assert.Contains(suite.T(), he.Message, "policies.read")
	assert.Equal(suite.T(), 0, suite.handlerCalls)
	assert.Contains(suite.T(), suite.audit.violations, models.EventPermissionViolation)
}

func (suite *GuardTestSuite) TestAdminBypassesPermissionCheck() {
	token := signToken(suite.T(), SessionClaims{
		TenantKey: "acme",
		Role:      string(models.RoleAdmin),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "admin-1",
		},
	})

	err := suite.do(http.MethodGet, "/v1/policies", token, GuardOptions{RequiredPermission: "policies.read"})

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, suite.handlerCalls)
}

func (suite *GuardTestSuite) TestOwnerScopedRejectsTenantRoles() {
	err := suite.do(http.MethodGet, "/v1/owner/tenants", suite.staffToken(), GuardOptions{OwnerScoped: true})

	require.Error(suite.T(), err)
	assert.Equal(suite.T(), http.StatusForbidden, err.(*echo.HTTPError).Code)
	assert.Equal(suite.T(), 0, suite.handlerCalls)
	assert.Contains(suite.T(), suite.audit.violations, models.EventOwnerSeparationViolation)
}

func (suite *GuardTestSuite) TestOwnerScopedSkipsTenantChecks() {
	token := signToken(suite.T(), SessionClaims{
		Role: string(models.RoleOwner),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "owner-1",
		},
	})

	err := suite.do(http.MethodGet, "/v1/owner/tenants", token, GuardOptions{OwnerScoped: true})

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, suite.handlerCalls)
	assert.Equal(suite.T(), 0, suite.subs.calls, "owner routes have no tenant subscription to check")
}

func (suite *GuardTestSuite) TestNonOwnerTokenWithoutTenantRejected() {
	token := signToken(suite.T(), SessionClaims{
		Role: string(models.RoleStaff),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "user-1",
		},
	})

	err := suite.do(http.MethodGet, "/v1/policies", token, GuardOptions{})

	require.Error(suite.T(), err)
	assert.Equal(suite.T(), http.StatusUnauthorized, err.(*echo.HTTPError).Code)
}

func (suite *GuardTestSuite) TestExpiredTokenRejected() {
	token := signToken(suite.T(), SessionClaims{
		TenantKey: "acme",
		Role:      string(models.RoleStaff),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	err := suite.do(http.MethodGet, "/v1/policies", token, GuardOptions{})

	require.Error(suite.T(), err)
	assert.Equal(suite.T(), http.StatusUnauthorized, err.(*echo.HTTPError).Code)
}

func (suite *GuardTestSuite) TestHandlerReceivesAuthContext() {
	var seen *models.AuthContext
	handler := func(c echo.Context) error {
		seen, _ = common.GetAuthContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/subscription", nil)
	req.Header.Set("Authorization", "Bearer "+suite.staffToken("policies.read"))
	c := suite.e.NewContext(req, httptest.NewRecorder())
	err := suite.guard.WithGuard(handler, GuardOptions{})(c)

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), seen)
	assert.Equal(suite.T(), "user-1", seen.UserID)
	assert.Equal(suite.T(), "acme", seen.TenantKey)
	assert.Equal(suite.T(), models.RoleStaff, seen.Role)
	assert.Equal(suite.T(), []string{"policies.read"}, seen.Permissions)
}

func TestGuardTestSuite(t *testing.T) {
	suite.Run(t, new(GuardTestSuite))
}
