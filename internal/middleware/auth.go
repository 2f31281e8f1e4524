package middleware

import (
	"net/http"
	"strings"

	"hospitalops/internal/caching"
	"hospitalops/internal/models"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// SessionClaims is the validated session token payload. The tenant key
// travels only here, never in the query string, body, or any client-settable
// header.
type SessionClaims struct {
	TenantKey   string   `json:"tenantKey"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	SessionID   string   `json:"sid"`
	jwt.RegisteredClaims
}

// Authenticator validates session tokens and produces the per-request
// AuthContext. Verification uses either a shared HS256 secret or a JWKS
// endpoint.
type Authenticator struct {
	secret []byte
	jwks   *keyfunc.JWKS
	cache  caching.CacheService
	log    *logrus.Entry
}

// NewAuthenticator builds an authenticator. jwksURL wins over secret when
// both are configured. cache may be nil; revocation checks are then skipped.
func NewAuthenticator(secret, jwksURL string, cache caching.CacheService) (*Authenticator, error) {
	a := &Authenticator{
		cache: cache,
		log:   logrus.WithField("component", "auth"),
	}
	if jwksURL != "" {
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			return nil, err
		}
		a.jwks = jwks
		return a, nil
	}
	a.secret = []byte(secret)
	return a, nil
}

func (a *Authenticator) keyfunc(token *jwt.Token) (interface{}, error) {
	if a.jwks != nil {
		return a.jwks.Keyfunc(token)
	}
	return a.secret, nil
}

// Authenticate validates the bearer token and returns the resolved identity.
// Failures return a 401-class echo error with a generic message.
func (a *Authenticator) Authenticate(c echo.Context) (*models.AuthContext, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Invalid token format")
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, a.keyfunc)
	if err != nil || !token.Valid {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}

	userID, err := claims.GetSubject()
	if err != nil || userID == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Missing subject in token")
	}

	role := models.Role(claims.Role)
	if !role.Valid() {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unknown role")
	}

	// Owner sessions are global; every other session must be tenant-bound.
	if claims.TenantKey == "" && role != models.RoleOwner {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Token has no tenant binding")
	}

	if a.cache != nil && claims.SessionID != "" {
		revoked, err := a.cache.IsSessionRevoked(c.Request().Context(), claims.SessionID)
		if err != nil {
			// Fail open: a cache outage must not lock everyone out. The token
			// signature was already verified.
			a.log.WithError(err).Warn("session revocation check failed")
		} else if revoked {
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "Session revoked")
		}
	}

	return &models.AuthContext{
		UserID:      userID,
		TenantKey:   claims.TenantKey,
		Role:        role,
		Permissions: claims.Permissions,
	}, nil
}
