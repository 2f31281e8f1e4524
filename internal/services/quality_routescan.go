package services

import (
	"fmt"
	"net/http"
	"strings"

	"hospitalops/internal/models"
)

// RouteSpec declares one registered route and its guard configuration. The
// registry mirrors what was actually wired so the static scan inspects real
// routes, not a parallel list that can drift.
type RouteSpec struct {
	Method             string
	Path               string
	Public             bool
	OwnerScoped        bool
	RequiredPlatform   models.PlatformKey
	RequiredPermission string
}

// RouteFinding is one static-scan problem.
type RouteFinding struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	Problem string `json:"problem"`
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// ScanRoutes walks the declared route registry and flags configurations that
// weaken the tenant or owner boundary.
func ScanRoutes(routes []RouteSpec) []RouteFinding {
	var findings []RouteFinding
	flag := func(r RouteSpec, format string, args ...interface{}) {
		findings = append(findings, RouteFinding{
			Method:  r.Method,
			Path:    r.Path,
			Problem: fmt.Sprintf(format, args...),
		})
	}

	for _, r := range routes {
		inOwnerNS := strings.HasPrefix(r.Path, ownerNamespace)

		if r.Public {
			if isMutating(r.Method) {
				flag(r, "public mutating route")
			}
			if inOwnerNS {
				flag(r, "public route inside %s", ownerNamespace)
			}
			continue
		}

		if inOwnerNS && !r.OwnerScoped {
			flag(r, "route inside %s is not owner-scoped", ownerNamespace)
		}
		if r.OwnerScoped && !inOwnerNS {
			flag(r, "owner-scoped route outside %s", ownerNamespace)
		}
		if r.OwnerScoped {
			continue
		}

		if isMutating(r.Method) && r.RequiredPermission == "" {
			flag(r, "mutating route without a required permission")
		}
	}
	return findings
}
