package tenancy

import (
	"context"
	"errors"
	"fmt"

	"hospitalops/internal/database"
	"hospitalops/internal/models"
	"hospitalops/internal/repositories"
)

// ErrTenantNotFound is returned when the tenant key has no active registry
// record. This is the only place a missing or inactive tenant is detected; a
// resolution failure is always a deny, never a fall-through to a default
// tenant.
var ErrTenantNotFound = errors.New("tenant not found or inactive")

// ResolvedTenant is the registry view of one tenant: where its data lives and
// what it is entitled to.
type ResolvedTenant struct {
	TenantKey    string
	DBName       string
	Status       string
	Entitlements map[models.PlatformKey]bool
	MaxUsers     int
}

// Resolver maps opaque tenant keys to concrete databases and metadata.
type Resolver interface {
	Resolve(ctx context.Context, tenantKey string) (*ResolvedTenant, error)
	// OpenDatabase resolves the tenant and returns a live handle to its
	// database. Resolution always runs before any tenant connection is opened.
	OpenDatabase(ctx context.Context, tenantKey string) (database.Database, error)
}

type resolver struct {
	registry repositories.TenantRegistryRepository
	cache    *database.ConnectionCache
}

// NewResolver builds a resolver over the platform registry and the shared
// connection cache.
func NewResolver(registry repositories.TenantRegistryRepository, cache *database.ConnectionCache) Resolver {
	return &resolver{registry: registry, cache: cache}
}

func (r *resolver) Resolve(ctx context.Context, tenantKey string) (*ResolvedTenant, error) {
	if tenantKey == "" {
		return nil, ErrTenantNotFound
	}

	tenant, err := r.registry.GetByKey(ctx, tenantKey)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("registry lookup for %q: %w", tenantKey, err)
	}
	if tenant.Status != models.TenantStatusActive {
		return nil, ErrTenantNotFound
	}

	dbName, err := ResolveDBName(tenant.TenantKey, tenant.DBName)
	if err != nil {
		// Naming violations abort; a mis-derived name must never be used.
		return nil, err
	}

	return &ResolvedTenant{
		TenantKey:    tenant.TenantKey,
		DBName:       dbName,
		Status:       tenant.Status,
		Entitlements: tenant.Entitlements,
		MaxUsers:     tenant.MaxUsers,
	}, nil
}

func (r *resolver) OpenDatabase(ctx context.Context, tenantKey string) (database.Database, error) {
	resolved, err := r.Resolve(ctx, tenantKey)
	if err != nil {
		return nil, err
	}
	handle, err := r.cache.Get(ctx, resolved.DBName)
	if err != nil {
		return nil, err
	}
	return handle.Database(), nil
}
