package tenancy

import (
	"context"

	"hospitalops/internal/database"
	"hospitalops/internal/models"
)

// Store is the boundary feature code uses to obtain collection access. It
// resolves tenants through the registry, pulls connections from the shared
// cache, and hands out wrappers that cannot be constructed unscoped.
type Store interface {
	// ScopedCollection returns a tenant-bound wrapper over the named
	// collection in the tenant's own database.
	ScopedCollection(ctx context.Context, collectionName, tenantKey, label string) (*TenantCollection, error)
	// PlatformCollection returns an unfiltered wrapper over a platform-level
	// collection. The caller role must be a platform role.
	PlatformCollection(ctx context.Context, collectionName string, role models.Role, label string) (*PlatformCollection, error)
}

type store struct {
	resolver       Resolver
	cache          *database.ConnectionCache
	platformDBName string
	recorder       EscapeHatchRecorder
}

// NewStore wires the tenant-access boundary. recorder may be nil in tests.
func NewStore(resolver Resolver, cache *database.ConnectionCache, platformDBName string, recorder EscapeHatchRecorder) Store {
	return &store{
		resolver:       resolver,
		cache:          cache,
		platformDBName: platformDBName,
		recorder:       recorder,
	}
}

func (s *store) ScopedCollection(ctx context.Context, collectionName, tenantKey, label string) (*TenantCollection, error) {
	if tenantKey == "" {
		return nil, ErrMissingTenantKey
	}
	db, err := s.resolver.OpenDatabase(ctx, tenantKey)
	if err != nil {
		return nil, err
	}
	return NewTenantCollection(db.Collection(collectionName), tenantKey, label, s.recorder)
}

func (s *store) PlatformCollection(ctx context.Context, collectionName string, role models.Role, label string) (*PlatformCollection, error) {
	// Role gate runs before any store access.
	if !role.IsPlatformRole() {
		return nil, ErrNotPlatformRole
	}
	handle, err := s.cache.Get(ctx, s.platformDBName)
	if err != nil {
		return nil, err
	}
	return NewPlatformCollection(handle.Database().Collection(collectionName), role, label)
}
