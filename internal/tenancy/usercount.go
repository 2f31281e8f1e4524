package tenancy

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

const usersCollection = "users"

// UserCounter counts provisioned users inside a tenant's own database, for
// max-user quota checks.
type UserCounter struct {
	resolver Resolver
}

func NewUserCounter(resolver Resolver) *UserCounter {
	return &UserCounter{resolver: resolver}
}

func (c *UserCounter) CountUsers(ctx context.Context, tenantKey string) (int, error) {
	db, err := c.resolver.OpenDatabase(ctx, tenantKey)
	if err != nil {
		return 0, err
	}
	n, err := db.Collection(usersCollection).CountDocuments(ctx, bson.M{TenantFilterField: tenantKey})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
