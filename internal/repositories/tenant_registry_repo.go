package repositories

import (
	"context"
	"errors"
	"time"

	"hospitalops/internal/database"
	"hospitalops/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a platform-registry lookup matches nothing.
var ErrNotFound = errors.New("record not found")

// TenantRegistryRepository stores tenant records in the shared platform
// database. The registry itself is not tenant-scoped.
type TenantRegistryRepository interface {
	GetByKey(ctx context.Context, tenantKey string) (*models.Tenant, error)
	Create(ctx context.Context, tenant *models.Tenant) error
	Update(ctx context.Context, tenant *models.Tenant) error
	UpdateStatus(ctx context.Context, tenantKey, status string) error
	List(ctx context.Context, limit, offset int) ([]*models.Tenant, error)
}

type tenantRegistryRepo struct {
	coll database.Collection
}

// NewTenantRegistryRepo builds a registry over the platform "tenants"
// collection.
func NewTenantRegistryRepo(platformDB database.Database) TenantRegistryRepository {
	return &tenantRegistryRepo{coll: platformDB.Collection("tenants")}
}

func (r *tenantRegistryRepo) GetByKey(ctx context.Context, tenantKey string) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	err := r.coll.FindOne(ctx, bson.M{"tenantId": tenantKey}).Decode(tenant)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

func (r *tenantRegistryRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	now := time.Now().UTC()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now
	_, err := r.coll.InsertOne(ctx, tenant)
	return err
}

func (r *tenantRegistryRepo) Update(ctx context.Context, tenant *models.Tenant) error {
	tenant.UpdatedAt = time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"tenantId": tenant.TenantKey},
		bson.M{"$set": bson.M{
			"name":         tenant.Name,
			"dbName":       tenant.DBName,
			"status":       tenant.Status,
			"entitlements": tenant.Entitlements,
			"maxUsers":     tenant.MaxUsers,
			"updatedAt":    tenant.UpdatedAt,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *tenantRegistryRepo) UpdateStatus(ctx context.Context, tenantKey, status string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"tenantId": tenantKey},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *tenantRegistryRepo) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tenants []*models.Tenant
	if err := cursor.All(ctx, &tenants); err != nil {
		return nil, err
	}
	return tenants, nil
}
