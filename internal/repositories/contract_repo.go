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

// ContractRepository stores subscription contracts in the shared platform
// database, one contract per tenant.
type ContractRepository interface {
	GetByTenantKey(ctx context.Context, tenantKey string) (*models.SubscriptionContract, error)
	Upsert(ctx context.Context, contract *models.SubscriptionContract) error
	List(ctx context.Context, limit, offset int) ([]*models.SubscriptionContract, error)
}

type contractRepo struct {
	coll database.Collection
}

// NewContractRepo builds a repository over the platform
// "subscription_contracts" collection.
func NewContractRepo(platformDB database.Database) ContractRepository {
	return &contractRepo{coll: platformDB.Collection("subscription_contracts")}
}

func (r *contractRepo) GetByTenantKey(ctx context.Context, tenantKey string) (*models.SubscriptionContract, error) {
	contract := &models.SubscriptionContract{}
	err := r.coll.FindOne(ctx, bson.M{"tenantId": tenantKey}).Decode(contract)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return contract, nil
}

func (r *contractRepo) Upsert(ctx context.Context, contract *models.SubscriptionContract) error {
	now := time.Now().UTC()
	contract.UpdatedAt = now
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"tenantId": contract.TenantKey},
		bson.M{
			"$set": bson.M{
				"status":             contract.Status,
				"enabledPlatforms":   contract.EnabledPlatforms,
				"enabledFeatures":    contract.EnabledFeatures,
				"startDate":          contract.StartDate,
				"endDate":            contract.EndDate,
				"gracePeriodEnabled": contract.GracePeriodEnabled,
				"graceEndDate":       contract.GraceEndDate,
				"quotas":             contract.Quotas,
				"updatedAt":          now,
			},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *contractRepo) List(ctx context.Context, limit, offset int) ([]*models.SubscriptionContract, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "tenantId", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var contracts []*models.SubscriptionContract
	if err := cursor.All(ctx, &contracts); err != nil {
		return nil, err
	}
	return contracts, nil
}
