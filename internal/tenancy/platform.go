package tenancy

import (
	"context"
	"fmt"

	"hospitalops/internal/database"
	"hospitalops/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotPlatformRole is returned when a non-platform role attempts to
// construct a cross-tenant collection wrapper.
var ErrNotPlatformRole = fmt.Errorf("platform collection access requires a platform role")

// PlatformCollection is an unfiltered view over a platform-level collection.
// Only the small set of genuinely cross-tenant collections (tenant registry,
// contracts) is reached this way, and only by platform roles.
type PlatformCollection struct {
	coll  database.Collection
	role  models.Role
	label string
}

// NewPlatformCollection gates cross-tenant access on the caller role. It
// fails before any store access when the role is not in the platform
// allow-list.
func NewPlatformCollection(coll database.Collection, role models.Role, label string) (*PlatformCollection, error) {
	if !role.IsPlatformRole() {
		return nil, fmt.Errorf("%w: role %q, collection %q", ErrNotPlatformRole, role, coll.Name())
	}
	logrus.WithFields(logrus.Fields{
		"component":  "platform_collection",
		"role":       role,
		"collection": coll.Name(),
		"label":      label,
	}).Debug("platform collection opened")
	return &PlatformCollection{coll: coll, role: role, label: label}, nil
}

func (p *PlatformCollection) Name() string {
	return p.coll.Name()
}

func (p *PlatformCollection) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	return p.coll.Find(ctx, filter, opts...)
}

func (p *PlatformCollection) FindOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) *mongo.SingleResult {
	return p.coll.FindOne(ctx, filter, opts...)
}

func (p *PlatformCollection) CountDocuments(ctx context.Context, filter bson.M, opts ...*options.CountOptions) (int64, error) {
	return p.coll.CountDocuments(ctx, filter, opts...)
}

func (p *PlatformCollection) Aggregate(ctx context.Context, pipeline []bson.M, opts ...*options.AggregateOptions) (*mongo.Cursor, error) {
	return p.coll.Aggregate(ctx, pipeline, opts...)
}

func (p *PlatformCollection) UpdateOne(ctx context.Context, filter bson.M, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return p.coll.UpdateOne(ctx, filter, update, opts...)
}

func (p *PlatformCollection) UpdateMany(ctx context.Context, filter bson.M, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return p.coll.UpdateMany(ctx, filter, update, opts...)
}

func (p *PlatformCollection) DeleteOne(ctx context.Context, filter bson.M, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return p.coll.DeleteOne(ctx, filter, opts...)
}

func (p *PlatformCollection) DeleteMany(ctx context.Context, filter bson.M, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return p.coll.DeleteMany(ctx, filter, opts...)
}

func (p *PlatformCollection) InsertOne(ctx context.Context, doc bson.M, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	return p.coll.InsertOne(ctx, doc, opts...)
}

func (p *PlatformCollection) InsertMany(ctx context.Context, docs []bson.M, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	asAny := make([]interface{}, 0, len(docs))
	for _, doc := range docs {
		asAny = append(asAny, doc)
	}
	return p.coll.InsertMany(ctx, asAny, opts...)
}
