package tenancy

import (
	"context"
	"errors"
	"fmt"

	"hospitalops/internal/database"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TenantFilterField is the document field every tenant-scoped operation is
// constrained by. Client-supplied values for this field are always
// overwritten, never trusted.
const TenantFilterField = "tenantId"

// reservedPlatformKey must never reach a tenant-scoped wrapper; platform
// access goes through PlatformCollection.
const reservedPlatformKey = "platform"

// ErrMissingTenantKey is returned when a wrapper would be constructed in an
// unscoped state. A wrapper must never exist without a tenant binding.
var ErrMissingTenantKey = errors.New("tenant key is required for scoped access")

// EscapeHatchRecorder receives an auditable event each time raw, unscoped
// collection access is handed out.
type EscapeHatchRecorder interface {
	RecordEscapeHatch(ctx context.Context, tenantKey, collection, label string)
}

// TenantCollection is a tenant-bound view over one data collection. Every
// read filter is merged with the bound tenant key and every inserted document
// is stamped with it. Instances are built per request and never cached.
type TenantCollection struct {
	coll      database.Collection
	tenantKey string
	label     string
	recorder  EscapeHatchRecorder
	log       *logrus.Entry
}

// NewTenantCollection binds a raw collection handle to one tenant. The label
// names the calling route for logs and audit events. Construction fails fast
// on an empty or reserved tenant key so an unscoped wrapper cannot exist.
func NewTenantCollection(coll database.Collection, tenantKey, label string, recorder EscapeHatchRecorder) (*TenantCollection, error) {
	if tenantKey == "" {
		return nil, ErrMissingTenantKey
	}
	if tenantKey == reservedPlatformKey {
		return nil, fmt.Errorf("tenant key %q is reserved; use a platform collection", reservedPlatformKey)
	}
	return &TenantCollection{
		coll:      coll,
		tenantKey: tenantKey,
		label:     label,
		recorder:  recorder,
		log: logrus.WithFields(logrus.Fields{
			"component": "tenant_collection",
			"tenant":    tenantKey,
			"label":     label,
		}),
	}, nil
}

// TenantKey returns the bound tenant key.
func (t *TenantCollection) TenantKey() string {
	return t.tenantKey
}

// Name returns the underlying collection name.
func (t *TenantCollection) Name() string {
	return t.coll.Name()
}

// scopedFilter merges the tenant binding into a caller filter. The caller's
// own tenantId value, if any, is overwritten.
func (t *TenantCollection) scopedFilter(filter bson.M) bson.M {
	merged := bson.M{}
	for k, v := range filter {
		merged[k] = v
	}
	merged[TenantFilterField] = t.tenantKey
	return merged
}

// stamp returns a copy of the document with the tenant key set.
func (t *TenantCollection) stamp(doc bson.M) bson.M {
	stamped := bson.M{}
	for k, v := range doc {
		stamped[k] = v
	}
	stamped[TenantFilterField] = t.tenantKey
	return stamped
}

func (t *TenantCollection) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	return t.coll.Find(ctx, t.scopedFilter(filter), opts...)
}

func (t *TenantCollection) FindOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) *mongo.SingleResult {
	return t.coll.FindOne(ctx, t.scopedFilter(filter), opts...)
}

func (t *TenantCollection) CountDocuments(ctx context.Context, filter bson.M, opts ...*options.CountOptions) (int64, error) {
	return t.coll.CountDocuments(ctx, t.scopedFilter(filter), opts...)
}

// Aggregate injects the tenant constraint as the pipeline's first stage. An
// existing leading $match is merged into; otherwise a new match stage is
// prepended.
func (t *TenantCollection) Aggregate(ctx context.Context, pipeline []bson.M, opts ...*options.AggregateOptions) (*mongo.Cursor, error) {
	scoped := t.scopedPipeline(pipeline)
	return t.coll.Aggregate(ctx, scoped, opts...)
}

func (t *TenantCollection) scopedPipeline(pipeline []bson.M) []bson.M {
	if len(pipeline) > 0 {
		if match, ok := pipeline[0]["$match"].(bson.M); ok {
			mergedMatch := bson.M{}
			for k, v := range match {
				mergedMatch[k] = v
			}
			mergedMatch[TenantFilterField] = t.tenantKey
			scoped := make([]bson.M, len(pipeline))
			copy(scoped, pipeline)
			scoped[0] = bson.M{"$match": mergedMatch}
			return scoped
		}
	}
	scoped := make([]bson.M, 0, len(pipeline)+1)
	scoped = append(scoped, bson.M{"$match": bson.M{TenantFilterField: t.tenantKey}})
	return append(scoped, pipeline...)
}

func (t *TenantCollection) UpdateOne(ctx context.Context, filter bson.M, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return t.coll.UpdateOne(ctx, t.scopedFilter(filter), update, opts...)
}

func (t *TenantCollection) UpdateMany(ctx context.Context, filter bson.M, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return t.coll.UpdateMany(ctx, t.scopedFilter(filter), update, opts...)
}

func (t *TenantCollection) DeleteOne(ctx context.Context, filter bson.M, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return t.coll.DeleteOne(ctx, t.scopedFilter(filter), opts...)
}

func (t *TenantCollection) DeleteMany(ctx context.Context, filter bson.M, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return t.coll.DeleteMany(ctx, t.scopedFilter(filter), opts...)
}

func (t *TenantCollection) InsertOne(ctx context.Context, doc bson.M, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	return t.coll.InsertOne(ctx, t.stamp(doc), opts...)
}

func (t *TenantCollection) InsertMany(ctx context.Context, docs []bson.M, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	stamped := make([]interface{}, 0, len(docs))
	for _, doc := range docs {
		stamped = append(stamped, t.stamp(doc))
	}
	return t.coll.InsertMany(ctx, stamped, opts...)
}

// Raw hands out the unscoped collection for bulk-maintenance work. Every use
// bypasses the isolation guarantee, so every use is logged and recorded as an
// audit event at call time.
func (t *TenantCollection) Raw(ctx context.Context) database.Collection {
	t.log.Warn("raw collection access: tenant isolation bypassed")
	if t.recorder != nil {
		t.recorder.RecordEscapeHatch(ctx, t.tenantKey, t.coll.Name(), t.label)
	}
	return t.coll
}
