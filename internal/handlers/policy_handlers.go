package handlers

import (
	"errors"
	"net/http"
	"time"

	"hospitalops/internal/common"
	"hospitalops/internal/tenancy"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const policiesCollection = "policies"

// PolicyHandlers manages compliance policy documents. All data access goes
// through the tenant-scoped wrapper; the handlers never see another tenant's
// documents even with a crafted id.
type PolicyHandlers struct {
	store tenancy.Store
}

func NewPolicyHandlers(store tenancy.Store) *PolicyHandlers {
	return &PolicyHandlers{store: store}
}

func (h *PolicyHandlers) collection(c echo.Context) (*tenancy.TenantCollection, error) {
	ctx := c.Request().Context()
	tenantKey, ok := common.GetTenantKeyFromContext(ctx)
	if !ok || tenantKey == "" {
		return nil, echo.NewHTTPError(http.StatusForbidden, "No tenant-bound session")
	}
	coll, err := h.store.ScopedCollection(ctx, policiesCollection, tenantKey, "policy-handlers")
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to open tenant store")
	}
	return coll, nil
}

// PolicyRequest is the create/update payload.
type PolicyRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Content  string `json:"content"`
}

func (h *PolicyHandlers) ListPolicies(c echo.Context) error {
	coll, err := h.collection(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	filter := bson.M{}
	if category := c.QueryParam("category"); category != "" {
		filter["category"] = category
	}

	cursor, err := coll.Find(ctx, filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list policies")
	}
	var policies []bson.M
	if err := cursor.All(ctx, &policies); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to read policies")
	}
	if policies == nil {
		policies = []bson.M{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"policies": policies})
}

func (h *PolicyHandlers) GetPolicy(c echo.Context) error {
	coll, err := h.collection(c)
	if err != nil {
		return err
	}

	var policy bson.M
	err = coll.FindOne(c.Request().Context(), bson.M{"_id": c.Param("id")}).Decode(&policy)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return echo.NewHTTPError(http.StatusNotFound, "Policy not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get policy")
	}
	return c.JSON(http.StatusOK, policy)
}

func (h *PolicyHandlers) CreatePolicy(c echo.Context) error {
	var req PolicyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Title == "" || req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Title and content are required")
	}

	coll, err := h.collection(c)
	if err != nil {
		return err
	}

	now := time.Now()
	doc := bson.M{
		"_id":       uuid.NewString(),
		"title":     req.Title,
		"category":  req.Category,
		"content":   req.Content,
		"createdAt": now,
		"updatedAt": now,
	}
	if _, err := coll.InsertOne(c.Request().Context(), doc); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create policy")
	}
	return c.JSON(http.StatusCreated, doc)
}

func (h *PolicyHandlers) UpdatePolicy(c echo.Context) error {
	var req PolicyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	coll, err := h.collection(c)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{
		"title":     req.Title,
		"category":  req.Category,
		"content":   req.Content,
		"updatedAt": time.Now(),
	}}
	result, err := coll.UpdateOne(c.Request().Context(), bson.M{"_id": c.Param("id")}, update)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update policy")
	}
	if result.MatchedCount == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "Policy not found")
	}
	return c.JSON(http.StatusOK, map[string]string{"id": c.Param("id")})
}

func (h *PolicyHandlers) DeletePolicy(c echo.Context) error {
	coll, err := h.collection(c)
	if err != nil {
		return err
	}

	result, err := coll.DeleteOne(c.Request().Context(), bson.M{"_id": c.Param("id")})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete policy")
	}
	if result.DeletedCount == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "Policy not found")
	}
	return c.NoContent(http.StatusNoContent)
}
