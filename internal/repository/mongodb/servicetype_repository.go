package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/glosspoint/nailstock/internal/apperr"
	"github.com/glosspoint/nailstock/internal/domain/models"
)

// ServiceTypeRepository persists service type definitions.
type ServiceTypeRepository interface {
	Create(ctx context.Context, st models.ServiceType) (models.ServiceType, error)
	FindByID(ctx context.Context, storeID, id primitive.ObjectID) (models.ServiceType, error)
	FindByStore(ctx context.Context, storeID primitive.ObjectID) ([]models.ServiceType, error)
	Update(ctx context.Context, st models.ServiceType) error
}

type serviceTypeRepository struct {
	coll *mongo.Collection
}

// NewServiceTypeRepository builds the MongoDB-backed service type repository.
func NewServiceTypeRepository(client *Client) ServiceTypeRepository {
	return &serviceTypeRepository{coll: client.Database().Collection(collServiceTypes)}
}

func (r *serviceTypeRepository) Create(ctx context.Context, st models.ServiceType) (models.ServiceType, error) {
	now := time.Now().UTC()
	st.ID = primitive.NewObjectID()
	st.CreatedAt = now
	st.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, st); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ServiceType{}, fmt.Errorf("service type %q already exists in store: %w", st.Name, apperr.ErrConflict)
		}
		return models.ServiceType{}, fmt.Errorf("insert service type: %w", err)
	}
	return st, nil
}

func (r *serviceTypeRepository) FindByID(ctx context.Context, storeID, id primitive.ObjectID) (models.ServiceType, error) {
	var st models.ServiceType
	err := r.coll.FindOne(ctx, bson.M{"_id": id, "store_id": storeID}).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ServiceType{}, fmt.Errorf("service type %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	if err != nil {
		return models.ServiceType{}, fmt.Errorf("find service type: %w", err)
	}
	return st, nil
}

func (r *serviceTypeRepository) FindByStore(ctx context.Context, storeID primitive.ObjectID) ([]models.ServiceType, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"store_id": storeID},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find service types: %w", err)
	}

	var types []models.ServiceType
	if err := cursor.All(ctx, &types); err != nil {
		return nil, fmt.Errorf("decode service types: %w", err)
	}
	return types, nil
}

func (r *serviceTypeRepository) Update(ctx context.Context, st models.ServiceType) error {
	st.UpdatedAt = time.Now().UTC()

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": st.ID, "store_id": st.StoreID}, st)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("service type %q already exists in store: %w", st.Name, apperr.ErrConflict)
		}
		return fmt.Errorf("update service type: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("service type %s: %w", st.ID.Hex(), apperr.ErrNotFound)
	}
	return nil
}
