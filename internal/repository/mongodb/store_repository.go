package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/glosspoint/nailstock/internal/apperr"
	"github.com/glosspoint/nailstock/internal/domain/models"
)

// StoreRepository persists stores and answers tenant existence checks.
type StoreRepository interface {
	Create(ctx context.Context, store models.Store) (models.Store, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Store, error)
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type storeRepository struct {
	coll *mongo.Collection
}

// NewStoreRepository builds the MongoDB-backed store repository.
func NewStoreRepository(client *Client) StoreRepository {
	return &storeRepository{coll: client.Database().Collection(collStores)}
}

func (r *storeRepository) Create(ctx context.Context, store models.Store) (models.Store, error) {
	store.ID = primitive.NewObjectID()
	store.CreatedAt = time.Now().UTC()

	if _, err := r.coll.InsertOne(ctx, store); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Store{}, fmt.Errorf("store code %s already registered: %w", store.Code, apperr.ErrConflict)
		}
		return models.Store{}, fmt.Errorf("insert store: %w", err)
	}
	return store, nil
}

func (r *storeRepository) FindByID(ctx context.Context, id primitive.ObjectID) (models.Store, error) {
	var store models.Store
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&store)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Store{}, fmt.Errorf("store %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	if err != nil {
		return models.Store{}, fmt.Errorf("find store: %w", err)
	}
	return store, nil
}

func (r *storeRepository) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("count stores: %w", err)
	}
	return count > 0, nil
}
