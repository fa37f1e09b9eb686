package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/glosspoint/nailstock/internal/domain/models"
)

// UsageRepository persists recorded usage events.
type UsageRepository interface {
	Create(ctx context.Context, usage models.Usage) (models.Usage, error)
	FindByStore(ctx context.Context, storeID primitive.ObjectID, limit int64) ([]models.Usage, error)
	CountSince(ctx context.Context, storeID primitive.ObjectID, since time.Time) (int64, error)
	SumByProductSince(ctx context.Context, storeID primitive.ObjectID, since time.Time) (map[primitive.ObjectID]float64, error)
}

type usageRepository struct {
	coll *mongo.Collection
}

// NewUsageRepository builds the MongoDB-backed usage repository.
func NewUsageRepository(client *Client) UsageRepository {
	return &usageRepository{coll: client.Database().Collection(collUsages)}
}

func (r *usageRepository) Create(ctx context.Context, usage models.Usage) (models.Usage, error) {
	usage.ID = primitive.NewObjectID()

	if _, err := r.coll.InsertOne(ctx, usage); err != nil {
		return models.Usage{}, fmt.Errorf("insert usage: %w", err)
	}
	return usage, nil
}

func (r *usageRepository) FindByStore(ctx context.Context, storeID primitive.ObjectID, limit int64) ([]models.Usage, error) {
	if limit <= 0 {
		limit = 50
	}

	cursor, err := r.coll.Find(ctx, bson.M{"store_id": storeID},
		options.Find().SetSort(bson.D{{Key: "used_at", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("find usages: %w", err)
	}

	var usages []models.Usage
	if err := cursor.All(ctx, &usages); err != nil {
		return nil, fmt.Errorf("decode usages: %w", err)
	}
	return usages, nil
}

// SumByProductSince groups usage amounts by primary product from the given
// instant onward. Used by reorder prediction.
func (r *usageRepository) SumByProductSince(ctx context.Context, storeID primitive.ObjectID, since time.Time) (map[primitive.ObjectID]float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"store_id": storeID,
			"used_at":  bson.M{"$gte": since},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$product_id",
			"total": bson.M{"$sum": "$amount"},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate usage by product: %w", err)
	}

	var rows []struct {
		ProductID primitive.ObjectID `bson:"_id"`
		Total     float64            `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode usage aggregation: %w", err)
	}

	totals := make(map[primitive.ObjectID]float64, len(rows))
	for _, row := range rows {
		totals[row.ProductID] = row.Total
	}
	return totals, nil
}

func (r *usageRepository) CountSince(ctx context.Context, storeID primitive.ObjectID, since time.Time) (int64, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{
		"store_id": storeID,
		"used_at":  bson.M{"$gte": since},
	})
	if err != nil {
		return 0, fmt.Errorf("count usages: %w", err)
	}
	return count, nil
}
