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

// ActivityRepository is the append-only audit sink.
type ActivityRepository interface {
	Append(ctx context.Context, activity models.Activity) error
	List(ctx context.Context, storeID primitive.ObjectID, limit int64) ([]models.Activity, error)
}

type activityRepository struct {
	coll *mongo.Collection
}

// NewActivityRepository builds the MongoDB-backed activity repository.
func NewActivityRepository(client *Client) ActivityRepository {
	return &activityRepository{coll: client.Database().Collection(collActivities)}
}

func (r *activityRepository) Append(ctx context.Context, activity models.Activity) error {
	activity.ID = primitive.NewObjectID()
	if activity.At.IsZero() {
		activity.At = time.Now().UTC()
	}

	if _, err := r.coll.InsertOne(ctx, activity); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r *activityRepository) List(ctx context.Context, storeID primitive.ObjectID, limit int64) ([]models.Activity, error) {
	if limit <= 0 {
		limit = 100
	}

	cursor, err := r.coll.Find(ctx, bson.M{"store_id": storeID},
		options.Find().SetSort(bson.D{{Key: "at", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("find activities: %w", err)
	}

	var activities []models.Activity
	if err := cursor.All(ctx, &activities); err != nil {
		return nil, fmt.Errorf("decode activities: %w", err)
	}
	return activities, nil
}
