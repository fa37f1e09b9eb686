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

	"github.com/glosspoint/nailstock/internal/domain/models"
)

// StatRepository maintains the monthly per-service-type rollups.
type StatRepository interface {
	Find(ctx context.Context, serviceTypeID primitive.ObjectID, year, month int) (models.MonthlyServiceStat, bool, error)
	Insert(ctx context.Context, stat models.MonthlyServiceStat) (models.MonthlyServiceStat, error)
	Replace(ctx context.Context, stat models.MonthlyServiceStat) error
	FindByServiceType(ctx context.Context, serviceTypeID primitive.ObjectID) ([]models.MonthlyServiceStat, error)
	FindByStoreMonth(ctx context.Context, storeID primitive.ObjectID, year, month int) ([]models.MonthlyServiceStat, error)
	FindByMonth(ctx context.Context, year, month int) ([]models.MonthlyServiceStat, error)
}

type statRepository struct {
	coll *mongo.Collection
}

// NewStatRepository builds the MongoDB-backed stat repository.
func NewStatRepository(client *Client) StatRepository {
	return &statRepository{coll: client.Database().Collection(collMonthlyStats)}
}

func (r *statRepository) Find(ctx context.Context, serviceTypeID primitive.ObjectID, year, month int) (models.MonthlyServiceStat, bool, error) {
	var stat models.MonthlyServiceStat
	err := r.coll.FindOne(ctx, bson.M{
		"service_type_id": serviceTypeID,
		"year":            year,
		"month":           month,
	}).Decode(&stat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.MonthlyServiceStat{}, false, nil
	}
	if err != nil {
		return models.MonthlyServiceStat{}, false, fmt.Errorf("find monthly stat: %w", err)
	}
	return stat, true, nil
}

func (r *statRepository) Insert(ctx context.Context, stat models.MonthlyServiceStat) (models.MonthlyServiceStat, error) {
	stat.ID = primitive.NewObjectID()
	stat.UpdatedAt = time.Now().UTC()

	if _, err := r.coll.InsertOne(ctx, stat); err != nil {
		return models.MonthlyServiceStat{}, fmt.Errorf("insert monthly stat: %w", err)
	}
	return stat, nil
}

func (r *statRepository) Replace(ctx context.Context, stat models.MonthlyServiceStat) error {
	stat.UpdatedAt = time.Now().UTC()

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": stat.ID}, stat)
	if err != nil {
		return fmt.Errorf("replace monthly stat: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("monthly stat %s vanished during update", stat.ID.Hex())
	}
	return nil
}

func (r *statRepository) FindByServiceType(ctx context.Context, serviceTypeID primitive.ObjectID) ([]models.MonthlyServiceStat, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"service_type_id": serviceTypeID},
		options.Find().SetSort(bson.D{{Key: "year", Value: 1}, {Key: "month", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find stats by service type: %w", err)
	}

	var stats []models.MonthlyServiceStat
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return stats, nil
}

// FindByMonth returns every store's rollups for one month. Used by the
// monthly export job.
func (r *statRepository) FindByMonth(ctx context.Context, year, month int) ([]models.MonthlyServiceStat, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"year": year, "month": month},
		options.Find().SetSort(bson.D{{Key: "store_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find stats by month: %w", err)
	}

	var stats []models.MonthlyServiceStat
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return stats, nil
}

func (r *statRepository) FindByStoreMonth(ctx context.Context, storeID primitive.ObjectID, year, month int) ([]models.MonthlyServiceStat, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"store_id": storeID, "year": year, "month": month})
	if err != nil {
		return nil, fmt.Errorf("find stats by store month: %w", err)
	}

	var stats []models.MonthlyServiceStat
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return stats, nil
}
