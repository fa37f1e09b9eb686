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

// ProductRepository persists products and their physical lots.
type ProductRepository interface {
	Create(ctx context.Context, product models.Product) (models.Product, error)
	FindByID(ctx context.Context, storeID, id primitive.ObjectID) (models.Product, error)
	FindByStore(ctx context.Context, storeID primitive.ObjectID) ([]models.Product, error)
	FindLowStock(ctx context.Context) ([]models.Product, error)
	ApplyCounters(ctx context.Context, id primitive.ObjectID, deltaTotal, deltaInUse, deltaLot int) error
	RecordUse(ctx context.Context, id primitive.ObjectID, at time.Time) error

	InsertLots(ctx context.Context, lots []models.ProductLot) error
	FindLot(ctx context.Context, id primitive.ObjectID) (models.ProductLot, error)
	FindInUseLots(ctx context.Context, productID primitive.ObjectID) ([]models.ProductLot, error)
	MarkLotInUse(ctx context.Context, id primitive.ObjectID, initialAmount float64, startedAt time.Time) error
	DecrementLotAmount(ctx context.Context, id primitive.ObjectID, amount float64) error
}

type productRepository struct {
	products *mongo.Collection
	lots     *mongo.Collection
}

// NewProductRepository builds the MongoDB-backed product repository.
func NewProductRepository(client *Client) ProductRepository {
	return &productRepository{
		products: client.Database().Collection(collProducts),
		lots:     client.Database().Collection(collProductLots),
	}
}

func (r *productRepository) Create(ctx context.Context, product models.Product) (models.Product, error) {
	now := time.Now().UTC()
	product.ID = primitive.NewObjectID()
	product.CreatedAt = now
	product.UpdatedAt = now

	if _, err := r.products.InsertOne(ctx, product); err != nil {
		return models.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return product, nil
}

func (r *productRepository) FindByID(ctx context.Context, storeID, id primitive.ObjectID) (models.Product, error) {
	var product models.Product
	err := r.products.FindOne(ctx, bson.M{"_id": id, "store_id": storeID}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Product{}, fmt.Errorf("product %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("find product: %w", err)
	}
	return product, nil
}

func (r *productRepository) FindByStore(ctx context.Context, storeID primitive.ObjectID) ([]models.Product, error) {
	cursor, err := r.products.Find(ctx, bson.M{"store_id": storeID},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

// FindLowStock returns every product, across stores, whose unused lot count
// has fallen to or below its alert threshold.
func (r *productRepository) FindLowStock(ctx context.Context) ([]models.Product, error) {
	filter := bson.M{
		"min_stock_alert": bson.M{"$gt": 0},
		"$expr":           bson.M{"$lte": bson.A{"$lot_quantity", "$min_stock_alert"}},
	}

	cursor, err := r.products.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find low stock products: %w", err)
	}

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode low stock products: %w", err)
	}
	return products, nil
}

func (r *productRepository) ApplyCounters(ctx context.Context, id primitive.ObjectID, deltaTotal, deltaInUse, deltaLot int) error {
	res, err := r.products.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{
			"total_quantity":  deltaTotal,
			"in_use_quantity": deltaInUse,
			"lot_quantity":    deltaLot,
		},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("update product counters: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("product %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	return nil
}

func (r *productRepository) RecordUse(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	res, err := r.products.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"usage_count": 1},
		"$set": bson.M{"last_used": at, "updated_at": at},
	})
	if err != nil {
		return fmt.Errorf("record product use: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("product %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	return nil
}

func (r *productRepository) InsertLots(ctx context.Context, lots []models.ProductLot) error {
	if len(lots) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(lots))
	now := time.Now().UTC()
	for i := range lots {
		if lots[i].ID.IsZero() {
			lots[i].ID = primitive.NewObjectID()
		}
		if lots[i].CreatedAt.IsZero() {
			lots[i].CreatedAt = now
		}
		docs = append(docs, lots[i])
	}

	if _, err := r.lots.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert lots: %w", err)
	}
	return nil
}

func (r *productRepository) FindLot(ctx context.Context, id primitive.ObjectID) (models.ProductLot, error) {
	var lot models.ProductLot
	err := r.lots.FindOne(ctx, bson.M{"_id": id}).Decode(&lot)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ProductLot{}, fmt.Errorf("lot %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	if err != nil {
		return models.ProductLot{}, fmt.Errorf("find lot: %w", err)
	}
	return lot, nil
}

// FindInUseLots returns open lots with quantity remaining, oldest-opened
// first. Depleted lots stay in-use but drop out of selection. Lot id breaks
// ties between lots opened at the same instant, keeping selection
// deterministic.
func (r *productRepository) FindInUseLots(ctx context.Context, productID primitive.ObjectID) ([]models.ProductLot, error) {
	cursor, err := r.lots.Find(ctx,
		bson.M{
			"product_id":     productID,
			"is_in_use":      true,
			"current_amount": bson.M{"$gt": 0},
		},
		options.Find().SetSort(bson.D{{Key: "started_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find in-use lots: %w", err)
	}

	var lots []models.ProductLot
	if err := cursor.All(ctx, &lots); err != nil {
		return nil, fmt.Errorf("decode lots: %w", err)
	}
	return lots, nil
}

// MarkLotInUse flips an unused lot to in-use. The filter only matches lots
// still unused, so a second call on the same lot reports Conflict.
func (r *productRepository) MarkLotInUse(ctx context.Context, id primitive.ObjectID, initialAmount float64, startedAt time.Time) error {
	res, err := r.lots.UpdateOne(ctx,
		bson.M{"_id": id, "is_in_use": false},
		bson.M{"$set": bson.M{
			"is_in_use":      true,
			"current_amount": initialAmount,
			"started_at":     startedAt,
		}})
	if err != nil {
		return fmt.Errorf("mark lot in use: %w", err)
	}
	if res.MatchedCount == 0 {
		count, countErr := r.lots.CountDocuments(ctx, bson.M{"_id": id})
		if countErr != nil {
			return fmt.Errorf("check lot: %w", countErr)
		}
		if count == 0 {
			return fmt.Errorf("lot %s: %w", id.Hex(), apperr.ErrNotFound)
		}
		return fmt.Errorf("lot %s already in use: %w", id.Hex(), apperr.ErrConflict)
	}
	return nil
}

// DecrementLotAmount subtracts amount from a lot's remaining quantity. The
// filter requires current_amount >= amount, so a concurrent decrement that
// would drive the lot negative fails instead of losing the update.
func (r *productRepository) DecrementLotAmount(ctx context.Context, id primitive.ObjectID, amount float64) error {
	res, err := r.lots.UpdateOne(ctx,
		bson.M{"_id": id, "is_in_use": true, "current_amount": bson.M{"$gte": amount}},
		bson.M{"$inc": bson.M{"current_amount": -amount}})
	if err != nil {
		return fmt.Errorf("decrement lot amount: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("lot %s cannot cover %.2f: %w", id.Hex(), amount, apperr.ErrInsufficientQuantity)
	}
	return nil
}
