// Package inventory owns product definitions and the physical lots backing
// them: registration, stock additions, lot state transitions and stock
// status reads.
package inventory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/glosspoint/nailstock/internal/apperr"
	"github.com/glosspoint/nailstock/internal/domain/models"
	"github.com/glosspoint/nailstock/internal/repository/mongodb"
)

// Service exposes product and lot registry operations.
type Service struct {
	tx         mongodb.TxRunner
	stores     mongodb.StoreRepository
	users      mongodb.UserRepository
	products   mongodb.ProductRepository
	activities mongodb.ActivityRepository
	logger     *zap.Logger
}

// NewService wires a new inventory service instance.
func NewService(tx mongodb.TxRunner, stores mongodb.StoreRepository, users mongodb.UserRepository, products mongodb.ProductRepository, activities mongodb.ActivityRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{tx: tx, stores: stores, users: users, products: products, activities: activities, logger: logger}
}

// CreateProductInput carries the fields needed to register a product.
type CreateProductInput struct {
	StoreID       primitive.ObjectID
	ActorID       primitive.ObjectID
	Brand         string
	Name          string
	Category      models.ProductCategory
	Price         float64
	Capacity      *float64
	CapacityUnit  string
	TotalQuantity int
	MinStockAlert int
}

// CreateProduct registers a product and spawns one unused lot per unit of
// initial quantity, so lot_quantity always mirrors the physical lot set.
func (s *Service) CreateProduct(ctx context.Context, in CreateProductInput) (models.Product, error) {
	if in.Name == "" {
		return models.Product{}, fmt.Errorf("product name is required: %w", apperr.ErrValidation)
	}
	if !in.Category.Valid() {
		return models.Product{}, fmt.Errorf("unknown category %q: %w", in.Category, apperr.ErrValidation)
	}
	if in.TotalQuantity < 0 {
		return models.Product{}, fmt.Errorf("total quantity must not be negative: %w", apperr.ErrValidation)
	}

	exists, err := s.stores.Exists(ctx, in.StoreID)
	if err != nil {
		return models.Product{}, err
	}
	if !exists {
		return models.Product{}, fmt.Errorf("store %s: %w", in.StoreID.Hex(), apperr.ErrNotFound)
	}

	var created models.Product
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		product := models.Product{
			StoreID:       in.StoreID,
			Brand:         in.Brand,
			Name:          in.Name,
			Category:      in.Category,
			Price:         in.Price,
			Capacity:      in.Capacity,
			CapacityUnit:  in.CapacityUnit,
			TotalQuantity: in.TotalQuantity,
			LotQuantity:   in.TotalQuantity,
			MinStockAlert: in.MinStockAlert,
		}

		created, err = s.products.Create(ctx, product)
		if err != nil {
			return err
		}

		lots := make([]models.ProductLot, 0, in.TotalQuantity)
		for i := 0; i < in.TotalQuantity; i++ {
			lots = append(lots, models.ProductLot{
				ProductID: created.ID,
				StoreID:   in.StoreID,
			})
		}
		if err := s.products.InsertLots(ctx, lots); err != nil {
			return err
		}

		return s.activities.Append(ctx, models.Activity{
			StoreID:  in.StoreID,
			ActorID:  in.ActorID,
			Category: models.ActivityInventory,
			Action:   "product.created",
			Metadata: map[string]string{
				"product_id": created.ID.Hex(),
				"name":       created.Name,
				"quantity":   strconv.Itoa(in.TotalQuantity),
			},
		})
	})
	if err != nil {
		return models.Product{}, err
	}

	s.logger.Info("product created",
		zap.String("store_id", in.StoreID.Hex()),
		zap.String("product_id", created.ID.Hex()),
		zap.Int("lots", in.TotalQuantity))
	return created, nil
}

// AddStockInput describes a stock delivery.
type AddStockInput struct {
	StoreID       primitive.ObjectID
	ProductID     primitive.ObjectID
	ActorID       primitive.ObjectID
	Quantity      int
	StartInUse    bool
	InitialAmount *float64
}

// AddStock creates the delivered lots and bumps the product counters in one
// atomic unit, so the counters never diverge from the lot set. When
// StartInUse is set, the new lots open immediately with InitialAmount (or
// the product capacity) remaining.
func (s *Service) AddStock(ctx context.Context, in AddStockInput) error {
	if in.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive: %w", apperr.ErrValidation)
	}

	if exists, err := s.users.Exists(ctx, in.ActorID); err != nil {
		return err
	} else if !exists {
		return fmt.Errorf("user %s: %w", in.ActorID.Hex(), apperr.ErrNotFound)
	}

	product, err := s.products.FindByID(ctx, in.StoreID, in.ProductID)
	if err != nil {
		return err
	}

	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()
		lots := make([]models.ProductLot, 0, in.Quantity)
		for i := 0; i < in.Quantity; i++ {
			lot := models.ProductLot{
				ProductID: product.ID,
				StoreID:   in.StoreID,
			}
			if in.StartInUse {
				amount := initialLotAmount(product, in.InitialAmount)
				startedAt := now
				lot.IsInUse = true
				lot.CurrentAmount = &amount
				lot.StartedAt = &startedAt
			}
			lots = append(lots, lot)
		}
		if err := s.products.InsertLots(ctx, lots); err != nil {
			return err
		}

		deltaInUse, deltaLot := 0, in.Quantity
		if in.StartInUse {
			deltaInUse, deltaLot = in.Quantity, 0
		}
		if err := s.products.ApplyCounters(ctx, product.ID, in.Quantity, deltaInUse, deltaLot); err != nil {
			return err
		}

		return s.activities.Append(ctx, models.Activity{
			StoreID:  in.StoreID,
			ActorID:  in.ActorID,
			Category: models.ActivityInventory,
			Action:   "stock.added",
			Metadata: map[string]string{
				"product_id":   product.ID.Hex(),
				"quantity":     strconv.Itoa(in.Quantity),
				"start_in_use": strconv.FormatBool(in.StartInUse),
			},
		})
	})
}

// StartUsingLot opens an unused lot: it becomes in-use with the product
// capacity remaining, and the product counters shift one unit from unused to
// in-use. Opening an already open lot fails with Conflict and leaves the
// counters untouched.
func (s *Service) StartUsingLot(ctx context.Context, storeID, lotID, actorID primitive.ObjectID) error {
	if exists, err := s.users.Exists(ctx, actorID); err != nil {
		return err
	} else if !exists {
		return fmt.Errorf("user %s: %w", actorID.Hex(), apperr.ErrNotFound)
	}

	lot, err := s.products.FindLot(ctx, lotID)
	if err != nil {
		return err
	}
	if lot.StoreID != storeID {
		return fmt.Errorf("lot %s: %w", lotID.Hex(), apperr.ErrNotFound)
	}

	product, err := s.products.FindByID(ctx, storeID, lot.ProductID)
	if err != nil {
		return err
	}

	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.products.MarkLotInUse(ctx, lotID, initialLotAmount(product, nil), time.Now().UTC()); err != nil {
			return err
		}
		if err := s.products.ApplyCounters(ctx, product.ID, 0, 1, -1); err != nil {
			return err
		}

		return s.activities.Append(ctx, models.Activity{
			StoreID:  storeID,
			ActorID:  actorID,
			Category: models.ActivityInventory,
			Action:   "lot.opened",
			Metadata: map[string]string{
				"product_id": product.ID.Hex(),
				"lot_id":     lotID.Hex(),
			},
		})
	})
}

// StockStatus is a read-only snapshot of a product's remaining quantity.
type StockStatus struct {
	ProductID     primitive.ObjectID `json:"product_id"`
	TotalCapacity float64            `json:"total_capacity"`
	CurrentTotal  float64            `json:"current_total"`
	UnusedLots    int                `json:"unused_lots"`
	InUseLots     int                `json:"in_use_lots"`
	LowStock      bool               `json:"low_stock"`
}

// GetStockStatus computes the remaining total across open and unopened lots.
// Pure read; tolerates slightly stale snapshots.
func (s *Service) GetStockStatus(ctx context.Context, storeID, productID primitive.ObjectID) (StockStatus, error) {
	product, err := s.products.FindByID(ctx, storeID, productID)
	if err != nil {
		return StockStatus{}, err
	}

	lots, err := s.products.FindInUseLots(ctx, productID)
	if err != nil {
		return StockStatus{}, err
	}

	capacity := 0.0
	if product.Capacity != nil {
		capacity = *product.Capacity
	}

	var inUseRemaining float64
	for _, lot := range lots {
		inUseRemaining += lot.Remaining()
	}

	return StockStatus{
		ProductID:     product.ID,
		TotalCapacity: capacity * float64(product.TotalQuantity),
		CurrentTotal:  inUseRemaining + capacity*float64(product.LotQuantity),
		UnusedLots:    product.LotQuantity,
		InUseLots:     product.InUseQuantity,
		LowStock:      product.LotQuantity <= product.MinStockAlert,
	}, nil
}

// ListProducts returns all products of a store.
func (s *Service) ListProducts(ctx context.Context, storeID primitive.ObjectID) ([]models.Product, error) {
	return s.products.FindByStore(ctx, storeID)
}

// GetProduct loads one product scoped to a store.
func (s *Service) GetProduct(ctx context.Context, storeID, productID primitive.ObjectID) (models.Product, error) {
	return s.products.FindByID(ctx, storeID, productID)
}

// initialLotAmount picks the remaining amount a lot opens with: an explicit
// override wins, otherwise the product capacity.
func initialLotAmount(product models.Product, override *float64) float64 {
	if override != nil {
		return *override
	}
	if product.Capacity != nil {
		return *product.Capacity
	}
	return 0
}
