// Package usage implements the core consumption recorder: one performed
// service becomes one atomic transaction spanning the primary product, any
// related products, their lots, the audit trail and the monthly rollup.
package usage

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
	"github.com/glosspoint/nailstock/internal/service/catalog"
	"github.com/glosspoint/nailstock/internal/service/stats"
)

// Service records product consumption against specific lots.
type Service struct {
	tx           mongodb.TxRunner
	users        mongodb.UserRepository
	products     mongodb.ProductRepository
	serviceTypes mongodb.ServiceTypeRepository
	usages       mongodb.UsageRepository
	activities   mongodb.ActivityRepository
	stats        *stats.Service
	logger       *zap.Logger
}

// NewService wires a new usage service instance.
func NewService(tx mongodb.TxRunner, users mongodb.UserRepository, products mongodb.ProductRepository, serviceTypes mongodb.ServiceTypeRepository, usages mongodb.UsageRepository, activities mongodb.ActivityRepository, statsSvc *stats.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		tx:           tx,
		users:        users,
		products:     products,
		serviceTypes: serviceTypes,
		usages:       usages,
		activities:   activities,
		stats:        statsSvc,
		logger:       logger,
	}
}

// RelatedEntry is one secondary product consumed by the same service.
type RelatedEntry struct {
	ProductID primitive.ObjectID
	Amount    float64
	Role      models.ProductRole
	Order     int
}

// RecordInput describes one performed service.
type RecordInput struct {
	StoreID       primitive.ObjectID
	ProductID     primitive.ObjectID
	ServiceTypeID primitive.ObjectID
	ActorID       primitive.ObjectID
	Amount        float64
	NailLength    models.NailLength
	CustomAmount  bool
	Note          string
	Related       []RelatedEntry
	At            time.Time
}

// Record consumes product quantity for one performed service.
//
// The primary product and every related product each draw from their own
// oldest open lot still holding stock (startedAt ascending, lot id as
// tie-break); a single usage never spans two lots of the same product. The usage insert, every lot
// decrement, the product counters, the audit record and the monthly rollup
// commit in one transaction: if any participant is out of stock or cannot
// cover its amount, nothing is persisted.
func (s *Service) Record(ctx context.Context, in RecordInput) (models.Usage, error) {
	if in.Amount <= 0 {
		return models.Usage{}, fmt.Errorf("usage amount must be positive: %w", apperr.ErrValidation)
	}
	for _, rel := range in.Related {
		if rel.Amount <= 0 {
			return models.Usage{}, fmt.Errorf("related usage amount must be positive: %w", apperr.ErrValidation)
		}
	}

	if exists, err := s.users.Exists(ctx, in.ActorID); err != nil {
		return models.Usage{}, err
	} else if !exists {
		return models.Usage{}, fmt.Errorf("user %s: %w", in.ActorID.Hex(), apperr.ErrNotFound)
	}

	serviceType, err := s.serviceTypes.FindByID(ctx, in.StoreID, in.ServiceTypeID)
	if err != nil {
		return models.Usage{}, err
	}

	usedAt := in.At
	if usedAt.IsZero() {
		usedAt = time.Now().UTC()
	}
	defaultAmount := catalog.AdjustedAmount(serviceType, serviceType.NominalAmount, in.NailLength)

	var recorded models.Usage
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		product, err := s.products.FindByID(ctx, in.StoreID, in.ProductID)
		if err != nil {
			return err
		}

		primaryLot, err := s.draw(ctx, product.ID, in.Amount)
		if err != nil {
			return err
		}

		related := make([]models.RelatedProductUsage, 0, len(in.Related))
		for _, rel := range in.Related {
			relProduct, err := s.products.FindByID(ctx, in.StoreID, rel.ProductID)
			if err != nil {
				return err
			}
			relLot, err := s.draw(ctx, relProduct.ID, rel.Amount)
			if err != nil {
				return err
			}
			related = append(related, models.RelatedProductUsage{
				ProductID: relProduct.ID,
				LotID:     relLot,
				Amount:    rel.Amount,
				Role:      rel.Role,
				Order:     rel.Order,
			})
		}

		recorded, err = s.usages.Create(ctx, models.Usage{
			StoreID:        in.StoreID,
			ServiceTypeID:  serviceType.ID,
			ProductID:      product.ID,
			LotID:          primaryLot,
			Amount:         in.Amount,
			DefaultAmount:  defaultAmount,
			NailLength:     in.NailLength,
			IsCustomAmount: in.CustomAmount,
			IsGel:          serviceType.IsGelService,
			Note:           in.Note,
			Related:        related,
			RecordedBy:     in.ActorID,
			UsedAt:         usedAt,
		})
		if err != nil {
			return err
		}

		if err := s.products.RecordUse(ctx, product.ID, usedAt); err != nil {
			return err
		}

		if err := s.activities.Append(ctx, models.Activity{
			StoreID:  in.StoreID,
			ActorID:  in.ActorID,
			Category: models.ActivityUsage,
			Action:   "usage.recorded",
			Metadata: map[string]string{
				"usage_id":   recorded.ID.Hex(),
				"product_id": product.ID.Hex(),
				"amount":     strconv.FormatFloat(in.Amount, 'f', -1, 64),
				"related":    strconv.Itoa(len(related)),
			},
			At: usedAt,
		}); err != nil {
			return err
		}

		// Rollup update joins the transaction, keeping it causally ordered
		// after the usage insert.
		_, err = s.stats.Record(ctx, in.StoreID, serviceType.ID, in.Amount, usedAt)
		return err
	})
	if err != nil {
		return models.Usage{}, err
	}

	s.logger.Info("usage recorded",
		zap.String("store_id", in.StoreID.Hex()),
		zap.String("usage_id", recorded.ID.Hex()),
		zap.Float64("amount", in.Amount),
		zap.Int("related", len(recorded.Related)))
	return recorded, nil
}

// draw selects the oldest open lot of a product and deducts amount from it.
// The whole amount must come from that single lot. Depleted lots are never
// candidates; a product whose open lots are all empty is out of stock.
func (s *Service) draw(ctx context.Context, productID primitive.ObjectID, amount float64) (primitive.ObjectID, error) {
	lots, err := s.products.FindInUseLots(ctx, productID)
	if err != nil {
		return primitive.ObjectID{}, err
	}
	if len(lots) == 0 {
		return primitive.ObjectID{}, fmt.Errorf("product %s has no open lot with stock: %w", productID.Hex(), apperr.ErrOutOfStock)
	}

	lot := lots[0]
	if lot.Remaining() < amount {
		return primitive.ObjectID{}, fmt.Errorf("lot %s holds %.2f, need %.2f: %w",
			lot.ID.Hex(), lot.Remaining(), amount, apperr.ErrInsufficientQuantity)
	}

	if err := s.products.DecrementLotAmount(ctx, lot.ID, amount); err != nil {
		return primitive.ObjectID{}, err
	}
	return lot.ID, nil
}

// History returns the most recent usage events of a store.
func (s *Service) History(ctx context.Context, storeID primitive.ObjectID, limit int64) ([]models.Usage, error) {
	return s.usages.FindByStore(ctx, storeID, limit)
}
