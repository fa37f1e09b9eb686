// Package catalog manages service type definitions: what a service consumes,
// how nail length and design variants scale the nominal amount, and copying
// existing definitions.
package catalog

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/glosspoint/nailstock/internal/apperr"
	"github.com/glosspoint/nailstock/internal/domain/models"
	"github.com/glosspoint/nailstock/internal/repository/mongodb"
)

// AdjustedAmount converts a nominal amount into the actual amount for the
// given nail length. The rate percentage is multiplied by the design usage
// rate and rounded to the nearest integer percent first; the final amount is
// then rounded to two decimals. Both rounding steps are load-bearing for
// numeric compatibility with historical records.
func AdjustedAmount(st models.ServiceType, base float64, length models.NailLength) float64 {
	rate := st.LengthRate(length)
	if st.DesignUsageRate != nil {
		rate = int(math.Round(float64(rate) * *st.DesignUsageRate))
	}
	amount := base * float64(rate) / 100
	return math.Round(amount*100) / 100
}

// Service exposes service type catalog operations.
type Service struct {
	serviceTypes mongodb.ServiceTypeRepository
	stores       mongodb.StoreRepository
	activities   mongodb.ActivityRepository
	logger       *zap.Logger
}

// NewService wires a new catalog service instance.
func NewService(serviceTypes mongodb.ServiceTypeRepository, stores mongodb.StoreRepository, activities mongodb.ActivityRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{serviceTypes: serviceTypes, stores: stores, activities: activities, logger: logger}
}

// CreateInput carries the fields needed to define a service type.
type CreateInput struct {
	StoreID         primitive.ObjectID
	ActorID         primitive.ObjectID
	Name            string
	ProductType     models.ProductCategory
	NominalAmount   float64
	ShortRate       int
	MediumRate      int
	LongRate        int
	DesignVariant   string
	DesignUsageRate *float64
	IsGelService    bool
	RequiresBaseTop bool
	Products        []models.ServiceTypeProduct
}

// Create registers a new service type. Zero-valued length rates fall back to
// the 80/100/130 defaults. The name must be unique within the store.
func (s *Service) Create(ctx context.Context, in CreateInput) (models.ServiceType, error) {
	if in.Name == "" {
		return models.ServiceType{}, fmt.Errorf("service type name is required: %w", apperr.ErrValidation)
	}
	if in.NominalAmount < 0 {
		return models.ServiceType{}, fmt.Errorf("nominal amount must not be negative: %w", apperr.ErrValidation)
	}

	exists, err := s.stores.Exists(ctx, in.StoreID)
	if err != nil {
		return models.ServiceType{}, err
	}
	if !exists {
		return models.ServiceType{}, fmt.Errorf("store %s: %w", in.StoreID.Hex(), apperr.ErrNotFound)
	}

	st := models.ServiceType{
		StoreID:         in.StoreID,
		Name:            in.Name,
		ProductType:     in.ProductType,
		NominalAmount:   in.NominalAmount,
		ShortRate:       defaultRate(in.ShortRate, models.DefaultShortRate),
		MediumRate:      defaultRate(in.MediumRate, models.DefaultMediumRate),
		LongRate:        defaultRate(in.LongRate, models.DefaultLongRate),
		DesignVariant:   in.DesignVariant,
		DesignUsageRate: in.DesignUsageRate,
		IsGelService:    in.IsGelService,
		RequiresBaseTop: in.RequiresBaseTop,
		Products:        normalizeAssociations(in.Products),
	}

	created, err := s.serviceTypes.Create(ctx, st)
	if err != nil {
		return models.ServiceType{}, err
	}

	s.audit(ctx, in.StoreID, in.ActorID, "service_type.created", map[string]string{
		"service_type_id": created.ID.Hex(),
		"name":            created.Name,
	})

	s.logger.Info("service type created",
		zap.String("store_id", in.StoreID.Hex()),
		zap.String("name", created.Name))
	return created, nil
}

// Get loads a single service type scoped to a store.
func (s *Service) Get(ctx context.Context, storeID, id primitive.ObjectID) (models.ServiceType, error) {
	return s.serviceTypes.FindByID(ctx, storeID, id)
}

// List returns all service types of a store ordered by name.
func (s *Service) List(ctx context.Context, storeID primitive.ObjectID) ([]models.ServiceType, error) {
	return s.serviceTypes.FindByStore(ctx, storeID)
}

// ResolveAdjustedAmount looks up a service type and applies length/design
// adjustment to the provided base amount.
func (s *Service) ResolveAdjustedAmount(ctx context.Context, storeID, id primitive.ObjectID, base float64, length models.NailLength) (float64, error) {
	st, err := s.serviceTypes.FindByID(ctx, storeID, id)
	if err != nil {
		return 0, err
	}
	return AdjustedAmount(st, base, length), nil
}

// CopyOverrides lets a copy adjust the design variant of the source.
type CopyOverrides struct {
	DesignVariant   *string
	DesignUsageRate *float64
}

// Copy duplicates a service type's scalar fields and its full ordered
// association list under a new name. The new name must not collide within
// the store.
func (s *Service) Copy(ctx context.Context, storeID, sourceID primitive.ObjectID, newName string, overrides CopyOverrides, actorID primitive.ObjectID) (models.ServiceType, error) {
	if newName == "" {
		return models.ServiceType{}, fmt.Errorf("new name is required: %w", apperr.ErrValidation)
	}

	source, err := s.serviceTypes.FindByID(ctx, storeID, sourceID)
	if err != nil {
		return models.ServiceType{}, err
	}

	copied := source
	copied.ID = primitive.ObjectID{}
	copied.Name = newName
	copied.CreatedAt = time.Time{}
	copied.UpdatedAt = time.Time{}
	copied.Products = append([]models.ServiceTypeProduct(nil), source.Products...)

	if overrides.DesignVariant != nil {
		copied.DesignVariant = *overrides.DesignVariant
	}
	if overrides.DesignUsageRate != nil {
		copied.DesignUsageRate = overrides.DesignUsageRate
	}

	created, err := s.serviceTypes.Create(ctx, copied)
	if err != nil {
		return models.ServiceType{}, err
	}

	s.audit(ctx, storeID, actorID, "service_type.copied", map[string]string{
		"source_id":       sourceID.Hex(),
		"service_type_id": created.ID.Hex(),
		"name":            newName,
	})
	return created, nil
}

func (s *Service) audit(ctx context.Context, storeID, actorID primitive.ObjectID, action string, metadata map[string]string) {
	err := s.activities.Append(ctx, models.Activity{
		StoreID:  storeID,
		ActorID:  actorID,
		Category: models.ActivityCatalog,
		Action:   action,
		Metadata: metadata,
	})
	if err != nil {
		s.logger.Warn("failed to append activity", zap.String("action", action), zap.Error(err))
	}
}

func defaultRate(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

// normalizeAssociations assigns sequential order values to associations that
// did not specify one, keeping the caller-provided ordering.
func normalizeAssociations(assocs []models.ServiceTypeProduct) []models.ServiceTypeProduct {
	out := append([]models.ServiceTypeProduct(nil), assocs...)
	for i := range out {
		if out[i].Order == 0 {
			out[i].Order = i + 1
		}
		if out[i].Role == "" {
			out[i].Role = models.RoleOther
		}
	}
	return out
}
