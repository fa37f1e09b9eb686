// Package dashboard provides the read-only reporting surface: store
// summaries, monthly trends and reorder prediction. These paths never take
// locks and degrade gracefully to empty results when a non-critical read
// fails.
package dashboard

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/glosspoint/nailstock/internal/domain/models"
	"github.com/glosspoint/nailstock/internal/repository/mongodb"
	"github.com/glosspoint/nailstock/internal/service/stats"
)

// Service aggregates over products, usages and rollups.
type Service struct {
	products   mongodb.ProductRepository
	usages     mongodb.UsageRepository
	activities mongodb.ActivityRepository
	stats      *stats.Service
	logger     *zap.Logger
}

// NewService wires a new dashboard service instance.
func NewService(products mongodb.ProductRepository, usages mongodb.UsageRepository, activities mongodb.ActivityRepository, statsSvc *stats.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{products: products, usages: usages, activities: activities, stats: statsSvc, logger: logger}
}

// LowStockProduct is one product at or below its alert threshold.
type LowStockProduct struct {
	ProductID  primitive.ObjectID `json:"product_id"`
	Name       string             `json:"name"`
	Brand      string             `json:"brand"`
	UnusedLots int                `json:"unused_lots"`
	Threshold  int                `json:"threshold"`
}

// Summary is the store overview shown on the dashboard landing page.
type Summary struct {
	ProductCount     int                         `json:"product_count"`
	LowStock         []LowStockProduct           `json:"low_stock"`
	MonthUsageCount  int64                       `json:"month_usage_count"`
	MonthStats       []models.MonthlyServiceStat `json:"month_stats"`
	RecentActivities []models.Activity           `json:"recent_activities"`
}

// Summarize builds the store overview. Individual reads that fail are logged
// and leave their section empty rather than failing the whole summary.
func (s *Service) Summarize(ctx context.Context, storeID primitive.ObjectID) Summary {
	var summary Summary
	now := time.Now().UTC()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	products, err := s.products.FindByStore(ctx, storeID)
	if err != nil {
		s.logger.Warn("summary: product read failed", zap.Error(err))
	} else {
		summary.ProductCount = len(products)
		for _, p := range products {
			if p.MinStockAlert > 0 && p.LotQuantity <= p.MinStockAlert {
				summary.LowStock = append(summary.LowStock, LowStockProduct{
					ProductID:  p.ID,
					Name:       p.Name,
					Brand:      p.Brand,
					UnusedLots: p.LotQuantity,
					Threshold:  p.MinStockAlert,
				})
			}
		}
	}

	if count, err := s.usages.CountSince(ctx, storeID, firstOfMonth); err != nil {
		s.logger.Warn("summary: usage count failed", zap.Error(err))
	} else {
		summary.MonthUsageCount = count
	}

	if monthStats, err := s.stats.MonthOverview(ctx, storeID, now.Year(), int(now.Month())); err != nil {
		s.logger.Warn("summary: month stats failed", zap.Error(err))
	} else {
		summary.MonthStats = monthStats
	}

	if recent, err := s.activities.List(ctx, storeID, 10); err != nil {
		s.logger.Warn("summary: activity read failed", zap.Error(err))
	} else {
		summary.RecentActivities = recent
	}

	return summary
}

// TrendPoint is one month of a service type's rollup.
type TrendPoint struct {
	Year         int     `json:"year"`
	Month        int     `json:"month"`
	TotalUsage   float64 `json:"total_usage"`
	UsageCount   int     `json:"usage_count"`
	AverageUsage float64 `json:"average_usage"`
}

// Trend returns the chronological monthly rollups for a service type.
func (s *Service) Trend(ctx context.Context, serviceTypeID primitive.ObjectID) ([]TrendPoint, error) {
	rollups, err := s.stats.Trend(ctx, serviceTypeID)
	if err != nil {
		return nil, err
	}

	points := make([]TrendPoint, 0, len(rollups))
	for _, r := range rollups {
		points = append(points, TrendPoint{
			Year:         r.Year,
			Month:        r.Month,
			TotalUsage:   r.TotalUsage,
			UsageCount:   r.UsageCount,
			AverageUsage: r.AverageUsage,
		})
	}
	return points, nil
}

// ReorderForecast projects how long a product's remaining quantity lasts at
// the current month's consumption rate.
type ReorderForecast struct {
	ProductID     primitive.ObjectID `json:"product_id"`
	Name          string             `json:"name"`
	Remaining     float64            `json:"remaining"`
	DailyRate     float64            `json:"daily_rate"`
	DaysLeft      float64            `json:"days_left"`
	ReorderNeeded bool               `json:"reorder_needed"`
}

// reorderHorizonDays flags products projected to run out within this window.
const reorderHorizonDays = 14

// PredictReorders estimates depletion dates from this month's per-product
// consumption. Products without consumption this month are skipped.
func (s *Service) PredictReorders(ctx context.Context, storeID primitive.ObjectID) ([]ReorderForecast, error) {
	now := time.Now().UTC()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	daysElapsed := now.Sub(firstOfMonth).Hours() / 24
	if daysElapsed < 1 {
		daysElapsed = 1
	}

	consumed, err := s.usages.SumByProductSince(ctx, storeID, firstOfMonth)
	if err != nil {
		return nil, err
	}

	products, err := s.products.FindByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	var forecasts []ReorderForecast
	for _, p := range products {
		total, ok := consumed[p.ID]
		if !ok || total <= 0 {
			continue
		}

		capacity := 0.0
		if p.Capacity != nil {
			capacity = *p.Capacity
		}

		lots, err := s.products.FindInUseLots(ctx, p.ID)
		if err != nil {
			s.logger.Warn("forecast: lot read failed", zap.String("product_id", p.ID.Hex()), zap.Error(err))
			continue
		}
		var remaining float64
		for _, lot := range lots {
			remaining += lot.Remaining()
		}
		remaining += capacity * float64(p.LotQuantity)

		dailyRate := total / daysElapsed
		daysLeft := remaining / dailyRate

		forecasts = append(forecasts, ReorderForecast{
			ProductID:     p.ID,
			Name:          p.Name,
			Remaining:     remaining,
			DailyRate:     dailyRate,
			DaysLeft:      daysLeft,
			ReorderNeeded: daysLeft <= reorderHorizonDays,
		})
	}
	return forecasts, nil
}
