// Package stats maintains the monthly per-service-type usage rollups.
package stats

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/glosspoint/nailstock/internal/domain/models"
	"github.com/glosspoint/nailstock/internal/repository/mongodb"
)

// Service applies incremental updates to the monthly rollups. History is
// never rebuilt from raw usage records.
type Service struct {
	stats  mongodb.StatRepository
	logger *zap.Logger
}

// NewService wires a new stats service instance.
func NewService(stats mongodb.StatRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{stats: stats, logger: logger}
}

// Record folds one usage of the given amount into the rollup for the month
// the date falls in, creating the row on first use. Meant to run inside the
// same transaction as the usage insert so the rollup never drifts.
func (s *Service) Record(ctx context.Context, storeID, serviceTypeID primitive.ObjectID, amount float64, date time.Time) (models.MonthlyServiceStat, error) {
	year, month := date.Year(), int(date.Month())

	stat, found, err := s.stats.Find(ctx, serviceTypeID, year, month)
	if err != nil {
		return models.MonthlyServiceStat{}, err
	}

	if !found {
		return s.stats.Insert(ctx, models.MonthlyServiceStat{
			StoreID:       storeID,
			ServiceTypeID: serviceTypeID,
			Year:          year,
			Month:         month,
			TotalUsage:    amount,
			UsageCount:    1,
			AverageUsage:  amount,
		})
	}

	stat.TotalUsage += amount
	stat.UsageCount++
	stat.AverageUsage = stat.TotalUsage / float64(stat.UsageCount)

	if err := s.stats.Replace(ctx, stat); err != nil {
		return models.MonthlyServiceStat{}, err
	}
	return stat, nil
}

// Trend returns all monthly rollups for a service type in chronological order.
func (s *Service) Trend(ctx context.Context, serviceTypeID primitive.ObjectID) ([]models.MonthlyServiceStat, error) {
	return s.stats.FindByServiceType(ctx, serviceTypeID)
}

// MonthOverview returns every service type rollup of a store for one month.
func (s *Service) MonthOverview(ctx context.Context, storeID primitive.ObjectID, year, month int) ([]models.MonthlyServiceStat, error) {
	return s.stats.FindByStoreMonth(ctx, storeID, year, month)
}

// predictionWindow bounds how many trailing months feed the usage forecast.
const predictionWindow = 3

// RefreshSeasonFactors recomputes each month's season factor for a service
// type as the ratio of that month's total to the mean monthly total, and
// projects that month's usage by scaling the trailing three-month mean with
// its factor. Run from the scheduler; failures only affect the optional
// predictive fields.
func (s *Service) RefreshSeasonFactors(ctx context.Context, serviceTypeID primitive.ObjectID) error {
	rollups, err := s.stats.FindByServiceType(ctx, serviceTypeID)
	if err != nil {
		return err
	}
	if len(rollups) == 0 {
		return nil
	}

	var sum float64
	for _, r := range rollups {
		sum += r.TotalUsage
	}
	mean := sum / float64(len(rollups))
	if mean == 0 {
		return nil
	}

	window := rollups
	if len(window) > predictionWindow {
		window = window[len(window)-predictionWindow:]
	}
	var recentSum float64
	for _, r := range window {
		recentSum += r.TotalUsage
	}
	recent := recentSum / float64(len(window))

	for _, r := range rollups {
		factor := r.TotalUsage / mean
		predicted := recent * factor
		r.SeasonFactor = &factor
		r.PredictedNext = &predicted
		if err := s.stats.Replace(ctx, r); err != nil {
			return err
		}
	}

	s.logger.Debug("season factors refreshed",
		zap.String("service_type_id", serviceTypeID.Hex()),
		zap.Int("months", len(rollups)))
	return nil
}
