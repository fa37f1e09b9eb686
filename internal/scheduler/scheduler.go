package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/glosspoint/nailstock/internal/config"
	"github.com/glosspoint/nailstock/internal/repository/mongodb"
	"github.com/glosspoint/nailstock/internal/repository/sheets"
	"github.com/glosspoint/nailstock/internal/service/stats"
	"github.com/glosspoint/nailstock/pkg/clients/alerts"
)

// Scheduler manages the recurring background jobs: the daily low-stock scan
// and the monthly report export.
type Scheduler struct {
	cron     *cron.Cron
	cfg      config.Config
	products mongodb.ProductRepository
	statRepo mongodb.StatRepository
	statsSvc *stats.Service
	notifier alerts.Notifier
	exporter sheets.Exporter
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler instance. The notifier and exporter
// may be nil; their jobs are then skipped.
func NewScheduler(cfg config.Config, products mongodb.ProductRepository, statRepo mongodb.StatRepository, statsSvc *stats.Service, notifier alerts.Notifier, exporter sheets.Exporter, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:     cron.New(),
		cfg:      cfg,
		products: products,
		statRepo: statRepo,
		statsSvc: statsSvc,
		notifier: notifier,
		exporter: exporter,
		logger:   logger,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler")

	if s.notifier != nil {
		if _, err := s.cron.AddFunc(s.cfg.Jobs.LowStockCron, s.scanLowStock); err != nil {
			s.logger.Error("failed to schedule low stock scan", zap.Error(err))
		}
	}

	if s.exporter != nil {
		if _, err := s.cron.AddFunc(s.cfg.Jobs.MonthlyReportCron, s.exportMonthlyReport); err != nil {
			s.logger.Error("failed to schedule monthly report", zap.Error(err))
		}
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

// scanLowStock notifies the alert webhook about every product at or below
// its threshold. Fire-and-forget: a failed delivery is logged and skipped.
func (s *Scheduler) scanLowStock() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	products, err := s.products.FindLowStock(ctx)
	if err != nil {
		s.logger.Error("low stock scan failed", zap.Error(err))
		return
	}

	for _, p := range products {
		alert := alerts.LowStockAlert{
			StoreID:    p.StoreID.Hex(),
			ProductID:  p.ID.Hex(),
			Product:    p.Name,
			Brand:      p.Brand,
			UnusedLots: p.LotQuantity,
			Threshold:  p.MinStockAlert,
		}
		if err := s.notifier.NotifyLowStock(ctx, alert); err != nil {
			s.logger.Warn("low stock alert not delivered",
				zap.String("product_id", p.ID.Hex()), zap.Error(err))
		}
	}

	s.logger.Info("low stock scan completed", zap.Int("alerts", len(products)))
}

// exportMonthlyReport appends the previous month's rollups to the report
// spreadsheet and refreshes the seasonal fields of the touched service types.
func (s *Scheduler) exportMonthlyReport() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := time.Now().UTC()
	// Last day of the previous month, regardless of when the job fires.
	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	year, month := prev.Year(), int(prev.Month())

	rollups, err := s.statRepo.FindByMonth(ctx, year, month)
	if err != nil {
		s.logger.Error("monthly report query failed", zap.Error(err))
		return
	}
	if len(rollups) == 0 {
		s.logger.Info("no rollups to export", zap.Int("year", year), zap.Int("month", month))
		return
	}

	rows := make([][]interface{}, 0, len(rollups))
	for _, r := range rollups {
		rows = append(rows, []interface{}{
			r.StoreID.Hex(),
			r.ServiceTypeID.Hex(),
			r.Year,
			r.Month,
			r.TotalUsage,
			r.UsageCount,
			r.AverageUsage,
		})
	}

	if err := s.exporter.AppendRows(ctx, s.cfg.Sheets.ReportRange, rows); err != nil {
		s.logger.Error("monthly report export failed", zap.Error(err))
		return
	}

	seen := make(map[string]bool, len(rollups))
	for _, r := range rollups {
		key := r.ServiceTypeID.Hex()
		if seen[key] {
			continue
		}
		seen[key] = true
		if err := s.statsSvc.RefreshSeasonFactors(ctx, r.ServiceTypeID); err != nil {
			s.logger.Warn("season factor refresh failed",
				zap.String("service_type_id", key), zap.Error(err))
		}
	}

	s.logger.Info("monthly report exported",
		zap.Int("year", year), zap.Int("month", month), zap.Int("rows", len(rows)))
}
