package dashboard

import (
	"context"
	"math"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/glosspoint/nailstock/internal/domain/models"
	"github.com/glosspoint/nailstock/internal/repository/memory"
	"github.com/glosspoint/nailstock/internal/service/stats"
)

func floatPtr(v float64) *float64 { return &v }

func newTestService(t *testing.T) (*Service, *memory.DB, models.Store) {
	t.Helper()
	db := memory.NewDB()
	store, err := db.Stores().Create(context.Background(), models.Store{Name: "Gloss Point", Code: "GP010203"})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	svc := NewService(db.Products(), db.Usages(), db.Activities(), stats.NewService(db.Stats(), nil), nil)
	return svc, db, store
}

func TestSummarize(t *testing.T) {
	svc, db, store := newTestService(t)
	ctx := context.Background()

	// One healthy product, one at its alert threshold.
	if _, err := db.Products().Create(ctx, models.Product{
		StoreID: store.ID, Name: "Gel Red", Category: models.CategoryGelColor,
		TotalQuantity: 5, LotQuantity: 5, MinStockAlert: 2,
	}); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	low, err := db.Products().Create(ctx, models.Product{
		StoreID: store.ID, Name: "Base Coat", Brand: "Presto", Category: models.CategoryGelBase,
		TotalQuantity: 2, InUseQuantity: 1, LotQuantity: 1, MinStockAlert: 2,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}

	now := time.Now().UTC()
	if _, err := db.Usages().Create(ctx, models.Usage{StoreID: store.ID, ProductID: low.ID, Amount: 0.5, UsedAt: now}); err != nil {
		t.Fatalf("seed usage: %v", err)
	}
	if err := db.Activities().Append(ctx, models.Activity{StoreID: store.ID, Category: models.ActivityUsage, Action: "usage.recorded"}); err != nil {
		t.Fatalf("seed activity: %v", err)
	}

	summary := svc.Summarize(ctx, store.ID)

	if summary.ProductCount != 2 {
		t.Errorf("product count = %d, want 2", summary.ProductCount)
	}
	if len(summary.LowStock) != 1 || summary.LowStock[0].ProductID != low.ID {
		t.Fatalf("low stock = %+v, want only the base coat", summary.LowStock)
	}
	if summary.LowStock[0].UnusedLots != 1 || summary.LowStock[0].Threshold != 2 {
		t.Errorf("low stock entry = %+v, want 1 unused lot at threshold 2", summary.LowStock[0])
	}
	if summary.MonthUsageCount != 1 {
		t.Errorf("month usage count = %d, want 1", summary.MonthUsageCount)
	}
	if len(summary.RecentActivities) != 1 {
		t.Errorf("recent activities = %d entries, want 1", len(summary.RecentActivities))
	}
}

func TestTrend(t *testing.T) {
	svc, db, store := newTestService(t)
	ctx := context.Background()
	statsSvc := stats.NewService(db.Stats(), nil)

	serviceTypeID := primitive.NewObjectID()
	if _, err := statsSvc.Record(ctx, store.ID, serviceTypeID, 0.6, time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("seed rollup: %v", err)
	}
	if _, err := statsSvc.Record(ctx, store.ID, serviceTypeID, 0.4, time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("seed rollup: %v", err)
	}

	points, err := svc.Trend(ctx, serviceTypeID)
	if err != nil {
		t.Fatalf("Trend() error: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("Trend() returned %d points, want 2", len(points))
	}
	if points[0].Month != 2 || points[0].TotalUsage != 0.6 || points[0].UsageCount != 1 {
		t.Errorf("first point = %+v", points[0])
	}
	if points[1].Month != 3 || points[1].AverageUsage != 0.4 {
		t.Errorf("second point = %+v", points[1])
	}
}

func TestPredictReorders(t *testing.T) {
	svc, db, store := newTestService(t)
	ctx := context.Background()

	product, err := db.Products().Create(ctx, models.Product{
		StoreID: store.ID, Name: "Gel Red", Category: models.CategoryGelColor,
		Capacity: floatPtr(8.0), TotalQuantity: 3, InUseQuantity: 1, LotQuantity: 2,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	remaining := 5.0
	startedAt := time.Now().UTC().Add(-time.Hour)
	if err := db.Products().InsertLots(ctx, []models.ProductLot{{
		ProductID: product.ID, StoreID: store.ID,
		IsInUse: true, CurrentAmount: &remaining, StartedAt: &startedAt,
	}}); err != nil {
		t.Fatalf("seed lot: %v", err)
	}

	// Product with no consumption this month must not appear.
	idle, err := db.Products().Create(ctx, models.Product{
		StoreID: store.ID, Name: "Top Coat", Category: models.CategoryGelTop,
		Capacity: floatPtr(8.0), TotalQuantity: 1, LotQuantity: 1,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}

	if _, err := db.Usages().Create(ctx, models.Usage{
		StoreID: store.ID, ProductID: product.ID, Amount: 3.0, UsedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed usage: %v", err)
	}

	forecasts, err := svc.PredictReorders(ctx, store.ID)
	if err != nil {
		t.Fatalf("PredictReorders() error: %v", err)
	}
	if len(forecasts) != 1 {
		t.Fatalf("got %d forecasts, want 1 (idle product %s skipped)", len(forecasts), idle.Name)
	}

	f := forecasts[0]
	if f.ProductID != product.ID {
		t.Errorf("forecast for %s, want %s", f.ProductID.Hex(), product.ID.Hex())
	}
	// 5.0 in the open lot plus two unopened 8.0 lots.
	if math.Abs(f.Remaining-21.0) > 1e-9 {
		t.Errorf("remaining = %v, want 21.0", f.Remaining)
	}
	if f.DailyRate <= 0 {
		t.Fatalf("daily rate = %v, want positive", f.DailyRate)
	}
	if math.Abs(f.DaysLeft-f.Remaining/f.DailyRate) > 1e-9 {
		t.Errorf("days left = %v, want remaining/rate = %v", f.DaysLeft, f.Remaining/f.DailyRate)
	}
}
