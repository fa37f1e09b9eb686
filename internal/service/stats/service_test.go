package stats

import (
	"context"
	"math"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/glosspoint/nailstock/internal/repository/memory"
)

func TestRecordBuildsRollupIncrementally(t *testing.T) {
	db := memory.NewDB()
	svc := NewService(db.Stats(), nil)
	ctx := context.Background()

	storeID := primitive.NewObjectID()
	serviceTypeID := primitive.NewObjectID()
	march := time.Date(2026, time.March, 12, 10, 0, 0, 0, time.UTC)

	first, err := svc.Record(ctx, storeID, serviceTypeID, 0.6, march)
	if err != nil {
		t.Fatalf("first Record() error: %v", err)
	}
	if first.Year != 2026 || first.Month != 3 {
		t.Fatalf("rollup keyed to %d-%02d, want 2026-03", first.Year, first.Month)
	}
	if first.TotalUsage != 0.6 || first.UsageCount != 1 || first.AverageUsage != 0.6 {
		t.Fatalf("first rollup = total %v count %d avg %v, want 0.6/1/0.6",
			first.TotalUsage, first.UsageCount, first.AverageUsage)
	}

	second, err := svc.Record(ctx, storeID, serviceTypeID, 0.4, march.AddDate(0, 0, 5))
	if err != nil {
		t.Fatalf("second Record() error: %v", err)
	}
	if math.Abs(second.TotalUsage-1.0) > 1e-9 || second.UsageCount != 2 || math.Abs(second.AverageUsage-0.5) > 1e-9 {
		t.Fatalf("second rollup = total %v count %d avg %v, want 1.0/2/0.5",
			second.TotalUsage, second.UsageCount, second.AverageUsage)
	}

	rollups, err := svc.Trend(ctx, serviceTypeID)
	if err != nil {
		t.Fatalf("Trend() error: %v", err)
	}
	if len(rollups) != 1 {
		t.Fatalf("Trend() returned %d rollups, want 1 row per month", len(rollups))
	}
}

func TestRecordSplitsByMonth(t *testing.T) {
	db := memory.NewDB()
	svc := NewService(db.Stats(), nil)
	ctx := context.Background()

	storeID := primitive.NewObjectID()
	serviceTypeID := primitive.NewObjectID()

	if _, err := svc.Record(ctx, storeID, serviceTypeID, 0.5, time.Date(2026, time.January, 31, 23, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if _, err := svc.Record(ctx, storeID, serviceTypeID, 0.5, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	rollups, err := svc.Trend(ctx, serviceTypeID)
	if err != nil {
		t.Fatalf("Trend() error: %v", err)
	}
	if len(rollups) != 2 {
		t.Fatalf("Trend() returned %d rollups, want 2", len(rollups))
	}
	if rollups[0].Month != 1 || rollups[1].Month != 2 {
		t.Errorf("rollups out of order: months %d, %d", rollups[0].Month, rollups[1].Month)
	}
}

func TestMonthOverviewScopesToStore(t *testing.T) {
	db := memory.NewDB()
	svc := NewService(db.Stats(), nil)
	ctx := context.Background()

	storeA := primitive.NewObjectID()
	storeB := primitive.NewObjectID()
	at := time.Date(2026, time.April, 10, 0, 0, 0, 0, time.UTC)

	if _, err := svc.Record(ctx, storeA, primitive.NewObjectID(), 0.5, at); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if _, err := svc.Record(ctx, storeB, primitive.NewObjectID(), 0.7, at); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	overview, err := svc.MonthOverview(ctx, storeA, 2026, 4)
	if err != nil {
		t.Fatalf("MonthOverview() error: %v", err)
	}
	if len(overview) != 1 || overview[0].StoreID != storeA {
		t.Fatalf("overview = %+v, want only store A's rollup", overview)
	}
}

func TestRefreshSeasonFactors(t *testing.T) {
	db := memory.NewDB()
	svc := NewService(db.Stats(), nil)
	ctx := context.Background()

	storeID := primitive.NewObjectID()
	serviceTypeID := primitive.NewObjectID()

	// January total 2.0, February total 4.0: mean 3.0.
	for i := 0; i < 4; i++ {
		month := time.January
		if i >= 2 {
			month = time.February
		}
		amount := 1.0
		if i >= 2 {
			amount = 2.0
		}
		if _, err := svc.Record(ctx, storeID, serviceTypeID, amount, time.Date(2026, month, 5, 0, 0, 0, 0, time.UTC)); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
	}

	if err := svc.RefreshSeasonFactors(ctx, serviceTypeID); err != nil {
		t.Fatalf("RefreshSeasonFactors() error: %v", err)
	}

	rollups, err := svc.Trend(ctx, serviceTypeID)
	if err != nil {
		t.Fatalf("Trend() error: %v", err)
	}
	if len(rollups) != 2 {
		t.Fatalf("got %d rollups, want 2", len(rollups))
	}

	// With two months of history the trailing window covers both, so the
	// forecast base equals the overall mean of 3.0.
	wantFactors := []float64{2.0 / 3.0, 4.0 / 3.0}
	wantPredicted := []float64{2.0, 4.0}
	for i, r := range rollups {
		if r.SeasonFactor == nil {
			t.Fatalf("rollup %d missing season factor", i)
		}
		if math.Abs(*r.SeasonFactor-wantFactors[i]) > 1e-9 {
			t.Errorf("rollup %d factor = %v, want %v", i, *r.SeasonFactor, wantFactors[i])
		}
		if r.PredictedNext == nil {
			t.Fatalf("rollup %d missing prediction", i)
		}
		if math.Abs(*r.PredictedNext-wantPredicted[i]) > 1e-9 {
			t.Errorf("rollup %d predicted = %v, want %v", i, *r.PredictedNext, wantPredicted[i])
		}
	}
}

func TestRefreshSeasonFactorsScalesRecentMean(t *testing.T) {
	db := memory.NewDB()
	svc := NewService(db.Stats(), nil)
	ctx := context.Background()

	storeID := primitive.NewObjectID()
	serviceTypeID := primitive.NewObjectID()

	// Monthly totals 1, 2, 3, 6: overall mean 3.0, but the trailing three
	// months average 11/3. Predictions must track the recent mean, not
	// restate each month's own total.
	totals := []float64{1, 2, 3, 6}
	for i, total := range totals {
		at := time.Date(2026, time.Month(i+1), 5, 0, 0, 0, 0, time.UTC)
		if _, err := svc.Record(ctx, storeID, serviceTypeID, total, at); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
	}

	if err := svc.RefreshSeasonFactors(ctx, serviceTypeID); err != nil {
		t.Fatalf("RefreshSeasonFactors() error: %v", err)
	}

	rollups, err := svc.Trend(ctx, serviceTypeID)
	if err != nil {
		t.Fatalf("Trend() error: %v", err)
	}
	if len(rollups) != 4 {
		t.Fatalf("got %d rollups, want 4", len(rollups))
	}

	recent := 11.0 / 3.0
	for i, r := range rollups {
		wantFactor := totals[i] / 3.0
		if r.SeasonFactor == nil || math.Abs(*r.SeasonFactor-wantFactor) > 1e-9 {
			t.Errorf("rollup %d factor = %v, want %v", i, r.SeasonFactor, wantFactor)
		}
		want := recent * wantFactor
		if r.PredictedNext == nil {
			t.Fatalf("rollup %d missing prediction", i)
		}
		if math.Abs(*r.PredictedNext-want) > 1e-9 {
			t.Errorf("rollup %d predicted = %v, want %v", i, *r.PredictedNext, want)
		}
		if math.Abs(*r.PredictedNext-r.TotalUsage) < 1e-9 {
			t.Errorf("rollup %d prediction restates its own total %v", i, r.TotalUsage)
		}
	}
}

func TestRefreshSeasonFactorsNoHistory(t *testing.T) {
	db := memory.NewDB()
	svc := NewService(db.Stats(), nil)

	if err := svc.RefreshSeasonFactors(context.Background(), primitive.NewObjectID()); err != nil {
		t.Fatalf("RefreshSeasonFactors() on empty history error: %v", err)
	}
}
