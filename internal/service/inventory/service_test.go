package inventory

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/glosspoint/nailstock/internal/apperr"
	"github.com/glosspoint/nailstock/internal/domain/models"
	"github.com/glosspoint/nailstock/internal/repository/memory"
)

func floatPtr(v float64) *float64 { return &v }

func newTestService(t *testing.T) (*Service, *memory.DB, models.Store, models.User) {
	t.Helper()
	ctx := context.Background()
	db := memory.NewDB()

	store, err := db.Stores().Create(ctx, models.Store{Name: "Gloss Point", Code: "GP010203"})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	actor, err := db.Users().Create(ctx, models.User{
		StoreID: store.ID,
		Email:   "mika@glosspoint.test",
		Role:    models.RoleStaff,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	svc := NewService(db, db.Stores(), db.Users(), db.Products(), db.Activities(), nil)
	return svc, db, store, actor
}

func TestCreateProductSpawnsUnusedLots(t *testing.T) {
	svc, db, store, actor := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateProductInput{
		StoreID:       store.ID,
		ActorID:       actor.ID,
		Brand:         "Presto",
		Name:          "Gel Red 301",
		Category:      models.CategoryGelColor,
		Capacity:      floatPtr(8.0),
		CapacityUnit:  "g",
		TotalQuantity: 3,
		MinStockAlert: 1,
	})
	if err != nil {
		t.Fatalf("CreateProduct() error: %v", err)
	}

	if created.TotalQuantity != 3 || created.InUseQuantity != 0 || created.LotQuantity != 3 {
		t.Fatalf("counters = %d/%d/%d, want 3/0/3", created.TotalQuantity, created.InUseQuantity, created.LotQuantity)
	}

	lots := db.LotList(created.ID)
	if len(lots) != 3 {
		t.Fatalf("spawned %d lots, want 3", len(lots))
	}
	for i, lot := range lots {
		if lot.IsInUse || lot.CurrentAmount != nil || lot.StartedAt != nil {
			t.Errorf("lot %d not unused: %+v", i, lot)
		}
	}

	if len(db.ActivityLog()) != 1 {
		t.Errorf("activity log has %d entries, want 1", len(db.ActivityLog()))
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc, _, store, actor := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{StoreID: store.ID, ActorID: actor.ID, Name: "", Category: models.CategoryGelColor})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty name err = %v, want ErrValidation", err)
	}

	_, err = svc.CreateProduct(ctx, CreateProductInput{StoreID: store.ID, ActorID: actor.ID, Name: "X", Category: "paint"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("unknown category err = %v, want ErrValidation", err)
	}

	_, err = svc.CreateProduct(ctx, CreateProductInput{StoreID: primitive.NewObjectID(), ActorID: actor.ID, Name: "X", Category: models.CategoryGelColor})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown store err = %v, want ErrNotFound", err)
	}
}

func TestStartUsingLot(t *testing.T) {
	svc, db, store, actor := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		StoreID:       store.ID,
		ActorID:       actor.ID,
		Name:          "Gel Red 301",
		Category:      models.CategoryGelColor,
		Capacity:      floatPtr(8.0),
		TotalQuantity: 2,
	})
	if err != nil {
		t.Fatalf("CreateProduct() error: %v", err)
	}
	lotID := db.LotList(product.ID)[0].ID

	if err := svc.StartUsingLot(ctx, store.ID, lotID, actor.ID); err != nil {
		t.Fatalf("StartUsingLot() error: %v", err)
	}

	lot, err := db.Products().FindLot(ctx, lotID)
	if err != nil {
		t.Fatalf("FindLot: %v", err)
	}
	if !lot.IsInUse || lot.StartedAt == nil {
		t.Fatalf("lot not opened: %+v", lot)
	}
	if lot.Remaining() != 8.0 {
		t.Errorf("opened lot remaining = %v, want capacity 8.0", lot.Remaining())
	}

	updated, err := db.Products().FindByID(ctx, store.ID, product.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if updated.TotalQuantity != 2 || updated.InUseQuantity != 1 || updated.LotQuantity != 1 {
		t.Fatalf("counters = %d/%d/%d, want 2/1/1", updated.TotalQuantity, updated.InUseQuantity, updated.LotQuantity)
	}
}

func TestStartUsingLotTwiceConflicts(t *testing.T) {
	svc, db, store, actor := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		StoreID:       store.ID,
		ActorID:       actor.ID,
		Name:          "Gel Red 301",
		Category:      models.CategoryGelColor,
		Capacity:      floatPtr(8.0),
		TotalQuantity: 1,
	})
	if err != nil {
		t.Fatalf("CreateProduct() error: %v", err)
	}
	lotID := db.LotList(product.ID)[0].ID

	if err := svc.StartUsingLot(ctx, store.ID, lotID, actor.ID); err != nil {
		t.Fatalf("first StartUsingLot() error: %v", err)
	}
	err = svc.StartUsingLot(ctx, store.ID, lotID, actor.ID)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("second StartUsingLot() err = %v, want ErrConflict", err)
	}

	// The failed second open must not shift the counters again.
	updated, err := db.Products().FindByID(ctx, store.ID, product.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if updated.TotalQuantity != 1 || updated.InUseQuantity != 1 || updated.LotQuantity != 0 {
		t.Fatalf("counters = %d/%d/%d, want 1/1/0", updated.TotalQuantity, updated.InUseQuantity, updated.LotQuantity)
	}
}

func TestStartUsingLotWrongStore(t *testing.T) {
	svc, db, store, actor := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		StoreID:       store.ID,
		ActorID:       actor.ID,
		Name:          "Gel Red 301",
		Category:      models.CategoryGelColor,
		TotalQuantity: 1,
	})
	if err != nil {
		t.Fatalf("CreateProduct() error: %v", err)
	}
	lotID := db.LotList(product.ID)[0].ID

	err = svc.StartUsingLot(ctx, primitive.NewObjectID(), lotID, actor.ID)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("cross-store open err = %v, want ErrNotFound", err)
	}
}

func TestAddStock(t *testing.T) {
	svc, db, store, actor := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		StoreID:       store.ID,
		ActorID:       actor.ID,
		Name:          "Gel Red 301",
		Category:      models.CategoryGelColor,
		Capacity:      floatPtr(8.0),
		TotalQuantity: 1,
	})
	if err != nil {
		t.Fatalf("CreateProduct() error: %v", err)
	}

	if err := svc.AddStock(ctx, AddStockInput{
		StoreID:   store.ID,
		ProductID: product.ID,
		ActorID:   actor.ID,
		Quantity:  2,
	}); err != nil {
		t.Fatalf("AddStock() error: %v", err)
	}

	updated, err := db.Products().FindByID(ctx, store.ID, product.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if updated.TotalQuantity != 3 || updated.InUseQuantity != 0 || updated.LotQuantity != 3 {
		t.Fatalf("counters = %d/%d/%d, want 3/0/3", updated.TotalQuantity, updated.InUseQuantity, updated.LotQuantity)
	}
	if got := len(db.LotList(product.ID)); got != 3 {
		t.Errorf("lot set has %d lots, want 3", got)
	}
}

func TestAddStockStartInUse(t *testing.T) {
	svc, db, store, actor := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		StoreID:       store.ID,
		ActorID:       actor.ID,
		Name:          "Gel Red 301",
		Category:      models.CategoryGelColor,
		Capacity:      floatPtr(8.0),
		TotalQuantity: 0,
	})
	if err != nil {
		t.Fatalf("CreateProduct() error: %v", err)
	}

	if err := svc.AddStock(ctx, AddStockInput{
		StoreID:       store.ID,
		ProductID:     product.ID,
		ActorID:       actor.ID,
		Quantity:      1,
		StartInUse:    true,
		InitialAmount: floatPtr(5.5),
	}); err != nil {
		t.Fatalf("AddStock() error: %v", err)
	}

	updated, err := db.Products().FindByID(ctx, store.ID, product.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if updated.TotalQuantity != 1 || updated.InUseQuantity != 1 || updated.LotQuantity != 0 {
		t.Fatalf("counters = %d/%d/%d, want 1/1/0", updated.TotalQuantity, updated.InUseQuantity, updated.LotQuantity)
	}

	lots := db.LotList(product.ID)
	if len(lots) != 1 || !lots[0].IsInUse || lots[0].Remaining() != 5.5 {
		t.Fatalf("lot = %+v, want open with 5.5 remaining", lots)
	}
}

func TestAddStockValidation(t *testing.T) {
	svc, _, store, actor := newTestService(t)
	ctx := context.Background()

	err := svc.AddStock(ctx, AddStockInput{StoreID: store.ID, ProductID: primitive.NewObjectID(), ActorID: actor.ID, Quantity: 0})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("zero quantity err = %v, want ErrValidation", err)
	}

	err = svc.AddStock(ctx, AddStockInput{StoreID: store.ID, ProductID: primitive.NewObjectID(), ActorID: actor.ID, Quantity: 1})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown product err = %v, want ErrNotFound", err)
	}
}

func TestGetStockStatus(t *testing.T) {
	svc, db, store, actor := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		StoreID:       store.ID,
		ActorID:       actor.ID,
		Name:          "Gel Red 301",
		Category:      models.CategoryGelColor,
		Capacity:      floatPtr(8.0),
		TotalQuantity: 3,
		MinStockAlert: 2,
	})
	if err != nil {
		t.Fatalf("CreateProduct() error: %v", err)
	}

	lotID := db.LotList(product.ID)[0].ID
	if err := svc.StartUsingLot(ctx, store.ID, lotID, actor.ID); err != nil {
		t.Fatalf("StartUsingLot() error: %v", err)
	}
	// Partially drain the open lot.
	if err := db.Products().DecrementLotAmount(ctx, lotID, 3.0); err != nil {
		t.Fatalf("DecrementLotAmount: %v", err)
	}

	status, err := svc.GetStockStatus(ctx, store.ID, product.ID)
	if err != nil {
		t.Fatalf("GetStockStatus() error: %v", err)
	}

	if status.TotalCapacity != 24.0 {
		t.Errorf("total capacity = %v, want 24.0", status.TotalCapacity)
	}
	// 5.0 left in the open lot plus two unopened 8.0 lots.
	if math.Abs(status.CurrentTotal-21.0) > 1e-9 {
		t.Errorf("current total = %v, want 21.0", status.CurrentTotal)
	}
	if status.UnusedLots != 2 || status.InUseLots != 1 {
		t.Errorf("lot counts = %d unused / %d in use, want 2/1", status.UnusedLots, status.InUseLots)
	}
	if !status.LowStock {
		t.Error("two unused lots at threshold two: want low stock")
	}
}
