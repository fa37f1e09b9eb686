// Package memory provides in-memory implementations of the repository
// interfaces for tests. WithTransaction snapshots the whole state and
// restores it when the callback fails, mirroring the all-or-nothing
// behavior of the MongoDB session transactions. Not safe for concurrent
// use.
package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/glosspoint/nailstock/internal/apperr"
	"github.com/glosspoint/nailstock/internal/domain/models"
	"github.com/glosspoint/nailstock/internal/repository/mongodb"
)

type statKey struct {
	serviceTypeID primitive.ObjectID
	year, month   int
}

// DB holds all entity state. Repository accessors return views over the
// same state, so transactions span every entity.
type DB struct {
	stores       map[primitive.ObjectID]models.Store
	users        map[primitive.ObjectID]models.User
	products     map[primitive.ObjectID]models.Product
	lots         map[primitive.ObjectID]models.ProductLot
	serviceTypes map[primitive.ObjectID]models.ServiceType
	usages       []models.Usage
	stats        map[statKey]models.MonthlyServiceStat
	activities   []models.Activity
}

// NewDB builds an empty in-memory database.
func NewDB() *DB {
	return &DB{
		stores:       make(map[primitive.ObjectID]models.Store),
		users:        make(map[primitive.ObjectID]models.User),
		products:     make(map[primitive.ObjectID]models.Product),
		lots:         make(map[primitive.ObjectID]models.ProductLot),
		serviceTypes: make(map[primitive.ObjectID]models.ServiceType),
		stats:        make(map[statKey]models.MonthlyServiceStat),
	}
}

var _ mongodb.TxRunner = (*DB)(nil)

// WithTransaction restores the pre-transaction state when fn fails.
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := db.clone()
	if err := fn(ctx); err != nil {
		*db = *snapshot
		return err
	}
	return nil
}

// clone copies all containers. Entity values are copied as-is; mutators
// always replace whole structs (never write through shared pointers), so the
// shallow value copies stay isolated.
func (db *DB) clone() *DB {
	out := NewDB()
	for k, v := range db.stores {
		out.stores[k] = v
	}
	for k, v := range db.users {
		out.users[k] = v
	}
	for k, v := range db.products {
		out.products[k] = v
	}
	for k, v := range db.lots {
		out.lots[k] = v
	}
	for k, v := range db.serviceTypes {
		out.serviceTypes[k] = v
	}
	for k, v := range db.stats {
		out.stats[k] = v
	}
	out.usages = append([]models.Usage(nil), db.usages...)
	out.activities = append([]models.Activity(nil), db.activities...)
	return out
}

// Stores returns the store repository view.
func (db *DB) Stores() mongodb.StoreRepository { return &storeRepo{db} }

// Users returns the user repository view.
func (db *DB) Users() mongodb.UserRepository { return &userRepo{db} }

// Products returns the product repository view.
func (db *DB) Products() mongodb.ProductRepository { return &productRepo{db} }

// ServiceTypes returns the service type repository view.
func (db *DB) ServiceTypes() mongodb.ServiceTypeRepository { return &serviceTypeRepo{db} }

// Usages returns the usage repository view.
func (db *DB) Usages() mongodb.UsageRepository { return &usageRepo{db} }

// Stats returns the stat repository view.
func (db *DB) Stats() mongodb.StatRepository { return &statRepo{db} }

// Activities returns the activity repository view.
func (db *DB) Activities() mongodb.ActivityRepository { return &activityRepo{db} }

// ActivityLog exposes the raw audit entries for assertions.
func (db *DB) ActivityLog() []models.Activity { return db.activities }

// UsageLog exposes the raw usage entries for assertions.
func (db *DB) UsageLog() []models.Usage { return db.usages }

// LotList exposes all lots of a product, unused ones included, ordered by id.
func (db *DB) LotList(productID primitive.ObjectID) []models.ProductLot {
	var lots []models.ProductLot
	for _, lot := range db.lots {
		if lot.ProductID == productID {
			lots = append(lots, lot)
		}
	}
	sort.Slice(lots, func(i, j int) bool { return lots[i].ID.Hex() < lots[j].ID.Hex() })
	return lots
}

type storeRepo struct{ db *DB }

func (r *storeRepo) Create(_ context.Context, store models.Store) (models.Store, error) {
	for _, existing := range r.db.stores {
		if existing.Code == store.Code {
			return models.Store{}, fmt.Errorf("store code %s already registered: %w", store.Code, apperr.ErrConflict)
		}
	}
	store.ID = primitive.NewObjectID()
	store.CreatedAt = time.Now().UTC()
	r.db.stores[store.ID] = store
	return store, nil
}

func (r *storeRepo) FindByID(_ context.Context, id primitive.ObjectID) (models.Store, error) {
	store, ok := r.db.stores[id]
	if !ok {
		return models.Store{}, fmt.Errorf("store %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	return store, nil
}

func (r *storeRepo) Exists(_ context.Context, id primitive.ObjectID) (bool, error) {
	_, ok := r.db.stores[id]
	return ok, nil
}

type userRepo struct{ db *DB }

func (r *userRepo) Create(_ context.Context, user models.User) (models.User, error) {
	for _, existing := range r.db.users {
		if existing.Email == user.Email {
			return models.User{}, fmt.Errorf("email %s already registered: %w", user.Email, apperr.ErrConflict)
		}
	}
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now().UTC()
	r.db.users[user.ID] = user
	return user, nil
}

func (r *userRepo) FindByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	user, ok := r.db.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	return user, nil
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (models.User, error) {
	for _, user := range r.db.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, fmt.Errorf("user %s: %w", email, apperr.ErrNotFound)
}

func (r *userRepo) Exists(_ context.Context, id primitive.ObjectID) (bool, error) {
	_, ok := r.db.users[id]
	return ok, nil
}

func (r *userRepo) TouchLastLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	user, ok := r.db.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	user.LastLogin = &at
	r.db.users[id] = user
	return nil
}

type productRepo struct{ db *DB }

func (r *productRepo) Create(_ context.Context, product models.Product) (models.Product, error) {
	now := time.Now().UTC()
	product.ID = primitive.NewObjectID()
	product.CreatedAt = now
	product.UpdatedAt = now
	r.db.products[product.ID] = product
	return product, nil
}

func (r *productRepo) FindByID(_ context.Context, storeID, id primitive.ObjectID) (models.Product, error) {
	product, ok := r.db.products[id]
	if !ok || product.StoreID != storeID {
		return models.Product{}, fmt.Errorf("product %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	return product, nil
}

func (r *productRepo) FindByStore(_ context.Context, storeID primitive.ObjectID) ([]models.Product, error) {
	var products []models.Product
	for _, p := range r.db.products {
		if p.StoreID == storeID {
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (r *productRepo) FindLowStock(_ context.Context) ([]models.Product, error) {
	var products []models.Product
	for _, p := range r.db.products {
		if p.MinStockAlert > 0 && p.LotQuantity <= p.MinStockAlert {
			products = append(products, p)
		}
	}
	return products, nil
}

func (r *productRepo) ApplyCounters(_ context.Context, id primitive.ObjectID, deltaTotal, deltaInUse, deltaLot int) error {
	product, ok := r.db.products[id]
	if !ok {
		return fmt.Errorf("product %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	product.TotalQuantity += deltaTotal
	product.InUseQuantity += deltaInUse
	product.LotQuantity += deltaLot
	product.UpdatedAt = time.Now().UTC()
	r.db.products[id] = product
	return nil
}

func (r *productRepo) RecordUse(_ context.Context, id primitive.ObjectID, at time.Time) error {
	product, ok := r.db.products[id]
	if !ok {
		return fmt.Errorf("product %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	product.UsageCount++
	product.LastUsed = &at
	product.UpdatedAt = at
	r.db.products[id] = product
	return nil
}

func (r *productRepo) InsertLots(_ context.Context, lots []models.ProductLot) error {
	now := time.Now().UTC()
	for _, lot := range lots {
		if lot.ID.IsZero() {
			lot.ID = primitive.NewObjectID()
		}
		if lot.CreatedAt.IsZero() {
			lot.CreatedAt = now
		}
		r.db.lots[lot.ID] = lot
	}
	return nil
}

func (r *productRepo) FindLot(_ context.Context, id primitive.ObjectID) (models.ProductLot, error) {
	lot, ok := r.db.lots[id]
	if !ok {
		return models.ProductLot{}, fmt.Errorf("lot %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	return lot, nil
}

func (r *productRepo) FindInUseLots(_ context.Context, productID primitive.ObjectID) ([]models.ProductLot, error) {
	var lots []models.ProductLot
	for _, lot := range r.db.lots {
		if lot.ProductID == productID && lot.IsInUse && lot.Remaining() > 0 {
			lots = append(lots, lot)
		}
	}
	sort.Slice(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		if a.StartedAt != nil && b.StartedAt != nil && !a.StartedAt.Equal(*b.StartedAt) {
			return a.StartedAt.Before(*b.StartedAt)
		}
		return a.ID.Hex() < b.ID.Hex()
	})
	return lots, nil
}

func (r *productRepo) MarkLotInUse(_ context.Context, id primitive.ObjectID, initialAmount float64, startedAt time.Time) error {
	lot, ok := r.db.lots[id]
	if !ok {
		return fmt.Errorf("lot %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	if lot.IsInUse {
		return fmt.Errorf("lot %s already in use: %w", id.Hex(), apperr.ErrConflict)
	}
	amount := initialAmount
	lot.IsInUse = true
	lot.CurrentAmount = &amount
	lot.StartedAt = &startedAt
	r.db.lots[id] = lot
	return nil
}

func (r *productRepo) DecrementLotAmount(_ context.Context, id primitive.ObjectID, amount float64) error {
	lot, ok := r.db.lots[id]
	if !ok || !lot.IsInUse || lot.Remaining() < amount {
		return fmt.Errorf("lot %s cannot cover %.2f: %w", id.Hex(), amount, apperr.ErrInsufficientQuantity)
	}
	remaining := lot.Remaining() - amount
	lot.CurrentAmount = &remaining
	r.db.lots[id] = lot
	return nil
}

type serviceTypeRepo struct{ db *DB }

func (r *serviceTypeRepo) Create(_ context.Context, st models.ServiceType) (models.ServiceType, error) {
	for _, existing := range r.db.serviceTypes {
		if existing.StoreID == st.StoreID && existing.Name == st.Name {
			return models.ServiceType{}, fmt.Errorf("service type %q already exists in store: %w", st.Name, apperr.ErrConflict)
		}
	}
	now := time.Now().UTC()
	st.ID = primitive.NewObjectID()
	st.CreatedAt = now
	st.UpdatedAt = now
	r.db.serviceTypes[st.ID] = st
	return st, nil
}

func (r *serviceTypeRepo) FindByID(_ context.Context, storeID, id primitive.ObjectID) (models.ServiceType, error) {
	st, ok := r.db.serviceTypes[id]
	if !ok || st.StoreID != storeID {
		return models.ServiceType{}, fmt.Errorf("service type %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	return st, nil
}

func (r *serviceTypeRepo) FindByStore(_ context.Context, storeID primitive.ObjectID) ([]models.ServiceType, error) {
	var types []models.ServiceType
	for _, st := range r.db.serviceTypes {
		if st.StoreID == storeID {
			types = append(types, st)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	return types, nil
}

func (r *serviceTypeRepo) Update(_ context.Context, st models.ServiceType) error {
	existing, ok := r.db.serviceTypes[st.ID]
	if !ok || existing.StoreID != st.StoreID {
		return fmt.Errorf("service type %s: %w", st.ID.Hex(), apperr.ErrNotFound)
	}
	st.UpdatedAt = time.Now().UTC()
	r.db.serviceTypes[st.ID] = st
	return nil
}

type usageRepo struct{ db *DB }

func (r *usageRepo) Create(_ context.Context, usage models.Usage) (models.Usage, error) {
	usage.ID = primitive.NewObjectID()
	r.db.usages = append(r.db.usages, usage)
	return usage, nil
}

func (r *usageRepo) FindByStore(_ context.Context, storeID primitive.ObjectID, limit int64) ([]models.Usage, error) {
	if limit <= 0 {
		limit = 50
	}
	var usages []models.Usage
	for _, u := range r.db.usages {
		if u.StoreID == storeID {
			usages = append(usages, u)
		}
	}
	sort.Slice(usages, func(i, j int) bool { return usages[i].UsedAt.After(usages[j].UsedAt) })
	if int64(len(usages)) > limit {
		usages = usages[:limit]
	}
	return usages, nil
}

func (r *usageRepo) CountSince(_ context.Context, storeID primitive.ObjectID, since time.Time) (int64, error) {
	var count int64
	for _, u := range r.db.usages {
		if u.StoreID == storeID && !u.UsedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *usageRepo) SumByProductSince(_ context.Context, storeID primitive.ObjectID, since time.Time) (map[primitive.ObjectID]float64, error) {
	totals := make(map[primitive.ObjectID]float64)
	for _, u := range r.db.usages {
		if u.StoreID == storeID && !u.UsedAt.Before(since) {
			totals[u.ProductID] += u.Amount
		}
	}
	return totals, nil
}

type statRepo struct{ db *DB }

func (r *statRepo) Find(_ context.Context, serviceTypeID primitive.ObjectID, year, month int) (models.MonthlyServiceStat, bool, error) {
	stat, ok := r.db.stats[statKey{serviceTypeID, year, month}]
	return stat, ok, nil
}

func (r *statRepo) Insert(_ context.Context, stat models.MonthlyServiceStat) (models.MonthlyServiceStat, error) {
	key := statKey{stat.ServiceTypeID, stat.Year, stat.Month}
	if _, exists := r.db.stats[key]; exists {
		return models.MonthlyServiceStat{}, fmt.Errorf("stat for %d-%02d already exists: %w", stat.Year, stat.Month, apperr.ErrConflict)
	}
	stat.ID = primitive.NewObjectID()
	stat.UpdatedAt = time.Now().UTC()
	r.db.stats[key] = stat
	return stat, nil
}

func (r *statRepo) Replace(_ context.Context, stat models.MonthlyServiceStat) error {
	key := statKey{stat.ServiceTypeID, stat.Year, stat.Month}
	if _, ok := r.db.stats[key]; !ok {
		return fmt.Errorf("monthly stat %s vanished during update", stat.ID.Hex())
	}
	stat.UpdatedAt = time.Now().UTC()
	r.db.stats[key] = stat
	return nil
}

func (r *statRepo) FindByServiceType(_ context.Context, serviceTypeID primitive.ObjectID) ([]models.MonthlyServiceStat, error) {
	var stats []models.MonthlyServiceStat
	for key, stat := range r.db.stats {
		if key.serviceTypeID == serviceTypeID {
			stats = append(stats, stat)
		}
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Year != stats[j].Year {
			return stats[i].Year < stats[j].Year
		}
		return stats[i].Month < stats[j].Month
	})
	return stats, nil
}

func (r *statRepo) FindByStoreMonth(_ context.Context, storeID primitive.ObjectID, year, month int) ([]models.MonthlyServiceStat, error) {
	var stats []models.MonthlyServiceStat
	for _, stat := range r.db.stats {
		if stat.StoreID == storeID && stat.Year == year && stat.Month == month {
			stats = append(stats, stat)
		}
	}
	return stats, nil
}

func (r *statRepo) FindByMonth(_ context.Context, year, month int) ([]models.MonthlyServiceStat, error) {
	var stats []models.MonthlyServiceStat
	for _, stat := range r.db.stats {
		if stat.Year == year && stat.Month == month {
			stats = append(stats, stat)
		}
	}
	return stats, nil
}

type activityRepo struct{ db *DB }

func (r *activityRepo) Append(_ context.Context, activity models.Activity) error {
	activity.ID = primitive.NewObjectID()
	if activity.At.IsZero() {
		activity.At = time.Now().UTC()
	}
	r.db.activities = append(r.db.activities, activity)
	return nil
}

func (r *activityRepo) List(_ context.Context, storeID primitive.ObjectID, limit int64) ([]models.Activity, error) {
	if limit <= 0 {
		limit = 100
	}
	var activities []models.Activity
	for i := len(r.db.activities) - 1; i >= 0 && int64(len(activities)) < limit; i-- {
		if r.db.activities[i].StoreID == storeID {
			activities = append(activities, r.db.activities[i])
		}
	}
	return activities, nil
}
