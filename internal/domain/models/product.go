package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductCategory classifies a product within the salon catalog.
type ProductCategory string

const (
	CategoryPolishColor  ProductCategory = "polish_color"
	CategoryPolishBase   ProductCategory = "polish_base"
	CategoryPolishTop    ProductCategory = "polish_top"
	CategoryGelColor     ProductCategory = "gel_color"
	CategoryGelBase      ProductCategory = "gel_base"
	CategoryGelTop       ProductCategory = "gel_top"
	CategoryGelRemover   ProductCategory = "gel_remover"
	CategoryNailCare     ProductCategory = "nail_care"
	CategoryTool         ProductCategory = "tool"
	CategoryConsumable   ProductCategory = "consumable"
	CategorySanitization ProductCategory = "sanitization"
	CategoryStoreSupply  ProductCategory = "store_supply"
)

// Valid reports whether the category is one of the known values.
func (c ProductCategory) Valid() bool {
	switch c {
	case CategoryPolishColor, CategoryPolishBase, CategoryPolishTop,
		CategoryGelColor, CategoryGelBase, CategoryGelTop, CategoryGelRemover,
		CategoryNailCare, CategoryTool, CategoryConsumable,
		CategorySanitization, CategoryStoreSupply:
		return true
	}
	return false
}

// Product is a catalog entry backed by physical lots.
//
// Counter invariant at rest: TotalQuantity == InUseQuantity + LotQuantity.
type Product struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StoreID       primitive.ObjectID `bson:"store_id" json:"store_id"`
	Brand         string             `bson:"brand" json:"brand"`
	Name          string             `bson:"name" json:"name"`
	Category      ProductCategory    `bson:"category" json:"category"`
	Price         float64            `bson:"price" json:"price"`
	Capacity      *float64           `bson:"capacity,omitempty" json:"capacity,omitempty"`
	CapacityUnit  string             `bson:"capacity_unit,omitempty" json:"capacity_unit,omitempty"`
	TotalQuantity int                `bson:"total_quantity" json:"total_quantity"`
	InUseQuantity int                `bson:"in_use_quantity" json:"in_use_quantity"`
	LotQuantity   int                `bson:"lot_quantity" json:"lot_quantity"`
	MinStockAlert int                `bson:"min_stock_alert" json:"min_stock_alert"`
	UsageCount    int                `bson:"usage_count" json:"usage_count"`
	LastUsed      *time.Time         `bson:"last_used,omitempty" json:"last_used,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// ProductLot is one physical container of a product. A lot transitions
// unused -> in-use exactly once; a depleted lot is never reused, it simply
// stops being selected.
type ProductLot struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID     primitive.ObjectID `bson:"product_id" json:"product_id"`
	StoreID       primitive.ObjectID `bson:"store_id" json:"store_id"`
	IsInUse       bool               `bson:"is_in_use" json:"is_in_use"`
	CurrentAmount *float64           `bson:"current_amount,omitempty" json:"current_amount,omitempty"`
	StartedAt     *time.Time         `bson:"started_at,omitempty" json:"started_at,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
}

// Remaining returns the amount left in the lot, or zero when it was never opened.
func (l ProductLot) Remaining() float64 {
	if l.CurrentAmount == nil {
		return 0
	}
	return *l.CurrentAmount
}
