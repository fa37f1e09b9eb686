package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RelatedProductUsage records consumption of a secondary product within the
// same service (e.g. base and top coats around a color).
type RelatedProductUsage struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	LotID     primitive.ObjectID `bson:"lot_id" json:"lot_id"`
	Amount    float64            `bson:"amount" json:"amount"`
	Role      ProductRole        `bson:"role" json:"role"`
	Order     int                `bson:"order" json:"order"`
}

// Usage is one recorded service performance, pinned to the exact lot(s) the
// product was drawn from.
type Usage struct {
	ID             primitive.ObjectID    `bson:"_id,omitempty" json:"id"`
	StoreID        primitive.ObjectID    `bson:"store_id" json:"store_id"`
	ServiceTypeID  primitive.ObjectID    `bson:"service_type_id" json:"service_type_id"`
	ProductID      primitive.ObjectID    `bson:"product_id" json:"product_id"`
	LotID          primitive.ObjectID    `bson:"lot_id" json:"lot_id"`
	Amount         float64               `bson:"amount" json:"amount"`
	DefaultAmount  float64               `bson:"default_amount" json:"default_amount"`
	NailLength     NailLength            `bson:"nail_length" json:"nail_length"`
	IsCustomAmount bool                  `bson:"is_custom_amount" json:"is_custom_amount"`
	IsGel          bool                  `bson:"is_gel" json:"is_gel"`
	Note           string                `bson:"note,omitempty" json:"note,omitempty"`
	Related        []RelatedProductUsage `bson:"related,omitempty" json:"related,omitempty"`
	RecordedBy     primitive.ObjectID    `bson:"recorded_by" json:"recorded_by"`
	UsedAt         time.Time             `bson:"used_at" json:"used_at"`
}
