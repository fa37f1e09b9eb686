package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NailLength selects which length-adjustment rate applies to a service.
type NailLength string

const (
	LengthShort  NailLength = "short"
	LengthMedium NailLength = "medium"
	LengthLong   NailLength = "long"
)

// Default length-adjustment percentages applied when a service type does not
// override them.
const (
	DefaultShortRate  = 80
	DefaultMediumRate = 100
	DefaultLongRate   = 130
)

// ProductRole tags the position a product plays within a multi-step service.
type ProductRole string

const (
	RoleBase  ProductRole = "BASE"
	RoleColor ProductRole = "COLOR"
	RoleTop   ProductRole = "TOP"
	RoleCare  ProductRole = "CARE"
	RoleOther ProductRole = "OTHER"
)

// ServiceTypeProduct associates one product with a service type, carrying the
// nominal amount consumed per service and an explicit position.
type ServiceTypeProduct struct {
	ProductID   primitive.ObjectID `bson:"product_id" json:"product_id"`
	UsageAmount float64            `bson:"usage_amount" json:"usage_amount"`
	Required    bool               `bson:"required" json:"required"`
	Role        ProductRole        `bson:"role" json:"role"`
	Order       int                `bson:"order" json:"order"`
}

// ServiceType defines a service offered by a store and what it consumes.
// Name is unique within a store.
type ServiceType struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	StoreID         primitive.ObjectID   `bson:"store_id" json:"store_id"`
	Name            string               `bson:"name" json:"name"`
	ProductType     ProductCategory      `bson:"product_type,omitempty" json:"product_type,omitempty"`
	NominalAmount   float64              `bson:"nominal_amount" json:"nominal_amount"`
	ShortRate       int                  `bson:"short_rate" json:"short_rate"`
	MediumRate      int                  `bson:"medium_rate" json:"medium_rate"`
	LongRate        int                  `bson:"long_rate" json:"long_rate"`
	DesignVariant   string               `bson:"design_variant,omitempty" json:"design_variant,omitempty"`
	DesignUsageRate *float64             `bson:"design_usage_rate,omitempty" json:"design_usage_rate,omitempty"`
	IsGelService    bool                 `bson:"is_gel_service" json:"is_gel_service"`
	RequiresBaseTop bool                 `bson:"requires_base_top" json:"requires_base_top"`
	Products        []ServiceTypeProduct `bson:"products" json:"products"`
	CreatedAt       time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at" json:"updated_at"`
}

// LengthRate returns the percentage applicable to the given nail length.
func (s ServiceType) LengthRate(length NailLength) int {
	switch length {
	case LengthShort:
		return s.ShortRate
	case LengthLong:
		return s.LongRate
	default:
		return s.MediumRate
	}
}
