package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MonthlyServiceStat is the incrementally maintained rollup for one service
// type in one calendar month. Keyed uniquely by (service_type_id, year, month);
// it is never rebuilt from raw usages.
type MonthlyServiceStat struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StoreID       primitive.ObjectID `bson:"store_id" json:"store_id"`
	ServiceTypeID primitive.ObjectID `bson:"service_type_id" json:"service_type_id"`
	Year          int                `bson:"year" json:"year"`
	Month         int                `bson:"month" json:"month"`
	TotalUsage    float64            `bson:"total_usage" json:"total_usage"`
	UsageCount    int                `bson:"usage_count" json:"usage_count"`
	AverageUsage  float64            `bson:"average_usage" json:"average_usage"`
	SeasonFactor  *float64           `bson:"season_factor,omitempty" json:"season_factor,omitempty"`
	PredictedNext *float64           `bson:"predicted_next,omitempty" json:"predicted_next,omitempty"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}
