package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityCategory groups audit entries by the surface that produced them.
type ActivityCategory string

const (
	ActivityInventory  ActivityCategory = "inventory"
	ActivityUsage      ActivityCategory = "usage"
	ActivityCatalog    ActivityCategory = "catalog"
	ActivityOnboarding ActivityCategory = "onboarding"
)

// Activity is an append-only audit record. Metadata is an open map of string
// scalars rather than an untyped blob, so entries stay queryable.
type Activity struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StoreID  primitive.ObjectID `bson:"store_id" json:"store_id"`
	ActorID  primitive.ObjectID `bson:"actor_id" json:"actor_id"`
	Category ActivityCategory   `bson:"category" json:"category"`
	Action   string             `bson:"action" json:"action"`
	Metadata map[string]string  `bson:"metadata,omitempty" json:"metadata,omitempty"`
	At       time.Time          `bson:"at" json:"at"`
}
