package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is the tenant boundary: every other entity belongs to exactly one store.
type Store struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Code      string             `bson:"code" json:"code"` // unique join code handed to staff
	Address   string             `bson:"address,omitempty" json:"address,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// UserRole distinguishes store owners from regular technicians.
type UserRole string

const (
	RoleOwner UserRole = "owner"
	RoleStaff UserRole = "staff"
)

// User is a staff account scoped to a single store.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StoreID      primitive.ObjectID `bson:"store_id" json:"store_id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         UserRole           `bson:"role" json:"role"`
	LastLogin    *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}
