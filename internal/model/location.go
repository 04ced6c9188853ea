package model

import (
	"time"

	"github.com/google/uuid"
)

type Location struct {
	BaseModel
	Code     string `gorm:"type:varchar(32);uniqueIndex;not null" json:"code" db:"code" validate:"required,max=32"`
	Name     string `gorm:"type:varchar(255)" json:"name" db:"name"`
	Zone     string `gorm:"type:varchar(32)" json:"zone" db:"zone"`
	Capacity int    `gorm:"not null;default:1" json:"capacity" db:"capacity" validate:"gte=1"`
}

// LocationOccupancy is a location with its live product count.
type LocationOccupancy struct {
	Location
	DisplayCode  string `json:"display_code"`
	ProductCount int64  `json:"product_count"`
	Available    int64  `json:"available"`
}

// ProductMovement is the physical movement history, separate from the activity ledger.
type ProductMovement struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key;" json:"id" db:"id"`
	ProductID      uuid.UUID  `gorm:"type:uuid;index;not null" json:"product_id" db:"product_id"`
	FromLocationID *uuid.UUID `gorm:"type:uuid" json:"from_location_id,omitempty" db:"from_location_id"`
	ToLocationID   uuid.UUID  `gorm:"type:uuid;not null" json:"to_location_id" db:"to_location_id"`
	MovedBy        string     `gorm:"type:varchar(255)" json:"moved_by" db:"moved_by"`
	Notes          string     `gorm:"type:text" json:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}
