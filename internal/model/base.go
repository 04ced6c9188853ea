package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel handles ID (UUID) and standard audit trails.
// Rows are never soft-deleted: products end in a terminal status instead.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;" json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Audit actor tracking
	CreatedBy string `gorm:"type:varchar(255)" json:"created_by" db:"created_by"`
	UpdatedBy string `gorm:"type:varchar(255)" json:"updated_by" db:"updated_by"`
}

// BeforeCreate generates the UUID when the caller did not assign one.
func (base *BaseModel) BeforeCreate(tx *gorm.DB) (err error) {
	base.Prepare(time.Now())
	return
}

// Prepare fills id and timestamps for backends without gorm hooks.
func (base *BaseModel) Prepare(now time.Time) {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now.UTC()
	}
	if base.UpdatedAt.IsZero() {
		base.UpdatedAt = base.CreatedAt
	}
}
