package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductMetadata is the typed side-record for workflow flags and plan linkage.
type ProductMetadata struct {
	InspectionCompleted  bool       `gorm:"default:false" json:"inspection_completed"`
	PhotographyCompleted bool       `gorm:"default:false" json:"photography_completed"`
	DeliveryPlanID       *uuid.UUID `gorm:"type:uuid;index" json:"delivery_plan_id,omitempty"`
	Notes                string     `gorm:"type:text" json:"notes,omitempty"`
}

type Product struct {
	BaseModel
	SKU       string           `gorm:"type:varchar(64);uniqueIndex;not null" json:"sku" validate:"required,max=64"`
	Name      string           `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Category  ProductCategory  `gorm:"type:varchar(20)" json:"category"`
	Status    ProductStatus    `gorm:"type:varchar(20);index;not null" json:"status"`
	Condition ProductCondition `gorm:"type:varchar(20)" json:"condition"`
	SellerID  string           `gorm:"type:varchar(255);index" json:"seller_id"`
	Price     decimal.Decimal  `gorm:"type:numeric(14,2);default:0" json:"price"`

	CurrentLocationID *uuid.UUID `gorm:"type:uuid;index" json:"current_location_id,omitempty"`
	CurrentLocation   *Location  `gorm:"foreignKey:CurrentLocationID;references:ID" json:"current_location,omitempty"`

	Metadata ProductMetadata `gorm:"embedded;embeddedPrefix:meta_" json:"metadata"`

	// Version is bumped on every write; writes are conditional on it.
	Version int64 `gorm:"not null;default:1" json:"version"`
}

// OwnedBy is true when the seller listed the item.
func (p *Product) OwnedBy(a Actor) bool {
	return a.Role == RoleSeller && a.ID != "" && p.SellerID == a.ID
}
