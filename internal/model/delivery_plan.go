package model

import "github.com/google/uuid"

type DeliveryPlanStatus string

const (
	PlanPending    DeliveryPlanStatus = "Pending"
	PlanProcessing DeliveryPlanStatus = "Processing"
	PlanShipped    DeliveryPlanStatus = "Shipped"
	PlanCancelled  DeliveryPlanStatus = "Cancelled"
)

// PlanNumberPrefix distinguishes human plan numbers from ids in lookups.
const PlanNumberPrefix = "DP-"

// NoCancelReason is recorded when a seller cancels without saying why.
const NoCancelReason = "no reason given"

// DeliveryPlan is a seller's announcement of items being sent to the warehouse.
type DeliveryPlan struct {
	BaseModel
	PlanNumber string             `gorm:"type:varchar(64);uniqueIndex;not null" json:"plan_number" db:"plan_number"`
	SellerID   string             `gorm:"type:varchar(255);index;not null" json:"seller_id" db:"seller_id"`
	Status     DeliveryPlanStatus `gorm:"type:varchar(20);index;not null" json:"status" db:"status"`
	Notes      string             `gorm:"type:text" json:"notes" db:"notes"`
	Items      []DeliveryPlanItem `gorm:"foreignKey:PlanID" json:"items"`
}

type DeliveryPlanItem struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key;" json:"id" db:"id"`
	PlanID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"plan_id" db:"plan_id"`
	Name      string     `gorm:"type:varchar(255)" json:"name" db:"name"`
	Quantity  int        `gorm:"not null;default:1" json:"quantity" db:"quantity"`
	ProductID *uuid.UUID `gorm:"type:uuid;index" json:"product_id,omitempty" db:"product_id"`
}

// CancellationResult is returned to the caller after a plan is cancelled.
type CancellationResult struct {
	Plan             *DeliveryPlan `json:"plan"`
	AffectedProducts int           `json:"affected_products"`
}
