package model

import (
	"time"

	"github.com/google/uuid"
)

type PickingStatus string

const (
	PickingPending    PickingStatus = "pending"
	PickingInProgress PickingStatus = "in_progress"
	PickingCompleted  PickingStatus = "completed"
	PickingOnHold     PickingStatus = "on_hold"
)

func (s PickingStatus) Valid() bool {
	switch s {
	case PickingPending, PickingInProgress, PickingCompleted, PickingOnHold:
		return true
	}
	return false
}

type PickingPriority string

const (
	PriorityUrgent PickingPriority = "urgent"
	PriorityHigh   PickingPriority = "high"
	PriorityNormal PickingPriority = "normal"
	PriorityLow    PickingPriority = "low"
)

func (p PickingPriority) Valid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// DerivedTaskPrefix marks tasks synthesized from product state.
const (
	DerivedTaskPrefix = "dynamic-"
	DerivedItemPrefix = "item-"
)

// PickingTask is a persisted work item created explicitly by staff.
type PickingTask struct {
	BaseModel
	OrderID      *uuid.UUID      `gorm:"type:uuid;index" json:"order_id,omitempty" db:"order_id"`
	CustomerName string          `gorm:"type:varchar(255)" json:"customer_name" db:"customer_name"`
	Status       PickingStatus   `gorm:"type:varchar(20);index;not null" json:"status" db:"status"`
	Priority     PickingPriority `gorm:"type:varchar(20);not null" json:"priority" db:"priority"`
	Assignee     string          `gorm:"type:varchar(255)" json:"assignee,omitempty" db:"assignee"`
	DueDate      time.Time       `json:"due_date" db:"due_date"`
	Items        []PickingItem   `gorm:"foreignKey:TaskID" json:"items"`
}

type PickingItem struct {
	ID             uuid.UUID     `gorm:"type:uuid;primary_key;" json:"id" db:"id"`
	TaskID         uuid.UUID     `gorm:"type:uuid;index;not null" json:"task_id" db:"task_id"`
	ProductID      uuid.UUID     `gorm:"type:uuid;index;not null" json:"product_id" db:"product_id"`
	ProductName    string        `gorm:"type:varchar(255)" json:"product_name" db:"product_name"`
	SKU            string        `gorm:"type:varchar(64)" json:"sku" db:"sku"`
	LocationCode   string        `gorm:"type:varchar(32)" json:"location_code" db:"location_code"`
	Quantity       int           `gorm:"not null;default:1" json:"quantity" db:"quantity"`
	PickedQuantity int           `gorm:"not null;default:0" json:"picked_quantity" db:"picked_quantity"`
	Status         PickingStatus `gorm:"type:varchar(20)" json:"status" db:"status"`
}

// TaskView is one entry of the unified work queue, persisted or derived.
type TaskView struct {
	ID           string          `json:"id"`
	Derived      bool            `json:"derived"`
	OrderID      string          `json:"order_id,omitempty"`
	CustomerName string          `json:"customer_name"`
	Status       PickingStatus   `json:"status"`
	Priority     PickingPriority `json:"priority"`
	Assignee     string          `json:"assignee,omitempty"`
	DueDate      time.Time       `json:"due_date"`
	Items        []TaskItemView  `json:"items"`
}

type TaskItemView struct {
	ID             string        `json:"id"`
	ProductID      string        `json:"product_id"`
	ProductName    string        `json:"product_name"`
	SKU            string        `json:"sku"`
	Location       string        `json:"location"`
	LocationName   string        `json:"location_name"`
	Quantity       int           `json:"quantity"`
	PickedQuantity int           `json:"picked_quantity"`
	Status         PickingStatus `json:"status"`
}

type PickingStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

// LocationSummary tells operators which shelves have pickable items.
type LocationSummary struct {
	Code            string `json:"code"`
	Name            string `json:"name"`
	Zone            string `json:"zone"`
	ProductCount    int64  `json:"product_count"`
	HasPickingItems bool   `json:"has_picking_items"`
}

// PickingQueue is the full listPickingTasks result.
type PickingQueue struct {
	Tasks     []TaskView        `json:"tasks"`
	Stats     PickingStats      `json:"stats"`
	Locations []LocationSummary `json:"locations"`
}
