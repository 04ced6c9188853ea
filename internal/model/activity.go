package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActivityType is the fixed vocabulary of ledger events.
type ActivityType string

const (
	ActivityIntake          ActivityType = "intake"
	ActivityInspection      ActivityType = "inspection"
	ActivityPhotography     ActivityType = "photography"
	ActivityPriceChanged    ActivityType = "price_changed"
	ActivityStatusUpdated   ActivityType = "status_updated"
	ActivityLocationMoved   ActivityType = "location_moved"
	ActivityOrderReceived   ActivityType = "order_received"
	ActivityPickingAssigned ActivityType = "picking_assigned"
	ActivityCancelled       ActivityType = "cancelled"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityIntake, ActivityInspection, ActivityPhotography, ActivityPriceChanged,
		ActivityStatusUpdated, ActivityLocationMoved, ActivityOrderReceived,
		ActivityPickingAssigned, ActivityCancelled:
		return true
	}
	return false
}

// ActivityMetadata carries the structured detail of an event.
type ActivityMetadata struct {
	PreviousStatus ProductStatus `json:"previous_status,omitempty"`
	NewStatus      ProductStatus `json:"new_status,omitempty"`
	Reason         string        `json:"reason,omitempty"`
	FromLocationID *uuid.UUID    `json:"from_location_id,omitempty"`
	ToLocationID   *uuid.UUID    `json:"to_location_id,omitempty"`
	LocationCode   string        `json:"location_code,omitempty"`
	DeliveryPlanID *uuid.UUID    `json:"delivery_plan_id,omitempty"`
	OldPrice       string        `json:"old_price,omitempty"`
	NewPrice       string        `json:"new_price,omitempty"`
	TaskID         *uuid.UUID    `json:"task_id,omitempty"`
}

// Value stores the metadata as JSON text.
func (m ActivityMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *ActivityMetadata) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = ActivityMetadata{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	}
	return fmt.Errorf("activity metadata: unsupported type %T", src)
}

// ActivityRecord is one immutable ledger entry.
type ActivityRecord struct {
	ID          uuid.UUID        `gorm:"type:uuid;primary_key;" json:"id" db:"id"`
	Type        ActivityType     `gorm:"type:varchar(32);index;not null" json:"type" db:"type"`
	Description string           `gorm:"type:text" json:"description" db:"description"`
	ActorID     *string          `gorm:"type:varchar(255)" json:"actor_id" db:"actor_id"`
	ProductID   *uuid.UUID       `gorm:"type:uuid;index" json:"product_id,omitempty" db:"product_id"`
	OrderID     *uuid.UUID       `gorm:"type:uuid;index" json:"order_id,omitempty" db:"order_id"`
	Metadata    ActivityMetadata `gorm:"type:text" json:"metadata" db:"metadata"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at" db:"created_at"`
}

// ActivityStats is derived from a subject's history; nothing extra is stored.
type ActivityStats struct {
	Total     int                  `json:"total"`
	LastEvent *ActivityRecord      `json:"last_event"`
	ByType    map[ActivityType]int `json:"by_type"`
}
