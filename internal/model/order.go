package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

type Order struct {
	BaseModel
	OrderNumber  string      `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_number" db:"order_number"`
	CustomerName string      `gorm:"type:varchar(255)" json:"customer_name" db:"customer_name"`
	Status       OrderStatus `gorm:"type:varchar(20);index;not null" json:"status" db:"status"`
	Items        []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key;" json:"id" db:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;index;not null" json:"order_id" db:"order_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;index;not null" json:"product_id" db:"product_id"`
	Quantity  int             `gorm:"not null;default:1" json:"quantity" db:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(14,2)" json:"price" db:"price"`
}

// ProductOrder links a product to the order that sold it.
type ProductOrder struct {
	ProductID    uuid.UUID   `db:"product_id"`
	OrderID      uuid.UUID   `db:"order_id"`
	OrderNumber  string      `db:"order_number"`
	CustomerName string      `db:"customer_name"`
	Status       OrderStatus `db:"status"`
}
