package model

import "time"

type EventType string

const (
	EventInspectionComplete    EventType = "inspection_complete"
	EventProductSold           EventType = "product_sold"
	EventReturnRequest         EventType = "return_request"
	EventProductShipped        EventType = "product_shipped"
	EventProductDelivered      EventType = "product_delivered"
	EventDeliveryPlanCancelled EventType = "delivery_plan_cancelled"
	EventStatusChanged         EventType = "status_changed"
)

// Event is an outbound notification. Recipients empty means broadcast.
type Event struct {
	Type          EventType      `json:"type"`
	Title         string         `json:"title"`
	Message       string         `json:"message"`
	ProductID     string         `json:"product_id,omitempty"`
	PlanID        string         `json:"plan_id,omitempty"`
	From          ProductStatus  `json:"from,omitempty"`
	To            ProductStatus  `json:"to,omitempty"`
	Recipients    []string       `json:"recipients,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
}
