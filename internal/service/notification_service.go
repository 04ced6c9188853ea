package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-fulfillment-ws/internal/apperr"
	"go-fulfillment-ws/internal/model"

	"go.uber.org/zap"
)

// Publisher delivers an event to one transport (websocket, Kafka, ...).
type Publisher interface {
	Publish(ctx context.Context, evt model.Event) error
}

const publishTimeout = 5 * time.Second

// NotificationDispatcher turns committed state changes into outbound events.
// Delivery is best-effort and never blocks or fails the caller.
type NotificationDispatcher struct {
	publishers []Publisher
	log        *zap.Logger
	wg         sync.WaitGroup
	now        func() time.Time
}

func NewNotificationDispatcher(log *zap.Logger, publishers ...Publisher) *NotificationDispatcher {
	return &NotificationDispatcher{publishers: publishers, log: log, now: time.Now}
}

// EventForTransition decides whether a status change is worth announcing.
func EventForTransition(p *model.Product, from, to model.ProductStatus) (model.Event, bool) {
	evt := model.Event{
		ProductID: p.ID.String(),
		From:      from,
		To:        to,
		Data: map[string]any{
			"sku":  p.SKU,
			"name": p.Name,
		},
	}
	if p.SellerID != "" {
		evt.Recipients = []string{p.SellerID}
	}

	switch {
	case from == model.StatusInspection && to == model.StatusStorage:
		evt.Type = model.EventInspectionComplete
		evt.Title = "Inspection complete"
		evt.Message = fmt.Sprintf("%s passed inspection and is now in storage.", p.Name)
	case to == model.StatusOrdered || to == model.StatusSold:
		evt.Type = model.EventProductSold
		evt.Title = "Item sold"
		evt.Message = fmt.Sprintf("%s has been sold.", p.Name)
	case to == model.StatusReturned:
		evt.Type = model.EventReturnRequest
		evt.Title = "Return received"
		evt.Message = fmt.Sprintf("%s is being returned.", p.Name)
	case to == model.StatusShipped:
		evt.Type = model.EventProductShipped
		evt.Title = "Item shipped"
		evt.Message = fmt.Sprintf("%s has shipped.", p.Name)
	case to == model.StatusDelivered:
		evt.Type = model.EventProductDelivered
		evt.Title = "Item delivered"
		evt.Message = fmt.Sprintf("%s was delivered.", p.Name)
	default:
		return model.Event{}, false
	}
	return evt, true
}

// TransitionOccurred announces a committed transition if it is notable.
func (d *NotificationDispatcher) TransitionOccurred(ctx context.Context, p *model.Product, from, to model.ProductStatus) {
	evt, ok := EventForTransition(p, from, to)
	if !ok {
		return
	}
	d.Dispatch(ctx, evt)
}

// PlanCancelled announces a cancelled delivery plan to its seller.
func (d *NotificationDispatcher) PlanCancelled(ctx context.Context, plan *model.DeliveryPlan, affected int) {
	d.Dispatch(ctx, model.Event{
		Type:       model.EventDeliveryPlanCancelled,
		Title:      "Delivery plan cancelled",
		Message:    fmt.Sprintf("Delivery plan %s was cancelled; %d item(s) marked cancelled.", plan.PlanNumber, affected),
		PlanID:     plan.ID.String(),
		Recipients: []string{plan.SellerID},
		Data: map[string]any{
			"plan_number":       plan.PlanNumber,
			"affected_products": affected,
		},
	})
}

// Dispatch fans evt out to every publisher in the background.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, evt model.Event) {
	if d == nil || len(d.publishers) == 0 {
		return
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = d.now().UTC()
	}
	if evt.CorrelationID == "" {
		evt.CorrelationID = apperr.CorrelationID(ctx)
	}
	// the request context ends with the response; keep its values only
	base := context.WithoutCancel(ctx)

	for _, pub := range d.publishers {
		d.wg.Add(1)
		go func(pub Publisher) {
			defer d.wg.Done()
			pctx, cancel := context.WithTimeout(base, publishTimeout)
			defer cancel()
			if err := pub.Publish(pctx, evt); err != nil {
				d.log.Warn("notification not delivered",
					zap.String("event", string(evt.Type)),
					zap.String("publisher", fmt.Sprintf("%T", pub)),
					zap.String("correlation_id", evt.CorrelationID),
					zap.Error(err))
			}
		}(pub)
	}
}

// Wait blocks until in-flight deliveries finish; used at shutdown.
func (d *NotificationDispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
