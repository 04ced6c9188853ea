package service

import (
	"context"
	"errors"
	"fmt"

	"go-fulfillment-ws/internal/apperr"
	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type OrderItemInput struct {
	ProductID uuid.UUID        `json:"product_id" validate:"uuid_required"`
	Quantity  int              `json:"quantity" validate:"gte=0"`
	Price     *decimal.Decimal `json:"price"`
}

type CreateOrderInput struct {
	OrderNumber  string           `json:"order_number" validate:"required,max=64"`
	CustomerName string           `json:"customer_name" validate:"max=255"`
	Status       string           `json:"status" validate:"omitempty,order_status"`
	Items        []OrderItemInput `json:"items" validate:"required,min=1,dive"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, in CreateOrderInput, actor model.Actor) (*model.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
}

type orderService struct {
	repo   repository.FulfillmentRepository
	ledger ActivityLedger
	log    *zap.Logger
}

func NewOrderService(repo repository.FulfillmentRepository, ledger ActivityLedger, log *zap.Logger) OrderService {
	return &orderService{repo: repo, ledger: ledger, log: log}
}

func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput, actor model.Actor) (order *model.Order, err error) {
	ctx, cid := apperr.Ensure(ctx)
	ctx, span := startSpan(ctx, "OrderService.CreateOrder", attribute.String("order.number", in.OrderNumber))
	defer func() { endSpan(span, err) }()

	if !actor.Is(model.RoleStaff, model.RoleAdmin, model.RoleSystem) {
		return nil, fail(s.log, "order.create", cid, apperr.Forbidden("You are not allowed to record orders."))
	}
	if err := validate(&in); err != nil {
		return nil, fail(s.log, "order.create", cid, err)
	}
	status := model.OrderStatus(in.Status)
	if status == "" {
		status = model.OrderProcessing
	}

	order = &model.Order{OrderNumber: in.OrderNumber, CustomerName: in.CustomerName, Status: status}
	order.CreatedBy = actor.AuditName()
	order.UpdatedBy = actor.AuditName()

	err = s.repo.WithinTx(ctx, func(tx repository.Store) error {
		seen := make(map[uuid.UUID]bool, len(in.Items))
		products := make([]*model.Product, 0, len(in.Items))
		for _, it := range in.Items {
			if seen[it.ProductID] {
				continue
			}
			seen[it.ProductID] = true
			p, err := tx.FindProductByID(ctx, it.ProductID)
			if err != nil {
				return translate(err, errProductNotFound)
			}
			if !p.Status.Orderable() {
				return apperr.Validation(fmt.Sprintf("Product %s is %s and cannot be ordered.", p.SKU, p.Status))
			}
			qty := it.Quantity
			if qty == 0 {
				qty = 1
			}
			price := p.Price
			if it.Price != nil {
				price = *it.Price
			}
			order.Items = append(order.Items, model.OrderItem{ProductID: p.ID, Quantity: qty, Price: price})
			products = append(products, p)
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.Validation(fmt.Sprintf("Order %s already exists.", in.OrderNumber))
			}
			return err
		}
		orderID := order.ID
		for _, p := range products {
			rec := actorRecord(model.ActivityOrderReceived, actor, &p.ID,
				fmt.Sprintf("Order %s received", order.OrderNumber))
			rec.OrderID = &orderID
			if err := s.ledger.Record(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fail(s.log, "order.create", cid, err, zap.String("order_number", in.OrderNumber))
	}
	s.log.Info("order recorded",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Int("items", len(order.Items)),
		zap.String("correlation_id", cid))
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	ctx, cid := apperr.Ensure(ctx)
	o, err := s.repo.FindOrderByID(ctx, id)
	if err != nil {
		return nil, fail(s.log, "order.get", cid, translate(err, errOrderNotFound))
	}
	return o, nil
}
