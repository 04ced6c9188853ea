package repository

import (
	"context"
	"time"

	"go-fulfillment-ws/internal/model"

	"github.com/google/uuid"
)

func (s *gormStore) CreatePickingTask(ctx context.Context, t *model.PickingTask) error {
	preparePickingTask(t)
	return gormErr("create picking task", s.conn(ctx).Create(t).Error)
}

func (s *gormStore) ListPickingTasks(ctx context.Context, status model.PickingStatus) ([]model.PickingTask, error) {
	q := s.conn(ctx).Preload("Items").Order("due_date ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var tasks []model.PickingTask
	err := q.Find(&tasks).Error
	return tasks, gormErr("list picking tasks", err)
}

func (s *gormStore) AssignedProductIDs(ctx context.Context) (map[uuid.UUID]bool, error) {
	var ids []uuid.UUID
	err := s.conn(ctx).Model(&model.PickingItem{}).Distinct().Pluck("product_id", &ids).Error
	if err != nil {
		return nil, gormErr("assigned product ids", err)
	}
	assigned := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		assigned[id] = true
	}
	return assigned, nil
}

func (s *gormStore) CreateOrder(ctx context.Context, o *model.Order) error {
	prepareOrder(o)
	return gormErr("create order", s.conn(ctx).Create(o).Error)
}

func (s *gormStore) FindOrderByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := s.conn(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		return nil, gormErr("find order", err)
	}
	return &order, nil
}

func (s *gormStore) FindProductOrders(ctx context.Context, productIDs []uuid.UUID) ([]model.ProductOrder, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var links []model.ProductOrder
	err := s.conn(ctx).Table("order_items").
		Select("order_items.product_id, orders.id AS order_id, orders.order_number, orders.customer_name, orders.status").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.product_id IN ?", productIDs).
		Order("orders.created_at ASC").
		Scan(&links).Error
	return links, gormErr("find product orders", err)
}

func (s *gormStore) CreateDeliveryPlan(ctx context.Context, p *model.DeliveryPlan) error {
	prepareDeliveryPlan(p)
	return gormErr("create delivery plan", s.conn(ctx).Create(p).Error)
}

func (s *gormStore) FindDeliveryPlanByID(ctx context.Context, id uuid.UUID) (*model.DeliveryPlan, error) {
	var plan model.DeliveryPlan
	if err := s.conn(ctx).Preload("Items").First(&plan, "id = ?", id).Error; err != nil {
		return nil, gormErr("find delivery plan", err)
	}
	return &plan, nil
}

func (s *gormStore) FindDeliveryPlanByNumber(ctx context.Context, number string) (*model.DeliveryPlan, error) {
	var plan model.DeliveryPlan
	if err := s.conn(ctx).Preload("Items").First(&plan, "plan_number = ?", number).Error; err != nil {
		return nil, gormErr("find delivery plan by number", err)
	}
	return &plan, nil
}

func (s *gormStore) UpdateDeliveryPlanStatus(ctx context.Context, id uuid.UUID, from, to model.DeliveryPlanStatus, notes, updatedBy string) error {
	res := s.conn(ctx).Model(&model.DeliveryPlan{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"notes":      notes,
			"updated_by": updatedBy,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return gormErr("update delivery plan status", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func preparePickingTask(t *model.PickingTask) {
	t.Prepare(time.Now())
	for i := range t.Items {
		if t.Items[i].ID == uuid.Nil {
			t.Items[i].ID = uuid.New()
		}
		t.Items[i].TaskID = t.ID
	}
}

func prepareOrder(o *model.Order) {
	o.Prepare(time.Now())
	for i := range o.Items {
		if o.Items[i].ID == uuid.Nil {
			o.Items[i].ID = uuid.New()
		}
		o.Items[i].OrderID = o.ID
	}
}

func prepareDeliveryPlan(p *model.DeliveryPlan) {
	p.Prepare(time.Now())
	for i := range p.Items {
		if p.Items[i].ID == uuid.Nil {
			p.Items[i].ID = uuid.New()
		}
		p.Items[i].PlanID = p.ID
	}
}
