package repository

import (
	"context"
	"time"

	"go-fulfillment-ws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *gormStore) CreateProduct(ctx context.Context, p *model.Product) error {
	if p.Version == 0 {
		p.Version = 1
	}
	return gormErr("create product", s.conn(ctx).Omit("CurrentLocation").Create(p).Error)
}

func (s *gormStore) FindProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := s.conn(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, gormErr("find product", err)
	}
	return &product, nil
}

func (s *gormStore) FindProductBySKU(ctx context.Context, sku string) (*model.Product, error) {
	var product model.Product
	if err := s.conn(ctx).First(&product, "sku = ?", sku).Error; err != nil {
		return nil, gormErr("find product by sku", err)
	}
	return &product, nil
}

func (s *gormStore) FindProductsBySKUSuffix(ctx context.Context, suffix string) ([]model.Product, error) {
	var products []model.Product
	err := s.conn(ctx).Where("sku LIKE ? ESCAPE '\\'", "%"+escapeLike(suffix)).Order("created_at ASC").Find(&products).Error
	return products, gormErr("find products by sku suffix", err)
}

func (s *gormStore) ListProducts(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	q := s.conn(ctx).Order("created_at ASC")
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.SellerID != "" {
		q = q.Where("seller_id = ?", filter.SellerID)
	}
	var products []model.Product
	err := q.Find(&products).Error
	return products, gormErr("list products", err)
}

func (s *gormStore) FindProductsByDeliveryPlan(ctx context.Context, planID uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	err := s.conn(ctx).Where("meta_delivery_plan_id = ?", planID).Order("created_at ASC").Find(&products).Error
	return products, gormErr("find products by plan", err)
}

func (s *gormStore) SaveProduct(ctx context.Context, p *model.Product) error {
	now := time.Now().UTC()
	res := s.conn(ctx).Model(&model.Product{}).
		Where("id = ? AND version = ?", p.ID, p.Version).
		Updates(map[string]interface{}{
			"sku":                        p.SKU,
			"name":                       p.Name,
			"category":                   p.Category,
			"status":                     p.Status,
			"condition":                  p.Condition,
			"seller_id":                  p.SellerID,
			"price":                      p.Price,
			"current_location_id":        p.CurrentLocationID,
			"meta_inspection_completed":  p.Metadata.InspectionCompleted,
			"meta_photography_completed": p.Metadata.PhotographyCompleted,
			"meta_delivery_plan_id":      p.Metadata.DeliveryPlanID,
			"meta_notes":                 p.Metadata.Notes,
			"updated_by":                 p.UpdatedBy,
			"updated_at":                 now,
			"version":                    gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return gormErr("save product", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	p.Version++
	p.UpdatedAt = now
	return nil
}

func (s *gormStore) CountProductsByStatus(ctx context.Context) (map[model.ProductStatus]int64, error) {
	var rows []struct {
		Status model.ProductStatus
		Total  int64
	}
	err := s.conn(ctx).Model(&model.Product{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, gormErr("count products by status", err)
	}
	counts := make(map[model.ProductStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}
