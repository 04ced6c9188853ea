package repository

import (
	"context"

	"go-fulfillment-ws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

func (s *gormStore) CreateLocation(ctx context.Context, l *model.Location) error {
	return gormErr("create location", s.conn(ctx).Create(l).Error)
}

func (s *gormStore) FindLocationByID(ctx context.Context, id uuid.UUID) (*model.Location, error) {
	var loc model.Location
	if err := s.conn(ctx).First(&loc, "id = ?", id).Error; err != nil {
		return nil, gormErr("find location", err)
	}
	return &loc, nil
}

func (s *gormStore) FindLocationByCode(ctx context.Context, code string) (*model.Location, error) {
	var loc model.Location
	if err := s.conn(ctx).First(&loc, "code = ?", code).Error; err != nil {
		return nil, gormErr("find location by code", err)
	}
	return &loc, nil
}

// LockLocation takes SELECT ... FOR UPDATE so capacity checks serialise per shelf.
func (s *gormStore) LockLocation(ctx context.Context, id uuid.UUID) (*model.Location, error) {
	var loc model.Location
	err := s.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&loc, "id = ?", id).Error
	if err != nil {
		return nil, gormErr("lock location", err)
	}
	return &loc, nil
}

func (s *gormStore) ListLocations(ctx context.Context) ([]model.Location, error) {
	var locations []model.Location
	err := s.conn(ctx).Order("code ASC").Find(&locations).Error
	return locations, gormErr("list locations", err)
}

func (s *gormStore) CountProductsAtLocation(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := s.conn(ctx).Model(&model.Product{}).Where("current_location_id = ?", id).Count(&count).Error
	return count, gormErr("count products at location", err)
}

func (s *gormStore) CountProductsByLocation(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []struct {
		CurrentLocationID uuid.UUID
		Total             int64
	}
	err := s.conn(ctx).Model(&model.Product{}).
		Select("current_location_id, COUNT(*) AS total").
		Where("current_location_id IS NOT NULL").
		Group("current_location_id").
		Scan(&rows).Error
	if err != nil {
		return nil, gormErr("count products by location", err)
	}
	counts := make(map[uuid.UUID]int64, len(rows))
	for _, r := range rows {
		counts[r.CurrentLocationID] = r.Total
	}
	return counts, nil
}
