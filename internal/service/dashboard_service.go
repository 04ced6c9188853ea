package service

import (
	"context"
	"time"

	"go-fulfillment-ws/internal/apperr"
	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type DashboardService interface {
	GetMovement(ctx context.Context, days int) ([]model.MovementData, error)
	GetDashboardStats(ctx context.Context) (*model.DashboardStats, error)
}

type dashboardService struct {
	repo      repository.FulfillmentRepository
	locations LocationAllocator
	log       *zap.Logger
	now       func() time.Time
}

func NewDashboardService(repo repository.FulfillmentRepository, locations LocationAllocator, log *zap.Logger) DashboardService {
	return &dashboardService{repo: repo, locations: locations, log: log, now: time.Now}
}

// GetMovement buckets shelf movements per UTC day, oldest first, with
// empty days included.
func (s *dashboardService) GetMovement(ctx context.Context, days int) ([]model.MovementData, error) {
	ctx, cid := apperr.Ensure(ctx)
	if days <= 0 {
		days = 7
	}
	end := s.now().UTC()
	start := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))

	movements, err := s.repo.ListMovementsSince(ctx, start)
	if err != nil {
		return nil, fail(s.log, "dashboard.movement", cid, err)
	}
	counts := make(map[string]int, days)
	for _, m := range movements {
		counts[m.CreatedAt.UTC().Format(time.DateOnly)]++
	}
	data := make([]model.MovementData, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format(time.DateOnly)
		data = append(data, model.MovementData{Date: day, Moves: counts[day]})
	}
	return data, nil
}

// GetDashboardStats counts products by status, shelf occupancy and the
// value of stock that has not left the warehouse.
func (s *dashboardService) GetDashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	ctx, cid := apperr.Ensure(ctx)
	byStatus, err := s.repo.CountProductsByStatus(ctx)
	if err != nil {
		return nil, fail(s.log, "dashboard.stats", cid, err)
	}
	occupancy, err := s.locations.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.ListProducts(ctx, repository.ProductFilter{})
	if err != nil {
		return nil, fail(s.log, "dashboard.stats", cid, err)
	}

	stats := &model.DashboardStats{
		ByStatus:       byStatus,
		Locations:      occupancy,
		TotalValuation: decimal.Zero,
	}
	for _, n := range byStatus {
		stats.TotalProducts += n
	}
	for _, o := range occupancy {
		if o.Available == 0 {
			stats.FullLocations++
		}
	}
	for _, p := range products {
		switch p.Status {
		case model.StatusShipped, model.StatusDelivered, model.StatusCancelled:
			continue
		}
		stats.TotalValuation = stats.TotalValuation.Add(p.Price)
	}
	return stats, nil
}
