package repository

import (
	"context"
	"sync"
	"time"

	"go-fulfillment-ws/internal/model"

	"github.com/google/uuid"
)

func (s *gormStore) CreateMovement(ctx context.Context, m *model.ProductMovement) error {
	prepareMovement(m)
	return gormErr("create movement", s.conn(ctx).Create(m).Error)
}

func (s *gormStore) ListMovements(ctx context.Context, productID uuid.UUID) ([]model.ProductMovement, error) {
	var movements []model.ProductMovement
	err := s.conn(ctx).Where("product_id = ?", productID).Order("created_at ASC").Find(&movements).Error
	return movements, gormErr("list movements", err)
}

func (s *gormStore) ListMovementsSince(ctx context.Context, since time.Time) ([]model.ProductMovement, error) {
	var movements []model.ProductMovement
	err := s.conn(ctx).Where("created_at >= ?", since.UTC()).Order("created_at ASC").Find(&movements).Error
	return movements, gormErr("list movements since", err)
}

func (s *gormStore) AppendActivity(ctx context.Context, r *model.ActivityRecord) error {
	prepareActivity(r)
	return gormErr("append activity", s.conn(ctx).Create(r).Error)
}

func (s *gormStore) ListActivity(ctx context.Context, subjectID uuid.UUID) ([]model.ActivityRecord, error) {
	var records []model.ActivityRecord
	err := s.conn(ctx).
		Where("product_id = ? OR order_id = ?", subjectID, subjectID).
		Order("created_at ASC").
		Find(&records).Error
	return records, gormErr("list activity", err)
}

func prepareMovement(m *model.ProductMovement) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = ledgerClock.next()
	}
}

// prepareActivity assigns id and a strictly increasing timestamp so that
// records appended in one process read back in append order.
func prepareActivity(r *model.ActivityRecord) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = ledgerClock.next()
	}
}

type monotonicClock struct {
	mu   sync.Mutex
	last time.Time
}

var ledgerClock = &monotonicClock{}

// next returns now at microsecond precision, never repeating a value.
func (c *monotonicClock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UTC().Truncate(time.Microsecond)
	if !now.After(c.last) {
		now = c.last.Add(time.Microsecond)
	}
	c.last = now
	return now
}
