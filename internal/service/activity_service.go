package service

import (
	"context"
	"errors"

	"go-fulfillment-ws/internal/apperr"
	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ActivityLedger is the append-only audit log of products and orders.
type ActivityLedger interface {
	// Record appends one entry through store, which is normally the caller's transaction.
	Record(ctx context.Context, store repository.Store, rec *model.ActivityRecord) error
	Query(ctx context.Context, subjectID uuid.UUID) ([]model.ActivityRecord, error)
	Stats(ctx context.Context, subjectID uuid.UUID) (*model.ActivityStats, error)
}

type activityLedger struct {
	repo repository.FulfillmentRepository
	log  *zap.Logger
}

func NewActivityLedger(repo repository.FulfillmentRepository, log *zap.Logger) ActivityLedger {
	return &activityLedger{repo: repo, log: log}
}

func (l *activityLedger) Record(ctx context.Context, store repository.Store, rec *model.ActivityRecord) error {
	if !rec.Type.Valid() {
		return apperr.Validation("Unknown activity type: " + string(rec.Type))
	}
	if rec.ProductID == nil && rec.OrderID == nil {
		return apperr.Validation("An activity record needs a product or an order.")
	}
	if err := store.AppendActivity(ctx, rec); err != nil {
		return translate(err, nil)
	}
	return nil
}

func (l *activityLedger) Query(ctx context.Context, subjectID uuid.UUID) (records []model.ActivityRecord, err error) {
	ctx, cid := apperr.Ensure(ctx)
	ctx, span := startSpan(ctx, "ActivityLedger.Query", attribute.String("subject.id", subjectID.String()))
	defer func() { endSpan(span, err) }()

	if subjectID == uuid.Nil {
		return nil, fail(l.log, "activity.query", cid, apperr.Validation("A subject id is required."))
	}
	if err := l.subjectExists(ctx, subjectID); err != nil {
		return nil, fail(l.log, "activity.query", cid, err, zap.String("subject_id", subjectID.String()))
	}
	records, err = l.repo.ListActivity(ctx, subjectID)
	if err != nil {
		return nil, fail(l.log, "activity.query", cid, err, zap.String("subject_id", subjectID.String()))
	}
	return records, nil
}

func (l *activityLedger) subjectExists(ctx context.Context, id uuid.UUID) error {
	_, err := l.repo.FindProductByID(ctx, id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if _, err := l.repo.FindOrderByID(ctx, id); err != nil {
		return translate(err, errSubjectNotFound)
	}
	return nil
}

func (l *activityLedger) Stats(ctx context.Context, subjectID uuid.UUID) (*model.ActivityStats, error) {
	records, err := l.Query(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	stats := &model.ActivityStats{
		Total:  len(records),
		ByType: make(map[model.ActivityType]int),
	}
	for _, r := range records {
		stats.ByType[r.Type]++
	}
	if n := len(records); n > 0 {
		last := records[n-1]
		stats.LastEvent = &last
	}
	return stats, nil
}

// actorRecord starts an activity record attributed to actor.
func actorRecord(typ model.ActivityType, actor model.Actor, productID *uuid.UUID, description string) *model.ActivityRecord {
	return &model.ActivityRecord{
		Type:        typ,
		Description: description,
		ActorID:     actor.RecordedID(),
		ProductID:   productID,
	}
}
