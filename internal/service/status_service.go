package service

import (
	"context"
	"fmt"
	"strings"

	"go-fulfillment-ws/internal/apperr"
	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type TransitionInput struct {
	ProductID   uuid.UUID
	Target      model.ProductStatus
	Actor       model.Actor
	Reason      string
	LocationRef string
}

// StatusStateMachine applies legal product status transitions.
type StatusStateMachine interface {
	Transition(ctx context.Context, in TransitionInput) (*model.Product, error)
}

type statusStateMachine struct {
	repo       repository.FulfillmentRepository
	allocator  LocationAllocator
	ledger     ActivityLedger
	dispatcher *NotificationDispatcher
	log        *zap.Logger
}

func NewStatusStateMachine(repo repository.FulfillmentRepository, allocator LocationAllocator, ledger ActivityLedger, dispatcher *NotificationDispatcher, log *zap.Logger) StatusStateMachine {
	return &statusStateMachine{
		repo:       repo,
		allocator:  allocator,
		ledger:     ledger,
		dispatcher: dispatcher,
		log:        log,
	}
}

func (m *statusStateMachine) Transition(ctx context.Context, in TransitionInput) (product *model.Product, err error) {
	ctx, cid := apperr.Ensure(ctx)
	ctx, span := startSpan(ctx, "StatusStateMachine.Transition",
		attribute.String("product.id", in.ProductID.String()),
		attribute.String("status.target", string(in.Target)))
	defer func() { endSpan(span, err) }()

	fields := []zap.Field{
		zap.String("product_id", in.ProductID.String()),
		zap.String("target", string(in.Target)),
		zap.String("actor_id", in.Actor.ID),
		zap.String("actor_role", string(in.Actor.Role)),
	}

	if in.ProductID == uuid.Nil {
		return nil, fail(m.log, "status.transition", cid, apperr.Validation("A product id is required."), fields...)
	}
	if !in.Target.Valid() {
		return nil, fail(m.log, "status.transition", cid, apperr.Validation(fmt.Sprintf("Unknown status %q.", in.Target)), fields...)
	}
	if !in.Actor.CanTransition(in.Target) {
		return nil, fail(m.log, "status.transition", cid, apperr.ForbiddenTransition("ROLE_NOT_PERMITTED",
			fmt.Sprintf("Your role (%s) may not move products to %s.", in.Actor.Role, in.Target)), fields...)
	}

	var (
		previous model.ProductStatus
		changed  bool
	)
	err = m.repo.WithinTx(ctx, func(tx repository.Store) error {
		// re-read inside the transaction; the version check on save catches races
		p, err := tx.FindProductByID(ctx, in.ProductID)
		if err != nil {
			return translate(err, errProductNotFound)
		}
		if in.Actor.Role == model.RoleSeller && !p.OwnedBy(in.Actor) {
			return notFound(errProductNotFound)
		}
		product = p
		previous = p.Status

		if p.Status == in.Target {
			return nil
		}
		if !p.Status.CanTransitionTo(in.Target) {
			return apperr.ForbiddenTransition("INVALID_TRANSITION",
				fmt.Sprintf("A product in %s cannot move to %s.", p.Status, in.Target))
		}

		meta := model.ActivityMetadata{
			PreviousStatus: previous,
			NewStatus:      in.Target,
			Reason:         strings.TrimSpace(in.Reason),
		}
		if in.LocationRef != "" {
			from := p.CurrentLocationID
			loc, moved, err := m.allocator.PlaceWithin(ctx, tx, p, in.LocationRef, in.Actor, in.Reason)
			if err != nil {
				return err
			}
			if moved {
				to := loc.ID
				meta.FromLocationID = from
				meta.ToLocationID = &to
				meta.LocationCode = loc.Code
			}
		} else if in.Target.RequiresLocation() && p.CurrentLocationID == nil {
			return apperr.Validation(fmt.Sprintf("A location is required to move a product to %s.", in.Target))
		}

		p.Status = in.Target
		p.UpdatedBy = in.Actor.AuditName()
		if err := tx.SaveProduct(ctx, p); err != nil {
			return translate(err, errProductNotFound)
		}

		rec := actorRecord(model.ActivityStatusUpdated, in.Actor, &p.ID,
			fmt.Sprintf("Status changed from %s to %s", previous, in.Target))
		rec.Metadata = meta
		if err := m.ledger.Record(ctx, tx, rec); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, fail(m.log, "status.transition", cid, err, fields...)
	}

	if changed {
		m.log.Info("product status changed",
			zap.String("product_id", product.ID.String()),
			zap.String("from", string(previous)),
			zap.String("to", string(product.Status)),
			zap.String("correlation_id", cid))
		m.dispatcher.TransitionOccurred(ctx, product, previous, product.Status)
	}
	return product, nil
}
