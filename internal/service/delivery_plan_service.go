package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-fulfillment-ws/internal/apperr"
	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type DeliveryPlanItemInput struct {
	Name      string     `json:"name" validate:"required,max=255"`
	Quantity  int        `json:"quantity" validate:"gte=0"`
	ProductID *uuid.UUID `json:"product_id"`
}

type CreateDeliveryPlanInput struct {
	Notes string                  `json:"notes"`
	Items []DeliveryPlanItemInput `json:"items" validate:"required,min=1,dive"`
}

// DeliveryPlanService owns seller delivery plans, including the
// cancellation workflow that compensates linked inventory.
type DeliveryPlanService interface {
	Create(ctx context.Context, in CreateDeliveryPlanInput, actor model.Actor) (*model.DeliveryPlan, error)
	Get(ctx context.Context, ref string, actor model.Actor) (*model.DeliveryPlan, error)
	Cancel(ctx context.Context, ref string, actor model.Actor, reason string) (*model.CancellationResult, error)
}

type deliveryPlanService struct {
	repo       repository.FulfillmentRepository
	ledger     ActivityLedger
	dispatcher *NotificationDispatcher
	log        *zap.Logger
	now        func() time.Time
}

func NewDeliveryPlanService(repo repository.FulfillmentRepository, ledger ActivityLedger, dispatcher *NotificationDispatcher, log *zap.Logger) DeliveryPlanService {
	return &deliveryPlanService{repo: repo, ledger: ledger, dispatcher: dispatcher, log: log, now: time.Now}
}

// planNumber is DP-<unix millis>-<8 hex chars>.
func (s *deliveryPlanService) planNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s%d-%s", model.PlanNumberPrefix, s.now().UnixMilli(), suffix)
}

func (s *deliveryPlanService) Create(ctx context.Context, in CreateDeliveryPlanInput, actor model.Actor) (plan *model.DeliveryPlan, err error) {
	ctx, cid := apperr.Ensure(ctx)
	ctx, span := startSpan(ctx, "DeliveryPlanService.Create", attribute.String("actor.id", actor.ID))
	defer func() { endSpan(span, err) }()

	if actor.Role != model.RoleSeller || actor.ID == "" {
		return nil, fail(s.log, "plan.create", cid, apperr.Forbidden("Only sellers can create delivery plans."))
	}
	if err := validate(&in); err != nil {
		return nil, fail(s.log, "plan.create", cid, err)
	}

	plan = &model.DeliveryPlan{
		PlanNumber: s.planNumber(),
		SellerID:   actor.ID,
		Status:     model.PlanPending,
		Notes:      strings.TrimSpace(in.Notes),
	}
	plan.CreatedBy = actor.AuditName()
	plan.UpdatedBy = actor.AuditName()
	for _, it := range in.Items {
		qty := it.Quantity
		if qty == 0 {
			qty = 1
		}
		plan.Items = append(plan.Items, model.DeliveryPlanItem{Name: it.Name, Quantity: qty, ProductID: it.ProductID})
	}

	err = s.repo.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.CreateDeliveryPlan(ctx, plan); err != nil {
			return err
		}
		planID := plan.ID
		linked := make(map[uuid.UUID]bool)
		for _, it := range plan.Items {
			if it.ProductID == nil || linked[*it.ProductID] {
				continue
			}
			p, err := tx.FindProductByID(ctx, *it.ProductID)
			if err != nil {
				return translate(err, errProductNotFound)
			}
			if !p.OwnedBy(actor) {
				return notFound(errProductNotFound)
			}
			if err := linkable(p); err != nil {
				return err
			}
			p.Metadata.DeliveryPlanID = &planID
			p.UpdatedBy = actor.AuditName()
			if err := tx.SaveProduct(ctx, p); err != nil {
				return translate(err, errProductNotFound)
			}
			rec := actorRecord(model.ActivityIntake, actor, &p.ID,
				fmt.Sprintf("Linked to delivery plan %s", plan.PlanNumber))
			rec.Metadata = model.ActivityMetadata{DeliveryPlanID: &planID}
			if err := s.ledger.Record(ctx, tx, rec); err != nil {
				return err
			}
			linked[p.ID] = true
		}
		return nil
	})
	if err != nil {
		return nil, fail(s.log, "plan.create", cid, err)
	}
	s.log.Info("delivery plan created",
		zap.String("plan_number", plan.PlanNumber),
		zap.String("seller_id", plan.SellerID),
		zap.Int("items", len(plan.Items)),
		zap.String("correlation_id", cid))
	return plan, nil
}

// linkable admits only unplanned items that have not been shelved yet.
func linkable(p *model.Product) error {
	if !p.Status.InIntake() {
		return apperr.Validation(fmt.Sprintf("Product %s is already %s and cannot join a delivery plan.", p.SKU, p.Status))
	}
	if p.Metadata.DeliveryPlanID != nil {
		return apperr.Validation(fmt.Sprintf("Product %s already belongs to a delivery plan.", p.SKU))
	}
	return nil
}

// findPlan treats DP- references as plan numbers and anything else as an id.
func findPlan(ctx context.Context, store repository.Store, ref string) (*model.DeliveryPlan, error) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, model.PlanNumberPrefix) {
		plan, err := store.FindDeliveryPlanByNumber(ctx, ref)
		return plan, translate(err, errPlanNotFound)
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return nil, notFound(errPlanNotFound)
	}
	plan, err := store.FindDeliveryPlanByID(ctx, id)
	return plan, translate(err, errPlanNotFound)
}

// visibleTo hides other sellers' plans behind NotFound.
func visibleTo(plan *model.DeliveryPlan, actor model.Actor) error {
	if actor.Role == model.RoleSeller && plan.SellerID != actor.ID {
		return notFound(errPlanNotFound)
	}
	return nil
}

func (s *deliveryPlanService) Get(ctx context.Context, ref string, actor model.Actor) (*model.DeliveryPlan, error) {
	ctx, cid := apperr.Ensure(ctx)
	plan, err := findPlan(ctx, s.repo, ref)
	if err == nil {
		err = visibleTo(plan, actor)
	}
	if err != nil {
		return nil, fail(s.log, "plan.get", cid, err, zap.String("plan_ref", ref))
	}
	return plan, nil
}

func cancelStateError(status model.DeliveryPlanStatus) error {
	const code = "INVALID_STATUS_FOR_CANCEL"
	switch status {
	case model.PlanShipped:
		return apperr.ForbiddenTransition(code, "This delivery plan has already shipped and can no longer be cancelled.")
	case model.PlanCancelled:
		return apperr.ForbiddenTransition(code, "This delivery plan is already cancelled.")
	}
	return apperr.ForbiddenTransition(code, fmt.Sprintf("Only pending delivery plans can be cancelled (current status: %s).", status))
}

func cancellationNote(existing, reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = model.NoCancelReason
	}
	note := "Cancelled: " + reason
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}

func (s *deliveryPlanService) Cancel(ctx context.Context, ref string, actor model.Actor, reason string) (result *model.CancellationResult, err error) {
	ctx, cid := apperr.Ensure(ctx)
	ctx, span := startSpan(ctx, "DeliveryPlanService.Cancel", attribute.String("plan.ref", ref))
	defer func() { endSpan(span, err) }()

	fields := []zap.Field{zap.String("plan_ref", ref), zap.String("actor_id", actor.ID)}
	if !actor.Is(model.RoleSeller, model.RoleAdmin) {
		return nil, fail(s.log, "plan.cancel", cid, apperr.Forbidden("Only the seller or an administrator can cancel a delivery plan."), fields...)
	}

	err = s.repo.WithinTx(ctx, func(tx repository.Store) error {
		plan, err := findPlan(ctx, tx, ref)
		if err != nil {
			return err
		}
		if err := visibleTo(plan, actor); err != nil {
			return err
		}
		if plan.Status != model.PlanPending {
			return cancelStateError(plan.Status)
		}

		products, err := relatedProducts(ctx, tx, plan)
		if err != nil {
			return err
		}
		// one item past intake blocks the whole plan
		for _, p := range products {
			if p.Status != model.StatusCancelled && !p.Status.CanTransitionTo(model.StatusCancelled) {
				return apperr.ForbiddenTransition("INVALID_STATUS_FOR_CANCEL",
					fmt.Sprintf("Product %s is already %s, so this delivery plan can no longer be cancelled.", p.SKU, p.Status))
			}
		}

		notes := cancellationNote(plan.Notes, reason)
		if err := tx.UpdateDeliveryPlanStatus(ctx, plan.ID, model.PlanPending, model.PlanCancelled, notes, actor.AuditName()); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				// someone moved the plan since we read it
				if current, ferr := tx.FindDeliveryPlanByID(ctx, plan.ID); ferr == nil && current.Status != model.PlanPending {
					return cancelStateError(current.Status)
				}
			}
			return translate(err, errPlanNotFound)
		}
		plan.Status = model.PlanCancelled
		plan.Notes = notes
		plan.UpdatedBy = actor.AuditName()

		planID := plan.ID
		affected := 0
		for i := range products {
			p := &products[i]
			if p.Status == model.StatusCancelled {
				continue
			}
			previous := p.Status
			p.Status = model.StatusCancelled
			p.UpdatedBy = actor.AuditName()
			if err := tx.SaveProduct(ctx, p); err != nil {
				return translate(err, errProductNotFound)
			}
			rec := actorRecord(model.ActivityCancelled, actor, &p.ID,
				fmt.Sprintf("Cancelled with delivery plan %s", plan.PlanNumber))
			rec.Metadata = model.ActivityMetadata{
				PreviousStatus: previous,
				NewStatus:      model.StatusCancelled,
				Reason:         strings.TrimSpace(reason),
				DeliveryPlanID: &planID,
			}
			if err := s.ledger.Record(ctx, tx, rec); err != nil {
				return err
			}
			affected++
		}
		result = &model.CancellationResult{Plan: plan, AffectedProducts: affected}
		return nil
	})
	if err != nil {
		return nil, fail(s.log, "plan.cancel", cid, err, fields...)
	}

	s.log.Info("delivery plan cancelled",
		zap.String("plan_number", result.Plan.PlanNumber),
		zap.Int("affected_products", result.AffectedProducts),
		zap.String("correlation_id", cid))
	s.dispatcher.PlanCancelled(ctx, result.Plan, result.AffectedProducts)
	return result, nil
}

// relatedProducts returns products linked through metadata or a plan line item.
func relatedProducts(ctx context.Context, tx repository.Store, plan *model.DeliveryPlan) ([]model.Product, error) {
	products, err := tx.FindProductsByDeliveryPlan(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]bool, len(products))
	for _, p := range products {
		seen[p.ID] = true
	}
	for _, it := range plan.Items {
		if it.ProductID == nil || seen[*it.ProductID] {
			continue
		}
		p, err := tx.FindProductByID(ctx, *it.ProductID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		seen[p.ID] = true
		products = append(products, *p)
	}
	return products, nil
}
