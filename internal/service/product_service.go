package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-fulfillment-ws/internal/apperr"
	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type IntakeInput struct {
	SKU            string          `json:"sku" validate:"required,max=64"`
	Name           string          `json:"name" validate:"required,max=255"`
	Category       string          `json:"category" validate:"omitempty,product_category"`
	Condition      string          `json:"condition" validate:"omitempty,product_condition"`
	SellerID       string          `json:"seller_id" validate:"max=255"`
	Price          decimal.Decimal `json:"price"`
	DeliveryPlanID *uuid.UUID      `json:"delivery_plan_id"`
	Notes          string          `json:"notes"`
}

type InspectionInput struct {
	Condition string `json:"condition" validate:"omitempty,product_condition"`
	Notes     string `json:"notes"`
}

// ProductService covers intake and the product-level bookkeeping around it.
type ProductService interface {
	Intake(ctx context.Context, in IntakeInput, actor model.Actor) (*model.Product, error)
	Get(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Product, error)
	LookupBySKU(ctx context.Context, sku string, actor model.Actor) (*model.Product, error)
	List(ctx context.Context, statuses []model.ProductStatus, actor model.Actor) ([]model.Product, error)
	ChangePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal, actor model.Actor) (*model.Product, error)
	RecordInspection(ctx context.Context, id uuid.UUID, in InspectionInput, actor model.Actor) (*model.Product, error)
	RecordPhotography(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Product, error)
}

type productService struct {
	repo   repository.FulfillmentRepository
	ledger ActivityLedger
	log    *zap.Logger
}

func NewProductService(repo repository.FulfillmentRepository, ledger ActivityLedger, log *zap.Logger) ProductService {
	return &productService{repo: repo, ledger: ledger, log: log}
}

func (s *productService) Intake(ctx context.Context, in IntakeInput, actor model.Actor) (product *model.Product, err error) {
	ctx, cid := apperr.Ensure(ctx)
	ctx, span := startSpan(ctx, "ProductService.Intake", attribute.String("product.sku", in.SKU))
	defer func() { endSpan(span, err) }()

	if !actor.Is(model.RoleStaff, model.RoleAdmin, model.RoleSeller) {
		return nil, fail(s.log, "product.intake", cid, apperr.Forbidden("You are not allowed to register products."))
	}
	// sellers can only register their own items
	if actor.Role == model.RoleSeller {
		in.SellerID = actor.ID
	}
	in.SKU = strings.TrimSpace(in.SKU)
	if err := validate(&in); err != nil {
		return nil, fail(s.log, "product.intake", cid, err)
	}
	if in.Price.IsNegative() {
		return nil, fail(s.log, "product.intake", cid, apperr.Validation("Price cannot be negative."))
	}

	category := model.ProductCategory(in.Category)
	if category == "" {
		category = model.CategoryOther
	}
	product = &model.Product{
		SKU:       in.SKU,
		Name:      in.Name,
		Category:  category,
		Status:    model.StatusInbound,
		Condition: model.ProductCondition(in.Condition),
		SellerID:  in.SellerID,
		Price:     in.Price,
		Metadata:  model.ProductMetadata{Notes: in.Notes},
	}
	product.CreatedBy = actor.AuditName()
	product.UpdatedBy = actor.AuditName()

	err = s.repo.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.FindProductBySKU(ctx, in.SKU); err == nil {
			return apperr.Validation("SKU already exists")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if in.DeliveryPlanID != nil {
			plan, err := tx.FindDeliveryPlanByID(ctx, *in.DeliveryPlanID)
			if err != nil {
				return translate(err, errPlanNotFound)
			}
			if err := visibleTo(plan, actor); err != nil {
				return err
			}
			planID := plan.ID
			product.Metadata.DeliveryPlanID = &planID
		}
		if err := tx.CreateProduct(ctx, product); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.Validation("SKU already exists")
			}
			return err
		}
		rec := actorRecord(model.ActivityIntake, actor, &product.ID, fmt.Sprintf("Received %s (%s)", product.Name, product.SKU))
		rec.Metadata = model.ActivityMetadata{NewStatus: model.StatusInbound, DeliveryPlanID: product.Metadata.DeliveryPlanID}
		return s.ledger.Record(ctx, tx, rec)
	})
	if err != nil {
		return nil, fail(s.log, "product.intake", cid, err, zap.String("sku", in.SKU))
	}
	s.log.Info("product received",
		zap.String("product_id", product.ID.String()),
		zap.String("sku", product.SKU),
		zap.String("correlation_id", cid))
	return product, nil
}

// visible applies the seller ownership rule to reads.
func visible(p *model.Product, actor model.Actor) error {
	if actor.Role == model.RoleSeller && !p.OwnedBy(actor) {
		return notFound(errProductNotFound)
	}
	return nil
}

// visibleOnly drops products the actor may not see.
func visibleOnly(products []model.Product, actor model.Actor) []model.Product {
	if actor.Role != model.RoleSeller {
		return products
	}
	out := products[:0]
	for _, p := range products {
		if p.OwnedBy(actor) {
			out = append(out, p)
		}
	}
	return out
}

func (s *productService) Get(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Product, error) {
	ctx, cid := apperr.Ensure(ctx)
	p, err := s.repo.FindProductByID(ctx, id)
	if err != nil {
		return nil, fail(s.log, "product.get", cid, translate(err, errProductNotFound))
	}
	if err := visible(p, actor); err != nil {
		return nil, fail(s.log, "product.get", cid, err)
	}
	return p, nil
}

// LookupBySKU matches exactly, then falls back to a unique suffix match
// for labels printed with older SKU prefixes.
func (s *productService) LookupBySKU(ctx context.Context, sku string, actor model.Actor) (*model.Product, error) {
	ctx, cid := apperr.Ensure(ctx)
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, fail(s.log, "product.lookup", cid, apperr.Validation("A SKU is required."))
	}

	p, err := s.repo.FindProductBySKU(ctx, sku)
	if errors.Is(err, repository.ErrNotFound) {
		var matches []model.Product
		matches, err = s.repo.FindProductsBySKUSuffix(ctx, sku)
		matches = visibleOnly(matches, actor)
		switch {
		case err != nil:
		case len(matches) == 1:
			p = &matches[0]
		case len(matches) > 1:
			err = apperr.Validation(fmt.Sprintf("SKU %s matches %d products; use the full SKU.", sku, len(matches)))
		default:
			err = notFound(errProductNotFound)
		}
	}
	if err != nil {
		return nil, fail(s.log, "product.lookup", cid, translate(err, errProductNotFound), zap.String("sku", sku))
	}
	if err := visible(p, actor); err != nil {
		return nil, fail(s.log, "product.lookup", cid, err)
	}
	return p, nil
}

func (s *productService) List(ctx context.Context, statuses []model.ProductStatus, actor model.Actor) ([]model.Product, error) {
	ctx, cid := apperr.Ensure(ctx)
	for _, st := range statuses {
		if !st.Valid() {
			return nil, fail(s.log, "product.list", cid, apperr.Validation(fmt.Sprintf("Unknown status %q.", st)))
		}
	}
	filter := repository.ProductFilter{Statuses: statuses}
	if actor.Role == model.RoleSeller {
		filter.SellerID = actor.ID
	}
	products, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return nil, fail(s.log, "product.list", cid, err)
	}
	if products == nil {
		products = []model.Product{}
	}
	return products, nil
}

// mutate loads a product in a transaction, applies fn, saves and records
// the activity fn returns.
func (s *productService) mutate(ctx context.Context, op string, id uuid.UUID, actor model.Actor,
	fn func(p *model.Product) (*model.ActivityRecord, error)) (*model.Product, error) {
	ctx, cid := apperr.Ensure(ctx)
	ctx, span := startSpan(ctx, "ProductService."+op, attribute.String("product.id", id.String()))
	var (
		product *model.Product
		err     error
	)
	defer func() { endSpan(span, err) }()

	err = s.repo.WithinTx(ctx, func(tx repository.Store) error {
		p, err := tx.FindProductByID(ctx, id)
		if err != nil {
			return translate(err, errProductNotFound)
		}
		if err := visible(p, actor); err != nil {
			return err
		}
		rec, err := fn(p)
		if err != nil {
			return err
		}
		p.UpdatedBy = actor.AuditName()
		if err := tx.SaveProduct(ctx, p); err != nil {
			return translate(err, errProductNotFound)
		}
		product = p
		return s.ledger.Record(ctx, tx, rec)
	})
	if err != nil {
		return nil, fail(s.log, "product."+strings.ToLower(op), cid, err, zap.String("product_id", id.String()))
	}
	s.log.Info("product updated",
		zap.String("op", op),
		zap.String("product_id", id.String()),
		zap.String("correlation_id", cid))
	return product, nil
}

func (s *productService) ChangePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal, actor model.Actor) (*model.Product, error) {
	if !actor.Is(model.RoleStaff, model.RoleAdmin, model.RoleSeller) {
		return nil, fail(s.log, "product.changeprice", apperr.CorrelationID(ctx), apperr.Forbidden("You are not allowed to change prices."))
	}
	return s.mutate(ctx, "ChangePrice", id, actor, func(p *model.Product) (*model.ActivityRecord, error) {
		if price.IsNegative() {
			return nil, apperr.Validation("Price cannot be negative.")
		}
		old := p.Price
		p.Price = price
		rec := actorRecord(model.ActivityPriceChanged, actor, &p.ID,
			fmt.Sprintf("Price changed from %s to %s", old.StringFixed(2), price.StringFixed(2)))
		rec.Metadata = model.ActivityMetadata{OldPrice: old.StringFixed(2), NewPrice: price.StringFixed(2)}
		return rec, nil
	})
}

func (s *productService) RecordInspection(ctx context.Context, id uuid.UUID, in InspectionInput, actor model.Actor) (*model.Product, error) {
	if !actor.Is(model.RoleStaff, model.RoleAdmin) {
		return nil, fail(s.log, "product.recordinspection", apperr.CorrelationID(ctx), apperr.Forbidden("Only staff can record inspections."))
	}
	if err := validate(&in); err != nil {
		return nil, fail(s.log, "product.recordinspection", apperr.CorrelationID(ctx), err)
	}
	return s.mutate(ctx, "RecordInspection", id, actor, func(p *model.Product) (*model.ActivityRecord, error) {
		if p.Status != model.StatusInspection {
			return nil, apperr.ForbiddenTransition("INVALID_STATUS_FOR_INSPECTION",
				fmt.Sprintf("Inspection can only be recorded while the product is in inspection (current: %s).", p.Status))
		}
		p.Metadata.InspectionCompleted = true
		if in.Condition != "" {
			p.Condition = model.ProductCondition(in.Condition)
		}
		if notes := strings.TrimSpace(in.Notes); notes != "" {
			p.Metadata.Notes = notes
		}
		rec := actorRecord(model.ActivityInspection, actor, &p.ID, "Inspection completed")
		rec.Metadata = model.ActivityMetadata{Reason: strings.TrimSpace(in.Notes)}
		return rec, nil
	})
}

func (s *productService) RecordPhotography(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Product, error) {
	if !actor.Is(model.RoleStaff, model.RoleAdmin) {
		return nil, fail(s.log, "product.recordphotography", apperr.CorrelationID(ctx), apperr.Forbidden("Only staff can record photography."))
	}
	return s.mutate(ctx, "RecordPhotography", id, actor, func(p *model.Product) (*model.ActivityRecord, error) {
		p.Metadata.PhotographyCompleted = true
		return actorRecord(model.ActivityPhotography, actor, &p.ID, "Photography completed"), nil
	})
}
