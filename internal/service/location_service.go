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
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type PlaceInput struct {
	ProductID   uuid.UUID
	LocationRef string
	Actor       model.Actor
	Notes       string
}

type CreateLocationInput struct {
	Code     string `json:"code" validate:"required,max=32"`
	Name     string `json:"name" validate:"max=255"`
	Zone     string `json:"zone" validate:"max=32"`
	Capacity int    `json:"capacity" validate:"gte=1"`
}

// Placement is the outcome of placing a product.
type Placement struct {
	Product  *model.Product  `json:"product"`
	Location *model.Location `json:"location"`
	Moved    bool            `json:"moved"`
}

// LocationAllocator assigns products to shelves without exceeding capacity.
type LocationAllocator interface {
	Place(ctx context.Context, in PlaceInput) (*Placement, error)
	// PlaceWithin moves p inside an open transaction. It updates p in memory
	// and writes the movement history; the caller saves p.
	PlaceWithin(ctx context.Context, tx repository.Store, p *model.Product, ref string, actor model.Actor, notes string) (*model.Location, bool, error)
	CreateLocation(ctx context.Context, in CreateLocationInput, actor model.Actor) (*model.Location, error)
	ListLocations(ctx context.Context) ([]model.LocationOccupancy, error)
	ListMovements(ctx context.Context, productID uuid.UUID) ([]model.ProductMovement, error)
}

type locationAllocator struct {
	repo   repository.FulfillmentRepository
	ledger ActivityLedger
	log    *zap.Logger
}

func NewLocationAllocator(repo repository.FulfillmentRepository, ledger ActivityLedger, log *zap.Logger) LocationAllocator {
	return &locationAllocator{repo: repo, ledger: ledger, log: log}
}

// resolveLocation finds a location by id, then by code, then by the current code a
// legacy code maps to. Unknown references are not auto-created.
func resolveLocation(ctx context.Context, store repository.Store, ref string) (*model.Location, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, apperr.Validation("A location id or code is required.")
	}
	if id, err := uuid.Parse(ref); err == nil {
		loc, err := store.FindLocationByID(ctx, id)
		if err == nil {
			return loc, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	loc, err := store.FindLocationByCode(ctx, ref)
	if err == nil {
		return loc, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if mapped := model.RemapLocationCode(ref); mapped != ref {
		loc, err := store.FindLocationByCode(ctx, mapped)
		if err == nil {
			return loc, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	return nil, notFound(errLocationNotFound)
}

func (a *locationAllocator) PlaceWithin(ctx context.Context, tx repository.Store, p *model.Product, ref string, actor model.Actor, notes string) (*model.Location, bool, error) {
	loc, err := resolveLocation(ctx, tx, ref)
	if err != nil {
		return nil, false, translate(err, errLocationNotFound)
	}
	if p.CurrentLocationID != nil && *p.CurrentLocationID == loc.ID {
		return loc, false, nil
	}

	loc, err = tx.LockLocation(ctx, loc.ID)
	if err != nil {
		return nil, false, translate(err, errLocationNotFound)
	}
	occupied, err := tx.CountProductsAtLocation(ctx, loc.ID)
	if err != nil {
		return nil, false, translate(err, nil)
	}
	if occupied >= int64(loc.Capacity) {
		return nil, false, apperr.CapacityExceeded(fmt.Sprintf(
			"Location %s is full (%d of %d slots used).", model.RemapLocationCode(loc.Code), occupied, loc.Capacity))
	}

	previous := p.CurrentLocationID
	if previous != nil {
		from := *previous
		movement := &model.ProductMovement{
			ProductID:      p.ID,
			FromLocationID: &from,
			ToLocationID:   loc.ID,
			MovedBy:        actor.AuditName(),
			Notes:          notes,
		}
		if err := tx.CreateMovement(ctx, movement); err != nil {
			return nil, false, translate(err, nil)
		}
	}
	to := loc.ID
	p.CurrentLocationID = &to
	p.UpdatedBy = actor.AuditName()
	return loc, true, nil
}

func (a *locationAllocator) Place(ctx context.Context, in PlaceInput) (result *Placement, err error) {
	ctx, cid := apperr.Ensure(ctx)
	ctx, span := startSpan(ctx, "LocationAllocator.Place",
		attribute.String("product.id", in.ProductID.String()),
		attribute.String("location.ref", in.LocationRef))
	defer func() { endSpan(span, err) }()

	fields := []zap.Field{zap.String("product_id", in.ProductID.String()), zap.String("location_ref", in.LocationRef)}
	if in.ProductID == uuid.Nil {
		return nil, fail(a.log, "location.place", cid, apperr.Validation("A product id is required."), fields...)
	}
	if !in.Actor.Is(model.RoleStaff, model.RoleAdmin) {
		return nil, fail(a.log, "location.place", cid, apperr.Forbidden("Only staff can move products between locations."), fields...)
	}

	err = a.repo.WithinTx(ctx, func(tx repository.Store) error {
		p, err := tx.FindProductByID(ctx, in.ProductID)
		if err != nil {
			return translate(err, errProductNotFound)
		}
		previous := p.CurrentLocationID
		loc, moved, err := a.PlaceWithin(ctx, tx, p, in.LocationRef, in.Actor, in.Notes)
		if err != nil {
			return err
		}
		result = &Placement{Product: p, Location: loc, Moved: moved}
		if !moved {
			return nil
		}
		if err := tx.SaveProduct(ctx, p); err != nil {
			return translate(err, errProductNotFound)
		}

		to := loc.ID
		rec := actorRecord(model.ActivityLocationMoved, in.Actor, &p.ID,
			fmt.Sprintf("Moved to %s", model.RemapLocationCode(loc.Code)))
		rec.Metadata = model.ActivityMetadata{
			FromLocationID: previous,
			ToLocationID:   &to,
			LocationCode:   loc.Code,
			Reason:         in.Notes,
		}
		return a.ledger.Record(ctx, tx, rec)
	})
	if err != nil {
		return nil, fail(a.log, "location.place", cid, err, fields...)
	}
	result.Product.CurrentLocation = result.Location
	a.log.Info("product placed",
		zap.String("product_id", in.ProductID.String()),
		zap.String("location", result.Location.Code),
		zap.Bool("moved", result.Moved),
		zap.String("correlation_id", cid))
	return result, nil
}

func (a *locationAllocator) CreateLocation(ctx context.Context, in CreateLocationInput, actor model.Actor) (*model.Location, error) {
	ctx, cid := apperr.Ensure(ctx)
	if !actor.Is(model.RoleStaff, model.RoleAdmin) {
		return nil, fail(a.log, "location.create", cid, apperr.Forbidden("Only staff can create locations."))
	}
	in.Code = strings.TrimSpace(in.Code)
	if in.Capacity == 0 {
		in.Capacity = 1
	}
	if err := validate(&in); err != nil {
		return nil, fail(a.log, "location.create", cid, err)
	}
	if mapped := model.RemapLocationCode(in.Code); mapped != in.Code {
		return nil, fail(a.log, "location.create", cid,
			apperr.Validation(fmt.Sprintf("%s is a retired location code; use %s.", in.Code, mapped)))
	}

	loc := &model.Location{Code: in.Code, Name: in.Name, Zone: in.Zone, Capacity: in.Capacity}
	loc.CreatedBy = actor.AuditName()
	loc.UpdatedBy = actor.AuditName()
	if err := a.repo.CreateLocation(ctx, loc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			err = apperr.Validation(fmt.Sprintf("Location code %s already exists.", in.Code))
		}
		return nil, fail(a.log, "location.create", cid, err)
	}
	a.log.Info("location created", zap.String("code", loc.Code), zap.Int("capacity", loc.Capacity), zap.String("correlation_id", cid))
	return loc, nil
}

func (a *locationAllocator) ListLocations(ctx context.Context) ([]model.LocationOccupancy, error) {
	ctx, cid := apperr.Ensure(ctx)
	locations, err := a.repo.ListLocations(ctx)
	if err != nil {
		return nil, fail(a.log, "location.list", cid, err)
	}
	counts, err := a.repo.CountProductsByLocation(ctx)
	if err != nil {
		return nil, fail(a.log, "location.list", cid, err)
	}
	out := make([]model.LocationOccupancy, 0, len(locations))
	for _, loc := range locations {
		n := counts[loc.ID]
		available := int64(loc.Capacity) - n
		if available < 0 {
			available = 0
		}
		out = append(out, model.LocationOccupancy{
			Location:     loc,
			DisplayCode:  model.RemapLocationCode(loc.Code),
			ProductCount: n,
			Available:    available,
		})
	}
	return out, nil
}

func (a *locationAllocator) ListMovements(ctx context.Context, productID uuid.UUID) ([]model.ProductMovement, error) {
	ctx, cid := apperr.Ensure(ctx)
	if _, err := a.repo.FindProductByID(ctx, productID); err != nil {
		return nil, fail(a.log, "location.movements", cid, translate(err, errProductNotFound))
	}
	movements, err := a.repo.ListMovements(ctx, productID)
	if err != nil {
		return nil, fail(a.log, "location.movements", cid, err)
	}
	return movements, nil
}
