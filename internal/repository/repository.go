package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-fulfillment-ws/internal/model"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrConflict  = errors.New("record was modified concurrently")
	ErrDuplicate = errors.New("duplicate key")
)

// ProductFilter narrows ListProducts. Zero values match everything.
type ProductFilter struct {
	Statuses []model.ProductStatus
	SellerID string
}

type ProductStore interface {
	CreateProduct(ctx context.Context, p *model.Product) error
	FindProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindProductBySKU(ctx context.Context, sku string) (*model.Product, error)
	FindProductsBySKUSuffix(ctx context.Context, suffix string) ([]model.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]model.Product, error)
	FindProductsByDeliveryPlan(ctx context.Context, planID uuid.UUID) ([]model.Product, error)
	// SaveProduct writes p only if the stored version still equals p.Version,
	// then increments p.Version. A stale version yields ErrConflict.
	SaveProduct(ctx context.Context, p *model.Product) error
	CountProductsByStatus(ctx context.Context) (map[model.ProductStatus]int64, error)
}

type LocationStore interface {
	CreateLocation(ctx context.Context, l *model.Location) error
	FindLocationByID(ctx context.Context, id uuid.UUID) (*model.Location, error)
	FindLocationByCode(ctx context.Context, code string) (*model.Location, error)
	// LockLocation reads the location holding a row lock where the backend supports it.
	LockLocation(ctx context.Context, id uuid.UUID) (*model.Location, error)
	ListLocations(ctx context.Context) ([]model.Location, error)
	CountProductsAtLocation(ctx context.Context, id uuid.UUID) (int64, error)
	CountProductsByLocation(ctx context.Context) (map[uuid.UUID]int64, error)
}

type LedgerStore interface {
	CreateMovement(ctx context.Context, m *model.ProductMovement) error
	ListMovements(ctx context.Context, productID uuid.UUID) ([]model.ProductMovement, error)
	ListMovementsSince(ctx context.Context, since time.Time) ([]model.ProductMovement, error)
	AppendActivity(ctx context.Context, r *model.ActivityRecord) error
	// ListActivity returns records whose product or order is subjectID, oldest first.
	ListActivity(ctx context.Context, subjectID uuid.UUID) ([]model.ActivityRecord, error)
}

type PickingStore interface {
	CreatePickingTask(ctx context.Context, t *model.PickingTask) error
	// ListPickingTasks returns tasks with items; an empty status means all.
	ListPickingTasks(ctx context.Context, status model.PickingStatus) ([]model.PickingTask, error)
	// AssignedProductIDs returns every product referenced by any persisted task.
	AssignedProductIDs(ctx context.Context) (map[uuid.UUID]bool, error)
}

type OrderStore interface {
	CreateOrder(ctx context.Context, o *model.Order) error
	FindOrderByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	// FindProductOrders returns order links for the products, oldest order first.
	FindProductOrders(ctx context.Context, productIDs []uuid.UUID) ([]model.ProductOrder, error)
}

type DeliveryPlanStore interface {
	CreateDeliveryPlan(ctx context.Context, p *model.DeliveryPlan) error
	FindDeliveryPlanByID(ctx context.Context, id uuid.UUID) (*model.DeliveryPlan, error)
	FindDeliveryPlanByNumber(ctx context.Context, number string) (*model.DeliveryPlan, error)
	// UpdateDeliveryPlanStatus moves the plan from -> to; ErrConflict if it is no longer in from.
	UpdateDeliveryPlanStatus(ctx context.Context, id uuid.UUID, from, to model.DeliveryPlanStatus, notes, updatedBy string) error
}

// Store is everything a component may read or write.
type Store interface {
	ProductStore
	LocationStore
	LedgerStore
	PickingStore
	OrderStore
	DeliveryPlanStore
}

// FulfillmentRepository is a Store that can run a function atomically.
// Inside fn only tx may be used; the outer repository must not be touched.
type FulfillmentRepository interface {
	Store
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes LIKE wildcards; queries must declare ESCAPE '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
