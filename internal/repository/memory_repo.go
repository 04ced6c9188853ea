package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go-fulfillment-ws/internal/model"

	"github.com/google/uuid"
)

// memoryState is the whole in-memory database. Values are stored by copy.
type memoryState struct {
	products  map[uuid.UUID]model.Product
	locations map[uuid.UUID]model.Location
	movements []model.ProductMovement
	activity  []model.ActivityRecord
	tasks     []model.PickingTask
	orders    []model.Order
	plans     map[uuid.UUID]model.DeliveryPlan
}

func newMemoryState() *memoryState {
	return &memoryState{
		products:  make(map[uuid.UUID]model.Product),
		locations: make(map[uuid.UUID]model.Location),
		plans:     make(map[uuid.UUID]model.DeliveryPlan),
	}
}

func (m *memoryState) clone() *memoryState {
	c := &memoryState{
		products:  make(map[uuid.UUID]model.Product, len(m.products)),
		locations: make(map[uuid.UUID]model.Location, len(m.locations)),
		movements: append([]model.ProductMovement(nil), m.movements...),
		activity:  append([]model.ActivityRecord(nil), m.activity...),
		tasks:     make([]model.PickingTask, len(m.tasks)),
		orders:    make([]model.Order, len(m.orders)),
		plans:     make(map[uuid.UUID]model.DeliveryPlan, len(m.plans)),
	}
	for k, v := range m.products {
		c.products[k] = v
	}
	for k, v := range m.locations {
		c.locations[k] = v
	}
	for i, t := range m.tasks {
		t.Items = append([]model.PickingItem(nil), t.Items...)
		c.tasks[i] = t
	}
	for i, o := range m.orders {
		o.Items = append([]model.OrderItem(nil), o.Items...)
		c.orders[i] = o
	}
	for k, v := range m.plans {
		v.Items = append([]model.DeliveryPlanItem(nil), v.Items...)
		c.plans[k] = v
	}
	return c
}

// memStore implements Store. The root store locks per call; a transaction
// view has mu == nil because WithinTx already holds the lock.
type memStore struct {
	mu    *sync.Mutex
	state *memoryState
}

type memoryRepo struct {
	*memStore
}

// NewMemoryRepo returns the in-process backend used for demo mode and tests.
func NewMemoryRepo() FulfillmentRepository {
	return &memoryRepo{&memStore{mu: &sync.Mutex{}, state: newMemoryState()}}
}

// WithinTx runs fn against a copy of the state and publishes it only on success.
func (r *memoryRepo) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	working := r.state.clone()
	if err := fn(&memStore{state: working}); err != nil {
		return err
	}
	r.state = working
	return nil
}

func (s *memStore) lock() func() {
	if s.mu == nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func sortProducts(products []model.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		if !products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].CreatedAt.Before(products[j].CreatedAt)
		}
		return products[i].SKU < products[j].SKU
	})
}

func (s *memStore) filterProducts(match func(p model.Product) bool) []model.Product {
	out := []model.Product{}
	for _, p := range s.state.products {
		if match(p) {
			out = append(out, p)
		}
	}
	sortProducts(out)
	return out
}

func (s *memStore) CreateProduct(ctx context.Context, p *model.Product) error {
	defer s.lock()()
	p.Prepare(time.Now())
	if p.Version == 0 {
		p.Version = 1
	}
	if _, ok := s.state.products[p.ID]; ok {
		return ErrDuplicate
	}
	for _, existing := range s.state.products {
		if existing.SKU == p.SKU {
			return ErrDuplicate
		}
	}
	stored := *p
	stored.CurrentLocation = nil
	s.state.products[p.ID] = stored
	return nil
}

func (s *memStore) FindProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	defer s.lock()()
	p, ok := s.state.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *memStore) FindProductBySKU(ctx context.Context, sku string) (*model.Product, error) {
	defer s.lock()()
	for _, p := range s.state.products {
		if p.SKU == sku {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) FindProductsBySKUSuffix(ctx context.Context, suffix string) ([]model.Product, error) {
	defer s.lock()()
	return s.filterProducts(func(p model.Product) bool {
		return strings.HasSuffix(p.SKU, suffix)
	}), nil
}

func (s *memStore) ListProducts(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	defer s.lock()()
	return s.filterProducts(func(p model.Product) bool {
		if filter.SellerID != "" && p.SellerID != filter.SellerID {
			return false
		}
		if len(filter.Statuses) == 0 {
			return true
		}
		for _, st := range filter.Statuses {
			if p.Status == st {
				return true
			}
		}
		return false
	}), nil
}

func (s *memStore) FindProductsByDeliveryPlan(ctx context.Context, planID uuid.UUID) ([]model.Product, error) {
	defer s.lock()()
	return s.filterProducts(func(p model.Product) bool {
		return p.Metadata.DeliveryPlanID != nil && *p.Metadata.DeliveryPlanID == planID
	}), nil
}

func (s *memStore) SaveProduct(ctx context.Context, p *model.Product) error {
	defer s.lock()()
	current, ok := s.state.products[p.ID]
	if !ok || current.Version != p.Version {
		return ErrConflict
	}
	stored := *p
	stored.CurrentLocation = nil
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	stored.CreatedAt = current.CreatedAt
	s.state.products[p.ID] = stored
	p.Version = stored.Version
	p.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *memStore) CountProductsByStatus(ctx context.Context) (map[model.ProductStatus]int64, error) {
	defer s.lock()()
	counts := make(map[model.ProductStatus]int64)
	for _, p := range s.state.products {
		counts[p.Status]++
	}
	return counts, nil
}

func (s *memStore) CreateLocation(ctx context.Context, l *model.Location) error {
	defer s.lock()()
	l.Prepare(time.Now())
	for _, existing := range s.state.locations {
		if existing.Code == l.Code || existing.ID == l.ID {
			return ErrDuplicate
		}
	}
	s.state.locations[l.ID] = *l
	return nil
}

func (s *memStore) FindLocationByID(ctx context.Context, id uuid.UUID) (*model.Location, error) {
	defer s.lock()()
	l, ok := s.state.locations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (s *memStore) FindLocationByCode(ctx context.Context, code string) (*model.Location, error) {
	defer s.lock()()
	for _, l := range s.state.locations {
		if l.Code == code {
			return &l, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) LockLocation(ctx context.Context, id uuid.UUID) (*model.Location, error) {
	return s.FindLocationByID(ctx, id)
}

func (s *memStore) ListLocations(ctx context.Context) ([]model.Location, error) {
	defer s.lock()()
	out := make([]model.Location, 0, len(s.state.locations))
	for _, l := range s.state.locations {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *memStore) CountProductsAtLocation(ctx context.Context, id uuid.UUID) (int64, error) {
	defer s.lock()()
	var n int64
	for _, p := range s.state.products {
		if p.CurrentLocationID != nil && *p.CurrentLocationID == id {
			n++
		}
	}
	return n, nil
}

func (s *memStore) CountProductsByLocation(ctx context.Context) (map[uuid.UUID]int64, error) {
	defer s.lock()()
	counts := make(map[uuid.UUID]int64)
	for _, p := range s.state.products {
		if p.CurrentLocationID != nil {
			counts[*p.CurrentLocationID]++
		}
	}
	return counts, nil
}

func (s *memStore) CreateMovement(ctx context.Context, m *model.ProductMovement) error {
	defer s.lock()()
	prepareMovement(m)
	s.state.movements = append(s.state.movements, *m)
	return nil
}

func (s *memStore) ListMovements(ctx context.Context, productID uuid.UUID) ([]model.ProductMovement, error) {
	defer s.lock()()
	out := []model.ProductMovement{}
	for _, m := range s.state.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) ListMovementsSince(ctx context.Context, since time.Time) ([]model.ProductMovement, error) {
	defer s.lock()()
	out := []model.ProductMovement{}
	for _, m := range s.state.movements {
		if !m.CreatedAt.Before(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) AppendActivity(ctx context.Context, r *model.ActivityRecord) error {
	defer s.lock()()
	prepareActivity(r)
	s.state.activity = append(s.state.activity, *r)
	return nil
}

func (s *memStore) ListActivity(ctx context.Context, subjectID uuid.UUID) ([]model.ActivityRecord, error) {
	defer s.lock()()
	out := []model.ActivityRecord{}
	for _, r := range s.state.activity {
		if (r.ProductID != nil && *r.ProductID == subjectID) || (r.OrderID != nil && *r.OrderID == subjectID) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) CreatePickingTask(ctx context.Context, t *model.PickingTask) error {
	defer s.lock()()
	preparePickingTask(t)
	stored := *t
	stored.Items = append([]model.PickingItem(nil), t.Items...)
	s.state.tasks = append(s.state.tasks, stored)
	return nil
}

func (s *memStore) ListPickingTasks(ctx context.Context, status model.PickingStatus) ([]model.PickingTask, error) {
	defer s.lock()()
	out := []model.PickingTask{}
	for _, t := range s.state.tasks {
		if status != "" && t.Status != status {
			continue
		}
		t.Items = append([]model.PickingItem{}, t.Items...)
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (s *memStore) AssignedProductIDs(ctx context.Context) (map[uuid.UUID]bool, error) {
	defer s.lock()()
	assigned := make(map[uuid.UUID]bool)
	for _, t := range s.state.tasks {
		for _, it := range t.Items {
			assigned[it.ProductID] = true
		}
	}
	return assigned, nil
}

func (s *memStore) CreateOrder(ctx context.Context, o *model.Order) error {
	defer s.lock()()
	prepareOrder(o)
	for _, existing := range s.state.orders {
		if existing.OrderNumber == o.OrderNumber || existing.ID == o.ID {
			return ErrDuplicate
		}
	}
	stored := *o
	stored.Items = append([]model.OrderItem(nil), o.Items...)
	s.state.orders = append(s.state.orders, stored)
	return nil
}

func (s *memStore) FindOrderByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	defer s.lock()()
	for _, o := range s.state.orders {
		if o.ID == id {
			o.Items = append([]model.OrderItem{}, o.Items...)
			return &o, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) FindProductOrders(ctx context.Context, productIDs []uuid.UUID) ([]model.ProductOrder, error) {
	defer s.lock()()
	wanted := make(map[uuid.UUID]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}
	var links []model.ProductOrder
	for _, o := range s.state.orders {
		for _, it := range o.Items {
			if wanted[it.ProductID] {
				links = append(links, model.ProductOrder{
					ProductID:    it.ProductID,
					OrderID:      o.ID,
					OrderNumber:  o.OrderNumber,
					CustomerName: o.CustomerName,
					Status:       o.Status,
				})
			}
		}
	}
	return links, nil
}

func (s *memStore) CreateDeliveryPlan(ctx context.Context, p *model.DeliveryPlan) error {
	defer s.lock()()
	prepareDeliveryPlan(p)
	for _, existing := range s.state.plans {
		if existing.PlanNumber == p.PlanNumber || existing.ID == p.ID {
			return ErrDuplicate
		}
	}
	stored := *p
	stored.Items = append([]model.DeliveryPlanItem(nil), p.Items...)
	s.state.plans[p.ID] = stored
	return nil
}

func (s *memStore) FindDeliveryPlanByID(ctx context.Context, id uuid.UUID) (*model.DeliveryPlan, error) {
	defer s.lock()()
	p, ok := s.state.plans[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Items = append([]model.DeliveryPlanItem{}, p.Items...)
	return &p, nil
}

func (s *memStore) FindDeliveryPlanByNumber(ctx context.Context, number string) (*model.DeliveryPlan, error) {
	defer s.lock()()
	for _, p := range s.state.plans {
		if p.PlanNumber == number {
			p.Items = append([]model.DeliveryPlanItem{}, p.Items...)
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) UpdateDeliveryPlanStatus(ctx context.Context, id uuid.UUID, from, to model.DeliveryPlanStatus, notes, updatedBy string) error {
	defer s.lock()()
	p, ok := s.state.plans[id]
	if !ok || p.Status != from {
		return ErrConflict
	}
	p.Status = to
	p.Notes = notes
	p.UpdatedBy = updatedBy
	p.UpdatedAt = time.Now().UTC()
	s.state.plans[id] = p
	return nil
}
