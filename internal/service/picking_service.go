package service

import (
	"context"
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

// FilterAll lists every persisted task plus the derived ones.
const FilterAll = "all"

type PickingConfig struct {
	SLAWindow       time.Duration
	ReadyStatuses   []model.ProductStatus
	OrderStatuses   []model.OrderStatus
	DefaultLocation string
	Now             func() time.Time
}

// DefaultPickingConfig mirrors the configuration defaults.
func DefaultPickingConfig() PickingConfig {
	return PickingConfig{
		SLAWindow:       4 * time.Hour,
		ReadyStatuses:   []model.ProductStatus{model.StatusOrdered, model.StatusWorkstation, model.StatusSold, model.StatusCompleted},
		OrderStatuses:   []model.OrderStatus{model.OrderProcessing},
		DefaultLocation: "B-1-4",
		Now:             time.Now,
	}
}

type CreatePickingTaskInput struct {
	ProductIDs   []uuid.UUID `json:"product_ids" validate:"required,min=1"`
	OrderID      *uuid.UUID  `json:"order_id"`
	CustomerName string      `json:"customer_name" validate:"max=255"`
	Priority     string      `json:"priority" validate:"omitempty,picking_priority"`
	Assignee     string      `json:"assignee" validate:"max=255"`
	DueDate      *time.Time  `json:"due_date"`
}

// PickingTaskAggregator builds the staff work queue.
type PickingTaskAggregator interface {
	ListTasks(ctx context.Context, statusFilter string) (*model.PickingQueue, error)
	CreateTask(ctx context.Context, in CreatePickingTaskInput, actor model.Actor) (*model.PickingTask, error)
}

type pickingAggregator struct {
	repo   repository.FulfillmentRepository
	ledger ActivityLedger
	cfg    PickingConfig
	log    *zap.Logger
}

func NewPickingTaskAggregator(repo repository.FulfillmentRepository, ledger ActivityLedger, cfg PickingConfig, log *zap.Logger) PickingTaskAggregator {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.DefaultLocation == "" {
		cfg.DefaultLocation = DefaultPickingConfig().DefaultLocation
	}
	return &pickingAggregator{repo: repo, ledger: ledger, cfg: cfg, log: log}
}

func (a *pickingAggregator) isReady(s model.ProductStatus) bool {
	for _, r := range a.cfg.ReadyStatuses {
		if r == s {
			return true
		}
	}
	return false
}

func (a *pickingAggregator) orderPickable(s model.OrderStatus) bool {
	for _, o := range a.cfg.OrderStatuses {
		if o == s {
			return true
		}
	}
	return false
}

// locationIndex resolves shelf names for the queue.
type locationIndex struct {
	byID   map[uuid.UUID]model.Location
	byCode map[string]model.Location
	counts map[uuid.UUID]int64
	all    []model.Location
}

func (a *pickingAggregator) loadLocations(ctx context.Context) (*locationIndex, error) {
	locations, err := a.repo.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := a.repo.CountProductsByLocation(ctx)
	if err != nil {
		return nil, err
	}
	idx := &locationIndex{
		byID:   make(map[uuid.UUID]model.Location, len(locations)),
		byCode: make(map[string]model.Location, len(locations)),
		counts: counts,
		all:    locations,
	}
	for _, l := range locations {
		idx.byID[l.ID] = l
		idx.byCode[model.RemapLocationCode(l.Code)] = l
	}
	return idx, nil
}

// nameFor returns display code and name for a stored code.
func (idx *locationIndex) nameFor(code string) (string, string) {
	resolved := model.RemapLocationCode(code)
	if l, ok := idx.byCode[resolved]; ok && l.Name != "" {
		return resolved, l.Name
	}
	return resolved, resolved
}

// resolveLive prefers the product's live location, then the fallback code.
func (idx *locationIndex) resolveLive(p model.Product, fallback string) (string, string) {
	if p.CurrentLocationID != nil {
		if l, ok := idx.byID[*p.CurrentLocationID]; ok {
			code := model.RemapLocationCode(l.Code)
			if l.Name != "" {
				return code, l.Name
			}
			return code, code
		}
	}
	return idx.nameFor(fallback)
}

func parsePickingFilter(filter string) (model.PickingStatus, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" || filter == FilterAll {
		return "", nil
	}
	st := model.PickingStatus(filter)
	if !st.Valid() {
		return "", apperr.Validation(fmt.Sprintf("Unknown picking status filter %q.", filter))
	}
	return st, nil
}

func (a *pickingAggregator) ListTasks(ctx context.Context, statusFilter string) (queue *model.PickingQueue, err error) {
	ctx, cid := apperr.Ensure(ctx)
	ctx, span := startSpan(ctx, "PickingTaskAggregator.ListTasks", attribute.String("picking.filter", statusFilter))
	defer func() { endSpan(span, err) }()

	status, err := parsePickingFilter(statusFilter)
	if err != nil {
		return nil, fail(a.log, "picking.list", cid, err)
	}

	persisted, err := a.repo.ListPickingTasks(ctx, status)
	if err != nil {
		return nil, fail(a.log, "picking.list", cid, err)
	}
	idx, err := a.loadLocations(ctx)
	if err != nil {
		return nil, fail(a.log, "picking.list", cid, err)
	}

	tasks := make([]model.TaskView, 0, len(persisted))
	for _, t := range persisted {
		tasks = append(tasks, persistedView(t, idx))
	}

	derivedCount := 0
	if status == "" || status == model.PickingPending {
		derived, err := a.deriveTasks(ctx, idx)
		if err != nil {
			return nil, fail(a.log, "picking.list", cid, err)
		}
		derivedCount = len(derived)
		tasks = append(tasks, derived...)
	}

	queue = &model.PickingQueue{
		Tasks:     tasks,
		Stats:     pickingStats(tasks),
		Locations: locationSummary(idx, tasks),
	}
	a.log.Debug("picking queue built",
		zap.Int("persisted", len(persisted)),
		zap.Int("derived", derivedCount),
		zap.String("correlation_id", cid))
	return queue, nil
}

func persistedView(t model.PickingTask, idx *locationIndex) model.TaskView {
	view := model.TaskView{
		ID:           t.ID.String(),
		CustomerName: t.CustomerName,
		Status:       t.Status,
		Priority:     t.Priority,
		Assignee:     t.Assignee,
		DueDate:      t.DueDate,
		Items:        make([]model.TaskItemView, 0, len(t.Items)),
	}
	if t.OrderID != nil {
		view.OrderID = t.OrderID.String()
	}
	for _, it := range t.Items {
		code, name := idx.nameFor(it.LocationCode)
		view.Items = append(view.Items, model.TaskItemView{
			ID:             it.ID.String(),
			ProductID:      it.ProductID.String(),
			ProductName:    it.ProductName,
			SKU:            it.SKU,
			Location:       code,
			LocationName:   name,
			Quantity:       it.Quantity,
			PickedQuantity: it.PickedQuantity,
			Status:         it.Status,
		})
	}
	return view
}

// deriveTasks synthesizes one pending task per ready product that no
// persisted task references.
func (a *pickingAggregator) deriveTasks(ctx context.Context, idx *locationIndex) ([]model.TaskView, error) {
	if len(a.cfg.ReadyStatuses) == 0 {
		return nil, nil
	}
	candidates, err := a.repo.ListProducts(ctx, repository.ProductFilter{Statuses: a.cfg.ReadyStatuses})
	if err != nil {
		return nil, err
	}
	assigned, err := a.repo.AssignedProductIDs(ctx)
	if err != nil {
		return nil, err
	}

	unassigned := make([]model.Product, 0, len(candidates))
	ids := make([]uuid.UUID, 0, len(candidates))
	for _, p := range candidates {
		if assigned[p.ID] {
			continue
		}
		unassigned = append(unassigned, p)
		ids = append(ids, p.ID)
	}

	links, err := a.repo.FindProductOrders(ctx, ids)
	if err != nil {
		return nil, err
	}
	type orderState struct {
		hasOrder bool
		pickable *model.ProductOrder
	}
	orders := make(map[uuid.UUID]*orderState, len(links))
	for i := range links {
		link := links[i]
		st, ok := orders[link.ProductID]
		if !ok {
			st = &orderState{}
			orders[link.ProductID] = st
		}
		st.hasOrder = true
		if a.orderPickable(link.Status) {
			st.pickable = &link
		}
	}

	due := a.cfg.Now().Add(a.cfg.SLAWindow).UTC()
	derived := make([]model.TaskView, 0, len(unassigned))
	for _, p := range unassigned {
		st := orders[p.ID]
		if st != nil && st.hasOrder && st.pickable == nil {
			continue
		}
		var link *model.ProductOrder
		if st != nil {
			link = st.pickable
		}

		code, name := idx.resolveLive(p, a.cfg.DefaultLocation)
		view := model.TaskView{
			ID:           model.DerivedTaskPrefix + p.ID.String(),
			Derived:      true,
			CustomerName: customerLabel(link),
			Status:       model.PickingPending,
			Priority:     model.PriorityNormal,
			DueDate:      due,
			Items: []model.TaskItemView{{
				ID:           model.DerivedItemPrefix + p.ID.String(),
				ProductID:    p.ID.String(),
				ProductName:  p.Name,
				SKU:          p.SKU,
				Location:     code,
				LocationName: name,
				Quantity:     1,
				Status:       model.PickingPending,
			}},
		}
		if link != nil {
			view.OrderID = link.OrderID.String()
		}
		derived = append(derived, view)
	}
	return derived, nil
}

func customerLabel(link *model.ProductOrder) string {
	switch {
	case link == nil:
		return "Order: N/A"
	case link.CustomerName != "":
		return link.CustomerName
	case link.OrderNumber != "":
		return "Order: " + link.OrderNumber
	}
	return "Order: N/A"
}

func pickingStats(tasks []model.TaskView) model.PickingStats {
	stats := model.PickingStats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case model.PickingPending:
			stats.Pending++
		case model.PickingInProgress:
			stats.InProgress++
		case model.PickingCompleted:
			stats.Completed++
		}
	}
	return stats
}

func locationSummary(idx *locationIndex, tasks []model.TaskView) []model.LocationSummary {
	pickable := make(map[string]bool)
	for _, t := range tasks {
		if t.Status == model.PickingCompleted {
			continue
		}
		for _, it := range t.Items {
			pickable[it.Location] = true
		}
	}
	out := make([]model.LocationSummary, 0, len(idx.all))
	for _, l := range idx.all {
		code := model.RemapLocationCode(l.Code)
		out = append(out, model.LocationSummary{
			Code:            code,
			Name:            l.Name,
			Zone:            l.Zone,
			ProductCount:    idx.counts[l.ID],
			HasPickingItems: pickable[code],
		})
	}
	return out
}

func (a *pickingAggregator) CreateTask(ctx context.Context, in CreatePickingTaskInput, actor model.Actor) (task *model.PickingTask, err error) {
	ctx, cid := apperr.Ensure(ctx)
	ctx, span := startSpan(ctx, "PickingTaskAggregator.CreateTask", attribute.Int("picking.items", len(in.ProductIDs)))
	defer func() { endSpan(span, err) }()

	if !actor.Is(model.RoleStaff, model.RoleAdmin) {
		return nil, fail(a.log, "picking.create", cid, apperr.Forbidden("Only staff can create picking tasks."))
	}
	if err := validate(&in); err != nil {
		return nil, fail(a.log, "picking.create", cid, err)
	}
	priority := model.PickingPriority(in.Priority)
	if priority == "" {
		priority = model.PriorityNormal
	}
	due := a.cfg.Now().Add(a.cfg.SLAWindow).UTC()
	if in.DueDate != nil {
		due = in.DueDate.UTC()
	}

	err = a.repo.WithinTx(ctx, func(tx repository.Store) error {
		assigned, err := tx.AssignedProductIDs(ctx)
		if err != nil {
			return err
		}
		if in.OrderID != nil {
			if _, err := tx.FindOrderByID(ctx, *in.OrderID); err != nil {
				return translate(err, errOrderNotFound)
			}
		}

		task = &model.PickingTask{
			OrderID:      in.OrderID,
			CustomerName: in.CustomerName,
			Status:       model.PickingPending,
			Priority:     priority,
			Assignee:     in.Assignee,
			DueDate:      due,
		}
		task.CreatedBy = actor.AuditName()
		task.UpdatedBy = actor.AuditName()

		seen := make(map[uuid.UUID]bool, len(in.ProductIDs))
		products := make([]*model.Product, 0, len(in.ProductIDs))
		for _, id := range in.ProductIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			p, err := tx.FindProductByID(ctx, id)
			if err != nil {
				return translate(err, errProductNotFound)
			}
			if !a.isReady(p.Status) {
				return apperr.Validation(fmt.Sprintf("Product %s is %s and cannot be picked.", p.SKU, p.Status))
			}
			if assigned[p.ID] {
				return apperr.Validation(fmt.Sprintf("Product %s already has a picking task.", p.SKU))
			}
			code := a.cfg.DefaultLocation
			if p.CurrentLocationID != nil {
				if loc, err := tx.FindLocationByID(ctx, *p.CurrentLocationID); err == nil {
					code = loc.Code
				}
			}
			task.Items = append(task.Items, model.PickingItem{
				ProductID:    p.ID,
				ProductName:  p.Name,
				SKU:          p.SKU,
				LocationCode: code,
				Quantity:     1,
				Status:       model.PickingPending,
			})
			products = append(products, p)
		}

		if err := tx.CreatePickingTask(ctx, task); err != nil {
			return err
		}
		taskID := task.ID
		for _, p := range products {
			rec := actorRecord(model.ActivityPickingAssigned, actor, &p.ID,
				fmt.Sprintf("Added to picking task (%s priority)", priority))
			rec.OrderID = in.OrderID
			rec.Metadata = model.ActivityMetadata{TaskID: &taskID}
			if err := a.ledger.Record(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fail(a.log, "picking.create", cid, err)
	}
	a.log.Info("picking task created",
		zap.String("task_id", task.ID.String()),
		zap.Int("items", len(task.Items)),
		zap.String("correlation_id", cid))
	return task, nil
}
