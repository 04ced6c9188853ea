package service

import (
	"context"
	"testing"

	"go-fulfillment-ws/internal/apperr"
	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/repository"

	"github.com/google/uuid"
)

func derivedFor(queue *model.PickingQueue, productID uuid.UUID) []model.TaskView {
	var out []model.TaskView
	for _, task := range queue.Tasks {
		if !task.Derived {
			continue
		}
		for _, it := range task.Items {
			if it.ProductID == productID.String() {
				out = append(out, task)
			}
		}
	}
	return out
}

func TestPendingQueueMergesPersistedAndDerived(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		p3 := f.seedProduct(t, "P3", model.StatusOrdered, nil)
		p4 := f.seedProduct(t, "P4", model.StatusOrdered, nil)

		task, err := f.picking.CreateTask(ctx, CreatePickingTaskInput{ProductIDs: []uuid.UUID{p3.ID}, CustomerName: "Sato"}, staff)
		if err != nil {
			t.Fatalf("create task: %v", err)
		}

		queue, err := f.picking.ListTasks(ctx, "pending")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(queue.Tasks) != 2 {
			t.Fatalf("expected 2 tasks, got %d: %+v", len(queue.Tasks), queue.Tasks)
		}
		if queue.Tasks[0].ID != task.ID.String() || queue.Tasks[0].Derived {
			t.Errorf("expected the persisted task first, got %+v", queue.Tasks[0])
		}
		if n := len(derivedFor(queue, p3.ID)); n != 0 {
			t.Fatalf("P3 has a persisted task but was derived %d times", n)
		}
		derived := derivedFor(queue, p4.ID)
		if len(derived) != 1 {
			t.Fatalf("expected one derived task for P4, got %d", len(derived))
		}
		if queue.Stats.Total != 2 || queue.Stats.Pending != 2 {
			t.Errorf("unexpected stats %+v", queue.Stats)
		}

		records := f.activity(t, p3.ID)
		if len(records) != 1 || records[0].Type != model.ActivityPickingAssigned {
			t.Fatalf("expected picking_assigned, got %+v", records)
		}
		if records[0].Metadata.TaskID == nil || *records[0].Metadata.TaskID != task.ID {
			t.Errorf("record does not reference the task: %+v", records[0].Metadata)
		}
	})
}

func TestDerivedTaskShape(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		shelf := f.seedLocation(t, "A-1-3", "Glass case 3", 4)
		f.seedLocation(t, "B-1-4", "Packing bench", 10)
		onShelf := f.seedProduct(t, "WS-1", model.StatusWorkstation, &shelf.ID)
		loose := f.seedProduct(t, "SOLD-1", model.StatusSold, nil)
		f.seedProduct(t, "LIST-1", model.StatusListing, nil)

		queue, err := f.picking.ListTasks(ctx, "all")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(queue.Tasks) != 2 {
			t.Fatalf("expected 2 derived tasks, got %d", len(queue.Tasks))
		}

		task := derivedFor(queue, onShelf.ID)[0]
		if task.ID != "dynamic-"+onShelf.ID.String() {
			t.Errorf("unexpected id %s", task.ID)
		}
		if task.Status != model.PickingPending || task.Priority != model.PriorityNormal {
			t.Errorf("unexpected status/priority %s/%s", task.Status, task.Priority)
		}
		if task.CustomerName != "Order: N/A" {
			t.Errorf("unexpected customer %q", task.CustomerName)
		}
		if !task.DueDate.Equal(fixedNow.Add(DefaultPickingConfig().SLAWindow)) {
			t.Errorf("unexpected due date %s", task.DueDate)
		}
		item := task.Items[0]
		if item.ID != "item-"+onShelf.ID.String() || item.Quantity != 1 {
			t.Errorf("unexpected item %+v", item)
		}
		if item.Location != "A-1-3" || item.LocationName != "Glass case 3" {
			t.Errorf("expected live location, got %s/%s", item.Location, item.LocationName)
		}

		fallback := derivedFor(queue, loose.ID)[0].Items[0]
		if fallback.Location != "B-1-4" || fallback.LocationName != "Packing bench" {
			t.Errorf("expected default location, got %s/%s", fallback.Location, fallback.LocationName)
		}

		var summary model.LocationSummary
		for _, s := range queue.Locations {
			if s.Code == "A-1-3" {
				summary = s
			}
		}
		if !summary.HasPickingItems || summary.ProductCount != 1 {
			t.Errorf("unexpected location summary %+v", summary)
		}
	})
}

func TestDerivedTasksFollowOrderStatus(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		waiting := f.seedProduct(t, "ORD-1", model.StatusOrdered, nil)
		ready := f.seedProduct(t, "ORD-2", model.StatusOrdered, nil)

		if _, err := f.orders.CreateOrder(ctx, CreateOrderInput{
			OrderNumber: "SO-1001", CustomerName: "Tanaka", Status: "pending",
			Items: []OrderItemInput{{ProductID: waiting.ID}},
		}, staff); err != nil {
			t.Fatalf("order 1: %v", err)
		}
		order, err := f.orders.CreateOrder(ctx, CreateOrderInput{
			OrderNumber: "SO-1002",
			Items:       []OrderItemInput{{ProductID: ready.ID}},
		}, model.SystemActor)
		if err != nil {
			t.Fatalf("order 2: %v", err)
		}

		queue, err := f.picking.ListTasks(ctx, "")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if n := len(derivedFor(queue, waiting.ID)); n != 0 {
			t.Errorf("product on a pending order should not be pickable")
		}
		tasks := derivedFor(queue, ready.ID)
		if len(tasks) != 1 {
			t.Fatalf("expected product on a processing order, got %d", len(tasks))
		}
		if tasks[0].OrderID != order.ID.String() || tasks[0].CustomerName != "Order: SO-1002" {
			t.Errorf("unexpected order linkage %+v", tasks[0])
		}
	})
}

func TestListTasksFilters(t *testing.T) {
	f := newFixture(t, repository.NewMemoryRepo())
	ctx := context.Background()
	f.seedProduct(t, "F-1", model.StatusOrdered, nil)

	queue, err := f.picking.ListTasks(ctx, "in_progress")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if queue.Tasks == nil || len(queue.Tasks) != 0 {
		t.Fatalf("in_progress should have no derived tasks, got %+v", queue.Tasks)
	}
	if queue.Locations == nil {
		t.Error("locations must be an empty list, not nil")
	}

	_, err = f.picking.ListTasks(ctx, "lost")
	wantKind(t, err, apperr.KindValidation)
}

func TestCreateTaskRules(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		stored := f.seedProduct(t, "NR-1", model.StatusStorage, nil)
		ordered := f.seedProduct(t, "NR-2", model.StatusOrdered, nil)

		_, err := f.picking.CreateTask(ctx, CreatePickingTaskInput{ProductIDs: []uuid.UUID{stored.ID}}, staff)
		wantKind(t, err, apperr.KindValidation)

		_, err = f.picking.CreateTask(ctx, CreatePickingTaskInput{ProductIDs: []uuid.UUID{ordered.ID}}, seller)
		wantKind(t, err, apperr.KindForbidden)

		_, err = f.picking.CreateTask(ctx, CreatePickingTaskInput{ProductIDs: []uuid.UUID{ordered.ID}, Priority: "whenever"}, staff)
		wantKind(t, err, apperr.KindValidation)

		task, err := f.picking.CreateTask(ctx, CreatePickingTaskInput{ProductIDs: []uuid.UUID{ordered.ID}, Priority: "urgent"}, staff)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if task.Priority != model.PriorityUrgent || len(task.Items) != 1 || task.Items[0].LocationCode != "B-1-4" {
			t.Errorf("unexpected task %+v", task)
		}

		_, err = f.picking.CreateTask(ctx, CreatePickingTaskInput{ProductIDs: []uuid.UUID{ordered.ID}}, staff)
		wantKind(t, err, apperr.KindValidation)
		if n := len(f.activity(t, stored.ID)); n != 0 {
			t.Errorf("rejected task recorded %d entries", n)
		}
	})
}
