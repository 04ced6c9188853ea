package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/repository"
	"go-fulfillment-ws/pkg/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type backend struct {
	name string
	open func(t *testing.T) repository.FulfillmentRepository
}

func backends() []backend {
	return []backend{
		{name: "memory", open: func(t *testing.T) repository.FulfillmentRepository {
			return repository.NewMemoryRepo()
		}},
		{name: "sqlite", open: func(t *testing.T) repository.FulfillmentRepository {
			t.Helper()
			db, err := database.ConnectSQLite(":memory:")
			if err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() { db.Close() })
			return repository.NewSQLiteRepo(db)
		}},
	}
}

// forEachBackend runs the same contract test against every testable backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, repo repository.FulfillmentRepository)) {
	for _, b := range backends() {
		b := b
		t.Run(b.name, func(t *testing.T) {
			fn(t, b.open(t))
		})
	}
}

func newProduct(sku string, status model.ProductStatus) *model.Product {
	return &model.Product{
		SKU:       sku,
		Name:      "Leica M6 " + sku,
		Category:  model.CategoryCamera,
		Status:    status,
		Condition: model.ConditionExcellent,
		SellerID:  "seller-1",
		Price:     decimal.RequireFromString("1250.50"),
	}
}

func mustCreateProduct(t *testing.T, repo repository.Store, p *model.Product) *model.Product {
	t.Helper()
	if err := repo.CreateProduct(context.Background(), p); err != nil {
		t.Fatalf("create product %s: %v", p.SKU, err)
	}
	return p
}

func mustCreateLocation(t *testing.T, repo repository.Store, code string, capacity int) *model.Location {
	t.Helper()
	loc := &model.Location{Code: code, Name: "Shelf " + code, Zone: code[:1], Capacity: capacity}
	if err := repo.CreateLocation(context.Background(), loc); err != nil {
		t.Fatalf("create location %s: %v", code, err)
	}
	return loc
}

func TestProductRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repository.FulfillmentRepository) {
		ctx := context.Background()
		planID := uuid.New()
		p := newProduct("CAM-0001", model.StatusInbound)
		p.Metadata = model.ProductMetadata{InspectionCompleted: true, DeliveryPlanID: &planID, Notes: "box included"}
		mustCreateProduct(t, repo, p)

		got, err := repo.FindProductByID(ctx, p.ID)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.SKU != "CAM-0001" || got.Status != model.StatusInbound || got.Version != 1 {
			t.Fatalf("unexpected product %+v", got)
		}
		if !got.Price.Equal(decimal.RequireFromString("1250.50")) {
			t.Fatalf("price = %s", got.Price)
		}
		if !got.Metadata.InspectionCompleted || got.Metadata.DeliveryPlanID == nil || *got.Metadata.DeliveryPlanID != planID {
			t.Fatalf("metadata lost: %+v", got.Metadata)
		}
		if got.CurrentLocationID != nil {
			t.Fatal("expected no location")
		}

		if _, err := repo.FindProductByID(ctx, uuid.New()); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := repo.CreateProduct(ctx, newProduct("CAM-0001", model.StatusInbound)); !errors.Is(err, repository.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})
}

func TestProductLookups(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repository.FulfillmentRepository) {
		ctx := context.Background()
		planID := uuid.New()
		a := mustCreateProduct(t, repo, newProduct("2024-CAM-0042", model.StatusListing))
		b := newProduct("2024-LNS-0042_X", model.StatusOrdered)
		b.SellerID = "seller-2"
		b.Metadata.DeliveryPlanID = &planID
		mustCreateProduct(t, repo, b)
		mustCreateProduct(t, repo, newProduct("WCH-7", model.StatusStorage))

		bySKU, err := repo.FindProductBySKU(ctx, "2024-CAM-0042")
		if err != nil || bySKU.ID != a.ID {
			t.Fatalf("find by sku: %v %+v", err, bySKU)
		}

		suffix, err := repo.FindProductsBySKUSuffix(ctx, "0042")
		if err != nil {
			t.Fatal(err)
		}
		if len(suffix) != 1 || suffix[0].ID != a.ID {
			t.Fatalf("suffix match returned %d products", len(suffix))
		}
		// underscore must match literally, not as a wildcard
		literal, err := repo.FindProductsBySKUSuffix(ctx, "42_X")
		if err != nil || len(literal) != 1 {
			t.Fatalf("literal suffix: %v %d", err, len(literal))
		}

		listed, err := repo.ListProducts(ctx, repository.ProductFilter{Statuses: []model.ProductStatus{model.StatusListing, model.StatusOrdered}})
		if err != nil || len(listed) != 2 {
			t.Fatalf("list by status: %v %d", err, len(listed))
		}
		bySeller, err := repo.ListProducts(ctx, repository.ProductFilter{SellerID: "seller-2"})
		if err != nil || len(bySeller) != 1 {
			t.Fatalf("list by seller: %v %d", err, len(bySeller))
		}

		byPlan, err := repo.FindProductsByDeliveryPlan(ctx, planID)
		if err != nil || len(byPlan) != 1 || byPlan[0].ID != b.ID {
			t.Fatalf("by plan: %v %+v", err, byPlan)
		}

		counts, err := repo.CountProductsByStatus(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if counts[model.StatusListing] != 1 || counts[model.StatusOrdered] != 1 || counts[model.StatusStorage] != 1 {
			t.Fatalf("unexpected counts %v", counts)
		}
	})
}

func TestSaveProductIsVersioned(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repository.FulfillmentRepository) {
		ctx := context.Background()
		p := mustCreateProduct(t, repo, newProduct("CAM-0100", model.StatusInbound))

		first, _ := repo.FindProductByID(ctx, p.ID)
		second, _ := repo.FindProductByID(ctx, p.ID)

		first.Status = model.StatusInspection
		if err := repo.SaveProduct(ctx, first); err != nil {
			t.Fatalf("first save: %v", err)
		}
		if first.Version != 2 {
			t.Fatalf("version = %d, want 2", first.Version)
		}

		second.Status = model.StatusCancelled
		if err := repo.SaveProduct(ctx, second); !errors.Is(err, repository.ErrConflict) {
			t.Fatalf("expected ErrConflict for stale version, got %v", err)
		}

		stored, _ := repo.FindProductByID(ctx, p.ID)
		if stored.Status != model.StatusInspection || stored.Version != 2 {
			t.Fatalf("stale write leaked: %+v", stored)
		}
	})
}

func TestWithinTxRollsBack(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repository.FulfillmentRepository) {
		ctx := context.Background()
		p := mustCreateProduct(t, repo, newProduct("CAM-0200", model.StatusInbound))
		induced := errors.New("induced")

		err := repo.WithinTx(ctx, func(tx repository.Store) error {
			cur, err := tx.FindProductByID(ctx, p.ID)
			if err != nil {
				return err
			}
			cur.Status = model.StatusInspection
			if err := tx.SaveProduct(ctx, cur); err != nil {
				return err
			}
			if err := tx.AppendActivity(ctx, &model.ActivityRecord{Type: model.ActivityStatusUpdated, ProductID: &p.ID}); err != nil {
				return err
			}
			return induced
		})
		if !errors.Is(err, induced) {
			t.Fatalf("expected induced error, got %v", err)
		}

		stored, _ := repo.FindProductByID(ctx, p.ID)
		if stored.Status != model.StatusInbound || stored.Version != 1 {
			t.Fatalf("rollback failed: %+v", stored)
		}
		records, _ := repo.ListActivity(ctx, p.ID)
		if len(records) != 0 {
			t.Fatalf("expected no activity after rollback, got %d", len(records))
		}

		err = repo.WithinTx(ctx, func(tx repository.Store) error {
			cur, err := tx.FindProductByID(ctx, p.ID)
			if err != nil {
				return err
			}
			cur.Status = model.StatusInspection
			return tx.SaveProduct(ctx, cur)
		})
		if err != nil {
			t.Fatalf("commit: %v", err)
		}
		stored, _ = repo.FindProductByID(ctx, p.ID)
		if stored.Status != model.StatusInspection {
			t.Fatalf("commit lost: %+v", stored)
		}
	})
}

func TestLocationsAndOccupancy(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repository.FulfillmentRepository) {
		ctx := context.Background()
		a := mustCreateLocation(t, repo, "A-1-1", 2)
		b := mustCreateLocation(t, repo, "B-1-4", 5)

		if err := repo.CreateLocation(ctx, &model.Location{Code: "A-1-1", Capacity: 1}); !errors.Is(err, repository.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}

		p := newProduct("CAM-0300", model.StatusStorage)
		p.CurrentLocationID = &a.ID
		mustCreateProduct(t, repo, p)
		q := newProduct("CAM-0301", model.StatusStorage)
		q.CurrentLocationID = &a.ID
		mustCreateProduct(t, repo, q)

		n, err := repo.CountProductsAtLocation(ctx, a.ID)
		if err != nil || n != 2 {
			t.Fatalf("count at A: %v %d", err, n)
		}
		byLoc, err := repo.CountProductsByLocation(ctx)
		if err != nil || byLoc[a.ID] != 2 || byLoc[b.ID] != 0 {
			t.Fatalf("by location: %v %v", err, byLoc)
		}

		found, err := repo.FindLocationByCode(ctx, "B-1-4")
		if err != nil || found.ID != b.ID || found.Capacity != 5 {
			t.Fatalf("by code: %v %+v", err, found)
		}
		locked, err := repo.LockLocation(ctx, a.ID)
		if err != nil || locked.Code != "A-1-1" {
			t.Fatalf("lock: %v %+v", err, locked)
		}
		if _, err := repo.FindLocationByCode(ctx, "Z-9-9"); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		all, err := repo.ListLocations(ctx)
		if err != nil || len(all) != 2 || all[0].Code != "A-1-1" {
			t.Fatalf("list: %v %+v", err, all)
		}
	})
}

func TestLedgerOrdering(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repository.FulfillmentRepository) {
		ctx := context.Background()
		p := mustCreateProduct(t, repo, newProduct("CAM-0400", model.StatusInbound))
		orderID := uuid.New()
		actor := "staff-1"

		types := []model.ActivityType{model.ActivityIntake, model.ActivityInspection, model.ActivityStatusUpdated, model.ActivityLocationMoved}
		for _, typ := range types {
			rec := &model.ActivityRecord{
				Type:      typ,
				ActorID:   &actor,
				ProductID: &p.ID,
				Metadata:  model.ActivityMetadata{PreviousStatus: model.StatusInbound, NewStatus: model.StatusInspection},
			}
			if err := repo.AppendActivity(ctx, rec); err != nil {
				t.Fatalf("append %s: %v", typ, err)
			}
		}
		if err := repo.AppendActivity(ctx, &model.ActivityRecord{Type: model.ActivityOrderReceived, OrderID: &orderID}); err != nil {
			t.Fatal(err)
		}

		records, err := repo.ListActivity(ctx, p.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(records) != len(types) {
			t.Fatalf("got %d records, want %d", len(records), len(types))
		}
		for i, r := range records {
			if r.Type != types[i] {
				t.Fatalf("record %d type %s, want %s", i, r.Type, types[i])
			}
			if i > 0 && !records[i-1].CreatedAt.Before(r.CreatedAt) {
				t.Fatalf("records not strictly ordered at %d", i)
			}
		}
		if records[0].ActorID == nil || *records[0].ActorID != actor {
			t.Fatalf("actor lost: %+v", records[0])
		}
		if records[2].Metadata.NewStatus != model.StatusInspection {
			t.Fatalf("metadata lost: %+v", records[2].Metadata)
		}

		byOrder, err := repo.ListActivity(ctx, orderID)
		if err != nil || len(byOrder) != 1 || byOrder[0].ActorID != nil {
			t.Fatalf("order subject: %v %+v", err, byOrder)
		}
	})
}

func TestMovements(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repository.FulfillmentRepository) {
		ctx := context.Background()
		from := mustCreateLocation(t, repo, "A-1-1", 1)
		to := mustCreateLocation(t, repo, "A-1-2", 1)
		p := mustCreateProduct(t, repo, newProduct("CAM-0500", model.StatusStorage))

		start := time.Now().Add(-time.Minute)
		moves := []*model.ProductMovement{
			{ProductID: p.ID, ToLocationID: from.ID, MovedBy: "staff-1"},
			{ProductID: p.ID, FromLocationID: &from.ID, ToLocationID: to.ID, MovedBy: "staff-1", Notes: "rebalance"},
		}
		for _, m := range moves {
			if err := repo.CreateMovement(ctx, m); err != nil {
				t.Fatal(err)
			}
		}

		got, err := repo.ListMovements(ctx, p.ID)
		if err != nil || len(got) != 2 {
			t.Fatalf("list: %v %d", err, len(got))
		}
		if got[0].FromLocationID != nil || got[1].FromLocationID == nil || *got[1].FromLocationID != from.ID {
			t.Fatalf("from locations wrong: %+v", got)
		}

		recent, err := repo.ListMovementsSince(ctx, start)
		if err != nil || len(recent) != 2 {
			t.Fatalf("since: %v %d", err, len(recent))
		}
		future, err := repo.ListMovementsSince(ctx, time.Now().Add(time.Hour))
		if err != nil || len(future) != 0 {
			t.Fatalf("future: %v %d", err, len(future))
		}
	})
}

func TestPickingTasks(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repository.FulfillmentRepository) {
		ctx := context.Background()
		p := mustCreateProduct(t, repo, newProduct("CAM-0600", model.StatusOrdered))
		q := mustCreateProduct(t, repo, newProduct("CAM-0601", model.StatusOrdered))

		pending := &model.PickingTask{
			CustomerName: "Tanaka",
			Status:       model.PickingPending,
			Priority:     model.PriorityHigh,
			DueDate:      time.Now().Add(2 * time.Hour),
			Items: []model.PickingItem{
				{ProductID: p.ID, ProductName: p.Name, SKU: p.SKU, LocationCode: "A-1-1", Quantity: 1, Status: model.PickingPending},
			},
		}
		done := &model.PickingTask{
			CustomerName: "Sato",
			Status:       model.PickingCompleted,
			Priority:     model.PriorityNormal,
			DueDate:      time.Now().Add(time.Hour),
			Items: []model.PickingItem{
				{ProductID: q.ID, ProductName: q.Name, SKU: q.SKU, Quantity: 1, PickedQuantity: 1, Status: model.PickingCompleted},
			},
		}
		for _, task := range []*model.PickingTask{pending, done} {
			if err := repo.CreatePickingTask(ctx, task); err != nil {
				t.Fatal(err)
			}
		}

		all, err := repo.ListPickingTasks(ctx, "")
		if err != nil || len(all) != 2 {
			t.Fatalf("all: %v %d", err, len(all))
		}
		if all[0].ID != done.ID {
			t.Fatal("expected tasks ordered by due date")
		}
		onlyPending, err := repo.ListPickingTasks(ctx, model.PickingPending)
		if err != nil || len(onlyPending) != 1 {
			t.Fatalf("pending: %v %d", err, len(onlyPending))
		}
		if len(onlyPending[0].Items) != 1 || onlyPending[0].Items[0].ProductID != p.ID {
			t.Fatalf("items lost: %+v", onlyPending[0].Items)
		}

		assigned, err := repo.AssignedProductIDs(ctx)
		if err != nil || !assigned[p.ID] || !assigned[q.ID] || len(assigned) != 2 {
			t.Fatalf("assigned: %v %v", err, assigned)
		}
	})
}

func TestOrdersAndProductLinks(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repository.FulfillmentRepository) {
		ctx := context.Background()
		p := mustCreateProduct(t, repo, newProduct("CAM-0700", model.StatusOrdered))
		order := &model.Order{
			OrderNumber:  "ORD-1001",
			CustomerName: "Yamada",
			Status:       model.OrderProcessing,
			Items:        []model.OrderItem{{ProductID: p.ID, Quantity: 1, Price: p.Price}},
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			t.Fatal(err)
		}

		got, err := repo.FindOrderByID(ctx, order.ID)
		if err != nil || len(got.Items) != 1 || !got.Items[0].Price.Equal(p.Price) {
			t.Fatalf("find order: %v %+v", err, got)
		}

		links, err := repo.FindProductOrders(ctx, []uuid.UUID{p.ID, uuid.New()})
		if err != nil || len(links) != 1 {
			t.Fatalf("links: %v %+v", err, links)
		}
		if links[0].OrderNumber != "ORD-1001" || links[0].Status != model.OrderProcessing || links[0].CustomerName != "Yamada" {
			t.Fatalf("unexpected link %+v", links[0])
		}

		none, err := repo.FindProductOrders(ctx, nil)
		if err != nil || len(none) != 0 {
			t.Fatalf("empty lookup: %v %+v", err, none)
		}
	})
}

func TestDeliveryPlanStatusIsConditional(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo repository.FulfillmentRepository) {
		ctx := context.Background()
		plan := &model.DeliveryPlan{
			PlanNumber: "DP-20261017-0001",
			SellerID:   "seller-1",
			Status:     model.PlanPending,
			Items:      []model.DeliveryPlanItem{{Name: "Nikon F3", Quantity: 1}},
		}
		if err := repo.CreateDeliveryPlan(ctx, plan); err != nil {
			t.Fatal(err)
		}

		byNumber, err := repo.FindDeliveryPlanByNumber(ctx, "DP-20261017-0001")
		if err != nil || byNumber.ID != plan.ID || len(byNumber.Items) != 1 {
			t.Fatalf("by number: %v %+v", err, byNumber)
		}

		if err := repo.UpdateDeliveryPlanStatus(ctx, plan.ID, model.PlanPending, model.PlanCancelled, "cancelled: moving", "seller-1"); err != nil {
			t.Fatalf("update: %v", err)
		}
		err = repo.UpdateDeliveryPlanStatus(ctx, plan.ID, model.PlanPending, model.PlanCancelled, "again", "seller-1")
		if !errors.Is(err, repository.ErrConflict) {
			t.Fatalf("expected ErrConflict on second cancel, got %v", err)
		}

		got, err := repo.FindDeliveryPlanByID(ctx, plan.ID)
		if err != nil || got.Status != model.PlanCancelled || got.Notes != "cancelled: moving" {
			t.Fatalf("after update: %v %+v", err, got)
		}
		if _, err := repo.FindDeliveryPlanByID(ctx, uuid.New()); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
