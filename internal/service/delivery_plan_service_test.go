package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go-fulfillment-ws/internal/apperr"
	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/repository"

	"github.com/google/uuid"
)

// seedPlan creates a pending plan for seller linking k inbound products.
func (f *fixture) seedPlan(t *testing.T, k int) (*model.DeliveryPlan, []*model.Product) {
	t.Helper()
	var (
		products []*model.Product
		items    []DeliveryPlanItemInput
	)
	for i := 0; i < k; i++ {
		p := f.seedProduct(t, "DPX-"+string(rune('A'+i)), model.StatusInbound, nil)
		id := p.ID
		products = append(products, p)
		items = append(items, DeliveryPlanItemInput{Name: p.Name, Quantity: 1, ProductID: &id})
	}
	items = append(items, DeliveryPlanItemInput{Name: "Strap, unlisted", Quantity: 2})
	plan, err := f.plans.Create(context.Background(), CreateDeliveryPlanInput{Notes: "first batch", Items: items}, seller)
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	return plan, products
}

func ofType(records []model.ActivityRecord, typ model.ActivityType) []model.ActivityRecord {
	var out []model.ActivityRecord
	for _, r := range records {
		if r.Type == typ {
			out = append(out, r)
		}
	}
	return out
}

func TestCancelPlanCancelsLinkedProducts(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		plan, products := f.seedPlan(t, 3)
		if !strings.HasPrefix(plan.PlanNumber, model.PlanNumberPrefix) || plan.Status != model.PlanPending {
			t.Fatalf("unexpected plan %+v", plan)
		}

		res, err := f.plans.Cancel(ctx, plan.PlanNumber, seller, "")
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if res.AffectedProducts != 3 || res.Plan.Status != model.PlanCancelled {
			t.Fatalf("unexpected result %+v", res)
		}

		stored, err := f.repo.FindDeliveryPlanByID(ctx, plan.ID)
		if err != nil {
			t.Fatal(err)
		}
		if stored.Status != model.PlanCancelled {
			t.Errorf("plan status %s", stored.Status)
		}
		if !strings.Contains(stored.Notes, "first batch") || !strings.Contains(stored.Notes, model.NoCancelReason) {
			t.Errorf("unexpected notes %q", stored.Notes)
		}

		for _, p := range products {
			if got := f.reload(t, p.ID); got.Status != model.StatusCancelled {
				t.Errorf("%s status %s", p.SKU, got.Status)
			}
			records := f.activity(t, p.ID)
			if len(records) != 2 {
				t.Fatalf("%s: expected link and cancel records, got %+v", p.SKU, records)
			}
			cancelled := ofType(records, model.ActivityCancelled)
			if len(cancelled) != 1 {
				t.Fatalf("%s: expected one cancelled record, got %+v", p.SKU, records)
			}
			if cancelled[0].Metadata.DeliveryPlanID == nil || *cancelled[0].Metadata.DeliveryPlanID != plan.ID {
				t.Errorf("%s: record lacks plan id", p.SKU)
			}
		}

		f.dispatcher.Wait()
		events := f.pub.Events()
		if len(events) != 1 || events[0].Type != model.EventDeliveryPlanCancelled || events[0].PlanID != plan.ID.String() {
			t.Fatalf("unexpected events %+v", events)
		}
	})
}

func TestCancelPlanIsAtomic(t *testing.T) {
	for _, b := range backends {
		b := b
		t.Run(b.name, func(t *testing.T) {
			base := b.open(t)
			f := newFixture(t, base)
			plan, products := f.seedPlan(t, 3)

			broken := newFixture(t, &faultyRepo{FulfillmentRepository: base, failID: products[1].ID, err: errors.New("disk I/O error")})
			_, err := broken.plans.Cancel(context.Background(), plan.ID.String(), seller, "changed my mind")
			ae := wantKind(t, err, apperr.KindStorage)
			if strings.Contains(ae.Message, "disk") {
				t.Errorf("storage details leaked into message %q", ae.Message)
			}

			stored, err := base.FindDeliveryPlanByID(context.Background(), plan.ID)
			if err != nil {
				t.Fatal(err)
			}
			if stored.Status != model.PlanPending || strings.Contains(stored.Notes, "changed my mind") {
				t.Fatalf("plan changed despite rollback: %+v", stored)
			}
			for _, p := range products {
				if got := f.reload(t, p.ID); got.Status != model.StatusInbound {
					t.Errorf("%s leaked status %s", p.SKU, got.Status)
				}
				if n := len(ofType(f.activity(t, p.ID), model.ActivityCancelled)); n != 0 {
					t.Errorf("%s leaked %d cancelled records", p.SKU, n)
				}
			}
		})
	}
}

func TestCancelPlanRejectsWrongState(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		cases := []struct {
			status model.DeliveryPlanStatus
			phrase string
		}{
			{model.PlanShipped, "already shipped"},
			{model.PlanCancelled, "already cancelled"},
			{model.PlanProcessing, "Only pending"},
		}
		for _, c := range cases {
			plan, _ := f.seedPlan(t, 0)
			if err := f.repo.UpdateDeliveryPlanStatus(ctx, plan.ID, model.PlanPending, c.status, plan.Notes, "test"); err != nil {
				t.Fatal(err)
			}
			_, err := f.plans.Cancel(ctx, plan.ID.String(), seller, "")
			ae := wantKind(t, err, apperr.KindForbiddenTransition)
			if ae.Code != "INVALID_STATUS_FOR_CANCEL" || !strings.Contains(ae.Message, c.phrase) {
				t.Errorf("%s: unexpected error %s %q", c.status, ae.Code, ae.Message)
			}
		}
	})
}

func TestCancelPlanAuthorization(t *testing.T) {
	f := newFixture(t, repository.NewMemoryRepo())
	ctx := context.Background()
	plan, _ := f.seedPlan(t, 1)

	_, err := f.plans.Cancel(ctx, plan.PlanNumber, staff, "")
	wantKind(t, err, apperr.KindForbidden)

	_, err = f.plans.Cancel(ctx, plan.PlanNumber, other, "")
	wantKind(t, err, apperr.KindNotFound)

	_, err = f.plans.Cancel(ctx, "not-a-plan", admin, "")
	wantKind(t, err, apperr.KindNotFound)

	_, err = f.plans.Cancel(ctx, "DP-0000", admin, "")
	ae := wantKind(t, err, apperr.KindNotFound)
	if ae.Code != "DELIVERY_PLAN_NOT_FOUND" {
		t.Errorf("unexpected code %s", ae.Code)
	}

	res, err := f.plans.Cancel(ctx, plan.ID.String(), admin, "duplicate shipment")
	if err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
	if !strings.Contains(res.Plan.Notes, "duplicate shipment") {
		t.Errorf("reason missing from notes %q", res.Plan.Notes)
	}
}

func TestCreatePlanRules(t *testing.T) {
	f := newFixture(t, repository.NewMemoryRepo())
	ctx := context.Background()

	_, err := f.plans.Create(ctx, CreateDeliveryPlanInput{Items: []DeliveryPlanItemInput{{Name: "Lens"}}}, staff)
	wantKind(t, err, apperr.KindForbidden)

	_, err = f.plans.Create(ctx, CreateDeliveryPlanInput{}, seller)
	wantKind(t, err, apperr.KindValidation)

	// another seller's product cannot be linked
	p := f.seedProduct(t, "OWN-1", model.StatusInbound, nil)
	id := p.ID
	_, err = f.plans.Create(ctx, CreateDeliveryPlanInput{Items: []DeliveryPlanItemInput{{Name: "Body", ProductID: &id}}}, other)
	wantKind(t, err, apperr.KindNotFound)

	plan, err := f.plans.Create(ctx, CreateDeliveryPlanInput{Items: []DeliveryPlanItemInput{{Name: "Body", ProductID: &id}}}, seller)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	linked := f.reload(t, p.ID)
	if linked.Metadata.DeliveryPlanID == nil || *linked.Metadata.DeliveryPlanID != plan.ID {
		t.Errorf("product not linked to plan: %+v", linked.Metadata)
	}

	got, err := f.plans.Get(ctx, plan.PlanNumber, seller)
	if err != nil || got.ID != plan.ID {
		t.Fatalf("get by number: %v", err)
	}
	_, err = f.plans.Get(ctx, plan.ID.String(), other)
	wantKind(t, err, apperr.KindNotFound)
	_, err = f.plans.Get(ctx, uuid.NewString(), admin)
	wantKind(t, err, apperr.KindNotFound)
}

func TestCancelPlanLeavesShelvedProductsAlone(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		plan, products := f.seedPlan(t, 2)

		// the first item went all the way through while the plan stayed pending
		done := f.reload(t, products[0].ID)
		done.Status = model.StatusDelivered
		if err := f.repo.SaveProduct(ctx, done); err != nil {
			t.Fatal(err)
		}

		_, err := f.plans.Cancel(ctx, plan.PlanNumber, seller, "")
		ae := wantKind(t, err, apperr.KindForbiddenTransition)
		if ae.Code != "INVALID_STATUS_FOR_CANCEL" || !strings.Contains(ae.Message, "delivered") {
			t.Errorf("unexpected error %s %q", ae.Code, ae.Message)
		}

		if got := f.reload(t, products[0].ID); got.Status != model.StatusDelivered {
			t.Errorf("delivered product moved to %s", got.Status)
		}
		if got := f.reload(t, products[1].ID); got.Status != model.StatusInbound {
			t.Errorf("inbound product moved to %s", got.Status)
		}
		for _, p := range products {
			if n := len(ofType(f.activity(t, p.ID), model.ActivityCancelled)); n != 0 {
				t.Errorf("%s got %d cancelled records", p.SKU, n)
			}
		}
		stored, err := f.repo.FindDeliveryPlanByID(ctx, plan.ID)
		if err != nil {
			t.Fatal(err)
		}
		if stored.Status != model.PlanPending {
			t.Errorf("plan status %s", stored.Status)
		}
	})
}

func TestCreatePlanLinksOnlyUnplannedIntakeItems(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		link := func(p *model.Product) (*model.DeliveryPlan, error) {
			id := p.ID
			return f.plans.Create(ctx, CreateDeliveryPlanInput{
				Items: []DeliveryPlanItemInput{{Name: p.Name, ProductID: &id}, {Name: p.Name, ProductID: &id}},
			}, seller)
		}

		shelved := f.seedProduct(t, "LNK-1", model.StatusStorage, nil)
		_, err := link(shelved)
		wantKind(t, err, apperr.KindValidation)
		if got := f.reload(t, shelved.ID); got.Metadata.DeliveryPlanID != nil {
			t.Errorf("shelved product was linked")
		}

		fresh := f.seedProduct(t, "LNK-2", model.StatusInspection, nil)
		plan, err := link(fresh)
		if err != nil {
			t.Fatalf("link: %v", err)
		}
		records := f.activity(t, fresh.ID)
		if len(records) != 1 || records[0].Type != model.ActivityIntake {
			t.Fatalf("expected one intake record, got %+v", records)
		}
		if records[0].Metadata.DeliveryPlanID == nil || *records[0].Metadata.DeliveryPlanID != plan.ID {
			t.Errorf("link record lacks plan id")
		}

		_, err = link(fresh)
		ae := wantKind(t, err, apperr.KindValidation)
		if !strings.Contains(ae.Message, "already belongs") {
			t.Errorf("unexpected message %q", ae.Message)
		}
		if got := f.reload(t, fresh.ID); *got.Metadata.DeliveryPlanID != plan.ID {
			t.Errorf("product moved to another plan")
		}
	})
}
