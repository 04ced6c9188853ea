package service

import (
	"context"
	"testing"

	"go-fulfillment-ws/internal/apperr"
	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/repository"
)

func TestPlaceIntoFullLocationFails(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.seedLocation(t, "A-1-1", "Shelf A1", 1)
		p1 := f.seedProduct(t, "P1", model.StatusStorage, nil)
		p2 := f.seedProduct(t, "P2", model.StatusStorage, nil)

		if _, err := f.locations.Place(ctx, PlaceInput{ProductID: p1.ID, LocationRef: "A-1-1", Actor: staff}); err != nil {
			t.Fatalf("place P1: %v", err)
		}
		_, err := f.locations.Place(ctx, PlaceInput{ProductID: p2.ID, LocationRef: "A-1-1", Actor: staff})
		wantKind(t, err, apperr.KindCapacityExceeded)

		if got := f.reload(t, p2.ID); got.CurrentLocationID != nil {
			t.Fatalf("P2 location changed to %v", got.CurrentLocationID)
		}
		if n := len(f.activity(t, p2.ID)); n != 0 {
			t.Fatalf("rejected placement recorded %d entries", n)
		}

		occupancy, err := f.locations.ListLocations(ctx)
		if err != nil {
			t.Fatal(err)
		}
		for _, o := range occupancy {
			if o.ProductCount > int64(o.Capacity) {
				t.Fatalf("%s holds %d of %d", o.Code, o.ProductCount, o.Capacity)
			}
		}
	})
}

func TestPlaceMovesAndRecords(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		a := f.seedLocation(t, "A-1-1", "Shelf A1", 1)
		b := f.seedLocation(t, "A-1-2", "Shelf A2", 1)
		p := f.seedProduct(t, "MOVE-1", model.StatusStorage, &a.ID)

		res, err := f.locations.Place(ctx, PlaceInput{ProductID: p.ID, LocationRef: b.ID.String(), Actor: staff, Notes: "rebalance"})
		if err != nil {
			t.Fatalf("place: %v", err)
		}
		if !res.Moved || res.Location.ID != b.ID {
			t.Fatalf("unexpected placement %+v", res)
		}

		movements, err := f.locations.ListMovements(ctx, p.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(movements) != 1 {
			t.Fatalf("expected one movement, got %d", len(movements))
		}
		m := movements[0]
		if m.FromLocationID == nil || *m.FromLocationID != a.ID || m.ToLocationID != b.ID {
			t.Errorf("unexpected movement %+v", m)
		}
		if m.MovedBy != staff.ID || m.Notes != "rebalance" {
			t.Errorf("movement attribution wrong: %+v", m)
		}

		records := f.activity(t, p.ID)
		if len(records) != 1 || records[0].Type != model.ActivityLocationMoved {
			t.Fatalf("expected one location_moved record, got %+v", records)
		}

		// the old shelf is free again
		other := f.seedProduct(t, "MOVE-2", model.StatusStorage, nil)
		if _, err := f.locations.Place(ctx, PlaceInput{ProductID: other.ID, LocationRef: "A-1-1", Actor: staff}); err != nil {
			t.Fatalf("released shelf should accept a product: %v", err)
		}

		// placing where it already is changes nothing
		again, err := f.locations.Place(ctx, PlaceInput{ProductID: p.ID, LocationRef: "A-1-2", Actor: staff})
		if err != nil {
			t.Fatalf("idempotent place: %v", err)
		}
		if again.Moved {
			t.Error("expected no move")
		}
		if n := len(f.activity(t, p.ID)); n != 1 {
			t.Errorf("idempotent place recorded again: %d", n)
		}
	})
}

func TestUnknownLocationIsNotCreated(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		p := f.seedProduct(t, "TYPO-1", model.StatusStorage, nil)

		_, err := f.locations.Place(ctx, PlaceInput{ProductID: p.ID, LocationRef: "Z-9-9", Actor: staff})
		ae := wantKind(t, err, apperr.KindNotFound)
		if ae.Code != "LOCATION_NOT_FOUND" {
			t.Errorf("unexpected code %s", ae.Code)
		}
		locations, err := f.repo.ListLocations(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(locations) != 0 {
			t.Fatalf("unknown code created %d locations", len(locations))
		}
	})
}

func TestPlaceRequiresStaff(t *testing.T) {
	f := newFixture(t, repository.NewMemoryRepo())
	f.seedLocation(t, "A-1-1", "Shelf A1", 1)
	p := f.seedProduct(t, "AUTH-1", model.StatusStorage, nil)

	_, err := f.locations.Place(context.Background(), PlaceInput{ProductID: p.ID, LocationRef: "A-1-1", Actor: seller})
	wantKind(t, err, apperr.KindForbidden)
}

func TestCreateLocation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()

		loc, err := f.locations.CreateLocation(ctx, CreateLocationInput{Code: " C-2-1 ", Name: "Cabinet", Zone: "C"}, admin)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if loc.Code != "C-2-1" || loc.Capacity != 1 {
			t.Errorf("unexpected location %+v", loc)
		}

		_, err = f.locations.CreateLocation(ctx, CreateLocationInput{Code: "C-2-1"}, admin)
		wantKind(t, err, apperr.KindValidation)

		_, err = f.locations.CreateLocation(ctx, CreateLocationInput{Code: "B-01"}, admin)
		wantKind(t, err, apperr.KindValidation)

		_, err = f.locations.CreateLocation(ctx, CreateLocationInput{Code: "C-2-2"}, seller)
		wantKind(t, err, apperr.KindForbidden)
	})
}

func TestListLocationsRemapsLegacyCodes(t *testing.T) {
	f := newFixture(t, repository.NewMemoryRepo())
	legacy := f.seedLocation(t, "INBOUND", "Inbound dock", 5)
	f.seedProduct(t, "DOCK-1", model.StatusInbound, &legacy.ID)

	occupancy, err := f.locations.ListLocations(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(occupancy) != 1 {
		t.Fatalf("expected one location, got %d", len(occupancy))
	}
	o := occupancy[0]
	if o.DisplayCode != "B-1-1" || o.ProductCount != 1 || o.Available != 4 {
		t.Errorf("unexpected occupancy %+v", o)
	}
}
