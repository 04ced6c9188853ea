package model

import "testing"

func TestEveryStatusHasSuccessorEntry(t *testing.T) {
	for _, s := range ProductStatuses {
		if !s.Valid() {
			t.Fatalf("status %q missing from successor table", s)
		}
	}
	if len(ProductStatuses) != len(allowedSuccessors) {
		t.Fatalf("vocabulary has %d statuses, table has %d", len(ProductStatuses), len(allowedSuccessors))
	}
}

func TestSuccessorsAreKnownStatuses(t *testing.T) {
	for from, next := range allowedSuccessors {
		for _, to := range next {
			if !to.Valid() {
				t.Fatalf("%s -> %s targets unknown status", from, to)
			}
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range ProductStatuses {
		want := s == StatusDelivered || s == StatusCancelled
		if s.Terminal() != want {
			t.Fatalf("%s terminal = %v, want %v", s, s.Terminal(), want)
		}
	}
}

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to ProductStatus
		want     bool
	}{
		{StatusInbound, StatusInspection, true},
		{StatusInspection, StatusStorage, true},
		{StatusListing, StatusOrdered, true},
		{StatusShipped, StatusReturned, true},
		{StatusInbound, StatusShipped, false},
		{StatusDelivered, StatusReturned, false},
		{StatusCancelled, StatusInbound, false},
		{StatusStorage, StatusCancelled, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.want {
			t.Fatalf("%s -> %s = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestIntakeStatusesAreCancellable(t *testing.T) {
	for _, s := range ProductStatuses {
		if s.InIntake() != s.CanTransitionTo(StatusCancelled) {
			t.Fatalf("%s: InIntake = %v but cancellable = %v", s, s.InIntake(), s.CanTransitionTo(StatusCancelled))
		}
	}
}

func TestOrderable(t *testing.T) {
	for _, s := range []ProductStatus{StatusInbound, StatusInspection, StatusShipped, StatusDelivered, StatusCancelled, StatusReturned} {
		if s.Orderable() {
			t.Errorf("%s must not be orderable", s)
		}
	}
	for _, s := range []ProductStatus{StatusStorage, StatusListing, StatusOrdered, StatusSold} {
		if !s.Orderable() {
			t.Errorf("%s should be orderable", s)
		}
	}
}

func TestParseProductStatus(t *testing.T) {
	if _, err := ParseProductStatus("listing"); err != nil {
		t.Fatalf("listing: %v", err)
	}
	if _, err := ParseProductStatus("Listing"); err == nil {
		t.Fatal("expected case-sensitive rejection")
	}
	if _, err := ParseProductStatus("lost"); err == nil {
		t.Fatal("expected unknown status rejection")
	}
}

func TestActorCanTransition(t *testing.T) {
	seller := Actor{ID: "s1", Role: RoleSeller}
	staff := Actor{ID: "u1", Role: RoleStaff}

	if !seller.CanTransition(StatusListing) {
		t.Fatal("seller should list")
	}
	if seller.CanTransition(StatusStorage) {
		t.Fatal("seller must not shelve items")
	}
	if !staff.CanTransition(StatusStorage) {
		t.Fatal("staff should shelve items")
	}
	if staff.CanTransition(StatusCancelled) {
		t.Fatal("staff must not cancel")
	}
	if !SystemActor.CanTransition(StatusOrdered) {
		t.Fatal("system should mark ordered")
	}
	if SystemActor.RecordedID() != nil {
		t.Fatal("system actor must record a nil id")
	}
}

func TestRemapLocationCode(t *testing.T) {
	if got := RemapLocationCode("A-01"); got != "A-1-1" {
		t.Fatalf("A-01 -> %q", got)
	}
	if got := RemapLocationCode("SHIPPING"); got != "B-1-3" {
		t.Fatalf("SHIPPING -> %q", got)
	}
	if got := RemapLocationCode("A-1-1"); got != "A-1-1" {
		t.Fatalf("current code changed to %q", got)
	}
	legacy := LegacyLocationCodes("A-1-4")
	if len(legacy) != 1 || legacy[0] != "B-01" {
		t.Fatalf("unexpected legacy codes %v", legacy)
	}
}
