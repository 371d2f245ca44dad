package engine

import "testing"

func TestFetchControllerReserveRespectsQuota(t *testing.T) {
	fc := NewFetchController(2)

	if !fc.Reserve("example.com") {
		t.Fatal("first reservation should succeed")
	}
	if !fc.Reserve("example.com") {
		t.Fatal("second reservation should succeed")
	}
	if fc.Reserve("example.com") {
		t.Error("third reservation should fail, quota is 2")
	}
	if got := fc.Remaining("example.com"); got != 0 {
		t.Errorf("expected 0 remaining, got %d", got)
	}
}

func TestFetchControllerCompleteMarksFinished(t *testing.T) {
	fc := NewFetchController(1)
	fc.Reserve("example.com")

	if fc.IsFinished("example.com") {
		t.Fatal("domain should not be finished before its reservation completes")
	}

	finished := fc.Complete("example.com")
	if !finished {
		t.Error("expected Complete to report finished once quota is reserved and completed")
	}
	if !fc.IsFinished("example.com") {
		t.Error("expected IsFinished to be true after Complete")
	}
}

func TestFetchControllerCompleteWithOutstandingReservationNotFinished(t *testing.T) {
	fc := NewFetchController(3)
	fc.Reserve("example.com")
	fc.Reserve("example.com")

	if finished := fc.Complete("example.com"); finished {
		t.Error("domain should not finish while a reservation is still outstanding")
	}
}

// TestFetchControllerFinishesBelowQuotaWhenLinksRunOut covers the typical
// case: a domain runs out of discoverable links well before MaxPagesPerDomain,
// so it must still be marked finished once every reservation it did make has
// completed — finishing must not require reserved to reach maxPages.
func TestFetchControllerFinishesBelowQuotaWhenLinksRunOut(t *testing.T) {
	fc := NewFetchController(5)
	fc.Reserve("example.com")
	fc.Reserve("example.com")
	fc.Complete("example.com")

	if fc.IsFinished("example.com") {
		t.Fatal("domain should not be finished while a reservation is still outstanding")
	}

	finished := fc.Complete("example.com")
	if !finished {
		t.Error("expected domain to finish once all reservations complete, even though reserved < maxPages")
	}
	if !fc.IsFinished("example.com") {
		t.Error("expected IsFinished to be true once outstanding work reaches 0")
	}
}

// TestFetchControllerReserveAfterFinishUnfinishes covers the case where new
// links are discovered (and reserved) from a response that was processed
// after the domain had already drained to zero outstanding work elsewhere.
func TestFetchControllerReserveAfterFinishUnfinishes(t *testing.T) {
	fc := NewFetchController(5)
	fc.Reserve("example.com")
	fc.Complete("example.com")

	if !fc.IsFinished("example.com") {
		t.Fatal("expected domain to be finished once its only reservation completed")
	}

	if !fc.Reserve("example.com") {
		t.Fatal("expected another reservation to succeed under quota")
	}
	if fc.IsFinished("example.com") {
		t.Error("expected a new reservation to un-finish a domain with fresh outstanding work")
	}
}

func TestFetchControllerUnknownDomainNotFinished(t *testing.T) {
	fc := NewFetchController(5)
	if fc.IsFinished("never-seen.example.com") {
		t.Error("unregistered domain should never report finished")
	}
	if fc.Complete("never-seen.example.com") {
		t.Error("Complete on an unregistered domain should report not finished")
	}
}

func TestFetchControllerFinishedDomainsAndActiveCount(t *testing.T) {
	fc := NewFetchController(1)
	fc.Reserve("a.com")
	fc.Reserve("b.com")
	fc.Complete("a.com")

	finished := fc.FinishedDomains()
	if len(finished) != 1 || finished[0] != "a.com" {
		t.Errorf("expected [a.com], got %v", finished)
	}
	if got := fc.ActiveCount(); got != 1 {
		t.Errorf("expected 1 active domain (b.com), got %d", got)
	}
}

func TestFetchControllerRegisterSeedIdempotent(t *testing.T) {
	fc := NewFetchController(1)
	fc.RegisterSeed("example.com")
	fc.Reserve("example.com")
	fc.RegisterSeed("example.com") // must not reset the existing entry

	if got := fc.Remaining("example.com"); got != 0 {
		t.Errorf("RegisterSeed must not reset an already-registered domain, remaining=%d", got)
	}
}
