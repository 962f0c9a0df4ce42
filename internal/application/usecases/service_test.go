package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/tablesched/internal/domain/reservation"
)

func TestCheckAvailabilityOverlapRejected(t *testing.T) {
	repo := &memRepo{}
	repo.add(confirmedAt(tuesday, 18*60, 6, "0170", "Anna"))
	svc := newService(repo)

	a, err := svc.CheckAvailability(context.Background(), Input{Date: "2025-06-03", Time: "19:00", Guests: 5})
	if err != nil {
		t.Fatal(err)
	}
	if a.Available || a.Code != reservation.CodeCapacityExceeded || a.OccupiedGuests != 6 || a.RemainingSeats != 4 {
		t.Fatalf("got %+v", a)
	}
	want := []int{20 * 60, 16 * 60, 15*60 + 30}
	if fmt.Sprint(a.Alternatives) != fmt.Sprint(want) {
		t.Fatalf("alternatives %v, want %v", a.Alternatives, want)
	}
}

func TestCheckAvailabilityAdjacentFits(t *testing.T) {
	repo := &memRepo{}
	repo.add(confirmedAt(tuesday, 18*60, 6, "0170", "Anna"))
	a, err := newService(repo).CheckAvailability(context.Background(), Input{Date: "Dienstag", Time: "20 Uhr", Guests: 5})
	if err != nil {
		t.Fatal(err)
	}
	if !a.Available || a.Code != "" || a.OccupiedGuests != 0 || a.RemainingSeats != 10 || a.Date != tuesday {
		t.Fatalf("got %+v", a)
	}
}

func TestCheckAvailabilityOutsideOpeningHours(t *testing.T) {
	a, err := newService(&memRepo{}).CheckAvailability(context.Background(), Input{Date: "2025-06-03", Time: "21:30", Guests: 2})
	if err != nil {
		t.Fatal(err)
	}
	if a.Available || a.Code != reservation.CodeOutsideHours {
		t.Fatalf("got %+v", a)
	}
	if a.LatestStart != 20*60 || a.Reason != "open 12:00-22:00, latest start 20:00" {
		t.Fatalf("reason %q latest %d", a.Reason, a.LatestStart)
	}
	if !equalMinutes(a.Alternatives, 20*60, 19*60+30, 19*60) {
		t.Fatalf("alternatives %v", a.Alternatives)
	}
}

func TestOutsideHoursAlternativesSkipFullSlots(t *testing.T) {
	repo := &memRepo{}
	repo.add(confirmedAt(tuesday, 19*60, 9, "", "big party"))
	a, err := newService(repo).CheckAvailability(context.Background(), Input{Date: "2025-06-03", Time: "21:30", Guests: 2})
	if err != nil {
		t.Fatal(err)
	}
	// 17:30 through 20:00 overlap the 19:00 party
	if !equalMinutes(a.Alternatives, 17*60, 16*60+30, 16*60) {
		t.Fatalf("alternatives %v", a.Alternatives)
	}
}

func TestOutsideHoursStillRejectedWhenStoreFails(t *testing.T) {
	repo := &memRepo{err: reservation.ErrRepositoryUnavailable}
	a, err := newService(repo).CheckAvailability(context.Background(), Input{Date: "2025-06-03", Time: "21:30", Guests: 2})
	if err != nil {
		t.Fatal(err)
	}
	if a.Code != reservation.CodeOutsideHours || len(a.Alternatives) != 0 {
		t.Fatalf("got %+v", a)
	}
}

func equalMinutes(got []int, want ...int) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestCheckAvailabilityClosedDay(t *testing.T) {
	a, err := newService(&memRepo{}).CheckAvailability(context.Background(), Input{Date: "2025-06-02", Time: "19:00", Guests: 2})
	if err != nil {
		t.Fatal(err)
	}
	if a.Available || a.Code != reservation.CodeClosed {
		t.Fatalf("got %+v", a)
	}
}

func TestCheckAvailabilityStartPassedToday(t *testing.T) {
	svc := newService(&memRepo{})
	svc.Now = func() time.Time { return time.Date(2025, time.June, 1, 13, 0, 0, 0, berlin) }
	a, err := svc.CheckAvailability(context.Background(), Input{Date: "heute", Time: "12:30", Guests: 2})
	if err != nil {
		t.Fatal(err)
	}
	if a.Code != reservation.CodeOutsideHours || a.Reason != reasonStartPassed {
		t.Fatalf("got %+v", a)
	}
	if !equalMinutes(a.Alternatives, 13*60+30, 14*60, 14*60+30) {
		t.Fatalf("alternatives %v", a.Alternatives)
	}
	a, _ = svc.CheckAvailability(context.Background(), Input{Date: "heute", Time: "14:00", Guests: 2})
	if !a.Available {
		t.Fatalf("later today rejected: %+v", a)
	}
}

func TestCheckAvailabilityInputErrors(t *testing.T) {
	svc := newService(&memRepo{})
	cases := []struct {
		in   Input
		want error
	}{
		{Input{Date: "30.2.", Time: "19:00", Guests: 2}, reservation.ErrInvalidDate},
		{Input{Date: "morgen", Time: "abends", Guests: 2}, reservation.ErrInvalidTime},
		{Input{Date: "morgen", Time: "19:00", Guests: 0}, reservation.ErrInvalidPartySize},
	}
	for _, tc := range cases {
		if _, err := svc.CheckAvailability(context.Background(), tc.in); !errors.Is(err, tc.want) {
			t.Errorf("%+v: err = %v, want %v", tc.in, err, tc.want)
		}
	}
}

func TestCheckAvailabilityFailsClosed(t *testing.T) {
	repo := &memRepo{err: fmt.Errorf("%w: i/o timeout", reservation.ErrRepositoryUnavailable)}
	a, err := newService(repo).CheckAvailability(context.Background(), Input{Date: "2025-06-03", Time: "19:00", Guests: 2})
	if reservation.CodeOf(err) != reservation.CodeRepositoryUnavailable {
		t.Fatalf("err = %v", err)
	}
	if a.Available {
		t.Fatal("available while store is down")
	}
}

func TestCreateReservationWritesConfirmed(t *testing.T) {
	repo := &memRepo{}
	svc := newService(repo)
	in := CreateInput{Input: Input{Date: "2025-06-03", Time: "19:00", Guests: 6}, Name: " Anna ", Phone: "+49 170 1"}
	c, err := svc.CreateReservation(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if c.ID == "" || !c.Available || c.RemainingSeats != 4 {
		t.Fatalf("got %+v", c)
	}
	got, err := repo.Get(context.Background(), c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != reservation.StatusConfirmed || got.Name != "Anna" || got.Start != 19*60 || got.Date != tuesday {
		t.Fatalf("stored %+v", got)
	}

	in.Guests = 5
	c, err = svc.CreateReservation(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if c.ID != "" || c.Code != reservation.CodeCapacityExceeded {
		t.Fatalf("second create %+v", c)
	}
	if repo.inserts != 1 {
		t.Fatalf("inserts = %d", repo.inserts)
	}
}

func TestCreateReservationSerializedWriterHoldsCapacity(t *testing.T) {
	repo := &lockedRepo{memRepo: &memRepo{}}
	svc := newService(repo)

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := svc.CreateReservation(context.Background(), CreateInput{Input: Input{Date: "2025-06-03", Time: "19:00", Guests: 2}})
			if err != nil {
				t.Error(err)
				return
			}
			if c.ID != "" {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if created != 5 {
		t.Fatalf("created %d reservations of 2 guests with capacity 10", created)
	}
}

func TestCreateReservationReplaysDedupKey(t *testing.T) {
	repo := &memRepo{}
	svc := newService(repo)
	svc.Dedup = &memLedger{}
	in := CreateInput{Input: Input{Date: "2025-06-03", Time: "19:00", Guests: 2}, DedupKey: "call-1"}

	first, err := svc.CreateReservation(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.CreateReservation(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Replayed || second.ID != first.ID || repo.inserts != 1 {
		t.Fatalf("first %+v second %+v inserts %d", first, second, repo.inserts)
	}
}

func TestCreateReservationInFlightDuplicate(t *testing.T) {
	ledger := &memLedger{keys: map[string]string{"call-1": ""}}
	svc := newService(&memRepo{})
	svc.Dedup = ledger
	_, err := svc.CreateReservation(context.Background(), CreateInput{Input: Input{Date: "2025-06-03", Time: "19:00", Guests: 2}, DedupKey: "call-1"})
	if !errors.Is(err, reservation.ErrDuplicateInFlight) {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateReservationReleasesClaimOnRejection(t *testing.T) {
	ledger := &memLedger{}
	svc := newService(&memRepo{})
	svc.Dedup = ledger
	c, err := svc.CreateReservation(context.Background(), CreateInput{Input: Input{Date: "2025-06-03", Time: "21:30", Guests: 2}, DedupKey: "call-2"})
	if err != nil || c.Code != reservation.CodeOutsideHours {
		t.Fatalf("got %+v err %v", c, err)
	}
	if _, held := ledger.keys["call-2"]; held {
		t.Fatal("claim kept after rejection")
	}
}

type failingInsert struct{ *memRepo }

func (failingInsert) Insert(context.Context, reservation.Reservation) (string, error) {
	return "", fmt.Errorf("%w: connection reset", reservation.ErrRepositoryUnavailable)
}

func TestCreateReservationKeepsClaimOnFailedWrite(t *testing.T) {
	ledger := &memLedger{}
	svc := newService(failingInsert{&memRepo{}})
	svc.Dedup = ledger
	_, err := svc.CreateReservation(context.Background(), CreateInput{Input: Input{Date: "2025-06-03", Time: "19:00", Guests: 2}, DedupKey: "call-3"})
	if !errors.Is(err, reservation.ErrRepositoryUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if _, held := ledger.keys["call-3"]; !held {
		t.Fatal("claim released although the write outcome is unknown")
	}
}

func TestCancelByCompositePrefersExactTime(t *testing.T) {
	repo := &memRepo{}
	repo.add(confirmedAt(tuesday, 20*60, 2, "+49 170 1", "Anna"))
	repo.add(confirmedAt(tuesday, 19*60, 2, "+491701", "Ben"))
	svc := newService(repo)

	got, err := svc.CancelReservation(context.Background(), CancelInput{Date: "03.06.2025", Time: "19:00", Phone: "+49 170 1"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Ben" || got.Status != reservation.StatusCancelled {
		t.Fatalf("cancelled %+v", got)
	}
	left, _ := repo.ListConfirmed(context.Background(), tuesday)
	if len(left) != 1 || left[0].Name != "Anna" {
		t.Fatalf("remaining %+v", left)
	}
}

func TestCancelByID(t *testing.T) {
	repo := &memRepo{}
	id := repo.add(confirmedAt(tuesday, 19*60, 2, "", "Anna"))
	svc := newService(repo)

	if _, err := svc.CancelReservation(context.Background(), CancelInput{ID: id}); err != nil {
		t.Fatal(err)
	}
	// already cancelled is reported as not found
	if _, err := svc.CancelReservation(context.Background(), CancelInput{ID: id}); !errors.Is(err, reservation.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if _, err := svc.CancelReservation(context.Background(), CancelInput{ID: "missing"}); !errors.Is(err, reservation.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestCancelNeedsIdentity(t *testing.T) {
	_, err := newService(&memRepo{}).CancelReservation(context.Background(), CancelInput{Phone: "0170"})
	if !errors.Is(err, reservation.ErrInvalidRequest) {
		t.Fatalf("err = %v", err)
	}
}

func TestLookupByPhoneReturnsNextUpcoming(t *testing.T) {
	repo := &memRepo{}
	repo.add(confirmedAt(sunday.AddDays(-3), 19*60, 2, "0170 1", "past"))
	repo.add(confirmedAt(tuesday, 19*60, 2, "0170 1", "later"))
	repo.add(confirmedAt(sunday, 20*60, 2, "01701", "next"))
	repo.add(confirmedAt(sunday, 18*60, 2, "0999", "other"))
	svc := newService(repo)

	got, err := svc.LookupByPhone(context.Background(), "0170-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "next" {
		t.Fatalf("got %+v", got)
	}
	if _, err := svc.LookupByPhone(context.Background(), "0123"); !errors.Is(err, reservation.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if _, err := svc.LookupByPhone(context.Background(), " "); !errors.Is(err, reservation.ErrInvalidRequest) {
		t.Fatalf("err = %v", err)
	}
}

func TestListDayOrdersByStart(t *testing.T) {
	repo := &memRepo{}
	repo.add(confirmedAt(tuesday, 20*60, 2, "", "b"))
	repo.add(confirmedAt(tuesday, 12*60, 2, "", "a"))
	rs, err := newService(repo).ListDay(context.Background(), tuesday)
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 2 || rs[0].Name != "a" || rs[0].StartText() != "12:00" {
		t.Fatalf("got %+v", rs)
	}
}
