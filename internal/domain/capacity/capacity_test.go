package capacity

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/example/tablesched/internal/domain/reservation"
	"github.com/example/tablesched/internal/domain/schedule"
	"github.com/example/tablesched/internal/domain/timeline"
)

var june1 = timeline.Date{Year: 2025, Month: time.June, Day: 1}

func confirmed(start, guests int) reservation.Reservation {
	return reservation.Reservation{Date: june1, Start: start, HasStart: true, Guests: guests, Status: reservation.StatusConfirmed}
}

type reader struct {
	rs  []reservation.Reservation
	err error
}

func (r reader) ListConfirmed(context.Context, timeline.Date) ([]reservation.Reservation, error) {
	return r.rs, r.err
}

func TestOverlapsHalfOpenAndSymmetric(t *testing.T) {
	cases := []struct {
		a, b, c, d int
		want       bool
	}{
		{16 * 60, 18 * 60, 18 * 60, 20 * 60, false},
		{18 * 60, 20 * 60, 19 * 60, 21 * 60, true},
		{18 * 60, 20 * 60, 18 * 60, 20 * 60, true},
		{18 * 60, 20 * 60, 18*60 + 30, 19 * 60, true},
		{10 * 60, 12 * 60, 13 * 60, 15 * 60, false},
	}
	for _, tc := range cases {
		if got := Overlaps(tc.a, tc.b, tc.c, tc.d); got != tc.want {
			t.Errorf("Overlaps(%d,%d,%d,%d) = %v", tc.a, tc.b, tc.c, tc.d, got)
		}
		if Overlaps(tc.c, tc.d, tc.a, tc.b) != Overlaps(tc.a, tc.b, tc.c, tc.d) {
			t.Errorf("Overlaps not symmetric for %+v", tc)
		}
	}
}

func TestScenarioOverlappingRequestIsRejected(t *testing.T) {
	e := Engine{Reservations: reader{rs: []reservation.Reservation{confirmed(18*60, 6)}}, Policy: Policy{MaxCapacity: 10, SlotDuration: 120}}
	res, _, err := e.Check(context.Background(), june1, 19*60, 5)
	if err != nil {
		t.Fatal(err)
	}
	if res.OccupiedGuests != 6 || res.Available || res.RemainingSeats != 4 {
		t.Fatalf("got %+v", res)
	}
}

func TestScenarioAdjacentRequestFits(t *testing.T) {
	e := Engine{Reservations: reader{rs: []reservation.Reservation{confirmed(18*60, 6)}}, Policy: Policy{MaxCapacity: 10, SlotDuration: 120}}
	res, _, err := e.Check(context.Background(), june1, 20*60, 5)
	if err != nil {
		t.Fatal(err)
	}
	if res.OccupiedGuests != 0 || !res.Available || res.RemainingSeats != 10 {
		t.Fatalf("got %+v", res)
	}
}

func TestCheckFailsClosedOnFetchError(t *testing.T) {
	e := Engine{Reservations: reader{err: reservation.ErrRepositoryUnavailable}, Policy: Policy{MaxCapacity: 10, SlotDuration: 120}}
	res, _, err := e.Check(context.Background(), june1, 19*60, 1)
	if !errors.Is(err, reservation.ErrRepositoryUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if res.Available {
		t.Fatal("available on failed fetch")
	}
}

func TestEvaluateIgnoresCancelledAndCountsUnknownStart(t *testing.T) {
	p := Policy{MaxCapacity: 10, SlotDuration: 120}
	cancelled := confirmed(19*60, 8)
	cancelled.Status = reservation.StatusCancelled
	unknown := reservation.Reservation{Date: june1, Guests: 3, Status: reservation.StatusConfirmed}
	res := p.Evaluate([]reservation.Reservation{cancelled, unknown}, 12*60, 7)
	if res.OccupiedGuests != 3 || !res.Available {
		t.Fatalf("got %+v", res)
	}
}

func TestEvaluateAvailabilityMatchesSum(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := Policy{MaxCapacity: 20, SlotDuration: 90}
	for i := 0; i < 500; i++ {
		var rs []reservation.Reservation
		for n := rng.Intn(8); n > 0; n-- {
			rs = append(rs, confirmed(rng.Intn(14*60)+8*60, rng.Intn(8)+1))
		}
		start, guests := rng.Intn(14*60)+8*60, rng.Intn(10)+1
		res := p.Evaluate(rs, start, guests)
		if res.Available != (res.OccupiedGuests+guests <= p.MaxCapacity) {
			t.Fatalf("availability inconsistent: %+v guests=%d", res, guests)
		}
		if res.RemainingSeats < 0 || res.RemainingSeats > p.MaxCapacity {
			t.Fatalf("remaining out of range: %+v", res)
		}
	}
}

func TestRemainingSeatsNeverNegative(t *testing.T) {
	p := Policy{MaxCapacity: 4, SlotDuration: 120}
	res := p.Evaluate([]reservation.Reservation{confirmed(18*60, 6)}, 18*60, 1)
	if res.RemainingSeats != 0 || res.Available {
		t.Fatalf("got %+v", res)
	}
}

func TestSuggest(t *testing.T) {
	p := Policy{MaxCapacity: 10, SlotDuration: 120}
	hours := schedule.Hours{Window: schedule.Window{Open: 17 * 60, Close: 22 * 60}}
	rs := []reservation.Reservation{confirmed(18*60, 8)}
	got := p.Suggest(rs, hours, 19*60, 4, 30, 3)
	// every start before 20:00 overlaps the 18:00 table
	want := []int{20 * 60}
	if len(got) != len(want) || got[0] != want[0] {
		t.Fatalf("got %v, want %v", got, want)
	}
	if s := p.Suggest(rs, schedule.Hours{Closed: true}, 19*60, 4, 30, 3); s != nil {
		t.Fatalf("closed day suggested %v", s)
	}
}

func TestPolicyValidate(t *testing.T) {
	if (Policy{MaxCapacity: 0, SlotDuration: 120}).Validate() == nil {
		t.Error("zero capacity accepted")
	}
	if (Policy{MaxCapacity: 10, SlotDuration: 0}).Validate() == nil {
		t.Error("zero duration accepted")
	}
	if err := (Policy{MaxCapacity: 10, SlotDuration: 120}).Validate(); err != nil {
		t.Error(err)
	}
}
