package capacity

import (
	"context"
	"fmt"
	"sort"

	"github.com/example/tablesched/internal/domain/reservation"
	"github.com/example/tablesched/internal/domain/schedule"
	"github.com/example/tablesched/internal/domain/timeline"
)

// Policy holds the site-wide limits. It is fixed at startup.
type Policy struct {
	MaxCapacity  int
	SlotDuration int // minutes a table stays occupied per reservation
}

func (p Policy) Validate() error {
	if p.MaxCapacity < 1 {
		return fmt.Errorf("max capacity must be >= 1 (got %d)", p.MaxCapacity)
	}
	if p.SlotDuration < 1 || p.SlotDuration > timeline.MinutesPerDay {
		return fmt.Errorf("slot duration must be within 1..%d minutes (got %d)", timeline.MinutesPerDay, p.SlotDuration)
	}
	return nil
}

// Result of a capacity check.
type Result struct {
	Available      bool
	OccupiedGuests int
	RemainingSeats int
}

// Overlaps reports whether the half-open intervals [aStart,aEnd) and
// [bStart,bEnd) share an instant.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}

// Occupied sums the guests of confirmed reservations overlapping a slot that
// starts at start. A reservation without a readable start time cannot be
// placed on the timeline and is counted as overlapping.
func (p Policy) Occupied(existing []reservation.Reservation, start int) int {
	end := start + p.SlotDuration
	total := 0
	for _, r := range existing {
		if r.Status != reservation.StatusConfirmed {
			continue
		}
		if r.HasStart && !Overlaps(start, end, r.Start, r.End(p.SlotDuration)) {
			continue
		}
		total += r.Guests
	}
	return total
}

// Evaluate checks a candidate party against already fetched reservations.
func (p Policy) Evaluate(existing []reservation.Reservation, start, guests int) Result {
	occupied := p.Occupied(existing, start)
	remaining := p.MaxCapacity - occupied
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Available:      occupied+guests <= p.MaxCapacity,
		OccupiedGuests: occupied,
		RemainingSeats: remaining,
	}
}

// Suggest returns start times inside hours, step minutes apart, at which
// guests would still fit, nearest to start first. limit <= 0 means no limit.
func (p Policy) Suggest(existing []reservation.Reservation, hours schedule.Hours, start, guests, step, limit int) []int {
	if hours.Closed || step < 1 {
		return nil
	}
	var fits []int
	for t := hours.Open; t <= hours.LatestStart(p.SlotDuration); t += step {
		if t == start {
			continue
		}
		if p.Evaluate(existing, t, guests).Available {
			fits = append(fits, t)
		}
	}
	sort.SliceStable(fits, func(i, j int) bool {
		di, dj := abs(fits[i]-start), abs(fits[j]-start)
		if di != dj {
			return di < dj
		}
		return fits[i] < fits[j]
	})
	if limit > 0 && len(fits) > limit {
		fits = fits[:limit]
	}
	return fits
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Engine runs capacity checks against the record store.
type Engine struct {
	Reservations reservation.Reader
	Policy       Policy
}

// Check fetches the confirmed reservations for date and evaluates the
// candidate. A failed fetch is returned as an error and never as free seats.
func (e Engine) Check(ctx context.Context, date timeline.Date, start, guests int) (Result, []reservation.Reservation, error) {
	existing, err := e.Reservations.ListConfirmed(ctx, date)
	if err != nil {
		return Result{}, nil, fmt.Errorf("capacity check %s: %w", date, err)
	}
	return e.Policy.Evaluate(existing, start, guests), existing, nil
}
