package usecases

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/tablesched/internal/domain/reservation"
	"github.com/example/tablesched/internal/domain/schedule"
	"github.com/example/tablesched/internal/domain/timeline"
)

const reasonStartPassed = "requested time has already passed"

// Availability is the outcome of a check. Domain rejections (closed, outside
// opening hours, capacity) are reported through Code with Available=false;
// input and store failures are returned as errors instead.
type Availability struct {
	reservation.Request

	Available      bool
	Code           reservation.Code
	Reason         string
	OccupiedGuests int
	RemainingSeats int

	Hours        schedule.Hours
	LatestStart  int
	Alternatives []int
}

// CheckAvailability normalizes in and runs the opening-hours and capacity checks.
func (s *Service) CheckAvailability(ctx context.Context, in Input) (Availability, error) {
	req, err := s.parse(in)
	if err != nil {
		return Availability{}, err
	}
	return s.check(ctx, req)
}

func (s *Service) check(ctx context.Context, req reservation.Request) (Availability, error) {
	a := Availability{Request: req}
	log := s.log().With(zap.Stringer("date", req.Date), zap.String("time", timeline.ToWallClock(req.Start)), zap.Int("guests", req.Guests))

	hours, err := s.Hours.Resolve(ctx, req.Date)
	if err != nil {
		log.Error("opening hours lookup failed", zap.Error(err))
		return a, err
	}
	a.Hours = hours
	if hours.Closed {
		a.Code, a.Reason = reservation.CodeClosed, hours.Reason
		log.Debug("closed on date", zap.String("reason", hours.Reason))
		return a, nil
	}

	a.LatestStart = hours.LatestStart(s.Policy.SlotDuration)
	if !hours.Admits(req.Start, s.Policy.SlotDuration) {
		a.Code = reservation.CodeOutsideHours
		a.Reason = "open " + timeline.ToWallClock(hours.Open) + "-" + timeline.ToWallClock(hours.Close) +
			", latest start " + timeline.ToWallClock(a.LatestStart)
		s.suggestFresh(ctx, log, &a)
		return a, nil
	}
	if s.passed(req.Date, req.Start) {
		a.Code, a.Reason = reservation.CodeOutsideHours, reasonStartPassed
		s.suggestFresh(ctx, log, &a)
		return a, nil
	}

	res, existing, err := s.engine().Check(ctx, req.Date, req.Start, req.Guests)
	if err != nil {
		log.Error("capacity check failed", zap.Error(err))
		return a, err
	}
	a.Available = res.Available
	a.OccupiedGuests = res.OccupiedGuests
	a.RemainingSeats = res.RemainingSeats
	if !res.Available {
		a.Code = reservation.CodeCapacityExceeded
		a.Reason = "not enough seats"
		s.suggest(&a, existing)
	}
	log.Debug("availability checked", zap.Bool("available", a.Available), zap.Int("occupied", a.OccupiedGuests))
	return a, nil
}

// suggestFresh fetches the day's reservations for alternatives on a request
// rejected before the capacity check. A failed fetch leaves the rejection
// without alternatives.
func (s *Service) suggestFresh(ctx context.Context, log *zap.Logger, a *Availability) {
	if s.SuggestStep <= 0 {
		return
	}
	existing, err := s.Repo.ListConfirmed(ctx, a.Date)
	if err != nil {
		log.Warn("alternatives skipped", zap.Error(err))
		return
	}
	s.suggest(a, existing)
}

func (s *Service) suggest(a *Availability, existing []reservation.Reservation) {
	if s.SuggestStep <= 0 {
		return
	}
	for _, alt := range s.Policy.Suggest(existing, a.Hours, a.Start, a.Guests, s.SuggestStep, 0) {
		if len(a.Alternatives) == maxAlternatives {
			break
		}
		if !s.passed(a.Date, alt) {
			a.Alternatives = append(a.Alternatives, alt)
		}
	}
}

// passed reports whether start on date is already in the past.
func (s *Service) passed(date timeline.Date, start int) bool {
	now := s.now()
	return date == timeline.DateOf(now) && start <= now.Hour()*60+now.Minute()
}
