package usecases

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/tablesched/internal/domain/capacity"
	"github.com/example/tablesched/internal/domain/reservation"
	"github.com/example/tablesched/internal/domain/schedule"
	"github.com/example/tablesched/internal/domain/timeline"
)

const maxAlternatives = 3

// Service orchestrates availability checks and the reservation lifecycle.
// It keeps no state between calls; everything persistent lives in Repo.
type Service struct {
	Repo     reservation.Repository
	Hours    schedule.Resolver
	Policy   capacity.Policy
	Dedup    Ledger
	Location *time.Location
	Now      func() time.Time
	Log      *zap.Logger

	// SuggestStep is the spacing of alternative start times; 0 disables them.
	SuggestStep int
}

func (s *Service) now() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	return now().In(loc)
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Service) ledger() Ledger {
	if s.Dedup == nil {
		return NoopLedger{}
	}
	return s.Dedup
}

func (s *Service) engine() capacity.Engine {
	return capacity.Engine{Reservations: s.Repo, Policy: s.Policy}
}

// Input is the normalized request shape produced by the webhook adapter.
type Input struct {
	Date   string
	Time   string
	Guests int
}

func (s *Service) parse(in Input) (reservation.Request, error) {
	date, err := timeline.Normalize(in.Date, s.now())
	if err != nil {
		return reservation.Request{}, err
	}
	start, err := timeline.ParseClock(in.Time)
	if err != nil {
		return reservation.Request{}, err
	}
	if in.Guests < 1 {
		return reservation.Request{}, fmt.Errorf("%w: %d", reservation.ErrInvalidPartySize, in.Guests)
	}
	return reservation.Request{Date: date, Start: start, Guests: in.Guests}, nil
}

func cleanContact(s string) string {
	return strings.TrimSpace(s)
}
