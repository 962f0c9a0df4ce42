package usecases

import (
	"context"
	"fmt"

	"github.com/example/tablesched/internal/domain/reservation"
	"github.com/example/tablesched/internal/domain/timeline"
)

// LookupByPhone returns the next confirmed reservation held under phone.
func (s *Service) LookupByPhone(ctx context.Context, phone string) (reservation.Reservation, error) {
	p := reservation.NormalizePhone(phone)
	if p == "" {
		return reservation.Reservation{}, fmt.Errorf("%w: phone number required", reservation.ErrInvalidRequest)
	}
	rs, err := s.Repo.Find(ctx, reservation.Query{
		Phone:     p,
		OnOrAfter: timeline.DateOf(s.now()),
		Status:    reservation.StatusConfirmed,
	})
	if err != nil {
		return reservation.Reservation{}, err
	}
	if len(rs) == 0 {
		return reservation.Reservation{}, fmt.Errorf("%w: no reservation for phone", reservation.ErrNotFound)
	}
	reservation.SortUpcoming(rs)
	return rs[0], nil
}

// ListDay returns the confirmed reservations for date, ordered by start time.
func (s *Service) ListDay(ctx context.Context, date timeline.Date) ([]reservation.Reservation, error) {
	rs, err := s.Repo.ListConfirmed(ctx, date)
	if err != nil {
		return nil, err
	}
	reservation.SortUpcoming(rs)
	return rs, nil
}
