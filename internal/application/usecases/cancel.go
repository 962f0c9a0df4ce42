package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/example/tablesched/internal/domain/reservation"
	"github.com/example/tablesched/internal/domain/timeline"
)

type CancelInput struct {
	ID    string
	Date  string
	Time  string
	Phone string
	Name  string
}

// CancelReservation marks the matching confirmed reservation as cancelled. It
// returns ErrNotFound when nothing confirmed matches, including reservations
// that are already cancelled.
func (s *Service) CancelReservation(ctx context.Context, in CancelInput) (reservation.Reservation, error) {
	req, err := s.cancelRequest(in)
	if err != nil {
		return reservation.Reservation{}, err
	}

	var target reservation.Reservation
	if req.ByID() {
		target, err = s.Repo.Get(ctx, req.ID)
		if err != nil {
			return reservation.Reservation{}, err
		}
		if target.Status != reservation.StatusConfirmed {
			return reservation.Reservation{}, fmt.Errorf("%w: %s is %s", reservation.ErrNotFound, req.ID, target.Status)
		}
	} else {
		cands, err := s.Repo.Find(ctx, reservation.Query{Date: req.Date, Phone: reservation.NormalizePhone(req.Phone), Status: reservation.StatusConfirmed})
		if err != nil {
			s.log().Error("cancel lookup failed", zap.Stringer("date", req.Date), zap.Error(err))
			return reservation.Reservation{}, err
		}
		var ok bool
		target, ok = reservation.ChooseCancelTarget(req, cands)
		if !ok {
			return reservation.Reservation{}, fmt.Errorf("%w: no reservation on %s at %s", reservation.ErrNotFound, req.Date, timeline.ToWallClock(req.Start))
		}
	}

	if err := s.Repo.SetStatus(ctx, target.ID, reservation.StatusCancelled); err != nil {
		if !errors.Is(err, reservation.ErrNotFound) {
			s.log().Error("cancel write failed", zap.String("reservation_id", target.ID), zap.Error(err))
		}
		return reservation.Reservation{}, err
	}
	target.Status = reservation.StatusCancelled
	s.log().Info("reservation cancelled", zap.String("reservation_id", target.ID))
	return target, nil
}

func (s *Service) cancelRequest(in CancelInput) (reservation.CancelRequest, error) {
	if id := strings.TrimSpace(in.ID); id != "" {
		return reservation.CancelRequest{ID: id}, nil
	}
	if strings.TrimSpace(in.Date) == "" || strings.TrimSpace(in.Time) == "" {
		return reservation.CancelRequest{}, fmt.Errorf("%w: need a reservation id or date and time", reservation.ErrInvalidRequest)
	}
	date, err := timeline.Normalize(in.Date, s.now())
	if err != nil {
		return reservation.CancelRequest{}, err
	}
	start, err := timeline.ParseClock(in.Time)
	if err != nil {
		return reservation.CancelRequest{}, err
	}
	return reservation.CancelRequest{Date: date, Start: start, Phone: cleanContact(in.Phone), Name: cleanContact(in.Name)}, nil
}
