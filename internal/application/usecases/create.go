package usecases

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/tablesched/internal/domain/reservation"
)

type CreateInput struct {
	Input
	Name  string
	Phone string

	// DedupKey identifies retries of the same create; optional.
	DedupKey string
}

type Created struct {
	Availability

	// ID is set when a reservation exists for this request.
	ID string
	// Replayed is true when ID comes from an earlier request with the same key.
	Replayed bool
}

// CreateReservation checks availability and, when the party fits, writes a
// confirmed reservation. The capacity check runs right before the write. On
// stores without serialized writes, two concurrent creates can both pass the
// check and overbook; SerializedWriter stores close that window.
func (s *Service) CreateReservation(ctx context.Context, in CreateInput) (Created, error) {
	req, err := s.parse(in.Input)
	if err != nil {
		return Created{}, err
	}
	req.Name = cleanContact(in.Name)
	req.Phone = cleanContact(in.Phone)
	log := s.log().With(zap.Stringer("date", req.Date), zap.Int("guests", req.Guests))

	if in.DedupKey != "" {
		id, claimed, err := s.ledger().Claim(ctx, in.DedupKey)
		switch {
		case err != nil:
			// without the ledger a client retry may duplicate; the write itself is still safe
			log.Warn("dedup ledger unavailable", zap.Error(err))
		case !claimed && id != "":
			log.Info("replaying create", zap.String("reservation_id", id))
			return Created{Availability: Availability{Request: req, Available: true}, ID: id, Replayed: true}, nil
		case !claimed:
			return Created{}, fmt.Errorf("%w: key %q", reservation.ErrDuplicateInFlight, in.DedupKey)
		}
	}

	out, written, err := s.create(ctx, req)
	if in.DedupKey != "" {
		s.settle(ctx, log, in.DedupKey, out.ID, written, err)
	}
	return out, err
}

// create returns written=true once the store may hold the record, including
// failed writes whose outcome is unknown.
func (s *Service) create(ctx context.Context, req reservation.Request) (Created, bool, error) {
	a, err := s.check(ctx, req)
	if err != nil || a.Code != "" {
		return Created{Availability: a}, false, err
	}

	rec := reservation.Reservation{
		Date:     req.Date,
		Start:    req.Start,
		HasStart: true,
		Guests:   req.Guests,
		Name:     req.Name,
		Phone:    req.Phone,
		Status:   reservation.StatusConfirmed,
	}

	var id string
	if sw, ok := s.Repo.(reservation.SerializedWriter); ok {
		id, err = sw.InsertIfFits(ctx, rec, func(existing []reservation.Reservation) error {
			res := s.Policy.Evaluate(existing, req.Start, req.Guests)
			a.OccupiedGuests, a.RemainingSeats = res.OccupiedGuests, res.RemainingSeats
			if !res.Available {
				return reservation.ErrCapacityExceeded
			}
			return nil
		})
		if errors.Is(err, reservation.ErrCapacityExceeded) {
			a.Available, a.Code, a.Reason = false, reservation.CodeCapacityExceeded, "not enough seats"
			return Created{Availability: a}, false, nil
		}
	} else {
		id, err = s.Repo.Insert(ctx, rec)
	}
	if err != nil {
		s.log().Error("reservation insert failed", zap.Stringer("date", req.Date), zap.Error(err))
		return Created{Availability: a}, true, err
	}

	a.RemainingSeats -= req.Guests
	if a.RemainingSeats < 0 {
		a.RemainingSeats = 0
	}
	s.log().Info("reservation created", zap.String("reservation_id", id), zap.Stringer("date", req.Date))
	return Created{Availability: a, ID: id}, true, nil
}

func (s *Service) settle(ctx context.Context, log *zap.Logger, key, id string, written bool, err error) {
	switch {
	case id != "":
		if cerr := s.ledger().Complete(ctx, key, id); cerr != nil {
			log.Warn("dedup ledger complete failed", zap.Error(cerr))
		}
	case written:
		// outcome of the write is unknown; keep the claim until it expires
		log.Warn("keeping dedup claim after failed write", zap.String("key", key), zap.Error(err))
	default:
		if rerr := s.ledger().Release(ctx, key); rerr != nil {
			log.Warn("dedup ledger release failed", zap.Error(rerr))
		}
	}
}
